package trace

import "testing"

func TestFanoutAndFilter(t *testing.T) {
	var all, drive []Sample
	f := Fanout{
		ObserverFunc(func(s Sample) { all = append(all, s) }),
		Filter("drive.", ObserverFunc(func(s Sample) { drive = append(drive, s) })),
	}
	f.Observe(Sample{Subsystem: DriveLeft})
	f.Observe(Sample{Subsystem: Flywheel})
	f.Observe(Sample{Subsystem: DriveRight})

	if len(all) != 3 {
		t.Errorf("fanout delivered %d samples, want 3", len(all))
	}
	if len(drive) != 2 {
		t.Errorf("filter delivered %d samples, want 2", len(drive))
	}
}

func TestHubAttachLate(t *testing.T) {
	var h Hub
	h.Observe(Sample{})
	n := 0
	h.Attach(ObserverFunc(func(Sample) { n++ }))
	h.Observe(Sample{})
	if n != 1 {
		t.Errorf("late observer saw %d samples, want 1", n)
	}
}

func TestChannelDropsWhenFull(t *testing.T) {
	c := NewChannel(1)
	c.Observe(Sample{Target: 1})
	c.Observe(Sample{Target: 2})
	if got := <-c.C; got.Target != 1 {
		t.Errorf("kept sample %v, want the first", got.Target)
	}
	select {
	case s := <-c.C:
		t.Errorf("unexpected extra sample %v", s)
	default:
	}
}

func TestSampleError(t *testing.T) {
	if e := (Sample{Target: 846.3, Measured: 800}).Error(); e < 46.29 || e > 46.31 {
		t.Errorf("Error() = %f", e)
	}
}
