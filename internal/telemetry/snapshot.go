// Package telemetry samples motor groups and pushes the snapshots to
// remote viewers over MQTT or websockets.
package telemetry

import (
	"sort"
	"sync"
	"time"

	"github.com/san-kum/motioncore/internal/device"
	"github.com/san-kum/motioncore/internal/motorgroup"
	"github.com/san-kum/motioncore/internal/trace"
)

// Snapshot is one group's telemetry at a point in time. Trace holds the
// latest controller sample of each subsystem when a Latest is attached.
type Snapshot struct {
	Group  string             `json:"group"`
	Time   time.Time          `json:"time"`
	Motors []device.Telemetry `json:"motors"`
	Trace  []trace.Sample     `json:"trace,omitempty"`
}

// Faulted reports whether any motor in the snapshot has a fault set.
func (s Snapshot) Faulted() bool {
	for _, m := range s.Motors {
		if m.Faults != 0 {
			return true
		}
	}
	return false
}

type Source struct {
	Name   string
	Motors *motorgroup.Group
}

func Take(src Source, now time.Time) Snapshot {
	return Snapshot{Group: src.Name, Time: now, Motors: src.Motors.Telemetry()}
}

// Latest keeps the most recent sample of every subsystem it observes.
type Latest struct {
	mu   sync.Mutex
	last map[string]trace.Sample
}

func NewLatest() *Latest {
	return &Latest{last: make(map[string]trace.Sample)}
}

func (l *Latest) Observe(s trace.Sample) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.last[s.Subsystem] = s
}

// Samples returns the latest samples ordered by subsystem name.
func (l *Latest) Samples() []trace.Sample {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]trace.Sample, 0, len(l.last))
	for _, s := range l.last {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Subsystem < out[j].Subsystem })
	return out
}
