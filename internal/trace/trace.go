// Package trace carries per-cycle controller samples to recorders,
// metrics and live views.
package trace

import (
	"strings"
	"sync"
	"time"
)

// Subsystem names used by the built-in controllers.
const (
	DriveLeft  = "drive.left"
	DriveRight = "drive.right"
	Flywheel   = "flywheel"
)

// Sample is one loop cycle of one controlled axis. Output is the command
// sent to the motors in millivolts.
type Sample struct {
	Subsystem string        `json:"subsystem"`
	Time      time.Duration `json:"time"`
	Target    float64       `json:"target"`
	Measured  float64       `json:"measured"`
	Output    float64       `json:"output"`
	Settled   bool          `json:"settled"`
}

func (s Sample) Error() float64 { return s.Target - s.Measured }

// Observers are called from control loops and must not block.
type Observer interface {
	Observe(Sample)
}

type ObserverFunc func(Sample)

func (f ObserverFunc) Observe(s Sample) { f(s) }

// Fanout forwards every sample to each observer in order.
type Fanout []Observer

func (f Fanout) Observe(s Sample) {
	for _, o := range f {
		o.Observe(s)
	}
}

// Filter passes through samples whose subsystem has the given prefix.
func Filter(prefix string, o Observer) Observer {
	return ObserverFunc(func(s Sample) {
		if strings.HasPrefix(s.Subsystem, prefix) {
			o.Observe(s)
		}
	})
}

// Hub lets observers be attached after a controller has started.
type Hub struct {
	mu  sync.RWMutex
	obs []Observer
}

func (h *Hub) Attach(o Observer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.obs = append(h.obs, o)
}

func (h *Hub) Observe(s Sample) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, o := range h.obs {
		o.Observe(s)
	}
}

// Channel delivers samples on a buffered channel, dropping the sample
// when the buffer is full.
type Channel struct {
	C chan Sample
}

func NewChannel(size int) *Channel {
	return &Channel{C: make(chan Sample, size)}
}

func (c *Channel) Observe(s Sample) {
	select {
	case c.C <- s:
	default:
	}
}
