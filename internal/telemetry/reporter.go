package telemetry

import (
	"context"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/san-kum/motioncore/internal/task"
)

// Reporter periodically snapshots its sources and hands each snapshot to
// every publisher. Publish failures are logged and counted, never fatal.
type Reporter struct {
	sources []Source
	pubs    []Publisher
	latest  *Latest
	loop    *task.Task
	log     *log.Entry

	sent     atomic.Int64
	failures atomic.Int64
}

func NewReporter(interval time.Duration, pubs []Publisher, sources ...Source) *Reporter {
	r := &Reporter{
		sources: sources,
		pubs:    pubs,
		log:     log.WithField("subsystem", "telemetry"),
	}
	r.loop = task.New("telemetry", interval, func(context.Context) { r.Report(time.Now()) })
	return r
}

// WithTrace attaches controller samples to every snapshot.
func (r *Reporter) WithTrace(l *Latest) *Reporter {
	r.latest = l
	return r
}

func (r *Reporter) Start(ctx context.Context) error { return r.loop.Start(ctx) }

func (r *Reporter) Stop() { r.loop.Stop() }

func (r *Reporter) Sent() int64     { return r.sent.Load() }
func (r *Reporter) Failures() int64 { return r.failures.Load() }

// Report publishes one round of snapshots taken at now.
func (r *Reporter) Report(now time.Time) {
	for _, src := range r.sources {
		snap := Take(src, now)
		if r.latest != nil {
			snap.Trace = r.latest.Samples()
		}
		for _, p := range r.pubs {
			if err := p.Publish(snap); err != nil {
				r.failures.Add(1)
				r.log.WithError(err).WithField("group", src.Name).Error("publish failed")
				continue
			}
			r.sent.Add(1)
		}
	}
}
