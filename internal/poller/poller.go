package poller

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"VIXBar/internal/collector"
	"VIXBar/internal/model"
	"VIXBar/internal/state"

	"golang.org/x/sync/singleflight"
)

// DefaultInterval is the polling interval used when none is configured.
const DefaultInterval = 60 * time.Second

// Scheduler installs recurring jobs. The returned func removes the job.
type Scheduler interface {
	Every(interval time.Duration, job func()) (func(), error)
}

// Status reports the scheduling state of a Poller.
type Status struct {
	Scheduled bool
	Interval  time.Duration
}

// Poller keeps the store fresh by fetching on a schedule and on demand.
type Poller struct {
	ctx       context.Context
	collector *collector.Collector
	store     *state.Store
	sched     Scheduler

	flight singleflight.Group

	mu       sync.Mutex
	remove   func()
	interval time.Duration
}

// New creates a Poller. ctx bounds every fetch cycle.
func New(ctx context.Context, col *collector.Collector, store *state.Store, sched Scheduler) *Poller {
	return &Poller{
		ctx:       ctx,
		collector: col,
		store:     store,
		sched:     sched,
	}
}

// Start installs a recurring fetch every interval, replacing any existing
// schedule. It does not fetch immediately.
func (p *Poller) Start(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v", interval)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.remove != nil {
		p.remove()
		p.remove = nil
	}
	remove, err := p.sched.Every(interval, p.tick)
	if err != nil {
		p.interval = 0
		return fmt.Errorf("schedule poll: %w", err)
	}
	p.remove = remove
	p.interval = interval
	log.Printf("[INFO] polling %s every %v", p.collector.Symbol, interval)
	return nil
}

// Stop removes the schedule. In-flight fetches are not cancelled.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.remove == nil {
		return
	}
	p.remove()
	p.remove = nil
	p.interval = 0
	log.Println("[INFO] polling stopped")
}

// Status returns whether a schedule is installed and its interval.
func (p *Poller) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Status{Scheduled: p.remove != nil, Interval: p.interval}
}

// FetchOnce runs one fetch-parse-publish cycle and reports whether the store
// was updated. Failures are logged, never returned. Concurrent calls share a
// single in-flight fetch.
func (p *Poller) FetchOnce(ctx context.Context) bool {
	return p.fetch(ctx, model.TriggerManual)
}

// Refresh starts a FetchOnce in the background.
func (p *Poller) Refresh() {
	go p.fetch(p.ctx, model.TriggerManual)
}

// FetchOnStart runs the first fetch after startup.
func (p *Poller) FetchOnStart() bool {
	return p.fetch(p.ctx, model.TriggerStartup)
}

func (p *Poller) tick() {
	p.fetch(p.ctx, model.TriggerScheduled)
}

// fetch runs the shared cycle under the poller's context so one caller's
// cancellation cannot fail the others. ctx only bounds this caller's wait.
func (p *Poller) fetch(ctx context.Context, trigger model.Trigger) bool {
	ch := p.flight.DoChan("fetch", func() (interface{}, error) {
		return p.cycle(p.ctx, trigger), nil
	})
	select {
	case res := <-ch:
		if res.Shared {
			log.Printf("[DEBUG] %s fetch shared with concurrent callers", trigger)
		}
		return res.Val.(bool)
	case <-ctx.Done():
		log.Printf("[WARN] %s fetch abandoned by caller: %v", trigger, ctx.Err())
		return false
	}
}

func (p *Poller) cycle(ctx context.Context, trigger model.Trigger) bool {
	start := time.Now()
	q, err := p.collector.Collect(ctx)
	if err != nil {
		log.Printf("[WARN] %s fetch failed (%s): %v", trigger, classify(err), err)
		return false
	}
	p.store.Publish(q)
	log.Printf("[INFO] %s fetch: %s = %.2f (%v)", trigger, q.Symbol, q.Value, time.Since(start).Round(time.Millisecond))
	return true
}

func classify(err error) string {
	switch {
	case errors.Is(err, collector.ErrTransport):
		return "transport"
	case errors.Is(err, collector.ErrProtocol):
		return "protocol"
	case errors.Is(err, collector.ErrParse):
		return "parse"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "unknown"
	}
}
