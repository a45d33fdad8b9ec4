package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/0xAF/owrx-markers/internal/logger"
	"github.com/0xAF/owrx-markers/internal/marker"
	"github.com/0xAF/owrx-markers/internal/metrics"
	"github.com/0xAF/owrx-markers/internal/publisher"
	"github.com/0xAF/owrx-markers/internal/schedule"
	"github.com/0xAF/owrx-markers/internal/scraper"
	"github.com/0xAF/owrx-markers/internal/storage"
)

// Options wires an Orchestrator to its collaborators. Static, Schedule, Repeaters and
// Metrics are optional.
type Options struct {
	Static    storage.PathResolver
	Cache     *storage.Cache
	Sources   []scraper.Source
	Schedule  schedule.ScheduleProvider
	Repeaters schedule.RepeaterProvider
	RadiusKm  float64
	Publisher publisher.Publisher
	Metrics   *metrics.Metrics
}

// Orchestrator keeps the map in sync with files, scraped directories and the
// schedule and repeater databases.
type Orchestrator struct {
	opts Options

	// lifecycle
	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}

	setsMu sync.RWMutex
	sets   map[marker.Category]marker.Set

	now  func() time.Time
	wait func(ctx context.Context) bool
}

// New creates a stopped Orchestrator
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		opts: opts,
		sets: make(map[marker.Category]marker.Set, len(marker.Categories)),
		now:  time.Now,
	}
	o.wait = o.waitNextHour
	return o
}

// UntilNextHour returns how long it is from now to the top of the next hour.
// At exactly the top of an hour it returns a full hour.
func UntilNextHour(now time.Time) time.Duration {
	return now.Truncate(time.Hour).Add(time.Hour).Sub(now)
}

// State returns the current lifecycle state
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Start launches the background goroutine. It does nothing unless stopped.
func (o *Orchestrator) Start() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != Stopped {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	o.state = Starting
	o.cancel = cancel
	o.done = make(chan struct{})

	go o.run(ctx, o.done)
}

// Stop signals the background goroutine and waits for it to exit. Once Stop returns
// no further map operations are issued. It does nothing unless starting or running.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.state != Starting && o.state != Running {
		o.mu.Unlock()
		return
	}
	logger.Info("Stopping marker refresh", nil)
	o.state = Stopping
	o.cancel()
	done := o.done
	o.mu.Unlock()

	<-done

	o.mu.Lock()
	o.state = Stopped
	o.cancel = nil
	o.done = nil
	o.mu.Unlock()
}

// Snapshot returns a copy of the markers last published for a category
func (o *Orchestrator) Snapshot(category marker.Category) marker.Set {
	o.setsMu.RLock()
	defer o.setsMu.RUnlock()
	return o.sets[category].Clone()
}

func (o *Orchestrator) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	o.mu.Lock()
	if o.state == Starting {
		o.state = Running
	}
	o.mu.Unlock()

	logger.Info("Starting marker refresh", nil)

	if o.startup(ctx) {
		for o.wait(ctx) {
			o.cycle(ctx)
		}
	}

	logger.Info("Stopped marker refresh", nil)
}

// waitNextHour sleeps until the top of the next hour. It returns false if ctx was
// cancelled first.
func (o *Orchestrator) waitNextHour(ctx context.Context) bool {
	timer := time.NewTimer(UntilNextHour(o.now()))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// startup loads every category and publishes it in full. It returns false if
// stopped before publishing.
func (o *Orchestrator) startup(ctx context.Context) bool {
	start := time.Now()

	static := marker.NewSet()
	if o.opts.Static != nil {
		static = storage.LoadFiles(o.opts.Static)
	}

	var receivers marker.Set
	if o.opts.Cache.IsStale(o.now()) {
		receivers = o.rebuild(ctx)
	}
	if ctx.Err() != nil {
		return false
	}
	if len(receivers) == 0 {
		cached, err := o.opts.Cache.Load()
		if err != nil {
			logger.Warn("No usable receivers cache", logger.Fields{
				"path":  o.opts.Cache.Path(),
				"error": err.Error(),
			})
			cached = marker.NewSet()
		}
		receivers = cached
	}

	transmitters := o.loadTransmitters(ctx)
	if ctx.Err() != nil {
		return false
	}
	repeaters := o.loadRepeaters(ctx)
	if ctx.Err() != nil {
		return false
	}

	logger.Info("Publishing markers", logger.Fields{
		"static":       len(static),
		"receivers":    len(receivers),
		"transmitters": len(transmitters),
		"repeaters":    len(repeaters),
	})

	initial := map[marker.Category]marker.Set{
		marker.CategoryStatic:       static,
		marker.CategoryReceivers:    receivers,
		marker.CategoryTransmitters: transmitters,
		marker.CategoryRepeaters:    repeaters,
	}
	for _, category := range marker.Categories {
		if !o.apply(ctx, category, &marker.Delta{Updated: initial[category]}, initial[category]) {
			return false
		}
	}

	if m := o.opts.Metrics; m != nil {
		m.SetHealthy(true)
		m.ObserveCycle(time.Since(start))
	}
	return true
}

// cycle is one hourly refresh. Stop is honored between phases.
func (o *Orchestrator) cycle(ctx context.Context) {
	start := time.Now()
	logger.Info("Refreshing markers", nil)

	transmitters := o.loadTransmitters(ctx)
	if ctx.Err() != nil {
		return
	}
	o.reconcile(ctx, marker.CategoryTransmitters, transmitters)

	if ctx.Err() != nil {
		return
	}
	repeaters := o.loadRepeaters(ctx)
	if ctx.Err() != nil {
		return
	}
	o.reconcile(ctx, marker.CategoryRepeaters, repeaters)

	if ctx.Err() != nil {
		return
	}
	if o.opts.Cache.IsStale(o.now()) {
		logger.Info("Receivers cache is stale", logger.Fields{
			"path": o.opts.Cache.Path(),
		})
		receivers := o.rebuild(ctx)
		if ctx.Err() != nil {
			return
		}
		// An empty scrape keeps the receivers already on the map
		if len(receivers) > 0 {
			o.reconcile(ctx, marker.CategoryReceivers, receivers)
		}
	}

	if m := o.opts.Metrics; m != nil {
		m.ObserveCycle(time.Since(start))
	}
}

func (o *Orchestrator) rebuild(ctx context.Context) marker.Set {
	receivers, results := o.opts.Cache.Rebuild(ctx, o.opts.Sources...)
	if m := o.opts.Metrics; m != nil {
		for _, r := range results {
			m.ObserveScrape(r.Source, r.Count, r.Failed)
		}
	}
	return receivers
}

func (o *Orchestrator) loadTransmitters(ctx context.Context) marker.Set {
	if o.opts.Schedule == nil {
		return marker.NewSet()
	}
	return schedule.LoadTransmitters(ctx, o.opts.Schedule)
}

func (o *Orchestrator) loadRepeaters(ctx context.Context) marker.Set {
	if o.opts.Repeaters == nil {
		return marker.NewSet()
	}
	return schedule.LoadRepeaters(ctx, o.opts.Repeaters, o.opts.RadiusKm)
}

// reconcile sends the difference between the published and the current set
func (o *Orchestrator) reconcile(ctx context.Context, category marker.Category, current marker.Set) {
	o.setsMu.RLock()
	previous := o.sets[category]
	o.setsMu.RUnlock()

	delta := marker.Diff(previous, current)
	logger.Info("Reconciling markers", logger.Fields{
		"category": string(category),
		"removed":  len(delta.Removed),
		"updated":  len(delta.Updated),
		"total":    len(current),
	})

	o.apply(ctx, category, delta, current)
}

// apply issues removals before updates, then records current as published. It
// returns false if ctx was cancelled part way, leaving the published set as it was.
func (o *Orchestrator) apply(ctx context.Context, category marker.Category, delta *marker.Delta, current marker.Set) bool {
	pub := o.opts.Publisher
	removed, updated := 0, 0
	defer func() {
		if m := o.opts.Metrics; m != nil {
			m.AddOperations(string(publisher.OpRemove), removed)
			m.AddOperations(string(publisher.OpUpdate), updated)
		}
	}()

	for _, id := range delta.Removed {
		if ctx.Err() != nil {
			return false
		}
		pub.Remove(ctx, id)
		removed++
	}
	for _, id := range delta.Updated.IDs() {
		if ctx.Err() != nil {
			return false
		}
		m := delta.Updated[id]
		pub.Update(ctx, id, m, m.Mode, marker.Permanent())
		updated++
	}

	o.setsMu.Lock()
	o.sets[category] = current
	o.setsMu.Unlock()

	if m := o.opts.Metrics; m != nil {
		m.SetPublished(string(category), len(current))
	}
	return true
}
