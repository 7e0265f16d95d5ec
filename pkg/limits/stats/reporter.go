// Package stats publishes ledger-wide gauges on a schedule.
package stats

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/robfig/cron/v3"

	"velocity-hq/loadgate/pkg/limits/storage"
)

// DefaultSchedule refreshes the gauges once a minute.
const DefaultSchedule = "@every 1m"

// Reporter periodically aggregates the current UTC day of the ledger and
// exposes the totals as Prometheus gauges.
type Reporter struct {
	store    storage.Backend
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger
	now      func() time.Time

	attempts       prometheus.Gauge
	accepted       prometheus.Gauge
	acceptedAmount prometheus.Gauge
	customers      prometheus.Gauge

	mu      sync.Mutex
	running bool
	entry   cron.EntryID
	stopped chan struct{}
}

// NewReporter creates a reporter for store. An empty schedule uses
// DefaultSchedule. A nil reg registers with prometheus.DefaultRegisterer.
func NewReporter(store storage.Backend, schedule string, reg prometheus.Registerer) *Reporter {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Reporter{
		store:    store,
		schedule: schedule,
		cron:     cron.New(),
		logger:   slog.Default().With("component", "limits.stats"),
		now:      time.Now,

		attempts: factory.NewGauge(prometheus.GaugeOpts{
			Name: "loadgate_ledger_daily_attempts",
			Help: "Load attempts recorded in the current UTC day",
		}),
		accepted: factory.NewGauge(prometheus.GaugeOpts{
			Name: "loadgate_ledger_daily_accepted",
			Help: "Accepted loads recorded in the current UTC day",
		}),
		acceptedAmount: factory.NewGauge(prometheus.GaugeOpts{
			Name: "loadgate_ledger_daily_accepted_amount",
			Help: "Sum of accepted load amounts in the current UTC day",
		}),
		customers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "loadgate_ledger_daily_customers",
			Help: "Distinct customers with an attempt in the current UTC day",
		}),
	}
}

// RunOnce refreshes the gauges from the ledger and returns the totals.
func (r *Reporter) RunOnce(ctx context.Context) (storage.Totals, error) {
	now := r.now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1).Add(-time.Nanosecond)

	totals, err := r.store.Totals(ctx, start, end)
	if err != nil {
		return storage.Totals{}, fmt.Errorf("failed to aggregate ledger: %w", err)
	}

	r.attempts.Set(float64(totals.Attempts))
	r.accepted.Set(float64(totals.Accepted))
	r.acceptedAmount.Set(totals.AcceptedAmount.InexactFloat64())
	r.customers.Set(float64(totals.Customers))

	return totals, nil
}

// Start schedules RunOnce and stops the schedule when ctx is done.
func (r *Reporter) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return nil
	}

	if _, err := cron.ParseStandard(r.schedule); err != nil {
		return fmt.Errorf("invalid stats schedule %q: %w", r.schedule, err)
	}

	entry, err := r.cron.AddFunc(r.schedule, func() {
		r.run(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule stats: %w", err)
	}

	stopped := make(chan struct{})
	r.entry = entry
	r.stopped = stopped
	r.cron.Start()
	r.running = true
	r.logger.Info("ledger stats reporter started", "schedule", r.schedule)

	go func() {
		select {
		case <-ctx.Done():
			r.Stop()
		case <-stopped:
		}
	}()

	// Publish immediately rather than waiting for the first tick.
	go r.run(ctx)

	return nil
}

func (r *Reporter) run(ctx context.Context) {
	totals, err := r.RunOnce(ctx)
	if err != nil {
		r.logger.Error("ledger stats refresh failed", "error", err)
		return
	}
	r.logger.Debug("ledger stats refreshed",
		"attempts", totals.Attempts,
		"accepted", totals.Accepted,
		"customers", totals.Customers,
	)
}

// Stop stops the schedule and waits for a running refresh to finish.
func (r *Reporter) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		<-r.cron.Stop().Done()
		// A later Start schedules a fresh entry.
		r.cron.Remove(r.entry)
		close(r.stopped)
		r.running = false
		r.logger.Info("ledger stats reporter stopped")
	}
}

// IsRunning reports whether the schedule is active.
func (r *Reporter) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// NextRun returns the next scheduled refresh, or nil when not scheduled.
func (r *Reporter) NextRun() *time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
