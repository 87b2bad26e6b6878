// Package health reports whether the database is reachable, on demand for
// /healthz and periodically in the background.
package health

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dmitrijs2005/webapp/internal/logging"
	"github.com/dmitrijs2005/webapp/internal/server/metrics"
)

// Pinger is implemented by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Reporter probes the database.
type Reporter struct {
	db      Pinger
	timeout time.Duration
	metrics metrics.Recorder
}

func NewReporter(db Pinger, timeout time.Duration, m metrics.Recorder) *Reporter {
	return &Reporter{db: db, timeout: timeout, metrics: m}
}

// Check returns nil when the database answers a ping within the timeout.
func (r *Reporter) Check(ctx context.Context) error {
	defer metrics.Since(r.metrics, "DB_Ping", time.Now())

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	return nil
}

// Monitor runs Check on a fixed interval and logs state transitions.
type Monitor struct {
	reporter *Reporter
	logger   logging.Logger
	interval time.Duration
	cron     *cron.Cron
	healthy  atomic.Bool
	checked  atomic.Bool
}

func NewMonitor(r *Reporter, logger logging.Logger, interval time.Duration) *Monitor {
	return &Monitor{
		reporter: r,
		logger:   logger,
		interval: interval,
		cron:     cron.New(),
	}
}

// Start checks once and then schedules the periodic check.
func (m *Monitor) Start(ctx context.Context) error {
	m.check(ctx)

	spec := fmt.Sprintf("@every %s", m.interval)
	if _, err := m.cron.AddFunc(spec, func() { m.check(ctx) }); err != nil {
		return fmt.Errorf("schedule health check: %w", err)
	}
	m.cron.Start()
	return nil
}

// Stop unschedules the check and waits for a running one to finish.
func (m *Monitor) Stop() {
	<-m.cron.Stop().Done()
}

// Healthy reports the result of the latest check.
func (m *Monitor) Healthy() bool {
	return m.healthy.Load()
}

func (m *Monitor) check(ctx context.Context) {
	err := m.reporter.Check(ctx)
	healthy := err == nil
	prev := m.healthy.Swap(healthy)
	first := !m.checked.Swap(true)

	switch {
	case !healthy && (first || prev):
		m.logger.Error(ctx, "database health check failed", "error", err)
	case healthy && first:
		m.logger.Info(ctx, "database reachable")
	case healthy && !prev:
		m.logger.Info(ctx, "database reachable again")
	}
}
