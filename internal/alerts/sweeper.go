package alerts

import (
	"context"
	"fmt"
	"time"

	"stockroom/internal/domain"
	"stockroom/internal/log"
	"stockroom/internal/metrics"
)

// Scanner lists items at or below their threshold together with an existing owner.
type Scanner interface {
	LowStockOwned() ([]domain.InventoryItem, error)
}

// Result summarises one sweep.
type Result struct {
	Scanned    int
	Created    int
	Suppressed int
	Failed     int
	Duration   time.Duration
}

// Sweeper re-evaluates every low-stock item on a fixed interval. It never
// changes inventory.
type Sweeper struct {
	scan     Scanner
	alerter  *Alerter
	interval time.Duration
	m        *metrics.Metrics
}

func NewSweeper(scan Scanner, alerter *Alerter, interval time.Duration, m *metrics.Metrics) *Sweeper {
	return &Sweeper{scan: scan, alerter: alerter, interval: interval, m: m}
}

// Run sweeps once immediately and then on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	log.Info(nil, "sweep.start", map[string]any{"interval": s.interval.String()})
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info(nil, "sweep.stop", nil)
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Sweeper) tick(ctx context.Context) {
	res, err := s.RunNow(ctx)
	if err != nil {
		log.Error(nil, "sweep.failed", err, nil)
		return
	}
	log.Info(nil, "sweep.done", map[string]any{
		"scanned": res.Scanned, "created": res.Created, "suppressed": res.Suppressed,
		"failed": res.Failed, "duration_ms": res.Duration.Milliseconds(),
	})
}

// RunNow performs one sweep. A failing item is logged and skipped; only a
// failing scan fails the sweep.
func (s *Sweeper) RunNow(ctx context.Context) (Result, error) {
	start := time.Now()
	var res Result
	items, err := s.scan.LowStockOwned()
	if err != nil {
		return res, fmt.Errorf("scan low stock: %w", err)
	}
	res.Scanned = len(items)
	for _, it := range items {
		if ctx.Err() != nil {
			break
		}
		created, err := s.alerter.Evaluate(ctx, it)
		switch {
		case err != nil:
			res.Failed++
			log.Error(nil, "sweep.item_failed", err, map[string]any{"inventory_id": it.ID})
		case created:
			res.Created++
		default:
			res.Suppressed++
		}
	}
	res.Duration = time.Since(start)
	s.m.SweepRuns.Inc()
	s.m.SweepDuration.Observe(res.Duration.Seconds())
	return res, ctx.Err()
}
