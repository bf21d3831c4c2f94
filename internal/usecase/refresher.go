package usecase

import (
	"context"
	"sync"
	"time"

	"EnergyPulse/pkg/logger"
)

// Refresher periodically re-fetches every configured instrument and runs the
// alert rules against the fresh data. One refresh cycle runs per tick; a slow
// cycle never overlaps the next one.
type Refresher struct {
	pipeline    *MarketPipeline
	instruments []string
	interval    time.Duration
	logger      *logger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRefresher creates a background refresher.
func NewRefresher(pipeline *MarketPipeline, instruments []string, interval time.Duration, log *logger.Logger) *Refresher {
	return &Refresher{
		pipeline:    pipeline,
		instruments: instruments,
		interval:    interval,
		logger:      log,
	}
}

// Start launches the refresh loop. The first cycle runs immediately so the
// cache is warm before the first request lands.
func (r *Refresher) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	r.wg.Add(1)
	go r.loop(ctx)
}

// Stop halts the loop and waits for an in-flight cycle to finish.
func (r *Refresher) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

func (r *Refresher) loop(ctx context.Context) {
	defer r.wg.Done()

	r.runCycle(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.runCycle(ctx)
		}
	}
}

func (r *Refresher) runCycle(ctx context.Context) {
	started := time.Now()
	results := r.pipeline.RefreshAll(ctx, r.instruments)

	fired := 0
	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			r.logger.Warn("instrument refresh failed",
				logger.String("instrument", res.Instrument),
				logger.Error(res.Err))
			continue
		}
		fired += res.Alerts
	}
	r.logger.Debug("refresh cycle done",
		logger.Int("instruments", len(results)),
		logger.Int("failed", failed),
		logger.Int("alerts", fired),
		logger.Duration("elapsed", time.Since(started)))
}
