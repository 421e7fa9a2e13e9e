package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/syncflux-collector/config"
	"github.com/syncflux-collector/internal/collector"
	"github.com/syncflux-collector/internal/dispatch"
	"github.com/syncflux-collector/internal/metrics"
	"github.com/syncflux-collector/internal/point"
	"github.com/syncflux-collector/internal/syncthing"
	"github.com/syncflux-collector/pkg/logger"
)

// Scheduler drives repeated passes over the configuration set files. Each
// pass re-reads every file from disk, collects its sources in sorted-name
// order and dispatches one batch per file.
type Scheduler struct {
	files      []string
	count      int
	wait       time.Duration
	dispatcher *dispatch.Dispatcher
	metrics    *metrics.AgentMetrics
}

// New creates a scheduler. A negative count runs forever; the CLI rejects
// zero before it gets here.
func New(files []string, count int, wait time.Duration, d *dispatch.Dispatcher, m *metrics.AgentMetrics) *Scheduler {
	return &Scheduler{
		files:      files,
		count:      count,
		wait:       wait,
		dispatcher: d,
		metrics:    m,
	}
}

// Run executes passes until the count is exhausted or ctx is cancelled.
// The inter-pass sleep is the configured wait minus the pass's own elapsed
// time, never negative, and the final pass does not sleep at all. Only
// cancellation or, under halt-on-send-error, a sink failure ends the run
// early.
func (s *Scheduler) Run(ctx context.Context) error {
	for pass := 1; ; pass++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		start := time.Now()
		logger.Info("pass started", zap.Int("pass", pass), zap.Int("files", len(s.files)))

		for _, file := range s.files {
			if err := s.runFile(ctx, file); err != nil {
				return err
			}
		}

		elapsed := time.Since(start)
		s.metrics.PassesTotal.Inc()
		s.metrics.PassDuration.Observe(elapsed.Seconds())

		if s.count > 0 && pass >= s.count {
			logger.Info("pass finished", zap.Int("pass", pass), zap.Duration("elapsed", elapsed))
			return nil
		}

		remaining := s.wait - elapsed
		if remaining < 0 {
			remaining = 0
		}
		logger.Info("pass finished",
			zap.Int("pass", pass),
			zap.Duration("elapsed", elapsed),
			zap.Duration("next_in", remaining))

		if remaining > 0 {
			select {
			case <-time.After(remaining):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// runFile loads one configuration set fresh from disk and runs it: all
// sources collected sequentially, their points concatenated, one dispatch
// over the combined batch. A file that fails to load is skipped for this
// pass only; a failing source only loses its own points.
func (s *Scheduler) runFile(ctx context.Context, path string) error {
	cfg, err := config.LoadFile(path)
	if err != nil {
		logger.Error("skipping configuration set", zap.String("file", path), zap.Error(err))
		return nil
	}

	var batch []point.Point
	for _, name := range cfg.SourceNames() {
		source := cfg.Syncthings[name]
		client, err := syncthing.NewClient(source)
		if err != nil {
			s.metrics.CollectErrors.WithLabelValues(name).Inc()
			logger.Error("source skipped", zap.String("source", name), zap.Error(err))
			continue
		}
		pts, err := collector.New(source, client, cfg.Measurements, s.metrics).Collect(ctx)
		if err != nil {
			logger.Error("collection failed", zap.String("source", name), zap.Error(err))
			continue
		}
		logger.Info("collected points", zap.String("source", name), zap.Int("points", len(pts)))
		batch = append(batch, pts...)
	}

	return s.dispatcher.Send(ctx, cfg, batch)
}
