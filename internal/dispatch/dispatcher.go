package dispatch

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/syncflux-collector/config"
	"github.com/syncflux-collector/internal/metrics"
	"github.com/syncflux-collector/internal/point"
	"github.com/syncflux-collector/pkg/logger"
)

// ErrorKind classifies a failed sink write.
type ErrorKind string

const (
	// KindTransient covers failures that may succeed on a later pass:
	// unreachable sink, timeout, server-side errors.
	KindTransient ErrorKind = "transient"
	// KindRejected covers failures where the sink refused the data itself;
	// retrying the same batch would fail again.
	KindRejected ErrorKind = "rejected"
)

// WriteError is a failed write to one sink.
type WriteError struct {
	Sink string
	Kind ErrorKind
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("sink %s: %s write failure: %v", e.Sink, e.Kind, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Writer sends one point batch to one sink.
type Writer interface {
	Write(ctx context.Context, points []point.Point) error
	Close()
}

// WriterFactory builds a Writer from one sink's parameters. Writers live
// for a single dispatch; nothing is pooled across passes.
type WriterFactory func(cfg config.InfluxConfig) Writer

// Dispatcher fans a point batch out to every configured sink.
type Dispatcher struct {
	haltOnError bool
	newWriter   WriterFactory
	metrics     *metrics.AgentMetrics
}

// New creates a dispatcher backed by the InfluxDB writer.
func New(haltOnSendError bool, m *metrics.AgentMetrics) *Dispatcher {
	return NewWithWriterFactory(haltOnSendError, NewInfluxWriter, m)
}

// NewWithWriterFactory creates a dispatcher with a custom writer factory.
func NewWithWriterFactory(haltOnSendError bool, factory WriterFactory, m *metrics.AgentMetrics) *Dispatcher {
	return &Dispatcher{
		haltOnError: haltOnSendError,
		newWriter:   factory,
		metrics:     m,
	}
}

// Send writes the batch to the configuration's sinks in sorted-name order.
// An empty batch is a no-op and constructs no clients. A sink failure is
// logged and the remaining sinks still get the batch, unless
// halt-on-send-error is set, which aborts the remaining sinks and returns
// the failure.
func (d *Dispatcher) Send(ctx context.Context, cfg *config.Config, points []point.Point) error {
	if len(points) == 0 {
		logger.Debug("empty batch, skipping sink writes")
		return nil
	}
	for _, name := range cfg.SinkNames() {
		if err := d.sendOne(ctx, name, cfg.Influxes[name], points); err != nil && d.haltOnError {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) sendOne(ctx context.Context, name string, sink config.InfluxConfig, points []point.Point) error {
	w := d.newWriter(sink)
	defer w.Close()

	if err := w.Write(ctx, points); err != nil {
		werr := classifyWriteError(name, err)
		d.metrics.SinkWriteErrors.WithLabelValues(name, string(werr.Kind)).Inc()
		logger.Error("sink write failed",
			zap.String("sink", name),
			zap.String("kind", string(werr.Kind)),
			zap.Int("points", len(points)),
			zap.Error(werr.Err))
		return werr
	}

	d.metrics.PointsSent.WithLabelValues(name).Add(float64(len(points)))
	logger.Info("sink write ok", zap.String("sink", name), zap.Int("points", len(points)))
	return nil
}
