package dispatch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	influxhttp "github.com/influxdata/influxdb-client-go/v2/api/http"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/syncflux-collector/config"
	"github.com/syncflux-collector/internal/point"
)

// NewInfluxWriter is the default WriterFactory: the official v2 client
// driven in 1.x compatibility mode. Credentials travel as a
// "username:password" token, the database name doubles as the bucket and
// the organization stays empty.
func NewInfluxWriter(cfg config.InfluxConfig) Writer {
	scheme := "http"
	if cfg.SSL {
		scheme = "https"
	}
	opts := influxdb2.DefaultOptions()
	if cfg.SSL && !cfg.VerifySSL {
		opts = opts.SetTLSConfig(&tls.Config{InsecureSkipVerify: true})
	}
	var token string
	if cfg.Username != "" || cfg.Password != "" {
		token = fmt.Sprintf("%s:%s", cfg.Username, cfg.Password)
	}

	client := influxdb2.NewClientWithOptions(
		fmt.Sprintf("%s://%s:%d", scheme, cfg.Host, cfg.Port), token, opts)
	return &influxWriter{
		client: client,
		write:  client.WriteAPIBlocking("", cfg.Database),
	}
}

type influxWriter struct {
	client influxdb2.Client
	write  api.WriteAPIBlocking
}

func (w *influxWriter) Write(ctx context.Context, points []point.Point) error {
	batch := make([]*write.Point, 0, len(points))
	for _, p := range points {
		fields := make(map[string]interface{}, len(p.Fields))
		for k, v := range p.Fields {
			fields[k] = v
		}
		batch = append(batch, write.NewPoint(p.Measurement, p.Tags, fields, p.Time))
	}
	return w.write.WritePoint(ctx, batch...)
}

func (w *influxWriter) Close() { w.client.Close() }

// classifyWriteError decides whether a sink failure was the data's fault.
// A 4xx response means the sink parsed the request and refused it, except
// 408 and 429 which are load conditions, not data problems.
func classifyWriteError(sink string, err error) *WriteError {
	kind := KindTransient
	var serverErr *influxhttp.Error
	if errors.As(err, &serverErr) {
		code := serverErr.StatusCode
		if code >= 400 && code < 500 && code != http.StatusRequestTimeout && code != http.StatusTooManyRequests {
			kind = KindRejected
		}
	}
	return &WriteError{Sink: sink, Kind: kind, Err: err}
}
