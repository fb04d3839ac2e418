package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	imports      metric.Int64Counter
	exports      metric.Int64Counter
	merges       metric.Int64Counter
	seriesBytes  metric.Int64Histogram
	seriesPoints metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "pqio"
	}
	meter := provider.Meter(name)

	imports, err := meter.Int64Counter("pqio_imports_total")
	if err != nil {
		return nil, err
	}
	exports, err := meter.Int64Counter("pqio_exports_total")
	if err != nil {
		return nil, err
	}
	merges, err := meter.Int64Counter("pqio_resolver_outcomes_total")
	if err != nil {
		return nil, err
	}
	seriesBytes, err := meter.Int64Histogram("pqio_series_blob_bytes", metric.WithUnit("By"))
	if err != nil {
		return nil, err
	}
	seriesPoints, err := meter.Int64Counter("pqio_series_points_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		imports:      imports,
		exports:      exports,
		merges:       merges,
		seriesBytes:  seriesBytes,
		seriesPoints: seriesPoints,
	}, nil
}

// RecordImport counts one imported file by format and failure kind.
func (m *Metrics) RecordImport(ctx context.Context, format, kind string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("format", strings.TrimSpace(format)),
		attribute.String("kind", resultKind(kind)),
	)
	m.imports.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordExport counts one export by failure kind.
func (m *Metrics) RecordExport(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("kind", resultKind(kind)))
	m.exports.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordMerge counts resolver outcomes per entity.
func (m *Metrics) RecordMerge(ctx context.Context, entity, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("entity", strings.TrimSpace(entity)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.merges.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSeries records one encoded series.
func (m *Metrics) RecordSeries(ctx context.Context, measurement string, points, bytes int) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("measurement", strings.TrimSpace(measurement)))
	m.seriesBytes.Record(ctx, int64(bytes), metric.WithAttributes(attrs...))
	m.seriesPoints.Add(ctx, int64(points), metric.WithAttributes(attrs...))
}

func resultKind(kind string) string {
	kind = strings.TrimSpace(kind)
	if kind == "" {
		return "ok"
	}
	return kind
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"format":      {},
	"kind":        {},
	"entity":      {},
	"outcome":     {},
	"measurement": {},
	"method":      {},
	"route":       {},
	"status_code": {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
