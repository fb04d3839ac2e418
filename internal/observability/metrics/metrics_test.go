package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("format", "pqds"),
		attribute.String("path", "/tmp/a.csv"),
		attribute.String("kind", "parse"),
	)
	require.Len(t, attrs, 2)
	assert.Equal(t, attribute.Key("format"), attrs[0].Key)
	assert.Equal(t, attribute.Key("kind"), attrs[1].Key)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.RecordImport(ctx, "pqds", "")
		m.RecordExport(ctx, "no_channels")
		m.RecordMerge(ctx, "asset", "created")
		m.RecordSeries(ctx, "va", 10, 100)
	})
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "pqio"}, noop.NewMeterProvider())
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		m.RecordImport(context.Background(), "pqdif", "decode")
	})
	assert.Equal(t, "ok", resultKind(""))
}
