package pushmetrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/prometheus/prompb"
	"github.com/smallbiznis/pqio/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/protoadapt"
	"gorm.io/gorm"
)

func TestNewPusherSelectsExporter(t *testing.T) {
	cfg := config.Config{Metrics: config.MetricsConfig{Enabled: false}}
	assert.Nil(t, NewPusher(cfg, zap.NewNop()))

	cfg.Metrics = config.MetricsConfig{Enabled: true, Exporter: config.ExporterPushgateway}
	assert.Nil(t, NewPusher(cfg, zap.NewNop()), "endpoint required")

	cfg.Metrics.Endpoint = "http://gateway:9091"
	cfg.Metrics.Job = "pqio"
	assert.IsType(t, &PushgatewayPusher{}, NewPusher(cfg, zap.NewNop()))

	cfg.Metrics.Exporter = config.ExporterRemoteWrite
	assert.IsType(t, &RemoteWritePusher{}, NewPusher(cfg, zap.NewNop()))

	cfg.Metrics.Endpoint = "not a url"
	assert.Nil(t, NewPusher(cfg, zap.NewNop()))
}

func TestRemoteWritePusherSendsSnappyProtobuf(t *testing.T) {
	var got prompb.WriteRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		raw, err := snappy.Decode(nil, body)
		require.NoError(t, err)
		require.NoError(t, proto.Unmarshal(raw, protoadapt.MessageV2Of(&got)))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	c := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "pqio_test_total", Help: "t"}, []string{"format"})
	reg.MustRegister(c)
	c.WithLabelValues("pqds").Add(3)

	p := NewRemoteWritePusher(srv.URL, "secret")
	p.now = func() time.Time { return time.UnixMilli(1000) }
	require.NoError(t, p.Push(context.Background(), reg))

	assert.Equal(t, "Bearer secret", auth)
	require.Len(t, got.Timeseries, 1)
	ts := got.Timeseries[0]
	require.Len(t, ts.Labels, 2)
	assert.Equal(t, "__name__", ts.Labels[0].Name)
	assert.Equal(t, "pqio_test_total", ts.Labels[0].Value)
	assert.Equal(t, "format", ts.Labels[1].Name)
	assert.Equal(t, "pqds", ts.Labels[1].Value)
	require.Len(t, ts.Samples, 1)
	assert.Equal(t, 3.0, ts.Samples[0].Value)
	assert.Equal(t, int64(1000), ts.Samples[0].Timestamp)
}

func TestRemoteWritePusherReportsHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	g := prometheus.NewGauge(prometheus.GaugeOpts{Name: "pqio_g", Help: "g"})
	reg.MustRegister(g)
	g.Set(1)

	err := NewRemoteWritePusher(srv.URL, "").Push(context.Background(), reg)
	assert.ErrorContains(t, err, "502")
}

func TestBuildRemoteWriteSeriesFlattensHistograms(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "pqio_h", Help: "h", Buckets: []float64{1}})
	reg.MustRegister(h)
	h.Observe(0.5)
	h.Observe(2)

	families, err := reg.Gather()
	require.NoError(t, err)
	series := buildRemoteWriteSeries(families, 1)
	require.Len(t, series, 2)
	assert.Equal(t, "pqio_h_count", series[0].Labels[0].Value)
	assert.Equal(t, 2.0, series[0].Samples[0].Value)
	assert.Equal(t, 2.5, series[1].Samples[0].Value)
}

func TestInventoryRefreshCountsTables(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Exec("CREATE TABLE assets (id INTEGER)").Error)
	require.NoError(t, db.Exec("INSERT INTO assets VALUES (1), (2)").Error)

	reg := prometheus.NewRegistry()
	inv := NewInventory(reg)
	inv.Refresh(context.Background(), db)

	families, err := reg.Gather()
	require.NoError(t, err)
	var assets float64
	for _, f := range families {
		if f.GetName() != "pqio_stored_rows" {
			continue
		}
		for _, m := range f.GetMetric() {
			if m.GetLabel()[0].GetValue() == "assets" {
				assets = m.GetGauge().GetValue()
			}
		}
	}
	assert.Equal(t, 2.0, assets)
}
