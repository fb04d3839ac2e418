package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/pqio/internal/pqerr"
	"gorm.io/gorm"
)

const (
	PipelineImport = "import"
	PipelineExport = "export"
)

const (
	ReasonCanceled             = "canceled"
	ReasonDecode               = "decode"
	ReasonParse                = "parse"
	ReasonNoChannels           = "no_channels"
	ReasonNoDevice             = "no_device"
	ReasonValidation           = "validation"
	ReasonDBLockTimeout        = "db_lock_timeout"
	ReasonSerializationFailure = "serialization_failure"
	ReasonUniqueViolation      = "unique_violation"
	ReasonPersistence          = "persistence"
	ReasonUnknown              = "unknown"
)

// PipelineMetrics tracks per-file import and export work in Prometheus.
// CLI runs push these through the ingest metrics pushers; the server
// exposes them on /metrics.
type PipelineMetrics struct {
	fileDuration *prometheus.HistogramVec
	fileErrors   *prometheus.CounterVec
	filesTotal   *prometheus.CounterVec
	batchSize    *prometheus.HistogramVec
	pruned       *prometheus.CounterVec
	errorCounts  map[string]map[string]prometheus.Counter
}

var (
	pipelineMetricsOnce sync.Once
	pipelineMetrics     *PipelineMetrics
)

// Pipeline returns the singleton pipeline metrics registry.
func Pipeline() *PipelineMetrics {
	return PipelineWithConfig(Config{})
}

// PipelineWithConfig returns the singleton pipeline metrics registry using config labels.
func PipelineWithConfig(cfg Config) *PipelineMetrics {
	pipelineMetricsOnce.Do(func() {
		pipelineMetrics = newPipelineMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return pipelineMetrics
}

// ResetPipelineMetricsForTest resets the pipeline metrics singleton for tests.
func ResetPipelineMetricsForTest() {
	pipelineMetricsOnce = sync.Once{}
	pipelineMetrics = nil
}

func newPipelineMetrics(registerer prometheus.Registerer, cfg Config) *PipelineMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "pqio"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	fileDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "pqio_file_duration_seconds",
		Help:        "Time spent on one file by pipeline and format.",
		Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		ConstLabels: constLabels,
	}, []string{"pipeline", "format"})
	fileErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "pqio_file_errors_total",
		Help:        "Failed files by pipeline and low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"pipeline", "reason"})
	filesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "pqio_files_total",
		Help:        "Files processed by pipeline, format and result.",
		ConstLabels: constLabels,
	}, []string{"pipeline", "format", "result"})
	batchSize := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "pqio_batch_files",
		Help:        "Number of files per batch.",
		Buckets:     []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
		ConstLabels: constLabels,
	}, []string{"pipeline"})
	pruned := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "pqio_pruned_records_total",
		Help:        "Channels and events removed after a PQDIF import left them without series.",
		ConstLabels: constLabels,
	}, []string{"entity"})

	registerer.MustRegister(fileDuration, fileErrors, filesTotal, batchSize, pruned)

	errorCounts := map[string]map[string]prometheus.Counter{}
	for _, pipeline := range []string{PipelineImport, PipelineExport} {
		counters := map[string]prometheus.Counter{}
		for _, reason := range []string{
			ReasonCanceled,
			ReasonDecode,
			ReasonParse,
			ReasonNoChannels,
			ReasonNoDevice,
			ReasonValidation,
			ReasonPersistence,
			ReasonUnknown,
		} {
			counters[reason] = fileErrors.WithLabelValues(pipeline, reason)
		}
		errorCounts[pipeline] = counters
	}

	return &PipelineMetrics{
		fileDuration: fileDuration,
		fileErrors:   fileErrors,
		filesTotal:   filesTotal,
		batchSize:    batchSize,
		pruned:       pruned,
		errorCounts:  errorCounts,
	}
}

// ObserveFile records the duration and result of one file.
func (m *PipelineMetrics) ObserveFile(pipeline, format string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.fileDuration.WithLabelValues(pipeline, format).Observe(duration.Seconds())
	result := "ok"
	if err != nil {
		result = "failed"
		m.incError(pipeline, ClassifyReason(err))
	}
	m.filesTotal.WithLabelValues(pipeline, format, result).Inc()
}

// ObserveBatch records the number of files in a batch.
func (m *PipelineMetrics) ObserveBatch(pipeline string, files int) {
	if m == nil || files <= 0 {
		return
	}
	m.batchSize.WithLabelValues(pipeline).Observe(float64(files))
}

// AddPruned counts records removed by pruning.
func (m *PipelineMetrics) AddPruned(entity string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.pruned.WithLabelValues(entity).Add(float64(count))
}

func (m *PipelineMetrics) incError(pipeline, reason string) {
	if counters, ok := m.errorCounts[pipeline]; ok {
		if counter, ok := counters[reason]; ok {
			counter.Inc()
			return
		}
	}
	m.fileErrors.WithLabelValues(pipeline, reason).Inc()
}

// ClassifyReason maps a per-file error to a low-cardinality reason. Database
// errors are broken down further using the Postgres error code.
func ClassifyReason(err error) string {
	if err == nil {
		return ReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ReasonCanceled
	}
	switch pqerr.KindOf(err) {
	case pqerr.KindDecode:
		return ReasonDecode
	case pqerr.KindParse:
		return ReasonParse
	case pqerr.KindNoChannels:
		return ReasonNoChannels
	case pqerr.KindNoDevice:
		return ReasonNoDevice
	case pqerr.KindValidation:
		return ReasonValidation
	}
	if isDBLockTimeout(err) {
		return ReasonDBLockTimeout
	}
	if isSerializationFailure(err) {
		return ReasonSerializationFailure
	}
	if isUniqueViolation(err) {
		return ReasonUniqueViolation
	}
	if errors.Is(err, pqerr.ErrPersistence) || isDBError(err) {
		return ReasonPersistence
	}
	return ReasonUnknown
}

func isDBLockTimeout(err error) bool {
	return hasPGCode(err, "55P03")
}

func isSerializationFailure(err error) bool {
	return hasPGCode(err, "40001")
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return hasPGCode(err, "23505")
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}

func isDBError(err error) bool {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false
	}
	if errors.Is(err, gorm.ErrInvalidDB) ||
		errors.Is(err, gorm.ErrInvalidTransaction) ||
		errors.Is(err, gorm.ErrInvalidField) ||
		errors.Is(err, gorm.ErrInvalidData) ||
		errors.Is(err, gorm.ErrMissingWhereClause) ||
		errors.Is(err, gorm.ErrInvalidValue) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr)
}
