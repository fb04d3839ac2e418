package importer

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	channeldomain "github.com/smallbiznis/pqio/internal/channel/domain"
	"github.com/smallbiznis/pqio/internal/clock"
	customfielddomain "github.com/smallbiznis/pqio/internal/customfield/domain"
	dataseriesdomain "github.com/smallbiznis/pqio/internal/dataseries/domain"
	eventdomain "github.com/smallbiznis/pqio/internal/event/domain"
	importrundomain "github.com/smallbiznis/pqio/internal/importrun/domain"
	obslogger "github.com/smallbiznis/pqio/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/pqio/internal/observability/metrics"
	"github.com/smallbiznis/pqio/internal/pqdif"
	"github.com/smallbiznis/pqio/internal/pqerr"
	"github.com/smallbiznis/pqio/internal/resolver"
	sensitivitydomain "github.com/smallbiznis/pqio/internal/sensitivity/domain"
	"github.com/smallbiznis/pqio/internal/series"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	FormatPQDS  = "pqds"
	FormatPQDIF = "pqdif"
)

// Stage is the step a file reached.
type Stage string

const (
	StageParse   Stage = "parse"
	StageResolve Stage = "resolve"
	StagePersist Stage = "persist"
	StageCleanup Stage = "cleanup"
	StageDone    Stage = "done"
	StageFailed  Stage = "failed"
)

// ProgressFunc receives the running progress sum of a batch. Every file
// contributes 50 after parsing and 50 after persisting.
type ProgressFunc func(percent int)

// Counts tallies records created by one file. Merged and matched records
// are not counted.
type Counts struct {
	Assets   int `json:"assets"`
	Meters   int `json:"meters"`
	Channels int `json:"channels"`
	Events   int `json:"events"`
	Series   int `json:"series"`
	Pruned   int `json:"pruned"`
}

// FileResult is the outcome of one file. Err is nil when OK. Stage is
// StageDone on success, otherwise the stage that failed.
type FileResult struct {
	Path    string
	OK      bool
	Kind    pqerr.Kind
	Err     error
	Stage   Stage
	Created Counts
}

// BatchResult is the outcome of a batch. Succeeded counts files without error.
type BatchResult struct {
	BatchID   string
	Format    string
	Succeeded int
	Files     []FileResult
}

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Resolver     *resolver.Resolver
	Events       eventdomain.Repository
	Channels     channeldomain.Repository
	Series       dataseriesdomain.Repository
	CustomFields customfielddomain.Repository
	Sensitivity  sensitivitydomain.Repository
	Runs         importrundomain.Repository
	Decoder      pqdif.Decoder
	Metrics      *obsmetrics.Metrics         `optional:"true"`
	Pipeline     *obsmetrics.PipelineMetrics `optional:"true"`
}

// Importer loads PQDS and PQDIF files into the store.
type Importer struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	resolver     *resolver.Resolver
	events       eventdomain.Repository
	channels     channeldomain.Repository
	series       dataseriesdomain.Repository
	customFields customfielddomain.Repository
	sensitivity  sensitivitydomain.Repository
	runs         importrundomain.Repository
	decoder      pqdif.Decoder
	metrics      *obsmetrics.Metrics
	pipeline     *obsmetrics.PipelineMetrics
}

func New(p Params) *Importer {
	return &Importer{
		db:           p.DB,
		log:          p.Log.Named("importer"),
		genID:        p.GenID,
		clock:        clock.OrSystem(p.Clock),
		resolver:     p.Resolver,
		events:       p.Events,
		channels:     p.Channels,
		series:       p.Series,
		customFields: p.CustomFields,
		sensitivity:  p.Sensitivity,
		runs:         p.Runs,
		decoder:      p.Decoder,
		metrics:      p.Metrics,
		pipeline:     p.Pipeline,
	}
}

// tracker keeps the running progress sum across the files of a batch.
type tracker struct {
	mu  sync.Mutex
	sum int
	fn  ProgressFunc
}

func newTracker(fn ProgressFunc) *tracker { return &tracker{fn: fn} }

func (t *tracker) add(n int) {
	t.mu.Lock()
	t.sum += n
	sum := t.sum
	t.mu.Unlock()
	if t.fn != nil {
		t.fn(sum)
	}
}

// fileRun tracks the stage of one file and builds its result.
type fileRun struct {
	result  FileResult
	started time.Time
}

func newFileRun(path string, now time.Time) *fileRun {
	return &fileRun{result: FileResult{Path: path, Stage: StageParse}, started: now}
}

func (r *fileRun) enter(s Stage) { r.result.Stage = s }

func (r *fileRun) fail(err error) FileResult {
	r.result.OK = false
	r.result.Err = err
	r.result.Kind = pqerr.KindOf(err)
	return r.result
}

func (r *fileRun) succeed() FileResult {
	r.result.OK = true
	r.result.Stage = StageDone
	return r.result
}

// encode packs s and records its size.
func (i *Importer) encode(ctx context.Context, measurement string, s series.Series, id int32) ([]byte, error) {
	blob, err := series.Encode(s, series.WithSeriesID(id))
	if err != nil {
		return nil, err
	}
	i.metrics.RecordSeries(ctx, measurement, len(s), len(blob))
	return blob, nil
}

// finish logs and meters a file result.
func (i *Importer) finish(ctx context.Context, format string, run *fileRun, res FileResult) FileResult {
	i.pipeline.ObserveFile(obsmetrics.PipelineImport, format, time.Since(run.started), res.Err)
	i.metrics.RecordImport(ctx, format, string(res.Kind))
	i.pipeline.AddPruned("records", res.Created.Pruned)

	log := obslogger.WithFile(ctx, i.log, format).With(zap.String("stage", string(res.Stage)))
	if res.OK {
		log.Info("file imported",
			zap.Int("series", res.Created.Series),
			zap.Int("events", res.Created.Events),
			zap.Int("pruned", res.Created.Pruned),
		)
		return res
	}
	log.Warn("file import failed", zap.String("kind", string(res.Kind)), zap.Error(res.Err))
	return res
}
