package importer

import (
	"context"
	"encoding/json"
	"time"

	importrundomain "github.com/smallbiznis/pqio/internal/importrun/domain"
	obscontext "github.com/smallbiznis/pqio/internal/observability/context"
	obsmetrics "github.com/smallbiznis/pqio/internal/observability/metrics"
	"github.com/smallbiznis/pqio/internal/pqerr"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// ImportPQDSFiles imports paths in order. A failing file never stops the
// batch; cancellation is only observed between files.
func (i *Importer) ImportPQDSFiles(ctx context.Context, paths []string, progress ProgressFunc) BatchResult {
	return i.importFiles(ctx, FormatPQDS, paths, progress, i.importPQDS)
}

func (i *Importer) ImportPQDIFFiles(ctx context.Context, paths []string, progress ProgressFunc) BatchResult {
	return i.importFiles(ctx, FormatPQDIF, paths, progress, i.importPQDIF)
}

type importFunc func(ctx context.Context, path string, track *tracker) FileResult

func (i *Importer) importFiles(ctx context.Context, format string, paths []string, progress ProgressFunc, fn importFunc) BatchResult {
	batchID := obscontext.BatchIDFromContext(ctx)
	if batchID == "" {
		batchID = obscontext.NewID()
		ctx = obscontext.WithBatchID(ctx, batchID)
	}
	log := i.log.With(zap.String("batch_id", batchID), zap.String("format", format))
	log.Info("import batch started", zap.Int("files", len(paths)))

	started := i.clock.Now()
	i.pipeline.ObserveBatch(obsmetrics.PipelineImport, len(paths))

	track := newTracker(progress)
	out := BatchResult{BatchID: batchID, Format: format, Files: make([]FileResult, 0, len(paths))}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			out.Files = append(out.Files, FileResult{
				Path:  path,
				Kind:  pqerr.KindOf(err),
				Err:   err,
				Stage: StageFailed,
			})
			continue
		}
		res := fn(ctx, path, track)
		if res.OK {
			out.Succeeded++
		}
		out.Files = append(out.Files, res)
	}

	i.recordRun(context.WithoutCancel(ctx), out, started)
	log.Info("import batch finished",
		zap.Int("succeeded", out.Succeeded),
		zap.Int("failed", len(paths)-out.Succeeded),
	)
	return out
}

// runEntry is the JSON shape of one file in import_runs.results.
type runEntry struct {
	Path    string `json:"path"`
	OK      bool   `json:"ok"`
	Kind    string `json:"kind,omitempty"`
	Stage   string `json:"stage"`
	Error   string `json:"error,omitempty"`
	Created Counts `json:"created"`
}

// recordRun stores the batch history. Failures are logged only.
func (i *Importer) recordRun(ctx context.Context, b BatchResult, started time.Time) {
	if i.runs == nil {
		return
	}
	entries := make([]runEntry, len(b.Files))
	for n, f := range b.Files {
		entries[n] = runEntry{
			Path:    f.Path,
			OK:      f.OK,
			Kind:    string(f.Kind),
			Stage:   string(f.Stage),
			Created: f.Created,
		}
		if f.Err != nil {
			entries[n].Error = f.Err.Error()
		}
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		i.log.Warn("encode import run", zap.String("batch_id", b.BatchID), zap.Error(err))
		return
	}
	run := &importrundomain.ImportRun{
		ID:         i.genID.Generate(),
		BatchID:    b.BatchID,
		Format:     b.Format,
		FileCount:  len(b.Files),
		Succeeded:  b.Succeeded,
		Results:    datatypes.JSON(raw),
		StartedAt:  started,
		FinishedAt: i.clock.Now(),
	}
	if err := i.runs.Insert(ctx, i.db.WithContext(ctx), run); err != nil {
		i.log.Warn("store import run", zap.String("batch_id", b.BatchID), zap.Error(err))
	}
}

// Request describes an asynchronous batch.
type Request struct {
	Format string
	Paths  []string
}

// Job is a running batch started by Start.
type Job struct {
	BatchID  string
	progress chan int
	done     chan struct{}
	result   BatchResult
}

// Progress yields the running percentage. It is closed when the batch ends.
// Updates are dropped when nobody reads them.
func (j *Job) Progress() <-chan int { return j.progress }

// Wait blocks until the batch ends.
func (j *Job) Wait() BatchResult {
	<-j.done
	return j.result
}

// Done is closed when the batch ends.
func (j *Job) Done() <-chan struct{} { return j.done }

// Start runs a batch in the background. Unknown formats fail every file
// with a validation error.
func (i *Importer) Start(ctx context.Context, req Request) *Job {
	batchID := obscontext.NewID()
	ctx = obscontext.WithBatchID(ctx, batchID)
	job := &Job{
		BatchID:  batchID,
		progress: make(chan int, 2*len(req.Paths)+1),
		done:     make(chan struct{}),
	}
	report := func(p int) {
		select {
		case job.progress <- p:
		default:
		}
	}

	go func() {
		defer close(job.done)
		defer close(job.progress)
		switch req.Format {
		case FormatPQDS:
			job.result = i.ImportPQDSFiles(ctx, req.Paths, report)
		case FormatPQDIF:
			job.result = i.ImportPQDIFFiles(ctx, req.Paths, report)
		default:
			job.result = unsupported(batchID, req)
		}
	}()
	return job
}

func unsupported(batchID string, req Request) BatchResult {
	err := pqerr.Validationf("unsupported import format %q", req.Format)
	out := BatchResult{BatchID: batchID, Format: req.Format}
	for _, p := range req.Paths {
		out.Files = append(out.Files, FileResult{Path: p, Kind: pqerr.KindOf(err), Err: err, Stage: StageFailed})
	}
	return out
}
