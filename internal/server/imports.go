package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/pqio/internal/importer"
	obscontext "github.com/smallbiznis/pqio/internal/observability/context"
	"github.com/smallbiznis/pqio/internal/pqerr"
)

const (
	uploadField   = "files"
	maxUploadSize = 512 << 20
	recentRuns    = 50
)

type fileResultView struct {
	File    string          `json:"file"`
	OK      bool            `json:"ok"`
	Kind    pqerr.Kind      `json:"kind,omitempty"`
	Stage   importer.Stage  `json:"stage"`
	Error   string          `json:"error,omitempty"`
	Created importer.Counts `json:"created"`
}

type batchResultView struct {
	BatchID   string           `json:"batch_id"`
	Format    string           `json:"format"`
	Succeeded int              `json:"succeeded"`
	Files     []fileResultView `json:"files"`
}

func newBatchResultView(b importer.BatchResult) batchResultView {
	out := batchResultView{
		BatchID:   b.BatchID,
		Format:    b.Format,
		Succeeded: b.Succeeded,
		Files:     make([]fileResultView, 0, len(b.Files)),
	}
	for _, f := range b.Files {
		v := fileResultView{
			File:    filepath.Base(f.Path),
			OK:      f.OK,
			Kind:    f.Kind,
			Stage:   f.Stage,
			Created: f.Created,
		}
		if f.Err != nil {
			v.Error = f.Err.Error()
		}
		out.Files = append(out.Files, v)
	}
	return out
}

func validFormat(format string) bool {
	return format == importer.FormatPQDS || format == importer.FormatPQDIF
}

// saveUploads stores the multipart files in a fresh directory and returns
// their paths in upload order.
func (s *Server) saveUploads(c *gin.Context) (string, []string, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)
	form, err := c.MultipartForm()
	if err != nil {
		return "", nil, newValidationError(uploadField, "invalid_upload", "invalid multipart upload")
	}
	files := form.File[uploadField]
	if len(files) == 0 {
		return "", nil, newValidationError(uploadField, "required", "at least one file is required")
	}

	dir, err := os.MkdirTemp("", "pqio-upload-*")
	if err != nil {
		return "", nil, err
	}
	paths := make([]string, 0, len(files))
	for i, fh := range files {
		// the index keeps identically named uploads apart
		dst := filepath.Join(dir, strconv.Itoa(i)+"-"+filepath.Base(fh.Filename))
		if err := c.SaveUploadedFile(fh, dst); err != nil {
			_ = os.RemoveAll(dir)
			return "", nil, fmt.Errorf("save upload %s: %w", fh.Filename, err)
		}
		paths = append(paths, dst)
	}
	return dir, paths, nil
}

// ImportFiles imports the uploaded files and answers once the batch ends.
func (s *Server) ImportFiles(c *gin.Context) {
	format := c.Param("format")
	if !validFormat(format) {
		AbortWithError(c, newValidationError("format", "invalid_format", "format must be pqds or pqdif"))
		return
	}
	dir, paths, err := s.saveUploads(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	defer os.RemoveAll(dir)

	ctx := obscontext.WithBatchID(c.Request.Context(), obscontext.NewID())
	var res importer.BatchResult
	if format == importer.FormatPQDS {
		res = s.importer.ImportPQDSFiles(ctx, paths, nil)
	} else {
		res = s.importer.ImportPQDIFFiles(ctx, paths, nil)
	}
	c.Set("batch_id", res.BatchID)

	status := http.StatusOK
	if res.Succeeded == 0 && len(res.Files) > 0 {
		status = statusForKind(res.Files[0].Kind)
	}
	c.JSON(status, gin.H{"data": newBatchResultView(res)})
}

// StartImportJob queues the uploaded files and answers right away.
func (s *Server) StartImportJob(c *gin.Context) {
	format := c.Param("format")
	if !validFormat(format) {
		AbortWithError(c, newValidationError("format", "invalid_format", "format must be pqds or pqdif"))
		return
	}
	dir, paths, err := s.saveUploads(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(c.Request.Context()))
	job := s.importer.Start(ctx, importer.Request{Format: format, Paths: paths})
	s.jobs.track(job, format, len(paths), dir, cancel)
	c.Set("batch_id", job.BatchID)

	c.JSON(http.StatusAccepted, gin.H{"data": gin.H{
		"batch_id": job.BatchID,
		"format":   format,
		"files":    len(paths),
	}})
}

// GetImportJob reports a background batch. Percent is the running sum of
// per-file progress scaled to the whole batch.
func (s *Server) GetImportJob(c *gin.Context) {
	t, ok := s.jobs.get(c.Param("batch_id"))
	if !ok {
		AbortWithError(c, ErrNotFound)
		return
	}

	body := gin.H{
		"batch_id": t.job.BatchID,
		"format":   t.format,
		"files":    t.files,
		"done":     false,
		"percent":  percentOf(t.progress.Load(), t.files),
	}
	if t.finished() {
		res := t.job.Wait()
		body["done"] = true
		body["percent"] = 100
		body["result"] = newBatchResultView(res)
	}
	c.JSON(http.StatusOK, gin.H{"data": body})
}

func percentOf(sum int64, files int) int {
	if files == 0 {
		return 100
	}
	return int(sum / int64(files))
}

func (s *Server) ListImportRuns(c *gin.Context) {
	runs, err := s.runs.Recent(c.Request.Context(), s.db.WithContext(c.Request.Context()), recentRuns)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": runs})
}

func (s *Server) GetImportRun(c *gin.Context) {
	run, err := s.runs.FindByBatchID(c.Request.Context(), s.db.WithContext(c.Request.Context()), c.Param("batch_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if run == nil {
		AbortWithError(c, ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": run})
}
