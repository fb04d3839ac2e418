package server

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/pqio/internal/exporter"
	"github.com/smallbiznis/pqio/internal/pqerr"
)

type exportItem struct {
	AssetID snowflake.ID      `json:"asset_id"`
	EventID snowflake.ID      `json:"event_id"`
	Start   *time.Time        `json:"start,omitempty"`
	Options *exporter.Options `json:"options,omitempty"`
}

type exportRequest struct {
	Exports []exportItem `json:"exports"`
}

type exportResultView struct {
	AssetID snowflake.ID `json:"asset_id"`
	EventID snowflake.ID `json:"event_id"`
	File    string       `json:"file,omitempty"`
	OK      bool         `json:"ok"`
	Kind    pqerr.Kind   `json:"kind,omitempty"`
	Error   string       `json:"error,omitempty"`
	Keys    []string     `json:"keys,omitempty"`
}

func newExportResultView(r exporter.Result) exportResultView {
	v := exportResultView{
		AssetID: r.AssetID,
		EventID: r.EventID,
		OK:      r.OK,
		Kind:    r.Kind,
		Keys:    r.Keys,
	}
	if r.OK {
		v.File = filepath.Base(r.Path)
	}
	if r.Err != nil {
		v.Error = r.Err.Error()
	}
	return v
}

// ExportEvents writes each requested pair into the export profile's
// output directory.
func (s *Server) ExportEvents(c *gin.Context) {
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if len(req.Exports) == 0 {
		AbortWithError(c, newValidationError("exports", "required", "at least one export is required"))
		return
	}

	reqs := make([]exporter.Request, 0, len(req.Exports))
	for _, item := range req.Exports {
		if item.AssetID == 0 || item.EventID == 0 {
			AbortWithError(c, newValidationError("exports", "invalid_exports", "asset_id and event_id are required"))
			return
		}
		reqs = append(reqs, exporter.Request{
			AssetID: item.AssetID,
			EventID: item.EventID,
			Start:   item.Start,
			Options: item.Options,
		})
	}

	res := s.exporter.ExportFiles(c.Request.Context(), reqs, nil)
	c.Set("batch_id", res.BatchID)

	files := make([]exportResultView, 0, len(res.Files))
	for _, f := range res.Files {
		files = append(files, newExportResultView(f))
	}
	status := http.StatusOK
	if res.Succeeded == 0 {
		status = statusForKind(res.Files[0].Kind)
	}
	c.JSON(status, gin.H{"data": gin.H{
		"batch_id":  res.BatchID,
		"succeeded": res.Succeeded,
		"files":     files,
	}})
}

// DownloadPQDS exports one pair into a scratch directory and streams the file.
func (s *Server) DownloadPQDS(c *gin.Context) {
	assetID, ok := pathID(c, "id")
	if !ok {
		return
	}
	eventID, ok := pathID(c, "event_id")
	if !ok {
		return
	}
	start, err := parseOptionalTime(c.Query("start"), false)
	if err != nil {
		AbortWithError(c, newValidationError("start", "invalid_start", "invalid start"))
		return
	}

	dir, err := os.MkdirTemp("", "pqio-export-*")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	defer os.RemoveAll(dir)

	res := s.exporter.Export(c.Request.Context(), exporter.Request{
		AssetID: assetID,
		EventID: eventID,
		Path:    dir,
		Start:   start,
	}, nil)
	if !res.OK {
		AbortWithError(c, res.Err)
		return
	}
	c.FileAttachment(res.Path, filepath.Base(res.Path))
}
