package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pqio/internal/exporter"
	"github.com/smallbiznis/pqio/internal/importer"
	"github.com/smallbiznis/pqio/internal/pqerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportRequestsFromFlags(t *testing.T) {
	opts := exportOptions{
		pairs:   []string{"11:22", "33:44"},
		out:     "exports/",
		logPath: "audit.log",
		start:   "2020-03-18T10:00:00Z",
		only:    []string{"device", "GUID"},
	}
	reqs, err := opts.requests()
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.Equal(t, snowflake.ID(33), reqs[1].AssetID)
	assert.Equal(t, snowflake.ID(44), reqs[1].EventID)
	assert.Equal(t, "exports/", reqs[0].Path)
	assert.Equal(t, "audit.log", reqs[0].LogPath)
	assert.True(t, time.Date(2020, 3, 18, 10, 0, 0, 0, time.UTC).Equal(*reqs[0].Start))
	assert.Equal(t, &exporter.Options{Device: true, GUID: true}, reqs[0].Options)
}

func TestExportRequestsRejectBadFlags(t *testing.T) {
	for name, opts := range map[string]exportOptions{
		"missing colon":   {pairs: []string{"11"}},
		"bad id":          {pairs: []string{"x:1"}},
		"bad start":       {pairs: []string{"1:2"}, start: "yesterday"},
		"unknown group":   {pairs: []string{"1:2"}, only: []string{"colour"}},
		"shared out file": {pairs: []string{"1:2", "3:4"}, out: "one.csv"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := opts.requests()
			assert.Error(t, err)
		})
	}
}

func TestParseGroupsAll(t *testing.T) {
	opts, err := parseGroups([]string{"all"})
	require.NoError(t, err)
	assert.Equal(t, exporter.AllOptions(), opts)
}

func TestExpandPaths(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.csv", "a.csv"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o700))
	single := filepath.Join(t.TempDir(), "c.csv")
	require.NoError(t, os.WriteFile(single, []byte("x"), 0o600))

	paths, err := expandPaths([]string{dir, single})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.csv"), filepath.Join(dir, "b.csv"), single}, paths)

	_, err = expandPaths([]string{t.TempDir()})
	assert.Error(t, err)
}

func TestPrintImport(t *testing.T) {
	var buf bytes.Buffer
	printImport(&buf, importer.BatchResult{
		BatchID:   "01HX",
		Succeeded: 1,
		Files: []importer.FileResult{
			{Path: "/tmp/a.csv", OK: true, Stage: importer.StageDone, Created: importer.Counts{Assets: 1, Events: 1}},
			{Path: "/tmp/b.csv", Kind: pqerr.KindParse, Stage: importer.StageParse, Err: pqerr.Parsef("bad row")},
		},
	})
	out := buf.String()
	assert.Contains(t, out, "a.csv")
	assert.Contains(t, out, "parse@parse")
	assert.Contains(t, out, "batch 01HX: 1/2 files imported")
}

func TestExitCodes(t *testing.T) {
	err := withCode(exitPartial, errors.New("boom"))
	var exitErr *exitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, exitPartial, exitErr.code)
	assert.NoError(t, withCode(exitUsage, nil))
}

func TestRootHasCommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"import", "export", "migrate", "serve"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
	cmd, _, err := root.Find([]string{"import", "pqdif"})
	require.NoError(t, err)
	assert.Equal(t, "pqdif", cmd.Name())
}
