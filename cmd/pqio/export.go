package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pqio/internal/exporter"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

type exportOptions struct {
	pairs   []string
	out     string
	logPath string
	start   string
	only    []string
}

func newExportCmd() *cobra.Command {
	var opts exportOptions
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored events as PQDS files",
		Example: `  pqio export --pair 1790000000000000001:1790000000000000042 --out ./exports
  pqio export --pair A:E --only device,event,timing`,
		RunE: func(cmd *cobra.Command, args []string) error {
			reqs, err := opts.requests()
			if err != nil {
				return withCode(exitUsage, err)
			}
			return runExport(cmd.Context(), cmd.OutOrStdout(), reqs)
		},
	}
	cmd.Flags().StringSliceVar(&opts.pairs, "pair", nil, "Asset and event ids as <asset>:<event> (repeatable, required)")
	cmd.Flags().StringVar(&opts.out, "out", "", "Output file or directory (default: export profile output_dir)")
	cmd.Flags().StringVar(&opts.logPath, "log", "", "Audit log path (default: export profile log_path)")
	cmd.Flags().StringVar(&opts.start, "start", "", "Override the declared start time (RFC3339)")
	cmd.Flags().StringSliceVar(&opts.only, "only", nil,
		"Tag groups to write: device,asset,event,timing,sensitivity,custom,author,guid (default: export profile)")
	_ = cmd.MarkFlagRequired("pair")
	return cmd
}

func (o exportOptions) requests() ([]exporter.Request, error) {
	var start *time.Time
	if o.start != "" {
		t, err := time.Parse(time.RFC3339Nano, o.start)
		if err != nil {
			return nil, fmt.Errorf("invalid --start: %w", err)
		}
		start = &t
	}
	var selected *exporter.Options
	if len(o.only) > 0 {
		opts, err := parseGroups(o.only)
		if err != nil {
			return nil, err
		}
		selected = &opts
	}
	if len(o.pairs) > 1 && o.out != "" && !strings.HasSuffix(o.out, "/") {
		// several files cannot share one output file name
		return nil, fmt.Errorf("--out must be a directory ending in / when exporting several pairs")
	}

	reqs := make([]exporter.Request, 0, len(o.pairs))
	for _, pair := range o.pairs {
		asset, evt, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("invalid --pair %q: want <asset>:<event>", pair)
		}
		assetID, err := snowflake.ParseString(strings.TrimSpace(asset))
		if err != nil {
			return nil, fmt.Errorf("invalid asset id in %q: %w", pair, err)
		}
		eventID, err := snowflake.ParseString(strings.TrimSpace(evt))
		if err != nil {
			return nil, fmt.Errorf("invalid event id in %q: %w", pair, err)
		}
		reqs = append(reqs, exporter.Request{
			AssetID: assetID,
			EventID: eventID,
			Path:    o.out,
			LogPath: o.logPath,
			Start:   start,
			Options: selected,
		})
	}
	return reqs, nil
}

func parseGroups(names []string) (exporter.Options, error) {
	var opts exporter.Options
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "device":
			opts.Device = true
		case "asset":
			opts.Asset = true
		case "event":
			opts.Event = true
		case "timing":
			opts.Timing = true
		case "sensitivity":
			opts.WaveformSensitivity = true
		case "custom":
			opts.Custom = true
		case "author":
			opts.Author = true
		case "guid":
			opts.GUID = true
		case "all":
			opts = exporter.AllOptions()
		default:
			return opts, fmt.Errorf("unknown tag group %q", name)
		}
	}
	return opts, nil
}

func runExport(ctx context.Context, stdout io.Writer, reqs []exporter.Request) error {
	var exp *exporter.Exporter
	var res exporter.BatchResult
	err := runOnce(ctx, fx.Options(infrastructure(), pipelines(), fx.Populate(&exp)), func(ctx context.Context) error {
		res = exp.ExportFiles(ctx, reqs, nil)
		return nil
	})
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ASSET\tEVENT\tSTATUS\tFILE\tKEYS")
	for _, f := range res.Files {
		status, file := "ok", f.Path
		if !f.OK {
			status, file = string(f.Kind), f.Err.Error()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", f.AssetID, f.EventID, status, file, strings.Join(f.Keys, ","))
	}
	tw.Flush()

	if res.Succeeded < len(res.Files) {
		return withCode(exitPartial, fmt.Errorf("%d of %d exports failed", len(res.Files)-res.Succeeded, len(res.Files)))
	}
	return nil
}
