package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"

	"github.com/smallbiznis/pqio/internal/importer"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

type importOptions struct {
	progress bool
}

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import PQDS or PQDIF files into the store",
	}
	cmd.AddCommand(
		newImportFormatCmd(importer.FormatPQDS, "Import PQDS text files"),
		newImportFormatCmd(importer.FormatPQDIF, "Import PQDIF binary files"),
	)
	return cmd
}

func newImportFormatCmd(format, short string) *cobra.Command {
	var opts importOptions
	cmd := &cobra.Command{
		Use:   format + " <file-or-dir>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := expandPaths(args)
			if err != nil {
				return withCode(exitUsage, err)
			}
			return runImport(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), format, paths, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.progress, "progress", false, "Print batch progress to stderr")
	return cmd
}

// expandPaths replaces each directory by the regular files directly inside it.
func expandPaths(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		st, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !st.IsDir() {
			out = append(out, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		var files []string
		for _, e := range entries {
			if e.Type().IsRegular() {
				files = append(files, filepath.Join(arg, e.Name()))
			}
		}
		sort.Strings(files)
		out = append(out, files...)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no files to import")
	}
	return out, nil
}

func runImport(ctx context.Context, stdout, stderr io.Writer, format string, paths []string, opts importOptions) error {
	var imp *importer.Importer
	var res importer.BatchResult
	err := runOnce(ctx, fx.Options(infrastructure(), pipelines(), fx.Populate(&imp)), func(ctx context.Context) error {
		var progress importer.ProgressFunc
		if opts.progress {
			total := len(paths)
			progress = func(sum int) {
				fmt.Fprintf(stderr, "\rimporting: %3d%%", sum/total)
			}
		}
		if format == importer.FormatPQDS {
			res = imp.ImportPQDSFiles(ctx, paths, progress)
		} else {
			res = imp.ImportPQDIFFiles(ctx, paths, progress)
		}
		if opts.progress {
			fmt.Fprintln(stderr)
		}
		return nil
	})
	if err != nil {
		return err
	}

	printImport(stdout, res)
	if res.Succeeded < len(res.Files) {
		return withCode(exitPartial, fmt.Errorf("%d of %d files failed", len(res.Files)-res.Succeeded, len(res.Files)))
	}
	return nil
}

func printImport(w io.Writer, res importer.BatchResult) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tSTATUS\tASSETS\tMETERS\tCHANNELS\tEVENTS\tSERIES\tPRUNED\tERROR")
	for _, f := range res.Files {
		status, msg := "ok", ""
		if !f.OK {
			status = fmt.Sprintf("%s@%s", f.Kind, f.Stage)
			msg = f.Err.Error()
		}
		c := f.Created
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%s\n",
			filepath.Base(f.Path), status, c.Assets, c.Meters, c.Channels, c.Events, c.Series, c.Pruned, msg)
	}
	tw.Flush()
	fmt.Fprintf(w, "batch %s: %d/%d files imported\n", res.BatchID, res.Succeeded, len(res.Files))
}
