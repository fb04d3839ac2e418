package main

import (
	"context"

	"github.com/smallbiznis/pqio/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd.Context(), fx.Options(infrastructure(), pipelines(), server.Module), func(ctx context.Context) error {
				<-ctx.Done()
				return nil
			})
		},
	}
}
