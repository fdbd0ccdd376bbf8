package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/hyperjump/notionrag/internal/cli"
	"github.com/hyperjump/notionrag/internal/indexer"
)

func newStatusCmd(a *app) *cobra.Command {
	var db string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the built index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if db != "" {
				a.cfg.Index.Dir = db
			}
			if !indexer.Exists(a.cfg.Index.Dir) {
				return noVectorStore(errNoVectorStore)
			}
			ctx := cmd.Context()
			p, err := a.pipeline(ctx, nil, false)
			if err != nil {
				return failed("Error: ", err)
			}
			defer p.Close()

			st, err := p.Status(ctx)
			if errors.Is(err, indexer.ErrNoIndex) {
				return noVectorStore(err)
			}
			if err != nil {
				return failed("Error: ", err)
			}
			return cli.WriteStatus(cmd.OutOrStdout(), st, a.format)
		},
	}
	cmd.Flags().StringVar(&db, "db", "", "index directory (default from config, rag_index)")
	return cmd
}
