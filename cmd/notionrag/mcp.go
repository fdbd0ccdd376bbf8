package main

import (
	"github.com/spf13/cobra"

	"github.com/hyperjump/notionrag/internal/mcp"
)

func newMCPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the notes as MCP tools over stdio",
		Long: `Start a Model Context Protocol server on stdio exposing ask_notes,
retrieve_notes and search_notes.

Client configuration:
  {
    "mcpServers": {
      "notionrag": {
        "command": "/path/to/notionrag",
        "args": ["mcp", "--config", "/path/to/config.yaml"]
      }
    }
  }`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.cfg.ValidateQuery(); err != nil {
				return failed("Error: ", err)
			}
			ctx := cmd.Context()
			p, err := a.pipeline(ctx, nil, true)
			if err != nil {
				return failed("Error: ", err)
			}
			defer p.Close()

			srv, err := mcp.NewServer(p, a.cfg.Retrieval.K, a.logger)
			if err != nil {
				return failed("Error: ", err)
			}
			return srv.Run(ctx)
		},
	}
}
