package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hyperjump/notionrag/internal/cli"
	"github.com/hyperjump/notionrag/internal/indexer"
)

var errNoVectorStore = errors.New("no vector store")

func noVectorStore(err error) error {
	return &exitError{msg: "Error: No vector store. Run 'ingest' first.", err: err}
}

func newQueryCmd(a *app) *cobra.Command {
	var db string
	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: "Answer a question from the indexed notes",
		Long: `Answer a question using only the indexed Notion notes.

The question is all remaining arguments joined by spaces, so quoting is optional.
With --debug the retrieved chunks are printed before the answer.

Examples:
  notionrag query "How long is a coaching session?"
  notionrag query how do I get promoted --debug`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runQuery(cmd, buildQuestion(args), db)
		},
	}
	cmd.Flags().StringVar(&db, "db", "", "index directory (default from config, rag_index)")
	return cmd
}

// buildQuestion joins positional args with spaces so multi-word questions work with or
// without shell quoting.
func buildQuestion(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func (a *app) runQuery(cmd *cobra.Command, question, db string) error {
	cfg := a.cfg
	if db != "" {
		cfg.Index.Dir = db
	}
	if err := cfg.ValidateQuery(); err != nil {
		return failed("Error: ", err)
	}
	if !indexer.Exists(cfg.Index.Dir) {
		return noVectorStore(errNoVectorStore)
	}

	ctx := cmd.Context()
	p, err := a.pipeline(ctx, nil, true)
	if err != nil {
		return failed("Query failed: ", err)
	}
	defer p.Close()

	answer, err := p.Ask(ctx, question)
	if err != nil {
		return failed("Query failed: ", err)
	}
	return cli.WriteAnswer(cmd.OutOrStdout(), answer, cfg.Debug, cfg.Retrieval.PreviewChars, a.format)
}
