package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hyperjump/notionrag/internal/cli"
	"github.com/hyperjump/notionrag/internal/config"
	"github.com/hyperjump/notionrag/internal/indexer"
	"github.com/hyperjump/notionrag/internal/notion"
)

// quickTitleLimit caps the titles listed by explore --quick.
const quickTitleLimit = 30

type exploreOptions struct {
	quick        bool
	search       string
	limit        int
	dataSourceID string
}

func newExploreCmd(a *app) *cobra.Command {
	var opts exploreOptions
	cmd := &cobra.Command{
		Use:   "explore",
		Short: "See what is in your notes before asking",
		Long: `Show note titles, sample content and question ideas straight from Notion,
so you know what to ask. No index is needed.

  --quick         list up to 30 data source row titles without fetching content
  --search TERMS  keyword search over the built index, offline`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch {
			case strings.TrimSpace(opts.search) != "":
				return a.runExploreSearch(cmd, opts)
			case opts.quick:
				return a.runExploreQuick(cmd, opts)
			default:
				return a.runExplore(cmd, opts)
			}
		},
	}
	f := cmd.Flags()
	f.BoolVar(&opts.quick, "quick", false, "list titles only")
	f.StringVar(&opts.search, "search", "", "keyword search over the built index")
	f.IntVarP(&opts.limit, "limit", "n", 10, "maximum notes returned by --search")
	f.StringVar(&opts.dataSourceID, "data-source-id", "", "Notion data source id")
	return cmd
}

func (a *app) runExploreQuick(cmd *cobra.Command, opts exploreOptions) error {
	ds := opts.dataSourceID
	if ds == "" {
		ds = a.cfg.Notion.DataSourceID
	}
	if ds == "" {
		return &exitError{msg: "Error: Provide --data-source-id or NOTION_DATA_SOURCE_ID", err: config.ErrNoSourceSelected}
	}
	if err := a.cfg.ValidateNotion(); err != nil {
		return failed("Error: ", err)
	}
	titles, err := a.notionLoader().ListTitles(cmd.Context(), ds, quickTitleLimit)
	if err != nil {
		return failed("Error: ", err)
	}
	return cli.WriteTitles(cmd.OutOrStdout(), titles, a.format)
}

func (a *app) runExplore(cmd *cobra.Command, opts exploreOptions) error {
	if opts.dataSourceID != "" {
		a.cfg.Notion.DataSourceID = opts.dataSourceID
	}
	n := a.cfg.Notion
	sel := notion.Selection{PageIDs: n.PageIDs, DatabaseID: n.DatabaseID, DataSourceID: n.DataSourceID}
	if sel.Empty() {
		return &exitError{msg: "Error: Provide --data-source-id or set NOTION_PAGE_IDS, NOTION_DATABASE_ID or NOTION_DATA_SOURCE_ID", err: config.ErrNoSourceSelected}
	}
	if err := a.cfg.ValidateNotion(); err != nil {
		return failed("Error: ", err)
	}
	if a.format == cli.OutputText {
		fmt.Fprintln(cmd.ErrOrStderr(), "Loading your notes from Notion...")
	}
	docs, err := a.notionLoader().Load(cmd.Context(), sel)
	if err != nil {
		return failed("Error: ", err)
	}
	return cli.WriteExplore(cmd.OutOrStdout(), docs, a.cfg.Retrieval.PreviewChars, a.format)
}

func (a *app) runExploreSearch(cmd *cobra.Command, opts exploreOptions) error {
	if !indexer.Exists(a.cfg.Index.Dir) {
		return noVectorStore(errNoVectorStore)
	}
	ctx := cmd.Context()
	p, err := a.pipeline(ctx, nil, false)
	if err != nil {
		return failed("Error: ", err)
	}
	defer p.Close()

	query := strings.TrimSpace(opts.search)
	hits, err := p.SearchNotes(ctx, query, opts.limit)
	if err != nil {
		if errors.Is(err, indexer.ErrNoIndex) {
			return noVectorStore(err)
		}
		return failed("Error: ", err)
	}
	return cli.WriteNoteHits(cmd.OutOrStdout(), query, hits, a.format)
}
