// Package main is the notionrag CLI entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/notionrag/internal/answer"
	"github.com/hyperjump/notionrag/internal/cli"
	"github.com/hyperjump/notionrag/internal/config"
	"github.com/hyperjump/notionrag/internal/embedding"
	"github.com/hyperjump/notionrag/internal/extract"
	"github.com/hyperjump/notionrag/internal/notion"
	"github.com/hyperjump/notionrag/internal/rag"
	"github.com/hyperjump/notionrag/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "config.yaml"

// app carries the state shared by every command: the resolved config, the logger
// and the constructors for the external model clients.
type app struct {
	configPath string
	debug      bool
	formatFlag string

	cfg    *config.Config
	format cli.OutputFormat
	logger *zap.Logger

	dotEnvPaths  []string
	newEmbedder  func(context.Context, embedding.Options) (embedding.Embedder, error)
	newGenerator func(context.Context, answer.GeneratorOptions) (answer.Generator, error)
}

func newApp() *app {
	return &app{
		configPath:   defaultConfigPath,
		newEmbedder:  embedding.NewEmbedder,
		newGenerator: answer.NewGenerator,
	}
}

// exitError is a failure already phrased for the terminal.
type exitError struct {
	msg string
	err error
}

func (e *exitError) Error() string { return e.msg }
func (e *exitError) Unwrap() error { return e.err }

func failed(prefix string, err error) error {
	return &exitError{msg: prefix + err.Error(), err: err}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, newApp(), os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, a *app, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		fmt.Fprintln(stderr, ee.msg)
	} else {
		fmt.Fprintln(stderr, "Error: "+err.Error())
	}
	return 1
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "notionrag",
		Short: "Ask questions answered from your Notion notes",
		Long: `notionrag indexes Notion pages and data sources into a local vector index
and answers questions using only what the notes say.

Run 'notionrag ingest' first, then 'notionrag query "your question"'.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.SetVersionTemplate("notionrag version {{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", a.configPath, "config file path (YAML, or TOML when it ends in .toml)")
	pf.BoolVar(&a.debug, "debug", false, "enable debug logging")
	pf.StringVar(&a.formatFlag, "format", string(cli.OutputText), "output format: text or json")

	root.AddCommand(
		newIngestCmd(a),
		newQueryCmd(a),
		newExploreCmd(a),
		newStatusCmd(a),
		newUsageCmd(a),
		newServeCmd(a),
		newChatCmd(a),
		newMCPCmd(a),
		newTokenCmd(a),
	)
	return root
}

// setup resolves configuration with precedence defaults < file < environment < flags
// and builds the logger. Command specific flags are applied by each command.
func (a *app) setup(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(a.dotEnvPaths...); err != nil {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	cfg, err := loadConfig(a.configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return err
	}
	config.ApplyEnv(cfg)
	if a.debug {
		cfg.Debug = true
	}
	format, err := cli.ParseOutputFormat(a.formatFlag)
	if err != nil {
		return err
	}

	var logger *zap.Logger
	if cmd.Name() == "serve" {
		logger, err = utils.NewLogger(cfg.Debug)
	} else {
		logger, err = utils.NewCLILogger(cfg.Debug)
	}
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	a.cfg = cfg
	a.format = format
	a.logger = logger
	return nil
}

// loadConfig loads the config at path. When path was not given explicitly, config.yaml
// in the current directory is used if present, otherwise defaults.
func loadConfig(path string, explicit bool) (*config.Config, error) {
	if explicit {
		return config.Load(path)
	}
	if cwd, err := os.Getwd(); err == nil {
		fallback := filepath.Join(cwd, defaultConfigPath)
		if _, statErr := os.Stat(fallback); statErr == nil {
			return config.Load(fallback)
		}
	}
	return config.Default(), nil
}

func (a *app) notionLoader() *notion.Loader {
	n := a.cfg.Notion
	client := notion.NewClient(n.APIKey,
		notion.WithBaseURL(n.BaseURL),
		notion.WithVersion(n.Version),
		notion.WithRateLimit(n.RequestsPerSecond),
		notion.WithTimeout(secondsOf(n.TimeoutSeconds)),
		notion.WithMaxRetries(n.MaxRetries),
		notion.WithLogger(a.logger),
	)
	opts := []notion.LoaderOption{
		notion.WithLoaderLogger(a.logger),
		notion.WithLoaderMaxDepth(n.MaxDepth),
	}
	if n.ExtractAttachments {
		opts = append(opts, notion.WithAttachments(extract.NewExtractor(), n.MaxAttachmentBytes))
	}
	return notion.NewLoader(client, opts...)
}

// pipeline builds a pipeline over the configured index. withGenerator is false for
// commands that never compose answers, so no LLM credentials are needed for them.
func (a *app) pipeline(ctx context.Context, loader rag.DocumentLoader, withGenerator bool) (*rag.Pipeline, error) {
	embOpts := embedding.OptionsFromConfig(a.cfg)
	embOpts.Logger = a.logger
	emb, err := a.newEmbedder(ctx, embOpts)
	if err != nil {
		return nil, err
	}
	deps := rag.Deps{Embedder: emb, Loader: loader, Logger: a.logger}
	if withGenerator {
		gen, err := a.newGenerator(ctx, answer.GeneratorOptionsFromConfig(a.cfg))
		if err != nil {
			_ = emb.Close()
			return nil, err
		}
		deps.Generator = gen
	}
	p, err := rag.New(a.cfg, deps)
	if err != nil {
		_ = emb.Close()
		return nil, err
	}
	return p, nil
}

func secondsOf(n int) time.Duration {
	return time.Duration(n) * time.Second
}
