package main

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/hyperjump/notionrag/internal/quota"
	"github.com/hyperjump/notionrag/internal/tui"
)

var errNotTerminal = errors.New("chat needs an interactive terminal")

func newChatCmd(a *app) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with your notes in the terminal",
		Long: `Open an interactive chat over the indexed notes. Each question is answered
on its own and counts against the user's daily limit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(user) == "" {
				return &exitError{msg: "Error: Provide --user", err: quota.ErrNoUser}
			}
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				return failed("Error: ", errNotTerminal)
			}
			if err := a.cfg.ValidateQuery(); err != nil {
				return failed("Error: ", err)
			}
			ctx := cmd.Context()
			p, err := a.pipeline(ctx, nil, true)
			if err != nil {
				return failed("Error: ", err)
			}
			defer p.Close()

			limiter, err := quota.NewLimiterFromConfig(ctx, a.cfg.Quota, a.logger)
			if err != nil {
				return failed("Error: ", err)
			}
			defer limiter.Close()
			return tui.Run(ctx, p, limiter, user)
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", os.Getenv("USER"), "user id or email for the daily limit")
	return cmd
}
