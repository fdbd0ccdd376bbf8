package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/hyperjump/notionrag/internal/cli"
	"github.com/hyperjump/notionrag/internal/quota"
)

func newUsageCmd(a *app) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show a user's prompts used today",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(user) == "" {
				return &exitError{msg: "Error: Provide --user", err: quota.ErrNoUser}
			}
			ctx := cmd.Context()
			limiter, err := quota.NewLimiterFromConfig(ctx, a.cfg.Quota, a.logger)
			if err != nil {
				return failed("Error: ", err)
			}
			defer limiter.Close()

			u, err := limiter.Usage(ctx, user)
			if err != nil {
				return failed("Error: ", err)
			}
			return cli.WriteUsage(cmd.OutOrStdout(), u, a.format)
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "user id or email")
	return cmd
}
