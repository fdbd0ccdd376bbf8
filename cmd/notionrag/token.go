package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/hyperjump/notionrag/internal/config"
	"github.com/hyperjump/notionrag/internal/server"
)

func newTokenCmd(a *app) *cobra.Command {
	var (
		email string
		ttl   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the HTTP API",
		Long: `Issue an HS256 bearer token carrying the user's email, signed with
server.jwt_secret (NOTIONRAG_JWT_SECRET). When no secret is configured it is
read from the terminal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(email) == "" {
				return &exitError{msg: "Error: Provide --email", err: server.ErrNoIdentity}
			}
			secret := a.cfg.Server.JWTSecret
			if secret == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "JWT secret: ")
				secret = readSecret(cmd.InOrStdin())
				fmt.Fprintln(cmd.ErrOrStderr())
			}
			if secret == "" {
				return failed("Error: ", &config.MissingSettingError{Setting: config.EnvJWTSecret})
			}
			token, err := server.IssueToken(secret, email, ttl)
			if err != nil {
				return failed("Error: ", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "user email carried in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 30*24*time.Hour, "token lifetime (0 for no expiry)")
	return cmd
}

// readSecret reads a line without echo when in is the terminal.
func readSecret(in io.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(secret))
		}
	}
	line, _ := bufio.NewReader(in).ReadString('\n')
	return strings.TrimSpace(line)
}
