package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teemow/invoicefetch/internal/config"
	"github.com/teemow/invoicefetch/internal/google"
)

func newAuthCmd() *cobra.Command {
	var envFile, credentialsFile, tokenFile string

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize read-only Gmail access and store the OAuth token",
		Long: `Start the Google OAuth consent flow for read-only Gmail access.

A link is printed that must be opened in a browser on this machine. After consent,
Google redirects to a temporary local listener and the resulting token is written
to the token file, where the fetch command picks it up and refreshes it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnvFile(envFile, cmd.Flags().Changed("env-file")); err != nil {
				return err
			}
			cfg := config.FromEnv()
			if cmd.Flags().Changed("credentials-file") {
				cfg.CredentialsFile = credentialsFile
			}
			if cmd.Flags().Changed("token-file") {
				cfg.TokenFile = tokenFile
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer cancel()

			warnExistingToken(cmd.ErrOrStderr(), google.NewFileTokenProvider(cfg.CredentialsFile, cfg.TokenFile))

			conf, err := google.LoadConfig(cfg.CredentialsFile)
			if err != nil {
				return &config.Error{Field: config.EnvCredentialsFile, Err: err}
			}

			tok, err := google.Authorize(ctx, conf, cmd.ErrOrStderr())
			if err != nil {
				return fmt.Errorf("authorization failed: %w", err)
			}

			if err := google.SaveToken(cfg.TokenFile, tok); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Token saved to %s\n", cfg.TokenFile)
			return nil
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", config.DefaultEnvFile, "Path to a .env file to load. A missing default file is ignored.")
	cmd.Flags().StringVar(&credentialsFile, "credentials-file", config.DefaultCredentialsFile, "Google OAuth client secrets file. Can also use GOOGLE_CREDENTIALS_FILE env var.")
	cmd.Flags().StringVar(&tokenFile, "token-file", config.DefaultTokenFile, "Cached Google OAuth token file. Can also use GOOGLE_TOKEN_FILE env var.")

	return cmd
}

// warnExistingToken reports whether the token file already exists and, if so,
// tells the user that a completed authorization replaces it.
func warnExistingToken(w io.Writer, provider *google.FileTokenProvider) bool {
	if !provider.HasToken() {
		return false
	}
	fmt.Fprintf(w, "A token already exists in %s and will be replaced once authorization completes.\n", provider.TokenFile)
	return true
}
