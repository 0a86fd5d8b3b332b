package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/api/option"

	"github.com/teemow/invoicefetch/internal/config"
	"github.com/teemow/invoicefetch/internal/gmail"
	"github.com/teemow/invoicefetch/internal/google"
	"github.com/teemow/invoicefetch/internal/instrumentation"
	"github.com/teemow/invoicefetch/internal/logging"
	"github.com/teemow/invoicefetch/internal/pdftext"
	"github.com/teemow/invoicefetch/internal/pipeline"
)

// fetchFlags holds the raw flag values; only flags that were set override the environment
type fetchFlags struct {
	envFile             string
	startDate           string
	endDate             string
	searchStrings       string
	downloadFolder      string
	attachmentExtension string
	query               string
	credentialsFile     string
	tokenFile           string
	logLevel            string
	logFormat           string
	inMemory            bool
}

func newFetchCmd() *cobra.Command {
	var flags fetchFlags

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download PDF attachments whose text contains a search string",
		Long: `Search Gmail for messages with attachments received within the date window,
extract the text of every PDF attachment and save the ones that contain at least
one of the search strings (case-insensitive) into the download folder.

Each saved attachment is reported as "Downloaded: <filename>" on stdout. Failures
are reported on stderr and never stop the run, except when the candidate
messages cannot be listed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveFetchConfig(cmd, flags)
			if err != nil {
				return err
			}
			return runFetch(cmd.Context(), cfg, fetchRuntime{
				inMemory: flags.inMemory,
				stdout:   cmd.OutOrStdout(),
				stderr:   cmd.ErrOrStderr(),
			})
		},
	}

	bindFetchFlags(cmd, &flags)

	return cmd
}

func bindFetchFlags(cmd *cobra.Command, flags *fetchFlags) {
	cmd.Flags().StringVar(&flags.envFile, "env-file", config.DefaultEnvFile, "Path to a .env file to load. A missing default file is ignored.")
	cmd.Flags().StringVar(&flags.startDate, "start-date", config.DefaultStartDate, "First day of the search window (YYYY/MM/DD). Can also use START_DATE env var.")
	cmd.Flags().StringVar(&flags.endDate, "end-date", config.DefaultEndDate, "End of the search window (YYYY/MM/DD). Can also use END_DATE env var.")
	cmd.Flags().StringVar(&flags.searchStrings, "search-strings", "", "Comma-separated search strings; an attachment is saved if its text contains any of them. Can also use SEARCH_STRINGS env var.")
	cmd.Flags().StringVar(&flags.downloadFolder, "download-folder", config.DefaultDownloadFolder, "Folder that receives the matching attachments. Can also use DOWNLOAD_FOLDER env var.")
	cmd.Flags().StringVar(&flags.attachmentExtension, "attachment-extension", config.DefaultAttachmentExtension, "Only attachments with this filename extension are examined; empty examines all. Can also use ATTACHMENT_EXTENSION env var.")
	cmd.Flags().StringVar(&flags.query, "query", "", "Extra Gmail search terms appended to the date window query (e.g. from:billing@example.com). Can also use QUERY env var.")
	cmd.Flags().StringVar(&flags.credentialsFile, "credentials-file", config.DefaultCredentialsFile, "Google OAuth client secrets file. Can also use GOOGLE_CREDENTIALS_FILE env var.")
	cmd.Flags().StringVar(&flags.tokenFile, "token-file", config.DefaultTokenFile, "Cached Google OAuth token file. Can also use GOOGLE_TOKEN_FILE env var.")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "info", "Log level: debug, info, warn, error. Can also use LOG_LEVEL env var.")
	cmd.Flags().StringVar(&flags.logFormat, "log-format", logging.FormatText, "Log format: text or json. Can also use LOG_FORMAT env var.")
	cmd.Flags().BoolVar(&flags.inMemory, "in-memory", false, "Parse PDFs in memory instead of staging them in a temporary file")
}

// resolveFetchConfig loads the .env file and the environment, then applies the flags that were set explicitly
func resolveFetchConfig(cmd *cobra.Command, flags fetchFlags) (config.Config, error) {
	if err := config.LoadEnvFile(flags.envFile, cmd.Flags().Changed("env-file")); err != nil {
		return config.Config{}, err
	}

	cfg := config.FromEnv()

	changed := cmd.Flags().Changed
	if changed("start-date") {
		cfg.Window.Start = flags.startDate
	}
	if changed("end-date") {
		cfg.Window.End = flags.endDate
	}
	if changed("search-strings") {
		cfg.SearchStrings = config.ParseSearchStrings(flags.searchStrings)
	}
	if changed("download-folder") {
		cfg.DownloadFolder = flags.downloadFolder
	}
	if changed("attachment-extension") {
		cfg.AttachmentExtension = flags.attachmentExtension
	}
	if changed("query") {
		cfg.Query = flags.query
	}
	if changed("credentials-file") {
		cfg.CredentialsFile = flags.credentialsFile
	}
	if changed("token-file") {
		cfg.TokenFile = flags.tokenFile
	}
	if changed("log-level") {
		cfg.LogLevel = flags.logLevel
	}
	if changed("log-format") {
		cfg.LogFormat = flags.logFormat
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// fetchRuntime carries the process-level collaborators of a fetch run
type fetchRuntime struct {
	inMemory      bool
	stdout        io.Writer
	stderr        io.Writer
	clientOptions []option.ClientOption
}

func runFetch(ctx context.Context, cfg config.Config, rt fetchRuntime) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger, err := logging.New(rt.stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("invalid logging configuration: %w", err)
	}
	logger = logging.WithOperation(logger, "fetch")
	slog.SetDefault(logger)

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	instrProvider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize instrumentation: %w", err)
	}
	if instrProvider.Enabled() {
		logger.Debug("instrumentation enabled",
			"metrics_exporter", instrConfig.MetricsExporter,
			"tracing_exporter", instrConfig.TracingExporter,
		)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := instrProvider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("failed to shutdown instrumentation", logging.Err(err))
		}
	}()
	metrics := instrProvider.Metrics()

	client, err := gmail.NewClient(ctx, tokenProviderFor(cfg, metrics), rt.clientOptions...)
	if err != nil {
		return &config.Error{Field: config.EnvCredentialsFile, Err: err}
	}
	client.SetMetrics(metrics)

	p := pipeline.New(client, &pdftext.Extractor{InMemory: rt.inMemory, Metrics: metrics}, pipeline.Options{
		Criteria:       pipeline.NewCriteria(cfg.SearchStrings),
		Filter:         pipeline.ExtensionFilter(cfg.AttachmentExtension),
		DownloadFolder: cfg.DownloadFolder,
		Stdout:         rt.stdout,
		Stderr:         rt.stderr,
		Logger:         logger,
		Metrics:        metrics,
	})

	if cfg.Window.Inverted() {
		logger.Warn("start date is after end date, no message can match",
			"start_date", cfg.Window.Start,
			"end_date", cfg.Window.End,
		)
	}

	query := gmail.BuildQuery(cfg.Window.Start, cfg.Window.End, cfg.Query)
	summary, err := p.Run(ctx, query)
	if err != nil {
		logger.Error("fetch failed", append(summary.LogAttrs(), logging.Err(err))...)
		return err
	}

	logger.Info("fetch completed", summary.LogAttrs()...)
	return nil
}

// tokenProviderFor prefers an explicit access token over the token file
func tokenProviderFor(cfg config.Config, metrics *instrumentation.Metrics) google.TokenProvider {
	if cfg.AccessToken != "" {
		slog.Debug("using access token from environment", "token", logging.SanitizeToken(cfg.AccessToken))
		return google.NewStaticTokenProvider(cfg.AccessToken)
	}

	p := google.NewFileTokenProvider(cfg.CredentialsFile, cfg.TokenFile)
	p.Metrics = metrics
	return p
}
