package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/meetops/zoom-to-drive/internal/config"
	"github.com/meetops/zoom-to-drive/internal/drive"
	"github.com/meetops/zoom-to-drive/internal/filename"
	"github.com/meetops/zoom-to-drive/internal/ledger"
	"github.com/meetops/zoom-to-drive/internal/logging"
	"github.com/meetops/zoom-to-drive/internal/members"
	"github.com/meetops/zoom-to-drive/internal/processor"
	"github.com/meetops/zoom-to-drive/internal/router"
	"github.com/meetops/zoom-to-drive/internal/zoom"
)

var (
	// Version information - set during build
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	verbose    bool
	dryRun     bool
	fromFlag   string
	toFlag     string
)

// buildRootCommand creates and configures the root command
func buildRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "zoom-to-drive",
		Short: "Archive Zoom cloud recordings and AI summaries to Google Drive",
		Long: `zoom-to-drive transfers Zoom cloud recordings and AI meeting
summaries into Google Drive, routed by topic keywords, and records every
transfer in a Google Sheets tracking spreadsheet.

Each run:
- Enumerates account members and fetches their cloud recordings
- Converts caption tracks to readable transcripts
- Renders AI meeting summaries as plain-text documents
- Skips anything the tracking sheet already records
- Optionally deletes source recordings after a successful transfer`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := "config.yaml"
			if configFile != "" {
				configPath = configFile
			}

			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}

			return runSync(cmd.Context(), cmd, cfg)
		},
	}

	rootCmd.AddCommand(createVersionCommand())
	rootCmd.AddCommand(createConfigCommand())

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "configuration file path (default: config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "verbose logging")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "show what would be transferred without writing anything")
	rootCmd.PersistentFlags().StringVar(&fromFlag, "from", "", "start date (yyyy-MM-dd, overrides lookback)")
	rootCmd.PersistentFlags().StringVar(&toFlag, "to", "", "end date (yyyy-MM-dd, default: today)")

	return rootCmd
}

// createVersionCommand creates the version subcommand
func createVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("zoom-to-drive version %s\n", version)
			cmd.Printf("Commit: %s\n", commit)
			cmd.Printf("Build date: %s\n", buildDate)
		},
	}
}

// createConfigCommand creates the config help subcommand
func createConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show configuration file structure and examples",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Print(`Configuration File Structure (config.yaml):

zoom:
  account_id: "your_zoom_account_id"       # From Server-to-Server OAuth app
  client_id: "your_zoom_client_id"
  client_secret: "your_zoom_client_secret"
  base_url: "https://api.zoom.us/v2"       # Default
  auth_method: "basic"                     # basic (default) or jwt

google:
  credentials_file: "./service-account.json" # Google service account key
  spreadsheet_id: "your_tracking_sheet_id"   # Tracking spreadsheet
  default_folder_id: "your_drive_folder_id"  # Fallback destination folder
  folder_routes:                             # First matching keyword wins
    - keyword: "operations"
      folder_id: "drive_folder_id_1"
    - keyword: "standup"
      folder_id: "drive_folder_id_2"

sync:
  lookback_days: 7            # Fetch window, walking back from today
  delete_after_transfer: false
  topic_prefix: ""            # Literal prefix stripped from topics
  page_delay_millis: 500      # Throttle between list pages
  retry_attempts: 3           # Download retries
  timeout_seconds: 300

logging:
  level: "info"               # debug, info, warn, error
  file: ""                    # Optional log file
  console: true
  json_format: false

hosts:
  file: ""                    # Optional host allowlist (empty = all hosts)
  check_enabled: true

Environment variables override the file: ZOOM_ACCOUNT_ID, ZOOM_CLIENT_ID,
ZOOM_CLIENT_SECRET, ZOOM_BASE_URL, GOOGLE_CREDENTIALS_FILE,
GOOGLE_SPREADSHEET_ID, GOOGLE_DEFAULT_FOLDER_ID.

Required Zoom scopes: recording:read, user:read, meeting:read.
The Drive folders and the tracking spreadsheet must be shared with the
service account.
`)
		},
	}
}

// runSync wires the pipeline together and executes one transfer run
func runSync(ctx context.Context, cmd *cobra.Command, cfg *config.Config) error {
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := logging.InitializeLogging(cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer func() {
		if logger := logging.GetDefaultLogger(); logger != nil {
			logger.Close()
		}
	}()

	ctx = logging.WithRunID(ctx, logging.GenerateRunID())

	from, to, err := resolveDateRange(cfg.Sync.LookbackDays)
	if err != nil {
		return err
	}

	// Zoom side
	auth := zoom.NewAccountCredentialsAuth(cfg.Zoom)
	apiClient := zoom.NewAuthenticatedClient(&http.Client{Timeout: cfg.Sync.TimeoutDuration()}, auth)
	downloadClient := zoom.NewRetryHTTPClient(zoom.HTTPClientConfigFromSyncConfig(cfg.Sync))
	zoomClient := zoom.NewClient(apiClient, downloadClient, auth, cfg.Zoom.BaseURL, cfg.Sync.PageDelay())

	// Google side
	driveClient, err := drive.NewClient(ctx, cfg.Google.CredentialsFile)
	if err != nil {
		return fmt.Errorf("failed to initialize Drive client: %w", err)
	}
	tracking, err := ledger.NewLedger(ctx, cfg.Google.CredentialsFile, cfg.Google.SpreadsheetID)
	if err != nil {
		return fmt.Errorf("failed to initialize tracking ledger: %w", err)
	}

	// Host allowlist
	allowlistPath := ""
	if cfg.Hosts.CheckEnabled {
		allowlistPath = cfg.Hosts.File
	}
	allowlist, err := members.NewAllowlist(members.AllowlistConfig{FilePath: allowlistPath})
	if err != nil {
		return fmt.Errorf("failed to load host allowlist: %w", err)
	}
	defer allowlist.Close()

	p := processor.New(
		zoomClient,
		driveClient,
		tracking,
		router.New(cfg.Google.FolderRoutes, cfg.Google.DefaultFolderID),
		filename.NewNamer(cfg.Sync.TopicPrefix),
		allowlist,
		processor.Options{
			From:                from,
			To:                  to,
			DeleteAfterTransfer: cfg.Sync.DeleteAfterTransfer,
			DryRun:              dryRun,
		},
	)

	summary, err := p.Run(ctx)
	if err != nil {
		return fmt.Errorf("transfer run failed: %w", err)
	}

	cmd.Printf("Members processed: %d (skipped %d)\n", summary.MembersProcessed, summary.MembersSkipped)
	cmd.Printf("Recordings transferred: %d (skipped %d)\n", summary.RecordingsTransferred, summary.RecordingsSkipped)
	cmd.Printf("Summaries transferred: %d (skipped %d)\n", summary.SummariesTransferred, summary.SummariesSkipped)
	cmd.Printf("Files transferred: %d\n", summary.FilesTransferred)
	if summary.Errors > 0 {
		cmd.Printf("Errors: %d (see tracking sheet for details)\n", summary.Errors)
	}

	return nil
}

// resolveDateRange computes the fetch window from flags and the configured
// lookback. Days are truncated so the window is inclusive of whole days.
func resolveDateRange(lookbackDays int) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	from := to.AddDate(0, 0, -lookbackDays)

	if toFlag != "" {
		parsed, err := time.Parse("2006-01-02", toFlag)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --to date %q: %w", toFlag, err)
		}
		to = parsed
	}
	if fromFlag != "" {
		parsed, err := time.Parse("2006-01-02", fromFlag)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --from date %q: %w", fromFlag, err)
		}
		from = parsed
	}

	if from.After(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("start date %s is after end date %s",
			from.Format("2006-01-02"), to.Format("2006-01-02"))
	}

	return from, to, nil
}

func main() {
	rootCmd := buildRootCommand()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
