package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"alertlogic-events/internal/console"
	"alertlogic-events/internal/store"
	"alertlogic-events/internal/telemetry"
	"alertlogic-events/lib/configutil"

	"github.com/spf13/cobra"
)

type Config struct {
	BaseUrl    string `json:"base_url"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	CustomerId string `json:"customer_id"`
	// TempDir holds the temporary files of gzip recovery.
	TempDir string `json:"temp_dir"`
	// PartialInflater is one of native, zcat or auto.
	PartialInflater         string           `json:"partial_inflater"`
	DisableCloudflareBypass bool             `json:"disable_cloudflare_bypass"`
	Database                store.Config     `json:"database"`
	Telemetry               telemetry.Config `json:"telemetry"`
	HttpDumpDir             string           `json:"http_dump_dir"`
}

var (
	configPath string
	verbose    bool

	cfg       Config
	tel       telemetry.API = telemetry.SlogAPI{}
	otelSetup telemetry.Telemetry
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "alevents.json5", "The config file to read, <name>.local.json5 is merged over it.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging.")
}

var rootCmd = &cobra.Command{
	Use:   "alevents",
	Short: "alevents reconstructs the packet captures of Alert Logic console events.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(verbose)

		// bare names are looked up in parent directories as well
		readConfig := configutil.ReadRecursively[Config]
		if filepath.IsAbs(configPath) || strings.ContainsRune(configPath, filepath.Separator) {
			readConfig = configutil.ReadConfig[Config]
		}

		var err error
		cfg, err = readConfig(configPath)
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("no config file found, using defaults", "path", configPath)
			err = nil
		}
		if err != nil {
			fatal("failed to read config", err)
		}

		otelSetup, err = telemetry.Setup(cmd.Context(), "alevents", cfg.Telemetry)
		if err != nil {
			fatal("failed to setup telemetry", err)
		}
		err = telemetry.InstrumentPerfStats()
		if err != nil {
			slog.Warn("failed to register perf stats", "err", err)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		err := otelSetup.Shutdown(context.Background())
		if err != nil {
			slog.Warn("failed to shutdown telemetry", "err", err)
		}
	},
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func fatal(message string, err error) {
	slog.Error(message, "err", err)
	os.Exit(1)
}

func customerId(flag string) string {
	if flag != "" {
		return flag
	}
	return cfg.CustomerId
}

// newConsoleClient returns a logged in console session.
func newConsoleClient(ctx context.Context) *console.Client {
	if cfg.Username == "" || cfg.Password == "" {
		fatal("missing console credentials", fmt.Errorf("username and password must be set in %s", configPath))
	}

	opts := console.ClientOptions{
		BaseUrl:          cfg.BaseUrl,
		CloudflareBypass: !cfg.DisableCloudflareBypass,
	}
	if verbose && cfg.HttpDumpDir != "" {
		output, err := telemetry.NewFilesystemOutput(cfg.HttpDumpDir)
		if err != nil {
			fatal("failed to create http dump dir", err)
		}
		opts.DumpOutput = output
	}

	client, err := console.NewClient(opts, tel)
	if err != nil {
		fatal("failed to initialize console client", err)
	}
	err = client.Login(ctx, cfg.Username, cfg.Password)
	if err != nil {
		fatal("failed to login to console", err)
	}
	slog.Debug("logged in to console", "username", cfg.Username)
	return client
}

// openStore opens and migrates the event archive.
func openStore(ctx context.Context) store.Store {
	dbConfig := cfg.Database
	if dbConfig.File == "" && dbConfig.Url == "" {
		dbConfig.File = "alevents.db"
	}
	db, err := store.Open(dbConfig)
	if err != nil {
		fatal("failed to open archive", err)
	}
	archive := store.New(db)
	err = archive.Migrate(ctx)
	if err != nil {
		fatal("failed to migrate archive", err)
	}
	return archive
}
