package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	otelapi "go.opentelemetry.io/otel"
	_ "modernc.org/sqlite"

	"github.com/trialbridge/toolhost/host"
	"github.com/trialbridge/toolhost/hostotel"
	"github.com/trialbridge/toolhost/mcp"
	"github.com/trialbridge/toolhost/tools/clinical"
	"github.com/trialbridge/toolhost/tools/database"
	"github.com/trialbridge/toolhost/tools/fsops"
)

const (
	defaultDBDriver = "sqlite"
	defaultDBDSN    = "toolhost.db"
)

// serverNames maps a tool family to the identity reported by initialize.
var serverNames = map[string]string{
	"clinical":   "clinical-trial-external-api",
	"database":   "clinical-trial-database",
	"filesystem": "clinical-trial-filesystem",
}

// NewServeCmd creates the "serve" subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve <clinical|database|filesystem>",
		Short: "Serve one tool family over stdio",
		Long: "Serve starts a tool host for one tool family, speaking the stdio tool\n" +
			"protocol on stdin/stdout. Logs go to stderr.",
		Args: cobra.ExactArgs(1),
		RunE: runServe,
	}

	cmd.Flags().String("config", "", "Path to toolhost.yaml")
	cmd.Flags().String("registry-url", "", "Clinical trial registry base URL")
	cmd.Flags().String("label-url", "", "Drug label base URL")
	cmd.Flags().Duration("http-timeout", 0, "Upstream HTTP timeout")
	cmd.Flags().String("db-driver", "", "database/sql driver name (default: sqlite)")
	cmd.Flags().String("dsn", "", "Database DSN (default: toolhost.db)")
	cmd.Flags().String("root", "", "Filesystem root for relative paths")
	cmd.Flags().Duration("call-timeout", 0, "Per-call handler timeout (0 waits indefinitely)")
	cmd.Flags().Int("max-result-bytes", 0, "Truncate success payloads beyond this size (0 disables)")
	cmd.Flags().String("health-schedule", "", "Cron schedule for downstream health probes")
	cmd.Flags().Bool("no-health", false, "Disable downstream health probes")
	cmd.Flags().String("otel-endpoint", "", "OTLP/HTTP trace collector endpoint")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	family := strings.ToLower(strings.TrimSpace(args[0]))
	serverName, ok := serverNames[family]
	if !ok {
		return exitError(exitUsage, "unknown tool family %q; expected clinical, database, or filesystem", family)
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	logger := newLogger(verbose)

	explicitConfig, _ := cmd.Flags().GetString("config")
	var cfg ConfigFile
	configPath, found, err := DiscoverConfigPath(explicitConfig)
	if err != nil {
		return exitError(exitConfig, "%v", err)
	}
	if found {
		cfg, err = LoadConfigFile(configPath)
		if err != nil {
			return exitError(exitConfig, "%v", err)
		}
		logger.Info("loaded config", "path", configPath)
	}

	otelEndpoint := stringSetting(cmd, "otel-endpoint", cfg.Otel.Endpoint)
	shutdownTelemetry, err := setupTelemetry(cmd.Context(), otelEndpoint, serverName)
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	observer, err := hostotel.NewObserver(
		otelapi.GetMeterProvider().Meter("toolhost/host"),
		otelapi.GetTracerProvider().Tracer("toolhost/host"),
	)
	if err != nil {
		return fmt.Errorf("initializing observability: %w", err)
	}

	registry := host.NewRegistry()
	var probes []host.Probe

	switch family {
	case "clinical":
		client := clinical.New(clinical.Config{
			RegistryBaseURL: stringSetting(cmd, "registry-url", cfg.Clinical.RegistryURL),
			LabelBaseURL:    stringSetting(cmd, "label-url", cfg.Clinical.LabelURL),
			HTTPTimeout:     durationSetting(cmd, "http-timeout", cfg.Clinical.HTTPTimeoutMS),
		})
		if err := registerAll(registry, client.Operations()); err != nil {
			return err
		}
		probes = append(probes, client)

	case "database":
		driver := stringSetting(cmd, "db-driver", cfg.Database.Driver)
		if driver == "" {
			driver = defaultDBDriver
		}
		dsn := stringSetting(cmd, "dsn", cfg.Database.DSN)
		if dsn == "" {
			dsn = defaultDBDSN
		}

		db, err := sql.Open(driver, dsn)
		if err != nil {
			return exitError(exitConfig, "opening database: %v", err)
		}
		defer func() {
			_ = db.Close()
		}()

		pingCtx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		if err := db.PingContext(pingCtx); err != nil {
			logger.Warn("database not reachable at startup", "error", err)
		}
		cancel()

		querier, err := database.New(db)
		if err != nil {
			return err
		}
		if err := registerAll(registry, querier.Operations()); err != nil {
			return err
		}
		probes = append(probes, querier)

	case "filesystem":
		service := fsops.New(fsops.Config{
			Root: stringSetting(cmd, "root", cfg.Filesystem.Root),
		})
		if err := registerAll(registry, service.Operations()); err != nil {
			return err
		}
		probes = append(probes, service)
	}

	noHealth, _ := cmd.Flags().GetBool("no-health")
	if !noHealth && !cfg.Health.Disabled {
		monitor, err := host.NewHealthMonitor(host.HealthMonitorConfig{
			Schedule: stringSetting(cmd, "health-schedule", cfg.Health.Schedule),
			Probes:   probes,
			Logger:   logger,
			Observer: observer,
		})
		if err != nil {
			return exitError(exitConfig, "%v", err)
		}
		monitor.Start()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = monitor.Stop(ctx)
		}()
	}

	h, err := host.New(host.Config{
		Name:           serverName,
		Version:        cmd.Root().Version,
		Registry:       registry,
		Transport:      mcp.NewStdioTransport(),
		Logger:         logger,
		Observer:       observer,
		CallTimeout:    durationSetting(cmd, "call-timeout", cfg.Host.CallTimeoutMS),
		MaxResultBytes: intSetting(cmd, "max-result-bytes", cfg.Host.MaxResultBytes),
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return h.Run(ctx)
}

func registerAll(registry *host.Registry, ops []host.Operation) error {
	for _, op := range ops {
		if err := registry.Register(op); err != nil {
			return err
		}
	}
	return nil
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	// Stdout carries protocol frames; all logging goes to stderr.
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// stringSetting prefers an explicitly set flag over the config file value.
func stringSetting(cmd *cobra.Command, flag, fromConfig string) string {
	if cmd.Flags().Changed(flag) {
		v, _ := cmd.Flags().GetString(flag)
		return v
	}
	return fromConfig
}

func durationSetting(cmd *cobra.Command, flag string, configMS int) time.Duration {
	if cmd.Flags().Changed(flag) {
		v, _ := cmd.Flags().GetDuration(flag)
		return v
	}
	return time.Duration(configMS) * time.Millisecond
}

func intSetting(cmd *cobra.Command, flag string, fromConfig int) int {
	if cmd.Flags().Changed(flag) {
		v, _ := cmd.Flags().GetInt(flag)
		return v
	}
	return fromConfig
}
