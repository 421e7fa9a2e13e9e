package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/syncflux-collector/config"
	"github.com/syncflux-collector/internal/dispatch"
	"github.com/syncflux-collector/internal/registers"
	"github.com/syncflux-collector/internal/scheduler"
	"github.com/syncflux-collector/internal/server"
	"github.com/syncflux-collector/pkg/logger"
	"github.com/syncflux-collector/pkg/signal"
	"github.com/syncflux-collector/pkg/util"
)

const version = "0.9.0"

var defaultCfg = config.NewDefaultAgentConfig()

var rootCmd = &cobra.Command{
	Use:     "syncflux",
	Short:   "Polls Syncthing instances and ships health points to InfluxDB",
	Version: version,

	SilenceUsage:  true,
	SilenceErrors: true,

	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd)
	},
}

// Execute runs the root command. Any error, framework or pipeline, exits
// non-zero.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	f := rootCmd.PersistentFlags()

	f.StringP("config", "c", defaultCfg.ConfigFile, "-> Configuration set file to run")
	f.String("config-dir", "", "-> Directory of .yml configuration sets, run in filename order")
	f.IntP("count", "n", defaultCfg.Count, "-> Passes to run; negative runs forever")
	f.DurationP("wait", "w", defaultCfg.Wait, "-> Target pause between passes; a pass's own duration counts against it")
	f.BoolP("silent", "s", false, "-> Keep only errors on the console")
	f.BoolP("verbose", "v", false, "-> Debug output on the console")
	f.Bool("halt-on-send-error", defaultCfg.HaltOnSendError, "-> Abort the run on a failed sink write")

	initLogFlags(rootCmd)
	initServerFlags(rootCmd)
}

func run(cmd *cobra.Command) error {
	cfg, err := config.LoadAgentConfig(cmd)
	if err != nil {
		return err
	}

	if err := logger.Init(cfg.Log, cfg.Silent, cfg.Verbose); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	if !cfg.Silent {
		util.PrintBanner("SyncFlux", "cyan")
	}

	files, err := cfg.ConfigFiles()
	if err != nil {
		return err
	}
	logger.Info("agent starting",
		zap.String("version", version),
		zap.Strings("files", files),
		zap.Int("count", cfg.Count),
		zap.Duration("wait", cfg.Wait))

	registry, agentMetrics := registers.InitPromRegistry(true)
	var httpServer *server.HTTPServer
	if cfg.Server.Enabled {
		httpServer = server.NewHTTPServer(cfg.Server, registry)
		httpServer.Start()
	}

	ctx, cancel := signal.NotifyContext(cmd.Context())
	defer cancel()

	sched := scheduler.New(files, cfg.Count, cfg.Wait,
		dispatch.New(cfg.HaltOnSendError, agentMetrics), agentMetrics)
	runErr := sched.Run(ctx)

	if httpServer != nil {
		if err := httpServer.Shutdown(); err != nil {
			logger.Error("metrics server shutdown", zap.Error(err))
		}
	}

	// A cancelled context is the normal shutdown path, not a failure.
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	logger.Info("agent stopped")
	return nil
}
