// Command vagabond is the router/gateway control-plane daemon: it loads the
// declarative TOML configuration, brings up networking, spawns every
// supervised daemon, starts the wireless object broker and the
// control-plane WebSocket, then blocks until it is asked to shut down.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/proctorlabs/vagabond/internal/applog"
	"github.com/proctorlabs/vagabond/internal/config"
	"github.com/proctorlabs/vagabond/internal/daemons"
	"github.com/proctorlabs/vagabond/internal/httpapi"
	"github.com/proctorlabs/vagabond/internal/state"
	"github.com/proctorlabs/vagabond/internal/system"
	"github.com/proctorlabs/vagabond/internal/wireless"
)

// version is overwritten at build time via -ldflags, following the
// teacher's ap-configctl ProductVersion convention.
var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "vagabond",
		Short:         "router/gateway control-plane daemon",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	rootCmd.Flags().String("config", "/etc/vagabond.toml", "path to the TOML configuration file")
	rootCmd.Flags().String("log-level", "info", "log level: trace, debug, info, warn, error")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	logLevel, _ := cmd.Flags().GetString("log-level")

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading %s: %w", configPath, err)
	}

	// The TOML log_level mirrors the CLI flag so it can be set file-side
	// too; the flag wins whenever the operator actually passed it.
	if !cmd.Flags().Changed("log-level") && cfg.LogLevel != "" {
		logLevel = cfg.LogLevel
	}

	logger, err := applog.New("vagabond", logLevel)
	if err != nil {
		return fmt.Errorf("starting logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	mgr := state.New(cfg)

	wirelessBroker := wireless.New(mgr, logger)
	daemonRegistry := daemons.New(cfg, mgr.Bus(), mgr, logger)
	configurator := system.New(cfg, mgr.Bus(), mgr, logger)

	app := &httpapi.App{
		Wireless: wirelessBroker,
		Daemons:  daemonRegistry,
		System:   configurator,
	}
	if err := mgr.SetAppInstance(app); err != nil {
		return fmt.Errorf("installing app instance: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := configurator.Run(ctx); err != nil {
		return fmt.Errorf("system configurator startup: %w", err)
	}
	if err := daemonRegistry.SpawnAll(); err != nil {
		return fmt.Errorf("daemon adapter startup: %w", err)
	}

	wirelessBroker.Start()
	go registerSignalAgentWhenReady(wirelessBroker, logger)

	server := httpapi.New(mgr, logger)
	serverErr := make(chan error, 1)
	go func() { serverErr <- server.Serve(ctx) }()

	mgr.FinishStartup()
	logger.Infow("vagabond started", "config", configPath)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		logger.Infow("shutdown requested", "signal", s.String())
	case err := <-serverErr:
		if err != nil {
			logger.Errorw("http server exited", "error", err)
		}
	}

	cancel()
	mgr.Shutdown()
	return nil
}

// registerSignalAgentWhenReady polls the wireless broker's connection state
// once a second and registers the optional signal-level agent once a system
// bus connection is up, rather than racing Start()'s asynchronous connect.
// After ten polls without a connection it gives up without registering.
func registerSignalAgentWhenReady(br *wireless.Broker, logger *zap.SugaredLogger) {
	for attempt := 0; attempt < 10; attempt++ {
		time.Sleep(time.Second)
		if br.State() != "connected" {
			continue
		}
		if err := br.RegisterSignalAgent(); err != nil {
			logger.Warnw("signal-level agent registration failed", "error", err)
			return
		}
		logger.Infow("signal-level agent registered")
		return
	}
}
