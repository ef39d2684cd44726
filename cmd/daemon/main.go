package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/genricoloni/adskip/internal/classifier"
	"github.com/genricoloni/adskip/internal/config"
	"github.com/genricoloni/adskip/internal/domain"
	"github.com/genricoloni/adskip/internal/engine"
	"github.com/genricoloni/adskip/internal/executor"
	"github.com/genricoloni/adskip/internal/monitor"
	"github.com/genricoloni/adskip/internal/prober"
	"github.com/spf13/pflag"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// AppOptions wires the daemon. The parsed command line is supplied by the caller.
var AppOptions = fx.Options(
	fx.Provide(
		config.Load,
		func(cfg *config.AppConfig) domain.Config { return cfg },
		newLogger,
		newRemote,
		fx.Annotate(prober.NewProber, fx.As(new(domain.Prober))),
		fx.Annotate(executor.NewLauncher, fx.As(new(domain.Launcher))),
		newClassifier,
		engine.NewEngine,
	),
	fx.Invoke(registerHooks),
)

func main() {
	flags := config.Flags()
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	app := fx.New(
		AppOptions,
		fx.Supply(flags),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
	)

	os.Exit(run(app))
}

// run starts the app, waits for the engine or a signal to end it and
// returns the process exit code
func run(app *fx.App) int {
	startCtx, cancel := context.WithTimeout(context.Background(), app.StartTimeout())
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		fmt.Fprintf(os.Stderr, "adskip: %v\n", err)
		return 1
	}

	// SIGINT/SIGTERM arrive here with exit code 0
	sig := <-app.Wait()

	stopCtx, cancel := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		fmt.Fprintf(os.Stderr, "adskip: %v\n", err)
		if sig.ExitCode == 0 {
			return 1
		}
	}
	return sig.ExitCode
}

// newLogger creates a production zap logger at the configured level
func newLogger(cfg *config.AppConfig) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.GetLogLevel())
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = level
	return zapCfg.Build()
}

// newRemote connects to the session bus; the connection is closed when the app stops
func newRemote(lc fx.Lifecycle, logger *zap.Logger, cfg domain.Config) (domain.Remote, error) {
	mon, err := monitor.NewMprisMonitor(logger, cfg)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return mon.Close()
		},
	})
	return mon, nil
}

func newClassifier(cfg domain.Config) (classifier.Func, error) {
	return classifier.ForMode(cfg.GetClassifierMode())
}

// registerHooks sets up application lifecycle hooks
func registerHooks(lc fx.Lifecycle, logger *zap.Logger, cfg *config.AppConfig, eng *engine.Engine) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("adskip daemon started")
			cfg.Log(logger)
			return eng.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down")
			err := eng.Stop(ctx)
			_ = logger.Sync()
			return err
		},
	})
}
