package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/genricoloni/adskip/internal/classifier"
	"github.com/genricoloni/adskip/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// sdNotify is swapped out in tests
var sdNotify = daemon.SdNotify

// Engine supervises the player: it watches property and ownership changes,
// restarts the player whenever an ad starts and exits once the player goes
// away on its own.
type Engine struct {
	logger     *zap.Logger
	cfg        domain.Config
	remote     domain.Remote
	launcher   domain.Launcher
	prober     domain.Prober
	isAd       classifier.Func
	shutdowner fx.Shutdowner

	// policy is only written by the loop; atomic so Policy can be read from outside
	policy  atomic.Int32
	process domain.Process

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewEngine creates a new supervision engine
func NewEngine(
	logger *zap.Logger,
	cfg domain.Config,
	remote domain.Remote,
	launcher domain.Launcher,
	prober domain.Prober,
	isAd classifier.Func,
	shutdowner fx.Shutdowner,
) *Engine {
	return &Engine{
		logger:     logger,
		cfg:        cfg,
		remote:     remote,
		launcher:   launcher,
		prober:     prober,
		isAd:       isAd,
		shutdowner: shutdowner,
	}
}

// Policy returns what the engine will do with the next ownership loss
func (e *Engine) Policy() domain.OwnerLossPolicy {
	return domain.OwnerLossPolicy(e.policy.Load())
}

func (e *Engine) setPolicy(p domain.OwnerLossPolicy) {
	old := e.Policy()
	e.policy.Store(int32(p))
	if old != p {
		e.logger.Debug("Owner loss policy changed",
			zap.Stringer("from", old),
			zap.Stringer("to", p))
	}
}

// Run starts the player and supervises it until the player goes away on its
// own or either event stream ends, both of which return nil. Any failure to
// start, restart or resume the player is returned as an error.
func (e *Engine) Run(ctx context.Context) error {
	e.setPolicy(domain.ExitOnLoss)

	// Subscribe before spawning so the first notifications are not missed
	properties, err := e.remote.SubscribeProperties(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to property changes: %w", err)
	}
	ownership, err := e.remote.SubscribeOwnership(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to ownership changes: %w", err)
	}

	proc, err := e.launcher.Spawn(ctx)
	if err != nil {
		return fmt.Errorf("spawn player: %w", err)
	}
	e.process = proc
	e.logger.Info("Player started", zap.Int("pid", proc.Pid()))

	if err := e.prober.WaitReady(ctx, e.cfg.GetStartupTimeout()); err != nil {
		return fmt.Errorf("wait for player: %w", err)
	}
	if err := e.remote.Call(ctx, domain.PlayerInterface, domain.MethodPlay); err != nil {
		return fmt.Errorf("call %s: %w", domain.MethodPlay, err)
	}

	if _, err := sdNotify(false, daemon.SdNotifyReady); err != nil {
		e.logger.Warn("Failed to notify systemd", zap.Error(err))
	}
	e.logger.Info("Supervising player",
		zap.String("service", e.cfg.GetServiceName()),
		zap.Stringer("policy", e.Policy()))

	for {
		select {
		case event, ok := <-properties:
			if !ok {
				e.logger.Info("Property change stream closed, stopping supervision")
				return nil
			}
			if err := e.handleProperties(ctx, event); err != nil {
				return err
			}

		case event, ok := <-ownership:
			if !ok {
				e.logger.Info("Ownership change stream closed, stopping supervision")
				return nil
			}
			if e.handleOwnership(event) {
				return nil
			}
		}
	}
}

func (e *Engine) handleProperties(ctx context.Context, event domain.PropertiesChanged) error {
	trackID, ok := event.TrackID()
	if !ok {
		return nil
	}
	if !e.isAd(trackID) {
		e.logger.Debug("Track changed", zap.String("trackId", string(trackID)))
		return nil
	}

	logger := e.logger.With(zap.String("restart_id", uuid.NewString()))
	logger.Info("Ad detected, restarting player", zap.String("trackId", string(trackID)))

	if err := e.restartAndResume(ctx, logger); err != nil {
		logger.Error("Restart failed", zap.Error(err))
		return err
	}
	// The kill above drops the bus name; that loss is ours
	e.setPolicy(domain.IgnoreNextLoss)
	logger.Info("Player restarted", zap.Int("pid", e.process.Pid()))
	return nil
}

// restartAndResume replaces the player process and resumes playback on the
// next track. The old process is fully gone before the new one is spawned.
func (e *Engine) restartAndResume(ctx context.Context, logger *zap.Logger) error {
	if e.process != nil {
		if err := e.process.KillAndWait(); err != nil {
			return fmt.Errorf("stop player: %w", err)
		}
		e.process = nil
	}

	proc, err := e.launcher.Spawn(ctx)
	if err != nil {
		return fmt.Errorf("spawn player: %w", err)
	}
	e.process = proc
	logger.Debug("Player respawned", zap.Int("pid", proc.Pid()))

	if err := e.prober.WaitReady(ctx, e.cfg.GetRestartTimeout()); err != nil {
		return fmt.Errorf("wait for player: %w", err)
	}

	for _, method := range []string{domain.MethodPlay, domain.MethodNext} {
		if err := e.remote.Call(ctx, domain.PlayerInterface, method); err != nil {
			if e.cfg.GetLenientCommands() {
				logger.Warn("Player command failed, continuing",
					zap.String("method", method),
					zap.Error(err))
				continue
			}
			return fmt.Errorf("call %s: %w", method, err)
		}
	}
	return nil
}

// handleOwnership applies the owner loss policy and reports whether
// supervision should end
func (e *Engine) handleOwnership(event domain.OwnershipEvent) bool {
	if event.Kind == domain.OwnerGained {
		e.logger.Debug("Player acquired its bus name", zap.String("owner", event.Owner))
		return false
	}

	if e.Policy() == domain.IgnoreNextLoss {
		e.logger.Debug("Ignoring bus name loss caused by restart")
		e.setPolicy(domain.ExitOnLoss)
		return false
	}

	state := domain.ProcessUnknown
	if e.process != nil {
		state = e.process.HasExited()
	}
	e.logger.Info("Player left the bus, stopping supervision",
		zap.Stringer("processState", state))
	return true
}

// Start runs the supervision loop in the background and asks fx to shut
// down once it ends
func (e *Engine) Start(_ context.Context) error {
	e.logger.Info("Engine starting...")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	e.mu.Lock()
	e.cancel = cancel
	e.done = done
	e.mu.Unlock()

	go func() {
		err := e.Run(ctx)
		if _, nerr := sdNotify(false, daemon.SdNotifyStopping); nerr != nil {
			e.logger.Warn("Failed to notify systemd", zap.Error(nerr))
		}
		close(done)

		// Stop already in progress
		if ctx.Err() != nil {
			return
		}

		code := 0
		if err != nil {
			e.logger.Error("Supervision failed", zap.Error(err))
			code = 1
		}
		if e.shutdowner != nil {
			if serr := e.shutdowner.Shutdown(fx.ExitCode(code)); serr != nil {
				e.logger.Error("Failed to request shutdown", zap.Error(serr))
			}
		}
	}()
	return nil
}

// Stop cancels the supervision loop and waits for it to return. The player
// itself is left running.
func (e *Engine) Stop(ctx context.Context) error {
	e.logger.Info("Engine stopping...")

	e.mu.Lock()
	cancel, done := e.cancel, e.done
	e.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("supervision loop did not stop: %w", ctx.Err())
	}
}
