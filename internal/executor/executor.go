package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/genricoloni/adskip/internal/domain"
	"go.uber.org/zap"
)

// Launcher spawns the player executable
type Launcher struct {
	logger    *zap.Logger
	binary    string
	args      []string
	killGrace time.Duration
}

// NewLauncher creates a launcher for the configured player binary
func NewLauncher(logger *zap.Logger, cfg domain.Config) *Launcher {
	return &Launcher{
		logger:    logger,
		binary:    cfg.GetPlayerBinary(),
		args:      cfg.GetPlayerArgs(),
		killGrace: cfg.GetKillGrace(),
	}
}

// Spawn starts the player. The process is not bound to ctx, so the
// player keeps running when the supervisor exits.
func (l *Launcher) Spawn(ctx context.Context) (domain.Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cmd := exec.Command(l.binary, l.args...)
	cmd.SysProcAttr = sysProcAttr()

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", l.binary, err)
	}

	p := &Process{
		logger:    l.logger,
		cmd:       cmd,
		killGrace: l.killGrace,
		done:      make(chan struct{}),
	}
	go p.wait()

	l.logger.Info("Player spawned",
		zap.String("binary", l.binary),
		zap.Strings("args", l.args),
		zap.Int("pid", p.Pid()))
	return p, nil
}

// Process is a spawned player. It is reaped by a background goroutine so
// HasExited never blocks.
type Process struct {
	logger    *zap.Logger
	cmd       *exec.Cmd
	killGrace time.Duration

	done    chan struct{} // closed once the process has been reaped
	waitErr error
}

func (p *Process) wait() {
	p.waitErr = p.cmd.Wait()
	close(p.done)
}

// Pid returns the OS process id
func (p *Process) Pid() int {
	if p.cmd == nil || p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// HasExited reports whether the player is gone
func (p *Process) HasExited() domain.ExitState {
	if p.cmd == nil || p.cmd.Process == nil || p.done == nil {
		return domain.ProcessUnknown
	}
	select {
	case <-p.done:
		return domain.ProcessExited
	default:
		return domain.ProcessRunning
	}
}

// KillAndWait asks the player to terminate, escalates to SIGKILL after the
// grace period, and returns only once the process has been reaped
func (p *Process) KillAndWait() error {
	if p.HasExited() == domain.ProcessUnknown {
		return errors.New("no process to stop")
	}

	select {
	case <-p.done:
		p.logger.Debug("Player already exited", zap.Int("pid", p.Pid()))
		return nil
	default:
	}

	if err := terminate(p.cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("failed to signal player (pid %d): %w", p.Pid(), err)
	}

	timer := time.NewTimer(p.killGrace)
	defer timer.Stop()

	select {
	case <-p.done:
	case <-timer.C:
		p.logger.Warn("Player ignored termination request, killing",
			zap.Int("pid", p.Pid()),
			zap.Duration("grace", p.killGrace))
		if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return fmt.Errorf("failed to kill player (pid %d): %w", p.Pid(), err)
		}
		<-p.done
	}

	// A non-zero status is expected here: we just killed it
	p.logger.Info("Player stopped",
		zap.Int("pid", p.Pid()),
		zap.String("status", exitStatus(p.waitErr)))
	return nil
}

func exitStatus(err error) string {
	if err == nil {
		return "exit status 0"
	}
	return err.Error()
}
