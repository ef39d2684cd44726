// Package prober waits for a freshly spawned player to appear on the bus.
package prober

import (
	"context"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/genricoloni/adskip/internal/domain"
	"go.uber.org/zap"
)

// Prober pings the player at a fixed interval until it answers
type Prober struct {
	logger   *zap.Logger
	remote   domain.Remote
	interval time.Duration
}

// NewProber creates a prober using the configured probe interval
func NewProber(logger *zap.Logger, remote domain.Remote, cfg domain.Config) *Prober {
	return newProber(logger, remote, cfg.GetProbeInterval())
}

func newProber(logger *zap.Logger, remote domain.Remote, interval time.Duration) *Prober {
	return &Prober{
		logger:   logger,
		remote:   remote,
		interval: interval,
	}
}

// WaitReady issues org.freedesktop.DBus.Peer.Ping until one succeeds or
// timeout elapses. A cancelled parent context is returned as is.
func (p *Prober) WaitReady(ctx context.Context, timeout time.Duration) error {
	readyCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	attempts := 0
	ping := func() error {
		attempts++
		return p.remote.Call(readyCtx, domain.PeerInterface, domain.MethodPing)
	}

	policy := backoff.WithContext(backoff.NewConstantBackOff(p.interval), readyCtx)
	err := backoff.RetryNotify(ping, policy, func(err error, next time.Duration) {
		p.logger.Debug("Player not ready yet",
			zap.Int("attempt", attempts),
			zap.Duration("retry_in", next),
			zap.Error(err))
	})

	if err == nil {
		p.logger.Info("Player is ready",
			zap.Int("attempts", attempts),
			zap.Duration("elapsed", time.Since(start)))
		return nil
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}

	p.logger.Error("Player did not become ready",
		zap.Duration("timeout", timeout),
		zap.Int("attempts", attempts),
		zap.Error(err))
	return &domain.ReadyTimeoutError{Timeout: timeout}
}
