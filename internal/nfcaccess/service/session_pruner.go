package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/nfcaccess/server/internal/nfcaccess/store"
)

// SessionPruner periodically deletes pairing sessions whose expiry is older
// than a retention window.  The pairing engine never deletes sessions
// itself; this is an opt-in housekeeping loop.
//
// A retention of 0 disables pruning entirely.
type SessionPruner struct {
	store     store.Store
	retention time.Duration
	interval  time.Duration
	now       Clock
	logger    zerolog.Logger
	cancel    context.CancelFunc
	done      chan struct{}
}

type PrunerConfig struct {
	// RetentionHours is how long an expired session is kept for Status
	// polling and inspection.  0 keeps everything.
	RetentionHours int

	// IntervalMinutes is how often the pruner runs.  Defaults to 60.
	IntervalMinutes int
}

func NewSessionPruner(st store.Store, cfg PrunerConfig, clock Clock, logger zerolog.Logger) *SessionPruner {
	interval := time.Duration(cfg.IntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = time.Hour
	}

	return &SessionPruner{
		store:     st,
		retention: time.Duration(cfg.RetentionHours) * time.Hour,
		interval:  interval,
		now:       orSystem(clock),
		logger:    logger.With().Str("component", "session_pruner").Logger(),
		done:      make(chan struct{}),
	}
}

// Start runs one prune immediately, then one per interval, until ctx is
// cancelled or Stop is called.
func (p *SessionPruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		p.logger.Info().Msg("pairing session pruner disabled (retention=0)")
		close(p.done)
		return
	}

	ctx, p.cancel = context.WithCancel(ctx)
	go p.loop(ctx)

	p.logger.Info().
		Dur("retention", p.retention).
		Dur("interval", p.interval).
		Msg("pairing session pruner started")
}

// Stop signals the loop to exit and waits for it.  Safe to call repeatedly,
// and a no-op if the loop never started.
func (p *SessionPruner) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
}

func (p *SessionPruner) loop(ctx context.Context) {
	defer close(p.done)

	p.prune(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *SessionPruner) prune(ctx context.Context) {
	deleted, err := p.PruneOnce(ctx)
	if err != nil {
		p.logger.Error().Err(err).Msg("pairing session prune failed")
		return
	}
	if deleted > 0 {
		p.logger.Info().Int64("deleted", deleted).Msg("pruned expired pairing sessions")
	}
}

// PruneOnce deletes every session that expired before now minus retention.
func (p *SessionPruner) PruneOnce(ctx context.Context) (int64, error) {
	cutoff := p.now().Add(-p.retention)

	var deleted int64
	err := p.store.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		n, err := tx.DeletePairingSessionsExpiredBefore(ctx, cutoff)
		deleted = n
		return err
	})
	return deleted, err
}
