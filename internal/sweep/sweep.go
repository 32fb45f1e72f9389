// Package sweep runs the periodic background passes: flipping expired
// auctions to archived (plus bounded retention cleanup) and escalating
// expired-unawarded auctions to operators. Each pass takes a postgres
// advisory lock first so overlapping runs across instances are impossible.
package sweep

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const (
	archiveLockKey    int64 = 0x41554354 // "AUCT"
	escalationLockKey int64 = 0x4553434C // "ESCL"
)

type Locker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (bool, error)
	AdvisoryUnlock(ctx context.Context, key int64) error
}

type Archiver interface {
	ArchiveExpired(ctx context.Context) (int64, error)
	CleanupRetention(ctx context.Context, retention time.Duration, limit int) (int64, error)
}

type Escalator interface {
	EscalateExpiredUnawarded(ctx context.Context)
}

type Config struct {
	ArchiveInterval    time.Duration
	EscalationInterval time.Duration
	Retention          time.Duration
	CleanupBatchSize   int
}

type Sweeper struct {
	locks     Locker
	archiver  Archiver
	escalator Escalator
	cfg       Config
	log       zerolog.Logger
}

func New(locks Locker, archiver Archiver, escalator Escalator, cfg Config, log zerolog.Logger) *Sweeper {
	if cfg.CleanupBatchSize <= 0 {
		cfg.CleanupBatchSize = 500
	}
	return &Sweeper{
		locks:     locks,
		archiver:  archiver,
		escalator: escalator,
		cfg:       cfg,
		log:       log,
	}
}

// Run starts both sweep loops and blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	archive := time.NewTicker(s.cfg.ArchiveInterval)
	escalate := time.NewTicker(s.cfg.EscalationInterval)
	defer archive.Stop()
	defer escalate.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-archive.C:
			s.runArchive(ctx)
		case <-escalate.C:
			s.runEscalation(ctx)
		}
	}
}

func (s *Sweeper) runArchive(ctx context.Context) {
	s.singleFlight(ctx, archiveLockKey, func() {
		archived, err := s.archiver.ArchiveExpired(ctx)
		if err != nil {
			s.log.Error().Err(err).Msg("archive sweep")
			return
		}
		if archived > 0 {
			s.log.Info().Int64("archived", archived).Msg("archive sweep complete")
		}

		if s.cfg.Retention <= 0 {
			return
		}
		deleted, err := s.archiver.CleanupRetention(ctx, s.cfg.Retention, s.cfg.CleanupBatchSize)
		if err != nil {
			s.log.Error().Err(err).Msg("retention cleanup")
			return
		}
		if deleted > 0 {
			s.log.Info().Int64("deleted", deleted).Msg("retention cleanup complete")
		}
	})
}

func (s *Sweeper) runEscalation(ctx context.Context) {
	s.singleFlight(ctx, escalationLockKey, func() {
		s.escalator.EscalateExpiredUnawarded(ctx)
	})
}

func (s *Sweeper) singleFlight(ctx context.Context, key int64, run func()) {
	acquired, err := s.locks.TryAdvisoryLock(ctx, key)
	if err != nil {
		s.log.Error().Err(err).Int64("key", key).Msg("advisory lock")
		return
	}
	if !acquired {
		return
	}
	defer func() {
		if err := s.locks.AdvisoryUnlock(ctx, key); err != nil {
			s.log.Error().Err(err).Int64("key", key).Msg("advisory unlock")
		}
	}()
	run()
}
