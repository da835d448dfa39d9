package core

// scheduler.go removes idle upload sessions in the background.
//
// Sessions are also checked on access, so the sweeper only bounds memory
// held by sessions nobody comes back to. It runs every CleanupInterval until
// its context is cancelled.

import (
	"context"
	"log/slog"
	"time"
)

// StartSessionSweeper blocks, sweeping expired sessions every
// CleanupInterval, until ctx is cancelled.
func (s *Service) StartSessionSweeper(ctx context.Context) {
	slog.Info("session sweeper started",
		"interval", s.opts.CleanupInterval.String(),
		"session_ttl", s.opts.SessionTTL.String(),
	)

	ticker := time.NewTicker(s.opts.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session sweeper stopped")
			return
		case <-ticker.C:
			s.SweepExpired()
		}
	}
}

// SweepExpired removes every expired session and returns how many were
// removed.
func (s *Service) SweepExpired() int {
	start := time.Now()

	s.mu.Lock()
	removed := s.sweepLocked(s.now())
	remaining := len(s.sessions)
	s.mu.Unlock()

	if removed > 0 {
		slog.Info("expired upload sessions removed",
			"removed", removed,
			"remaining", remaining,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
	return removed
}

// sweepLocked must be called with s.mu held.
func (s *Service) sweepLocked(now time.Time) int {
	removed := 0
	for id, sess := range s.sessions {
		if s.expired(sess, now) {
			delete(s.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		s.metrics.SessionsActive.Set(float64(len(s.sessions)))
	}
	return removed
}
