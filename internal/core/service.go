package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/bomquote/internal/bom"
	"github.com/JonMunkholm/bomquote/internal/logging"
	"github.com/JonMunkholm/bomquote/internal/metrics"
)

// CatalogProvider returns the catalog snapshot new uploads are matched
// against. *catalog.Cache implements it.
type CatalogProvider interface {
	Catalog(ctx context.Context) (*bom.Catalog, error)
}

// Service owns upload sessions. Each upload is processed once by the engine
// and then lives in memory, keyed by a random session ID, until it is closed
// or has been idle for longer than the session TTL.
type Service struct {
	engine   *bom.Engine
	catalogs CatalogProvider
	metrics  *metrics.Metrics
	limiter  *UploadLimiter
	opts     Options
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

// session keeps the catalog snapshot the upload was matched against, so
// suggestions and manual mappings stay consistent with the scores shown.
type session struct {
	id       string
	result   *bom.UploadResult
	catalog  *bom.Catalog
	created  time.Time
	lastUsed time.Time
}

// NewService creates a Service. A nil m records into a private registry.
func NewService(engine *bom.Engine, catalogs CatalogProvider, m *metrics.Metrics, opts Options) *Service {
	if m == nil {
		m = metrics.NewNop()
	}
	opts = opts.withDefaults()
	return &Service{
		engine:   engine,
		catalogs: catalogs,
		metrics:  m,
		limiter:  NewUploadLimiter(opts.MaxConcurrent, opts.MaxWaitTime),
		opts:     opts,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// Options returns the effective options.
func (s *Service) Options() Options { return s.opts }

// Health reports the number of live sessions and the limiter state.
func (s *Service) Health() HealthStatus {
	s.mu.Lock()
	n := len(s.sessions)
	s.mu.Unlock()
	return HealthStatus{Sessions: n, Uploads: s.limiter.Status()}
}

// Shutdown waits for running uploads to finish or ctx to end.
func (s *Service) Shutdown(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// store registers a processed upload under a new session ID.
func (s *Service) store(res *bom.UploadResult, c *bom.Catalog) (*UploadSession, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.sessions) >= s.opts.MaxSessions {
		s.sweepLocked(now)
		if len(s.sessions) >= s.opts.MaxSessions {
			return nil, fmt.Errorf("%w: limit is %d", ErrTooManySessions, s.opts.MaxSessions)
		}
	}

	sess := &session{
		id:       uuid.NewString(),
		result:   res,
		catalog:  c,
		created:  now,
		lastUsed: now,
	}
	s.sessions[sess.id] = sess
	s.metrics.SessionsActive.Set(float64(len(s.sessions)))

	return &UploadSession{ID: sess.id, ExpiresAt: now.Add(s.opts.SessionTTL), Result: res}, nil
}

// session looks up a live session and refreshes its idle timer.
func (s *Service) session(ctx context.Context, id string) (*session, context.Context, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ctx, fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}

	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ctx, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if s.expired(sess, now) {
		delete(s.sessions, id)
		s.metrics.SessionsActive.Set(float64(len(s.sessions)))
		return nil, ctx, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	sess.lastUsed = now
	return sess, logging.WithSession(ctx, id), nil
}

func (s *Service) expired(sess *session, now time.Time) bool {
	return now.Sub(sess.lastUsed) >= s.opts.SessionTTL
}

// Close discards a session.
func (s *Service) Close(ctx context.Context, id string) error {
	sess, ctx, err := s.session(ctx, id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.sessions, sess.id)
	s.metrics.SessionsActive.Set(float64(len(s.sessions)))
	s.mu.Unlock()

	logging.FromContext(ctx).Info("upload session closed",
		"age", s.now().Sub(sess.created).Round(time.Second).String(),
	)
	return nil
}
