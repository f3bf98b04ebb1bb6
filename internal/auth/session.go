package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Session owns the current bearer token for one connection.
//
// All mutation happens under mu, which is also held across the token
// exchange, so at most one refresh is in flight per session.
type Session struct {
	source   Source
	loginURL string
	logger   *slog.Logger

	mu         sync.Mutex
	token      Token
	generation uint64
	broken     *RefreshError
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithLoginURL names the token endpoint in errors from sources that do
// not report it themselves.
func WithLoginURL(loginURL string) SessionOption {
	return func(s *Session) {
		s.loginURL = loginURL
	}
}

// NewSession creates a session with no token. The first Current call
// acquires one.
func NewSession(source Source, opts ...SessionOption) *Session {
	s := &Session{source: source, logger: slog.Default()}
	if ps, ok := source.(*PasswordSource); ok {
		s.loginURL = ps.LoginURL()
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Current returns the token and its generation, acquiring a token if none
// has been issued yet. A broken session returns its RefreshError.
func (s *Session) Current(ctx context.Context) (Token, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.broken != nil {
		return Token{}, s.generation, s.broken
	}
	if s.generation == 0 {
		if err := s.acquireLocked(ctx); err != nil {
			return Token{}, s.generation, err
		}
	}
	return s.token, s.generation, nil
}

// Refresh replaces the token used at generation stale. When another caller
// has already refreshed past stale, the newer token is returned without a
// second exchange.
func (s *Session) Refresh(ctx context.Context, stale uint64) (Token, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.broken != nil {
		return Token{}, s.generation, s.broken
	}
	if s.generation != stale {
		return s.token, s.generation, nil
	}

	s.logger.Info("access token may be expired, refreshing", "generation", stale)
	if err := s.acquireLocked(ctx); err != nil {
		return Token{}, s.generation, err
	}
	return s.token, s.generation, nil
}

// Reconnect performs a fresh token exchange regardless of state and
// clears a broken session on success.
func (s *Session) Reconnect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.broken = nil
	return s.acquireLocked(ctx)
}

// Broken returns the error that broke the session, or nil.
func (s *Session) Broken() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.broken == nil {
		return nil
	}
	return s.broken
}

// Generation returns the number of tokens issued so far.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

func (s *Session) acquireLocked(ctx context.Context) error {
	tok, err := s.source.Token(ctx)
	if err == nil && !tok.Valid() {
		err = errInvalidToken
	}
	if err != nil {
		// A caller giving up is not a credential failure; the session stays
		// usable for everyone else.
		if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			s.logger.Warn("token refresh abandoned", "error", err)
			return fmt.Errorf("token refresh abandoned: %w", err)
		}
		var re *RefreshError
		if !errors.As(err, &re) {
			re = NewRefreshError(s.loginURL, err)
		}
		s.broken = re
		s.logger.Error("token refresh failed", "error", err)
		return re
	}

	s.token = tok
	s.generation++
	s.logger.Debug("token issued", "generation", s.generation, "instance_url", tok.InstanceURL)
	return nil
}
