package workflow

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/api/dto"
)

// Authenticator is the auth part of the grievance client.
type Authenticator interface {
	Login(ctx context.Context, userCode, password string) (*dto.AuthResponse, error)
	SwitchUnit(ctx context.Context, unitID string) (*dto.AuthResponse, error)
	Logout()
}

// Session tracks the signed-in employee and keeps References in step with it: the cache is
// refreshed on login and unit switch and cleared on teardown.
type Session struct {
	auth   Authenticator
	refs   *References
	logger *zap.Logger

	mu      sync.RWMutex
	current *dto.AuthResponse
}

// NewSession builds a signed-out session.
func NewSession(auth Authenticator, refs *References, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{auth: auth, refs: refs, logger: logger}
}

// Login signs in and loads the reference lists.
func (s *Session) Login(ctx context.Context, userCode, password string) (*dto.AuthResponse, error) {
	resp, err := s.auth.Login(ctx, userCode, password)
	if err != nil {
		return nil, err
	}
	s.set(resp)
	s.refresh(ctx, resp.UnitID)
	return resp, nil
}

// SwitchUnit re-scopes the session and reloads the reference lists.
func (s *Session) SwitchUnit(ctx context.Context, unitID string) (*dto.AuthResponse, error) {
	resp, err := s.auth.SwitchUnit(ctx, unitID)
	if err != nil {
		return nil, err
	}
	s.set(resp)
	s.refresh(ctx, resp.UnitID)
	return resp, nil
}

// Current is the active session, nil when signed out.
func (s *Session) Current() *dto.AuthResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Teardown signs out locally. It is safe to call from the client's 401 hook.
func (s *Session) Teardown() {
	s.auth.Logout()
	s.set(nil)
	s.refs.Clear()
}

func (s *Session) set(resp *dto.AuthResponse) {
	s.mu.Lock()
	s.current = resp
	s.mu.Unlock()
}

// refresh failures keep the session; the previous snapshot stays readable.
func (s *Session) refresh(ctx context.Context, unitID string) {
	if err := s.refs.Refresh(ctx, unitID); err != nil {
		s.logger.Warn("reference refresh failed", zap.String("unit_id", unitID), zap.Error(err))
	}
}
