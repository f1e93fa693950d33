package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/auth"
	"github.com/spec-kit/grievance-service/internal/cache"
	"github.com/spec-kit/grievance-service/internal/config"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/repository"
	apperrors "github.com/spec-kit/grievance-service/pkg/util"
)

// Session is the result of a successful login or unit switch.
type Session struct {
	Employee  *domain.Employee
	UnitID    string
	Token     string
	ExpiresAt time.Time
}

// AuthService coordinates login and unit switching.
type AuthService struct {
	employees  repository.EmployeeRepository
	units      repository.UnitRepository
	groups     repository.GroupRepository
	cache      *cache.ReferenceCache
	tokenMgr   *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	EmployeeRepo repository.EmployeeRepository
	UnitRepo     repository.UnitRepository
	GroupRepo    repository.GroupRepository
	Cache        *cache.ReferenceCache
	Logger       *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		employees:  deps.EmployeeRepo,
		units:      deps.UnitRepo,
		groups:     deps.GroupRepo,
		cache:      deps.Cache,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
		logger:     logger,
	}
}

// Login authenticates an employee against their home unit.
func (s *AuthService) Login(ctx context.Context, userCode, password string) (*Session, error) {
	userCode = strings.TrimSpace(userCode)
	if userCode == "" || password == "" {
		return nil, apperrors.NewValidationError("userCode and password are required", nil)
	}
	employee, err := s.employees.GetByUserCode(ctx, userCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.MapError(err)
	}
	if !employee.Active {
		return nil, apperrors.NewUnauthorized("employee inactive")
	}
	if err := auth.ComparePassword(employee.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	return s.issue(ctx, employee, employee.UnitID)
}

// SwitchUnit re-issues the caller's token for another unit. Employees may act for their
// home unit and any unit they are mapped in; admins may act for any unit.
func (s *AuthService) SwitchUnit(ctx context.Context, p *auth.Principal, unitID string) (*Session, error) {
	if p == nil || p.Employee == nil {
		return nil, apperrors.NewUnauthorized("employee required")
	}
	unitID = strings.TrimSpace(unitID)
	if unitID == "" {
		return nil, apperrors.NewValidationError("unitId required", nil)
	}
	if _, err := s.units.GetByID(ctx, unitID); err != nil {
		return nil, notFound(err, "unit", map[string]any{"unit_id": unitID})
	}
	allowed, err := s.mayActFor(ctx, p, unitID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !allowed {
		return nil, apperrors.NewForbidden("not mapped to unit")
	}
	return s.issue(ctx, p.Employee, unitID)
}

// RegisterEmployee creates an employee account with a hashed password.
func (s *AuthService) RegisterEmployee(ctx context.Context, employee domain.Employee, password string) (*domain.Employee, error) {
	employee.UserCode = strings.TrimSpace(employee.UserCode)
	employee.Name = strings.TrimSpace(employee.Name)
	if employee.UserCode == "" || employee.Name == "" || employee.UnitID == "" {
		return nil, apperrors.NewValidationError("userCode, name and unitId are required", nil)
	}
	if len(password) < 8 {
		return nil, apperrors.NewValidationError("password must be at least 8 characters", nil)
	}
	if _, err := s.employees.GetByUserCode(ctx, employee.UserCode); err == nil {
		return nil, apperrors.NewConflict("employee already registered", map[string]any{"user_code": employee.UserCode})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}
	if _, err := s.units.GetByID(ctx, employee.UnitID); err != nil {
		return nil, notFound(err, "unit", map[string]any{"unit_id": employee.UnitID})
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	employee.PasswordHash = hash
	employee.Active = true
	if err := s.employees.Create(ctx, &employee); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.cache.Refresh(ctx, employee.UnitID); err != nil {
		s.logger.Warn("reference cache refresh failed", zap.Error(err))
	}
	employee.PasswordHash = ""
	return &employee, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) mayActFor(ctx context.Context, p *auth.Principal, unitID string) (bool, error) {
	if p.IsAdmin || p.Employee.IsAdmin || p.Employee.UnitID == unitID {
		return true, nil
	}
	memberships, err := s.groups.MembershipsByUser(ctx, p.Employee.UserCode)
	if err != nil {
		return false, err
	}
	for _, m := range memberships {
		if m.UnitID == unitID {
			return true, nil
		}
	}
	return false, nil
}

func (s *AuthService) issue(ctx context.Context, employee *domain.Employee, unitID string) (*Session, error) {
	token, exp, err := s.tokenMgr.GenerateToken(employee.UserCode, unitID, employee.IsAdmin)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if err := s.cache.Refresh(ctx, unitID); err != nil {
		s.logger.Warn("reference cache refresh failed", zap.String("unit_id", unitID), zap.Error(err))
	}
	s.logger.Info("session issued",
		zap.String("user_code", employee.UserCode),
		zap.String("unit_id", unitID))

	out := *employee
	out.PasswordHash = ""
	return &Session{Employee: &out, UnitID: unitID, Token: token, ExpiresAt: exp}, nil
}
