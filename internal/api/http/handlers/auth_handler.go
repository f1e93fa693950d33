package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grievance-service/internal/api/dto"
	"github.com/spec-kit/grievance-service/internal/auth"
	"github.com/spec-kit/grievance-service/internal/service"
	apperrors "github.com/spec-kit/grievance-service/pkg/util"
)

// Sessions issues tokens.
type Sessions interface {
	Login(ctx context.Context, userCode, password string) (*service.Session, error)
	SwitchUnit(ctx context.Context, p *auth.Principal, unitID string) (*service.Session, error)
}

// AuthHandler exposes login and unit switching.
type AuthHandler struct {
	sessions Sessions
}

// NewAuthHandler constructs handler.
func NewAuthHandler(sessions Sessions) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

// Login handles POST /Auth/Login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	session, err := h.sessions.Login(c.UserContext(), req.UserCode, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": sessionResponse(session)})
}

// SwitchUnit handles POST /Auth/SwitchUnit.
func (h *AuthHandler) SwitchUnit(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.SwitchUnitRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	session, err := h.sessions.SwitchUnit(c.UserContext(), principal, req.UnitID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": sessionResponse(session)})
}

func sessionResponse(s *service.Session) dto.AuthResponse {
	return dto.AuthResponse{
		Token:     s.Token,
		ExpiresAt: s.ExpiresAt,
		UnitID:    s.UnitID,
		Employee:  dto.NewEmployeeResponse(s.Employee),
	}
}

func requirePrincipal(c *fiber.Ctx) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Employee == nil {
		return nil, apperrors.NewUnauthorized("employee required")
	}
	return principal, nil
}
