package service

import (
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/grievance-service/internal/routing"
	apperrors "github.com/spec-kit/grievance-service/pkg/util"
)

// ErrNoHQUnit means no unit is flagged as headquarters, so HOD groups cannot resolve.
var ErrNoHQUnit = errors.New("no headquarters unit: flag one unit is_hq or set ROUTING_HQ_UNIT_ID")

// routingError converts routing sentinels into domain errors the HTTP layer can render.
func routingError(err error) error {
	if err == nil {
		return nil
	}
	details := map[string]any{"reason": err.Error()}
	switch {
	case errors.Is(err, routing.ErrCommentRequired),
		errors.Is(err, routing.ErrReasonRequired),
		errors.Is(err, routing.ErrTargetRequired),
		errors.Is(err, routing.ErrInvalidTarget),
		errors.Is(err, routing.ErrTargetNotMapped):
		return apperrors.NewValidationError(err.Error(), details)
	case errors.Is(err, routing.ErrNotHolder),
		errors.Is(err, routing.ErrTransitionNotAllowed),
		errors.Is(err, routing.ErrInvalidStatus):
		return apperrors.NewForbidden(err.Error())
	case errors.Is(err, routing.ErrNoMappedUsers),
		errors.Is(err, routing.ErrAppealLimit):
		return apperrors.NewConflict(err.Error(), details)
	}
	return apperrors.MapError(err)
}

// notFound maps pgx.ErrNoRows to a NOT_FOUND for resource and passes other errors through.
func notFound(err error, resource string, details map[string]any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, details)
	}
	return apperrors.MapError(err)
}

// outcome is the metrics label of a transition result.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return apperrors.ToDomainError(routingError(err)).Code
}
