package handler

import (
	"context"

	"coursecatalog/internal/apperr"
	"coursecatalog/internal/middleware"
	"coursecatalog/internal/model"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

func principalFrom(ctx context.Context) (model.Principal, error) {
	p, ok := middleware.PrincipalFromContext(ctx)
	if !ok || p.UserID == "" {
		return model.Principal{}, huma.Error401Unauthorized("User ID not found in context")
	}
	return p, nil
}

// validateBody runs the validator tags huma does not understand.
func validateBody(validate *validator.Validate, body any) error {
	if err := validate.Struct(body); err != nil {
		return huma.Error400BadRequest("Validation failed: " + err.Error())
	}
	return nil
}

// toHumaError maps a service error to its HTTP status. Internal failures are
// logged and answered with a fixed message.
func toHumaError(logger zerolog.Logger, err error, action string) error {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return huma.Error404NotFound(apperr.PublicMessage(err))
	case apperr.KindForbidden:
		return huma.Error403Forbidden(apperr.PublicMessage(err))
	case apperr.KindInvalidRequest:
		return huma.Error400BadRequest(apperr.PublicMessage(err))
	default:
		logger.Error().Err(err).Msg("Failed to " + action)
		return huma.Error500InternalServerError("Failed to " + action)
	}
}

func parseStatus(s *string) (*model.Status, error) {
	if s == nil {
		return nil, nil
	}
	status, err := model.ParseStatus(*s)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	return &status, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
