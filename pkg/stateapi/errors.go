package stateapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/statehistory/pkg/binder"
	"github.com/dmitrymomot/statehistory/pkg/handler"
	"github.com/dmitrymomot/statehistory/pkg/logger"
	"github.com/dmitrymomot/statehistory/pkg/statehistory"
	"github.com/dmitrymomot/statehistory/pkg/validator"
)

// Error codes of the API. The engine error is attached as the cause and
// becomes the message of the response.
var (
	ErrUnknownField      = handler.NewHTTPError(http.StatusNotFound, "unknown_field")
	ErrObjectNotFound    = handler.NewHTTPError(http.StatusNotFound, "object_not_found")
	ErrInvalidTransition = handler.NewHTTPError(http.StatusConflict, "invalid_transition")
	ErrStaleState        = handler.NewHTTPError(http.StatusConflict, "stale_state")
	ErrTransitionBlocked = handler.NewHTTPError(http.StatusForbidden, "transition_blocked")
	ErrMalformedRequest  = handler.NewHTTPError(http.StatusBadRequest, "invalid_request")
	ErrInvalidRequest    = handler.NewHTTPError(http.StatusUnprocessableEntity, "invalid_request")
	ErrEffectFailed      = handler.NewHTTPError(http.StatusInternalServerError, "effect_failed")
	ErrInternal          = handler.NewHTTPError(http.StatusInternalServerError, "internal_error")
)

// classify maps engine and binding errors to API errors.
// Validation errors pass through and answer 422 with per-field details.
// An effect failure means the transition was committed, so it gets its own code.
func classify(err error) error {
	var apiErr handler.HTTPError
	switch {
	case validator.IsValidationError(err):
		return err
	case binder.IsBindingError(err):
		apiErr = ErrMalformedRequest
	case statehistory.IsNoStateMachineError(err):
		apiErr = ErrUnknownField
	case errors.Is(err, statehistory.ErrObjectNotFound):
		apiErr = ErrObjectNotFound
	case statehistory.IsInvalidTransitionError(err):
		apiErr = ErrInvalidTransition
	case statehistory.IsStaleStateError(err):
		apiErr = ErrStaleState
	case statehistory.IsTransitionBlockedError(err):
		apiErr = ErrTransitionBlocked
	case errors.Is(err, statehistory.ErrEmptyTarget),
		errors.Is(err, statehistory.ErrEmptyField),
		errors.Is(err, statehistory.ErrInvalidIdentity):
		apiErr = ErrInvalidRequest
	case statehistory.IsEffectError(err):
		apiErr = ErrEffectFailed
	default:
		apiErr = ErrInternal
	}
	return apiErr.WithCause(err)
}

// fail renders err as a JSON error and logs server-side failures.
func (h *Handler) fail(ctx handler.Context, err error) handler.Response {
	apiErr := classify(err)

	var httpErr handler.HTTPError
	if errors.As(apiErr, &httpErr) && httpErr.Code >= http.StatusInternalServerError {
		r := ctx.Request()
		h.logger.ErrorContext(ctx, "state api request failed",
			logger.Component("stateapi"),
			logger.Event(httpErr.Key),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			logger.Error(err),
		)
	}
	return handler.JSONError(apiErr)
}

// renderError answers binding and rendering failures.
func (h *Handler) renderError(ctx handler.Context, err error) {
	if rerr := h.fail(ctx, err).Render(ctx.ResponseWriter(), ctx.Request()); rerr != nil {
		h.logger.ErrorContext(ctx, "failed to render error response", logger.Error(rerr))
	}
}
