package stateapi

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/statehistory/pkg/binder"
	"github.com/dmitrymomot/statehistory/pkg/handler"
	"github.com/dmitrymomot/statehistory/pkg/statehistory"
	"github.com/dmitrymomot/statehistory/pkg/statemachine"
	"github.com/dmitrymomot/statehistory/pkg/validator"
)

// MaxHistoryLimit caps the limit query parameter of the history endpoint.
const MaxHistoryLimit = 500

// maxTokenLength bounds state tokens accepted from clients.
const maxTokenLength = 255

// Handler exposes a States facade over HTTP.
type Handler struct {
	states *statehistory.States
	logger *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger used for failed requests. Nil is ignored.
// Request ids set by the router are in the request context, see logger.WithContextValue.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewHandler panics if states is nil.
func NewHandler(states *statehistory.States, opts ...Option) *Handler {
	if states == nil {
		panic("stateapi: states cannot be nil")
	}
	h := &Handler{states: states, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the API router:
//
//	GET  /{type}?field=&state=           ids of objects in a state ("" matches none)
//	GET  /{type}/{id}/{field}            current state and allowed targets
//	GET  /{type}/{id}/{field}/history    history, newest first (?limit=)
//	POST /{type}/{id}/{field}/transitions
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/{type}", handler.Wrap(h.whereState,
		handler.WithBinders[handler.Context, WhereRequest](binder.Path(chi.URLParam), binder.Query()),
		handler.WithErrorHandler[handler.Context, WhereRequest](h.renderError),
	))
	r.Route("/{type}/{id}/{field}", func(r chi.Router) {
		r.Get("/", handler.Wrap(h.currentState,
			handler.WithBinders[handler.Context, ObjectRequest](binder.Path(chi.URLParam)),
			handler.WithErrorHandler[handler.Context, ObjectRequest](h.renderError),
		))
		r.Get("/history", handler.Wrap(h.history,
			handler.WithBinders[handler.Context, HistoryRequest](binder.Path(chi.URLParam), binder.Query()),
			handler.WithErrorHandler[handler.Context, HistoryRequest](h.renderError),
		))
		r.Post("/transitions", handler.Wrap(h.transition,
			handler.WithBinders[handler.Context, TransitionRequest](binder.JSON(), binder.Path(chi.URLParam)),
			handler.WithErrorHandler[handler.Context, TransitionRequest](h.renderError),
		))
	})
	return r
}

// ObjectRequest addresses one state field of one object.
type ObjectRequest struct {
	Type  string `path:"type"`
	ID    string `path:"id"`
	Field string `path:"field"`
}

func (r ObjectRequest) target() statehistory.Ref {
	return statehistory.Ref{Type: r.Type, ID: r.ID}
}

// HistoryRequest selects history records of a field.
type HistoryRequest struct {
	Type  string `path:"type" query:"-"`
	ID    string `path:"id" query:"-"`
	Field string `path:"field" query:"-"`
	Limit int    `path:"-" query:"limit"`
}

// TransitionRequest is the transitions endpoint: the object from the path,
// the target and metadata from the JSON body.
type TransitionRequest struct {
	Type    string         `json:"-" path:"type"`
	ID      string         `json:"-" path:"id"`
	Field   string         `json:"-" path:"field"`
	To      string         `json:"to" path:"-"`
	Meta    map[string]any `json:"meta,omitempty" path:"-"`
	Context map[string]any `json:"context,omitempty" path:"-"`
}

// WhereRequest filters objects of a type by state.
type WhereRequest struct {
	Type  string `path:"type" query:"-"`
	Field string `path:"-" query:"field"`
	State string `path:"-" query:"state"`
}

// StateResponse describes the current state of a field.
type StateResponse struct {
	ObjectType string   `json:"object_type"`
	ObjectID   string   `json:"object_id"`
	Field      string   `json:"field"`
	State      *string  `json:"state"`
	Allowed    []string `json:"allowed"`
}

// HistoryResponse lists history records newest first.
type HistoryResponse struct {
	Records []statehistory.Record `json:"records"`
}

// WhereResponse lists ids of objects in a state.
type WhereResponse struct {
	IDs []string `json:"ids"`
}

func (h *Handler) currentState(ctx handler.Context, req ObjectRequest) handler.Response {
	obj := req.target()
	exists, err := h.states.Exists(ctx, obj, req.Field)
	if err != nil {
		return h.fail(ctx, err)
	}
	if !exists {
		return h.fail(ctx, statehistory.ErrObjectNotFound)
	}

	resp, err := h.describe(ctx, obj, req.Field)
	if err != nil {
		return h.fail(ctx, err)
	}
	return handler.JSON(resp)
}

func (h *Handler) describe(ctx handler.Context, obj statehistory.Ref, field string) (StateResponse, error) {
	allowed, err := h.states.AllowedTransitions(ctx, obj, field)
	if err != nil {
		return StateResponse{}, err
	}
	current, err := h.states.CurrentState(ctx, obj, field)
	if err != nil {
		return StateResponse{}, err
	}

	resp := StateResponse{
		ObjectType: obj.Type,
		ObjectID:   obj.ID,
		Field:      field,
		Allowed:    make([]string, 0, len(allowed)),
	}
	if current != "" {
		resp.State = &current
	}
	for _, s := range allowed {
		resp.Allowed = append(resp.Allowed, s.Name())
	}
	return resp, nil
}

func (h *Handler) history(ctx handler.Context, req HistoryRequest) handler.Response {
	if err := validator.Apply(validator.MinNum("limit", req.Limit, 0)); err != nil {
		return h.fail(ctx, err)
	}

	obj := statehistory.Ref{Type: req.Type, ID: req.ID}
	recs, err := h.states.History(ctx, obj, req.Field, min(req.Limit, MaxHistoryLimit))
	if err != nil {
		return h.fail(ctx, err)
	}
	if recs == nil {
		recs = []statehistory.Record{}
	}
	return handler.JSON(HistoryResponse{Records: recs})
}

func (h *Handler) transition(ctx handler.Context, req TransitionRequest) handler.Response {
	if err := validator.Apply(
		validator.RequiredString("to", req.To),
		validator.MaxLenString("to", req.To, maxTokenLength),
	); err != nil {
		return h.fail(ctx, err)
	}

	obj := statehistory.Ref{Type: req.Type, ID: req.ID}
	err := h.states.TransitionTo(ctx, obj, req.Field, statemachine.Of(req.To),
		statehistory.WithMetadata(req.Meta),
		statehistory.WithContextData(req.Context),
	)
	if err != nil {
		return h.fail(ctx, err)
	}

	resp, err := h.describe(ctx, obj, req.Field)
	if err != nil {
		return h.fail(ctx, err)
	}
	return handler.JSON(resp)
}

func (h *Handler) whereState(ctx handler.Context, req WhereRequest) handler.Response {
	if err := validator.Apply(validator.RequiredString("field", req.Field)); err != nil {
		return h.fail(ctx, err)
	}

	ids, err := h.states.WhereState(ctx, req.Type, req.Field, statemachine.Of(req.State))
	if err != nil {
		return h.fail(ctx, err)
	}
	if ids == nil {
		ids = []string{}
	}
	return handler.JSON(WhereResponse{IDs: ids})
}
