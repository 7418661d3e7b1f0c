package stateapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/statehistory/pkg/handler"
	"github.com/dmitrymomot/statehistory/pkg/memstore"
	"github.com/dmitrymomot/statehistory/pkg/stateapi"
	"github.com/dmitrymomot/statehistory/pkg/statehistory"
	"github.com/dmitrymomot/statehistory/pkg/statemachine"
)

var postMachine = statemachine.MustNew(
	statemachine.WithInitial(statemachine.StringState("draft")),
	statemachine.WithTransition(statemachine.StringState("draft"), statemachine.StringState("published")),
	statemachine.WithTransition(statemachine.StringState("published"), statemachine.StringState("archived")),
)

var errLocked = errors.New("post is locked for review")

type envelope[T any] struct {
	Data  T                    `json:"data"`
	Error *handler.ErrorDetail `json:"error"`
}

func newServer(t *testing.T, opts ...stateapi.Option) (*httptest.Server, *memstore.Store) {
	t.Helper()
	store := memstore.New().CreateTable("post", "status", "current_status", "locked")
	require.NoError(t, store.Insert("post", "1", nil))
	require.NoError(t, store.Insert("post", "2", map[string]string{"locked": "yes"}))
	require.NoError(t, store.Insert("post", "3", map[string]string{"locked": "review"}))
	require.NoError(t, store.Insert("post", "where", nil))

	notLocked := statehistory.NamedGuard("not_locked", func(ctx context.Context, obj statehistory.Object, _ statehistory.Transition) (bool, error) {
		row, _ := store.Row(obj.ObjectType(), obj.ObjectID())
		switch row["locked"] {
		case "":
			return true, nil
		case "review":
			return false, errLocked
		default:
			return false, nil
		}
	})
	failing := statehistory.NamedEffect("notify", func(context.Context, statehistory.Object, statehistory.Transition) error {
		return errors.New("smtp down")
	})

	registry := statehistory.NewRegistry()
	registry.MustRegister("post", map[string]statehistory.FieldConfig{
		"status": {Machine: postMachine, Guards: []statehistory.Guard{notLocked}},
	})
	registry.MustRegister("page", map[string]statehistory.FieldConfig{
		"status": {Machine: postMachine, Effects: []statehistory.Effect{failing}},
	})
	registry.MustRegister("event", map[string]statehistory.FieldConfig{
		"status": {Machine: postMachine},
	})
	store.CreateTable("page", "status")
	require.NoError(t, store.Insert("page", "1", nil))

	srv := httptest.NewServer(stateapi.NewHandler(statehistory.New(store, registry), opts...).Routes())
	t.Cleanup(srv.Close)
	return srv, store
}

func do[T any](t *testing.T, method, url, body string) (int, envelope[T]) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "application/json; charset=utf-8", resp.Header.Get("Content-Type"))
	var out envelope[T]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestNewHandler(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { stateapi.NewHandler(nil) })
}

func TestHandler_Transitions(t *testing.T) {
	t.Parallel()
	srv, store := newServer(t)

	code, state := do[stateapi.StateResponse](t, http.MethodGet, srv.URL+"/post/1/status", "")
	require.Equal(t, http.StatusOK, code)
	assert.Nil(t, state.Error)
	assert.Nil(t, state.Data.State)
	assert.Equal(t, []string{"draft"}, state.Data.Allowed)

	code, state = do[stateapi.StateResponse](t, http.MethodPost, srv.URL+"/post/1/status/transitions", `{"to":"draft","meta":{"actor":"u1"}}`)
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, state.Data.State)
	assert.Equal(t, "draft", *state.Data.State)
	assert.Equal(t, []string{"published"}, state.Data.Allowed)

	code, state = do[stateapi.StateResponse](t, http.MethodPost, srv.URL+"/post/1/status/transitions", `{"to":"published"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "published", *state.Data.State)
	assert.Equal(t, "1", state.Data.ObjectID)

	row, ok := store.Row("post", "1")
	require.True(t, ok)
	assert.Equal(t, "published", row["current_status"])

	code, history := do[stateapi.HistoryResponse](t, http.MethodGet, srv.URL+"/post/1/status/history?limit=1", "")
	require.Equal(t, http.StatusOK, code)
	require.Len(t, history.Data.Records, 1)
	assert.Equal(t, "draft", history.Data.Records[0].From)
	assert.Equal(t, "published", history.Data.Records[0].To)

	code, history = do[stateapi.HistoryResponse](t, http.MethodGet, srv.URL+"/post/1/status/history", "")
	require.Equal(t, http.StatusOK, code)
	require.Len(t, history.Data.Records, 2)
	assert.Equal(t, "u1", history.Data.Records[1].Meta["actor"])

	code, where := do[stateapi.WhereResponse](t, http.MethodGet, srv.URL+"/post?field=status&state=published", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{"1"}, where.Data.IDs)

	code, where = do[stateapi.WhereResponse](t, http.MethodGet, srv.URL+"/post?field=status", "")
	require.Equal(t, http.StatusOK, code)
	assert.ElementsMatch(t, []string{"2", "3", "where"}, where.Data.IDs)
}

func TestHandler_ObjectNamedWhere(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t)

	code, state := do[stateapi.StateResponse](t, http.MethodPost, srv.URL+"/post/where/status/transitions", `{"to":"draft"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "where", state.Data.ObjectID)

	code, state = do[stateapi.StateResponse](t, http.MethodGet, srv.URL+"/post/where/status", "")
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, state.Data.State)
	assert.Equal(t, "draft", *state.Data.State)
}

func TestHandler_HistoryOnlyType(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t)

	code, state := do[stateapi.StateResponse](t, http.MethodGet, srv.URL+"/event/e1/status", "")
	require.Equal(t, http.StatusOK, code)
	assert.Nil(t, state.Data.State)

	code, state = do[stateapi.StateResponse](t, http.MethodPost, srv.URL+"/event/e1/status/transitions", `{"to":"draft"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "draft", *state.Data.State)
}

func TestHandler_Errors(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t)

	tests := []struct {
		name    string
		method  string
		path    string
		body    string
		status  int
		code    string
		message string
	}{
		{"unknown field", http.MethodGet, "/post/1/title", "", http.StatusNotFound, "unknown_field", ""},
		{"missing object", http.MethodGet, "/post/404/status", "", http.StatusNotFound, "object_not_found", ""},
		{"missing object transition", http.MethodPost, "/post/404/status/transitions", `{"to":"draft"}`, http.StatusNotFound, "object_not_found", ""},
		{"invalid transition", http.MethodPost, "/post/1/status/transitions", `{"to":"archived"}`, http.StatusConflict, "invalid_transition", ""},
		{"blocked by guard", http.MethodPost, "/post/2/status/transitions", `{"to":"draft"}`, http.StatusForbidden, "transition_blocked", ""},
		{"blocked with reason", http.MethodPost, "/post/3/status/transitions", `{"to":"draft"}`, http.StatusForbidden, "transition_blocked", errLocked.Error()},
		{"empty target", http.MethodPost, "/post/1/status/transitions", `{"to":" "}`, http.StatusUnprocessableEntity, "validation_error", ""},
		{"malformed body", http.MethodPost, "/post/1/status/transitions", `{`, http.StatusBadRequest, "invalid_request", ""},
		{"unknown body field", http.MethodPost, "/post/1/status/transitions", `{"to":"draft","id":"2"}`, http.StatusBadRequest, "invalid_request", ""},
		{"bad limit", http.MethodGet, "/post/1/status/history?limit=x", "", http.StatusBadRequest, "invalid_request", ""},
		{"negative limit", http.MethodGet, "/post/1/status/history?limit=-1", "", http.StatusUnprocessableEntity, "validation_error", ""},
		{"where without field", http.MethodGet, "/post?state=draft", "", http.StatusUnprocessableEntity, "validation_error", ""},
		{"effect failure", http.MethodPost, "/page/1/status/transitions", `{"to":"draft"}`, http.StatusInternalServerError, "effect_failed", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := do[json.RawMessage](t, tt.method, srv.URL+tt.path, tt.body)
			assert.Equal(t, tt.status, code)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.NotEmpty(t, resp.Error.Message)
			if tt.message != "" {
				assert.Equal(t, tt.message, resp.Error.Message)
			}
		})
	}

	t.Run("missing content type", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/post/1/status/transitions", "", strings.NewReader(`{"to":"draft"}`))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("validation details", func(t *testing.T) {
		_, resp := do[json.RawMessage](t, http.MethodPost, srv.URL+"/post/1/status/transitions", `{"to":""}`)
		require.NotNil(t, resp.Error)
		assert.Equal(t, map[string][]string{"to": {"field is required"}}, resp.Error.Details)
	})
}

func TestHandler_LogsServerErrorsOnly(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	srv, _ := newServer(t, stateapi.WithLogger(log))

	code, _ := do[json.RawMessage](t, http.MethodPost, srv.URL+"/post/3/status/transitions", `{"to":"draft"}`)
	require.Equal(t, http.StatusForbidden, code)
	assert.Empty(t, buf.String())

	code, _ = do[json.RawMessage](t, http.MethodPost, srv.URL+"/page/1/status/transitions", `{"to":"draft"}`)
	require.Equal(t, http.StatusInternalServerError, code)
	assert.Contains(t, buf.String(), "state api request failed")
	assert.Contains(t, buf.String(), "event=effect_failed")
	assert.Contains(t, buf.String(), "smtp down")
}
