package binder_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/statehistory/pkg/binder"
)

type transitionRequest struct {
	Type  string         `json:"-" path:"type" query:"-"`
	ID    int64          `json:"-" path:"id" query:"-"`
	To    string         `json:"to" path:"-" query:"-"`
	Meta  map[string]any `json:"meta" path:"-" query:"-"`
	Limit *int           `json:"-" path:"-" query:"limit"`
	Tags  []string       `json:"-" path:"-" query:"tag"`
	Full  bool           `json:"-"`
}

func jsonRequest(body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json; charset=utf-8")
	return r
}

func TestJSON(t *testing.T) {
	t.Parallel()

	t.Run("decodes body", func(t *testing.T) {
		t.Parallel()
		var req transitionRequest
		err := binder.JSON()(jsonRequest(`{"to":"published","meta":{"actor":"u1"}}`), &req)
		require.NoError(t, err)
		assert.Equal(t, "published", req.To)
		assert.Equal(t, "u1", req.Meta["actor"])
		assert.Empty(t, req.Type)
	})

	tests := []struct {
		name        string
		contentType string
		body        string
		want        error
	}{
		{"missing content type", "", `{}`, binder.ErrMissingContentType},
		{"wrong media type", "text/plain", `{}`, binder.ErrUnsupportedMediaType},
		{"malformed", "application/json", `{`, binder.ErrFailedToParseJSON},
		{"empty body", "application/json", ``, binder.ErrFailedToParseJSON},
		{"unknown field", "application/json", `{"state":"draft"}`, binder.ErrFailedToParseJSON},
		{"path field in body", "application/json", `{"type":"post"}`, binder.ErrFailedToParseJSON},
		{"trailing data", "application/json", `{"to":"a"}{"to":"b"}`, binder.ErrFailedToParseJSON},
		{"too large", "application/json", `{"to":"` + strings.Repeat("x", binder.DefaultMaxJSONSize) + `"}`, binder.ErrFailedToParseJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			if tt.contentType != "" {
				r.Header.Set("Content-Type", tt.contentType)
			}
			var req transitionRequest
			err := binder.JSON()(r, &req)
			require.ErrorIs(t, err, tt.want)
			assert.True(t, binder.IsBindingError(err))
		})
	}

	t.Run("canceled request", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		var req transitionRequest
		err := binder.JSON()(jsonRequest(`{}`).WithContext(ctx), &req)
		assert.ErrorIs(t, err, binder.ErrFailedToParseJSON)
	})
}

func TestPath(t *testing.T) {
	t.Parallel()
	params := map[string]string{"type": "post", "id": "42", "to": "ignored", "full": "yes"}
	extractor := func(_ *http.Request, name string) string { return params[name] }

	t.Run("binds tagged and untagged fields", func(t *testing.T) {
		t.Parallel()
		var req transitionRequest
		require.NoError(t, binder.Path(extractor)(httptest.NewRequest(http.MethodGet, "/", nil), &req))
		assert.Equal(t, "post", req.Type)
		assert.Equal(t, int64(42), req.ID)
		assert.Empty(t, req.To)
		assert.True(t, req.Full)
	})

	t.Run("invalid value", func(t *testing.T) {
		t.Parallel()
		bad := func(_ *http.Request, name string) string {
			if name == "id" {
				return "forty-two"
			}
			return ""
		}
		var req transitionRequest
		err := binder.Path(bad)(httptest.NewRequest(http.MethodGet, "/", nil), &req)
		require.ErrorIs(t, err, binder.ErrFailedToParsePath)
		assert.Contains(t, err.Error(), "field ID")
	})

	t.Run("rejects bad targets", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		assert.ErrorIs(t, binder.Path(nil)(r, &transitionRequest{}), binder.ErrFailedToParsePath)
		assert.ErrorIs(t, binder.Path(extractor)(r, transitionRequest{}), binder.ErrFailedToParsePath)
		s := "x"
		assert.ErrorIs(t, binder.Path(extractor)(r, &s), binder.ErrFailedToParsePath)
	})
}

func TestQuery(t *testing.T) {
	t.Parallel()

	t.Run("pointers and slices", func(t *testing.T) {
		t.Parallel()
		var req transitionRequest
		r := httptest.NewRequest(http.MethodGet, "/?limit=5&tag=a,b&tag=c&type=page", nil)
		require.NoError(t, binder.Query()(r, &req))
		require.NotNil(t, req.Limit)
		assert.Equal(t, 5, *req.Limit)
		assert.Equal(t, []string{"a", "b", "c"}, req.Tags)
		assert.Empty(t, req.Type)
	})

	t.Run("absent parameters keep zero values", func(t *testing.T) {
		t.Parallel()
		var req transitionRequest
		require.NoError(t, binder.Query()(httptest.NewRequest(http.MethodGet, "/", nil), &req))
		assert.Nil(t, req.Limit)
		assert.Nil(t, req.Tags)
	})

	t.Run("invalid number", func(t *testing.T) {
		t.Parallel()
		var req transitionRequest
		err := binder.Query()(httptest.NewRequest(http.MethodGet, "/?limit=x", nil), &req)
		require.ErrorIs(t, err, binder.ErrFailedToParseQuery)
		assert.True(t, binder.IsBindingError(err))
	})
}
