package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/statehistory/pkg/logger"
)

type ctxKey struct{}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("json by default", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		logger.New(logger.WithOutput(buf)).Info("state transitioned")

		entry := decode(t, buf)
		assert.Equal(t, "INFO", entry["level"])
		assert.Equal(t, "state transitioned", entry["msg"])
	})

	t.Run("last format option wins", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf), logger.WithJSONFormatter(), logger.WithTextFormatter())
		log.Info("noop", logger.Field("status"))
		assert.Contains(t, buf.String(), "msg=noop field=status")
	})

	t.Run("static attributes", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf), logger.WithService("worker"), logger.WithAttr(slog.String("store", "sqlite")))
		log.Info("started")

		entry := decode(t, buf)
		assert.Equal(t, "worker", entry["service"])
		assert.Equal(t, "sqlite", entry["store"])
	})

	t.Run("transition group", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		logger.New(logger.WithOutput(buf)).Warn("compensation failed",
			logger.Transition("post", "7", "status", "draft", "published"))

		tr, ok := decode(t, buf)["transition"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "post", tr["object_type"])
		assert.Equal(t, "draft", tr["from"])
		assert.Equal(t, "published", tr["to"])
	})

	t.Run("unknown format panics", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() { logger.New(logger.WithFormat(logger.Format("xml"))) })
	})
}

func TestContextHandler(t *testing.T) {
	t.Parallel()

	t.Run("context values reach records", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf), logger.WithContextValue("request_id", ctxKey{}))

		ctx := context.WithValue(context.Background(), ctxKey{}, "req-1")
		log.With(logger.ObjectType("post")).InfoContext(ctx, "transition requested")

		entry := decode(t, buf)
		assert.Equal(t, "req-1", entry["request_id"])
		assert.Equal(t, "post", entry["object_type"])
	})

	t.Run("missing values are skipped", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf), logger.WithContextValue("request_id", ctxKey{}))
		log.InfoContext(context.Background(), "no request")
		assert.NotContains(t, decode(t, buf), "request_id")
	})

	t.Run("extractors survive groups", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf), logger.WithContextExtractors(
			nil,
			func(context.Context) (slog.Attr, bool) { return slog.String("actor", "u1"), true },
		))
		log.WithGroup("state").InfoContext(context.Background(), "grouped")

		group, ok := decode(t, buf)["state"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "u1", group["actor"])
	})

	t.Run("no extractors returns the handler unchanged", func(t *testing.T) {
		t.Parallel()
		h := slog.NewTextHandler(&bytes.Buffer{}, nil)
		assert.Same(t, h, logger.NewContextHandler(h, nil, nil))
	})
}

func TestSetAsDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	buf := &bytes.Buffer{}
	logger.SetAsDefault(logger.New(logger.WithOutput(buf)))
	slog.Info("default")
	assert.Equal(t, "default", decode(t, buf)["msg"])
}

func TestWithConfig(t *testing.T) {
	t.Parallel()

	t.Run("text debug with service", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		log := logger.New(
			logger.WithOutput(buf),
			logger.WithConfig(logger.Config{Level: "debug", Format: "TEXT", Service: "statehistory"}),
		)
		log.Debug("msg")
		assert.Contains(t, buf.String(), "DEBUG")
		assert.Contains(t, buf.String(), "service=statehistory")
	})

	t.Run("unknown values fall back to json info", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		log := logger.New(
			logger.WithOutput(buf),
			logger.WithConfig(logger.Config{Level: "loud", Format: "xml"}),
		)
		log.Debug("hidden")
		assert.Empty(t, buf.String())

		log.Info("shown")
		entry := decode(t, buf)
		assert.Equal(t, "shown", entry["msg"])
		assert.NotContains(t, entry, "service")
	})
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"warning": slog.LevelWarn,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, logger.ParseLevel(in), in)
	}
}
