package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		out = append(out, entry)
	}
	return out
}

func TestLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(InfoLevel, &buf).WithField("service", "genopt")

	logger.Debug("hidden")
	logger.Info("generation reported", map[string]interface{}{"generation": 3})
	logger.WithError(errors.New("boom")).Warn("sink failed")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)

	assert.Equal(t, "INFO", entries[0]["level"])
	assert.Equal(t, "generation reported", entries[0]["message"])
	assert.Equal(t, "genopt", entries[0]["service"])
	assert.Equal(t, float64(3), entries[0]["generation"])
	assert.Contains(t, entries[0]["caller"], "logging/logging_test.go")

	assert.Equal(t, "WARN", entries[1]["level"])
	assert.Equal(t, "boom", entries[1]["error"])
}

func TestParseLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   DebugLevel,
		"INFO":    InfoLevel,
		"":        InfoLevel,
		"warning": WarnLevel,
		"Error":   ErrorLevel,
		"fatal":   FatalLevel,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("bogus")
	assert.Error(t, err)
}

func TestResolveFormat(t *testing.T) {
	tests := []struct {
		env, format, want string
	}{
		{"development", "", FormatConsole},
		{"production", "", FormatJSON},
		{"development", FormatJSON, FormatJSON},
		{"production", FormatConsole, FormatConsole},
	}
	for _, tt := range tests {
		cfg := Config{Format: tt.format}
		cfg.ResolveFormat(tt.env)
		assert.Equal(t, tt.want, cfg.Format, "%s/%q", tt.env, tt.format)
	}
}

func TestEnabled(t *testing.T) {
	logger := New(WarnLevel, &bytes.Buffer{})
	assert.False(t, logger.Enabled(InfoLevel))
	assert.True(t, logger.Enabled(ErrorLevel))
}

func TestNewLoggerConsoleFormat(t *testing.T) {
	logger, err := NewLogger(&Config{Level: "debug", Format: "console", Output: "stdout"})
	require.NoError(t, err)
	assert.True(t, logger.Enabled(DebugLevel))

	_, err = NewLogger(nil)
	require.NoError(t, err)

	_, err = NewLogger(&Config{Format: "xml"})
	assert.Error(t, err)
	_, err = NewLogger(&Config{Level: "loud"})
	assert.Error(t, err)
}

func TestNewZapLoggerSharesFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(DebugLevel, &buf).WithField("run_id", "opt_1")

	NewZapLogger(logger).Named("genetic").Debug("evolving", zap.Int("generation", 7))

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "opt_1", entries[0]["run_id"])
	assert.Equal(t, float64(7), entries[0]["generation"])
	assert.Equal(t, "genetic", entries[0]["logger"])
}

func TestContextLogger(t *testing.T) {
	ctxLogger := &CtxLogger{New(InfoLevel, &bytes.Buffer{})}
	ctx := ctxLogger.WithContext(context.Background())

	assert.Same(t, ctxLogger, FromContext(ctx))
	assert.NotNil(t, FromContext(context.Background()))
}

func TestMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := New(InfoLevel, &buf)

	handler := Middleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/status/opt_1", nil))
	assert.Equal(t, http.StatusTeapot, rr.Code)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "/api/v1/status/opt_1", entries[0]["path"])
	assert.Equal(t, "WARN", entries[1]["level"])
	assert.Equal(t, float64(http.StatusTeapot), entries[1]["status"])
}
