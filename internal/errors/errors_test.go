package errors

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/genopt/internal/logging"
)

var errSentinel = fmt.Errorf("sentinel")

func TestErrorString(t *testing.T) {
	err := Wrap(errSentinel, "start run").WithOperation("optimization.start").WithComponent("server")
	assert.Equal(t, "start run: operation=optimization.start, component=server: sentinel", err.Error())
	assert.NotEmpty(t, err.StackTrace())
}

func TestWrapKeepsChain(t *testing.T) {
	inner := New("not found").WithStatus(http.StatusNotFound)
	outer := Wrapf(inner, "status %s", "opt_1")

	assert.True(t, Is(outer, inner))
	var target *Error
	require.True(t, As(outer, &target))
	assert.Equal(t, http.StatusNotFound, StatusCode(outer))

	assert.Nil(t, Wrap(nil, "ignored"))
	assert.Nil(t, Wrapf(nil, "ignored %d", 1))
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, StatusCode(errSentinel))
	assert.Equal(t, http.StatusBadRequest, StatusCode(Errorf("bad %d", 1).WithStatus(http.StatusBadRequest)))
	assert.Equal(t, http.StatusBadRequest,
		StatusCode(fmt.Errorf("wrapped: %w", New("bad").WithStatus(http.StatusBadRequest))))
}

func TestRecoveryMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.InfoLevel, &buf)

	handler := RecoveryMiddleware(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("selection exploded")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/rpc", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, buf.String(), "selection exploded")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.InfoLevel, &buf)

	rr := httptest.NewRecorder()
	WriteJSON(rr, logger, New("unknown objective").WithStatus(http.StatusBadRequest))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, "unknown objective", resp["error"])
	assert.Empty(t, buf.String(), "client errors are not logged")

	rr = httptest.NewRecorder()
	WriteJSON(rr, logger, errSentinel)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, buf.String(), "Request failed")
}
