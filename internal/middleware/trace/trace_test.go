package trace

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetwatch/internal/log"
)

func TestMiddlewarePropagatesRequestID(t *testing.T) {
	var buf bytes.Buffer
	m := NewMiddleware(log.New(log.Config{Output: &buf}), func(*http.Request) string { return "198.51.100.4" })

	var seenID string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
		log.FromContext(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusCreated)
	}))

	r := httptest.NewRequest(http.MethodPost, "/api/expenses", nil)
	r.Header.Set(RequestIDHeader, "upstream-42")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, r)

	assert.Equal(t, "upstream-42", seenID)
	assert.Equal(t, "upstream-42", rr.Header().Get(RequestIDHeader))
	assert.Contains(t, buf.String(), "request_id=upstream-42")
	assert.Contains(t, buf.String(), "client_ip=198.51.100.4")
	assert.Contains(t, buf.String(), "status_code=201")
}

func TestMiddlewareGeneratesRequestID(t *testing.T) {
	m := NewMiddleware(log.New(log.Config{Output: &bytes.Buffer{}}), nil)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(RequestIDHeader, strings.Repeat("x", 65))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, r)

	id := rr.Header().Get(RequestIDHeader)
	require.True(t, strings.HasPrefix(id, "req_"), id)

	metrics := m.GetMetrics()
	assert.Equal(t, int64(1), metrics.TotalRequests)
	assert.Equal(t, int64(1), metrics.ServerErrors)
}
