package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BuidlGuidl/ethereum-bazaar/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	})
}

func TestCORSMiddleware(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		allowedOrigins []string
		requestOrigin  string
		method         string
		expectedOrigin string
	}{
		{name: "wildcard echoes origin", allowedOrigins: []string{"*"}, requestOrigin: "https://bazaar.example", method: http.MethodGet, expectedOrigin: "https://bazaar.example"},
		{name: "wildcard without origin", allowedOrigins: []string{"*"}, method: http.MethodGet, expectedOrigin: "*"},
		{name: "listed origin", allowedOrigins: []string{"https://bazaar.example"}, requestOrigin: "https://bazaar.example", method: http.MethodGet, expectedOrigin: "https://bazaar.example"},
		{name: "trailing slash in config", allowedOrigins: []string{"https://bazaar.example/"}, requestOrigin: "https://bazaar.example", method: http.MethodGet, expectedOrigin: "https://bazaar.example"},
		{name: "second listed origin", allowedOrigins: []string{"https://a.example", "https://b.example"}, requestOrigin: "https://b.example", method: http.MethodGet, expectedOrigin: "https://b.example"},
		{name: "unlisted origin", allowedOrigins: []string{"https://bazaar.example"}, requestOrigin: "https://evil.example", method: http.MethodGet},
		{name: "no origins configured", allowedOrigins: []string{}, requestOrigin: "https://bazaar.example", method: http.MethodGet},
		{name: "preflight", allowedOrigins: []string{"https://bazaar.example"}, requestOrigin: "https://bazaar.example", method: http.MethodOptions, expectedOrigin: "https://bazaar.example"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := CORSMiddleware(tt.allowedOrigins)(okHandler("OK"))

			req := httptest.NewRequest(tt.method, "/api/v1/listings", nil)
			if tt.requestOrigin != "" {
				req.Header.Set("Origin", tt.requestOrigin)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			require.Equal(t, tt.expectedOrigin, w.Header().Get("Access-Control-Allow-Origin"))
			if tt.expectedOrigin != "" {
				require.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "GET")
				require.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Content-Type")
				require.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))
			}

			require.Equal(t, http.StatusOK, w.Code)
			if tt.method == http.MethodOptions {
				require.Empty(t, w.Body.String())
			} else {
				require.Equal(t, "OK", w.Body.String())
			}
		})
	}
}

func TestResponseWriter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		writeHeaders []int
		write        bool
		wantRecorded int
	}{
		{name: "explicit status", writeHeaders: []int{http.StatusCreated}, wantRecorded: http.StatusCreated},
		{name: "first status wins", writeHeaders: []int{http.StatusNotFound, http.StatusOK}, wantRecorded: http.StatusNotFound},
		{name: "implicit 200 on write", write: true, wantRecorded: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := httptest.NewRecorder()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			for _, status := range tt.writeHeaders {
				wrapped.WriteHeader(status)
			}
			if tt.write {
				_, err := wrapped.Write([]byte("body"))
				require.NoError(t, err)
			}

			require.Equal(t, tt.wantRecorded, wrapped.statusCode)
			require.Equal(t, tt.wantRecorded, w.Code)
		})
	}
}

func TestLoggingMiddleware_PassesThrough(t *testing.T) {
	t.Parallel()

	h := LoggingMiddleware(logger.NewNopLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusTeapot, w.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		handler    http.Handler
		wantStatus int
		wantBody   string
	}{
		{name: "no panic", handler: okHandler("fine"), wantStatus: http.StatusOK, wantBody: "fine"},
		{name: "panic string", handler: http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }), wantStatus: http.StatusInternalServerError, wantBody: "Internal Server Error\n"},
		{name: "panic error", handler: http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic(assert.AnError) }), wantStatus: http.StatusInternalServerError, wantBody: "Internal Server Error\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := RecoveryMiddleware(logger.NewNopLogger())(tt.handler)
			w := httptest.NewRecorder()

			require.NotPanics(t, func() {
				h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/listings", nil))
			})
			require.Equal(t, tt.wantStatus, w.Code)
			require.Equal(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestMiddlewareChaining(t *testing.T) {
	t.Parallel()

	log := logger.NewNopLogger()
	h := RecoveryMiddleware(log)(LoggingMiddleware(log)(CORSMiddleware([]string{"*"})(okHandler("final handler"))))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/listings", nil)
	req.Header.Set("Origin", "https://bazaar.example")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "final handler", w.Body.String())
	require.Equal(t, "https://bazaar.example", w.Header().Get("Access-Control-Allow-Origin"))
}
