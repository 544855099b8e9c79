package server_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jonesrussell/north-cloud/index-buffer/internal/logger"
	"github.com/jonesrussell/north-cloud/index-buffer/internal/server"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func observed() (logger.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return logger.NewFromZap(zap.New(core)), logs
}

func TestRequestIDMiddleware_GeneratesUUID(t *testing.T) {
	t.Parallel()

	router := gin.New()
	router.Use(server.RequestIDMiddleware(logger.NewNop()))

	var fromCtx logger.Logger
	router.GET("/x", func(c *gin.Context) {
		fromCtx = logger.FromContextOr(c.Request.Context(), nil)
		c.String(http.StatusOK, server.RequestID(c))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", http.NoBody))

	id := w.Header().Get(server.RequestIDHeader)
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, id, w.Body.String())
	assert.NotNil(t, fromCtx)
}

func TestRequestIDMiddleware_PreservesInbound(t *testing.T) {
	t.Parallel()

	log, logs := observed()
	router := gin.New()
	router.Use(server.RequestIDMiddleware(log))
	router.GET("/x", func(c *gin.Context) {
		logger.FromContextOr(c.Request.Context(), logger.NewNop()).Info("inside")
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", http.NoBody)
	req.Header.Set(server.RequestIDHeader, "upstream-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "upstream-1", w.Header().Get(server.RequestIDHeader))
	entries := logs.FilterMessage("inside").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "upstream-1", entries[0].ContextMap()["request_id"])
}

func TestLoggerMiddleware(t *testing.T) {
	t.Parallel()

	log, logs := observed()
	router := gin.New()
	router.Use(server.LoggerMiddleware(log))
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/bad", func(c *gin.Context) {
		_ = c.Error(errors.New("boom"))
		c.Status(http.StatusInternalServerError)
	})
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, p := range []string{"/ok?a=1", "/bad", "/health"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, http.NoBody))
	}

	all := logs.All()
	require.Len(t, all, 3)

	assert.Equal(t, zapcore.InfoLevel, all[0].Level)
	assert.Equal(t, "/ok", all[0].ContextMap()["path"])
	assert.Equal(t, "a=1", all[0].ContextMap()["query"])

	assert.Equal(t, zapcore.ErrorLevel, all[1].Level)
	assert.Equal(t, "HTTP request with errors", all[1].Message)

	assert.Equal(t, zapcore.DebugLevel, all[2].Level)
}

func TestRecoveryMiddleware(t *testing.T) {
	t.Parallel()

	log, logs := observed()
	router := gin.New()
	router.Use(server.RecoveryMiddleware(log))
	router.GET("/panic", func(*gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", http.NoBody))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())
	assert.Equal(t, 1, logs.FilterMessage("Panic recovered").Len())
}

func TestRecoveryMiddleware_LogsRequestID(t *testing.T) {
	t.Parallel()

	log, logs := observed()
	router := gin.New()
	router.Use(server.RecoveryMiddleware(log), server.RequestIDMiddleware(log))
	router.GET("/panic", func(*gin.Context) { panic("kaboom") })

	req := httptest.NewRequest(http.MethodGet, "/panic", http.NoBody)
	req.Header.Set(server.RequestIDHeader, "req-7")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	entries := logs.FilterMessage("Panic recovered").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "req-7", entries[0].ContextMap()["request_id"])
}

func TestCORSMiddleware(t *testing.T) {
	t.Parallel()

	router := gin.New()
	router.Use(server.CORSMiddleware([]string{"https://ui.example"}))
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/x", http.NoBody)
		req.Header.Set("Origin", "https://ui.example")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, "https://ui.example", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "43200", w.Header().Get("Access-Control-Max-Age"))
	})

	t.Run("foreign origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/x", http.NoBody)
		req.Header.Set("Origin", "https://evil.example")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/x", http.NoBody)
		req.Header.Set("Origin", "https://ui.example")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

func TestHealth(t *testing.T) {
	t.Parallel()

	t.Run("healthy", func(t *testing.T) {
		router := gin.New()
		server.RegisterHealthRoutes(router, "index-buffer", "1.0.0", map[string]server.Check{
			"elasticsearch": func(context.Context) error { return nil },
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
		require.Equal(t, http.StatusOK, w.Code)

		var resp server.HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, server.StatusHealthy, resp.Status)
		assert.Equal(t, "index-buffer", resp.Service)
		assert.Equal(t, server.StatusHealthy, resp.Checks["elasticsearch"].Status)
	})

	t.Run("unhealthy", func(t *testing.T) {
		router := gin.New()
		server.RegisterHealthRoutes(router, "index-buffer", "1.0.0", map[string]server.Check{
			"elasticsearch": func(context.Context) error { return nil },
			"database":      func(context.Context) error { return errors.New("refused") },
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
		require.Equal(t, http.StatusServiceUnavailable, w.Code)

		var resp server.HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, server.StatusUnhealthy, resp.Status)
		assert.Equal(t, "refused", resp.Checks["database"].Message)

		w = httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodHead, "/health", http.NoBody))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestServer_Lifecycle(t *testing.T) {
	srv := server.NewServer(server.Config{Port: 0, ServiceName: "test"}, logger.NewNop(), func(r *gin.Engine) {
		r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	})

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", http.NoBody))
	assert.Equal(t, "pong", w.Body.String())
	assert.NotEmpty(t, w.Header().Get(server.RequestIDHeader))
	assert.Equal(t, ":0", srv.Addr())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
