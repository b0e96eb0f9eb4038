package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))

	return line
}

func TestHandler_AddsRequestAndTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(newHandler(&buf, nil))

	traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	spanID, _ := trace.SpanIDFromHex("0102030405060708")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-1")
	ctx = trace.ContextWithSpanContext(ctx, sc)

	log.InfoContext(ctx, "hello")

	line := decodeLine(t, &buf)
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "req-1", line["request_id"])
	assert.Equal(t, "0102030405060708090a0b0c0d0e0f10", line["trace_id"])
	assert.Equal(t, "0102030405060708", line["span_id"])
}

func TestHandler_WithoutContextValues(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(newHandler(&buf, nil)).With("component", "test")

	log.Info("plain")

	line := decodeLine(t, &buf)
	assert.Equal(t, "test", line["component"])
	assert.NotContains(t, line, "request_id")
	assert.NotContains(t, line, "trace_id")
}

func TestLoggerMiddleware(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(newHandler(&buf, nil))

	handler := middleware.RequestID(NewLoggerMiddleware(log)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short"))
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/orders/1", nil)
	req.Header.Set(middleware.RequestIDHeader, "client-id")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "client-id", rec.Header().Get(middleware.RequestIDHeader))

	line := decodeLine(t, &buf)
	assert.Equal(t, "Request completed", line["msg"])
	assert.Equal(t, "client-id", line["request_id"])
	assert.Equal(t, "/api/orders/1", line["path"])
	assert.EqualValues(t, http.StatusTeapot, line["status"])
	assert.EqualValues(t, 5, line["bytes"])
}
