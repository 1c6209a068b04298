package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mohitkumar/pollster/connector"
	"github.com/mohitkumar/pollster/logger"
	"github.com/mohitkumar/pollster/metadata"
	"github.com/mohitkumar/pollster/metrics"
	"github.com/mohitkumar/pollster/persistence"
	"github.com/mohitkumar/pollster/persistence/memory"
	"github.com/mohitkumar/pollster/service"
	"github.com/mohitkumar/pollster/sink"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestServer(t *testing.T) (http.Handler, persistence.Queue) {
	registry := connector.NewRegistry()
	registry.Register(connector.STATIC_CONNECTOR, connector.NewStaticConnector)
	metadataService := metadata.NewMetadataService(metadata.NewMemoryMetadataStorage(), registry, time.Minute)
	backend := memory.NewMemoryStore()
	m := metrics.NewPrometheusMetrics(prometheus.NewRegistry())
	queue := memory.NewMemoryQueue()
	triggerService := service.NewTriggerService(metadataService, registry, persistence.NewScopedStore(backend), backend,
		sink.NewQueueSink(queue, time.Millisecond, 1), m,
		service.TriggerServiceConfig{SampleSize: 2}, m)
	s, err := NewServer(0, metadataService, triggerService, m.Handler())
	require.NoError(t, err)
	return s.Handler, queue
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestTriggerLifecycleOverHttp(t *testing.T) {
	h, _ := newTestServer(t)
	def := map[string]any{
		"name":      "orders",
		"projectId": "shop",
		"flowId":    "orders",
		"connector": connector.STATIC_CONNECTOR,
		"bootstrap": "EMIT_ALL",
		"props": map[string]any{"items": []any{
			map[string]any{"sortKey": 1, "payload": map[string]any{"id": 1}},
			map[string]any{"sortKey": 2, "payload": map[string]any{"id": 2}},
		}},
	}
	rec := do(t, h, http.MethodPost, "/metadata/trigger", def)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/metadata/trigger/orders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"strategy":"TIME"`)

	rec = do(t, h, http.MethodPost, "/trigger/orders/test", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"items":[{"id":2},{"id":1}]}`, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/trigger/orders/poll", map[string]string{"runId": "r1"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"items":[{"id":1},{"id":2}]}`, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/trigger/orders/poll", map[string]string{"runId": "r1"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"items":[]}`, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/trigger/orders/enable", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodPost, "/trigger/orders/disable", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "polls_total")

	rec = do(t, h, http.MethodDelete, "/metadata/trigger/orders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodGet, "/metadata/trigger/orders", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRestErrors(t *testing.T) {
	h, _ := newTestServer(t)
	for scenario, tc := range map[string]struct {
		method string
		path   string
		body   any
		code   int
	}{
		"unknown trigger poll": {http.MethodPost, "/trigger/missing/poll", nil, http.StatusNotFound},
		"unknown webhook":      {http.MethodPost, "/webhook/missing", map[string]any{}, http.StatusNotFound},
		"invalid definition":   {http.MethodPost, "/metadata/trigger", map[string]any{"name": ""}, http.StatusBadRequest},
		"bad strategy":         {http.MethodPost, "/metadata/trigger", map[string]any{"name": "x", "projectId": "p", "flowId": "f", "strategy": "NOPE"}, http.StatusBadRequest},
	} {
		t.Run(scenario, func(t *testing.T) {
			rec := do(t, h, tc.method, tc.path, tc.body)
			require.Equal(t, tc.code, rec.Code, rec.Body.String())
		})
	}
}

func TestWebhookHandshakeOverHttp(t *testing.T) {
	h, _ := newTestServer(t)
	def := map[string]any{
		"name": "hook", "projectId": "shop", "flowId": "hook", "type": "WEBHOOK",
		"handshake": map[string]any{
			"strategy":       "QUERY_PRESENT",
			"paramName":      "hub.mode",
			"tokenParam":     "hub.verify_token",
			"challengeParam": "hub.challenge",
			"secret":         "abc123",
		},
	}
	rec := do(t, h, http.MethodPost, "/metadata/trigger", def)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/webhook/hook?hub.mode=subscribe&hub.verify_token=abc123&hub.challenge=ping-7", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ping-7", rec.Body.String())

	rec = do(t, h, http.MethodPost, "/webhook/hook", map[string]any{"event": "created"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"accepted"}`, rec.Body.String())
}

var hookDefinition = map[string]any{
	"name": "hook", "projectId": "shop", "flowId": "hook", "type": "WEBHOOK",
	"handshake": map[string]any{
		"strategy":       "QUERY_PRESENT",
		"paramName":      "hub.mode",
		"tokenParam":     "hub.verify_token",
		"challengeParam": "hub.challenge",
		"secret":         "abc123",
	},
}

func TestWebhookRejectsOversizedBody(t *testing.T) {
	h, queue := newTestServer(t)
	rec := do(t, h, http.MethodPost, "/webhook/hook", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, h, http.MethodPost, "/metadata/trigger", hookDefinition)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	big := `{"data":"` + strings.Repeat("x", MAX_WEBHOOK_BODY) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/webhook/hook", strings.NewReader(big))
	req.Header.Set("Content-Type", "application/json")
	out := httptest.NewRecorder()
	h.ServeHTTP(out, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, out.Code)

	delivered, err := queue.Pop(context.Background(), sink.QueueName("hook"), 10)
	require.NoError(t, err)
	require.Empty(t, delivered)

	small := `{"data":"` + strings.Repeat("x", 1024) + `"}`
	req = httptest.NewRequest(http.MethodPost, "/webhook/hook", strings.NewReader(small))
	out = httptest.NewRecorder()
	h.ServeHTTP(out, req)
	require.Equal(t, http.StatusOK, out.Code)
	delivered, err = queue.Pop(context.Background(), sink.QueueName("hook"), 10)
	require.NoError(t, err)
	require.Len(t, delivered, 1)
}

func TestHandshakeSecretStaysPrivate(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger.SetLogger(zap.New(core))
	defer logger.SetLogger(zap.NewNop())

	h, _ := newTestServer(t)
	rec := do(t, h, http.MethodPost, "/metadata/trigger", hookDefinition)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/webhook/hook?hub.mode=subscribe&hub.verify_token=abc123&hub.challenge=ping-7", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ping-7", rec.Body.String())

	rec = do(t, h, http.MethodGet, "/metadata/trigger/hook", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), "abc123")
	rec = do(t, h, http.MethodGet, "/metadata/trigger", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), "abc123")

	require.NotZero(t, logs.Len())
	for _, entry := range logs.All() {
		require.NotContains(t, entry.Message, "abc123")
		for _, v := range entry.ContextMap() {
			require.NotContains(t, fmt.Sprint(v), "abc123")
		}
	}

	rec = do(t, h, http.MethodGet, "/webhook/hook?hub.mode=subscribe&hub.verify_token=abc123&hub.challenge=again", nil)
	require.Equal(t, "again", rec.Body.String())
}
