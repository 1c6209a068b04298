package httppoll

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mohitkumar/pollster/dedup"
	"github.com/mohitkumar/pollster/invocation"
	"github.com/mohitkumar/pollster/model"
	"github.com/mohitkumar/pollster/persistence"
	"github.com/mohitkumar/pollster/persistence/memory"
	"github.com/mohitkumar/pollster/polling"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, c *httpConnector, req invocation.FetchRequest) ([]model.CandidateItem, error) {
	var items []model.CandidateItem
	for item, err := range c.Items(context.Background(), req) {
		if err != nil {
			return items, err
		}
		items = append(items, item)
	}
	return items, nil
}

func definition(url string, props map[string]any) model.TriggerDefinition {
	props["url"] = url
	return model.TriggerDefinition{
		Name:      "orders",
		ProjectId: "p",
		FlowId:    "f",
		Connector: NAME,
		Strategy:  model.STRATEGY_TIME,
		Props:     props,
	}
}

func TestHttpConnector(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T){
		"extracts items and sort keys": testExtract,
		"watermark is templated":       testTemplating,
		"url values are escaped":       testUrlEscaping,
		"post body is templated":       testPostBody,
		"sort key script":              testScript,
		"rfc3339 sort keys":            testRFC3339,
		"reverse order":                testReverse,
		"upstream failure":             testUpstreamFailure,
		"invalid config":               testInvalidConfig,
		"subscription lifecycle":       testSubscription,
	} {
		t.Run(scenario, fn)
	}
}

func testExtract(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"id":7,"created":1000},{"id":8,"created":2000}]}`))
	}))
	defer server.Close()

	c, err := New(definition(server.URL, map[string]any{
		"itemsPath":   "$.data",
		"idPath":      "$.id",
		"sortKeyPath": "$.created",
	}), server.Client())
	require.NoError(t, err)
	items, err := collect(t, c, invocation.FetchRequest{})
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "7", items[0].ID)
	require.Equal(t, int64(2000), *items[1].SortKey)
	require.JSONEq(t, `{"id":8,"created":2000}`, string(items[1].Payload))
}

func testTemplating(t *testing.T) {
	var query string
	var header string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		header = r.Header.Get("X-Team")
		w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	c, err := New(definition(server.URL+"/orders?since={$.watermark.time}&limit={$.sampleSize}", map[string]any{
		"itemsPath":   "$.data",
		"sortKeyPath": "$.created",
		"team":        "blue",
		"headers":     map[string]any{"X-Team": "{$.props.team}"},
	}), server.Client())
	require.NoError(t, err)
	_, err = collect(t, c, invocation.FetchRequest{Watermark: &dedup.Watermark{Time: 1700000000000}, SampleSize: 5})
	require.NoError(t, err)
	require.Equal(t, "since=1700000000000&limit=5", query)
	require.Equal(t, "blue", header)
}

func testUrlEscaping(t *testing.T) {
	var after string
	var rawQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		after = r.URL.Query().Get("after")
		rawQuery = r.URL.RawQuery
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	def := definition(server.URL+"/items?after={$.watermark.lastId}&limit=2", map[string]any{"idPath": "$.id"})
	def.Strategy = model.STRATEGY_LAST_ITEM
	c, err := New(def, server.Client())
	require.NoError(t, err)
	_, err = collect(t, c, invocation.FetchRequest{Watermark: &dedup.Watermark{LastID: "a&b #c"}})
	require.NoError(t, err)
	require.Equal(t, "a&b #c", after)
	require.Contains(t, rawQuery, "limit=2")
}

func testPostBody(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	c, err := New(definition(server.URL, map[string]any{
		"method":      http.MethodPost,
		"itemsPath":   "$.data",
		"sortKeyPath": "$.created",
		"team":        "blue",
		"body": map[string]any{
			"team":   "{$.props.team}",
			"filter": map[string]any{"since": "{$.watermark.time}"},
		},
	}), server.Client())
	require.NoError(t, err)
	_, err = collect(t, c, invocation.FetchRequest{Watermark: &dedup.Watermark{Time: 42}})
	require.NoError(t, err)
	require.Equal(t, "blue", body["team"])
	require.Equal(t, map[string]any{"since": "42"}, body["filter"])
}

func testScript(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"meta":{"ts":3}}]}`))
	}))
	defer server.Close()

	c, err := New(definition(server.URL, map[string]any{
		"itemsPath":     "$.data",
		"sortKeyScript": "$.meta.ts * 1000",
	}), server.Client())
	require.NoError(t, err)
	items, err := collect(t, c, invocation.FetchRequest{})
	require.NoError(t, err)
	require.Equal(t, int64(3000), *items[0].SortKey)
}

func testRFC3339(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"at":"2024-01-02T03:04:05Z"}]}`))
	}))
	defer server.Close()

	c, err := New(definition(server.URL, map[string]any{
		"itemsPath":     "$.data",
		"sortKeyPath":   "$.at",
		"sortKeyFormat": SORT_KEY_RFC3339,
	}), server.Client())
	require.NoError(t, err)
	items, err := collect(t, c, invocation.FetchRequest{})
	require.NoError(t, err)
	require.Equal(t, int64(1704164645000), *items[0].SortKey)
}

func testReverse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"id":"old"},{"id":"new"}]}`))
	}))
	defer server.Close()

	def := definition(server.URL, map[string]any{
		"itemsPath": "$.data",
		"idPath":    "$.id",
		"reverse":   true,
	})
	def.Strategy = model.STRATEGY_LAST_ITEM
	c, err := New(def, server.Client())
	require.NoError(t, err)
	items, err := collect(t, c, invocation.FetchRequest{})
	require.NoError(t, err)
	require.Equal(t, "new", items[0].ID)
	require.Equal(t, "old", items[1].ID)
}

func testUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c, err := New(definition(server.URL, map[string]any{"sortKeyPath": "$.t"}), server.Client())
	require.NoError(t, err)
	_, err = collect(t, c, invocation.FetchRequest{})
	require.Error(t, err)
}

func testInvalidConfig(t *testing.T) {
	_, err := New(definition("", map[string]any{"sortKeyPath": "$.t"}), nil)
	require.Error(t, err)

	_, err = New(definition("http://x", map[string]any{}), nil)
	require.Error(t, err)

	_, err = New(definition("http://x", map[string]any{"sortKeyPath": "$.t", "sortKeyFormat": "julian"}), nil)
	require.Error(t, err)
}

func testSubscription(t *testing.T) {
	subscribes := 0
	var deleted string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			subscribes++
			json.NewEncoder(w).Encode(map[string]any{"subscription": map[string]any{"id": "sub-9"}})
		case http.MethodDelete:
			deleted = r.URL.Path
		}
	}))
	defer server.Close()

	c, err := New(definition(server.URL, map[string]any{
		"sortKeyPath":        "$.t",
		"subscribeUrl":       server.URL + "/hooks",
		"subscriptionIdPath": "$.subscription.id",
		"unsubscribeUrl":     server.URL + "/hooks/{$.subscriptionId}",
	}), server.Client())
	require.NoError(t, err)

	hooks := polling.Hooks{Store: persistence.NewScopedStore(memory.NewMemoryStore()), Scope: model.FlowScope("p", "f")}
	require.NoError(t, c.OnEnable(context.Background(), hooks))
	require.NoError(t, c.OnEnable(context.Background(), hooks))
	require.Equal(t, 1, subscribes)

	require.NoError(t, c.OnDisable(context.Background(), hooks))
	require.Equal(t, "/hooks/sub-9", deleted)
}
