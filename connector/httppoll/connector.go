package httppoll

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"
	"time"

	"github.com/mohitkumar/pollster/connector"
	"github.com/mohitkumar/pollster/invocation"
	"github.com/mohitkumar/pollster/logger"
	"github.com/mohitkumar/pollster/model"
	"github.com/mohitkumar/pollster/polling"
	"github.com/mohitkumar/pollster/util"
	"github.com/oliveagle/jsonpath"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
)

const NAME = "http"

var _ connector.Connector = new(httpConnector)
var _ polling.Lifecycle = new(httpConnector)

// httpConnector polls a JSON endpoint. Url and subscription templates may
// reference {$.props.x}, {$.watermark.time}, {$.watermark.count},
// {$.watermark.lastId}, {$.sampleSize} and {$.subscriptionId}. Url values are
// query escaped; header values and the POST body template are not.
type httpConnector struct {
	def    model.TriggerDefinition
	conf   Config
	client *http.Client
}

func Factory(client *http.Client) connector.Factory {
	return func(def model.TriggerDefinition) (connector.Connector, error) {
		return New(def, client)
	}
}

func New(def model.TriggerDefinition, client *http.Client) (*httpConnector, error) {
	conf, err := configFromProps(def)
	if err != nil {
		return nil, err
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &httpConnector{def: def, conf: conf, client: client}, nil
}

func (h *httpConnector) Name() string {
	return NAME
}

func (h *httpConnector) Items(ctx context.Context, req invocation.FetchRequest) iter.Seq2[model.CandidateItem, error] {
	return func(yield func(model.CandidateItem, error) bool) {
		doc, err := h.call(ctx, h.conf.Method, h.conf.Url, h.templateData(req, ""))
		if err != nil {
			yield(model.CandidateItem{}, err)
			return
		}
		raw, err := jsonpath.JsonPathLookup(doc, h.conf.ItemsPath)
		if err != nil {
			yield(model.CandidateItem{}, fmt.Errorf("items path %s: %w", h.conf.ItemsPath, err))
			return
		}
		list, ok := raw.([]any)
		if !ok {
			yield(model.CandidateItem{}, fmt.Errorf("items path %s did not select a list", h.conf.ItemsPath))
			return
		}
		if h.conf.Reverse {
			list = slices.Clone(list)
			slices.Reverse(list)
		}
		for _, element := range list {
			item, err := h.toCandidate(element)
			if !yield(item, err) || err != nil {
				return
			}
		}
	}
}

func (h *httpConnector) OnEnable(ctx context.Context, hooks polling.Hooks) error {
	if h.conf.SubscribeUrl == "" {
		return nil
	}
	id, err := hooks.EnsureSubscription(ctx, func(ctx context.Context) (string, error) {
		doc, err := h.call(ctx, http.MethodPost, h.conf.SubscribeUrl, h.templateData(invocation.FetchRequest{}, ""))
		if err != nil {
			return "", err
		}
		id, err := jsonpath.JsonPathLookup(doc, h.conf.SubscriptionIdPath)
		if err != nil || id == nil {
			return "", fmt.Errorf("subscription id not found at %s", h.conf.SubscriptionIdPath)
		}
		return util.FormatValue(id), nil
	})
	if err != nil {
		return err
	}
	logger.Info("subscription active", zap.String("trigger", h.def.Name), zap.String("subscriptionId", id))
	return nil
}

func (h *httpConnector) OnDisable(ctx context.Context, hooks polling.Hooks) error {
	if h.conf.UnsubscribeUrl == "" {
		return nil
	}
	id, found, err := hooks.Subscription(ctx)
	if err != nil || !found {
		return err
	}
	_, err = h.call(ctx, http.MethodDelete, h.conf.UnsubscribeUrl, h.templateData(invocation.FetchRequest{}, id))
	return err
}

func (h *httpConnector) templateData(req invocation.FetchRequest, subscriptionId string) map[string]any {
	data := map[string]any{
		"props":          h.def.Props,
		"firstRun":       req.FirstRun,
		"sampleSize":     req.SampleSize,
		"subscriptionId": subscriptionId,
	}
	if req.Watermark != nil {
		data["watermark"] = map[string]any{
			"time":   req.Watermark.Time,
			"count":  req.Watermark.Count,
			"lastId": req.Watermark.LastID,
		}
	}
	return data
}

func (h *httpConnector) call(ctx context.Context, method string, urlTemplate string, data map[string]any) (any, error) {
	url := util.ResolveURL(urlTemplate, data)
	var body io.Reader
	if method == http.MethodPost {
		payload := []byte("{}")
		if h.conf.Body != nil {
			encoded, err := json.Marshal(util.ResolveParams(h.conf.Body, data))
			if err != nil {
				return nil, err
			}
			payload = encoded
		}
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range h.conf.Headers {
		req.Header.Set(k, util.ResolveString(v, data))
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s %s returned %d", method, url, resp.StatusCode)
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, nil
	}
	var doc any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("decode response of %s: %w", url, err)
	}
	return doc, nil
}

func (h *httpConnector) toCandidate(element any) (model.CandidateItem, error) {
	payload, err := json.Marshal(element)
	if err != nil {
		return model.CandidateItem{}, err
	}
	item := model.CandidateItem{Payload: payload}
	if h.conf.IdPath != "" {
		if id, err := jsonpath.JsonPathLookup(element, h.conf.IdPath); err == nil && id != nil {
			item.ID = util.FormatValue(id)
		}
	}
	key, ok, err := h.sortKey(element)
	if err != nil {
		return model.CandidateItem{}, err
	}
	if ok {
		item.SortKey = &key
	}
	return item, nil
}

// sortKey returns epoch milliseconds for element. A missing value is not an
// error here; strategies that need it reject the item.
func (h *httpConnector) sortKey(element any) (int64, bool, error) {
	if h.conf.SortKeyScript != "" {
		v, err := evalSortKey(h.conf.SortKeyScript, element)
		if err != nil {
			return 0, false, err
		}
		return h.scale(v), true, nil
	}
	if h.conf.SortKeyPath == "" {
		return 0, false, nil
	}
	raw, err := jsonpath.JsonPathLookup(element, h.conf.SortKeyPath)
	if err != nil || raw == nil {
		return 0, false, nil
	}
	switch v := raw.(type) {
	case float64:
		return h.scale(v), true, nil
	case string:
		if h.conf.SortKeyFormat != SORT_KEY_RFC3339 {
			return 0, false, fmt.Errorf("sort key %q is a string but format is %s", v, h.conf.SortKeyFormat)
		}
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return 0, false, err
		}
		return ts.UnixMilli(), true, nil
	}
	return 0, false, fmt.Errorf("unsupported sort key %v", raw)
}

func (h *httpConnector) scale(v float64) int64 {
	if h.conf.SortKeyFormat == SORT_KEY_EPOCH_SECONDS {
		return int64(v * 1000)
	}
	return int64(v)
}
