package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/mohitkumar/pollster/logger"
	"github.com/mohitkumar/pollster/model"
	"github.com/mohitkumar/pollster/sink"
	"go.uber.org/zap"
)

type Recorder interface {
	RecordHandshake(trigger string, status int)
}

// Handler serves one webhook trigger: handshakes are answered, everything
// else is forwarded to the sink untouched.
type Handler struct {
	def        model.TriggerDefinition
	negotiator *Negotiator
	filter     *RedeliveryFilter
	sink       sink.Sink
	recorder   Recorder
}

func NewHandler(def model.TriggerDefinition, negotiator *Negotiator, filter *RedeliveryFilter, s sink.Sink, recorder Recorder) *Handler {
	return &Handler{
		def:        def,
		negotiator: negotiator,
		filter:     filter,
		sink:       s,
		recorder:   recorder,
	}
}

func (h *Handler) Handle(ctx context.Context, req Request) (Response, error) {
	if resp, ok := h.negotiator.Negotiate(req); ok {
		logger.Info("webhook handshake",
			zap.String("trigger", h.def.Name),
			zap.Int("status", resp.StatusCode))
		if h.recorder != nil {
			h.recorder.RecordHandshake(h.def.Name, resp.StatusCode)
		}
		return resp, nil
	}

	now := time.Now()
	if h.filter != nil {
		fresh, err := h.filter.Accept(ctx, h.def.Scope(), req.Body, now)
		if err != nil {
			return Response{}, err
		}
		if !fresh {
			logger.Debug("dropping redelivered webhook event", zap.String("trigger", h.def.Name))
			return jsonResponse(http.StatusOK, `{"status":"duplicate"}`), nil
		}
	}
	event := sink.Event{
		Trigger:     h.def.Name,
		Scope:       h.def.Scope(),
		Source:      sink.SOURCE_WEBHOOK,
		ContentType: req.ContentType,
		ReceivedAt:  now.UnixMilli(),
	}
	if json.Valid(req.Body) {
		event.Payload = req.Body
	} else {
		event.RawBody = req.Body
	}
	if err := h.sink.Deliver(ctx, event); err != nil {
		return Response{}, err
	}
	return jsonResponse(http.StatusOK, `{"status":"accepted"}`), nil
}

func jsonResponse(status int, body string) Response {
	return Response{
		StatusCode: status,
		Body:       []byte(body),
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}
