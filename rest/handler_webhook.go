package rest

import (
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	api "github.com/mohitkumar/pollster/api/v1"
	"github.com/mohitkumar/pollster/logger"
	"github.com/mohitkumar/pollster/webhook"
	"go.uber.org/zap"
)

const MAX_WEBHOOK_BODY = 4 << 20

func (s *Server) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	defer r.Body.Close()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MAX_WEBHOOK_BODY))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logger.Warn("webhook body too large", zap.String("name", name), zap.Int64("limit", tooLarge.Limit))
			respondWithError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		respondWithError(w, http.StatusBadRequest, "error reading body")
		return
	}
	req := webhook.Request{
		Method:      r.Method,
		Query:       r.URL.Query(),
		Header:      r.Header,
		ContentType: r.Header.Get("Content-Type"),
		Body:        body,
	}
	res, err := s.triggerService.HandleWebhook(r.Context(), name, req)
	if err != nil {
		logger.Error("error handling webhook", zap.String("name", name), zap.Error(err))
		respondWithError(w, api.HTTPStatus(err), err.Error())
		return
	}
	for k, v := range res.Headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(res.StatusCode)
	w.Write(res.Body)
}
