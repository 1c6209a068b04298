package rest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	api "github.com/mohitkumar/pollster/api/v1"
	"github.com/mohitkumar/pollster/logger"
	"github.com/mohitkumar/pollster/model"
	"go.uber.org/zap"
)

type RunRequest struct {
	RunId string `json:"runId"`
}

func runRequest(r *http.Request) (RunRequest, error) {
	defer r.Body.Close()
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return req, err
	}
	return req, nil
}

func (s *Server) HandlePoll(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	req, err := runRequest(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid run request")
		return
	}
	items, err := s.triggerService.Poll(r.Context(), name, req.RunId)
	if err != nil {
		logger.Error("error polling trigger", zap.String("name", name), zap.Error(err))
		respondWithError(w, api.HTTPStatus(err), err.Error())
		return
	}
	respondOK(w, map[string]any{"items": model.Payloads(items)})
}

func (s *Server) HandleTest(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	req, err := runRequest(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid run request")
		return
	}
	items, err := s.triggerService.Test(r.Context(), name, req.RunId)
	if err != nil {
		logger.Error("error testing trigger", zap.String("name", name), zap.Error(err))
		respondWithError(w, api.HTTPStatus(err), err.Error())
		return
	}
	respondOK(w, map[string]any{"items": model.Payloads(items)})
}

func (s *Server) HandleEnable(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := s.triggerService.Enable(r.Context(), name); err != nil {
		logger.Error("error enabling trigger", zap.String("name", name), zap.Error(err))
		respondWithError(w, api.HTTPStatus(err), err.Error())
		return
	}
	respondOK(w, map[string]any{"enabled": true})
}

func (s *Server) HandleDisable(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := s.triggerService.Disable(r.Context(), name); err != nil {
		logger.Error("error disabling trigger", zap.String("name", name), zap.Error(err))
		respondWithError(w, api.HTTPStatus(err), err.Error())
		return
	}
	respondOK(w, map[string]any{"disabled": true})
}
