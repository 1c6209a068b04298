package rest

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	api "github.com/mohitkumar/pollster/api/v1"
	"github.com/mohitkumar/pollster/logger"
	"github.com/mohitkumar/pollster/model"
)

func (s *Server) HandleCreateTrigger(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var def model.TriggerDefinition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid trigger definition")
		return
	}
	err := s.metadataService.SaveTrigger(r.Context(), def)
	if err != nil {
		logger.Error("error saving trigger", zap.String("name", def.Name), zap.Error(err))
		code := api.HTTPStatus(err)
		if code == http.StatusInternalServerError {
			code = http.StatusBadRequest
		}
		respondWithError(w, code, err.Error())
		return
	}
	respondOK(w, map[string]any{"created": true})
}

func (s *Server) HandleGetTrigger(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	def, err := s.metadataService.GetTrigger(r.Context(), name)
	if err != nil {
		logger.Info("trigger lookup failed", zap.String("name", name), zap.Error(err))
		respondWithError(w, api.HTTPStatus(err), err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, redact(*def))
}

func (s *Server) HandleListTriggers(w http.ResponseWriter, r *http.Request) {
	defs, err := s.metadataService.ListTriggers(r.Context())
	if err != nil {
		logger.Error("error listing triggers", zap.Error(err))
		respondWithError(w, api.HTTPStatus(err), err.Error())
		return
	}
	out := make([]model.TriggerDefinition, 0, len(defs))
	for _, def := range defs {
		out = append(out, redact(def))
	}
	respondWithJSON(w, http.StatusOK, out)
}

// redact blanks the handshake secret of a definition leaving the process.
func redact(def model.TriggerDefinition) model.TriggerDefinition {
	if def.Handshake != nil {
		handshake := *def.Handshake
		handshake.Secret = ""
		def.Handshake = &handshake
	}
	return def
}

func (s *Server) HandleDeleteTrigger(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := s.metadataService.DeleteTrigger(r.Context(), name); err != nil {
		logger.Error("error deleting trigger", zap.String("name", name), zap.Error(err))
		respondWithError(w, api.HTTPStatus(err), err.Error())
		return
	}
	respondOK(w, map[string]any{"deleted": true})
}
