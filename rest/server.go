package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/mohitkumar/pollster/logger"
	"github.com/mohitkumar/pollster/metadata"
	"github.com/mohitkumar/pollster/service"
	"go.uber.org/zap"
)

type Server struct {
	http.Server
	Port            int
	metadataService metadata.MetadataService
	triggerService  *service.TriggerService
}

func NewServer(httpPort int, metadataService metadata.MetadataService, triggerService *service.TriggerService, metricsHandler http.Handler) (*Server, error) {

	s := &Server{
		Server: http.Server{
			Addr:        fmt.Sprintf(":%d", httpPort),
			IdleTimeout: 2 * time.Second,
		},
		metadataService: metadataService,
		triggerService:  triggerService,
		Port:            httpPort,
	}
	s.Handler = s.router(metricsHandler)
	return s, nil
}

func (s *Server) router(metricsHandler http.Handler) http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/metadata/trigger", s.HandleCreateTrigger).Methods(http.MethodPost)
	router.HandleFunc("/metadata/trigger", s.HandleListTriggers).Methods(http.MethodGet)
	router.HandleFunc("/metadata/trigger/{name}", s.HandleGetTrigger).Methods(http.MethodGet)
	router.HandleFunc("/metadata/trigger/{name}", s.HandleDeleteTrigger).Methods(http.MethodDelete)

	router.HandleFunc("/trigger/{name}/poll", s.HandlePoll).Methods(http.MethodPost)
	router.HandleFunc("/trigger/{name}/test", s.HandleTest).Methods(http.MethodPost)
	router.HandleFunc("/trigger/{name}/enable", s.HandleEnable).Methods(http.MethodPost)
	router.HandleFunc("/trigger/{name}/disable", s.HandleDisable).Methods(http.MethodPost)

	router.HandleFunc("/webhook/{name}", s.HandleWebhook).Methods(http.MethodGet, http.MethodPost, http.MethodPut)

	if metricsHandler != nil {
		router.Handle("/metrics", metricsHandler).Methods(http.MethodGet)
	}
	router.Use(loggingMiddleware)
	return router
}

func (s *Server) Start() error {
	logger.Info("starting http server on", zap.Int("port", s.Port))
	if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Stop() error {
	logger.Info("stopping http server")
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err := s.Shutdown(ctx)
	if err != nil {
		logger.Error("error shutting down http server", zap.Error(err))
	}
	return nil
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Info(r.URL.Path, zap.String("method", r.Method))
		next.ServeHTTP(w, r)
	})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondOK(w http.ResponseWriter, message map[string]any) {
	respondWithJSON(w, http.StatusOK, message)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
