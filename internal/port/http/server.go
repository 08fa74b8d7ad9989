package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Abdurahmanit/GroupProject/rental-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/rental-service/internal/port/http/middleware"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Server struct {
	httpServer *http.Server
	log        logger.Logger
	port       string
}

func NewServer(
	log logger.Logger,
	port string,
	readTimeout time.Duration,
	writeTimeout time.Duration,
	handler *Handler,
	jwtSecret string,
) *Server {
	router := mux.NewRouter()
	router.Use(middleware.Logging(log))

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/listings/{id}", handler.GetListing).Methods(http.MethodGet)

	protected := api.NewRoute().Subrouter()
	protected.Use(middleware.Auth(jwtSecret, log))
	protected.HandleFunc("/applications", handler.SubmitApplication).Methods(http.MethodPost)
	protected.HandleFunc("/applications", handler.ListApplications).Methods(http.MethodGet)
	protected.HandleFunc("/applications/{id}/approve", handler.ApproveApplication).Methods(http.MethodPost)
	protected.HandleFunc("/applications/{id}/reject", handler.RejectApplication).Methods(http.MethodPost)
	protected.HandleFunc("/listings", handler.CreateListing).Methods(http.MethodPost)
	protected.HandleFunc("/listings", handler.ListListings).Methods(http.MethodGet)
	protected.HandleFunc("/listings/{id}/inventory", handler.SetInventory).Methods(http.MethodPatch)
	protected.HandleFunc("/listings/{id}/archive", handler.ArchiveListing).Methods(http.MethodPost)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%s", port),
			Handler:      otelhttp.NewHandler(router, "rental-service"),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
		},
		log:  log,
		port: port,
	}
}

func (s *Server) Start() error {
	s.log.Infof("HTTP server is starting on port %s", s.port)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed to serve: %w", err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("HTTP server is stopping gracefully")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.log.Warn("graceful shutdown timed out, forcing stop")
		return s.httpServer.Close()
	}
	s.log.Info("HTTP server stopped gracefully")
	return nil
}
