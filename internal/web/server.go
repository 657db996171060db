package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/variantlab/variant/internal/engine"
)

type Server struct {
	service *engine.Service
	router  *http.ServeMux
	port    int
}

func NewServer(service *engine.Service, port int) *Server {
	s := &Server{
		service: service,
		router:  http.NewServeMux(),
		port:    port,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Health check
	s.router.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Experiment management
	s.router.HandleFunc("POST /api/experiments", s.handleCreateExperiment)
	s.router.HandleFunc("GET /api/experiments", s.handleListExperiments)
	s.router.HandleFunc("GET /api/experiments/{id}", s.handleGetExperiment)
	s.router.HandleFunc("PATCH /api/experiments/{id}", s.handleUpdateExperiment)

	// Lifecycle
	s.router.HandleFunc("POST /api/experiments/{id}/start", s.handleStartExperiment)
	s.router.HandleFunc("POST /api/experiments/{id}/pause", s.handlePauseExperiment)
	s.router.HandleFunc("POST /api/experiments/{id}/resume", s.handleResumeExperiment)
	s.router.HandleFunc("POST /api/experiments/{id}/complete", s.handleCompleteExperiment)

	// Assignment, metrics and results
	s.router.HandleFunc("GET /api/experiments/{id}/variant", s.handleGetVariant)
	s.router.HandleFunc("POST /api/experiments/{id}/metrics", s.handleRecordMetric)
	s.router.HandleFunc("GET /api/experiments/{id}/results", s.handleGetResults)
}

// Handler exposes the route table, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	fmt.Printf("Starting server at http://localhost:%d\n", s.port)

	// Handle graceful shutdown
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Server shutdown error: %v\n", err)
		}
	}()

	err := server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil // Graceful shutdown
	}
	return err
}
