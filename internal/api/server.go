package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/clientflow-hq/clientflow/internal/api/handlers"
	"github.com/clientflow-hq/clientflow/internal/domain/services"
	"github.com/clientflow-hq/clientflow/internal/pkg/config"
	"github.com/clientflow-hq/clientflow/internal/pkg/metrics"
	pkgredis "github.com/clientflow-hq/clientflow/internal/pkg/redis"
	"github.com/clientflow-hq/clientflow/internal/reminder"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type Server struct {
	cfg        *config.Config
	router     *chi.Mux
	httpServer *http.Server
}

func NewServer(
	cfg *config.Config,
	workflows *services.WorkflowService,
	scheduler *reminder.Scheduler,
	redisClient *pkgredis.Client,
	db *gorm.DB,
) *Server {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(chimiddleware.Timeout(60 * time.Second))

	router.Use(cors.New(cors.Options{
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
	}).Handler)

	workflow := handlers.NewWorkflowHandler(workflows)
	automation := handlers.NewAutomationHandler(workflows, scheduler)
	health := handlers.NewHealthHandler(db, redisClient.Client)

	router.Get("/health", health.Health)
	router.Handle("/metrics", metrics.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/workflows", workflow.Create)
		r.Get("/workflows", workflow.List)
		r.Post("/workflows/{id}/activate", workflow.Activate)
		r.Post("/workflows/{id}/pause", workflow.Pause)
		r.Post("/workflows/{id}/archive", workflow.Archive)
		r.Delete("/workflows/{id}", workflow.Delete)
		r.Get("/workflows/{id}/executions", workflow.ListExecutions)
		r.Post("/executions/{id}/cancel", workflow.CancelExecution)
		r.Delete("/executions/{id}", workflow.DeleteExecution)
		r.Post("/workflows/{id}/fire", automation.Fire)
		r.Put("/workflows/{id}/actions", automation.ReplaceActions)
		r.Post("/appointments/{id}/reminders", automation.ScheduleReminders)
		r.Delete("/appointments/{id}/reminders", automation.CancelReminders)
		r.Get("/appointments/{id}/reminders", automation.ListReminders)
	})

	return &Server{
		cfg:    cfg,
		router: router,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		},
	}
}

func (s *Server) Start() error {
	log.Info().Str("addr", s.httpServer.Addr).Msg("Starting API server")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down API server...")
	return s.httpServer.Shutdown(ctx)
}
