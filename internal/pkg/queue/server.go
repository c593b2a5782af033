package queue

import (
	"context"

	"github.com/clientflow-hq/clientflow/internal/pkg/config"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

const defaultConcurrency = 10

// Server wraps an asynq consumer. Handlers are registered with HandleFunc
// before Start; the mux is immutable once the server is running.
type Server struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

func NewServer(cfg *config.RedisConfig, concurrency int) *Server {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	server := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Addr(),
			Password: cfg.Password,
			DB:       cfg.DB,
		},
		asynq.Config{
			Concurrency: concurrency,
			// Critical work preempts backfill even under load.
			Queues: map[string]int{
				QueueCritical: 6,
				QueueDefault:  3,
				QueueLow:      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Error().
					Str("task_type", task.Type()).
					Err(err).
					Msg("Task handler returned an error")
			}),
			Logger: asynqLogger{},
		},
	)

	return &Server{server: server, mux: asynq.NewServeMux()}
}

func (s *Server) HandleFunc(pattern string, handler func(context.Context, *asynq.Task) error) {
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) Start() error {
	log.Info().Msg("Queue consumer starting")
	return s.server.Start(s.mux)
}

// Shutdown stops fetching new tasks, then waits for in-flight handlers.
func (s *Server) Shutdown() {
	log.Info().Msg("Queue consumer draining")
	s.server.Stop()
	s.server.Shutdown()
}

// asynqLogger routes asynq's internal logging through zerolog.
type asynqLogger struct{}

func (asynqLogger) Debug(args ...interface{}) { log.Debug().Msgf("%v", args) }
func (asynqLogger) Info(args ...interface{})  { log.Info().Msgf("%v", args) }
func (asynqLogger) Warn(args ...interface{})  { log.Warn().Msgf("%v", args) }
func (asynqLogger) Error(args ...interface{}) { log.Error().Msgf("%v", args) }
func (asynqLogger) Fatal(args ...interface{}) { log.Fatal().Msgf("%v", args) }
