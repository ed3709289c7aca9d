package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/unimailhq/unimail/api"
	"github.com/unimailhq/unimail/config"
	"github.com/unimailhq/unimail/internal/cron"
	"github.com/unimailhq/unimail/internal/database"
	"github.com/unimailhq/unimail/internal/logger"
	"github.com/unimailhq/unimail/internal/repository"
	"github.com/unimailhq/unimail/internal/tracing"
	"github.com/unimailhq/unimail/services"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	cfg *config.Config
	log logger.Logger
}

func New(cfg *config.Config, log logger.Logger) *Server {
	return &Server{cfg: cfg, log: log}
}

// Run wires the full service graph and blocks until SIGINT/SIGTERM, then
// shuts the HTTP listener down gracefully.
func (s *Server) Run(parentCtx context.Context) error {
	ctx, cancel := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tracer, closer, err := tracing.NewJaegerTracer(s.cfg.Tracing, s.log)
	if err != nil {
		return errors.Wrap(err, "failed to initialize tracer")
	}
	defer closer.Close()
	opentracing.SetGlobalTracer(tracer)

	db, err := database.NewConnection(s.cfg.DatabaseConfig)
	if err != nil {
		return errors.Wrap(err, "failed to connect to database")
	}

	repositories := repository.InitRepositories(db)
	if err := repository.MigrateDB(db); err != nil {
		return errors.Wrap(err, "failed to migrate database")
	}

	svc, err := services.InitServices(s.cfg, repositories, s.log)
	if err != nil {
		return err
	}
	defer svc.Close()

	scheduler := cron.NewSyncScheduler(repositories.MailAccountRepository, svc.MessageCache, s.log)
	if err := scheduler.Start(); err != nil {
		return errors.Wrap(err, "failed to start sync scheduler")
	}
	defer scheduler.Stop()

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(tracing.RecoveryWithJaeger(tracer))
	api.RegisterRoutes(r, s.cfg, svc, repositories, s.log)

	srv := &http.Server{
		Addr:    ":" + s.cfg.AppConfig.APIPort,
		Handler: r,
	}

	serveErr := make(chan error, 1)
	go func() {
		s.log.Infof("listening on port %s", s.cfg.AppConfig.APIPort)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	return srv.Shutdown(shutdownCtx)
}
