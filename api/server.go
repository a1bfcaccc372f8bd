package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/trustwork/discovery/config"
	"github.com/trustwork/discovery/db/datastore"
	"github.com/trustwork/discovery/db/kvdb"
	"github.com/trustwork/discovery/logger"
	"github.com/trustwork/discovery/services/alerts"
	"github.com/trustwork/discovery/services/savedsearch"
	"github.com/trustwork/discovery/services/search"
	"github.com/trustwork/discovery/validation"
)

type server struct {
	router        *gin.Engine
	httpServer    *http.Server
	cfg           *config.Config
	store         datastore.Store
	kvdb          kvdb.DB
	orchestrator  *search.Orchestrator
	savedSearches *savedsearch.Store
	alertEngine   *alerts.Engine
	validator     *validation.Validator
	logger        logger.Logger
}

func Run(ctx context.Context, cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt)

	defer cancel()

	s := &server{
		logger: logger.New(),
		cfg:    cfg,
	}
	if err := s.setupDependencies(ctx); err != nil {
		return err
	}
	s.setupRouter()
	s.setupHTTPServer()

	if err := s.alertEngine.Start(ctx); err != nil {
		s.logger.Error("error starting alert engine", "err", err.Error())
		return err
	}

	s.setupGracefulShutdown(ctx)

	return nil
}

func (s *server) setupDependencies(ctx context.Context) error {
	var err error

	if databaseURL := s.cfg.GetDatabaseURL(); databaseURL != "" {
		s.store, err = datastore.NewPostgresStore(ctx, s.logger, databaseURL)
		if err != nil {
			s.logger.Error("error connecting to the data layer", "err", err.Error())
			return err
		}
	} else {
		s.logger.Warn("no DATABASE_URL configured, using the in-memory data layer")
		s.store = datastore.NewMemoryStore(s.logger)
	}

	var limiter search.Limiter
	if redisURL := s.cfg.GetRedisURL(); redisURL != "" {
		limiter, err = search.NewRedisLimiter(ctx, s.logger, redisURL)
		if err != nil {
			s.logger.Error("error connecting to redis for rate limiting", "err", err.Error())
			return err
		}
	} else {
		memoryLimiter := search.NewMemoryLimiter()
		go memoryLimiter.EvictIdle(ctx)
		limiter = memoryLimiter
	}

	s.kvdb, err = kvdb.New(s.logger, s.cfg)
	if err != nil {
		s.logger.Error("error creating kvDB", "err", err.Error())
		return err
	}

	s.validator, err = validation.New(s.logger)
	if err != nil {
		s.logger.Error("error creating validator", "err", err.Error())
		return err
	}

	s.orchestrator = search.NewOrchestrator(s.logger, s.store, limiter)
	s.savedSearches = savedsearch.NewStore(s.logger, s.kvdb)
	s.alertEngine = alerts.New(s.logger, s.savedSearches, s.orchestrator,
		&alerts.LogNotifier{Logger: s.logger}, s.cfg.GetAlertTick(), s.cfg.GetAlertConcurrency())

	return nil
}

func (s *server) setupRouter() {
	router := newRouter()

	router.Use(loggingMiddleware(s.logger))

	setupRoutes(router, s.logger, s.orchestrator, s.savedSearches, s.validator)

	s.router = router
}

func (s *server) setupHTTPServer() {

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", s.cfg.GetPort()),
		Handler: s.router.Handler(),
	}
	s.httpServer = httpServer
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()
}

func (s *server) setupGracefulShutdown(ctx context.Context) {

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		s.logger.Info("starting to shut down http server")
		shutdownCtx := context.Background()
		shutdownCtx, cancel := context.WithTimeout(shutdownCtx, 10*time.Second)
		defer cancel()
		s.alertEngine.Stop()
		s.kvdb.Close()
		s.store.Close()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error shutting down http server", "err", err)
			return
		}
		s.logger.Info("shut down http server successfully")
	}()

	wg.Wait()
}
