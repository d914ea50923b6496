package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/ehr/dashboard/internal/config"
	"github.com/ehr/dashboard/internal/domain/records"
	"github.com/ehr/dashboard/internal/domain/search"
	"github.com/ehr/dashboard/internal/platform/auth"
	"github.com/ehr/dashboard/internal/platform/kvstore"
	"github.com/ehr/dashboard/internal/platform/logging"
	"github.com/ehr/dashboard/internal/platform/middleware"
	"github.com/ehr/dashboard/internal/platform/persistence"
	"github.com/ehr/dashboard/internal/platform/reporting"
	"github.com/ehr/dashboard/internal/platform/selection"
	"github.com/ehr/dashboard/internal/platform/websocket"
)

const maxRequestBody = "1M"

// runtime holds the loaded core: storage, the record store and the
// coordinator listening to it.
type runtime struct {
	cfg       *config.Config
	logger    zerolog.Logger
	logCloser io.Closer
	kv        kvstore.Store
	gateway   *persistence.Gateway
	store     *records.Store
	coord     *selection.Coordinator
	seeded    []string
}

func (rt *runtime) Close() {
	if err := rt.kv.Close(); err != nil {
		rt.logger.Warn().Err(err).Msg("failed to close storage")
	}
	rt.logCloser.Close()
}

func newLogger(cfg *config.Config, stdout io.Writer) (zerolog.Logger, io.Closer, error) {
	return logging.New(logging.Options{
		Level:   cfg.LogLevel,
		Console: cfg.IsDev(),
		File:    cfg.LogFile,
	}, stdout)
}

func openStorage(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (kvstore.Store, *persistence.Gateway, error) {
	kv, err := kvstore.Open(ctx, kvstore.Options{
		Backend:       cfg.StorageBackend,
		DataDir:       cfg.DataDir,
		DatabaseURL:   cfg.DatabaseURL,
		MaxConns:      cfg.DBMaxConns,
		MinConns:      cfg.DBMinConns,
		MongoURI:      cfg.MongoURI,
		MongoDatabase: cfg.MongoDatabase,
		EncryptionKey: cfg.EncryptionKey,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open %s storage: %w", cfg.StorageBackend, err)
	}
	logger.Info().
		Str("backend", cfg.StorageBackend).
		Bool("encrypted", cfg.EncryptionKey != "").
		Msg("storage opened")
	gw := persistence.NewGateway(kv, cfg.StorageNamespace, logger.With().Str("component", "persistence").Logger())
	return kv, gw, nil
}

// openRuntime loads persisted data (seeding what is missing) before any
// component is built, then wires the store to the coordinator.
func openRuntime(ctx context.Context, cfg *config.Config, stdout io.Writer) (*runtime, error) {
	logger, logCloser, err := newLogger(cfg, stdout)
	if err != nil {
		return nil, err
	}
	kv, gw, err := openStorage(ctx, cfg, logger)
	if err != nil {
		logCloser.Close()
		return nil, err
	}

	loaded, err := gw.LoadOrSeed(ctx)
	if err != nil {
		if !records.IsStorageWarning(err) {
			kv.Close()
			logCloser.Close()
			return nil, err
		}
		logger.Warn().Err(err).Msg("seed data could not be saved, continuing in memory")
	}

	store := records.NewStore(gw,
		records.WithLogger(logger.With().Str("component", "records").Logger()),
		records.WithActor(auth.ActorNameFromContext),
	)
	store.Load(loaded.Snapshot)

	coord := selection.NewCoordinator(store, logger.With().Str("component", "selection").Logger())
	store.Subscribe(coord.HandleChange)

	logger.Info().
		Int("patients", len(loaded.Patients)).
		Int("examinations", len(loaded.Examinations)).
		Int("files", len(loaded.Files)).
		Strs("seeded", loaded.Seeded).
		Msg("records loaded")

	return &runtime{
		cfg:       cfg,
		logger:    logger,
		logCloser: logCloser,
		kv:        kv,
		gateway:   gw,
		store:     store,
		coord:     coord,
		seeded:    loaded.Seeded,
	}, nil
}

// newSessions builds the session manager. In development a missing signing
// key is replaced by a random one, so tokens do not survive a restart.
func newSessions(cfg *config.Config) (*auth.Sessions, error) {
	ttl, err := cfg.SessionDuration()
	if err != nil {
		return nil, err
	}
	key := []byte(cfg.SessionSigningKey)
	if len(key) == 0 && cfg.IsDev() {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate session key: %w", err)
		}
	}
	var users []auth.Credential
	if cfg.AdminPasswordHash != "" {
		users = append(users, auth.Credential{
			Username:     cfg.AdminUsername,
			PasswordHash: cfg.AdminPasswordHash,
			DisplayName:  cfg.AdminDisplayName,
			Roles:        []string{auth.RoleAdmin, auth.RolePhysician},
		})
	}
	return auth.NewSessions(key, ttl, users...)
}

// newServer mounts every route. Routes that reach the store or the
// coordinator run under one mutex; the websocket endpoint only talks to the
// hub and stays outside it, but still needs a session.
func newServer(rt *runtime, sessions *auth.Sessions, hub *websocket.Hub) *echo.Echo {
	cfg := rt.cfg
	logger := rt.logger

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(middleware.BodyLimit(maxRequestBody))

	// Health check
	e.GET("/health", kvstore.HealthHandler(rt.kv, cfg.StorageBackend))

	var mu sync.Mutex

	apiV1 := e.Group("/api/v1")
	authHandler := auth.NewHandler(sessions, func() {
		if err := rt.coord.Reset(); err != nil {
			logger.Warn().Err(err).Msg("failed to reset selection on logout")
		}
	}, logger)
	authHandler.RegisterPublicRoutes(apiV1)

	protected := apiV1.Group("")
	if cfg.IsDev() {
		protected.Use(auth.DevAuthMiddleware(sessions))
	} else {
		protected.Use(auth.SessionMiddleware(sessions))
	}
	protected.Use(middleware.Audit(logger))
	protected.Use(middleware.Serialize(&mu))

	authHandler.RegisterRoutes(protected)
	records.NewHandler(rt.store, records.Filters{
		Patients: search.Patients,
		Files:    search.Files,
	}, logger).RegisterRoutes(protected)
	selection.NewHandler(rt.coord, rt.store).RegisterRoutes(protected)
	reporting.NewHandler(rt.store, cfg.RecentActivityLimit).RegisterRoutes(protected)

	// Live updates
	websocket.NewForwarder(hub).Attach(rt.coord)
	live := e.Group("", auth.QueryToken())
	if cfg.IsDev() {
		live.Use(auth.DevAuthMiddleware(sessions))
	} else {
		live.Use(auth.SessionMiddleware(sessions))
	}
	websocket.NewWebSocketHandler(hub, cfg.CORSOrigins).RegisterRoutes(live)

	return e
}

func runServer() error {
	// Config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx := context.Background()
	rt, err := openRuntime(ctx, cfg, os.Stdout)
	if err != nil {
		return err
	}
	defer rt.Close()
	logger := rt.logger

	sessions, err := newSessions(cfg)
	if err != nil {
		return err
	}
	if cfg.AdminPasswordHash == "" {
		logger.Warn().Msg("ADMIN_PASSWORD_HASH not set, login is disabled")
	}

	hub := websocket.NewHub(logger.With().Str("component", "websocket").Logger())
	e := newServer(rt, sessions, hub)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
