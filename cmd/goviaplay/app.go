package main

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/amaumene/goviaplay/internal/config"
	"github.com/amaumene/goviaplay/internal/constants"
	"github.com/amaumene/goviaplay/internal/database"
	"github.com/amaumene/goviaplay/internal/handlers"
	"github.com/amaumene/goviaplay/internal/middleware"
	"github.com/amaumene/goviaplay/internal/services"
	"github.com/amaumene/goviaplay/pkg/logger"
)

// App wires configuration, storage, services and the HTTP surface.
type App struct {
	Config  *config.Config
	Logger  logger.Logger
	Session *database.SessionStore
	Watched *database.WatchedDB

	container *services.Container
	router    *gin.Engine
}

// NewApp builds an uninitialized application.
func NewApp(cfg *config.Config) *App {
	return &App{
		Config: cfg,
		Logger: logger.NewWithLevel(cfg.LogLevel),
	}
}

// Initialize opens storage and wires the service graph and routes.
func (a *App) Initialize() error {
	if err := os.MkdirAll(a.Config.DataDir, 0755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	session, err := database.NewSessionStore(a.Config.SessionDBPath())
	if err != nil {
		return err
	}
	a.Session = session

	if a.Config.VideoDBPath != "" {
		watched, err := database.OpenWatchedDB(a.Config.VideoDBPath)
		if err != nil {
			a.Logger.Warnf("[App] video database unavailable, watch history disabled: %v", err)
		} else {
			a.Watched = watched
		}
	}

	a.container = services.NewContainer(a.Config, a.Session, a.Watched, a.Logger)

	if a.Config.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	a.router = gin.New()
	a.router.Use(gin.Recovery())
	a.router.Use(middleware.RequestLogger(a.Logger))
	a.router.Use(middleware.CORS())
	a.router.Use(middleware.Gzip())

	handlers.New(a.container).SetupRoutes(a.router)
	return nil
}

// Run starts the HTTP server and blocks.
func (a *App) Run() error {
	addr := ":" + a.Config.Port
	a.Logger.Infof("[App] %s %s listening on %s (country %s)",
		constants.AppName, constants.AppVersion, addr, a.Config.Country)
	return a.router.Run(addr)
}

// Shutdown releases storage handles.
func (a *App) Shutdown() {
	if a.Watched != nil {
		if err := a.Watched.Close(); err != nil {
			a.Logger.Warnf("[App] closing video database: %v", err)
		}
	}
	if a.Session != nil {
		if err := a.Session.Save(); err != nil {
			a.Logger.Warnf("[App] saving session: %v", err)
		}
		if err := a.Session.Close(); err != nil {
			a.Logger.Warnf("[App] closing session store: %v", err)
		}
	}
}
