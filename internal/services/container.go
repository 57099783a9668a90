package services

import (
	"github.com/amaumene/goviaplay/internal/config"
	"github.com/amaumene/goviaplay/internal/database"
	"github.com/amaumene/goviaplay/pkg/logger"
)

// Container groups the service instances shared across handlers.
type Container struct {
	Gateway    *Gateway
	Auth       *Auth
	Catalog    *Catalog
	Classifier *Classifier
	Resolver   *Resolver
	Subtitles  *Subtitles
	M3U        *M3U
	MyList     *MyList
	Session    *database.SessionStore
	Watched    *database.WatchedDB
	Config     *config.Config
	Logger     logger.Logger
}

// NewContainer wires the full service graph. watched may be nil when
// no host video database is configured.
func NewContainer(cfg *config.Config, session *database.SessionStore, watched *database.WatchedDB, log logger.Logger) *Container {
	gateway := NewGateway(session, log)
	classifier := NewClassifier()

	var states WatchStates
	if watched != nil {
		states = watched.ByGUID
	}
	catalog := NewCatalog(gateway, classifier, cfg, states, log)

	return &Container{
		Gateway:    gateway,
		Auth:       NewAuth(gateway, cfg, session, log),
		Catalog:    catalog,
		Classifier: classifier,
		Resolver:   NewResolver(gateway, catalog, cfg, session, log),
		Subtitles:  NewSubtitles(gateway, cfg.SubtitleDir(), log),
		M3U:        NewM3U(catalog, cfg, log),
		MyList:     NewMyList(gateway, cfg, session, log),
		Session:    session,
		Watched:    watched,
		Config:     cfg,
		Logger:     log,
	}
}
