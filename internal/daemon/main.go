// Package daemon wires configuration, database, session storage, event
// subscribers and the web service into a runnable process.
package daemon

import (
	"fmt"

	sessionmysql "github.com/gofiber/storage/mysql/v2"
	sessionpostgres "github.com/gofiber/storage/postgres/v3"
	"github.com/gofiber/storage"
	"github.com/rs/zerolog/log"
	gormmysql "gorm.io/driver/mysql"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/dirgate/dirgate/internal/config"
	"github.com/dirgate/dirgate/internal/db/dsn"
	"github.com/dirgate/dirgate/internal/db/models"
	"github.com/dirgate/dirgate/internal/events"
	"github.com/dirgate/dirgate/internal/logger"
	"github.com/dirgate/dirgate/internal/web"
	"github.com/dirgate/dirgate/internal/web/session"
)

// Daemon represents the main application daemon.
type Daemon struct {
	webService *web.Service
	cfg        *config.Config
}

// Start starts the Daemon's web service.
func (d *Daemon) Start() error {
	return d.webService.Start(fmt.Sprintf(":%d", d.cfg.Webserver.Port))
}

// WaitShutdown blocks until the web service shut down gracefully.
func (d *Daemon) WaitShutdown() {
	d.webService.WaitShutdown()
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) *Daemon {
	if cfg == nil {
		log.Fatal().Msg("config is nil")
		return nil
	}

	if errLog := logger.Init(cfg.Log); errLog != nil {
		log.Warn().Err(errLog).Msg("logger initialization failed, keeping defaults")
	}

	db, err := gorm.Open(openDialector(cfg), &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}

	if err = db.AutoMigrate(
		&models.User{},
	); err != nil {
		panic("failed to migrate database")
	}

	seed(cfg, db)

	session.Init(sessionStorage(cfg))

	subscribeAuditLog(events.Default())

	return &Daemon{
		webService: web.New(cfg, db),
		cfg:        cfg,
	}
}

// openDialector picks the gorm driver for the configured engine.
func openDialector(cfg *config.Config) gorm.Dialector {
	if cfg.DB.GormEngine == dsn.EnginePostgres {
		return gormpostgres.Open(dsn.Create(cfg))
	}

	return gormmysql.Open(dsn.Create(cfg))
}

// sessionStorage picks the fiber storage backend for the configured engine.
func sessionStorage(cfg *config.Config) storage.Storage {
	if cfg.DB.GormEngine == dsn.EnginePostgres {
		return sessionpostgres.New(sessionpostgres.Config{
			Host:     cfg.DB.Host,
			Port:     cfg.DB.Port,
			Username: cfg.DB.User,
			Password: cfg.DB.Password,
			Database: cfg.DB.Name,
			Table:    "sessions",
		})
	}

	return sessionmysql.New(sessionmysql.Config{
		ConnectionURI: dsn.Create(cfg),
		Table:         "sessions",
	})
}

// subscribeAuditLog writes an audit line for every authentication event.
func subscribeAuditLog(bus *events.Bus) {
	bus.Subscribe(events.LoginSucceeded, func(e events.Event) {
		log.Info().
			Str("event", e.Name).
			Str("backend", e.Backend).
			Uint64("user_id", e.UserID).
			Msg("audit: login succeeded")
	})

	bus.Subscribe(events.UserProvisioned, func(e events.Event) {
		log.Info().
			Str("event", e.Name).
			Str("backend", e.Backend).
			Uint64("user_id", e.UserID).
			Msg("audit: user provisioned")
	})
}
