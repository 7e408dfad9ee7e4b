// Package dsn provides Data Source Name construction utilities for database connections.
package dsn

import (
	"fmt"

	"github.com/dirgate/dirgate/internal/config"
)

// Engine names accepted in config DB.GormEngine.
const (
	EngineMySQL    = "mysql"
	EnginePostgres = "postgres"
)

// Create builds the Data Source Name from the configuration.
// The format depends on the configured gorm engine.
func Create(dbCfg *config.Config) string {
	if dbCfg.DB.GormEngine == EnginePostgres {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s %s",
			dbCfg.DB.Host,
			dbCfg.DB.Port,
			dbCfg.DB.User,
			dbCfg.DB.Password,
			dbCfg.DB.Name,
			dbCfg.DB.Extras,
		)
	}

	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
		dbCfg.DB.User,
		dbCfg.DB.Password,
		dbCfg.DB.Host,
		dbCfg.DB.Port,
		dbCfg.DB.Name,
		dbCfg.DB.Extras,
	)
}
