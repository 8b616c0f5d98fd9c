package cli

import (
	"fmt"
	"log"

	"abc-inventory-monitor/internal/config"
	"abc-inventory-monitor/internal/mirror"
	"abc-inventory-monitor/internal/repository"
)

// openStore creates the relational store selected by config.
func openStore(cfg *config.Config) (repository.Store, error) {
	switch cfg.Database.Type {
	case "mysql":
		store, err := repository.NewMySQLStore(cfg.Database.MySQLDSN())
		if err != nil {
			return nil, fmt.Errorf("failed to initialize MySQL: %w", err)
		}
		log.Println("MySQL store initialized")
		return store, nil
	default: // sqlite
		store, err := repository.NewSQLiteStore(cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite: %w", err)
		}
		log.Println("SQLite store initialized")
		return store, nil
	}
}

// openMirror connects to the preference-document mirror, or returns nil
// when no URI is configured.
func openMirror(cfg *config.Config) (*mirror.Mirror, error) {
	if cfg.Mongo.URI == "" {
		return nil, nil
	}
	m, err := mirror.New(cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mirror: %w", err)
	}
	return m, nil
}
