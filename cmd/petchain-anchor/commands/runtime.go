// Package commands implements the petchain-anchor CLI commands.
package commands

import (
	"database/sql"
	"time"

	"github.com/DogStark/petchain-anchor/anchor"
	"github.com/DogStark/petchain-anchor/anchor/storage"
	"github.com/DogStark/petchain-anchor/config"
	"github.com/DogStark/petchain-anchor/crypt"
	"github.com/DogStark/petchain-anchor/db"
	"github.com/DogStark/petchain-anchor/errors"
	"github.com/DogStark/petchain-anchor/ipfs"
	"github.com/DogStark/petchain-anchor/ledger"
	"github.com/DogStark/petchain-anchor/logger"
)

// ConfigPath is set by the root command's --config flag.
var ConfigPath string

func loadConfig() (*config.Config, error) {
	if ConfigPath != "" {
		return config.LoadFromFile(ConfigPath)
	}
	return config.Load()
}

// buildService wires the full anchoring pipeline from configuration.
// The caller owns the returned database handle.
func buildService(cfg *config.Config) (*anchor.Service, *sql.DB, error) {
	database, err := db.Open(cfg.Database.Path, logger.Logger)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to open database")
	}
	if err := db.Migrate(database, logger.Logger); err != nil {
		database.Close()
		return nil, nil, errors.Wrap(err, "failed to migrate database")
	}

	key, err := crypt.DeriveKey(cfg.Encryption.Secret)
	if err != nil {
		database.Close()
		return nil, nil, errors.Wrap(err, "failed to derive encryption key")
	}

	content := ipfs.NewClient(cfg.Store.APIURL, time.Duration(cfg.Store.TimeoutSeconds)*time.Second, logger.Logger)

	ledgerClient, err := ledger.New(ledger.Config{
		Network:     cfg.Ledger.Network,
		HorizonURL:  cfg.Ledger.HorizonURL,
		SigningSeed: cfg.Ledger.SigningSeed,
		Timeout:     time.Duration(cfg.Ledger.TimeoutSeconds) * time.Second,
	}, logger.Logger)
	if err != nil {
		database.Close()
		return nil, nil, errors.Wrap(err, "failed to create ledger client")
	}

	store := storage.NewSyncStore(database)
	service := anchor.NewService(store, content, ledgerClient, key, logger.Logger)

	return service, database, nil
}
