package storage

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quire/internal/common"
	"github.com/ternarybob/quire/internal/interfaces"
	"github.com/ternarybob/quire/internal/storage/badger"
)

// NewRunStorage opens the run ledger described by config.
// It returns nil when the ledger is disabled.
func NewRunStorage(logger arbor.ILogger, config *common.Config) (interfaces.RunStorage, error) {
	if !config.Storage.Badger.Enabled {
		logger.Debug().Msg("Run ledger disabled")
		return nil, nil
	}
	db, err := badger.NewBadgerDB(logger, &config.Storage.Badger)
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("path", config.Storage.Badger.Path).Msg("Run ledger initialized")
	return badger.NewRunStorage(db, logger), nil
}
