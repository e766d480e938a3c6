// internal/store/store.go
package store

import (
	"database/sql"

	"forbill-bot/internal/common/logger"
)

// Store provides persistence for users, wallets and transactions on top of
// PostgreSQL. All money amounts are whole naira stored as BIGINT.
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

func NewStore(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "store"}),
	}
}
