package repository

import (
	"context"
	"errors"

	"candlestand-api/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store defines stand and transaction data access methods.
type Store interface {
	// FindStandBySerial finds a stand by its device serial number.
	// Returns ErrNotFound if no stand is registered for the serial.
	FindStandBySerial(ctx context.Context, serialNumber string) (*model.Stand, error)

	// CreateStand inserts a new stand record.
	CreateStand(ctx context.Context, stand *model.Stand) error

	// UpdateStand applies a partial update to the stand with the given session ID.
	UpdateStand(ctx context.Context, sessionID string, update model.StandUpdate) error

	// CreateTransaction inserts a new transaction record.
	CreateTransaction(ctx context.Context, tx *model.Transaction) error

	// FindTransactionsByStand returns every transaction of a stand.
	FindTransactionsByStand(ctx context.Context, sessionID string) ([]model.Transaction, error)

	// BatchUpdateTransactions applies the update to all ids atomically.
	// A missing id fails the whole batch.
	BatchUpdateTransactions(ctx context.Context, ids []string, update model.TransactionUpdate) error

	// BatchDeleteTransactions deletes all ids atomically. Missing ids are ignored.
	BatchDeleteTransactions(ctx context.Context, ids []string) error

	// GetStats returns statistics about the store.
	GetStats(ctx context.Context) (map[string]interface{}, error)

	// Close closes the store connection.
	Close() error
}
