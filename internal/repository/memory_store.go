package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"candlestand-api/internal/model"
)

// MemoryStore is an in-memory implementation of Store.
// Use this for development/testing; nothing survives a restart.
type MemoryStore struct {
	mu           sync.RWMutex
	stands       map[string]*model.Stand // by session ID
	serials      map[string]string       // serial number -> session ID
	transactions map[string]*memoryTransaction
	seq          int64
}

type memoryTransaction struct {
	tx  model.Transaction
	seq int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		stands:       make(map[string]*model.Stand),
		serials:      make(map[string]string),
		transactions: make(map[string]*memoryTransaction),
	}
}

// FindStandBySerial finds a stand by its device serial number.
func (r *MemoryStore) FindStandBySerial(ctx context.Context, serialNumber string) (*model.Stand, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sid, ok := r.serials[serialNumber]
	if !ok {
		return nil, ErrNotFound
	}
	stand := *r.stands[sid]
	return &stand, nil
}

// CreateStand inserts a new stand record.
func (r *MemoryStore) CreateStand(ctx context.Context, stand *model.Stand) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.serials[stand.SerialNumber]; exists {
		return fmt.Errorf("failed to create stand: serial number %s already registered", stand.SerialNumber)
	}
	if _, exists := r.stands[stand.SessionID]; exists {
		return fmt.Errorf("failed to create stand: session id %s already exists", stand.SessionID)
	}

	copied := *stand
	r.stands[stand.SessionID] = &copied
	r.serials[stand.SerialNumber] = stand.SessionID
	return nil
}

// UpdateStand applies a partial update to the stand with the given session ID.
func (r *MemoryStore) UpdateStand(ctx context.Context, sessionID string, update model.StandUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stand, ok := r.stands[sessionID]
	if !ok {
		return fmt.Errorf("stand %s: %w", sessionID, ErrNotFound)
	}
	update.Apply(stand)
	return nil
}

// CreateTransaction inserts a new transaction record.
func (r *MemoryStore) CreateTransaction(ctx context.Context, tx *model.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.transactions[tx.ID]; exists {
		return fmt.Errorf("failed to create transaction: %s already exists", tx.ID)
	}

	r.seq++
	r.transactions[tx.ID] = &memoryTransaction{tx: *tx, seq: r.seq}
	return nil
}

// FindTransactionsByStand returns every transaction of a stand in insertion order.
func (r *MemoryStore) FindTransactionsByStand(ctx context.Context, sessionID string) ([]model.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matches := make([]*memoryTransaction, 0)
	for _, entry := range r.transactions {
		if entry.tx.StandID == sessionID {
			matches = append(matches, entry)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].seq < matches[j].seq })

	txs := make([]model.Transaction, len(matches))
	for i, entry := range matches {
		txs[i] = entry.tx
	}
	return txs, nil
}

// GetTransaction returns a single transaction by ID.
func (r *MemoryStore) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.transactions[id]
	if !ok {
		return nil, ErrNotFound
	}
	tx := entry.tx
	return &tx, nil
}

// BatchUpdateTransactions applies the update to all ids, or to none of them.
func (r *MemoryStore) BatchUpdateTransactions(ctx context.Context, ids []string, update model.TransactionUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range ids {
		if _, ok := r.transactions[id]; !ok {
			return fmt.Errorf("transaction %s: %w", id, ErrNotFound)
		}
	}
	for _, id := range ids {
		update.Apply(&r.transactions[id].tx)
	}
	return nil
}

// BatchDeleteTransactions deletes all ids. Missing ids are ignored.
func (r *MemoryStore) BatchDeleteTransactions(ctx context.Context, ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range ids {
		delete(r.transactions, id)
	}
	return nil
}

// GetStats returns statistics about the store contents.
func (r *MemoryStore) GetStats(ctx context.Context) (map[string]interface{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var active, pending int64
	for _, s := range r.stands {
		if s.IsActive {
			active++
		}
	}
	for _, entry := range r.transactions {
		if entry.tx.IsPendingOnline() {
			pending++
		}
	}

	return map[string]interface{}{
		"type":                        "memory",
		"total_stands":                int64(len(r.stands)),
		"active_stands":               active,
		"total_transactions":          int64(len(r.transactions)),
		"pending_online_transactions": pending,
	}, nil
}

// Close is a no-op for the memory store.
func (r *MemoryStore) Close() error {
	return nil
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
