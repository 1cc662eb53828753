package state

import (
	"errors"
	"sync"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"accesspay/storage"
)

// Manager provides read and write access to ledger state over a key-value
// database. Writes accumulate in an in-memory journal and only reach the
// database on Commit; Abort discards them. One Manager therefore frames one
// atomic unit of work: either every mutation of a settlement lands, or none
// do.
type Manager struct {
	db storage.Database

	mu      sync.RWMutex
	writes  map[string][]byte
	deletes map[string]struct{}
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{
		db:      db,
		writes:  make(map[string][]byte),
		deletes: make(map[string]struct{}),
	}
}

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

// get reads through the journal first so an operation observes its own prior
// writes within the same unit.
func (m *Manager) get(key []byte) ([]byte, error) {
	hashed := string(kvKey(key))
	m.mu.RLock()
	if _, gone := m.deletes[hashed]; gone {
		m.mu.RUnlock()
		return nil, nil
	}
	if value, ok := m.writes[hashed]; ok {
		m.mu.RUnlock()
		return append([]byte(nil), value...), nil
	}
	m.mu.RUnlock()
	value, err := m.db.Get([]byte(hashed))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return value, nil
}

func (m *Manager) put(key, value []byte) error {
	hashed := string(kvKey(key))
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.deletes, hashed)
	m.writes[hashed] = append([]byte(nil), value...)
	return nil
}

func (m *Manager) del(key []byte) error {
	hashed := string(kvKey(key))
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.writes, hashed)
	m.deletes[hashed] = struct{}{}
	return nil
}

// Commit flushes the journal to the database in one batch write and resets
// it. The batch either lands whole or not at all, so a fault mid-flush never
// persists a partial unit.
func (m *Manager) Commit() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.writes) == 0 && len(m.deletes) == 0 {
		return nil
	}
	batch := storage.NewBatch()
	for key, value := range m.writes {
		batch.Put([]byte(key), value)
	}
	for key := range m.deletes {
		batch.Delete([]byte(key))
	}
	if err := m.db.Write(batch); err != nil {
		return err
	}
	m.writes = make(map[string][]byte)
	m.deletes = make(map[string]struct{})
	return nil
}

// Abort drops all journalled mutations.
func (m *Manager) Abort() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = make(map[string][]byte)
	m.deletes = make(map[string]struct{})
}

// Pending reports the number of journalled mutations, for tests and metrics.
func (m *Manager) Pending() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.writes) + len(m.deletes)
}
