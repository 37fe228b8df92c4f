package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"smartwaste-backend/internal/models"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store. Transactions are serialised by a
// single mutex and work on a copy of the state that replaces the committed
// state only when the transaction function succeeds.
type MemoryStore struct {
	mu    sync.RWMutex
	state memState
}

type memState struct {
	users        map[string]models.User
	bins         map[string]models.Bin
	transactions []models.Transaction
	readings     []models.BinReading
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: memState{
			users: make(map[string]models.User),
			bins:  make(map[string]models.Bin),
		},
	}
}

func (s memState) clone() memState {
	c := memState{
		users:        make(map[string]models.User, len(s.users)),
		bins:         make(map[string]models.Bin, len(s.bins)),
		transactions: append([]models.Transaction(nil), s.transactions...),
		readings:     append([]models.BinReading(nil), s.readings...),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.bins {
		c.bins[k] = v
	}
	return c
}

// PutUser inserts or replaces a user row
func (s *MemoryStore) PutUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.CreatedAt == 0 {
		u.CreatedAt = time.Now().Unix()
	}
	s.state.users[u.ID] = u
}

// PutBin inserts or replaces a bin row
func (s *MemoryStore) PutBin(b models.Bin) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.bins[b.ID] = b
}

// Transactions returns the committed ledger entries for a user, oldest first
func (s *MemoryStore) Transactions(userID string) []models.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Transaction
	for _, t := range s.state.transactions {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out
}

// Readings returns the committed readings for a bin, oldest first
func (s *MemoryStore) Readings(binID string) []models.BinReading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.BinReading
	for _, r := range s.state.readings {
		if r.BinID == binID {
			out = append(out, r)
		}
	}
	return out
}

func (s *MemoryStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.state.clone()
	if err := fn(&memTx{state: &working}); err != nil {
		return err
	}
	s.state = working
	return nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.state.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) GetBin(ctx context.Context, id string) (*models.Bin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.state.bins[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (s *MemoryStore) ListUserIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]models.User, 0, len(s.state.users))
	for _, u := range s.state.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt != users[j].CreatedAt {
			return users[i].CreatedAt < users[j].CreatedAt
		}
		return users[i].ID < users[j].ID
	})
	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	return ids, nil
}

type memTx struct {
	state *memState
}

func (t *memTx) GetUserForUpdate(ctx context.Context, id string) (*models.User, error) {
	u, ok := t.state.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (t *memTx) GetBinForUpdate(ctx context.Context, id string) (*models.Bin, error) {
	b, ok := t.state.bins[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (t *memTx) SetBinLevel(ctx context.Context, binID string, level int, status string, at int64) error {
	b, ok := t.state.bins[binID]
	if !ok {
		return ErrNotFound
	}
	b.Level = models.ClampLevel(level)
	b.Status = status
	b.UpdatedAt = at
	t.state.bins[binID] = b
	return nil
}

func (t *memTx) EmptyBin(ctx context.Context, binID string, status string, at int64) error {
	b, ok := t.state.bins[binID]
	if !ok {
		return ErrNotFound
	}
	b.Level = 0
	b.Status = status
	b.LastEmptied = &at
	b.UpdatedAt = at
	t.state.bins[binID] = b
	return nil
}

func (t *memTx) AdjustBalance(ctx context.Context, userID string, delta int) (int, error) {
	u, ok := t.state.users[userID]
	if !ok {
		return 0, ErrNotFound
	}
	if u.CoinBalance+delta < 0 {
		return 0, ErrBalanceConflict
	}
	u.CoinBalance += delta
	u.UpdatedAt = time.Now().Unix()
	t.state.users[userID] = u
	return u.CoinBalance, nil
}

func (t *memTx) InsertTransaction(ctx context.Context, txn *models.Transaction) error {
	if _, ok := t.state.users[txn.UserID]; !ok {
		return ErrNotFound
	}
	if txn.ID == "" {
		txn.ID = uuid.New().String()
	}
	if txn.CreatedAt == 0 {
		txn.CreatedAt = time.Now().Unix()
	}
	t.state.transactions = append(t.state.transactions, *txn)
	return nil
}

func (t *memTx) InsertReading(ctx context.Context, r *models.BinReading) error {
	if _, ok := t.state.bins[r.BinID]; !ok {
		return ErrNotFound
	}
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.ReadAt == 0 {
		r.ReadAt = time.Now().Unix()
	}
	t.state.readings = append(t.state.readings, *r)
	return nil
}
