package accounting

import (
	"context"
	"errors"
	"testing"
	"time"

	"smartwaste-backend/internal/ledger"
	"smartwaste-backend/internal/models"

	"github.com/stretchr/testify/require"
)

var errConnReset = errors.New("connection reset by peer")

// faultyStore wraps the memory store and fails selected operations inside
// transactions
type faultyStore struct {
	*ledger.MemoryStore
	failCreditFor map[string]bool
	failBinLevel  bool
	failInsertTx  bool
}

func (f *faultyStore) WithTx(ctx context.Context, fn func(tx ledger.Tx) error) error {
	return f.MemoryStore.WithTx(ctx, func(tx ledger.Tx) error {
		return fn(&faultyTx{Tx: tx, store: f})
	})
}

type faultyTx struct {
	ledger.Tx
	store *faultyStore
}

func (t *faultyTx) AdjustBalance(ctx context.Context, userID string, delta int) (int, error) {
	if t.store.failCreditFor[userID] {
		return 0, errConnReset
	}
	return t.Tx.AdjustBalance(ctx, userID, delta)
}

func (t *faultyTx) SetBinLevel(ctx context.Context, binID string, level int, status string, at int64) error {
	if t.store.failBinLevel {
		return errConnReset
	}
	return t.Tx.SetBinLevel(ctx, binID, level, status, at)
}

func (t *faultyTx) InsertTransaction(ctx context.Context, txn *models.Transaction) error {
	if t.store.failInsertTx {
		return errConnReset
	}
	return t.Tx.InsertTransaction(ctx, txn)
}

type recordingNotifier struct {
	err   error
	calls []int
}

func (n *recordingNotifier) SendRewardConfirmation(ctx context.Context, user models.User, rewardName string, cost, newBalance int) error {
	n.calls = append(n.calls, newBalance)
	return n.err
}

func seedStore(t *testing.T) *ledger.MemoryStore {
	t.Helper()
	store := ledger.NewMemoryStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Unix()
	store.PutUser(models.User{ID: "u1", FirstName: "Ada", Email: "ada@example.com", CreatedAt: base})
	store.PutUser(models.User{ID: "u2", FirstName: "Bo", Email: "bo@example.com", CreatedAt: base + 1})
	store.PutUser(models.User{ID: "u3", FirstName: "Cy", Email: "cy@example.com", CreatedAt: base + 2})
	store.PutBin(models.Bin{ID: "b1", Location: "Main St", BinType: "plastic", Capacity: 100, Level: 20, Status: models.BinStatusNotFull})
	store.PutBin(models.Bin{ID: "b2", Location: "Park Ave", BinType: "paper", Capacity: 100, Level: 90, Status: models.BinStatusFull})
	return store
}

func intPtr(v int) *int { return &v }

func sumAmounts(txns []models.Transaction) int {
	total := 0
	for _, t := range txns {
		total += t.Amount
	}
	return total
}

func balanceOf(t *testing.T, store ledger.Store, userID string) int {
	t.Helper()
	u, err := store.GetUser(context.Background(), userID)
	require.NoError(t, err)
	return u.CoinBalance
}

func TestLedgerSumMatchesBalance(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)
	svc := NewService(store, nil)

	weight := 3.2
	_, err := svc.RecordDeposit(ctx, DepositInput{UserID: "u1", BinID: "b1", WasteType: "plastic", Weight: &weight, CoinsEarned: 40})
	require.NoError(t, err)

	_, err = svc.UpdateBinFill(ctx, BinFillInput{BinID: "b1", Level: intPtr(65), UserID: strPtr("u1")})
	require.NoError(t, err)

	_, err = svc.UpdateBinFill(ctx, BinFillInput{BinID: "b1", Level: intPtr(95)})
	require.NoError(t, err)

	_, err = svc.Redeem(ctx, RedemptionInput{UserID: "u1", RewardID: "x", RewardName: "Sticker", Cost: 30})
	require.NoError(t, err)

	_, err = svc.AwardScan(ctx, ScanInput{UserID: "u1", Code: "BIN_17_abc123"})
	require.NoError(t, err)

	for _, id := range []string{"u1", "u2", "u3"} {
		require.Equal(t, balanceOf(t, store, id), sumAmounts(store.Transactions(id)), "user %s", id)
	}
}
