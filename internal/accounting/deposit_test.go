package accounting

import (
	"context"
	"math"
	"testing"

	"smartwaste-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }

func TestDepositLevelIncrease(t *testing.T) {
	assert.Equal(t, 16, DepositLevelIncrease(8))
	assert.Equal(t, 20, DepositLevelIncrease(15))
	assert.Equal(t, 5, DepositLevelIncrease(2.5))
	assert.Equal(t, 0, DepositLevelIncrease(0))
	assert.Equal(t, 20, DepositLevelIncrease(1e19))
	assert.Equal(t, 20, DepositLevelIncrease(math.MaxFloat64))
}

func TestRecordDeposit(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)
	svc := NewService(store, nil)

	res, err := svc.RecordDeposit(ctx, DepositInput{
		UserID:      "u1",
		BinID:       "b1",
		WasteType:   "Plastic",
		Weight:      floatPtr(8),
		CoinsEarned: 40,
	})
	require.NoError(t, err)

	assert.Equal(t, 40, res.CoinBalance)
	assert.Equal(t, 16, res.LevelIncrease)
	assert.Equal(t, 36, res.Bin.Level)
	assert.Equal(t, models.BinStatusHalfFull, res.Bin.Status)

	txns := store.Transactions("u1")
	require.Len(t, txns, 1)
	assert.Equal(t, 40, txns[0].Amount)
	require.NotNil(t, txns[0].WasteType)
	assert.Equal(t, "plastic", *txns[0].WasteType)
	require.NotNil(t, txns[0].Weight)
	assert.InDelta(t, 8.0, *txns[0].Weight, 0.0001)
	assert.Equal(t, res.Transaction.ID, txns[0].ID)

	bin, err := store.GetBin(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, 36, bin.Level)
}

func TestRecordDeposit_LevelCappedAt100(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)
	svc := NewService(store, nil)

	res, err := svc.RecordDeposit(ctx, DepositInput{UserID: "u1", BinID: "b2", WasteType: "paper", Weight: floatPtr(8), CoinsEarned: 10})
	require.NoError(t, err)
	assert.Equal(t, 100, res.Bin.Level)
	assert.Equal(t, 10, res.LevelIncrease)
}

func TestRecordDeposit_HugeWeightAddsCappedIncrease(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)
	svc := NewService(store, nil)

	res, err := svc.RecordDeposit(ctx, DepositInput{UserID: "u1", BinID: "b1", WasteType: "plastic", Weight: floatPtr(1e19), CoinsEarned: 10})
	require.NoError(t, err)
	assert.Equal(t, 20, res.LevelIncrease)
	assert.Equal(t, 40, res.Bin.Level)

	bin, err := store.GetBin(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, 40, bin.Level)
}

func TestRecordDeposit_NoWeightLeavesBin(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)
	svc := NewService(store, nil)

	res, err := svc.RecordDeposit(ctx, DepositInput{UserID: "u1", BinID: "b1", WasteType: "glass", CoinsEarned: 5})
	require.NoError(t, err)
	assert.Equal(t, 20, res.Bin.Level)
	assert.Zero(t, res.LevelIncrease)
	assert.Nil(t, store.Transactions("u1")[0].Weight)
}

func TestRecordDeposit_InvalidInput(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)
	svc := NewService(store, nil)

	cases := []DepositInput{
		{UserID: "u1", WasteType: "plastic", CoinsEarned: 10},
		{UserID: "u1", BinID: "b1", CoinsEarned: 10},
		{UserID: "u1", BinID: "b1", WasteType: "plastic"},
		{UserID: "u1", BinID: "b1", WasteType: "plastic", CoinsEarned: -3},
		{UserID: "u1", BinID: "b1", WasteType: "plastic", CoinsEarned: 3_000_000_000},
		{UserID: "u1", BinID: "b1", WasteType: "styrofoam", CoinsEarned: 10},
		{UserID: "u1", BinID: "b1", WasteType: "plastic", CoinsEarned: 10, Weight: floatPtr(-1)},
		{UserID: "u1", BinID: "b1", WasteType: "plastic", CoinsEarned: 10, Weight: floatPtr(math.NaN())},
		{BinID: "b1", WasteType: "plastic", CoinsEarned: 10},
	}
	for i, in := range cases {
		_, err := svc.RecordDeposit(ctx, in)
		assert.ErrorIs(t, err, ErrInvalidInput, "case %d", i)
	}
	assert.Empty(t, store.Transactions("u1"))
	assert.Equal(t, 0, balanceOf(t, store, "u1"))
}

func TestRecordDeposit_NotFound(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)
	svc := NewService(store, nil)

	_, err := svc.RecordDeposit(ctx, DepositInput{UserID: "ghost", BinID: "b1", WasteType: "metal", Weight: floatPtr(4), CoinsEarned: 10})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.RecordDeposit(ctx, DepositInput{UserID: "u1", BinID: "nope", WasteType: "metal", CoinsEarned: 10})
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Empty(t, store.Transactions("u1"))
	bin, err := store.GetBin(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, 20, bin.Level)
}

func TestRecordDeposit_FailureIsAtomic(t *testing.T) {
	ctx := context.Background()
	store := &faultyStore{MemoryStore: seedStore(t), failBinLevel: true}
	svc := NewService(store, nil)

	_, err := svc.RecordDeposit(ctx, DepositInput{UserID: "u1", BinID: "b1", WasteType: "organic", Weight: floatPtr(5), CoinsEarned: 25})
	require.ErrorIs(t, err, ErrStoreFailure)

	assert.Empty(t, store.Transactions("u1"))
	assert.Equal(t, 0, balanceOf(t, store, "u1"))
	bin, err := store.GetBin(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, 20, bin.Level)
}
