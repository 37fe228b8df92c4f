package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"smartwaste-backend/internal/accounting"
	"smartwaste-backend/internal/ledger"
	"smartwaste-backend/internal/middleware"
	"smartwaste-backend/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type balanceEvent struct {
	userID  string
	balance int
	delta   int
	reason  string
}

type fakeLive struct {
	mu       sync.Mutex
	balances []balanceEvent
	bins     []models.BinResponse
}

func (f *fakeLive) NotifyBalance(userID string, balance, delta int, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances = append(f.balances, balanceEvent{userID, balance, delta, reason})
}

func (f *fakeLive) NotifyBin(bin interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bins = append(f.bins, bin.(models.BinResponse))
}

type fakeCommunity struct {
	location string
	coins    int
	calls    int
}

func (f *fakeCommunity) NotifyCommunityReward(ctx context.Context, binLocation string, coins int) {
	f.calls++
	f.location = binLocation
	f.coins = coins
}

func newTestService(t *testing.T) (*accounting.Service, *ledger.MemoryStore) {
	t.Helper()
	store := ledger.NewMemoryStore()
	store.PutUser(models.User{ID: "u1", FirstName: "Ada", Email: "ada@example.com", CoinBalance: 200})
	store.PutUser(models.User{ID: "u2", FirstName: "Bo", Email: "bo@example.com"})
	store.PutBin(models.Bin{ID: "b1", Location: "Main St", BinType: "plastic", Capacity: 100, Level: 20, Status: models.BinStatusNotFull})
	return accounting.NewService(store, nil), store
}

// serve routes a single request through chi so URL params resolve. A
// non-empty userID authenticates the request as that user.
func serve(h http.HandlerFunc, method, pattern, target, body, userID string) *httptest.ResponseRecorder {
	router := chi.NewRouter()
	router.Method(method, pattern, h)

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req = req.WithContext(middleware.WithUser(req.Context(), middleware.UserClaims{UserID: userID}))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRedeem_Success(t *testing.T) {
	svc, store := newTestService(t)
	live := &fakeLive{}

	rec := serve(Redeem(svc, live), http.MethodPost, "/api/users/{id}/redeem", "/api/users/u1/redeem",
		`{"rewardName":"Tote bag","cost":150}`, "u1")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 50, body["newBalance"])
	assert.Equal(t, false, body["emailSent"])

	require.Len(t, live.balances, 1)
	assert.Equal(t, balanceEvent{"u1", 50, -150, models.TxLabelRedemption}, live.balances[0])
	assert.Len(t, store.Transactions("u1"), 1)
}

func TestRedeem_InsufficientBalance(t *testing.T) {
	svc, store := newTestService(t)

	rec := serve(Redeem(svc, nil), http.MethodPost, "/api/users/{id}/redeem", "/api/users/u1/redeem",
		`{"rewardId":2,"rewardName":"Starbucks Gift Card","cost":600}`, "u1")
	require.Equal(t, http.StatusConflict, rec.Code)

	body := decodeBody(t, rec)
	assert.EqualValues(t, 200, body["currentBalance"])
	assert.EqualValues(t, 600, body["requiredCost"])
	assert.Empty(t, store.Transactions("u1"))
}

func TestRedeem_CatalogueCostMismatch(t *testing.T) {
	svc, store := newTestService(t)

	rec := serve(Redeem(svc, nil), http.MethodPost, "/api/users/{id}/redeem", "/api/users/u1/redeem",
		`{"rewardId":"2","rewardName":"Starbucks Gift Card","cost":100}`, "u1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, store.Transactions("u1"))
}

func TestRedeem_OtherUsersAccount(t *testing.T) {
	svc, store := newTestService(t)

	rec := serve(Redeem(svc, nil), http.MethodPost, "/api/users/{id}/redeem", "/api/users/u1/redeem",
		`{"rewardName":"Tote bag","cost":10}`, "u2")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, store.Transactions("u1"))
}

func TestRecordDeposit(t *testing.T) {
	svc, store := newTestService(t)
	live := &fakeLive{}

	rec := serve(RecordDeposit(svc, live), http.MethodPost, "/api/users/{id}/transactions", "/api/users/u1/transactions",
		`{"binId":"b1","wasteType":"plastic","weight":8,"coinsEarned":40}`, "u1")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.EqualValues(t, 240, body["coinBalance"])
	bin := body["bin"].(map[string]interface{})
	assert.EqualValues(t, 36, bin["level"])

	require.Len(t, live.balances, 1)
	assert.Equal(t, 40, live.balances[0].delta)
	require.Len(t, live.bins, 1)
	assert.Equal(t, 36, live.bins[0].Level)
	assert.Len(t, store.Transactions("u1"), 1)
}

func TestRecordDeposit_InvalidWasteType(t *testing.T) {
	svc, store := newTestService(t)

	rec := serve(RecordDeposit(svc, nil), http.MethodPost, "/api/users/{id}/transactions", "/api/users/u1/transactions",
		`{"binId":"b1","wasteType":"styrofoam","coinsEarned":40}`, "u1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request", decodeBody(t, rec)["error"])
	assert.Empty(t, store.Transactions("u1"))
}

func TestRecordDeposit_OversizedCoinsRejected(t *testing.T) {
	svc, store := newTestService(t)

	rec := serve(RecordDeposit(svc, nil), http.MethodPost, "/api/users/{id}/transactions", "/api/users/u1/transactions",
		`{"binId":"b1","wasteType":"plastic","coinsEarned":3000000000}`, "u1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, store.Transactions("u1"))
}

func TestRecordDeposit_UnknownBinIsGeneric(t *testing.T) {
	svc, _ := newTestService(t)

	rec := serve(RecordDeposit(svc, nil), http.MethodPost, "/api/users/{id}/transactions", "/api/users/u1/transactions",
		`{"binId":"nope","wasteType":"plastic","coinsEarned":10}`, "u1")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Bin not found", decodeBody(t, rec)["error"])
}

func TestUpdateBinFill_CreditsNamedUser(t *testing.T) {
	svc, store := newTestService(t)
	live := &fakeLive{}
	community := &fakeCommunity{}

	rec := serve(UpdateBinFill(svc, live, community), http.MethodPut, "/api/bins/{id}", "/api/bins/b1",
		`{"level":40,"userId":"u2","deviceId":"esp32-01"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.EqualValues(t, 20, body["levelIncrease"])
	assert.EqualValues(t, 10, body["coinsAwarded"])
	assert.Equal(t, false, body["community"])
	assert.Equal(t, true, body["awardComplete"])

	assert.Equal(t, 0, community.calls)
	require.Len(t, live.balances, 1)
	assert.Equal(t, balanceEvent{"u2", 10, 10, models.TxLabelBinFill}, live.balances[0])
	assert.Len(t, store.Readings("b1"), 1)
}

func TestUpdateBinFill_CommunityReward(t *testing.T) {
	svc, store := newTestService(t)
	live := &fakeLive{}
	community := &fakeCommunity{}

	rec := serve(UpdateBinFill(svc, live, community), http.MethodPut, "/api/bins/{id}", "/api/bins/b1",
		`{"level":50}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["community"])
	assert.EqualValues(t, 2, body["usersCredited"])

	assert.Equal(t, 1, community.calls)
	assert.Equal(t, "Main St", community.location)
	assert.Equal(t, 15, community.coins)
	assert.Len(t, live.balances, 2)
	assert.Len(t, store.Transactions("u1"), 1)
	assert.Len(t, store.Transactions("u2"), 1)
}

func TestUpdateBinFill_Errors(t *testing.T) {
	svc, _ := newTestService(t)

	rec := serve(UpdateBinFill(svc, nil, nil), http.MethodPut, "/api/bins/{id}", "/api/bins/missing",
		`{"level":50}`, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Bin not found", decodeBody(t, rec)["error"])

	rec = serve(UpdateBinFill(svc, nil, nil), http.MethodPut, "/api/bins/{id}", "/api/bins/b1", `{}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(UpdateBinFill(svc, nil, nil), http.MethodPut, "/api/bins/{id}", "/api/bins/b1", `{"level":`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEmptyBin(t *testing.T) {
	svc, store := newTestService(t)
	live := &fakeLive{}

	rec := serve(EmptyBin(svc, live), http.MethodPost, "/api/bins/{id}/empty", "/api/bins/b1/empty", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	bin, err := store.GetBin(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, 0, bin.Level)
	assert.NotNil(t, bin.LastEmptied)
	require.Len(t, live.bins, 1)
	assert.Empty(t, live.balances)
}

func TestScanCode(t *testing.T) {
	svc, store := newTestService(t)
	live := &fakeLive{}

	rec := serve(ScanCode(svc, live), http.MethodPost, "/api/scan", "/api/scan",
		`{"code":"WASTE_DEPOSIT_1718000000_abc123"}`, "u2")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.EqualValues(t, 40, body["coinsEarned"])
	assert.EqualValues(t, 40, body["coinBalance"])
	assert.Equal(t, "waste_deposit", body["kind"])
	assert.Len(t, store.Transactions("u2"), 1)
	require.Len(t, live.balances, 1)
}

func TestScanCode_Rejects(t *testing.T) {
	svc, store := newTestService(t)

	rec := serve(ScanCode(svc, nil), http.MethodPost, "/api/scan", "/api/scan", `{"code":"hello"}`, "u2")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(ScanCode(svc, nil), http.MethodPost, "/api/scan", "/api/scan", `{"code":"BIN_1_a"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Empty(t, store.Transactions("u2"))
}

func TestRespondAccountingError_HidesStoreDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	respondAccountingError(rec, "redeem reward", fmt.Errorf("%w: pq: connection refused", accounting.ErrStoreFailure))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Failed to redeem reward", body["error"])
	assert.NotContains(t, rec.Body.String(), "connection refused")
}
