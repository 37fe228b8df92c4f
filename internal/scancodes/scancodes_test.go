package scancodes

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		raw   string
		kind  Kind
		coins int
	}{
		{raw: "GEGE_USER_1760000000000_abc123xyz", kind: KindUser, coins: 30},
		{raw: "TRASH_COLLECTION_42_x9", kind: KindTrashCollection, coins: 50},
		{raw: "  BIN_7_a1  ", kind: KindBin, coins: 25},
		{raw: "WASTE_DEPOSIT_3_zz", kind: KindWasteDeposit, coins: 40},
	}
	for _, tt := range tests {
		code, err := Parse(tt.raw)
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.kind, code.Kind)
		assert.Equal(t, tt.coins, code.Coins)
		assert.Empty(t, code.BinID)
	}
}

func TestParse_CollectionConfirmation(t *testing.T) {
	code, err := Parse(`{"type":"trash_collection_confirmation","binId":12,"location":"Depot","action":"emptied"}`)
	require.NoError(t, err)
	assert.Equal(t, KindCollectionProof, code.Kind)
	assert.Equal(t, 50, code.Coins)
	assert.Equal(t, "12", code.BinID)
	assert.Equal(t, "Depot", code.Location)
	assert.Equal(t, "emptied", code.Action)
}

func TestParse_Unrecognised(t *testing.T) {
	for _, raw := range []string{
		"",
		"BIN_abc_1",
		"USER_1_abc",
		"GEGE_USER_1_ab-c",
		`{"type":"bin","binId":"1","location":"x","action":"y"}`,
		`{"type":"trash_collection_confirmation","location":"x","action":"y"}`,
		`{not json`,
	} {
		_, err := Parse(raw)
		assert.ErrorIs(t, err, ErrUnrecognised, raw)
	}
}

func TestNewUserToken(t *testing.T) {
	now := time.UnixMilli(1760000000123)
	token := NewUserToken(now)
	assert.Regexp(t, `^GEGE_USER_1760000000123_[a-z0-9]{9}$`, token)

	code, err := Parse(token)
	require.NoError(t, err)
	assert.Equal(t, KindUser, code.Kind)
}
