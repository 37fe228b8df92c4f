package models

import "time"

// Transaction labels
const (
	TxLabelBinFill         = "bin fill level increase"
	TxLabelCommunityReward = "community bin fill reward"
	TxLabelDeposit         = "waste deposit"
	TxLabelRedemption      = "reward redemption"
	TxLabelScan            = "qr scan"
)

// Transaction is an append-only ledger entry. Amount is positive for
// earnings and negative for redemptions.
type Transaction struct {
	ID          string   `json:"id" db:"id"`
	UserID      string   `json:"user_id" db:"user_id"`
	BinID       *string  `json:"bin_id,omitempty" db:"bin_id"`
	Amount      int      `json:"amount" db:"amount"`
	WasteType   *string  `json:"waste_type,omitempty" db:"waste_type"`
	Weight      *float64 `json:"weight,omitempty" db:"weight"`
	Description string   `json:"description" db:"description"`
	RewardID    *string  `json:"reward_id,omitempty" db:"reward_id"`
	CreatedAt   int64    `json:"created_at" db:"created_at"` // Unix timestamp
}

// TransactionView is a transaction joined with its bin, if any
type TransactionView struct {
	Transaction
	BinLocation *string `db:"bin_location"`
	BinType     *string `db:"bin_type"`
}

// TransactionResponse is what we send to the client
type TransactionResponse struct {
	ID              string   `json:"id"`
	CoinsEarned     int      `json:"coins_earned"`
	Description     string   `json:"description"`
	WasteType       *string  `json:"waste_type,omitempty"`
	Weight          *float64 `json:"weight,omitempty"`
	BinID           *string  `json:"bin_id,omitempty"`
	BinLocation     *string  `json:"bin_location,omitempty"`
	BinType         *string  `json:"bin_type,omitempty"`
	RewardID        *string  `json:"reward_id,omitempty"`
	TransactionDate string   `json:"transaction_date"`
}

// DepositRequest is the request body for POST /api/users/:id/transactions
type DepositRequest struct {
	BinID       string   `json:"binId"`
	WasteType   string   `json:"wasteType"`
	Weight      *float64 `json:"weight,omitempty"`
	CoinsEarned int      `json:"coinsEarned"`
}

// ToTransactionResponse converts a TransactionView to TransactionResponse
func (t *TransactionView) ToTransactionResponse() TransactionResponse {
	return TransactionResponse{
		ID:              t.ID,
		CoinsEarned:     t.Amount,
		Description:     t.Description,
		WasteType:       t.WasteType,
		Weight:          t.Weight,
		BinID:           t.BinID,
		BinLocation:     t.BinLocation,
		BinType:         t.BinType,
		RewardID:        t.RewardID,
		TransactionDate: time.Unix(t.CreatedAt, 0).UTC().Format(time.RFC3339),
	}
}
