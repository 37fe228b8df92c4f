package models

type User struct {
	ID                string  `json:"id" db:"id"`
	FirstName         string  `json:"first_name" db:"first_name"`
	LastName          string  `json:"last_name" db:"last_name"`
	Email             string  `json:"email" db:"email"`
	Password          string  `json:"-" db:"password"` // Never return password in JSON
	CoinBalance       int     `json:"coin_balance" db:"coin_balance"`
	ScanToken         string  `json:"scan_token" db:"scan_token"`
	ResetTokenHash    *string `json:"-" db:"reset_token_hash"`
	ResetTokenExpires *int64  `json:"-" db:"reset_token_expires"`
	CreatedAt         int64   `json:"created_at" db:"created_at"`
	UpdatedAt         int64   `json:"updated_at" db:"updated_at"`
}

type UserResponse struct {
	ID          string `json:"id"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	CoinBalance int    `json:"coinBalance"`
	QRCode      string `json:"qrCode"`
	CreatedAt   int64  `json:"createdAt"`
}

// LeaderboardEntry is one row of GET /api/users/leaderboard/top
type LeaderboardEntry struct {
	ID          string `json:"id" db:"id"`
	FirstName   string `json:"firstName" db:"first_name"`
	LastName    string `json:"lastName" db:"last_name"`
	CoinBalance int    `json:"coinBalance" db:"coin_balance"`
	Rank        int    `json:"rank" db:"rank"`
}

// DisplayName joins first and last name for greetings
func (u *User) DisplayName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

func (u *User) ToUserResponse() UserResponse {
	return UserResponse{
		ID:          u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Email:       u.Email,
		CoinBalance: u.CoinBalance,
		QRCode:      u.ScanToken,
		CreatedAt:   u.CreatedAt,
	}
}
