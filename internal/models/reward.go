package models

type Reward struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Cost        int    `json:"cost"`
	Category    string `json:"category"`
}

// RedeemRequest is the request body for POST /api/users/:id/redeem.
// RewardID is accepted as a JSON string or number.
type RedeemRequest struct {
	RewardID   FlexibleID `json:"rewardId"`
	RewardName string     `json:"rewardName"`
	Cost       int        `json:"cost"`
}

// RewardCatalogue is the fixed list of rewards offered to users
var RewardCatalogue = []Reward{
	{ID: "1", Name: "Amazon Gift Card", Type: "Gift Card", Description: "$25 Amazon Gift Card", Cost: 1000, Category: "gift-cards"},
	{ID: "2", Name: "Starbucks Gift Card", Type: "Gift Card", Description: "$15 Starbucks Gift Card", Cost: 600, Category: "gift-cards"},
	{ID: "3", Name: "PlayStation 5", Type: "Game Console", Description: "Sony PlayStation 5 Console", Cost: 50000, Category: "electronics"},
}

// FindReward looks up a catalogue entry by id
func FindReward(id string) (Reward, bool) {
	for _, r := range RewardCatalogue {
		if r.ID == id {
			return r, true
		}
	}
	return Reward{}, false
}
