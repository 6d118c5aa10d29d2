package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is an account holder, keyed by phone number. Balance only moves as a
// consequence of an approved transaction; this service applies deltas, it
// never recomputes the total.
type User struct {
	Phone     string          `json:"phone"`
	Username  string          `json:"username"`
	Balance   decimal.Decimal `json:"balance"`
	ChatID    *int64          `json:"chat_id,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
