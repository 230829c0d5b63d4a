package model

import "time"

type Direction string

const (
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

type ConversationTurn struct {
	Direction Direction `json:"direction"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// NegotiationOutcome is the terminal record of one seller session.
type NegotiationOutcome struct {
	SellerID      string             `json:"seller_id"`
	ItemID        string             `json:"item_id"`
	Success       bool               `json:"success"`
	FinalPrice    *float64           `json:"final_price"` // nil unless Success
	Transcript    []ConversationTurn `json:"transcript"`
	RoundsUsed    int                `json:"rounds_used"`
	FailureReason string             `json:"failure_reason,omitempty"`
}

// FailedOutcome builds an outcome for a session that produced no usable price.
func FailedOutcome(c Candidate, reason string) NegotiationOutcome {
	return NegotiationOutcome{
		SellerID:      c.SellerID,
		ItemID:        c.ID,
		Success:       false,
		FailureReason: reason,
	}
}

// NegotiationLog is the persisted summary of an outcome.
type NegotiationLog struct {
	ID            string    `json:"id"`
	TaskID        string    `json:"task_id"`
	ItemID        string    `json:"item_id"`
	SellerID      string    `json:"seller_id"`
	ListedPrice   float64   `json:"listed_price"`
	FinalPrice    *float64  `json:"final_price,omitempty"`
	Success       bool      `json:"success"`
	RoundsUsed    int       `json:"rounds_used"`
	FailureReason string    `json:"failure_reason,omitempty"`
	LogTime       time.Time `json:"log_time"`
}

// Message is a persisted conversation turn.
type Message struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	SellerID  string    `json:"seller_id"`
	Direction Direction `json:"direction"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
