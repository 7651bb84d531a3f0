package events

import (
	"encoding/json"
	"time"
)

// Entry event actions.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// EntryEvent announces a committed ledger entry mutation. Consumers
// fetch the full entry from the store; the event carries only what a
// downstream needs for routing and display.
type EntryEvent struct {
	Action      string    `json:"action"`
	EntryID     string    `json:"entry_id"`
	SpaceID     string    `json:"space_id"`
	AccountID   string    `json:"account_id"`
	Kind        string    `json:"kind"`
	AmountCents int64     `json:"amount_cents"`
	Generated   bool      `json:"generated"` // true when materialized from a recurring template
	OccurredAt  time.Time `json:"occurred_at"`
}

// GoalEvent announces a committed savings goal transaction.
type GoalEvent struct {
	GoalID        string    `json:"goal_id"`
	SpaceID       string    `json:"space_id"`
	Type          string    `json:"type"`
	AmountCents   int64     `json:"amount_cents"`
	BalanceCents  int64     `json:"balance_cents"`
	OccurredAt    time.Time `json:"occurred_at"`
	TransactionID string    `json:"transaction_id"`
}

func (e *EntryEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func (e *GoalEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func EntryEventFromJSON(data []byte) (*EntryEvent, error) {
	var evt EntryEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, err
	}
	return &evt, nil
}
