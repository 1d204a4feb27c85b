package models

import "time"

// Event types for the resource audit log.
const (
	EventTypeMining    = "mining"
	EventTypeTradeSell = "trade_sell"
)

// ResourceEvent is an append-only audit row written alongside every resource
// or trade mutation. Rows are never updated or deleted; they exist for
// forensic reconciliation, not for authorization decisions.
type ResourceEvent struct {
	ID            string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	PlayerID      string `gorm:"index;not null" json:"player_id"`
	WalletAddress string `gorm:"index;not null" json:"wallet_address"`

	ResourceType string `gorm:"not null" json:"resource_type"`
	// Amount is signed: positive for mining gains, negative for trade spends.
	Amount    int64  `gorm:"not null" json:"amount"`
	EventType string `gorm:"index;not null" json:"event_type"`

	// SourceID correlates related rows (one save or one trade shares an id).
	SourceID string `gorm:"index" json:"source_id"`
	Metadata string `gorm:"type:jsonb" json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;index"`
}
