package models

import "time"

// Claim is one server-issued reward claim. A row is created when the reward
// calculator signs a claim for a wallet and is consumed exactly once by the
// settlement processor. Rows are never deleted (audit requirement).
type Claim struct {
	ID      string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ClaimID string `gorm:"uniqueIndex;not null" json:"claim_id"`
	Wallet  string `gorm:"index;not null" json:"wallet"` // lowercase 0x address

	// Amount in whole OCX units, fixed at issue time. This is the
	// server-authoritative amount; the client-supplied amount must match it.
	Amount    int64 `gorm:"not null" json:"amount"`
	ExpiresAt int64 `gorm:"not null" json:"expires_at"` // unix seconds

	// Used transitions false -> true exactly once and never reverts.
	Used         bool       `gorm:"not null;default:false" json:"used"`
	UsedAt       *time.Time `json:"used_at,omitempty"`
	SettlementID *string    `gorm:"type:uuid" json:"settlement_id,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}
