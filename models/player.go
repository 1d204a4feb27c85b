package models

import (
	"time"

	"gorm.io/gorm"
)

// Resource column names, also used as event resource_type values.
const (
	ResourceNickel    = "nickel"
	ResourceCobalt    = "cobalt"
	ResourceCopper    = "copper"
	ResourceManganese = "manganese"
)

// ResourceTypes lists every tradable resource in a stable order.
var ResourceTypes = []string{ResourceNickel, ResourceCobalt, ResourceCopper, ResourceManganese}

// Player is the server-authoritative economy record for one wallet
// (denormalized for performance, same as the progression table).
type Player struct {
	ID            string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	WalletAddress string `gorm:"uniqueIndex;not null" json:"wallet_address"` // lowercase 0x address

	OcxBalance int64 `json:"ocx_balance" gorm:"default:0"`

	// Cargo hold. Each value is kept <= the storage cap of SubmarineTier.
	Nickel    int64 `json:"nickel" gorm:"default:0"`
	Cobalt    int64 `json:"cobalt" gorm:"default:0"`
	Copper    int64 `json:"copper" gorm:"default:0"`
	Manganese int64 `json:"manganese" gorm:"default:0"`

	SubmarineTier       int   `json:"submarine_tier" gorm:"default:1"`
	TotalResourcesMined int64 `json:"total_resources_mined" gorm:"default:0"`

	Timestamps
}

// Resource returns the held amount for a resource type; unknown types read 0.
func (p *Player) Resource(resourceType string) int64 {
	switch resourceType {
	case ResourceNickel:
		return p.Nickel
	case ResourceCobalt:
		return p.Cobalt
	case ResourceCopper:
		return p.Copper
	case ResourceManganese:
		return p.Manganese
	}
	return 0
}

// SetResource writes the held amount for a resource type.
func (p *Player) SetResource(resourceType string, value int64) {
	switch resourceType {
	case ResourceNickel:
		p.Nickel = value
	case ResourceCobalt:
		p.Cobalt = value
	case ResourceCopper:
		p.Copper = value
	case ResourceManganese:
		p.Manganese = value
	}
}

// Resources returns the full cargo vector keyed by resource type.
func (p *Player) Resources() map[string]int64 {
	out := make(map[string]int64, len(ResourceTypes))
	for _, r := range ResourceTypes {
		out[r] = p.Resource(r)
	}
	return out
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
