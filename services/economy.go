package services

import (
	"log"
	"math"
	"os"
	"strconv"
	"time"

	"oceanx-economy-service/models"
)

// EconomyConfig holds the hard limits of the economy core. The per-call delta
// ceiling and the per-trade payout ceiling are the compensating controls for
// the volatile rate limiter: they hold even when throttle state is lost.
type EconomyConfig struct {
	// MaxDeltaPerCall bounds a single save's increment per resource, before
	// any tier-capping.
	MaxDeltaPerCall int64
	// MaxTradePayout bounds the OCX credited by a single trade.
	MaxTradePayout int64

	SaveCooldown  time.Duration
	TradeCooldown time.Duration
	ClaimCooldown time.Duration
}

// LoadEconomyConfig reads tunables from the environment, falling back to the
// shipped defaults. Bad values are logged and ignored rather than fatal.
func LoadEconomyConfig() EconomyConfig {
	cfg := EconomyConfig{
		MaxDeltaPerCall: 500,
		MaxTradePayout:  25000,
		SaveCooldown:    5 * time.Second,
		TradeCooldown:   60 * time.Second,
		ClaimCooldown:   10 * time.Second,
	}
	if v := envInt64("ECONOMY_MAX_DELTA_PER_CALL"); v > 0 {
		cfg.MaxDeltaPerCall = v
	}
	if v := envInt64("ECONOMY_MAX_TRADE_PAYOUT"); v > 0 {
		cfg.MaxTradePayout = v
	}
	if v := envInt64("ECONOMY_SAVE_COOLDOWN_SECONDS"); v > 0 {
		cfg.SaveCooldown = time.Duration(v) * time.Second
	}
	if v := envInt64("ECONOMY_TRADE_COOLDOWN_SECONDS"); v > 0 {
		cfg.TradeCooldown = time.Duration(v) * time.Second
	}
	if v := envInt64("ECONOMY_CLAIM_COOLDOWN_SECONDS"); v > 0 {
		cfg.ClaimCooldown = time.Duration(v) * time.Second
	}
	return cfg
}

func envInt64(key string) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Printf("⚠️  Ignoring invalid %s=%q: %v", key, raw, err)
		return 0
	}
	return v
}

// ExchangeRates is OCX paid per unit of resource, fixed per deployment.
var ExchangeRates = map[string]float64{
	models.ResourceNickel:    0.10,
	models.ResourceCobalt:    0.25,
	models.ResourceCopper:    0.15,
	models.ResourceManganese: 0.50,
}

// Per-resource cargo capacity at tier 1. Higher tiers scale these up.
var baseCaps = map[string]int64{
	models.ResourceNickel:    100,
	models.ResourceCobalt:    80,
	models.ResourceCopper:    90,
	models.ResourceManganese: 60,
}

// tierMultipliers[t-1] scales the base caps for submarine tier t.
// Strictly increasing so an upgrade never shrinks the hold.
var tierMultipliers = []float64{1, 1.5, 2.25, 3.5, 5, 7.5, 10, 13, 16, 20}

// MaxSubmarineTier is the highest tier the cap table knows about.
var MaxSubmarineTier = len(tierMultipliers)

// CapForTier returns the storage cap of one resource at the given tier.
// Out-of-range tiers clamp into the table rather than failing a save.
func CapForTier(tier int, resourceType string) int64 {
	if tier < 1 {
		tier = 1
	}
	if tier > MaxSubmarineTier {
		tier = MaxSubmarineTier
	}
	base, ok := baseCaps[resourceType]
	if !ok {
		return 0
	}
	return int64(math.Floor(float64(base) * tierMultipliers[tier-1]))
}

// TierCaps returns the full cap vector for a tier.
func TierCaps(tier int) map[string]int64 {
	caps := make(map[string]int64, len(models.ResourceTypes))
	for _, r := range models.ResourceTypes {
		caps[r] = CapForTier(tier, r)
	}
	return caps
}
