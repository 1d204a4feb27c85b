package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"oceanx-economy-service/models"
)

func TestCapTableIsMonotonic(t *testing.T) {
	for _, resource := range models.ResourceTypes {
		prev := int64(0)
		for tier := 1; tier <= MaxSubmarineTier; tier++ {
			cap := CapForTier(tier, resource)
			assert.Greater(t, cap, prev, "%s cap must grow with tier (tier %d)", resource, tier)
			prev = cap
		}
	}
}

func TestCapForTierClampsOutOfRangeTiers(t *testing.T) {
	assert.Equal(t, CapForTier(1, models.ResourceNickel), CapForTier(0, models.ResourceNickel))
	assert.Equal(t, CapForTier(1, models.ResourceNickel), CapForTier(-3, models.ResourceNickel))
	assert.Equal(t, CapForTier(MaxSubmarineTier, models.ResourceNickel), CapForTier(99, models.ResourceNickel))
}

func TestCapForTierUnknownResource(t *testing.T) {
	assert.Zero(t, CapForTier(1, "plutonium"))
}

func TestTierOneBaseCaps(t *testing.T) {
	assert.Equal(t, int64(100), CapForTier(1, models.ResourceNickel))
	caps := TierCaps(1)
	assert.Len(t, caps, len(models.ResourceTypes))
}

func TestExchangeRatesCoverEveryResource(t *testing.T) {
	for _, resource := range models.ResourceTypes {
		rate, ok := ExchangeRates[resource]
		assert.True(t, ok, "missing rate for %s", resource)
		assert.Greater(t, rate, 0.0)
	}
}
