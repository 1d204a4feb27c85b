package services

import (
	"context"
	"encoding/json"
	"log"
	"math"

	"github.com/google/uuid"

	"oceanx-economy-service/models"
	"oceanx-economy-service/ratelimit"
	"oceanx-economy-service/store"
)

// MiningResult reports what a save actually changed. Applied can be smaller
// than requested when the cargo hold clamped at the tier cap.
type MiningResult struct {
	Player  *models.Player   `json:"player"`
	Applied map[string]int64 `json:"applied"`
}

// MiningService validates and applies client-reported resource deltas. The
// client only ever supplies increments; current totals, tier caps and the
// final values are all read and computed server-side under the row lock.
type MiningService struct {
	Store   store.Store
	Limiter ratelimit.Limiter
	Cfg     EconomyConfig
}

func NewMiningService(st store.Store, limiter ratelimit.Limiter, cfg EconomyConfig) *MiningService {
	return &MiningService{Store: st, Limiter: limiter, Cfg: cfg}
}

// ApplyDeltas bounds, clamps and persists one save for wallet.
func (s *MiningService) ApplyDeltas(ctx context.Context, wallet string, deltas map[string]float64) (*MiningResult, *EconomyError) {
	floored, eerr := s.validate(deltas)
	if eerr != nil {
		return nil, eerr
	}

	if ok, retryAfter := s.Limiter.Allow("save:" + wallet); !ok {
		return nil, &EconomyError{
			Kind:       KindRateLimited,
			Message:    "resource saves are rate limited",
			RetryAfter: retryAfter,
		}
	}

	sourceID := uuid.NewString()
	applied := make(map[string]int64, len(floored))

	player, err := s.Store.MutatePlayer(ctx, wallet, func(p *models.Player) ([]models.ResourceEvent, error) {
		var events []models.ResourceEvent
		var totalApplied int64

		for _, resource := range models.ResourceTypes {
			delta, ok := floored[resource]
			if !ok || delta == 0 {
				continue
			}
			current := p.Resource(resource)
			cap := CapForTier(p.SubmarineTier, resource)

			// A full hold discards the excess instead of failing the save.
			newValue := current + delta
			if newValue > cap {
				newValue = cap
			}
			appliedDelta := newValue - current
			if appliedDelta < 0 {
				appliedDelta = 0
				newValue = current
			}
			applied[resource] = appliedDelta
			if appliedDelta == 0 {
				continue
			}

			p.SetResource(resource, newValue)
			totalApplied += appliedDelta

			meta, _ := json.Marshal(map[string]interface{}{
				"requestedDelta": delta,
				"appliedDelta":   appliedDelta,
				"capped":         appliedDelta < delta,
				"tier":           p.SubmarineTier,
				"cap":            cap,
			})
			events = append(events, models.ResourceEvent{
				ResourceType: resource,
				Amount:       appliedDelta,
				EventType:    models.EventTypeMining,
				SourceID:     sourceID,
				Metadata:     string(meta),
			})
		}

		p.TotalResourcesMined += totalApplied
		return events, nil
	})
	if err != nil {
		log.Printf("❌ [MINING] Save failed for wallet %s: %v", wallet, err)
		return nil, Errf(KindTransactionFailed, "failed to persist resource save")
	}

	s.Limiter.Record("save:" + wallet)
	return &MiningResult{Player: player, Applied: applied}, nil
}

// validate floors the raw deltas and rejects anything negative, non-finite or
// above the per-call ceiling. Runs before any storage access.
func (s *MiningService) validate(deltas map[string]float64) (map[string]int64, *EconomyError) {
	if len(deltas) == 0 {
		return nil, Errf(KindInvalidPayload, "no resource deltas supplied")
	}
	floored := make(map[string]int64, len(deltas))
	for resource, raw := range deltas {
		if !isKnownResource(resource) {
			return nil, Errf(KindInvalidPayload, "unknown resource type %q", resource)
		}
		if math.IsNaN(raw) || math.IsInf(raw, 0) {
			return nil, Errf(KindInvalidPayload, "delta for %s is not finite", resource)
		}
		if raw < 0 {
			return nil, Errf(KindInvalidPayload, "delta for %s is negative", resource)
		}
		// Ceiling check while still a float: converting an over-MaxInt64
		// value to int64 first is implementation-defined and can wrap
		// negative, sneaking past the bound.
		if math.Floor(raw) > float64(s.Cfg.MaxDeltaPerCall) {
			return nil, Errf(KindInvalidPayload, "delta for %s exceeds the per-call ceiling of %d", resource, s.Cfg.MaxDeltaPerCall)
		}
		floored[resource] = int64(math.Floor(raw))
	}
	return floored, nil
}

func isKnownResource(resource string) bool {
	for _, r := range models.ResourceTypes {
		if r == resource {
			return true
		}
	}
	return false
}
