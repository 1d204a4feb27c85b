package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math"

	"github.com/google/uuid"

	"oceanx-economy-service/models"
	"oceanx-economy-service/ratelimit"
	"oceanx-economy-service/store"
)

// TradeResult is the receipt for one trade-all. Breakdown holds the OCX each
// resource contributed; every audit row of the trade shares TradeID.
type TradeResult struct {
	Wallet          string           `json:"wallet"`
	TradeID         string           `json:"tradeId"`
	ResourcesTraded map[string]int64 `json:"resourcesTraded"`
	OcxEarned       int64            `json:"ocxEarned"`
	NewBalance      int64            `json:"newOcxBalance"`
	Breakdown       map[string]int64 `json:"breakdown"`
}

// TradeService converts a player's whole cargo hold into OCX at the fixed
// exchange rates. The per-trade payout ceiling bounds the worst case of any
// rate error independently of the rate limiter.
type TradeService struct {
	Store   store.Store
	Limiter ratelimit.Limiter
	Cfg     EconomyConfig
}

func NewTradeService(st store.Store, limiter ratelimit.Limiter, cfg EconomyConfig) *TradeService {
	return &TradeService{Store: st, Limiter: limiter, Cfg: cfg}
}

// TradeAll sells every resource the wallet holds. Rejections mutate nothing.
func (s *TradeService) TradeAll(ctx context.Context, wallet string) (*TradeResult, *EconomyError) {
	if ok, retryAfter := s.Limiter.Allow("trade:" + wallet); !ok {
		return nil, &EconomyError{
			Kind:       KindRateLimited,
			Message:    "trades are rate limited",
			RetryAfter: retryAfter,
		}
	}

	tradeID := uuid.NewString()
	result := TradeResult{
		Wallet:          wallet,
		TradeID:         tradeID,
		ResourcesTraded: make(map[string]int64),
		Breakdown:       make(map[string]int64),
	}

	player, err := s.Store.MutatePlayer(ctx, wallet, func(p *models.Player) ([]models.ResourceEvent, error) {
		var events []models.ResourceEvent
		var totalResources, payout int64

		for _, resource := range models.ResourceTypes {
			// Defensive re-clamp against any upstream drift past the cap.
			held := p.Resource(resource)
			if cap := CapForTier(p.SubmarineTier, resource); held > cap {
				held = cap
			}
			if held <= 0 {
				continue
			}
			earned := int64(math.Floor(float64(held) * ExchangeRates[resource]))
			totalResources += held
			payout += earned
			result.ResourcesTraded[resource] = held
			result.Breakdown[resource] = earned
		}

		if totalResources == 0 || payout == 0 {
			return nil, Errf(KindNothingToTrade, "nothing to trade")
		}
		if payout > s.Cfg.MaxTradePayout {
			return nil, Errf(KindTradeLimitExceeded, "payout %d exceeds the per-trade ceiling of %d", payout, s.Cfg.MaxTradePayout)
		}

		for resource, held := range result.ResourcesTraded {
			meta, _ := json.Marshal(map[string]interface{}{
				"rate":      ExchangeRates[resource],
				"ocxEarned": result.Breakdown[resource],
			})
			events = append(events, models.ResourceEvent{
				ResourceType: resource,
				Amount:       -held, // negative signed amount = spent
				EventType:    models.EventTypeTradeSell,
				SourceID:     tradeID,
				Metadata:     string(meta),
			})
			p.SetResource(resource, 0)
		}

		p.OcxBalance += payout
		result.OcxEarned = payout
		result.NewBalance = p.OcxBalance
		return events, nil
	})
	if err != nil {
		var econ *EconomyError
		if errors.As(err, &econ) {
			return nil, econ
		}
		log.Printf("❌ [TRADE] Trade failed for wallet %s: %v", wallet, err)
		return nil, Errf(KindTransactionFailed, "failed to persist trade")
	}

	s.Limiter.Record("trade:" + wallet)
	result.NewBalance = player.OcxBalance
	log.Printf("✅ [TRADE] %s traded %d resources for %d OCX (trade %s)",
		wallet, sumValues(result.ResourcesTraded), result.OcxEarned, tradeID)
	return &result, nil
}

func sumValues(m map[string]int64) int64 {
	var total int64
	for _, v := range m {
		total += v
	}
	return total
}
