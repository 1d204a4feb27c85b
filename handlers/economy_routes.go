package handlers

import (
	"oceanx-economy-service/metrics"
	"oceanx-economy-service/middleware"
	"oceanx-economy-service/models"
	"oceanx-economy-service/services"
	"oceanx-economy-service/store"

	"github.com/gofiber/fiber/v2"
)

// SetupEconomyRoutes wires the economy endpoints. Player routes derive the
// acting wallet from the verified session; internal routes require the
// gateway service token.
func SetupEconomyRoutes(app *fiber.App, claimService *services.ClaimService, miningService *services.MiningService, tradeService *services.TradeService, st store.Store) {
	secured := app.Group("/economy", middleware.SessionWalletMiddleware())

	secured.Post("/claim", func(c *fiber.Ctx) error {
		wallet := c.Locals("wallet").(string)

		var req services.SettleRequest
		if err := c.BodyParser(&req); err != nil {
			return economyError(c, services.Errf(services.KindInvalidPayload, "invalid request body"))
		}

		result, eerr := claimService.Settle(c.UserContext(), wallet, req)
		if eerr != nil {
			if eerr.Kind == services.KindRateLimited {
				metrics.RateLimitRejectionsTotal.WithLabelValues("claim").Inc()
				return c.Status(eerr.HTTPStatus()).JSON(fiber.Map{
					"success":      false,
					"error":        string(eerr.Kind),
					"message":      eerr.Message,
					"retryAfterMs": eerr.RetryAfter.Milliseconds(),
				})
			}
			metrics.SettlementRejectionsTotal.WithLabelValues(string(eerr.Kind)).Inc()
			return economyError(c, eerr)
		}

		metrics.SettlementsTotal.Inc()
		metrics.OcxCreditedTotal.Add(float64(result.Amount))
		return c.JSON(fiber.Map{
			"success":      true,
			"claimId":      result.ClaimID,
			"wallet":       result.Wallet,
			"amount":       result.Amount,
			"newBalance":   result.NewBalance,
			"settlementId": result.SettlementID,
			"claimedAt":    result.ClaimedAt,
		})
	})

	secured.Post("/resources/save", func(c *fiber.Ctx) error {
		wallet := c.Locals("wallet").(string)

		var req struct {
			Deltas map[string]float64 `json:"deltas"`
		}
		if err := c.BodyParser(&req); err != nil {
			return economyError(c, services.Errf(services.KindInvalidPayload, "invalid request body"))
		}

		result, eerr := miningService.ApplyDeltas(c.UserContext(), wallet, req.Deltas)
		if eerr != nil {
			if eerr.Kind == services.KindRateLimited {
				metrics.RateLimitRejectionsTotal.WithLabelValues("save").Inc()
				return c.Status(eerr.HTTPStatus()).JSON(fiber.Map{
					"success":      false,
					"error":        string(eerr.Kind),
					"message":      eerr.Message,
					"retryAfterMs": eerr.RetryAfter.Milliseconds(),
				})
			}
			return economyError(c, eerr)
		}

		metrics.MiningSavesTotal.Inc()
		for resource, applied := range result.Applied {
			if applied < int64(req.Deltas[resource]) {
				metrics.MiningClampedTotal.Inc()
				break
			}
		}
		p := result.Player
		return c.JSON(fiber.Map{
			"success": true,
			"applied": result.Applied,
			"data": fiber.Map{
				"id":                    p.ID,
				"nickel":                p.Nickel,
				"cobalt":                p.Cobalt,
				"copper":                p.Copper,
				"manganese":             p.Manganese,
				"total_resources_mined": p.TotalResourcesMined,
			},
		})
	})

	secured.Post("/trade", func(c *fiber.Ctx) error {
		wallet := c.Locals("wallet").(string)

		result, eerr := tradeService.TradeAll(c.UserContext(), wallet)
		if eerr != nil {
			if eerr.Kind == services.KindRateLimited {
				metrics.RateLimitRejectionsTotal.WithLabelValues("trade").Inc()
				return c.Status(eerr.HTTPStatus()).JSON(fiber.Map{
					"success":           false,
					"error":             string(eerr.Kind),
					"message":           eerr.Message,
					"retryAfterSeconds": int64(eerr.RetryAfter.Seconds()) + 1,
				})
			}
			return economyError(c, eerr)
		}

		metrics.TradesTotal.Inc()
		metrics.TradePayoutTotal.Add(float64(result.OcxEarned))
		return c.JSON(fiber.Map{
			"success":         true,
			"wallet":          result.Wallet,
			"tradeId":         result.TradeID,
			"resourcesTraded": result.ResourcesTraded,
			"ocxEarned":       result.OcxEarned,
			"newOcxBalance":   result.NewBalance,
			"breakdown":       result.Breakdown,
		})
	})

	secured.Get("/player", func(c *fiber.Ctx) error {
		wallet := c.Locals("wallet").(string)

		player, err := st.EnsurePlayer(c.UserContext(), wallet)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load player record",
			})
		}
		return c.JSON(fiber.Map{
			"success": true,
			"player":  player,
			"caps":    services.TierCaps(player.SubmarineTier),
		})
	})

	internal := app.Group("/internal", middleware.GatewayAuthMiddleware())

	// Called by the reward calculator when it issues a signed claim; the
	// settlement endpoint later consumes the row it creates.
	internal.Post("/claims", func(c *fiber.Ctx) error {
		var claim models.Claim
		if err := c.BodyParser(&claim); err != nil {
			return economyError(c, services.Errf(services.KindInvalidPayload, "invalid request body"))
		}
		if eerr := claimService.RegisterClaim(c.UserContext(), &claim); eerr != nil {
			return economyError(c, eerr)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success": true,
			"claimId": claim.ClaimID,
		})
	})
}

func economyError(c *fiber.Ctx, eerr *services.EconomyError) error {
	return c.Status(eerr.HTTPStatus()).JSON(fiber.Map{
		"success": false,
		"error":   string(eerr.Kind),
		"message": eerr.Message,
	})
}
