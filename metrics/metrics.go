package metrics

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics for the economy core. Rejections are labelled by error
// kind so replay attempts (CLAIM_ALREADY_USED) are visible separately from
// forgeries (INVALID_SIGNATURE) on the anti-fraud dashboards.
var (
	SettlementsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "economy_settlements_total",
			Help: "Total number of successfully settled claims",
		},
	)

	SettlementRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "economy_settlement_rejections_total",
			Help: "Total number of rejected claim settlements by error kind",
		},
		[]string{"kind"},
	)

	OcxCreditedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "economy_ocx_credited_total",
			Help: "Total OCX credited through claim settlements",
		},
	)

	MiningSavesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "economy_mining_saves_total",
			Help: "Total number of accepted resource saves",
		},
	)

	MiningClampedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "economy_mining_clamped_total",
			Help: "Total number of saves where at least one delta hit the tier cap",
		},
	)

	TradesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "economy_trades_total",
			Help: "Total number of completed trades",
		},
	)

	TradePayoutTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "economy_trade_payout_ocx_total",
			Help: "Total OCX paid out through trades",
		},
	)

	RateLimitRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "economy_rate_limit_rejections_total",
			Help: "Total number of rate-limited requests by route",
		},
		[]string{"route"},
	)
)

// Register registers every economy metric with the default registry.
func Register() {
	prometheus.MustRegister(
		SettlementsTotal,
		SettlementRejectionsTotal,
		OcxCreditedTotal,
		MiningSavesTotal,
		MiningClampedTotal,
		TradesTotal,
		TradePayoutTotal,
		RateLimitRejectionsTotal,
	)
}
