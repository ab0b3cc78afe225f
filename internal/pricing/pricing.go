package pricing

import "time"

// Tier is the billing category of a member. Only SOCIO and active FUNDADOR
// get the preferential hourly rate; everyone else pays the client rate.
type Tier string

const (
	TierCliente  Tier = "CLIENTE"
	TierSocio    Tier = "SOCIO"
	TierFundador Tier = "FUNDADOR"

	StatusActive = "ACTIVE"
)

// RatePair holds the hourly rates in whole pesos, as configured on the
// "Hora de Juego" catalog entry.
type RatePair struct {
	Client int64
	Socio  int64
}

// DefaultRates is used when the catalog has no hourly-rate entry.
var DefaultRates = RatePair{Client: 4000, Socio: 4000}

// Resolve returns the hourly rate for a payer. A FUNDADOR whose membership
// has lapsed keeps the tier label but is billed at the client rate. The
// training discount halves whatever rate was resolved.
func Resolve(tier Tier, status string, rates RatePair, training bool) int64 {
	rate := rates.Client
	switch tier {
	case TierSocio:
		rate = rates.Socio
	case TierFundador:
		if status == StatusActive {
			rate = rates.Socio
		}
	}
	if training {
		rate /= 2
	}
	return rate
}

// TimeCost bills an occupancy window at an hourly rate, rounding up so
// sub-unit fractions never undercharge. A window where end precedes start
// is clamped to zero instead of failing, so settlement stays idempotent
// under clock skew.
func TimeCost(start, end time.Time, rate int64) int64 {
	ms := end.Sub(start).Milliseconds()
	if ms <= 0 || rate <= 0 {
		return 0
	}
	return ceilDiv(ms*rate, int64(time.Hour/time.Millisecond))
}

// TimeCostShare bills a percentage share (0–100) of an occupancy window.
// Each payer's share is rounded up independently, so a split may sum to
// slightly more than the unsplit total; that matches the house rule.
func TimeCostShare(start, end time.Time, rate int64, percentage int) int64 {
	ms := end.Sub(start).Milliseconds()
	if ms <= 0 || rate <= 0 || percentage <= 0 {
		return 0
	}
	return ceilDiv(ms*rate*int64(percentage), int64(time.Hour/time.Millisecond)*100)
}

// ConsumptionShare splits a consumption total by percentage, rounding up.
func ConsumptionShare(total int64, percentage int) int64 {
	if total <= 0 || percentage <= 0 {
		return 0
	}
	return ceilDiv(total*int64(percentage), 100)
}

func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}
