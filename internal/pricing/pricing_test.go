package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rates = RatePair{Client: 4000, Socio: 3000}

func TestResolve(t *testing.T) {
	assert.Equal(t, int64(4000), Resolve(TierCliente, StatusActive, rates, false))
	assert.Equal(t, int64(3000), Resolve(TierSocio, StatusActive, rates, false))
	assert.Equal(t, int64(3000), Resolve(TierSocio, "INACTIVE", rates, false))
	assert.Equal(t, int64(3000), Resolve(TierFundador, StatusActive, rates, false))
}

func TestResolveLapsedFundadorPaysClientRate(t *testing.T) {
	assert.Equal(t, int64(4000), Resolve(TierFundador, "INACTIVE", rates, false))
	assert.Equal(t, int64(4000), Resolve(TierFundador, "", rates, false))
}

func TestResolveTrainingHalvesEveryTier(t *testing.T) {
	for _, tier := range []Tier{TierCliente, TierSocio, TierFundador} {
		full := Resolve(tier, StatusActive, rates, false)
		half := Resolve(tier, StatusActive, rates, true)
		assert.Equal(t, full/2, half, "tier %s", tier)
	}
}

func TestTimeCostExactHour(t *testing.T) {
	start := time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	assert.Equal(t, int64(4000), TimeCost(start, end, 4000))
}

func TestTimeCostRoundsUp(t *testing.T) {
	start := time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)

	// 30 minutes at 4000/hr is exactly 2000
	assert.Equal(t, int64(2000), TimeCost(start, start.Add(30*time.Minute), 4000))

	// one extra second must round up, never down
	assert.Equal(t, int64(2002), TimeCost(start, start.Add(30*time.Minute+time.Second), 4000))

	// a single minute at 4000/hr is 66.66..., billed 67
	assert.Equal(t, int64(67), TimeCost(start, start.Add(time.Minute), 4000))
}

func TestTimeCostClampsNegativeWindow(t *testing.T) {
	start := time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)
	end := start.Add(-10 * time.Minute)

	assert.Zero(t, TimeCost(start, end, 4000))
	assert.Zero(t, TimeCost(start, start, 4000))
}

func TestTimeCostMonotonicInEnd(t *testing.T) {
	start := time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)

	prev := int64(0)
	for i := 0; i <= 180; i++ {
		cost := TimeCost(start, start.Add(time.Duration(i)*time.Minute), 3500)
		require.GreaterOrEqual(t, cost, prev, "minute %d", i)
		prev = cost
	}
}

func TestTimeCostShare(t *testing.T) {
	start := time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	// 50% of one hour at 4000/hr
	assert.Equal(t, int64(2000), TimeCostShare(start, end, 4000, 50))
	assert.Equal(t, int64(4000), TimeCostShare(start, end, 4000, 100))
	assert.Zero(t, TimeCostShare(start, end, 4000, 0))
}

func TestSharesAreIndependentPerRate(t *testing.T) {
	start := time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	// Two payers at 50% each with different tiers pay different amounts
	// for the same share; the split is not derived from one blended total.
	socioShare := TimeCostShare(start, end, rates.Socio, 50)
	clientShare := TimeCostShare(start, end, rates.Client, 50)

	assert.Equal(t, int64(1500), socioShare)
	assert.Equal(t, int64(2000), clientShare)
	assert.NotEqual(t, socioShare, clientShare)
}

func TestConsumptionShare(t *testing.T) {
	assert.Equal(t, int64(5000), ConsumptionShare(10000, 50))
	assert.Equal(t, int64(10000), ConsumptionShare(10000, 100))

	// 33% of 100 rounds up
	assert.Equal(t, int64(33), ConsumptionShare(100, 33))
	assert.Equal(t, int64(34), ConsumptionShare(101, 33))

	assert.Zero(t, ConsumptionShare(0, 50))
}
