package test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairsim/marketsim/internal/scenario"
	"github.com/fairsim/marketsim/internal/sim"
)

// TestIntegrationAllScenarios runs all scenarios end-to-end and checks
// that the simulation produces meaningful results.
func TestIntegrationAllScenarios(t *testing.T) {
	for _, name := range []string{"calm", "thin", "spike"} {
		t.Run(name, func(t *testing.T) {
			cfg := scenario.GetConfig(name, 42)
			dir := t.TempDir()

			runner, err := sim.NewRunner(cfg, dir)
			require.NoError(t, err)

			result, err := runner.Run()
			require.NoError(t, err)

			assert.NotZero(t, result.EventCount, "no events processed")
			assert.NotZero(t, result.TradeCount, "no trades")

			m := runner.Metrics()
			for _, ac := range cfg.Agents {
				am, ok := m[ac.Tag]
				require.True(t, ok, "no metrics for agent %q", ac.Tag)
				assert.NotZero(t, am.OrdersSent, "agent %q sent no orders", ac.Tag)
			}

			t.Logf("  Events: %d, Trades: %d", result.EventCount, result.TradeCount)
			for _, tag := range runner.Metrics() {
				t.Logf("  %s: orders=%d fills=%d qty=%d avg_price=%.4f",
					tag.Tag, tag.OrdersSent, tag.TotalFills, tag.TotalQtyFilled, tag.AvgExecPrice)
			}
		})
	}
}

// TestLatencyImpactEvidence verifies that the lowest-latency agent and
// the highest-latency agent end up with measurably different fill
// rates in at least some scenarios — latency should matter.
func TestLatencyImpactEvidence(t *testing.T) {
	measurableDiffs := 0

	for _, name := range []string{"calm", "thin", "spike"} {
		t.Run(name, func(t *testing.T) {
			cfg := scenario.GetConfig(name, 42)
			dir := t.TempDir()

			runner, err := sim.NewRunner(cfg, dir)
			require.NoError(t, err)
			_, err = runner.Run()
			require.NoError(t, err)

			fastestTag, slowestTag := cfg.Agents[0].Tag, cfg.Agents[0].Tag
			fastestLat, slowestLat := cfg.Agents[0].BaseLatencyMs, cfg.Agents[0].BaseLatencyMs
			for _, ac := range cfg.Agents {
				if ac.BaseLatencyMs < fastestLat {
					fastestLat, fastestTag = ac.BaseLatencyMs, ac.Tag
				}
				if ac.BaseLatencyMs > slowestLat {
					slowestLat, slowestTag = ac.BaseLatencyMs, ac.Tag
				}
			}
			if fastestTag == slowestTag {
				t.Skip("scenario has no latency spread across agents")
			}

			m := runner.Metrics()
			fast, slow := m[fastestTag], m[slowestTag]
			require.NotNil(t, fast, "missing agent metrics")
			require.NotNil(t, slow, "missing agent metrics")

			fastFillRate := fillRate(fast.TotalFills, fast.OrdersSent)
			slowFillRate := fillRate(slow.TotalFills, slow.OrdersSent)
			deltaPP := (fastFillRate - slowFillRate) * 100

			t.Logf("  %s (latency %dms) fill rate %.1f%%, %s (latency %dms) fill rate %.1f%%",
				fastestTag, fastestLat, fastFillRate*100, slowestTag, slowestLat, slowFillRate*100)

			if math.Abs(deltaPP) >= 1 {
				measurableDiffs++
			}
		})
	}

	assert.GreaterOrEqual(t, measurableDiffs, 1, "expected measurable latency impact in at least 1 scenario")
}

func fillRate(fills, orders int) float64 {
	if orders == 0 {
		return 0
	}
	return float64(fills) / float64(orders)
}
