package test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairsim/marketsim/internal/scenario"
	"github.com/fairsim/marketsim/internal/sim"
)

// TestDeterminism verifies that the same seed and scenario produce
// identical event logs, metrics, and reports across two independent runs.
func TestDeterminism(t *testing.T) {
	for _, name := range []string{"calm", "thin", "spike"} {
		t.Run(name, func(t *testing.T) {
			seed := int64(12345)

			cfg1 := scenario.GetConfig(name, seed)
			dir1 := t.TempDir()
			runner1, err := sim.NewRunner(cfg1, dir1)
			require.NoError(t, err)
			result1, err := runner1.Run()
			require.NoError(t, err)
			m1 := runner1.Metrics()

			cfg2 := scenario.GetConfig(name, seed)
			dir2 := t.TempDir()
			runner2, err := sim.NewRunner(cfg2, dir2)
			require.NoError(t, err)
			result2, err := runner2.Run()
			require.NoError(t, err)
			m2 := runner2.Metrics()

			assert.Equal(t, result1.EventCount, result2.EventCount, "event count mismatch")
			assert.Equal(t, result1.TradeCount, result2.TradeCount, "trade count mismatch")
			assert.Equal(t, result1.LogHash, result2.LogHash, "log hash mismatch")

			for _, tag := range []string{"mm-1", "mom-1", "mr-1", "background"} {
				a1, ok1 := m1[tag]
				a2, ok2 := m2[tag]
				if !assert.Equal(t, ok1, ok2, "%s: presence mismatch between runs", tag) || !ok1 {
					continue
				}
				assert.Equal(t, a1.OrdersSent, a2.OrdersSent, "%s orders sent", tag)
				assert.Equal(t, a1.TotalFills, a2.TotalFills, "%s fills", tag)
				assert.Equal(t, a1.TotalQtyFilled, a2.TotalQtyFilled, "%s qty filled", tag)
				assert.Equal(t, a1.AvgExecPrice, a2.AvgExecPrice, "%s avg exec price", tag)
			}
		})
	}
}
