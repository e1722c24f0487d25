// Package latency implements a configurable base+jitter latency model,
// used by example trading strategies to convert a decision time into a
// message arrival time. Jitter draws from a seeded RNG so two runs with
// identical seeds produce identical arrival times.
package latency

import "math/rand"

// Model applies deterministic latency and jitter, both in milliseconds.
type Model struct {
	BaseMs   int64
	JitterMs int64
	rng      *rand.Rand
}

// NewModel creates a latency model with the given parameters and seed.
func NewModel(baseMs, jitterMs int64, seed int64) *Model {
	return &Model{
		BaseMs:   baseMs,
		JitterMs: jitterMs,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// Apply returns the arrival time given a decision time, both in
// milliseconds of virtual time.
func (m *Model) Apply(decisionTime int64) int64 {
	jitter := int64(0)
	if m.JitterMs > 0 {
		jitter = m.rng.Int63n(m.JitterMs)
	}
	return decisionTime + m.BaseMs + jitter
}
