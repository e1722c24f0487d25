// Package scenario defines named background-order-flow profiles and
// the agent roster they drive.
package scenario

import "github.com/fairsim/marketsim/internal/domain"

// Config holds all parameters for a simulation run.
type Config struct {
	Name       string       `mapstructure:"name" json:"name"`
	Seed       int64        `mapstructure:"seed" json:"seed"`
	Symbol     string       `mapstructure:"symbol" json:"symbol"`
	DurationMs int64        `mapstructure:"duration_ms" json:"duration_ms"`
	Agents     []AgentConfig `mapstructure:"agents" json:"agents"`
	Flow       FlowParams   `mapstructure:"flow" json:"flow"`
}

// AgentConfig describes one example trading agent to instantiate.
type AgentConfig struct {
	Tag             string `mapstructure:"tag" json:"tag"`
	Kind            string `mapstructure:"kind" json:"kind"` // "market-maker" | "momentum" | "mean-reversion"
	BaseLatencyMs   int64  `mapstructure:"base_latency_ms" json:"base_latency_ms"`
	JitterMs        int64  `mapstructure:"jitter_ms" json:"jitter_ms"`
	ReQuoteMs       int64  `mapstructure:"requote_ms" json:"requote_ms"`
	TargetQty       int64  `mapstructure:"target_qty" json:"target_qty"`
	SpreadTicks     int64  `mapstructure:"spread_ticks" json:"spread_ticks"`
	WindowTicks     int    `mapstructure:"window_ticks" json:"window_ticks"`
}

// FlowParams controls the background order-flow generator, which fills
// the book with resting liquidity and ambient noise so example traders
// have a market to react to.
type FlowParams struct {
	InitialMidPrice  string  `mapstructure:"initial_mid_price" json:"initial_mid_price"` // decimal string
	InitialSpread    string  `mapstructure:"initial_spread" json:"initial_spread"`
	PriceTickSize    string  `mapstructure:"price_tick_size" json:"price_tick_size"`
	OrderIntervalMs  int64   `mapstructure:"order_interval_ms" json:"order_interval_ms"`
	MarketOrderRatio float64 `mapstructure:"market_order_ratio" json:"market_order_ratio"`
	CancelRate       float64 `mapstructure:"cancel_rate" json:"cancel_rate"`
	MinOrderSize     int64   `mapstructure:"min_order_size" json:"min_order_size"`
	MaxOrderSize     int64   `mapstructure:"max_order_size" json:"max_order_size"`
	MaxPriceLevels   int     `mapstructure:"max_price_levels" json:"max_price_levels"`

	// Spike-specific burst parameters. They are carried in the config and
	// its JSON form, but the Generator does not read them: order flow
	// runs at OrderIntervalMs throughout, with no bursts.
	BurstWindowMs  int64   `mapstructure:"burst_window_ms" json:"burst_window_ms,omitempty"`
	BurstIntervalMs int64  `mapstructure:"burst_interval_ms" json:"burst_interval_ms,omitempty"`
	BurstRateMul   float64 `mapstructure:"burst_rate_mul" json:"burst_rate_mul,omitempty"`
}

func defaultAgents() []AgentConfig {
	return []AgentConfig{
		{Tag: "mm-1", Kind: "market-maker", BaseLatencyMs: 1, JitterMs: 0, ReQuoteMs: 100, TargetQty: 5, SpreadTicks: 1},
		{Tag: "mom-1", Kind: "momentum", BaseLatencyMs: 20, JitterMs: 10, ReQuoteMs: 250, TargetQty: 3, WindowTicks: 8},
		{Tag: "mr-1", Kind: "mean-reversion", BaseLatencyMs: 50, JitterMs: 20, ReQuoteMs: 400, TargetQty: 3, WindowTicks: 20},
	}
}

// DefaultCalm returns the default configuration for a calm market scenario.
func DefaultCalm(seed int64) *Config {
	return &Config{
		Name: "calm", Seed: seed, Symbol: "SIM", DurationMs: 10_000,
		Agents: defaultAgents(),
		Flow: FlowParams{
			InitialMidPrice: "100.0000", InitialSpread: "0.0200", PriceTickSize: "0.0100",
			OrderIntervalMs: 5, MarketOrderRatio: 0.15, CancelRate: 0.10,
			MinOrderSize: 1, MaxOrderSize: 10, MaxPriceLevels: 5,
		},
	}
}

// DefaultThin returns the default configuration for a thin-book scenario.
func DefaultThin(seed int64) *Config {
	return &Config{
		Name: "thin", Seed: seed, Symbol: "SIM", DurationMs: 10_000,
		Agents: defaultAgents(),
		Flow: FlowParams{
			InitialMidPrice: "100.0000", InitialSpread: "0.0500", PriceTickSize: "0.0100",
			OrderIntervalMs: 20, MarketOrderRatio: 0.25, CancelRate: 0.15,
			MinOrderSize: 1, MaxOrderSize: 5, MaxPriceLevels: 3,
		},
	}
}

// DefaultSpike returns the default configuration for a burst/spike scenario.
func DefaultSpike(seed int64) *Config {
	return &Config{
		Name: "spike", Seed: seed, Symbol: "SIM", DurationMs: 10_000,
		Agents: defaultAgents(),
		Flow: FlowParams{
			InitialMidPrice: "100.0000", InitialSpread: "0.0300", PriceTickSize: "0.0100",
			OrderIntervalMs: 8, MarketOrderRatio: 0.20, CancelRate: 0.25,
			MinOrderSize: 1, MaxOrderSize: 15, MaxPriceLevels: 5,
			BurstWindowMs: 500, BurstIntervalMs: 2000, BurstRateMul: 4.0,
		},
	}
}

// GetConfig returns the default config for a named scenario, or nil if unknown.
func GetConfig(name string, seed int64) *Config {
	switch name {
	case "calm":
		return DefaultCalm(seed)
	case "thin":
		return DefaultThin(seed)
	case "spike":
		return DefaultSpike(seed)
	default:
		return nil
	}
}

// ParsedFlow converts decimal-string flow parameters into tick prices,
// at the config boundary — never inside the matching loop.
type ParsedFlow struct {
	InitialMidPrice domain.Price
	InitialSpread   domain.Price
	PriceTickSize   domain.Price
}

func (c *Config) ParseFlow() (ParsedFlow, error) {
	mid, err := domain.ParsePrice(c.Flow.InitialMidPrice)
	if err != nil {
		return ParsedFlow{}, err
	}
	spread, err := domain.ParsePrice(c.Flow.InitialSpread)
	if err != nil {
		return ParsedFlow{}, err
	}
	tick, err := domain.ParsePrice(c.Flow.PriceTickSize)
	if err != nil {
		return ParsedFlow{}, err
	}
	return ParsedFlow{InitialMidPrice: mid, InitialSpread: spread, PriceTickSize: tick}, nil
}
