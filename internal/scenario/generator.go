package scenario

import (
	"math/rand"

	"github.com/fairsim/marketsim/internal/agent"
	"github.com/fairsim/marketsim/internal/domain"
)

// Generator is a pseudo-agent that seeds the book with initial resting
// liquidity at t=0 and then drip-feeds ambient background orders and
// cancels on its own wakeup chain, the way the other example traders
// do — it differs from them only in being driven by the config's flow
// profile rather than a reactive strategy.
type Generator struct {
	cfg    *Config
	flow   ParsedFlow
	rng    *rand.Rand
	active []domain.OrderID
}

// NewGenerator creates a background flow generator for cfg.
func NewGenerator(cfg *Config) (*Generator, error) {
	flow, err := cfg.ParseFlow()
	if err != nil {
		return nil, err
	}
	return &Generator{
		cfg:  cfg,
		flow: flow,
		rng:  rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

func (g *Generator) randSize() domain.Qty {
	p := g.cfg.Flow
	if p.MaxOrderSize <= p.MinOrderSize {
		return domain.Qty(p.MinOrderSize)
	}
	return domain.Qty(p.MinOrderSize + g.rng.Int63n(p.MaxOrderSize-p.MinOrderSize+1))
}

func (g *Generator) randSide() domain.Side {
	if g.rng.Float64() < 0.5 {
		return domain.Buy
	}
	return domain.Sell
}

// Wakeup seeds the initial book on the first call (t=0), then emits
// either one ambient order or, occasionally, a cancel of a previously
// accepted order per tick, rescheduling itself at the configured interval until
// the scenario's duration elapses.
func (g *Generator) Wakeup(scheduler agent.Scheduler, currentTime int64) error {
	if currentTime == 0 {
		if err := g.seedBook(scheduler); err != nil {
			return err
		}
	} else {
		if err := g.emitOrder(scheduler, currentTime); err != nil {
			return err
		}
	}

	interval := g.cfg.Flow.OrderIntervalMs
	if interval <= 0 {
		return nil
	}
	next := currentTime + interval
	if next > g.cfg.DurationMs {
		return nil
	}
	return scheduler.ScheduleWakeup(next)
}

// Receive tracks OrderAccepted replies so the generator has a pool of
// its own resting order IDs to cancel later.
func (g *Generator) Receive(scheduler agent.Scheduler, msg domain.Message, currentTime int64) error {
	if msg.Kind == domain.PayloadOrderAccepted {
		g.active = append(g.active, msg.OrderAccepted.AcceptedID)
	}
	return nil
}

func (g *Generator) seedBook(scheduler agent.Scheduler) error {
	p := g.cfg.Flow
	halfSpread := g.flow.InitialSpread / 2
	bestBid := g.flow.InitialMidPrice - halfSpread
	bestAsk := g.flow.InitialMidPrice + halfSpread

	for lvl := 0; lvl < p.MaxPriceLevels; lvl++ {
		bidPrice := bestBid - domain.Price(lvl)*g.flow.PriceTickSize
		if err := g.submit(scheduler, domain.Buy, domain.LimitOrder, bidPrice, g.randSize(), 0); err != nil {
			return err
		}
		askPrice := bestAsk + domain.Price(lvl)*g.flow.PriceTickSize
		if err := g.submit(scheduler, domain.Sell, domain.LimitOrder, askPrice, g.randSize(), 0); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) emitOrder(scheduler agent.Scheduler, t int64) error {
	p := g.cfg.Flow

	if len(g.active) > 0 && g.rng.Float64() < p.CancelRate {
		idx := g.rng.Intn(len(g.active))
		id := g.active[idx]
		g.active = append(g.active[:idx], g.active[idx+1:]...)
		return scheduler.ScheduleSend(domain.ExchangeOrdersTopic(), domain.Message{
			Kind:        domain.PayloadCancelOrder,
			CancelOrder: &domain.CancelOrderPayload{OrderID: id},
		}, t)
	}

	side := g.randSide()
	typ := domain.LimitOrder
	var price domain.Price
	if g.rng.Float64() < p.MarketOrderRatio {
		typ = domain.MarketOrder
	} else {
		offset := domain.Price(g.rng.Intn(p.MaxPriceLevels+1)) * g.flow.PriceTickSize
		if side == domain.Buy {
			price = g.flow.InitialMidPrice - g.flow.InitialSpread/2 - offset
		} else {
			price = g.flow.InitialMidPrice + g.flow.InitialSpread/2 + offset
		}
	}
	return g.submit(scheduler, side, typ, price, g.randSize(), t)
}

func (g *Generator) submit(scheduler agent.Scheduler, side domain.Side, typ domain.OrderType, price domain.Price, qty domain.Qty, t int64) error {
	return scheduler.ScheduleSend(domain.ExchangeOrdersTopic(), domain.Message{
		Kind: domain.PayloadSubmitOrder,
		SubmitOrder: &domain.SubmitOrderPayload{
			Symbol: g.cfg.Symbol, Side: side, Type: typ,
			Price: price, Quantity: qty, ClientTag: "background",
		},
	}, t)
}
