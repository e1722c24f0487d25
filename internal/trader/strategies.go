package trader

import "github.com/fairsim/marketsim/internal/domain"

// MarketMaker posts a symmetric two-sided quote around the current
// top-of-book, one tick inside the spread on each side, sized to a
// fixed target quantity.
type MarketMaker struct {
	TargetQty domain.Qty
	Spread    domain.Price // ticks quoted inside the current best bid/ask
}

func (m *MarketMaker) Name() string { return "market-maker" }

func (m *MarketMaker) OnTick(t *Trader, currentTime int64) []domain.SubmitOrderPayload {
	if t.BidPrice <= 0 || t.AskPrice <= 0 {
		return nil
	}
	var out []domain.SubmitOrderPayload
	bidPrice := t.BidPrice + m.Spread
	askPrice := t.AskPrice - m.Spread
	if bidPrice >= askPrice {
		bidPrice, askPrice = t.BidPrice, t.AskPrice
	}
	out = append(out,
		domain.SubmitOrderPayload{
			Symbol: t.Symbol, Side: domain.Buy, Type: domain.LimitOrder,
			Price: bidPrice, Quantity: m.TargetQty, ClientTag: t.Tag,
		},
		domain.SubmitOrderPayload{
			Symbol: t.Symbol, Side: domain.Sell, Type: domain.LimitOrder,
			Price: askPrice, Quantity: m.TargetQty, ClientTag: t.Tag,
		},
	)
	return out
}

// Momentum trades in the direction of the recent price trend: if the
// last trade price is above its short-window average it buys, if below
// it sells, with a market order sized to a fixed target quantity.
type Momentum struct {
	TargetQty   domain.Qty
	WindowTicks int
}

func (m *Momentum) Name() string { return "momentum" }

func (m *Momentum) OnTick(t *Trader, currentTime int64) []domain.SubmitOrderPayload {
	n := len(t.PriceHistory)
	if n < 2 {
		return nil
	}
	window := m.WindowTicks
	if window <= 0 || window > n {
		window = n
	}
	var sum domain.Price
	for _, p := range t.PriceHistory[n-window:] {
		sum += p
	}
	avg := sum / domain.Price(window)
	last := t.PriceHistory[n-1]
	if last == avg {
		return nil
	}
	side := domain.Buy
	if last < avg {
		side = domain.Sell
	}
	return []domain.SubmitOrderPayload{{
		Symbol: t.Symbol, Side: side, Type: domain.MarketOrder,
		Quantity: m.TargetQty, ClientTag: t.Tag,
	}}
}

// MeanReversion fades the recent trend: if the last trade is above its
// short-window average it sells (expecting reversion down), and vice
// versa — the mirror image of Momentum.
type MeanReversion struct {
	TargetQty   domain.Qty
	WindowTicks int
}

func (m *MeanReversion) Name() string { return "mean-reversion" }

func (m *MeanReversion) OnTick(t *Trader, currentTime int64) []domain.SubmitOrderPayload {
	n := len(t.PriceHistory)
	if n < 2 {
		return nil
	}
	window := m.WindowTicks
	if window <= 0 || window > n {
		window = n
	}
	var sum domain.Price
	for _, p := range t.PriceHistory[n-window:] {
		sum += p
	}
	avg := sum / domain.Price(window)
	last := t.PriceHistory[n-1]
	if last == avg {
		return nil
	}
	side := domain.Sell
	if last < avg {
		side = domain.Buy
	}
	return []domain.SubmitOrderPayload{{
		Symbol: t.Symbol, Side: side, Type: domain.MarketOrder,
		Quantity: m.TargetQty, ClientTag: t.Tag,
	}}
}
