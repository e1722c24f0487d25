// Package orderbook implements a single-instrument limit order book
// with price-time priority matching.
package orderbook

import (
	"errors"
	"fmt"
	"sort"

	"github.com/fairsim/marketsim/internal/domain"
)

var (
	// ErrMalformedOrder is returned by Submit for non-positive quantity,
	// non-positive limit price, or a symbol mismatch.
	ErrMalformedOrder = errors.New("orderbook: malformed order")
	// ErrUnknownOrder is returned by Cancel for an absent or already-terminal order.
	ErrUnknownOrder = errors.New("orderbook: unknown order")
	// ErrNotOwner is returned by Cancel when the requesting agent does not own the order.
	ErrNotOwner = errors.New("orderbook: not owner")
)

// SelfTradePolicy controls what happens when an incoming order would
// match a resting order from the same agent. The default, and the only
// policy mandated by the matching contract, is MatchNormally.
type SelfTradePolicy int8

const (
	// MatchNormally matches self-crossing orders like any other counterparty.
	MatchNormally SelfTradePolicy = iota
	// CancelOldest cancels the resting order and continues matching.
	CancelOldest
	// CancelNewest rejects the remainder of the incoming order's quantity at this level.
	CancelNewest
	// DecrementBoth decrements both the resting and the incoming order by the smaller of their remaining quantities, with no trade.
	DecrementBoth
)

// PriceLevel holds all resting orders at a single price, in FIFO order.
type PriceLevel struct {
	Price  domain.Price
	Orders []*domain.Order
}

// TotalQty returns the sum of remaining quantities at this level.
func (pl *PriceLevel) TotalQty() domain.Qty {
	var total domain.Qty
	for _, o := range pl.Orders {
		total += o.Remaining
	}
	return total
}

// LevelView is a read-only snapshot of one price level for Depth queries.
type LevelView struct {
	Price domain.Price
	Qty   domain.Qty
}

// SubmitResult is the outcome of Book.Submit.
type SubmitResult struct {
	AcceptedID domain.OrderID
	Fills      []domain.Trade
	Resting    *RestQuote
}

// RestQuote describes the portion of a submission left resting, if any.
type RestQuote struct {
	Price domain.Price
	Qty   domain.Qty
}

// Book is a single-instrument limit order book.
type Book struct {
	Symbol string
	Policy SelfTradePolicy

	bids []*PriceLevel // sorted descending by price (best bid first)
	asks []*PriceLevel // sorted ascending by price (best ask first)

	orderIndex map[domain.OrderID]*domain.Order
	arrivalSeq uint64
}

// New creates an empty order book for symbol.
func New(symbol string, policy SelfTradePolicy) *Book {
	return &Book{
		Symbol:     symbol,
		Policy:     policy,
		orderIndex: make(map[domain.OrderID]*domain.Order),
	}
}

// Submit accepts a new order under the given exchange-assigned orderID,
// matching it against the opposite side and resting any unfilled
// remainder. Market orders are modeled as limit orders at the side's
// extreme admissible price, so the matching loop below has a single
// branch regardless of order type. orderID is assigned by the caller
// (the exchange, from a single counter shared across all its books) so
// that OrderIDs stay unique across symbols; arrivalSeq remains scoped
// to this book.
func (b *Book) Submit(orderID domain.OrderID, agentID domain.AgentID, symbol string, side domain.Side, typ domain.OrderType, price domain.Price, qty domain.Qty, clientTag string, timestamp int64) (SubmitResult, error) {
	if qty <= 0 {
		return SubmitResult{}, fmt.Errorf("%w: quantity %d <= 0", ErrMalformedOrder, qty)
	}
	if symbol != b.Symbol {
		return SubmitResult{}, fmt.Errorf("%w: symbol %q does not match book %q", ErrMalformedOrder, symbol, b.Symbol)
	}

	effectivePrice := price
	if typ == domain.MarketOrder {
		if side == domain.Buy {
			effectivePrice = domain.MaxPrice
		} else {
			effectivePrice = domain.MinPrice
		}
	} else if price <= 0 {
		return SubmitResult{}, fmt.Errorf("%w: price %d <= 0", ErrMalformedOrder, price)
	}

	b.arrivalSeq++
	order := &domain.Order{
		OrderID:     orderID,
		AgentID:     agentID,
		Symbol:      symbol,
		Side:        side,
		Type:        typ,
		Price:       effectivePrice,
		Quantity:    qty,
		Remaining:   qty,
		ArrivalTime: timestamp,
		ArrivalSeq:  b.arrivalSeq,
		ClientTag:   clientTag,
	}

	trades := b.match(order, timestamp)

	result := SubmitResult{AcceptedID: order.OrderID, Fills: trades}
	if order.Remaining > 0 && typ == domain.LimitOrder {
		b.insert(order)
		result.Resting = &RestQuote{Price: order.Price, Qty: order.Remaining}
	}
	return result, nil
}

// match walks the opposite side of the book while the incoming order
// remains marketable, producing trades at the resting (maker) order's
// price. A partial fill never resets a resting order's queue priority.
func (b *Book) match(incoming *domain.Order, timestamp int64) []domain.Trade {
	var trades []domain.Trade
	oppositeSide := &b.asks
	if incoming.Side == domain.Sell {
		oppositeSide = &b.bids
	}

	for incoming.Remaining > 0 && len(*oppositeSide) > 0 {
		level := (*oppositeSide)[0]

		if incoming.Side == domain.Buy && incoming.Price < level.Price {
			break
		}
		if incoming.Side == domain.Sell && incoming.Price > level.Price {
			break
		}

		for i := 0; i < len(level.Orders) && incoming.Remaining > 0; {
			resting := level.Orders[i]

			if b.Policy != MatchNormally && resting.AgentID == incoming.AgentID {
				switch b.Policy {
				case CancelOldest:
					level.Orders = append(level.Orders[:i], level.Orders[i+1:]...)
					delete(b.orderIndex, resting.OrderID)
					resting.Remaining = 0
					continue
				case CancelNewest:
					incoming.Remaining = 0
				case DecrementBoth:
					q := min(incoming.Remaining, resting.Remaining)
					incoming.Remaining -= q
					resting.Remaining -= q
					if resting.Remaining <= 0 {
						level.Orders = append(level.Orders[:i], level.Orders[i+1:]...)
						delete(b.orderIndex, resting.OrderID)
					} else {
						i++
					}
				}
				continue
			}

			fillQty := min(incoming.Remaining, resting.Remaining)
			incoming.Remaining -= fillQty
			resting.Remaining -= fillQty

			trade := domain.Trade{
				Symbol:     b.Symbol,
				Price:      resting.Price,
				Quantity:   fillQty,
				Timestamp:  timestamp,
				MakerOrder: resting.OrderID,
				TakerOrder: incoming.OrderID,
				MakerAgent: resting.AgentID,
				TakerAgent: incoming.AgentID,
			}
			if incoming.Side == domain.Buy {
				trade.BuyOrder, trade.SellOrder = incoming.OrderID, resting.OrderID
			} else {
				trade.SellOrder, trade.BuyOrder = incoming.OrderID, resting.OrderID
			}
			trades = append(trades, trade)

			if resting.Remaining <= 0 {
				delete(b.orderIndex, resting.OrderID)
				level.Orders = append(level.Orders[:i], level.Orders[i+1:]...)
			} else {
				i++
			}
		}

		if len(level.Orders) == 0 {
			*oppositeSide = (*oppositeSide)[1:]
		}
	}

	return trades
}

// insert places a resting order into the book at its price level.
func (b *Book) insert(order *domain.Order) {
	b.orderIndex[order.OrderID] = order
	if order.Side == domain.Buy {
		b.bids = insertIntoLevels(b.bids, order, true)
	} else {
		b.asks = insertIntoLevels(b.asks, order, false)
	}
}

func insertIntoLevels(levels []*PriceLevel, order *domain.Order, descending bool) []*PriceLevel {
	idx := sort.Search(len(levels), func(i int) bool {
		if descending {
			return levels[i].Price <= order.Price
		}
		return levels[i].Price >= order.Price
	})

	if idx < len(levels) && levels[idx].Price == order.Price {
		levels[idx].Orders = append(levels[idx].Orders, order)
		return levels
	}

	newLevel := &PriceLevel{Price: order.Price, Orders: []*domain.Order{order}}
	levels = append(levels, nil)
	copy(levels[idx+1:], levels[idx:])
	levels[idx] = newLevel
	return levels
}

// Cancel removes a resting order owned by agentID.
func (b *Book) Cancel(id domain.OrderID, agentID domain.AgentID) error {
	order, ok := b.orderIndex[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownOrder, id)
	}
	if order.AgentID != agentID {
		return fmt.Errorf("%w: order %d belongs to agent %d", ErrNotOwner, id, order.AgentID)
	}

	levels := &b.asks
	if order.Side == domain.Buy {
		levels = &b.bids
	}
	for i, level := range *levels {
		if level.Price != order.Price {
			continue
		}
		for j, o := range level.Orders {
			if o.OrderID == id {
				level.Orders = append(level.Orders[:j], level.Orders[j+1:]...)
				if len(level.Orders) == 0 {
					*levels = append((*levels)[:i], (*levels)[i+1:]...)
				}
				break
			}
		}
		break
	}
	order.Remaining = 0
	delete(b.orderIndex, id)
	return nil
}

// BestBid returns the best bid price and aggregate quantity, if any.
func (b *Book) BestBid() (domain.Price, domain.Qty, bool) {
	if len(b.bids) == 0 {
		return 0, 0, false
	}
	return b.bids[0].Price, b.bids[0].TotalQty(), true
}

// BestAsk returns the best ask price and aggregate quantity, if any.
func (b *Book) BestAsk() (domain.Price, domain.Qty, bool) {
	if len(b.asks) == 0 {
		return 0, 0, false
	}
	return b.asks[0].Price, b.asks[0].TotalQty(), true
}

// BookUpdate returns a top-of-book snapshot.
func (b *Book) BookUpdate() domain.BookUpdate {
	u := domain.BookUpdate{Symbol: b.Symbol}
	if bp, bq, ok := b.BestBid(); ok {
		u.BidPrice, u.BidQty = bp, bq
	}
	if ap, aq, ok := b.BestAsk(); ok {
		u.AskPrice, u.AskQty = ap, aq
	}
	return u
}

// Depth returns the top n price levels on side, best first.
func (b *Book) Depth(side domain.Side, n int) []LevelView {
	levels := b.asks
	if side == domain.Buy {
		levels = b.bids
	}
	if n > len(levels) {
		n = len(levels)
	}
	out := make([]LevelView, n)
	for i := 0; i < n; i++ {
		out[i] = LevelView{Price: levels[i].Price, Qty: levels[i].TotalQty()}
	}
	return out
}

// AssertInvariants checks all book invariants and panics on violation.
// Intended for use in tests and debug builds, not the hot path.
func (b *Book) AssertInvariants() {
	for i := 1; i < len(b.bids); i++ {
		if b.bids[i].Price >= b.bids[i-1].Price {
			panic(fmt.Sprintf("bid levels not sorted descending at index %d", i))
		}
	}
	for i := 1; i < len(b.asks); i++ {
		if b.asks[i].Price <= b.asks[i-1].Price {
			panic(fmt.Sprintf("ask levels not sorted ascending at index %d", i))
		}
	}
	if len(b.bids) > 0 && len(b.asks) > 0 && b.bids[0].Price >= b.asks[0].Price {
		panic(fmt.Sprintf("crossed book: best bid %d >= best ask %d", b.bids[0].Price, b.asks[0].Price))
	}

	count := 0
	for _, levels := range [][]*PriceLevel{b.bids, b.asks} {
		for _, level := range levels {
			if len(level.Orders) == 0 {
				panic(fmt.Sprintf("empty level at price %d", level.Price))
			}
			var sum domain.Qty
			for _, o := range level.Orders {
				if o.Remaining <= 0 {
					panic(fmt.Sprintf("non-positive remaining qty resting order %d", o.OrderID))
				}
				sum += o.Remaining
			}
			if sum != level.TotalQty() {
				panic(fmt.Sprintf("level %d total qty mismatch: %d != %d", level.Price, sum, level.TotalQty()))
			}
			count += len(level.Orders)
		}
	}
	if count != len(b.orderIndex) {
		panic(fmt.Sprintf("orderIndex size %d != book order count %d", len(b.orderIndex), count))
	}
}

func min(a, b domain.Qty) domain.Qty {
	if a < b {
		return a
	}
	return b
}
