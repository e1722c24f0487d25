// Package trader implements example trading strategies: thin,
// demonstrative agent.Agent implementations that exercise the kernel,
// broker, and order book the way an external strategy author would.
// They are not part of the simulator's core.
package trader

import (
	"fmt"
	"math/rand"

	"github.com/fairsim/marketsim/internal/agent"
	"github.com/fairsim/marketsim/internal/domain"
	"github.com/fairsim/marketsim/internal/latency"
)

// Strategy decides what, if anything, to submit on each re-quote tick.
type Strategy interface {
	Name() string
	OnTick(t *Trader, currentTime int64) []domain.SubmitOrderPayload
}

// Trader is a generic latency-wrapped strategy harness: a state machine
// whose fields carry everything needed to resume on the next wakeup or
// message delivery. It reconstructs intent from its own fields rather
// than blocking — there are no suspension points in an Agent callback.
type Trader struct {
	Tag             string
	Symbol          string
	Strategy        Strategy
	Latency         *latency.Model
	ReQuoteInterval int64

	ActiveOrders   map[domain.OrderID]struct{}
	BidPrice       domain.Price
	AskPrice       domain.Price
	LastTradePrice domain.Price
	PriceHistory   []domain.Price

	rng *rand.Rand
}

// New creates a trader agent with the given tag, symbol, strategy, and
// latency model, re-quoting every reQuoteInterval milliseconds.
func New(tag, symbol string, strategy Strategy, lat *latency.Model, reQuoteInterval int64, seed int64) *Trader {
	return &Trader{
		Tag:             tag,
		Symbol:          symbol,
		Strategy:        strategy,
		Latency:         lat,
		ReQuoteInterval: reQuoteInterval,
		ActiveOrders:    make(map[domain.OrderID]struct{}),
		rng:             rand.New(rand.NewSource(seed)),
	}
}

// Wakeup runs the strategy's tick, schedules its intended submissions
// at their latency-delayed arrival time, then reschedules its own next
// wakeup — a self-sustaining chain, since the kernel never re-fires an
// agent on its own.
func (t *Trader) Wakeup(scheduler agent.Scheduler, currentTime int64) error {
	orders := t.Strategy.OnTick(t, currentTime)
	for _, o := range orders {
		arrival := t.Latency.Apply(currentTime)
		if err := scheduler.ScheduleSend(domain.ExchangeOrdersTopic(), domain.Message{
			Kind:        domain.PayloadSubmitOrder,
			SubmitOrder: &o,
		}, arrival); err != nil {
			return err
		}
	}
	if t.ReQuoteInterval > 0 {
		if err := scheduler.ScheduleWakeup(currentTime + t.ReQuoteInterval); err != nil {
			return err
		}
	}
	return nil
}

// Receive updates the trader's view of the market from a delivered
// message: book snapshots, trade prints, and replies to its own
// submissions.
func (t *Trader) Receive(scheduler agent.Scheduler, msg domain.Message, currentTime int64) error {
	switch msg.Kind {
	case domain.PayloadBookUpdate:
		u := msg.BookUpdate
		if u.HasBid() {
			t.BidPrice = u.BidPrice
		}
		if u.HasAsk() {
			t.AskPrice = u.AskPrice
		}
	case domain.PayloadTrade:
		tr := msg.Trade
		t.LastTradePrice = tr.Price
		t.PriceHistory = append(t.PriceHistory, tr.Price)
		if len(t.PriceHistory) > 64 {
			t.PriceHistory = t.PriceHistory[len(t.PriceHistory)-64:]
		}
	case domain.PayloadOrderAccepted:
		t.ActiveOrders[msg.OrderAccepted.AcceptedID] = struct{}{}
	case domain.PayloadOrderCancelled:
		delete(t.ActiveOrders, msg.OrderCancelled.OrderID)
	case domain.PayloadOrderRejected:
		// nothing to reconcile: the order was never accepted
	}
	return nil
}

func (t *Trader) String() string {
	return fmt.Sprintf("trader[%s:%s]", t.Tag, t.Strategy.Name())
}
