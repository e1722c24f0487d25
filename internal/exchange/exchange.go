// Package exchange implements the exchange agent: it owns one order
// book per symbol and is the only agent allowed to touch them,
// translating SubmitOrder/CancelOrder messages into book operations and
// publishing the resulting market-data and direct-reply messages.
package exchange

import (
	"errors"
	"log/slog"

	"github.com/fairsim/marketsim/internal/agent"
	"github.com/fairsim/marketsim/internal/domain"
	"github.com/fairsim/marketsim/internal/orderbook"
)

// Exchange is an agent.Agent wrapping a book per symbol.
type Exchange struct {
	books    map[string]*orderbook.Book
	lastBBO  map[string]domain.BookUpdate
	policy   orderbook.SelfTradePolicy
	log      *slog.Logger
	nextID   domain.OrderID
	location map[domain.OrderID]string // order ID -> owning book's symbol

	// OnAccepted and OnTrade, if set, are invoked synchronously as each
	// accepted submission and each fill occurs — the run orchestrator wires these to
	// its metrics collector rather than the exchange depending on it.
	OnAccepted func(clientTag string)
	OnTrade    func(trade domain.Trade)
}

// New creates an Exchange with no books registered yet; books are
// created lazily on first SubmitOrder for a symbol.
func New(policy orderbook.SelfTradePolicy, logger *slog.Logger) *Exchange {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exchange{
		books:    make(map[string]*orderbook.Book),
		lastBBO:  make(map[string]domain.BookUpdate),
		policy:   policy,
		log:      logger,
		location: make(map[domain.OrderID]string),
	}
}

func (e *Exchange) bookFor(symbol string) *orderbook.Book {
	b, ok := e.books[symbol]
	if !ok {
		b = orderbook.New(symbol, e.policy)
		e.books[symbol] = b
	}
	return b
}

// Wakeup is unused: the exchange only acts on delivered messages.
func (e *Exchange) Wakeup(scheduler agent.Scheduler, currentTime int64) error {
	return nil
}

// Receive handles a SubmitOrder or CancelOrder message.
func (e *Exchange) Receive(scheduler agent.Scheduler, msg domain.Message, currentTime int64) error {
	switch msg.Kind {
	case domain.PayloadSubmitOrder:
		return e.handleSubmit(scheduler, msg, currentTime)
	case domain.PayloadCancelOrder:
		return e.handleCancel(scheduler, msg, currentTime)
	default:
		// Market-data and reply payloads are never sent to the exchange.
		return nil
	}
}

func (e *Exchange) handleSubmit(scheduler agent.Scheduler, msg domain.Message, t int64) error {
	p := msg.SubmitOrder
	book := e.bookFor(p.Symbol)

	e.nextID++
	orderID := e.nextID
	result, err := book.Submit(orderID, msg.Sender, p.Symbol, p.Side, p.Type, p.Price, p.Quantity, p.ClientTag, t)
	if err != nil {
		e.log.Debug("order rejected", "agent_id", msg.Sender, "symbol", p.Symbol, "err", err)
		return scheduler.ScheduleSend(domain.DirectTopic(msg.Sender), domain.Message{
			Kind: domain.PayloadOrderRejected,
			OrderRejected: &domain.OrderRejectedPayload{
				Reason:    domain.RejectMalformedOrder,
				ClientTag: p.ClientTag,
			},
		}, t)
	}
	e.location[orderID] = p.Symbol

	if e.OnAccepted != nil {
		e.OnAccepted(p.ClientTag)
	}

	if err := scheduler.ScheduleSend(domain.DirectTopic(msg.Sender), domain.Message{
		Kind: domain.PayloadOrderAccepted,
		OrderAccepted: &domain.OrderAcceptedPayload{
			AcceptedID: result.AcceptedID,
			ClientTag:  p.ClientTag,
		},
	}, t); err != nil {
		return err
	}

	for i := range result.Fills {
		trade := result.Fills[i]
		if e.OnTrade != nil {
			e.OnTrade(trade)
		}
		if err := scheduler.ScheduleSend(domain.TradesTopic(p.Symbol), domain.Message{
			Kind:  domain.PayloadTrade,
			Trade: &trade,
		}, t); err != nil {
			return err
		}
		if err := e.notifyDirect(scheduler, trade.MakerAgent, trade, t); err != nil {
			return err
		}
		if trade.TakerAgent != trade.MakerAgent {
			if err := e.notifyDirect(scheduler, trade.TakerAgent, trade, t); err != nil {
				return err
			}
		}
	}

	update := book.BookUpdate()
	if prev, ok := e.lastBBO[p.Symbol]; !ok || prev != update {
		e.lastBBO[p.Symbol] = update
		if err := scheduler.ScheduleSend(domain.BookTopic(p.Symbol), domain.Message{
			Kind:       domain.PayloadBookUpdate,
			BookUpdate: &update,
		}, t); err != nil {
			return err
		}
	}

	book.AssertInvariants()
	return nil
}

func (e *Exchange) notifyDirect(scheduler agent.Scheduler, agentID domain.AgentID, trade domain.Trade, t int64) error {
	return scheduler.ScheduleSend(domain.DirectTopic(agentID), domain.Message{
		Kind:  domain.PayloadTrade,
		Trade: &trade,
	}, t)
}

func (e *Exchange) handleCancel(scheduler agent.Scheduler, msg domain.Message, t int64) error {
	p := msg.CancelOrder

	symbol, ok := e.location[p.OrderID]
	if !ok {
		return scheduler.ScheduleSend(domain.DirectTopic(msg.Sender), domain.Message{
			Kind: domain.PayloadOrderCancelled,
			OrderCancelled: &domain.OrderCancelledPayload{
				OrderID: p.OrderID,
				Reason:  domain.RejectUnknownOrder,
			},
		}, t)
	}

	err := e.books[symbol].Cancel(p.OrderID, msg.Sender)
	switch {
	case err == nil:
		delete(e.location, p.OrderID)
		return scheduler.ScheduleSend(domain.DirectTopic(msg.Sender), domain.Message{
			Kind:           domain.PayloadOrderCancelled,
			OrderCancelled: &domain.OrderCancelledPayload{OrderID: p.OrderID},
		}, t)
	case errors.Is(err, orderbook.ErrNotOwner):
		return scheduler.ScheduleSend(domain.DirectTopic(msg.Sender), domain.Message{
			Kind: domain.PayloadOrderCancelled,
			OrderCancelled: &domain.OrderCancelledPayload{
				OrderID: p.OrderID,
				Reason:  domain.RejectNotOwner,
			},
		}, t)
	default:
		// Fully filled since acceptance: stale routing entry, clean it up.
		delete(e.location, p.OrderID)
		return scheduler.ScheduleSend(domain.DirectTopic(msg.Sender), domain.Message{
			Kind: domain.PayloadOrderCancelled,
			OrderCancelled: &domain.OrderCancelledPayload{
				OrderID: p.OrderID,
				Reason:  domain.RejectUnknownOrder,
			},
		}, t)
	}
}
