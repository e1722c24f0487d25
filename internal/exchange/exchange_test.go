package exchange

import (
	"testing"

	"github.com/fairsim/marketsim/internal/domain"
	"github.com/fairsim/marketsim/internal/orderbook"
)

type fakeScheduler struct {
	self  domain.AgentID
	sends []sentMsg
}

type sentMsg struct {
	topic domain.Topic
	msg   domain.Message
}

func (f *fakeScheduler) Self() domain.AgentID          { return f.self }
func (f *fakeScheduler) ScheduleWakeup(at int64) error { return nil }
func (f *fakeScheduler) ScheduleSend(topic domain.Topic, msg domain.Message, at int64) error {
	f.sends = append(f.sends, sentMsg{topic, msg})
	return nil
}

func submitMsg(sender domain.AgentID, symbol string, side domain.Side, typ domain.OrderType, price domain.Price, qty domain.Qty) domain.Message {
	return domain.Message{
		Sender: sender,
		Kind:   domain.PayloadSubmitOrder,
		SubmitOrder: &domain.SubmitOrderPayload{
			Symbol: symbol, Side: side, Type: typ, Price: price, Quantity: qty, ClientTag: "t",
		},
	}
}

func TestAcceptedOrderRepliesOnSenderDirectTopic(t *testing.T) {
	e := New(orderbook.MatchNormally, nil)
	sched := &fakeScheduler{self: 1}

	msg := submitMsg(1, "SIM", domain.Buy, domain.LimitOrder, 100*domain.PriceScale, 5)
	if err := e.Receive(sched, msg, 0); err != nil {
		t.Fatalf("receive: %v", err)
	}

	// The accepted reply comes first, followed by the book update for the
	// new best bid.
	if len(sched.sends) != 2 {
		t.Fatalf("expected reply plus book update (2 sends), got %d", len(sched.sends))
	}
	if sched.sends[0].topic != domain.DirectTopic(1) {
		t.Errorf("expected reply on direct topic of sender, got %s", sched.sends[0].topic)
	}
	if sched.sends[0].msg.Kind != domain.PayloadOrderAccepted {
		t.Errorf("expected OrderAccepted, got %v", sched.sends[0].msg.Kind)
	}
}

func TestMalformedOrderIsRejected(t *testing.T) {
	e := New(orderbook.MatchNormally, nil)
	sched := &fakeScheduler{self: 1}

	msg := submitMsg(1, "SIM", domain.Buy, domain.LimitOrder, 0, 5)
	if err := e.Receive(sched, msg, 0); err != nil {
		t.Fatalf("receive: %v", err)
	}

	if len(sched.sends) != 1 || sched.sends[0].msg.Kind != domain.PayloadOrderRejected {
		t.Fatalf("expected a single OrderRejected reply, got %+v", sched.sends)
	}
}

func TestCrossingOrdersPublishTradeAndDirectNotifications(t *testing.T) {
	e := New(orderbook.MatchNormally, nil)
	var tradesSeen []domain.Trade
	e.OnTrade = func(tr domain.Trade) { tradesSeen = append(tradesSeen, tr) }
	var accepted []string
	e.OnAccepted = func(tag string) { accepted = append(accepted, tag) }

	makerSched := &fakeScheduler{self: 1}
	if err := e.Receive(makerSched, submitMsg(1, "SIM", domain.Sell, domain.LimitOrder, 100*domain.PriceScale, 10), 0); err != nil {
		t.Fatalf("maker receive: %v", err)
	}

	takerSched := &fakeScheduler{self: 2}
	if err := e.Receive(takerSched, submitMsg(2, "SIM", domain.Buy, domain.MarketOrder, 0, 4), 1); err != nil {
		t.Fatalf("taker receive: %v", err)
	}

	if len(tradesSeen) != 1 || tradesSeen[0].Quantity != 4 || tradesSeen[0].Price != 100*domain.PriceScale {
		t.Fatalf("unexpected trade hook invocation: %+v", tradesSeen)
	}
	if len(accepted) != 2 {
		t.Fatalf("expected 2 OnAccepted calls, got %d", len(accepted))
	}

	var tradeTopicSeen, makerDirectSeen, takerDirectSeen bool
	for _, s := range takerSched.sends {
		if s.topic == domain.TradesTopic("SIM") {
			tradeTopicSeen = true
		}
		if s.topic == domain.DirectTopic(2) && s.msg.Kind == domain.PayloadTrade {
			takerDirectSeen = true
		}
	}
	// The maker's notice is scheduled while handling the taker's order.
	for _, s := range takerSched.sends {
		if s.topic == domain.DirectTopic(1) && s.msg.Kind == domain.PayloadTrade {
			makerDirectSeen = true
		}
	}
	if !tradeTopicSeen {
		t.Error("expected a publish to the symbol's trades topic")
	}
	if !makerDirectSeen {
		t.Error("expected a direct trade notification to the maker")
	}
	if !takerDirectSeen {
		t.Error("expected a direct trade notification to the taker")
	}
}

func TestCancelUnknownOrderReturnsRejection(t *testing.T) {
	e := New(orderbook.MatchNormally, nil)
	sched := &fakeScheduler{self: 1}

	msg := domain.Message{
		Sender:      1,
		Kind:        domain.PayloadCancelOrder,
		CancelOrder: &domain.CancelOrderPayload{OrderID: 999},
	}
	if err := e.Receive(sched, msg, 0); err != nil {
		t.Fatalf("receive: %v", err)
	}

	if len(sched.sends) != 1 || sched.sends[0].msg.Kind != domain.PayloadOrderCancelled {
		t.Fatalf("expected OrderCancelled reply, got %+v", sched.sends)
	}
	if sched.sends[0].msg.OrderCancelled.Reason != domain.RejectUnknownOrder {
		t.Errorf("expected RejectUnknownOrder, got %v", sched.sends[0].msg.OrderCancelled.Reason)
	}
}

func TestOrderIDsUniqueAcrossSymbols(t *testing.T) {
	e := New(orderbook.MatchNormally, nil)

	simSched := &fakeScheduler{self: 1}
	if err := e.Receive(simSched, submitMsg(1, "SIM", domain.Sell, domain.LimitOrder, 100*domain.PriceScale, 10), 0); err != nil {
		t.Fatalf("submit SIM: %v", err)
	}
	aaplSched := &fakeScheduler{self: 2}
	if err := e.Receive(aaplSched, submitMsg(2, "AAPL", domain.Sell, domain.LimitOrder, 100*domain.PriceScale, 10), 0); err != nil {
		t.Fatalf("submit AAPL: %v", err)
	}

	var simID, aaplID domain.OrderID
	for _, s := range simSched.sends {
		if s.msg.Kind == domain.PayloadOrderAccepted {
			simID = s.msg.OrderAccepted.AcceptedID
		}
	}
	for _, s := range aaplSched.sends {
		if s.msg.Kind == domain.PayloadOrderAccepted {
			aaplID = s.msg.OrderAccepted.AcceptedID
		}
	}
	if simID == aaplID {
		t.Fatalf("expected distinct order IDs across symbols, both got %d", simID)
	}

	// Cancelling the AAPL order must not be confused with the SIM order
	// that shares no ID, and must not be rejected due to an unrelated
	// book happening to be visited first.
	cancelSched := &fakeScheduler{self: 2}
	cancelMsg := domain.Message{
		Sender:      2,
		Kind:        domain.PayloadCancelOrder,
		CancelOrder: &domain.CancelOrderPayload{OrderID: aaplID},
	}
	if err := e.Receive(cancelSched, cancelMsg, 1); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if len(cancelSched.sends) != 1 || cancelSched.sends[0].msg.Kind != domain.PayloadOrderCancelled {
		t.Fatalf("expected OrderCancelled reply, got %+v", cancelSched.sends)
	}
	if cancelSched.sends[0].msg.OrderCancelled.Reason != "" {
		t.Errorf("expected no rejection reason cancelling owned AAPL order, got %v", cancelSched.sends[0].msg.OrderCancelled.Reason)
	}
}

func TestCancelOwnedOrderSucceeds(t *testing.T) {
	e := New(orderbook.MatchNormally, nil)
	makerSched := &fakeScheduler{self: 1}
	if err := e.Receive(makerSched, submitMsg(1, "SIM", domain.Sell, domain.LimitOrder, 100*domain.PriceScale, 10), 0); err != nil {
		t.Fatalf("submit: %v", err)
	}

	var acceptedID domain.OrderID
	for _, s := range makerSched.sends {
		if s.msg.Kind == domain.PayloadOrderAccepted {
			acceptedID = s.msg.OrderAccepted.AcceptedID
		}
	}

	cancelSched := &fakeScheduler{self: 1}
	cancelMsg := domain.Message{
		Sender:      1,
		Kind:        domain.PayloadCancelOrder,
		CancelOrder: &domain.CancelOrderPayload{OrderID: acceptedID},
	}
	if err := e.Receive(cancelSched, cancelMsg, 1); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if len(cancelSched.sends) != 1 || cancelSched.sends[0].msg.Kind != domain.PayloadOrderCancelled {
		t.Fatalf("expected OrderCancelled reply, got %+v", cancelSched.sends)
	}
	if cancelSched.sends[0].msg.OrderCancelled.Reason != "" {
		t.Errorf("expected no rejection reason on success, got %v", cancelSched.sends[0].msg.OrderCancelled.Reason)
	}
}
