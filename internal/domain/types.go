// Package domain defines the core types shared by the kernel, broker,
// order book, and agents: identities, events, messages, and orders.
package domain

import (
	"fmt"
	"strings"
)

// AgentID is a unique opaque token assigned to an agent at registration.
type AgentID uint64

// Topic is an opaque publish/subscribe label, e.g. a symbol plus channel.
type Topic string

// OrderID is unique within the exchange for the run, assigned on acceptance.
type OrderID uint64

// Side is the direction of an order.
type Side int8

const (
	Buy  Side = 1
	Sell Side = -1
)

func (s Side) String() string {
	if s == Buy {
		return "BUY"
	}
	return "SELL"
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	return -s
}

// MarshalJSON serializes Side as a human-readable string.
func (s Side) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON deserializes Side from a string or integer.
func (s *Side) UnmarshalJSON(data []byte) error {
	str := strings.Trim(string(data), `"`)
	switch str {
	case "BUY", "1":
		*s = Buy
	case "SELL", "-1":
		*s = Sell
	default:
		return fmt.Errorf("unknown Side: %s", str)
	}
	return nil
}

// OrderType distinguishes limit orders from market orders. Market orders
// are modeled internally as limit orders at the side's extreme admissible
// price, keeping the matching loop single-branch (spec Open Question).
type OrderType int8

const (
	LimitOrder OrderType = iota
	MarketOrder
)

func (t OrderType) String() string {
	if t == MarketOrder {
		return "MARKET"
	}
	return "LIMIT"
}

// MarshalJSON serializes OrderType as a human-readable string.
func (t OrderType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// UnmarshalJSON deserializes OrderType from a string or integer.
func (t *OrderType) UnmarshalJSON(data []byte) error {
	str := strings.Trim(string(data), `"`)
	switch str {
	case "LIMIT", "0":
		*t = LimitOrder
	case "MARKET", "1":
		*t = MarketOrder
	default:
		return fmt.Errorf("unknown OrderType: %s", str)
	}
	return nil
}

// Order is a live or resting order on a single book.
//
// ArrivalSeq is a per-book counter ensuring a total order among
// same-priced, same-timestamped orders: it is assigned once, at
// acceptance, and never changes — a partial fill never resets queue
// priority, and a cancel-and-replace is two operations, so the
// replacement gets a fresh ArrivalSeq at the back of the queue.
type Order struct {
	OrderID     OrderID   `json:"order_id"`
	AgentID     AgentID   `json:"agent_id"`
	Symbol      string    `json:"symbol"`
	Side        Side      `json:"side"`
	Type        OrderType `json:"type"`
	Price       Price     `json:"price"`
	Quantity    Qty       `json:"quantity"`
	Remaining   Qty       `json:"remaining"`
	ArrivalTime int64     `json:"arrival_time"`
	ArrivalSeq  uint64    `json:"arrival_seq"`
	ClientTag   string    `json:"client_tag,omitempty"`
}

// IsFilled reports whether the order has no remaining quantity.
func (o *Order) IsFilled() bool {
	return o.Remaining <= 0
}

// Trade is a matched execution. Price always equals the resting
// (maker) order's price, never the incoming (taker) order's limit.
type Trade struct {
	Symbol     string  `json:"symbol"`
	Price      Price   `json:"price"`
	Quantity   Qty     `json:"quantity"`
	Timestamp  int64   `json:"timestamp"`
	MakerOrder OrderID `json:"maker_order_id"`
	TakerOrder OrderID `json:"taker_order_id"`
	MakerAgent AgentID `json:"maker_agent_id"`
	TakerAgent AgentID `json:"taker_agent_id"`
	BuyOrder   OrderID `json:"buy_order_id"`
	SellOrder  OrderID `json:"sell_order_id"`
}

// BookUpdate is a top-of-book snapshot, published when it changes.
type BookUpdate struct {
	Symbol   string `json:"symbol"`
	BidPrice Price  `json:"bid_price"`
	BidQty   Qty    `json:"bid_qty"`
	AskPrice Price  `json:"ask_price"`
	AskQty   Qty    `json:"ask_qty"`
}

// HasBid reports whether there is a resting bid in this snapshot.
func (b *BookUpdate) HasBid() bool { return b.BidPrice > 0 }

// HasAsk reports whether there is a resting ask in this snapshot.
func (b *BookUpdate) HasAsk() bool { return b.AskPrice > 0 }

// MidPrice returns the midpoint, or 0 if either side is empty.
func (b *BookUpdate) MidPrice() Price {
	if !b.HasBid() || !b.HasAsk() {
		return 0
	}
	return (b.BidPrice + b.AskPrice) / 2
}

// RejectReason enumerates why an order or cancel was refused.
type RejectReason string

const (
	RejectMalformedOrder RejectReason = "MALFORMED_ORDER"
	RejectUnknownOrder   RejectReason = "UNKNOWN_ORDER"
	RejectNotOwner       RejectReason = "NOT_OWNER"
)

// PayloadKind tags which field of Message is populated.
type PayloadKind int8

const (
	PayloadSubmitOrder PayloadKind = iota
	PayloadCancelOrder
	PayloadOrderAccepted
	PayloadOrderRejected
	PayloadOrderCancelled
	PayloadTrade
	PayloadBookUpdate
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadSubmitOrder:
		return "SUBMIT_ORDER"
	case PayloadCancelOrder:
		return "CANCEL_ORDER"
	case PayloadOrderAccepted:
		return "ORDER_ACCEPTED"
	case PayloadOrderRejected:
		return "ORDER_REJECTED"
	case PayloadOrderCancelled:
		return "ORDER_CANCELLED"
	case PayloadTrade:
		return "TRADE"
	case PayloadBookUpdate:
		return "BOOK_UPDATE"
	default:
		return "UNKNOWN"
	}
}

// MarshalJSON serializes PayloadKind as a human-readable string.
func (k PayloadKind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

// SubmitOrderPayload requests that the exchange accept a new order.
type SubmitOrderPayload struct {
	Symbol    string    `json:"symbol"`
	Side      Side      `json:"side"`
	Type      OrderType `json:"type"`
	Price     Price     `json:"price"`
	Quantity  Qty       `json:"quantity"`
	ClientTag string    `json:"client_tag,omitempty"`
}

// CancelOrderPayload requests that the exchange cancel a resting order.
type CancelOrderPayload struct {
	OrderID OrderID `json:"order_id"`
}

// OrderAcceptedPayload confirms acceptance of a submission.
type OrderAcceptedPayload struct {
	AcceptedID OrderID `json:"accepted_id"`
	ClientTag  string  `json:"client_tag,omitempty"`
}

// OrderRejectedPayload reports why a submission was refused.
type OrderRejectedPayload struct {
	Reason    RejectReason `json:"reason"`
	ClientTag string       `json:"client_tag,omitempty"`
}

// OrderCancelledPayload confirms cancellation, or reports its error.
type OrderCancelledPayload struct {
	OrderID OrderID      `json:"order_id"`
	Reason  RejectReason `json:"reason,omitempty"`
}

// Message is the opaque envelope the kernel and broker route; only the
// exchange and agents interpret its payload. Exactly one of the payload
// fields is set, selected by Kind — mirroring the event log's own
// tagged-union shape.
type Message struct {
	Sender   AgentID     `json:"sender"`
	SendTime int64       `json:"send_time"`
	Kind     PayloadKind `json:"kind"`

	SubmitOrder    *SubmitOrderPayload    `json:"submit_order,omitempty"`
	CancelOrder    *CancelOrderPayload    `json:"cancel_order,omitempty"`
	OrderAccepted  *OrderAcceptedPayload  `json:"order_accepted,omitempty"`
	OrderRejected  *OrderRejectedPayload  `json:"order_rejected,omitempty"`
	OrderCancelled *OrderCancelledPayload `json:"order_cancelled,omitempty"`
	Trade          *Trade                 `json:"trade,omitempty"`
	BookUpdate     *BookUpdate            `json:"book_update,omitempty"`
}
