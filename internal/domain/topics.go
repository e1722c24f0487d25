package domain

import "fmt"

// DirectTopic is the private topic an agent subscribes to at
// registration to receive replies addressed to it alone (OrderAccepted,
// OrderRejected, OrderCancelled).
func DirectTopic(id AgentID) Topic {
	return Topic(fmt.Sprintf("agent.%d.direct", id))
}

// TradesTopic is the public market-data topic for a symbol's trades.
func TradesTopic(symbol string) Topic {
	return Topic(fmt.Sprintf("md.%s.trades", symbol))
}

// BookTopic is the public market-data topic for a symbol's top-of-book.
func BookTopic(symbol string) Topic {
	return Topic(fmt.Sprintf("md.%s.book", symbol))
}

// ExchangeOrdersTopic is the topic every trading agent publishes
// SubmitOrder/CancelOrder requests to; the exchange is its only
// subscriber. A single exchange agent serves every symbol, so this
// topic is not symbol-scoped.
func ExchangeOrdersTopic() Topic {
	return Topic("exchange.orders")
}
