// Package broker maps topics to ordered subscriber lists. It is a pure
// routing table: message storage and fan-out timing live entirely in
// the kernel, which is the broker's only caller on the publish path.
package broker

import "github.com/fairsim/marketsim/internal/domain"

// Broker answers "who subscribes to topic T?" in subscription
// registration order. That order is part of the contract: it
// determines the seq the kernel assigns to synthesized Deliver events,
// and therefore delivery order within a single timestamp.
type Broker struct {
	subs map[domain.Topic][]domain.AgentID
	idx  map[topicAgent]int
}

type topicAgent struct {
	topic domain.Topic
	agent domain.AgentID
}

// New creates an empty broker.
func New() *Broker {
	return &Broker{
		subs: make(map[domain.Topic][]domain.AgentID),
		idx:  make(map[topicAgent]int),
	}
}

// Subscribe adds agent to topic's subscriber list, at the back. A
// second call for the same (agent, topic) pair is a no-op.
func (b *Broker) Subscribe(agentID domain.AgentID, topic domain.Topic) {
	key := topicAgent{topic, agentID}
	if _, ok := b.idx[key]; ok {
		return
	}
	b.idx[key] = len(b.subs[topic])
	b.subs[topic] = append(b.subs[topic], agentID)
}

// Unsubscribe removes exactly the (agent, topic) pairing. No-op if absent.
func (b *Broker) Unsubscribe(agentID domain.AgentID, topic domain.Topic) {
	key := topicAgent{topic, agentID}
	pos, ok := b.idx[key]
	if !ok {
		return
	}
	list := b.subs[topic]
	list = append(list[:pos], list[pos+1:]...)
	b.subs[topic] = list
	delete(b.idx, key)
	// Reindex positions after the removed entry.
	for i := pos; i < len(list); i++ {
		b.idx[topicAgent{topic, list[i]}] = i
	}
	if len(list) == 0 {
		delete(b.subs, topic)
	}
}

// Subscribers returns the subscribers of topic in registration order.
// The returned slice is a copy; callers may not mutate broker state
// through it.
func (b *Broker) Subscribers(topic domain.Topic) []domain.AgentID {
	list := b.subs[topic]
	if len(list) == 0 {
		return nil
	}
	out := make([]domain.AgentID, len(list))
	copy(out, list)
	return out
}
