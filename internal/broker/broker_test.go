package broker

import (
	"testing"

	"github.com/fairsim/marketsim/internal/domain"
)

func TestSubscribersInRegistrationOrder(t *testing.T) {
	b := New()
	topic := domain.Topic("md.sim.trades")

	b.Subscribe(3, topic)
	b.Subscribe(1, topic)
	b.Subscribe(2, topic)

	got := b.Subscribers(topic)
	want := []domain.AgentID{3, 1, 2}
	if len(got) != len(want) {
		t.Fatalf("got %d subscribers, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("subscriber %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestSubscribeIsIdempotent(t *testing.T) {
	b := New()
	topic := domain.Topic("md.sim.trades")

	b.Subscribe(1, topic)
	b.Subscribe(1, topic)
	b.Subscribe(1, topic)

	if got := b.Subscribers(topic); len(got) != 1 {
		t.Errorf("expected 1 subscriber after repeated subscribe, got %d", len(got))
	}
}

func TestUnsubscribeRemovesOnlyThatPair(t *testing.T) {
	b := New()
	topic := domain.Topic("md.sim.trades")
	other := domain.Topic("md.sim.book")

	b.Subscribe(1, topic)
	b.Subscribe(2, topic)
	b.Subscribe(1, other)

	b.Unsubscribe(1, topic)

	got := b.Subscribers(topic)
	if len(got) != 1 || got[0] != 2 {
		t.Errorf("expected only agent 2 left on topic, got %v", got)
	}
	if got := b.Subscribers(other); len(got) != 1 || got[0] != 1 {
		t.Errorf("expected agent 1 unaffected on other topic, got %v", got)
	}
}

func TestUnsubscribeReindexesRemainingPositions(t *testing.T) {
	b := New()
	topic := domain.Topic("md.sim.trades")

	b.Subscribe(1, topic)
	b.Subscribe(2, topic)
	b.Subscribe(3, topic)
	b.Unsubscribe(1, topic)
	b.Subscribe(4, topic)
	b.Unsubscribe(4, topic)

	got := b.Subscribers(topic)
	want := []domain.AgentID{2, 3}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestUnsubscribeAbsentPairIsNoop(t *testing.T) {
	b := New()
	topic := domain.Topic("md.sim.trades")
	b.Subscribe(1, topic)

	b.Unsubscribe(2, topic)

	if got := b.Subscribers(topic); len(got) != 1 || got[0] != 1 {
		t.Errorf("expected unaffected subscriber list, got %v", got)
	}
}

func TestSubscribersOfUnknownTopicIsEmpty(t *testing.T) {
	b := New()
	if got := b.Subscribers(domain.Topic("md.nobody.trades")); got != nil {
		t.Errorf("expected nil for unknown topic, got %v", got)
	}
}

func TestSubscribersReturnsACopy(t *testing.T) {
	b := New()
	topic := domain.Topic("md.sim.trades")
	b.Subscribe(1, topic)

	got := b.Subscribers(topic)
	got[0] = 999

	if fresh := b.Subscribers(topic); fresh[0] != 1 {
		t.Error("mutating the returned slice affected broker state")
	}
}
