// Package kernel owns virtual time and the event priority queue: the
// sole source of dispatch ordering for the simulation.
package kernel

import (
	"container/heap"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fairsim/marketsim/internal/agent"
	"github.com/fairsim/marketsim/internal/broker"
	"github.com/fairsim/marketsim/internal/domain"
)

// ErrInvalidTime is returned when scheduling an event into the past.
var ErrInvalidTime = errors.New("kernel: scheduled time precedes current time")

// ErrUnknownAgent is returned when an AgentID was never registered.
var ErrUnknownAgent = errors.New("kernel: unknown agent")

// EventKind tags which field of Event is populated.
type EventKind int8

const (
	EventWakeup EventKind = iota
	EventDeliver
	EventPublish
)

func (k EventKind) String() string {
	switch k {
	case EventWakeup:
		return "WAKEUP"
	case EventDeliver:
		return "DELIVER"
	case EventPublish:
		return "PUBLISH"
	default:
		return "UNKNOWN"
	}
}

// Event is a single unit of scheduled work in the priority queue:
// exactly one of Wakeup, Deliver, or Publish is meaningful, selected by
// Kind. Seq is assigned at schedule time, never at creation time, so
// events synthesized mid-dispatch (publish fan-out) sort strictly after
// the event that produced them.
type Event struct {
	Time int64
	Seq  uint64
	Kind EventKind

	Wakeup  domain.AgentID
	Deliver domain.AgentID

	PublishTopic domain.Topic
	Message      domain.Message

	heapIndex int
}

// eventHeap is a min-heap ordered by the strict (Time, Seq) key.
type eventHeap []*Event

func (h eventHeap) Len() int      { return len(h) }
func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i]; h[i].heapIndex = i; h[j].heapIndex = j }
func (h eventHeap) Less(i, j int) bool {
	if h[i].Time != h[j].Time {
		return h[i].Time < h[j].Time
	}
	return h[i].Seq < h[j].Seq
}

func (h *eventHeap) Push(x interface{}) {
	e := x.(*Event)
	e.heapIndex = len(*h)
	*h = append(*h, e)
}

func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// agentRecord is the kernel's one-way-ownership registration record: the
// kernel holds the agent and dispatches to it; the agent only ever sees
// the narrow Scheduler capability returned by scheduler().
type agentRecord struct {
	id    domain.AgentID
	agent agent.Agent
}

// RunSummary reports the outcome of a Run call.
type RunSummary struct {
	EventsProcessed   uint64
	MessagesDelivered uint64
	FinalTime         int64
	Remaining         int
}

// AgentFailure wraps an error returned from an agent callback, along
// with the event that triggered it. The kernel halts Run on this error.
type AgentFailure struct {
	Agent domain.AgentID
	Event Event
	Err   error
}

func (f *AgentFailure) Error() string {
	return fmt.Sprintf("kernel: agent %d failed on %s event at t=%d: %v",
		f.Agent, f.Event.Kind, f.Event.Time, f.Err)
}

func (f *AgentFailure) Unwrap() error { return f.Err }

// Kernel is the deterministic discrete-event simulation loop.
type Kernel struct {
	queue   eventHeap
	seq     uint64
	current int64

	broker  *broker.Broker
	agents  map[domain.AgentID]*agentRecord
	nextID  domain.AgentID
	started bool

	log *slog.Logger

	// DispatchHook, if set, is invoked with each event immediately after
	// it dispatches successfully. Used by the run orchestrator to drive
	// the deterministic event log; nil by default.
	DispatchHook func(Event)
}

// New creates a Kernel wired to the given broker. If logger is nil,
// operational logs are discarded.
func New(b *broker.Broker, logger *slog.Logger) *Kernel {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(discard{}, nil))
	}
	k := &Kernel{
		broker: b,
		agents: make(map[domain.AgentID]*agentRecord),
		log:    logger,
	}
	heap.Init(&k.queue)
	return k
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

// RegisterAgent attaches an agent and returns its assigned AgentID.
// Must only be called before Run.
func (k *Kernel) RegisterAgent(a agent.Agent) domain.AgentID {
	if k.started {
		panic("kernel: RegisterAgent called after Run started")
	}
	k.nextID++
	id := k.nextID
	k.agents[id] = &agentRecord{id: id, agent: a}
	k.log.Debug("agent registered", "agent_id", id)
	return id
}

// ScheduleWakeup adds a Wakeup event for agent at the given time.
func (k *Kernel) ScheduleWakeup(agentID domain.AgentID, at int64) error {
	if _, ok := k.agents[agentID]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownAgent, agentID)
	}
	if at < k.current {
		return fmt.Errorf("%w: at=%d current=%d", ErrInvalidTime, at, k.current)
	}
	k.push(&Event{Time: at, Kind: EventWakeup, Wakeup: agentID})
	return nil
}

// ScheduleSend adds a Publish event for the given topic at the given time.
func (k *Kernel) ScheduleSend(sender domain.AgentID, topic domain.Topic, msg domain.Message, at int64) error {
	if _, ok := k.agents[sender]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownAgent, sender)
	}
	if at < k.current {
		return fmt.Errorf("%w: at=%d current=%d", ErrInvalidTime, at, k.current)
	}
	msg.Sender = sender
	msg.SendTime = at
	k.push(&Event{Time: at, Kind: EventPublish, PublishTopic: topic, Message: msg})
	return nil
}

// scheduleDeliver is used internally for publish fan-out; it bypasses
// the at >= current check since it always fires at the current event's
// time, with a fresh seq.
func (k *Kernel) scheduleDeliver(recipient domain.AgentID, msg domain.Message, at int64) {
	k.push(&Event{Time: at, Kind: EventDeliver, Deliver: recipient, Message: msg})
}

func (k *Kernel) push(e *Event) {
	k.seq++
	e.Seq = k.seq
	heap.Push(&k.queue, e)
}

// CurrentTime returns T_current, the time of the most recently dispatched event.
func (k *Kernel) CurrentTime() int64 { return k.current }

// Pending returns the number of events still queued.
func (k *Kernel) Pending() int { return k.queue.Len() }

// Run drains the queue, or stops once the next event's time exceeds
// until (if until is non-nil). On an AgentFailure, Run halts
// immediately and returns the error; the offending event is not
// removed from the dispatch count.
func (k *Kernel) Run(until *int64) (RunSummary, error) {
	k.started = true
	var summary RunSummary

	for k.queue.Len() > 0 {
		next := k.queue[0]
		if until != nil && next.Time > *until {
			break
		}

		e := heap.Pop(&k.queue).(*Event)
		k.current = e.Time
		summary.EventsProcessed++

		if err := k.dispatch(e); err != nil {
			summary.FinalTime = k.current
			summary.Remaining = k.queue.Len()
			return summary, err
		}
		if e.Kind == EventDeliver {
			summary.MessagesDelivered++
		}
		if k.DispatchHook != nil {
			k.DispatchHook(*e)
		}
	}

	summary.FinalTime = k.current
	summary.Remaining = k.queue.Len()
	return summary, nil
}

func (k *Kernel) dispatch(e *Event) error {
	switch e.Kind {
	case EventWakeup:
		rec, ok := k.agents[e.Wakeup]
		if !ok {
			return fmt.Errorf("%w: %d", ErrUnknownAgent, e.Wakeup)
		}
		if err := rec.agent.Wakeup(k.schedulerFor(rec.id), k.current); err != nil {
			return &AgentFailure{Agent: rec.id, Event: *e, Err: err}
		}
		return nil

	case EventDeliver:
		rec, ok := k.agents[e.Deliver]
		if !ok {
			return fmt.Errorf("%w: %d", ErrUnknownAgent, e.Deliver)
		}
		if err := rec.agent.Receive(k.schedulerFor(rec.id), e.Message, k.current); err != nil {
			return &AgentFailure{Agent: rec.id, Event: *e, Err: err}
		}
		return nil

	case EventPublish:
		subs := k.broker.Subscribers(e.PublishTopic)
		for _, s := range subs {
			k.scheduleDeliver(s, e.Message, e.Time)
		}
		return nil

	default:
		return fmt.Errorf("kernel: unknown event kind %d", e.Kind)
	}
}

// schedulerFor returns the narrow scheduling capability bound to id.
func (k *Kernel) schedulerFor(id domain.AgentID) agent.Scheduler {
	return &boundScheduler{k: k, id: id}
}

// boundScheduler is the Scheduler handed to an agent at dispatch time.
// It closes over the owning kernel but exposes nothing beyond the
// Scheduler interface — the agent never sees the Kernel type itself.
type boundScheduler struct {
	k  *Kernel
	id domain.AgentID
}

func (b *boundScheduler) Self() domain.AgentID { return b.id }

func (b *boundScheduler) ScheduleWakeup(at int64) error {
	return b.k.ScheduleWakeup(b.id, at)
}

func (b *boundScheduler) ScheduleSend(topic domain.Topic, msg domain.Message, at int64) error {
	return b.k.ScheduleSend(b.id, topic, msg, at)
}
