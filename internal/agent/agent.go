// Package agent defines the contract external collaborators — the
// exchange and trading strategies alike — implement to participate in
// the kernel's dispatch loop.
package agent

import "github.com/fairsim/marketsim/internal/domain"

// Agent is invoked by the kernel for scheduled wakeups and delivered
// messages. A callback runs to completion before the next event is
// dispatched; there are no suspension points inside wakeup or receive.
// An agent reconstructs whatever state it needs from its own fields —
// the kernel is its trampoline, not a coroutine scheduler.
type Agent interface {
	// Wakeup is invoked for a scheduled self-wakeup at current_time.
	Wakeup(scheduler Scheduler, currentTime int64) error
	// Receive is invoked once per delivered message at current_time.
	Receive(scheduler Scheduler, msg domain.Message, currentTime int64) error
}

// Scheduler is the narrow capability an agent receives at registration:
// enough to schedule its own future events against the owning kernel,
// without holding a reference to the kernel itself or to other agents.
// This is the one-way-ownership design: the kernel owns the agent
// registration record, the agent only ever sees this interface.
type Scheduler interface {
	Self() domain.AgentID
	ScheduleWakeup(at int64) error
	ScheduleSend(topic domain.Topic, msg domain.Message, at int64) error
}
