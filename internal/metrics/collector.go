// Package metrics collects per-agent execution-quality metrics from a
// completed simulation run's trade stream.
package metrics

import (
	"sort"

	"github.com/fairsim/marketsim/internal/domain"
)

// AgentMetrics holds computed metrics for a single agent, keyed by its
// client tag (the ClientTag it stamps on every order it submits).
type AgentMetrics struct {
	Tag            string  `json:"tag"`
	OrdersSent     int     `json:"orders_sent"`
	TotalFills     int     `json:"total_fills"`
	TotalQtyFilled int64   `json:"total_qty_filled"`
	AvgExecPrice   float64 `json:"avg_exec_price"`
}

// Collector accumulates per-agent metrics as a run progresses. It is
// driven directly by the run orchestrator rather than by replaying the
// event log: the log is a lean dispatch trace kept for hash-based
// determinism verification, not a metrics source.
type Collector struct {
	byTag map[string]*accum
}

type accum struct {
	tag         string
	ordersSent  int
	fills       int
	qtyFilled   int64
	priceWeight int64 // Σ price*qty, for the volume-weighted average price
}

// New creates an empty collector.
func New() *Collector {
	return &Collector{byTag: make(map[string]*accum)}
}

func (c *Collector) accumFor(tag string) *accum {
	a, ok := c.byTag[tag]
	if !ok {
		a = &accum{tag: tag}
		c.byTag[tag] = a
	}
	return a
}

// RecordSubmit records that tag sent one order. The run orchestrator
// calls it from the exchange's OnAccepted hook, so orders_sent counts
// accepted submissions only; rejected ones are not recorded.
func (c *Collector) RecordSubmit(tag string) {
	if tag == "" {
		return
	}
	c.accumFor(tag).ordersSent++
}

// RecordFill records one side of a trade for tag.
func (c *Collector) RecordFill(tag string, price domain.Price, qty domain.Qty) {
	if tag == "" {
		return
	}
	a := c.accumFor(tag)
	a.fills++
	a.qtyFilled += int64(qty)
	a.priceWeight += int64(price) * int64(qty)
}

// Snapshot returns the computed metrics for every tag observed so far,
// keyed by tag, ordered deterministically within any slice the caller
// derives from it.
func (c *Collector) Snapshot() map[string]*AgentMetrics {
	out := make(map[string]*AgentMetrics, len(c.byTag))
	for tag, a := range c.byTag {
		m := &AgentMetrics{
			Tag:            tag,
			OrdersSent:     a.ordersSent,
			TotalFills:     a.fills,
			TotalQtyFilled: a.qtyFilled,
		}
		if a.qtyFilled > 0 {
			m.AvgExecPrice = float64(a.priceWeight) / float64(a.qtyFilled) / domain.PriceScale
		}
		out[tag] = m
	}
	return out
}

// Tags returns the observed tags in sorted order, for deterministic
// iteration when rendering a report.
func (c *Collector) Tags() []string {
	tags := make([]string, 0, len(c.byTag))
	for tag := range c.byTag {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
