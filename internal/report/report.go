// Package report renders a per-agent execution summary for a completed
// simulation run.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fairsim/marketsim/internal/metrics"
	"github.com/fairsim/marketsim/internal/scenario"
)

// Report generates and writes the per-agent execution report.
type Report struct {
	config  *scenario.Config
	metrics map[string]*metrics.AgentMetrics
	tags    []string
	outDir  string
}

// New creates a report generator from a metrics snapshot.
func New(cfg *scenario.Config, snapshot map[string]*metrics.AgentMetrics, tags []string, outDir string) *Report {
	return &Report{config: cfg, metrics: snapshot, tags: tags, outDir: outDir}
}

// Generate writes metrics.json and report.md into the run's output directory.
func (r *Report) Generate() error {
	metricsPath := filepath.Join(r.outDir, "metrics.json")
	data, err := json.MarshalIndent(r.metrics, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	if err := os.WriteFile(metricsPath, data, 0644); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}

	reportPath := filepath.Join(r.outDir, "report.md")
	if err := os.WriteFile(reportPath, []byte(r.renderMarkdown()), 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func (r *Report) renderMarkdown() string {
	var sb strings.Builder

	sb.WriteString("# Simulation Report\n\n")
	sb.WriteString(fmt.Sprintf("**Scenario:** %s | **Seed:** %d | **Symbol:** %s\n\n",
		r.config.Name, r.config.Seed, r.config.Symbol))

	sb.WriteString("## Agent Roster\n\n")
	sb.WriteString("| Tag | Kind | Base Latency (ms) | Jitter (ms) |\n")
	sb.WriteString("|-----|------|--------------------|-------------|\n")
	for _, a := range r.config.Agents {
		sb.WriteString(fmt.Sprintf("| %s | %s | %d | %d |\n", a.Tag, a.Kind, a.BaseLatencyMs, a.JitterMs))
	}
	sb.WriteString("\n")

	sb.WriteString("## Execution Metrics\n\n")
	sb.WriteString("| Tag | Orders Sent | Total Fills | Qty Filled | Avg Exec Price |\n")
	sb.WriteString("|-----|-------------|--------------|------------|----------------|\n")
	for _, tag := range r.tags {
		m, ok := r.metrics[tag]
		if !ok {
			continue
		}
		sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %.4f |\n",
			m.Tag, m.OrdersSent, m.TotalFills, m.TotalQtyFilled, m.AvgExecPrice))
	}

	return sb.String()
}
