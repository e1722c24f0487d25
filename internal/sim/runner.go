// Package sim wires the kernel, broker, exchange, example trading
// agents, background flow generator, event log, metrics, and report
// into a complete, runnable simulation.
package sim

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fairsim/marketsim/internal/agent"
	"github.com/fairsim/marketsim/internal/broker"
	"github.com/fairsim/marketsim/internal/domain"
	"github.com/fairsim/marketsim/internal/eventlog"
	"github.com/fairsim/marketsim/internal/exchange"
	"github.com/fairsim/marketsim/internal/kernel"
	"github.com/fairsim/marketsim/internal/latency"
	"github.com/fairsim/marketsim/internal/metrics"
	"github.com/fairsim/marketsim/internal/orderbook"
	"github.com/fairsim/marketsim/internal/report"
	"github.com/fairsim/marketsim/internal/scenario"
	"github.com/fairsim/marketsim/internal/trader"
)

// RunResult holds the output of a simulation run.
type RunResult struct {
	RunID      string           `json:"run_id"`
	Config     *scenario.Config `json:"config"`
	EventCount uint64           `json:"event_count"`
	TradeCount int              `json:"trade_count"`
	Duration   time.Duration    `json:"wall_duration"`
	LogPath    string           `json:"log_path"`
	LogHash    string           `json:"log_hash"`
	OutputDir  string           `json:"output_dir"`
}

// Runner executes one simulation run.
type Runner struct {
	cfg       *scenario.Config
	kern      *kernel.Kernel
	brk       *broker.Broker
	logWriter *eventlog.Writer
	collector *metrics.Collector

	tradeCount int
	outputDir  string
}

// NewRunner wires up a new simulation run from cfg, writing its
// artifacts under baseOutputDir/<name>_seed<seed>/.
func NewRunner(cfg *scenario.Config, baseOutputDir string) (*Runner, error) {
	runID := fmt.Sprintf("%s_seed%d", cfg.Name, cfg.Seed)
	outputDir := filepath.Join(baseOutputDir, runID)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	logPath := filepath.Join(outputDir, "events.jsonl")
	logWriter, err := eventlog.NewWriter(logPath)
	if err != nil {
		return nil, fmt.Errorf("create event log: %w", err)
	}

	r := &Runner{
		cfg:       cfg,
		brk:       broker.New(),
		logWriter: logWriter,
		collector: metrics.New(),
		outputDir: outputDir,
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	r.kern = kernel.New(r.brk, logger)
	r.kern.DispatchHook = func(e kernel.Event) {
		if err := r.logWriter.Write(e); err != nil {
			panic(fmt.Sprintf("write event log: %v", err))
		}
	}

	if err := r.wire(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Runner) wire() error {
	ex := exchange.New(orderbook.MatchNormally, nil)
	ex.OnAccepted = r.collector.RecordSubmit
	tagByAgent := make(map[domain.AgentID]string)
	ex.OnTrade = func(trade domain.Trade) {
		r.tradeCount++
		r.collector.RecordFill(tagByAgent[trade.MakerAgent], trade.Price, trade.Quantity)
		r.collector.RecordFill(tagByAgent[trade.TakerAgent], trade.Price, trade.Quantity)
	}

	exID := r.kern.RegisterAgent(ex)
	r.brk.Subscribe(exID, domain.ExchangeOrdersTopic())

	gen, err := scenario.NewGenerator(r.cfg)
	if err != nil {
		return fmt.Errorf("build generator: %w", err)
	}
	genID := r.kern.RegisterAgent(gen)
	r.brk.Subscribe(genID, domain.DirectTopic(genID))
	tagByAgent[genID] = "background"

	for i, ac := range r.cfg.Agents {
		strat, err := buildStrategy(ac)
		if err != nil {
			return err
		}
		lat := latency.NewModel(ac.BaseLatencyMs, ac.JitterMs, r.cfg.Seed+int64(i)+1)
		tr := trader.New(ac.Tag, r.cfg.Symbol, strat, lat, ac.ReQuoteMs, r.cfg.Seed+int64(i)+1000)
		id := r.kern.RegisterAgent(tr)
		tagByAgent[id] = ac.Tag

		r.brk.Subscribe(id, domain.BookTopic(r.cfg.Symbol))
		r.brk.Subscribe(id, domain.TradesTopic(r.cfg.Symbol))
		r.brk.Subscribe(id, domain.DirectTopic(id))

		if err := r.kern.ScheduleWakeup(id, 0); err != nil {
			return fmt.Errorf("schedule trader wakeup: %w", err)
		}
	}

	if err := r.kern.ScheduleWakeup(genID, 0); err != nil {
		return fmt.Errorf("schedule generator wakeup: %w", err)
	}
	return nil
}

func buildStrategy(ac scenario.AgentConfig) (trader.Strategy, error) {
	switch ac.Kind {
	case "market-maker":
		return &trader.MarketMaker{TargetQty: domain.Qty(ac.TargetQty), Spread: domain.Price(ac.SpreadTicks)}, nil
	case "momentum":
		return &trader.Momentum{TargetQty: domain.Qty(ac.TargetQty), WindowTicks: ac.WindowTicks}, nil
	case "mean-reversion":
		return &trader.MeanReversion{TargetQty: domain.Qty(ac.TargetQty), WindowTicks: ac.WindowTicks}, nil
	default:
		return nil, fmt.Errorf("sim: unknown agent kind %q", ac.Kind)
	}
}

// Run executes the simulation to completion and writes its artifacts.
func (r *Runner) Run() (*RunResult, error) {
	startWall := time.Now()

	until := r.cfg.DurationMs
	summary, err := r.kern.Run(&until)
	if err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}

	if err := r.logWriter.Close(); err != nil {
		return nil, fmt.Errorf("close event log: %w", err)
	}

	logPath := filepath.Join(r.outputDir, "events.jsonl")
	hash, err := hashFile(logPath)
	if err != nil {
		return nil, fmt.Errorf("hash log: %w", err)
	}

	cfgPath := filepath.Join(r.outputDir, "config.json")
	cfgData, _ := json.MarshalIndent(r.cfg, "", "  ")
	if err := os.WriteFile(cfgPath, cfgData, 0644); err != nil {
		return nil, fmt.Errorf("write config: %w", err)
	}

	lastRunPath := filepath.Join(filepath.Dir(r.outputDir), "last-run")
	if err := os.WriteFile(lastRunPath, []byte(r.outputDir), 0644); err != nil {
		return nil, fmt.Errorf("write last-run pointer: %w", err)
	}

	snapshot := r.collector.Snapshot()
	rpt := report.New(r.cfg, snapshot, r.collector.Tags(), r.outputDir)
	if err := rpt.Generate(); err != nil {
		return nil, fmt.Errorf("generate report: %w", err)
	}

	return &RunResult{
		RunID:      filepath.Base(r.outputDir),
		Config:     r.cfg,
		EventCount: summary.EventsProcessed,
		TradeCount: r.tradeCount,
		Duration:   time.Since(startWall),
		LogPath:    logPath,
		LogHash:    hash,
		OutputDir:  r.outputDir,
	}, nil
}

// Metrics returns the collector's current per-agent snapshot.
func (r *Runner) Metrics() map[string]*metrics.AgentMetrics {
	return r.collector.Snapshot()
}

func hashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h), nil
}

var _ agent.Agent = (*exchange.Exchange)(nil)
