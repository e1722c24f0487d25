// Command marketsim runs, reports on, and replay-verifies deterministic
// agent-based market simulations.
package main

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fairsim/marketsim/internal/config"
	"github.com/fairsim/marketsim/internal/metrics"
	"github.com/fairsim/marketsim/internal/report"
	"github.com/fairsim/marketsim/internal/scenario"
	"github.com/fairsim/marketsim/internal/sim"
)

const defaultRunsDir = "runs"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "marketsim",
		Short: "Deterministic agent-based market simulator",
	}

	v := viper.New()
	v.SetEnvPrefix("SIM")
	v.AutomaticEnv()

	root.AddCommand(newRunCmd(v), newDemoCmd(v), newReportCmd(), newReplayCmd())
	return root
}

func newRunCmd(v *viper.Viper) *cobra.Command {
	var scenarioName string
	var seed int64
	var outDir string
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one simulation scenario",
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg *scenario.Config

			if configPath != "" {
				rc, err := config.Load(configPath)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := rc.Validate(); err != nil {
					return fmt.Errorf("invalid config: %w", err)
				}
				cfg = &rc.Config
				outDir = rc.OutputDir
			} else {
				cfg = scenario.GetConfig(scenarioName, seed)
				if cfg == nil {
					return fmt.Errorf("unknown scenario %q (calm, thin, spike)", scenarioName)
				}
			}

			result, err := runScenario(cfg, outDir)
			if err != nil {
				return err
			}
			printRunResult(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&scenarioName, "scenario", "calm", "scenario to run: calm, thin, spike")
	cmd.Flags().Int64Var(&seed, "seed", 42, "random seed")
	cmd.Flags().StringVar(&outDir, "output-dir", defaultRunsDir, "directory to write run artifacts under")
	cmd.Flags().StringVar(&configPath, "config", "", "path to a YAML run config file (overrides --scenario/--seed)")
	v.BindPFlag("scenario", cmd.Flags().Lookup("scenario"))
	v.BindPFlag("seed", cmd.Flags().Lookup("seed"))
	return cmd
}

func newDemoCmd(v *viper.Viper) *cobra.Command {
	var seed int64
	var outDir string

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run all built-in scenarios and print a combined summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range []string{"calm", "thin", "spike"} {
				cfg := scenario.GetConfig(name, seed)
				result, err := runScenario(cfg, outDir)
				if err != nil {
					return fmt.Errorf("scenario %s: %w", name, err)
				}
				printRunResult(result)
				fmt.Println()
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&seed, "seed", 42, "random seed")
	cmd.Flags().StringVar(&outDir, "output-dir", defaultRunsDir, "directory to write run artifacts under")
	return cmd
}

func newReportCmd() *cobra.Command {
	var runDir string
	var lastRun bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Regenerate the markdown report for an existing run",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := resolveRunDir(runDir, lastRun)
			if err != nil {
				return err
			}
			cfg, snapshot, err := loadRun(dir)
			if err != nil {
				return err
			}
			tags := make([]string, 0, len(snapshot))
			for tag := range snapshot {
				tags = append(tags, tag)
			}
			sort.Strings(tags)

			rpt := report.New(cfg, snapshot, tags, dir)
			if err := rpt.Generate(); err != nil {
				return fmt.Errorf("generate report: %w", err)
			}
			fmt.Printf("Report written to %s/report.md\n", dir)
			return nil
		},
	}

	cmd.Flags().StringVar(&runDir, "run-dir", "", "path to a specific run directory")
	cmd.Flags().BoolVar(&lastRun, "last-run", false, "use the most recently completed run")
	return cmd
}

func newReplayCmd() *cobra.Command {
	var runDir string
	var lastRun bool

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-run a logged scenario and verify the event log hash matches",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := resolveRunDir(runDir, lastRun)
			if err != nil {
				return err
			}
			cfg, _, err := loadRun(dir)
			if err != nil {
				return err
			}

			logPath := filepath.Join(dir, "events.jsonl")
			targetHash, err := hashFile(logPath)
			if err != nil {
				return fmt.Errorf("hash original log: %w", err)
			}

			tmpDir, err := os.MkdirTemp("", "marketsim-replay-*")
			if err != nil {
				return fmt.Errorf("create temp dir: %w", err)
			}
			defer os.RemoveAll(tmpDir)

			replayRunner, err := sim.NewRunner(cfg, tmpDir)
			if err != nil {
				return fmt.Errorf("initialize replay runner: %w", err)
			}
			result, err := replayRunner.Run()
			if err != nil {
				return fmt.Errorf("run replay: %w", err)
			}

			if targetHash == result.LogHash {
				fmt.Printf("Event log hash matches replay: %s\n", targetHash[:16])
			} else {
				fmt.Printf("HASH MISMATCH\n  original: %s\n  replay:   %s\n", targetHash[:16], result.LogHash[:16])
				return fmt.Errorf("replay is not deterministic with the original run")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&runDir, "run-dir", "", "path to a specific run directory")
	cmd.Flags().BoolVar(&lastRun, "last-run", false, "use the most recently completed run")
	return cmd
}

func runScenario(cfg *scenario.Config, outDir string) (*sim.RunResult, error) {
	runner, err := sim.NewRunner(cfg, outDir)
	if err != nil {
		return nil, fmt.Errorf("initialize runner: %w", err)
	}
	result, err := runner.Run()
	if err != nil {
		return nil, fmt.Errorf("run simulation: %w", err)
	}
	return result, nil
}

func printRunResult(result *sim.RunResult) {
	fmt.Printf("Scenario:         %s (seed=%d)\n", result.Config.Name, result.Config.Seed)
	fmt.Printf("Events processed: %d\n", result.EventCount)
	fmt.Printf("Trades executed:  %d\n", result.TradeCount)
	fmt.Printf("Wall time:        %v\n", result.Duration)
	fmt.Printf("Log hash:         %s...\n", result.LogHash[:16])
	fmt.Printf("Output:           %s\n", result.OutputDir)
}

func resolveRunDir(runDir string, lastRun bool) (string, error) {
	if lastRun {
		data, err := os.ReadFile(filepath.Join(defaultRunsDir, "last-run"))
		if err != nil {
			return "", fmt.Errorf("no last run found, run a simulation first: %w", err)
		}
		return string(data), nil
	}
	if runDir == "" {
		return "", fmt.Errorf("--run-dir or --last-run required")
	}
	return runDir, nil
}

func loadRun(dir string) (*scenario.Config, map[string]*metrics.AgentMetrics, error) {
	cfgData, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		return nil, nil, fmt.Errorf("read config.json: %w", err)
	}
	var cfg scenario.Config
	if err := json.Unmarshal(cfgData, &cfg); err != nil {
		return nil, nil, fmt.Errorf("decode config.json: %w", err)
	}

	metricsData, err := os.ReadFile(filepath.Join(dir, "metrics.json"))
	if err != nil {
		return nil, nil, fmt.Errorf("read metrics.json: %w", err)
	}
	var snapshot map[string]*metrics.AgentMetrics
	if err := json.Unmarshal(metricsData, &snapshot); err != nil {
		return nil, nil, fmt.Errorf("decode metrics.json: %w", err)
	}

	return &cfg, snapshot, nil
}

func hashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h), nil
}
