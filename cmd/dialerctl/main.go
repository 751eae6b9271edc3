// Package main provides dialerctl, an offline what-if tool for the pacing
// calculators.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/davidleathers/outbound-pacing-backend/internal/domain/pacing"
	"github.com/davidleathers/outbound-pacing-backend/internal/infrastructure/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "dialerctl",
		Short:        "Evaluate dial rates and predictive ratios without a running pacer",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to configuration file")

	load := func() (*config.Config, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		return cfg, nil
	}

	rootCmd.AddCommand(newRateCmd(load))
	rootCmd.AddCommand(newPredictiveCmd(load))
	rootCmd.AddCommand(newEvaluateCmd(load))
	return rootCmd
}

type configLoader func() (*config.Config, error)

func newRateCmd(load configLoader) *cobra.Command {
	var current int
	var maxCalls, cpm int
	var bounded bool

	cmd := &cobra.Command{
		Use:   "rate",
		Short: "Recommended dial rate for a concurrency level",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			cs := cfg.Pacing.Concurrency
			if cmd.Flags().Changed("max-concurrent") {
				cs.MaxConcurrentCalls = maxCalls
			}
			if cmd.Flags().Changed("calls-per-minute") {
				cs.CallsPerMinute = cpm
			}
			if err := cs.Validate(); err != nil {
				return err
			}

			m := pacing.ComputeDialingRate(current, cs)
			if bounded {
				m = pacing.ComputeDialingRateWithin(current, cs, cfg.Pacing.Defaults.Bounds())
			}
			return printJSON(cmd.OutOrStdout(), m)
		},
	}
	cmd.Flags().IntVar(&current, "current", 0, "calls currently in flight")
	cmd.Flags().IntVar(&maxCalls, "max-concurrent", 0, "override max concurrent calls")
	cmd.Flags().IntVar(&cpm, "calls-per-minute", 0, "override configured calls per minute")
	cmd.Flags().BoolVar(&bounded, "bounded", false, "apply the default pacing min/max dial rate")
	return cmd
}

func newPredictiveCmd(load configLoader) *cobra.Command {
	var p pacing.DialingAlgorithmParams

	cmd := &cobra.Command{
		Use:   "predictive",
		Short: "Predictive dialing ratio for the given call statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			m, err := pacing.NewPredictiveDialer(cfg.Predictive).Calculate(p)
			if perr := printJSON(cmd.OutOrStdout(), m); perr != nil {
				return perr
			}
			return err
		},
	}
	cmd.Flags().Float64Var(&p.AvgCallDuration, "duration", 180, "average call duration in seconds")
	cmd.Flags().Float64Var(&p.AvgAnswerRate, "answer-rate", 30, "average answer rate, percent")
	cmd.Flags().Float64Var(&p.AvgAgentWrapTime, "wrap", 30, "average agent wrap time in seconds")
	cmd.Flags().IntVar(&p.AvailableAgents, "agents", 1, "available agents")
	cmd.Flags().Float64Var(&p.TargetAbandonmentRate, "target-abandonment", 3, "target abandonment rate, percent")
	return cmd
}

func newEvaluateCmd(load configLoader) *cobra.Command {
	var obs pacing.Observation
	var baseRate int

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Pacing recommendation for an observed answer and abandonment rate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if baseRate <= 0 {
				baseRate = cfg.Pacing.Concurrency.CallsPerMinute
			}
			return printJSON(cmd.OutOrStdout(), pacing.Evaluate(obs, cfg.Pacing.Defaults, baseRate))
		},
	}
	cmd.Flags().Float64Var(&obs.AnswerRate, "answer-rate", 0, "observed answer rate, percent")
	cmd.Flags().Float64Var(&obs.AbandonmentRate, "abandonment-rate", 0, "observed abandonment rate, percent")
	cmd.Flags().Float64Var(&obs.Utilization, "utilization", 0, "slot utilization, 0-1")
	cmd.Flags().IntVar(&obs.SampleSize, "samples", 100, "number of outcomes observed; 0 always maintains")
	cmd.Flags().IntVar(&baseRate, "rate", 0, "current dial rate in calls per minute (default from config)")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
