package main

import (
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/rgtrack/internal/replay"
)

const maxMismatchesShown = 10

func newReplayCmd() *cobra.Command {
	cfg := &replay.Config{}
	var charts []string

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Submit generated score batches and verify personal bests",
		Example: `  rgtrackctl replay --chart 1000:ANOTHER:1572 --chart 1000:HYPER:1000 --users 200
  rgtrackctl replay --url http://tracker:9080 --seed 42 --output batches.json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, c := range charts {
				ref, err := replay.ParseChartRef(c)
				if err != nil {
					return err
				}
				cfg.Charts = append(cfg.Charts, ref)
			}
			if cfg.Seed == 0 {
				cfg.Seed = uint64(time.Now().UnixNano())
			}

			stats, err := replay.Run(cmd.Context(), cfg)
			if stats != nil {
				fmt.Fprintln(cmd.OutOrStdout(), replayPanel(stats))
				for i, m := range stats.Mismatches {
					if i == maxMismatchesShown {
						fmt.Fprintf(cmd.OutOrStdout(), "... and %d more\n", len(stats.Mismatches)-i)
						break
					}
					fmt.Fprintln(cmd.OutOrStdout(), badStyle.Render("✗ "+m))
				}
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", "http://localhost:9080", "Base URL of the tracker")
	f.StringVar(&cfg.Game, "game", "iidx", "Game of every batch")
	f.StringVar(&cfg.Playtype, "playtype", "SP", "Playtype of every batch")
	f.StringArrayVar(&charts, "chart", nil, "Chart as inGameID:difficulty:maxScore (repeatable)")
	f.StringSliceVar(&cfg.Lamps, "lamps", nil, "Lamps to draw from (default FAILED, EASY CLEAR, CLEAR, HARD CLEAR)")
	f.StringVar(&cfg.PrimaryMetric, "metric", "percent", "Metric the chart index ranks by")
	f.IntVar(&cfg.Users, "users", 100, "Number of users")
	f.IntVar(&cfg.FirstUserID, "first-user", 1, "First user ID")
	f.IntVar(&cfg.ScoresPerUser, "scores", 20, "Scores per user")
	f.IntVar(&cfg.Workers, "workers", runtime.NumCPU()*2, "Concurrent requests")
	f.IntVar(&cfg.Retries, "retries", 3, "Retries for a throttled batch")
	f.DurationVar(&cfg.Timeout, "timeout", 30*time.Second, "HTTP request timeout")
	f.Uint64Var(&cfg.Seed, "seed", 0, "Generator seed (default: time based)")
	f.StringVarP(&cfg.OutputFile, "output", "o", "", "Write generated batches to this file")
	f.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Log every batch and chart")
	_ = cmd.MarkFlagRequired("chart")
	return cmd
}

func replayPanel(s *replay.Stats) string {
	rate := 0.0
	if s.Duration > 0 {
		rate = float64(s.ScoresImported) / s.Duration.Seconds()
	}
	return panel("Replay", []row{
		{label: "users", value: s.Users},
		{label: "batches submitted", value: s.BatchesSubmitted},
		{label: "batches failed", value: s.BatchesFailed, bad: s.BatchesFailed > 0},
		{label: "throttled", value: s.Throttled},
		{label: "scores imported", value: s.ScoresImported},
		{label: "import errors", value: s.ImportErrors, bad: s.ImportErrors > 0},
		{label: "pbs verified", value: s.PBsVerified},
		{label: "mismatches", value: len(s.Mismatches), bad: len(s.Mismatches) > 0},
		{label: "duration", value: s.Duration.Round(time.Millisecond)},
		{label: "scores/sec", value: fmt.Sprintf("%.1f", rate)},
	})
}
