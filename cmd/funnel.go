package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/funnel-cli/internal/funnel"
	"github.com/sells-group/funnel-cli/internal/model"
	"github.com/sells-group/funnel-cli/internal/store"
)

var funnelCmd = &cobra.Command{
	Use:   "funnel",
	Short: "Inspect funnel state and analytics",
}

var funnelMetricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show the funnel analytics snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		profileID, _ := cmd.Flags().GetString("profile")

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		tracker, err := store.LoadTracker(ctx, st, profileID)
		if err != nil {
			return err
		}

		metrics := tracker.FunnelMetrics(profileID, metricsConfig(cfg.Funnel))
		return printJSON(metrics)
	},
}

var funnelRecommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "List rule-based stage recommendations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		profileID, _ := cmd.Flags().GetString("profile")

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		tracker, err := store.LoadTracker(ctx, st, profileID)
		if err != nil {
			return err
		}

		recs := tracker.StageRecommendations(profileID)
		return printJSON(recs)
	},
}

var funnelStalledCmd = &cobra.Command{
	Use:   "stalled",
	Short: "List opportunities whose stage has not changed recently",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		profileID, _ := cmd.Flags().GetString("profile")
		days, _ := cmd.Flags().GetInt("days")
		if days <= 0 {
			days = cfg.Funnel.StalledThresholdDays
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		tracker, err := store.LoadTracker(ctx, st, profileID)
		if err != nil {
			return err
		}

		stalled := tracker.IdentifyStalledOpportunities(profileID, time.Duration(days)*24*time.Hour)
		return printJSON(stalled)
	},
}

var funnelListCmd = &cobra.Command{
	Use:   "list",
	Short: "List opportunities, optionally filtered",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		profileID, _ := cmd.Flags().GetString("profile")
		stageFlag, _ := cmd.Flags().GetString("stage")
		minScore, _ := cmd.Flags().GetFloat64("min-score")
		sourceFlag, _ := cmd.Flags().GetString("source-type")

		var filter funnel.Filter
		if stageFlag != "" {
			stage := model.FunnelStage(stageFlag)
			if !stage.Valid() {
				return eris.Errorf("unknown stage %q", stageFlag)
			}
			filter.Stage = &stage
		}
		if cmd.Flags().Changed("min-score") {
			filter.MinScore = &minScore
		}
		if sourceFlag != "" {
			src := model.SourceType(sourceFlag)
			filter.SourceType = &src
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		opps, err := st.ListOpportunities(ctx, profileID)
		if err != nil {
			return err
		}
		return printJSON(funnel.ApplyFilter(opps, filter))
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return eris.Wrap(err, "cmd: encode output")
	}
	return nil
}

func init() {
	funnelCmd.PersistentFlags().String("profile", "default", "profile id")

	funnelStalledCmd.Flags().Int("days", 0, "stalled threshold in days (0=config default)")

	funnelListCmd.Flags().String("stage", "", "filter by funnel stage")
	funnelListCmd.Flags().Float64("min-score", 0, "filter by minimum compatibility score")
	funnelListCmd.Flags().String("source-type", "", "filter by source type")

	funnelCmd.AddCommand(funnelMetricsCmd, funnelRecommendCmd, funnelStalledCmd, funnelListCmd)
	rootCmd.AddCommand(funnelCmd)
}
