package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/funnel-cli/internal/model"
	"github.com/sells-group/funnel-cli/internal/orchestrate"
	"github.com/sells-group/funnel-cli/internal/source"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run integrated analysis over all opportunities for a profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		profileID, _ := cmd.Flags().GetString("profile")
		profilePath, _ := cmd.Flags().GetString("profile-file")
		includeResearch, _ := cmd.Flags().GetBool("research")
		costOpt, _ := cmd.Flags().GetBool("cost-optimization")
		batchSize, _ := cmd.Flags().GetInt("batch-size")
		limit, _ := cmd.Flags().GetInt("limit")
		save, _ := cmd.Flags().GetBool("save")

		profile := model.Profile{ID: profileID}
		if profilePath != "" {
			p, err := source.LoadProfile(profilePath)
			if err != nil {
				return err
			}
			profile = *p
			profileID = profile.ID
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
		if limit > 0 && len(opps) > limit {
			opps = opps[:limit]
		}
		if len(opps) == 0 {
			zap.L().Info("no opportunities to analyze", zap.String("profile_id", profileID))
			return nil
		}

		size := batchSize
		if size <= 0 {
			if costOpt {
				size = cfg.Batch.CostOptimizedSize
			} else {
				size = cfg.Batch.StandardSize
			}
		}

		orch := orchestrate.New(buildEngine(includeResearch), profile)
		result := orch.RunBatch(ctx, opps, orchestrate.Options{
			IncludeResearch:  includeResearch,
			CostOptimization: costOpt,
			BatchSize:        size,
			CostDelay:        time.Duration(cfg.Batch.CostDelaySecs) * time.Second,
		})

		if save {
			for _, a := range result.Analyses {
				if err := st.SaveAnalysis(ctx, profileID, a); err != nil {
					zap.L().Warn("save analysis failed",
						zap.String("run_id", a.RunID), zap.Error(err))
				}
			}
		}

		fmt.Printf("Analyzed %d opportunities: %d succeeded, %d failed\n",
			len(result.Analyses), result.Succeeded, result.Failed)
		fmt.Printf("Quality: %d high / %d medium / %d low / %d error\n",
			result.Quality.High, result.Quality.Medium, result.Quality.Low, result.Quality.Error)
		fmt.Printf("Total cost: $%.4f (avg $%.4f)\n", result.TotalCost, result.AvgCost)
		for _, e := range result.Errors {
			fmt.Printf("  error %s: %s\n", e.OpportunityID, e.Message)
		}
		return nil
	},
}

func init() {
	f := batchCmd.Flags()
	f.String("profile", "default", "profile id")
	f.String("profile-file", "", "profile context YAML file")
	f.Bool("research", false, "include AI research phase")
	f.Bool("cost-optimization", false, "smaller batches with pacing delay between them")
	f.Int("batch-size", 0, "items per batch (0=config default)")
	f.Int("limit", 0, "max opportunities to analyze (0=all)")
	f.Bool("save", false, "persist analysis snapshots")
	rootCmd.AddCommand(batchCmd)
}
