package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/funnel-cli/internal/engine"
	"github.com/sells-group/funnel-cli/internal/model"
	"github.com/sells-group/funnel-cli/internal/source"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run integrated analysis for a single opportunity",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		profileID, _ := cmd.Flags().GetString("profile")
		oppID, _ := cmd.Flags().GetString("id")
		profilePath, _ := cmd.Flags().GetString("profile-file")
		includeResearch, _ := cmd.Flags().GetBool("research")
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

		target, err := st.GetOpportunity(ctx, profileID, oppID)
		if err != nil {
			return err
		}
		if target == nil {
			return eris.Errorf("opportunity %s not found for profile %s", oppID, profileID)
		}

		eng := buildEngine(includeResearch)
		analysis := eng.Analyze(ctx, *target, profile, engine.Options{IncludeResearch: includeResearch})

		if save {
			if err := st.SaveAnalysis(ctx, profileID, analysis); err != nil {
				return err
			}
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(analysis); err != nil {
			return eris.Wrap(err, "analyze: encode result")
		}

		fmt.Fprintf(os.Stderr, "action=%s score=%.2f confidence=%.2f cost=$%.4f\n",
			analysis.RecommendedAction, analysis.IntegratedScore,
			analysis.IntegratedConfidence, analysis.CostBreakdown.TotalCost)
		return nil
	},
}

func init() {
	f := analyzeCmd.Flags()
	f.String("profile", "default", "profile id")
	f.String("id", "", "opportunity id (required)")
	f.String("profile-file", "", "profile context YAML file")
	f.Bool("research", false, "include AI research phase")
	f.Bool("save", false, "persist the analysis snapshot")
	_ = analyzeCmd.MarkFlagRequired("id")
	rootCmd.AddCommand(analyzeCmd)
}
