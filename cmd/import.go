package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/funnel-cli/internal/funnel"
	"github.com/sells-group/funnel-cli/internal/source"
)

var importFile string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import opportunities from a YAML file into the funnel",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		file, err := source.LoadOpportunities(importFile)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		tracker := funnel.NewTracker()
		added := tracker.AddOpportunities(file.ProfileID, file.Opportunities)

		if err := st.UpsertOpportunities(ctx, file.ProfileID, tracker.All(file.ProfileID)); err != nil {
			return err
		}
		if err := st.AppendTransitions(ctx, file.ProfileID, tracker.Transitions(file.ProfileID)); err != nil {
			return err
		}

		zap.L().Info("import complete",
			zap.String("profile_id", file.ProfileID),
			zap.Int("added", added),
		)
		fmt.Printf("Imported %d opportunities for profile %s\n", added, file.ProfileID)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importFile, "file", "", "opportunity YAML file (required)")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
