package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/funnel-cli/internal/funnel"
	"github.com/sells-group/funnel-cli/internal/model"
	"github.com/sells-group/funnel-cli/internal/store"
)

var stageCmd = &cobra.Command{
	Use:   "stage",
	Short: "Move opportunities through the funnel",
}

var stagePromoteCmd = &cobra.Command{
	Use:   "promote",
	Short: "Advance an opportunity one stage",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStageMutation(cmd, func(tr *funnel.Tracker, profileID, id, notes string) bool {
			return tr.Promote(profileID, id, notes)
		})
	},
}

var stageDemoteCmd = &cobra.Command{
	Use:   "demote",
	Short: "Move an opportunity back one stage",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStageMutation(cmd, func(tr *funnel.Tracker, profileID, id, notes string) bool {
			return tr.Demote(profileID, id, notes)
		})
	},
}

var stageSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Jump an opportunity to an arbitrary stage",
	RunE: func(cmd *cobra.Command, args []string) error {
		target, _ := cmd.Flags().GetString("to")
		stage := model.FunnelStage(target)
		if !stage.Valid() {
			return eris.Errorf("unknown stage %q", target)
		}
		return runStageMutation(cmd, func(tr *funnel.Tracker, profileID, id, notes string) bool {
			return tr.SetStage(profileID, id, stage, notes)
		})
	},
}

var stageBulkCmd = &cobra.Command{
	Use:   "bulk",
	Short: "Move several opportunities to one stage",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		profileID, _ := cmd.Flags().GetString("profile")
		ids, _ := cmd.Flags().GetStringSlice("ids")
		target, _ := cmd.Flags().GetString("to")
		notes, _ := cmd.Flags().GetString("notes")

		stage := model.FunnelStage(target)
		if !stage.Valid() {
			return eris.Errorf("unknown stage %q", target)
		}
		if len(ids) == 0 {
			return eris.New("no opportunity ids given")
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
		before := len(tracker.Transitions(profileID))

		results := tracker.BulkTransition(profileID, ids, stage, notes)
		if err := persistTracker(ctx, st, tracker, profileID, before); err != nil {
			return err
		}

		moved := 0
		for _, id := range ids {
			if results[id] {
				moved++
				continue
			}
			fmt.Printf("  skipped %s (unknown id)\n", id)
		}
		fmt.Printf("Moved %d of %d opportunities to %s\n", moved, len(ids), stage)
		return nil
	},
}

// runStageMutation handles the shared load-mutate-persist flow for the
// single-opportunity stage commands.
func runStageMutation(cmd *cobra.Command, mutate func(tr *funnel.Tracker, profileID, id, notes string) bool) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	profileID, _ := cmd.Flags().GetString("profile")
	id, _ := cmd.Flags().GetString("id")
	notes, _ := cmd.Flags().GetString("notes")

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	tracker, err := store.LoadTracker(ctx, st, profileID)
	if err != nil {
		return err
	}
	before := len(tracker.Transitions(profileID))

	if !mutate(tracker, profileID, id, notes) {
		return eris.Errorf("cannot move opportunity %s", id)
	}
	if err := persistTracker(ctx, st, tracker, profileID, before); err != nil {
		return err
	}

	opp, _ := tracker.Get(profileID, id)
	zap.L().Info("stage updated",
		zap.String("profile_id", profileID),
		zap.String("opportunity_id", id),
		zap.String("stage", string(opp.FunnelStage)),
	)
	fmt.Printf("%s is now at %s\n", id, opp.FunnelStage)
	return nil
}

// persistTracker writes the tracker's opportunities and any transitions
// logged since the load back to the store.
func persistTracker(ctx context.Context, st store.Store, tracker *funnel.Tracker, profileID string, sinceIdx int) error {
	if err := st.UpsertOpportunities(ctx, profileID, tracker.All(profileID)); err != nil {
		return err
	}
	transitions := tracker.Transitions(profileID)
	if sinceIdx < len(transitions) {
		return st.AppendTransitions(ctx, profileID, transitions[sinceIdx:])
	}
	return nil
}

func init() {
	stageCmd.PersistentFlags().String("profile", "default", "profile id")
	stageCmd.PersistentFlags().String("notes", "", "transition notes")

	for _, c := range []*cobra.Command{stagePromoteCmd, stageDemoteCmd, stageSetCmd} {
		c.Flags().String("id", "", "opportunity id (required)")
		_ = c.MarkFlagRequired("id")
	}
	stageSetCmd.Flags().String("to", "", "target stage (required)")
	_ = stageSetCmd.MarkFlagRequired("to")

	stageBulkCmd.Flags().StringSlice("ids", nil, "opportunity ids (required)")
	stageBulkCmd.Flags().String("to", "", "target stage (required)")
	_ = stageBulkCmd.MarkFlagRequired("ids")
	_ = stageBulkCmd.MarkFlagRequired("to")

	stageCmd.AddCommand(stagePromoteCmd, stageDemoteCmd, stageSetCmd, stageBulkCmd)
	rootCmd.AddCommand(stageCmd)
}
