package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/yaoqinxue-cmd/BriStack/internal/model"
)

var subscriberID string

// subscriberCmd represents the subscriber command
var subscriberCmd = &cobra.Command{
	Use:   "subscriber",
	Short: "Manage subscriber trust levels",
	Long: `Manage subscribers and their trust levels.

Levels:
  1  subscribed
  2  verified human (reached automatically after enough completed reads)
  3  trusted reader (assigned)
  4  inner circle (assigned)

Levels never decrease.`,
}

var subscriberCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a subscriber at level 1",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer a.Close()

		sub := &model.Subscriber{ID: subscriberID}
		if err := a.store.CreateSubscriber(cmd.Context(), sub); err != nil {
			return err
		}
		return writeJSON(sub, "")
	},
}

var subscriberShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a subscriber",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer a.Close()

		sub, err := a.store.GetSubscriber(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return writeJSON(sub, "")
	},
}

var subscriberPromoteCmd = &cobra.Command{
	Use:   "promote <id> <level>",
	Short: "Assign a trust level (never demotes)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid level %q: %w", args[1], err)
		}

		a, err := newApp(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer a.Close()

		changed, err := a.machine.Assign(cmd.Context(), args[0], level)
		if err != nil {
			return err
		}

		sub, err := a.store.GetSubscriber(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !changed {
			fmt.Printf("Subscriber %s unchanged at level %d\n", sub.ID, sub.Level)
			return nil
		}
		fmt.Printf("✓ Subscriber %s promoted to level %d\n", sub.ID, sub.Level)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(subscriberCmd)
	subscriberCmd.AddCommand(subscriberCreateCmd)
	subscriberCmd.AddCommand(subscriberShowCmd)
	subscriberCmd.AddCommand(subscriberPromoteCmd)

	subscriberCreateCmd.Flags().StringVar(&subscriberID, "id", "", "subscriber id (default: generated)")
}
