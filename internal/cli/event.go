package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/teamdraw/internal/api/request"
	"github.com/mcoot/teamdraw/internal/model"
)

func newEventCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event",
		Short: "Event and signup commands",
	}

	cmd.AddCommand(newEventCreateCmd())
	cmd.AddCommand(newEventGetCmd())
	cmd.AddCommand(newEventSignupCmd())
	cmd.AddCommand(newEventSignupsCmd())
	cmd.AddCommand(newEventStatusCmd("confirm", "Confirm a signup", model.SignupConfirmed))
	cmd.AddCommand(newEventStatusCmd("withdraw", "Withdraw a signup", model.SignupWithdrawn))

	return cmd
}

func newEventCreateCmd() *cobra.Command {
	var startsAt string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an event you organize",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var starts time.Time
			if startsAt != "" {
				var err error
				starts, err = time.Parse(time.RFC3339, startsAt)
				if err != nil {
					return fmt.Errorf("invalid --starts-at: %w", err)
				}
			}

			result, err := client.CreateEvent(cmd.Context(), args[0], starts)
			if err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&startsAt, "starts-at", "", "Start time (RFC 3339)")

	return cmd
}

func newEventGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <event-id>",
		Short: "Show an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := client.GetEvent(cmd.Context(), model.EventID(args[0]))
			if err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}

func newEventSignupCmd() *cobra.Command {
	var position string
	var skill float64

	cmd := &cobra.Command{
		Use:   "signup <event-id> <display-name>",
		Short: "Sign a player up for an event",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := client.AddSignup(cmd.Context(), model.EventID(args[0]), request.AddSignupRequest{
				DisplayName: args[1],
				Position:    position,
				SkillRating: skill,
			})
			if err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&position, "position", string(model.PositionMidfielder), "Position: goalkeeper, defender, midfielder, forward")
	cmd.Flags().Float64Var(&skill, "skill", 5, "Skill rating")

	return cmd
}

func newEventSignupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signups <event-id>",
		Short: "List an event's signups",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := client.ListSignups(cmd.Context(), model.EventID(args[0]))
			if err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}

func newEventStatusCmd(use, short string, status model.SignupStatus) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <event-id> <signup-id>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := client.SetSignupStatus(cmd.Context(), model.EventID(args[0]), model.SignupID(args[1]), status)
			if err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}
