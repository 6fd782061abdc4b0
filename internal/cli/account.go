package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcoot/teamdraw/internal/api/request"
)

func newAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Account management commands",
	}

	cmd.AddCommand(newAccountRegisterCmd())
	cmd.AddCommand(newAccountLoginCmd())
	cmd.AddCommand(newAccountMeCmd())

	return cmd
}

func newAccountRegisterCmd() *cobra.Command {
	var displayName, role string

	cmd := &cobra.Command{
		Use:   "register <username> <password>",
		Short: "Register an account and save its session token",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := client.Register(cmd.Context(), request.RegisterRequest{
				Username:    args[0],
				Password:    args[1],
				DisplayName: displayName,
				Role:        role,
			})
			if err != nil {
				return err
			}

			if err := cfg.SaveToken(result.SessionToken); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&displayName, "display-name", "", "Display name (defaults to the username)")
	cmd.Flags().StringVar(&role, "role", "organizer", "Account role: organizer, player")

	return cmd
}

func newAccountLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <username> <password>",
		Short: "Log in and save the session token",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := client.Login(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}

			if err := cfg.SaveToken(result.SessionToken); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}

func newAccountMeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the logged in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := client.Me(cmd.Context())
			if err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}
