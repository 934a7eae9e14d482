package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewMFACmd creates the mfa command group.
func NewMFACmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mfa",
		Short: "Manage multi-factor authentication for instance accounts",
	}
	cmd.AddCommand(newMFADisableCmd())
	return cmd
}

func newMFADisableCmd() *cobra.Command {
	cfg := loadConfig()

	cmd := &cobra.Command{
		Use:   "disable <email>",
		Short: "Disable MFA for one account",
		Long: `Disable turns off multi-factor auth for an account whose operator lost
their second factor. It goes through the instance CLI, which handles
the credential cleanup itself.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email := args[0]

			ctx := cmd.Context()
			s, err := newSession(ctx, cfg)
			if err != nil {
				return err
			}

			inst, err := s.instance(ctx, false)
			if err != nil {
				return err
			}

			if err := confirm(fmt.Sprintf(
				"Disable MFA for %s on %s?", email, cfg.Workspace)); err != nil {
				return err
			}

			if err := s.med.DisableMFA(ctx, inst, email); err != nil {
				return err
			}
			fmt.Printf("MFA disabled for %s.\n", email)
			return nil
		},
	}

	addWorkspaceFlags(cmd, cfg)
	return cmd
}
