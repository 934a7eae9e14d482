package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewOwnerCmd creates the owner command group for instance account repair.
func NewOwnerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "owner",
		Short: "Inspect or repair the instance owner account",
	}
	cmd.AddCommand(newOwnerShowCmd())
	cmd.AddCommand(newOwnerSetEmailCmd())
	return cmd
}

func newOwnerShowCmd() *cobra.Command {
	cfg := loadConfig()

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the owner account's email",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := newSession(ctx, cfg)
			if err != nil {
				return err
			}

			email, err := s.med.OwnerEmail(ctx, s.dbTarget())
			if err != nil {
				return err
			}
			fmt.Println(email)
			return nil
		},
	}

	addWorkspaceFlags(cmd, cfg)
	return cmd
}

func newOwnerSetEmailCmd() *cobra.Command {
	cfg := loadConfig()

	cmd := &cobra.Command{
		Use:   "set-email <email>",
		Short: "Change the owner account's email",
		Long: `Set-email rewrites the owner account's address, the usual fix when a
customer locked themselves out with a typo. It backs up the database
first, refuses addresses already in use, and verifies the write.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			newEmail := args[0]

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
				"Change the owner email of %s to %s?", cfg.Workspace, newEmail)); err != nil {
				return err
			}

			if err := s.med.ChangeOwnerEmail(ctx, inst, newEmail); err != nil {
				return err
			}
			fmt.Printf("Owner email is now %s.\n", newEmail)
			return nil
		},
	}

	addWorkspaceFlags(cmd, cfg)
	return cmd
}
