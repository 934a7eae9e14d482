package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewImportCmd creates the import command: load workflow definitions from a
// local JSON file into the instance.
func NewImportCmd() *cobra.Command {
	cfg := loadConfig()

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import workflow definitions from a local file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			localPath := args[0]

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
				"Import workflows from %s into %s?", localPath, cfg.Workspace)); err != nil {
				return err
			}

			if err := s.med.ImportWorkflows(ctx, inst, localPath); err != nil {
				return err
			}
			fmt.Println("Workflows imported.")
			return nil
		},
	}

	addWorkspaceFlags(cmd, cfg)
	return cmd
}
