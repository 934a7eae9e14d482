package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/flowmedic/pkg/config"
)

// NewPruneCmd creates the prune command: delete old executions and their
// payloads, the main lever for shrinking a bloated database.
func NewPruneCmd() *cobra.Command {
	cfg := loadConfig()

	var (
		olderThan  string
		workflowID string
		vacuum     bool
		skipBackup bool
	)

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete executions older than a cutoff",
		Long: `Prune deletes executions that started before the cutoff along with
their stored payloads. --vacuum additionally rewrites the database file
to return the freed pages to the filesystem; it needs as much free disk
as the database currently occupies. A backup is taken first unless
--skip-backup is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			age, err := config.ParseDuration(olderThan)
			if err != nil {
				return fmt.Errorf("invalid --older-than: %w", err)
			}

			ctx := cmd.Context()
			s, err := newSession(ctx, cfg)
			if err != nil {
				return err
			}
			target := s.dbTarget()

			scope := cfg.Workspace
			if workflowID != "" {
				scope = fmt.Sprintf("workflow %s in %s", workflowID, cfg.Workspace)
			}
			if err := confirm(fmt.Sprintf(
				"Delete executions older than %s from %s?", olderThan, scope)); err != nil {
				return err
			}

			if !skipBackup {
				if err := s.med.TakeBackup(ctx, target); err != nil {
					return err
				}
			}

			result, err := s.med.Prune(ctx, target, age, workflowID, vacuum)
			if err != nil {
				return err
			}

			fmt.Printf("Deleted %d execution(s).\n", result.ExecutionsDeleted)
			if result.Vacuumed {
				fmt.Println("Database vacuumed.")
			}
			return nil
		},
	}

	addWorkspaceFlags(cmd, cfg)
	cmd.Flags().StringVar(&olderThan, "older-than", "30d", "Age cutoff (e.g. 7d, 24h)")
	cmd.Flags().StringVar(&workflowID, "workflow", "", "Restrict the prune to one workflow ID")
	cmd.Flags().BoolVar(&vacuum, "vacuum", false, "VACUUM after deleting to reclaim disk space")
	cmd.Flags().BoolVar(&skipBackup, "skip-backup", false, "Skip the pre-change backup")
	return cmd
}
