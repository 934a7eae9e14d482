package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewWorkflowsCmd creates the workflows command group.
func NewWorkflowsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflows",
		Short: "List or deactivate instance workflows",
	}
	cmd.AddCommand(newWorkflowsListCmd())
	cmd.AddCommand(newWorkflowsDeactivateCmd())
	return cmd
}

func newWorkflowsListCmd() *cobra.Command {
	cfg := loadConfig()

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List workflows, active first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := newSession(ctx, cfg)
			if err != nil {
				return err
			}

			workflows, err := s.med.ListWorkflows(ctx, s.dbTarget())
			if err != nil {
				return err
			}
			if len(workflows) == 0 {
				fmt.Println("No workflows.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tACTIVE\tNAME")
			for _, wf := range workflows {
				fmt.Fprintf(w, "%s\t%t\t%s\n", wf.ID, wf.Active, wf.Name)
			}
			return w.Flush()
		},
	}

	addWorkspaceFlags(cmd, cfg)
	return cmd
}

func newWorkflowsDeactivateCmd() *cobra.Command {
	cfg := loadConfig()

	var (
		workflowID string
		all        bool
		skipBackup bool
	)

	cmd := &cobra.Command{
		Use:   "deactivate",
		Short: "Deactivate one workflow or all of them",
		Long: `Deactivate turns workflows off so a runaway instance stops producing
executions. A database backup is taken first unless --skip-backup is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if workflowID == "" && !all {
				return fmt.Errorf("either --id or --all is required")
			}
			if workflowID != "" && all {
				return fmt.Errorf("--id and --all are mutually exclusive")
			}

			ctx := cmd.Context()
			s, err := newSession(ctx, cfg)
			if err != nil {
				return err
			}
			target := s.dbTarget()

			what := fmt.Sprintf("workflow %s", workflowID)
			if all {
				what = "ALL workflows"
			}
			if err := confirm(fmt.Sprintf("Deactivate %s in %s?", what, cfg.Workspace)); err != nil {
				return err
			}

			if !skipBackup {
				if err := s.med.TakeBackup(ctx, target); err != nil {
					return err
				}
			}

			if all {
				count, err := s.med.DeactivateAll(ctx, target)
				if err != nil {
					return err
				}
				fmt.Printf("Deactivated %d workflow(s).\n", count)
				return nil
			}

			wasActive, err := s.med.DeactivateWorkflow(ctx, target, workflowID)
			if err != nil {
				return err
			}
			if !wasActive {
				fmt.Printf("Workflow %s was already inactive.\n", workflowID)
				return nil
			}
			fmt.Printf("Workflow %s deactivated.\n", workflowID)
			return nil
		},
	}

	addWorkspaceFlags(cmd, cfg)
	cmd.Flags().StringVar(&workflowID, "id", "", "Workflow ID to deactivate")
	cmd.Flags().BoolVar(&all, "all", false, "Deactivate every active workflow")
	cmd.Flags().BoolVar(&skipBackup, "skip-backup", false, "Skip the pre-change backup")
	return cmd
}
