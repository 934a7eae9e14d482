package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewExecutionsCmd creates the executions command group.
func NewExecutionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "executions",
		Short: "Inspect or cancel instance executions",
	}
	cmd.AddCommand(newExecutionsShowCmd())
	cmd.AddCommand(newExecutionsCancelCmd())
	return cmd
}

func newExecutionsShowCmd() *cobra.Command {
	cfg := loadConfig()

	var (
		status      string
		limit       int
		executionID int64
		withPayload bool
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show recent executions, or one execution in detail",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := newSession(ctx, cfg)
			if err != nil {
				return err
			}

			if executionID > 0 {
				detail, err := s.med.ShowExecution(ctx, s.dbTarget(), executionID, withPayload)
				if err != nil {
					return err
				}
				fmt.Printf("Execution: %d\n", detail.ID)
				fmt.Printf("Workflow:  %s\n", detail.Workflow)
				fmt.Printf("Status:    %s\n", detail.Status)
				fmt.Printf("Started:   %s\n", detail.StartedAt)
				fmt.Printf("Stopped:   %s\n", detail.StoppedAt)
				fmt.Printf("Payload:   %d bytes\n", detail.DataBytes)
				if withPayload && detail.Payload != "" {
					fmt.Println(detail.Payload)
				}
				return nil
			}

			executions, err := s.med.ListExecutions(ctx, s.dbTarget(), status, limit)
			if err != nil {
				return err
			}
			if len(executions) == 0 {
				fmt.Printf("No executions with status %q.\n", status)
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tWORKFLOW\tSTATUS\tSTARTED")
			for _, e := range executions {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", e.ID, e.Workflow, e.Status, e.StartedAt)
			}
			return w.Flush()
		},
	}

	addWorkspaceFlags(cmd, cfg)
	cmd.Flags().StringVar(&status, "status", "running", "Execution status to show")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum rows to show")
	cmd.Flags().Int64Var(&executionID, "id", 0, "Show one execution by ID")
	cmd.Flags().BoolVar(&withPayload, "payload", false, "Include the stored payload (with --id)")
	return cmd
}

func newExecutionsCancelCmd() *cobra.Command {
	cfg := loadConfig()

	var (
		status     string
		stuck      bool
		skipBackup bool
	)

	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel executions by status, or stuck waiting ones",
		Long: `Cancel marks executions as crashed so the instance stops reprocessing
them. --stuck targets only executions parked forever by a broken Wait
node. A database backup is taken first unless --skip-backup is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := newSession(ctx, cfg)
			if err != nil {
				return err
			}
			target := s.dbTarget()

			what := fmt.Sprintf("all %q executions", status)
			if stuck {
				what = "stuck waiting executions"
			}
			if err := confirm(fmt.Sprintf("Cancel %s in %s?", what, cfg.Workspace)); err != nil {
				return err
			}

			if !skipBackup {
				if err := s.med.TakeBackup(ctx, target); err != nil {
					return err
				}
			}

			var count int64
			if stuck {
				count, err = s.med.CancelStuckWaiting(ctx, target)
			} else {
				count, err = s.med.CancelExecutions(ctx, target, status)
			}
			if err != nil {
				return err
			}

			fmt.Printf("Canceled %d execution(s).\n", count)
			return nil
		},
	}

	addWorkspaceFlags(cmd, cfg)
	cmd.Flags().StringVar(&status, "status", "new", "Execution status to cancel")
	cmd.Flags().BoolVar(&stuck, "stuck", false, "Cancel only stuck waiting executions")
	cmd.Flags().BoolVar(&skipBackup, "skip-backup", false, "Skip the pre-change backup")
	return cmd
}
