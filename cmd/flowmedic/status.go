package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/flowmedic/internal/diagnosis"
	"github.com/ppiankov/flowmedic/internal/gateway"
	"github.com/ppiankov/flowmedic/internal/models"
	"github.com/ppiankov/flowmedic/pkg/config"
)

// NewStatusCmd creates the status command, a quick look at queue depth and
// database size without a full investigation.
func NewStatusCmd() *cobra.Command {
	cfg := loadConfig()

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Quick queue and database overview",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context(), cfg)
		},
	}

	addWorkspaceFlags(cmd, cfg)
	return cmd
}

func runStatus(ctx context.Context, cfg *config.Config) error {
	s, err := newSession(ctx, cfg)
	if err != nil {
		return err
	}
	target := s.dbTarget()

	if err := s.gw.Probe(ctx, target); err != nil {
		return err
	}

	dbSize, err := s.gw.QueryScalar(ctx, target,
		"SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size();")
	if err != nil {
		return err
	}

	total, err := s.gw.QueryScalar(ctx, target, "SELECT COUNT(*) FROM execution_entity;")
	if err != nil {
		return err
	}

	rows, err := s.gw.Query(ctx, target,
		"SELECT status, COUNT(*) FROM execution_entity"+
			" WHERE status IN ('pending', 'new', 'waiting', 'running') GROUP BY status;", 2)
	if err != nil {
		return err
	}
	counts := map[models.QueueStatus]int64{}
	for _, row := range rows {
		n, err := gateway.ParseInt(row[1])
		if err != nil {
			return err
		}
		counts[models.QueueStatus(row[0])] = n
	}

	stuck, err := s.med.StuckWaitingCount(ctx, target)
	if err != nil {
		return err
	}

	fmt.Printf("Workspace:  %s (pod %s)\n", cfg.Workspace, s.pod.Name)
	fmt.Printf("Database:   %s\n", diagnosis.FormatBytes(dbSize))
	fmt.Printf("Executions: %d total\n", total)
	fmt.Println("Queue:")
	for _, status := range models.QueueStatuses {
		fmt.Printf("  %-8s %d\n", status, counts[status])
	}
	if stuck > 0 {
		fmt.Printf("Stuck waiting (wait date in year 3000): %d\n", stuck)
	}

	if counts[models.QueuePending]+counts[models.QueueNew] > 0 {
		backlog, err := s.med.PendingByWorkflow(ctx, target)
		if err != nil {
			return err
		}
		fmt.Println("Backlog by workflow:")
		for _, wc := range backlog {
			fmt.Printf("  %-40s %d\n", wc.Workflow, wc.Count)
		}
	}
	return nil
}
