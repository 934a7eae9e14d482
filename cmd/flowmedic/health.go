package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/flowmedic/internal/diagnosis"
)

// NewHealthCmd creates the health command: pod container states and recent
// Kubernetes events, the place restarts and OOMKills show up.
func NewHealthCmd() *cobra.Command {
	cfg := loadConfig()

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Show pod container health and recent events",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := newSession(ctx, cfg)
			if err != nil {
				return err
			}

			statuses, err := s.discovery.PodStatus(ctx, cfg.Workspace, s.pod.Name)
			if err != nil {
				return err
			}

			fmt.Printf("Pod: %s (node %s, phase %s)\n\n", s.pod.Name, s.pod.Node, s.pod.Phase)

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CONTAINER\tREADY\tRESTARTS\tSTATE\tREASON")
			for _, st := range statuses {
				fmt.Fprintf(w, "%s\t%t\t%d\t%s\t%s\n", st.Name, st.Ready, st.RestartCount, st.State, st.Reason)
			}
			_ = w.Flush()

			events, err := s.discovery.PodEvents(ctx, cfg.Workspace, s.pod.Name)
			if err != nil {
				return err
			}
			if len(events) == 0 {
				fmt.Println("\nNo recent events.")
			} else {
				fmt.Println("\nRecent events:")
				for _, ev := range events {
					fmt.Printf("  %s  %-8s %-20s %s\n",
						ev.Time.Format("2006-01-02 15:04:05"), ev.Type, ev.Reason, ev.Message)
				}
			}

			printInstanceStats(ctx, s)
			return nil
		},
	}

	addWorkspaceFlags(cmd, cfg)
	return cmd
}

// printInstanceStats adds the quick database-level numbers. Each figure is
// independently fallible; a failure prints as unavailable instead of killing
// the pod report above it.
func printInstanceStats(ctx context.Context, s *session) {
	target := s.dbTarget()
	cutoff := time.Now().UTC().Add(-24 * time.Hour).Format("2006-01-02 15:04:05")

	fmt.Println("\nInstance:")
	printStat := func(label string, sql string, format func(int64) string) {
		v, err := s.gw.QueryScalar(ctx, target, sql)
		if err != nil {
			fmt.Printf("  %-18s unavailable: %v\n", label, err)
			return
		}
		fmt.Printf("  %-18s %s\n", label, format(v))
	}
	plain := func(v int64) string { return fmt.Sprintf("%d", v) }

	printStat("database size", "SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size();", diagnosis.FormatBytes)
	printStat("active workflows", "SELECT COUNT(*) FROM workflow_entity WHERE active = 1;", plain)
	printStat("total executions", "SELECT COUNT(*) FROM execution_entity;", plain)
	printStat("errors (24h)", fmt.Sprintf(
		"SELECT COUNT(*) FROM execution_entity WHERE status IN ('error', 'crashed', 'failed') AND startedAt >= '%s';", cutoff), plain)
}
