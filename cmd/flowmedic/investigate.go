package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/flowmedic/internal/baseline"
	"github.com/ppiankov/flowmedic/internal/collector"
	"github.com/ppiankov/flowmedic/internal/diagnosis"
	"github.com/ppiankov/flowmedic/internal/gateway"
	"github.com/ppiankov/flowmedic/internal/models"
	"github.com/ppiankov/flowmedic/internal/reporter"
	"github.com/ppiankov/flowmedic/pkg/config"
)

// NewInvestigateCmd creates the investigate command, the core OOM and
// storage diagnosis pass.
func NewInvestigateCmd() *cobra.Command {
	cfg := loadConfig()

	var (
		writeReport    bool
		jsonOutput     bool
		baselinePath   string
		updateBaseline bool
		failOnFindings bool
	)

	cmd := &cobra.Command{
		Use:   "investigate",
		Short: "Diagnose why an instance is out of memory or storage",
		Long: `Investigate collects a point-in-time snapshot of the instance's embedded
database (table sizes, largest executions, per-workflow data, error and
volume counts, queue depth, growth trend), diagnoses it against known
failure patterns, and renders findings with concrete remediation steps.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInvestigate(cmd.Context(), cfg, investigateOptions{
				writeReport:    writeReport,
				jsonOutput:     jsonOutput,
				baselinePath:   baselinePath,
				updateBaseline: updateBaseline,
				failOnFindings: failOnFindings,
			})
		},
	}

	addWorkspaceFlags(cmd, cfg)
	cmd.Flags().StringVar(&cfg.DownloadsDir, "downloads-dir", cfg.DownloadsDir, "Directory for persisted reports")
	cmd.Flags().IntVar(&cfg.TopExecutions, "top", cfg.TopExecutions, "How many largest executions to fetch")
	cmd.Flags().IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "Concurrent collectors")
	cmd.Flags().StringSliceVar(&cfg.ExcludeTables, "exclude-table", cfg.ExcludeTables, "Table name or glob to skip in size reporting")

	cmd.Flags().BoolVar(&writeReport, "report", false, "Persist a Markdown report to the downloads directory")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the result as JSON instead of console sections")
	cmd.Flags().StringVar(&baselinePath, "baseline", "", "Baseline file of accepted findings to suppress")
	cmd.Flags().BoolVar(&updateBaseline, "update-baseline", false, "Record current findings into the baseline")
	cmd.Flags().BoolVar(&failOnFindings, "fail-on-findings", false, "Exit nonzero when findings remain")

	return cmd
}

type investigateOptions struct {
	writeReport    bool
	jsonOutput     bool
	baselinePath   string
	updateBaseline bool
	failOnFindings bool
}

func runInvestigate(ctx context.Context, cfg *config.Config, opts investigateOptions) error {
	cfg.Normalize()

	s, err := newSession(ctx, cfg)
	if err != nil {
		return err
	}
	target := s.dbTarget()

	col := collector.New(s.gw, cfg)
	snap, err := col.BuildSnapshot(ctx, target)
	if err != nil {
		var unavailable *gateway.RemoteUnavailableError
		if errors.As(err, &unavailable) {
			reporter.RenderUnavailable(os.Stdout, cfg.Workspace, err)
		}
		return err
	}

	findings, notices := diagnosis.Diagnose(snap, cfg.Thresholds)
	result := &models.InvestigationResult{
		Target:      target,
		Snapshot:    snap,
		Findings:    findings,
		Notices:     notices,
		GeneratedAt: time.Now().UTC(),
		Version:     version,
	}

	if opts.baselinePath != "" {
		known, err := baseline.Load(opts.baselinePath)
		if err != nil {
			return err
		}
		suppressed, _ := baseline.SuppressKnown(result, known)
		if suppressed > 0 {
			fmt.Fprintf(os.Stderr, "suppressed %d baselined finding(s)\n", suppressed)
		}
	}

	if opts.jsonOutput {
		if err := reporter.WriteJSON(os.Stdout, result); err != nil {
			return err
		}
	} else {
		reporter.RenderConsole(os.Stdout, result)
	}

	if opts.writeReport {
		path, err := reporter.WriteReport(result, cfg.DownloadsDir)
		if err != nil {
			// The console rendering above stays valid.
			fmt.Fprintf(os.Stderr, "report not persisted: %v\n", err)
			return err
		}
		fmt.Fprintf(os.Stderr, "report written: %s\n", path)
	}

	if opts.updateBaseline {
		path := opts.baselinePath
		if path == "" {
			path = baseline.DefaultPath
		}
		known, err := baseline.Load(path)
		if err != nil {
			return err
		}
		baseline.AddAll(known, baseline.CollectFingerprints(result))
		if err := baseline.Save(path, known); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "baseline updated: %s\n", path)
	}

	if opts.failOnFindings && len(result.Findings) > 0 {
		return &FindingsError{Count: len(result.Findings)}
	}
	return nil
}
