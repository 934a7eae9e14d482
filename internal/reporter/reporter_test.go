package reporter

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/flowmedic/internal/models"
)

func int64p(v int64) *int64 { return &v }

func sampleResult() *models.InvestigationResult {
	return &models.InvestigationResult{
		Target: models.Target{
			Workspace:    "acme-prod",
			Pod:          "workflow-0",
			Container:    "backup-cron",
			DatabasePath: "database.sqlite",
		},
		Snapshot: &models.Snapshot{
			Workspace:         "acme-prod",
			TakenAt:           time.Date(2026, 8, 24, 10, 30, 0, 0, time.UTC),
			DatabaseSizeBytes: int64p(565_000_000),
			TableSizes: &models.TableSizeSet{
				Entries: []models.TableSize{
					{Name: "execution_data", SizeBytes: 196_000_000},
					{Name: "execution_entity", SizeBytes: 20_000_000},
				},
			},
			LargestExecutions: []models.ExecutionSize{
				{ExecutionID: 901, WorkflowID: "wf1", WorkflowName: "Order Sync", DataSizeBytes: 12_000_000, Status: "success"},
			},
			WorkflowData: []models.WorkflowDataTotal{
				{WorkflowID: "wf1", WorkflowName: "Order Sync", Active: true, TotalDataBytes: 80_000_000, ExecutionCount: 400},
			},
			TopWorkflows24h: []models.WorkflowExecutionCount{
				{WorkflowID: "wf1", WorkflowName: "Order Sync", ExecutionCount: 300},
			},
			ErrorWorkflows24h: []models.ErrorWorkflow{
				{WorkflowID: "wf2", WorkflowName: "Invoices", ErrorCount: 60, SampleError: "Error: timeout | last node: HTTP Request"},
			},
			QueueCounts: map[models.QueueStatus]int64{
				models.QueuePending: 0, models.QueueNew: 150,
				models.QueueWaiting: 3, models.QueueRunning: 0,
			},
			GrowthTrend: []models.GrowthPoint{
				{Date: time.Date(2026, 8, 23, 0, 0, 0, 0, time.UTC), NewExecutions: 420},
				{Date: time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC), NewExecutions: 380},
			},
			TotalExecutions:   int64p(10000),
			ActiveWorkflows:   int64p(12),
			InactiveWorkflows: int64p(8),
			Executions24h:     int64p(430),
		},
		Findings: []models.Finding{
			{
				Category:    models.CategoryDatabaseSize,
				Severity:    models.SeverityCritical,
				MetricValue: 565_000_000,
				Threshold:   200_000_000,
				Explanation: "database is 565.0 MB (warn above 200.0 MB, critical above 500.0 MB)",
				Actions:     []string{"reduce execution retention to 30 days or lower"},
			},
			{
				Category:    models.CategoryTableBloat,
				Severity:    models.SeverityWarning,
				MetricValue: 196_000_000,
				Threshold:   100_000_000,
				Explanation: "table execution_data holds 196.0 MB of execution payloads (limit 100.0 MB)",
				Actions:     []string{"prune old execution payloads from execution_data, then VACUUM to reclaim disk"},
			},
		},
		GeneratedAt: time.Date(2026, 8, 24, 10, 30, 5, 0, time.UTC),
		Version:     "1.2.0",
	}
}

func TestBuildSectionsFixedOrder(t *testing.T) {
	sections := BuildSections(sampleResult())

	wantOrder := []string{
		SectionOverview,
		SectionTableSizes,
		SectionLargestExecs,
		SectionWorkflowData,
		SectionTopWorkflows,
		SectionErrors,
		SectionQueueStatus,
		SectionGrowthTrend,
		SectionLikelyCulprits,
		SectionRecommended,
		SectionAppendix,
	}
	if len(sections) != len(wantOrder) {
		t.Fatalf("got %d sections, want %d", len(sections), len(wantOrder))
	}
	for i, want := range wantOrder {
		if sections[i].Title != want {
			t.Errorf("section %d = %q, want %q", i, sections[i].Title, want)
		}
	}
}

func TestBuildSectionsApproximateFlag(t *testing.T) {
	result := sampleResult()
	result.Snapshot.TableSizes.Accuracy = models.SizeApproximate

	sections := BuildSections(result)
	if sections[1].Title != SectionTableSizes+" (approximate)" {
		t.Errorf("table sizes title = %q, want approximate flag", sections[1].Title)
	}
}

func TestBuildSectionsUnavailableMetric(t *testing.T) {
	result := sampleResult()
	result.Snapshot.TableSizes = nil
	result.Snapshot.Gaps = []models.DataGap{
		{Metric: models.MetricTableSizes, Reason: "query failed: database is locked"},
	}

	sections := BuildSections(result)
	ts := sections[1]
	if ts.Title != SectionTableSizes {
		t.Fatalf("section 1 = %q, want Table Sizes", ts.Title)
	}
	if ts.Unavailable != "data unavailable: query failed: database is locked" {
		t.Errorf("unavailable = %q", ts.Unavailable)
	}
}

func TestBuildSectionsQueueShowsZeros(t *testing.T) {
	sections := BuildSections(sampleResult())

	var queue *Section
	for i := range sections {
		if sections[i].Title == SectionQueueStatus {
			queue = &sections[i]
		}
	}
	if queue == nil {
		t.Fatal("queue section missing")
	}
	if len(queue.Rows) != len(models.QueueStatuses) {
		t.Fatalf("queue rows = %d, want %d", len(queue.Rows), len(models.QueueStatuses))
	}
	found := false
	for _, row := range queue.Rows {
		if row[0] == "running" && row[1] == "0" {
			found = true
		}
	}
	if !found {
		t.Error("zero-count status not shown")
	}
}

func TestActionsGroupedByUrgency(t *testing.T) {
	result := sampleResult()
	result.Findings = append(result.Findings, models.Finding{
		Category: models.CategoryPendingBacklog,
		Severity: models.SeverityCritical,
		Actions:  []string{"cancel the queued executions to unblock the instance"},
	})

	sections := BuildSections(result)
	var actions *Section
	for i := range sections {
		if sections[i].Title == SectionRecommended {
			actions = &sections[i]
		}
	}
	if actions == nil {
		t.Fatal("actions section missing")
	}

	text := strings.Join(actions.Lines, "\n")
	immediate := strings.Index(text, "Immediate:")
	cleanup := strings.Index(text, "Data Cleanup:")
	if immediate == -1 || cleanup == -1 {
		t.Fatalf("buckets missing:\n%s", text)
	}
	if immediate > cleanup {
		t.Error("Immediate bucket should render before Data Cleanup")
	}
}

func TestRenderMarkdownDeterministic(t *testing.T) {
	result := sampleResult()

	first := RenderMarkdown(result)
	second := RenderMarkdown(result)
	if first != second {
		t.Fatal("identical results rendered differently")
	}

	for _, heading := range []string{
		"## Overview", "## Table Sizes", "## Largest Executions", "## Workflow Data",
		"## Top Workflows 24h", "## Errors 24h", "## Queue Status", "## Growth Trend",
		"## Likely Culprits", "## Recommended Actions", "## Appendix: Commands",
	} {
		if !strings.Contains(first, heading) {
			t.Errorf("markdown missing %q", heading)
		}
	}

	// Pipes inside cell text are escaped so the table stays parseable.
	if !strings.Contains(first, "Error: timeout \\| last node: HTTP Request") {
		t.Error("pipe in error sample not escaped")
	}
}

func TestRenderMarkdownAppendixCommands(t *testing.T) {
	md := RenderMarkdown(sampleResult())

	if !strings.Contains(md, "kubectl -n acme-prod exec workflow-0 -c backup-cron -- sqlite3 database.sqlite") {
		t.Error("appendix missing literal sqlite command")
	}
	if !strings.Contains(md, "VACUUM;") {
		t.Error("appendix missing VACUUM step")
	}
}

func TestReportFileName(t *testing.T) {
	ts := time.Date(2026, 8, 24, 10, 30, 5, 0, time.UTC)
	got := ReportFileName("acme-prod", ts)
	want := "acme-prod-oom-report-20260824-103005.md"
	if got != want {
		t.Errorf("ReportFileName = %q, want %q", got, want)
	}
}

func TestWriteReport(t *testing.T) {
	dir := t.TempDir()
	result := sampleResult()

	path, err := WriteReport(result, dir)
	if err != nil {
		t.Fatalf("WriteReport failed: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("report written to %q, want inside %q", path, dir)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if string(data) != RenderMarkdown(result) {
		t.Error("persisted report differs from rendered markdown")
	}
}

func TestWriteReportFailure(t *testing.T) {
	dir := t.TempDir()
	blocking := filepath.Join(dir, "not-a-dir")
	if err := os.WriteFile(blocking, []byte("x"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	_, err := WriteReport(sampleResult(), filepath.Join(blocking, "sub"))
	if !errors.Is(err, ErrReportWrite) {
		t.Fatalf("err = %v, want ErrReportWrite", err)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleResult()); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}
	if !strings.Contains(buf.String(), "\"workspace\": \"acme-prod\"") {
		t.Errorf("json missing workspace field:\n%s", buf.String())
	}
}

func TestRenderConsoleSections(t *testing.T) {
	var buf bytes.Buffer
	RenderConsole(&buf, sampleResult())

	out := buf.String()
	if !strings.Contains(out, "Likely Culprits") {
		t.Error("console output missing culprits section")
	}
	if !strings.Contains(out, "database is 565.0 MB") {
		t.Error("console output missing finding explanation")
	}
}
