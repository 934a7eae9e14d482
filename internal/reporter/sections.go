// Package reporter renders investigation results, interactively on the
// console and as a persisted Markdown report. Both targets share one section
// builder so their content never drifts apart.
package reporter

import (
	"fmt"
	"strings"

	"github.com/ppiankov/flowmedic/internal/diagnosis"
	"github.com/ppiankov/flowmedic/internal/models"
)

// Fixed section order. Scripts parse generated reports, so this is a
// compatibility contract.
const (
	SectionOverview       = "Overview"
	SectionTableSizes     = "Table Sizes"
	SectionLargestExecs   = "Largest Executions"
	SectionWorkflowData   = "Workflow Data"
	SectionTopWorkflows   = "Top Workflows 24h"
	SectionErrors         = "Errors 24h"
	SectionQueueStatus    = "Queue Status"
	SectionGrowthTrend    = "Growth Trend"
	SectionLikelyCulprits = "Likely Culprits"
	SectionRecommended    = "Recommended Actions"
	SectionAppendix       = "Appendix: Commands"
)

// Section is one titled block of the report. A section whose metric failed
// still appears, carrying the failure reason instead of rows.
type Section struct {
	Title       string
	Header      []string
	Rows        [][]string
	Lines       []string
	Unavailable string
}

// BuildSections renders the result into the fixed section sequence.
func BuildSections(result *models.InvestigationResult) []Section {
	snap := result.Snapshot
	return []Section{
		overviewSection(result),
		tableSizesSection(snap),
		largestExecutionsSection(snap),
		workflowDataSection(snap),
		topWorkflowsSection(snap),
		errorsSection(snap),
		queueSection(snap),
		growthSection(snap),
		culpritsSection(result),
		actionsSection(result),
		appendixSection(result),
	}
}

func unavailable(snap *models.Snapshot, metric string) string {
	if reason, ok := snap.Gap(metric); ok {
		return "data unavailable: " + reason
	}
	return ""
}

func overviewSection(result *models.InvestigationResult) Section {
	snap := result.Snapshot
	s := Section{Title: SectionOverview}

	s.Lines = append(s.Lines, fmt.Sprintf("Workspace: %s", snap.Workspace))
	s.Lines = append(s.Lines, fmt.Sprintf("Pod: %s", result.Target.Pod))
	s.Lines = append(s.Lines, fmt.Sprintf("Snapshot taken: %s UTC", snap.TakenAt.Format("2006-01-02 15:04:05")))

	if snap.DatabaseSizeBytes != nil {
		s.Lines = append(s.Lines, fmt.Sprintf("Database size: %s", diagnosis.FormatBytes(*snap.DatabaseSizeBytes)))
	} else if reason := unavailable(snap, models.MetricDatabaseSize); reason != "" {
		s.Lines = append(s.Lines, "Database size: "+reason)
	}

	if reason := unavailable(snap, models.MetricTotals); reason != "" {
		s.Lines = append(s.Lines, "Totals: "+reason)
		return s
	}
	if snap.TotalExecutions != nil {
		s.Lines = append(s.Lines, fmt.Sprintf("Total executions: %d", *snap.TotalExecutions))
	}
	if snap.ActiveWorkflows != nil && snap.InactiveWorkflows != nil {
		s.Lines = append(s.Lines, fmt.Sprintf("Workflows: %d active, %d inactive",
			*snap.ActiveWorkflows, *snap.InactiveWorkflows))
	}
	if snap.Executions24h != nil {
		s.Lines = append(s.Lines, fmt.Sprintf("Executions (24h): %d", *snap.Executions24h))
	}
	return s
}

func tableSizesSection(snap *models.Snapshot) Section {
	title := SectionTableSizes
	if snap.TableSizes != nil && snap.TableSizes.Accuracy == models.SizeApproximate {
		title += " (approximate)"
	}
	s := Section{Title: title, Header: []string{"Table", "Size"}}

	if snap.TableSizes == nil {
		s.Unavailable = unavailable(snap, models.MetricTableSizes)
		return s
	}
	for _, e := range snap.TableSizes.Entries {
		s.Rows = append(s.Rows, []string{e.Name, diagnosis.FormatBytes(e.SizeBytes)})
	}
	return s
}

func largestExecutionsSection(snap *models.Snapshot) Section {
	s := Section{
		Title:  SectionLargestExecs,
		Header: []string{"Execution", "Workflow", "Size", "Status"},
	}
	if snap.LargestExecutions == nil {
		s.Unavailable = unavailable(snap, models.MetricLargestExecutions)
		return s
	}
	for _, e := range snap.LargestExecutions {
		s.Rows = append(s.Rows, []string{
			fmt.Sprintf("%d", e.ExecutionID),
			workflowLabel(e.WorkflowName, e.WorkflowID),
			diagnosis.FormatBytes(e.DataSizeBytes),
			e.Status,
		})
	}
	return s
}

func workflowDataSection(snap *models.Snapshot) Section {
	s := Section{
		Title:  SectionWorkflowData,
		Header: []string{"Workflow", "Active", "Stored Data", "Executions"},
	}
	if snap.WorkflowData == nil {
		s.Unavailable = unavailable(snap, models.MetricWorkflowData)
		return s
	}
	for _, w := range snap.WorkflowData {
		active := "no"
		if w.Active {
			active = "yes"
		}
		s.Rows = append(s.Rows, []string{
			workflowLabel(w.WorkflowName, w.WorkflowID),
			active,
			diagnosis.FormatBytes(w.TotalDataBytes),
			fmt.Sprintf("%d", w.ExecutionCount),
		})
	}
	return s
}

func topWorkflowsSection(snap *models.Snapshot) Section {
	s := Section{Title: SectionTopWorkflows, Header: []string{"Workflow", "Executions"}}
	if snap.TopWorkflows24h == nil {
		s.Unavailable = unavailable(snap, models.MetricTopWorkflows24h)
		return s
	}
	for _, w := range snap.TopWorkflows24h {
		s.Rows = append(s.Rows, []string{
			workflowLabel(w.WorkflowName, w.WorkflowID),
			fmt.Sprintf("%d", w.ExecutionCount),
		})
	}
	return s
}

func errorsSection(snap *models.Snapshot) Section {
	s := Section{Title: SectionErrors, Header: []string{"Workflow", "Errors", "Latest Error"}}
	if snap.ErrorWorkflows24h == nil {
		s.Unavailable = unavailable(snap, models.MetricErrorWorkflows24h)
		return s
	}
	for _, w := range snap.ErrorWorkflows24h {
		s.Rows = append(s.Rows, []string{
			workflowLabel(w.WorkflowName, w.WorkflowID),
			fmt.Sprintf("%d", w.ErrorCount),
			truncate(w.SampleError, 120),
		})
	}
	return s
}

func queueSection(snap *models.Snapshot) Section {
	s := Section{Title: SectionQueueStatus, Header: []string{"Status", "Count"}}
	if snap.QueueCounts == nil {
		s.Unavailable = unavailable(snap, models.MetricQueueStatus)
		return s
	}
	// Zero counts are shown; an observed zero is information.
	for _, status := range models.QueueStatuses {
		s.Rows = append(s.Rows, []string{string(status), fmt.Sprintf("%d", snap.QueueCounts[status])})
	}
	return s
}

func growthSection(snap *models.Snapshot) Section {
	s := Section{Title: SectionGrowthTrend, Header: []string{"Date", "New Executions"}}
	if snap.GrowthTrend == nil {
		s.Unavailable = unavailable(snap, models.MetricGrowthTrend)
		return s
	}
	for _, p := range snap.GrowthTrend {
		s.Rows = append(s.Rows, []string{p.Date.Format("2006-01-02"), fmt.Sprintf("%d", p.NewExecutions)})
	}
	return s
}

func culpritsSection(result *models.InvestigationResult) Section {
	s := Section{Title: SectionLikelyCulprits}

	if len(result.Findings) == 0 {
		s.Lines = append(s.Lines, "No issues detected.")
	}
	for _, f := range result.Findings {
		s.Lines = append(s.Lines, fmt.Sprintf("[%s] %s: %s",
			strings.ToUpper(f.Severity.String()), f.Category, f.Explanation))
	}
	for _, n := range result.Notices {
		s.Lines = append(s.Lines, fmt.Sprintf("[UNKNOWN] %s: not evaluated, %s unavailable (%s)",
			n.Category, n.Metric, n.Reason))
	}
	return s
}

func actionsSection(result *models.InvestigationResult) Section {
	s := Section{Title: SectionRecommended}

	if len(result.Findings) == 0 {
		s.Lines = append(s.Lines, "Nothing to do.")
		return s
	}

	for _, bucket := range diagnosis.Buckets {
		var lines []string
		for _, f := range result.Findings {
			if diagnosis.CategoryBucket[f.Category] != bucket {
				continue
			}
			for _, action := range f.Actions {
				lines = append(lines, "- "+action)
			}
		}
		if len(lines) == 0 {
			continue
		}
		s.Lines = append(s.Lines, string(bucket)+":")
		s.Lines = append(s.Lines, lines...)
	}
	return s
}

func workflowLabel(name, id string) string {
	if name != "" {
		return name
	}
	if id != "" {
		return id
	}
	return "(unknown)"
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
