package models

import "time"

// Target identifies the instance a command operates on: the workspace
// namespace, its runtime pod, the container to exec into, and the path of the
// embedded database inside that container.
type Target struct {
	Workspace    string
	Pod          string
	Container    string
	DatabasePath string
}

// WithContainer returns a copy of the target pointing at another container
// of the same pod.
func (t Target) WithContainer(container string) Target {
	t.Container = container
	return t
}

// SizeAccuracy tags how a size figure was obtained.
type SizeAccuracy int

const (
	// SizeExact means the store's own page accounting was used.
	SizeExact SizeAccuracy = iota
	// SizeApproximate means a row-count heuristic was used because exact
	// introspection is unavailable on this instance.
	SizeApproximate
)

func (a SizeAccuracy) String() string {
	if a == SizeApproximate {
		return "approximate"
	}
	return "exact"
}

// TableSize is one table's on-disk footprint.
type TableSize struct {
	Name      string `json:"name"`
	SizeBytes int64  `json:"size_bytes"`
}

// TableSizeSet holds per-table sizes sorted descending by size
// (ties broken by name ascending), plus how they were measured.
type TableSizeSet struct {
	Entries  []TableSize  `json:"entries"`
	Accuracy SizeAccuracy `json:"accuracy"`
}

// ExecutionSize is one execution record joined with its stored payload size.
type ExecutionSize struct {
	ExecutionID   int64  `json:"execution_id"`
	WorkflowID    string `json:"workflow_id"`
	WorkflowName  string `json:"workflow_name"`
	DataSizeBytes int64  `json:"data_size_bytes"`
	Status        string `json:"status"`
}

// WorkflowDataTotal aggregates stored payload bytes per workflow.
type WorkflowDataTotal struct {
	WorkflowID     string `json:"workflow_id"`
	WorkflowName   string `json:"workflow_name"`
	Active         bool   `json:"active"`
	TotalDataBytes int64  `json:"total_data_bytes"`
	ExecutionCount int64  `json:"execution_count"`
}

// WorkflowExecutionCount is a workflow's execution count inside the 24h window.
type WorkflowExecutionCount struct {
	WorkflowID     string `json:"workflow_id"`
	WorkflowName   string `json:"workflow_name"`
	ExecutionCount int64  `json:"execution_count"`
}

// ErrorWorkflow is a workflow with failed executions in the 24h window.
// SampleError is the most recent error payload excerpt, not an arbitrary one.
type ErrorWorkflow struct {
	WorkflowID   string `json:"workflow_id"`
	WorkflowName string `json:"workflow_name"`
	ErrorCount   int64  `json:"error_count"`
	SampleError  string `json:"sample_error"`
}

// QueueStatus is an execution lifecycle state.
type QueueStatus string

const (
	QueuePending QueueStatus = "pending"
	QueueWaiting QueueStatus = "waiting"
	QueueRunning QueueStatus = "running"
	QueueNew     QueueStatus = "new"
)

// QueueStatuses lists every status a queue snapshot carries, in display order.
var QueueStatuses = []QueueStatus{QueuePending, QueueWaiting, QueueRunning, QueueNew}

// GrowthPoint is one calendar day's new-execution count.
type GrowthPoint struct {
	Date          time.Time `json:"date"`
	NewExecutions int64     `json:"new_executions"`
}

// Metric names used for data-gap bookkeeping. Absence and zero are distinct:
// a failed collector records a gap, it never records a zero.
const (
	MetricDatabaseSize      = "database_size"
	MetricTableSizes        = "table_sizes"
	MetricLargestExecutions = "largest_executions"
	MetricWorkflowData      = "workflow_data"
	MetricTopWorkflows24h   = "top_workflows_24h"
	MetricErrorWorkflows24h = "error_workflows_24h"
	MetricQueueStatus       = "queue_status"
	MetricGrowthTrend       = "growth_trend"
	MetricTotals            = "totals"
)

// DataGap records one collector that could not produce its metric.
type DataGap struct {
	Metric string `json:"metric"`
	Reason string `json:"reason"`
}

// Snapshot is the immutable result of one collection pass. Every field may be
// absent (nil) when its collector failed; the failure reason lives in Gaps.
type Snapshot struct {
	Workspace string    `json:"workspace"`
	TakenAt   time.Time `json:"taken_at"`

	DatabaseSizeBytes *int64                   `json:"database_size_bytes,omitempty"`
	TableSizes        *TableSizeSet            `json:"table_sizes,omitempty"`
	LargestExecutions []ExecutionSize          `json:"largest_executions,omitempty"`
	WorkflowData      []WorkflowDataTotal      `json:"workflow_data,omitempty"`
	TopWorkflows24h   []WorkflowExecutionCount `json:"top_workflows_24h,omitempty"`
	ErrorWorkflows24h []ErrorWorkflow          `json:"error_workflows_24h,omitempty"`
	QueueCounts       map[QueueStatus]int64    `json:"queue_counts,omitempty"`
	GrowthTrend       []GrowthPoint            `json:"growth_trend,omitempty"`

	TotalExecutions   *int64 `json:"total_executions,omitempty"`
	ActiveWorkflows   *int64 `json:"active_workflows,omitempty"`
	InactiveWorkflows *int64 `json:"inactive_workflows,omitempty"`
	Executions24h     *int64 `json:"executions_24h,omitempty"`

	Gaps []DataGap `json:"gaps,omitempty"`
}

// Gap returns the recorded failure reason for a metric, if any.
func (s *Snapshot) Gap(metric string) (string, bool) {
	for _, gap := range s.Gaps {
		if gap.Metric == metric {
			return gap.Reason, true
		}
	}
	return "", false
}
