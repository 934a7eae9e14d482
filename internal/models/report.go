package models

import "time"

// Severity ranks a finding. Ordering matters: critical sorts before warning,
// warning before info.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "critical"
	case SeverityWarning:
		return "warning"
	default:
		return "info"
	}
}

// Category labels a diagnosed issue.
type Category string

const (
	CategoryTableBloat           Category = "TableBloat"
	CategoryInactiveWorkflowData Category = "InactiveWorkflowData"
	CategoryLargeExecutions      Category = "LargeExecutions"
	CategoryPendingBacklog       Category = "PendingBacklog"
	CategoryDatabaseSize         Category = "DatabaseSize"
	CategoryHighErrorRate        Category = "HighErrorRate"
	CategoryHighVolume           Category = "HighVolume"
)

// Finding is one diagnosed issue. Findings are derived from a Snapshot and
// never stored; identical snapshots yield identical findings in identical
// order.
type Finding struct {
	Category    Category `json:"category"`
	Severity    Severity `json:"severity"`
	MetricValue float64  `json:"metric_value"`
	Threshold   float64  `json:"threshold"`
	Explanation string   `json:"explanation"`
	Actions     []string `json:"actions"`
}

// Notice records a rule that could not be evaluated because its metric was
// absent. Notices are kept apart from findings so missing data is never
// mistaken for a clean bill of health.
type Notice struct {
	Category Category `json:"category"`
	Metric   string   `json:"metric"`
	Reason   string   `json:"reason"`
}

// InvestigationResult bundles one collection pass with its diagnosis.
type InvestigationResult struct {
	Target      Target    `json:"target"`
	Snapshot    *Snapshot `json:"snapshot"`
	Findings    []Finding `json:"findings"`
	Notices     []Notice  `json:"notices"`
	GeneratedAt time.Time `json:"generated_at"`
	Version     string    `json:"version"`
}
