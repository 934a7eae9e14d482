package diagnosis

import (
	"reflect"
	"strings"
	"testing"

	"github.com/ppiankov/flowmedic/internal/models"
	"github.com/ppiankov/flowmedic/pkg/config"
)

func int64p(v int64) *int64 { return &v }

func emptySnapshot() *models.Snapshot {
	return &models.Snapshot{
		Workspace:         "acme-prod",
		DatabaseSizeBytes: int64p(50_000_000),
		TableSizes:        &models.TableSizeSet{Entries: []models.TableSize{{Name: "execution_data", SizeBytes: 10_000_000}}},
		LargestExecutions: []models.ExecutionSize{},
		WorkflowData:      []models.WorkflowDataTotal{},
		ErrorWorkflows24h: []models.ErrorWorkflow{},
		QueueCounts: map[models.QueueStatus]int64{
			models.QueuePending: 0, models.QueueNew: 0,
			models.QueueWaiting: 0, models.QueueRunning: 0,
		},
		Executions24h: int64p(100),
	}
}

func findingFor(findings []models.Finding, category models.Category) *models.Finding {
	for i := range findings {
		if findings[i].Category == category {
			return &findings[i]
		}
	}
	return nil
}

func TestDiagnoseHealthySnapshot(t *testing.T) {
	findings, notices := Diagnose(emptySnapshot(), config.DefaultThresholds())
	if len(findings) != 0 {
		t.Errorf("findings = %+v, want none", findings)
	}
	if len(notices) != 0 {
		t.Errorf("notices = %+v, want none", notices)
	}
}

func TestDiagnoseOversizedDatabase(t *testing.T) {
	snap := emptySnapshot()
	snap.DatabaseSizeBytes = int64p(565_000_000)
	snap.TableSizes = &models.TableSizeSet{Entries: []models.TableSize{
		{Name: "execution_data", SizeBytes: 196_000_000},
	}}

	findings, _ := Diagnose(snap, config.DefaultThresholds())

	db := findingFor(findings, models.CategoryDatabaseSize)
	if db == nil || db.Severity != models.SeverityCritical {
		t.Errorf("DatabaseSize = %+v, want critical", db)
	}
	bloat := findingFor(findings, models.CategoryTableBloat)
	if bloat == nil || bloat.Severity != models.SeverityWarning {
		t.Errorf("TableBloat = %+v, want warning", bloat)
	}
	// Critical sorts before warning.
	if findings[0].Category != models.CategoryDatabaseSize {
		t.Errorf("first finding = %s, want DatabaseSize", findings[0].Category)
	}
}

func TestDiagnoseDatabaseWarnBand(t *testing.T) {
	snap := emptySnapshot()
	snap.DatabaseSizeBytes = int64p(250_000_000)

	findings, _ := Diagnose(snap, config.DefaultThresholds())
	db := findingFor(findings, models.CategoryDatabaseSize)
	if db == nil || db.Severity != models.SeverityWarning {
		t.Errorf("DatabaseSize = %+v, want warning", db)
	}
}

func TestDiagnosePendingBacklog(t *testing.T) {
	tests := []struct {
		name    string
		pending int64
		queued  int64
		want    bool
	}{
		{name: "over threshold fires", pending: 150, want: true},
		{name: "under threshold quiet", pending: 80, want: false},
		{name: "new status counts as queued", queued: 150, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := emptySnapshot()
			snap.QueueCounts[models.QueuePending] = tt.pending
			snap.QueueCounts[models.QueueNew] = tt.queued

			findings, _ := Diagnose(snap, config.DefaultThresholds())
			f := findingFor(findings, models.CategoryPendingBacklog)
			if tt.want && (f == nil || f.Severity != models.SeverityCritical) {
				t.Errorf("PendingBacklog = %+v, want critical finding", f)
			}
			if !tt.want && f != nil {
				t.Errorf("PendingBacklog fired at %+v", f)
			}
		})
	}
}

func TestDiagnoseInactiveWorkflowData(t *testing.T) {
	snap := emptySnapshot()
	snap.WorkflowData = []models.WorkflowDataTotal{
		{WorkflowID: "wf1", WorkflowName: "Active One", Active: true, TotalDataBytes: 90_000_000},
		{WorkflowID: "wf2", WorkflowName: "Dead Sync", Active: false, TotalDataBytes: 8_000_000},
		{WorkflowID: "wf3", WorkflowName: "Old Import", Active: false, TotalDataBytes: 7_000_000},
	}

	findings, _ := Diagnose(snap, config.DefaultThresholds())
	f := findingFor(findings, models.CategoryInactiveWorkflowData)
	if f == nil {
		t.Fatal("expected InactiveWorkflowData finding")
	}
	if f.MetricValue != 15_000_000 {
		t.Errorf("metric = %v, want summed 15000000", f.MetricValue)
	}
	// The worst offender is named in the first action.
	if len(f.Actions) == 0 || !contains(f.Actions[0], "Dead Sync") {
		t.Errorf("actions = %v, want worst offender named", f.Actions)
	}
}

func TestDiagnoseLargeExecutions(t *testing.T) {
	snap := emptySnapshot()
	snap.LargestExecutions = []models.ExecutionSize{
		{ExecutionID: 10, DataSizeBytes: 15_000_000},
		{ExecutionID: 9, DataSizeBytes: 12_000_000},
		{ExecutionID: 8, DataSizeBytes: 2_000_000},
	}

	findings, _ := Diagnose(snap, config.DefaultThresholds())
	f := findingFor(findings, models.CategoryLargeExecutions)
	if f == nil {
		t.Fatal("expected LargeExecutions finding")
	}
	if f.MetricValue != 2 {
		t.Errorf("metric = %v, want 2 offending executions", f.MetricValue)
	}
}

func TestDiagnoseHighErrorRate(t *testing.T) {
	snap := emptySnapshot()
	snap.ErrorWorkflows24h = []models.ErrorWorkflow{
		{WorkflowID: "wf2", WorkflowName: "Invoices", ErrorCount: 60},
		{WorkflowID: "wf3", WorkflowName: "Minor", ErrorCount: 5},
	}

	findings, _ := Diagnose(snap, config.DefaultThresholds())
	f := findingFor(findings, models.CategoryHighErrorRate)
	if f == nil || f.Severity != models.SeverityWarning {
		t.Fatalf("HighErrorRate = %+v, want warning", f)
	}
	if !contains(f.Explanation, "Invoices") {
		t.Errorf("explanation = %q, want worst workflow named", f.Explanation)
	}
}

func TestDiagnoseHighVolume(t *testing.T) {
	snap := emptySnapshot()
	snap.Executions24h = int64p(800)

	findings, _ := Diagnose(snap, config.DefaultThresholds())
	f := findingFor(findings, models.CategoryHighVolume)
	if f == nil || f.Severity != models.SeverityInfo {
		t.Errorf("HighVolume = %+v, want info", f)
	}
}

func TestDiagnoseAbsentMetricNeverFires(t *testing.T) {
	snap := emptySnapshot()
	snap.DatabaseSizeBytes = nil
	snap.QueueCounts = nil
	snap.Gaps = []models.DataGap{
		{Metric: models.MetricDatabaseSize, Reason: "query failed: database is locked"},
		{Metric: models.MetricQueueStatus, Reason: "query failed: database is locked"},
	}

	findings, notices := Diagnose(snap, config.DefaultThresholds())

	if findingFor(findings, models.CategoryDatabaseSize) != nil {
		t.Error("DatabaseSize fired on absent metric")
	}
	if findingFor(findings, models.CategoryPendingBacklog) != nil {
		t.Error("PendingBacklog fired on absent metric")
	}
	if len(notices) != 2 {
		t.Fatalf("notices = %+v, want 2", notices)
	}
	for _, n := range notices {
		if n.Reason == "" {
			t.Errorf("notice %s has no reason", n.Category)
		}
	}
}

func TestDiagnoseApproximateSizesThresholdIdentically(t *testing.T) {
	snap := emptySnapshot()
	snap.TableSizes = &models.TableSizeSet{
		Entries:  []models.TableSize{{Name: "execution_data", SizeBytes: 196_000_000}},
		Accuracy: models.SizeApproximate,
	}

	findings, _ := Diagnose(snap, config.DefaultThresholds())
	if findingFor(findings, models.CategoryTableBloat) == nil {
		t.Error("approximate size should threshold like an exact one")
	}
}

func TestDiagnoseDeterministicOrder(t *testing.T) {
	snap := emptySnapshot()
	snap.DatabaseSizeBytes = int64p(565_000_000)
	snap.QueueCounts[models.QueuePending] = 150
	snap.Executions24h = int64p(800)
	snap.TableSizes = &models.TableSizeSet{Entries: []models.TableSize{
		{Name: "execution_data", SizeBytes: 196_000_000},
	}}

	first, _ := Diagnose(snap, config.DefaultThresholds())
	second, _ := Diagnose(snap, config.DefaultThresholds())

	if !reflect.DeepEqual(first, second) {
		t.Fatal("identical snapshots produced different finding lists")
	}

	// critical (DatabaseSize, PendingBacklog by category name), then warning,
	// then info.
	wantOrder := []models.Category{
		models.CategoryDatabaseSize,
		models.CategoryPendingBacklog,
		models.CategoryTableBloat,
		models.CategoryHighVolume,
	}
	if len(first) != len(wantOrder) {
		t.Fatalf("got %d findings, want %d: %+v", len(first), len(wantOrder), first)
	}
	for i, want := range wantOrder {
		if first[i].Category != want {
			t.Errorf("finding %d = %s, want %s", i, first[i].Category, want)
		}
	}
}

func TestCategoryBucketCoversAllCategories(t *testing.T) {
	categories := []models.Category{
		models.CategoryTableBloat,
		models.CategoryInactiveWorkflowData,
		models.CategoryLargeExecutions,
		models.CategoryPendingBacklog,
		models.CategoryDatabaseSize,
		models.CategoryHighErrorRate,
		models.CategoryHighVolume,
	}
	for _, c := range categories {
		if _, ok := CategoryBucket[c]; !ok {
			t.Errorf("category %s has no urgency bucket", c)
		}
	}
}

func contains(s, sub string) bool {
	return strings.Contains(s, sub)
}
