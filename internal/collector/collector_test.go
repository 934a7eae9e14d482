package collector

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/flowmedic/internal/gateway"
	"github.com/ppiankov/flowmedic/internal/models"
	"github.com/ppiankov/flowmedic/pkg/config"
)

// scriptedExecutor answers sqlite3 invocations by matching SQL fragments.
type scriptedExecutor struct {
	scripts []script
}

type script struct {
	contains string
	stdout   string
	stderr   string
	exitCode int
}

func (s *scriptedExecutor) ExecInPod(_ context.Context, _ models.Target, command []string) (string, string, int, error) {
	sql := command[len(command)-1]
	for _, sc := range s.scripts {
		if strings.Contains(sql, sc.contains) {
			return sc.stdout, sc.stderr, sc.exitCode, nil
		}
	}
	return "", "no script for query: " + sql, 1, nil
}

func healthyScripts() []script {
	return []script{
		{contains: "SELECT 1;", stdout: "1\n"},
		{contains: "FROM dbstat", stdout: "execution_data|150000000\nexecution_entity|20000000\n"},
		{contains: "pragma_page_count", stdout: "250000000\n"},
		{contains: "ORDER BY LENGTH(d.data) DESC", stdout: "901|wf1|Order Sync|12000000|success\n900|wf2|Invoices|9000000|error\n"},
		{contains: "GROUP BY w.id", stdout: "wf1|Order Sync|1|80000000|400\nwf2|Invoices|0|30000000|90\n"},
		{contains: "IN ('error', 'crashed', 'failed')", stdout: "wf2|Invoices|60|Error: connection refused | retry exhausted\n"},
		{contains: "ORDER BY COUNT(*) DESC, e.workflowId ASC LIMIT", stdout: "wf1|Order Sync|300\nwf2|Invoices|120\n"},
		{contains: "IN ('pending', 'new', 'waiting', 'running')", stdout: "new|150\nwaiting|3\n"},
		{contains: "DATE(startedAt)", stdout: "2026-08-20|420\n2026-08-22|380\n"},
		{contains: "(SELECT COUNT(*) FROM execution_entity),", stdout: "10000|12|8|430\n"},
	}
}

func fixedNow() time.Time {
	return time.Date(2026, 8, 24, 10, 30, 0, 0, time.UTC)
}

func newTestCollector(scripts []script) *Collector {
	exec := &scriptedExecutor{scripts: scripts}
	gw := gateway.New(exec, "database.sqlite")
	cfg := config.DefaultConfig()
	c := New(gw, cfg)
	c.now = fixedNow
	return c
}

func target() models.Target {
	return models.Target{Workspace: "acme-prod", Pod: "workflow-0", Container: "backup-cron"}
}

func TestBuildSnapshotComplete(t *testing.T) {
	c := newTestCollector(healthyScripts())

	snap, err := c.BuildSnapshot(context.Background(), target())
	if err != nil {
		t.Fatalf("BuildSnapshot failed: %v", err)
	}

	if len(snap.Gaps) != 0 {
		t.Fatalf("gaps = %v, want none", snap.Gaps)
	}
	if snap.DatabaseSizeBytes == nil || *snap.DatabaseSizeBytes != 250000000 {
		t.Errorf("DatabaseSizeBytes = %v, want 250000000", snap.DatabaseSizeBytes)
	}
	if snap.TableSizes == nil || len(snap.TableSizes.Entries) != 2 {
		t.Fatalf("TableSizes = %v, want 2 entries", snap.TableSizes)
	}
	if snap.TableSizes.Entries[0].Name != "execution_data" {
		t.Errorf("largest table = %q, want execution_data", snap.TableSizes.Entries[0].Name)
	}
	if snap.TableSizes.Accuracy != models.SizeExact {
		t.Errorf("accuracy = %v, want exact", snap.TableSizes.Accuracy)
	}
	if len(snap.LargestExecutions) != 2 || snap.LargestExecutions[0].ExecutionID != 901 {
		t.Errorf("LargestExecutions = %+v", snap.LargestExecutions)
	}
	if len(snap.WorkflowData) != 2 || snap.WorkflowData[1].Active {
		t.Errorf("WorkflowData = %+v", snap.WorkflowData)
	}
	if len(snap.ErrorWorkflows24h) != 1 {
		t.Fatalf("ErrorWorkflows24h = %+v", snap.ErrorWorkflows24h)
	}
	// Pipes inside the error sample fold into the sample column.
	if snap.ErrorWorkflows24h[0].SampleError != "Error: connection refused | retry exhausted" {
		t.Errorf("SampleError = %q", snap.ErrorWorkflows24h[0].SampleError)
	}
	if snap.TotalExecutions == nil || *snap.TotalExecutions != 10000 {
		t.Errorf("TotalExecutions = %v, want 10000", snap.TotalExecutions)
	}
	if snap.Executions24h == nil || *snap.Executions24h != 430 {
		t.Errorf("Executions24h = %v, want 430", snap.Executions24h)
	}
}

func TestBuildSnapshotQueueZeroFill(t *testing.T) {
	c := newTestCollector(healthyScripts())

	snap, err := c.BuildSnapshot(context.Background(), target())
	if err != nil {
		t.Fatalf("BuildSnapshot failed: %v", err)
	}

	if len(snap.QueueCounts) != len(models.QueueStatuses) {
		t.Fatalf("queue has %d statuses, want %d", len(snap.QueueCounts), len(models.QueueStatuses))
	}
	if snap.QueueCounts[models.QueueNew] != 150 {
		t.Errorf("new = %d, want 150", snap.QueueCounts[models.QueueNew])
	}
	if snap.QueueCounts[models.QueueWaiting] != 3 {
		t.Errorf("waiting = %d, want 3", snap.QueueCounts[models.QueueWaiting])
	}
	// Statuses with no rows are observed zeros.
	if snap.QueueCounts[models.QueueRunning] != 0 || snap.QueueCounts[models.QueuePending] != 0 {
		t.Errorf("running/pending = %d/%d, want 0/0",
			snap.QueueCounts[models.QueueRunning], snap.QueueCounts[models.QueuePending])
	}
}

func TestBuildSnapshotGrowthTrendZeroFill(t *testing.T) {
	c := newTestCollector(healthyScripts())

	snap, err := c.BuildSnapshot(context.Background(), target())
	if err != nil {
		t.Fatalf("BuildSnapshot failed: %v", err)
	}

	if len(snap.GrowthTrend) != growthTrendDays {
		t.Fatalf("trend has %d points, want %d", len(snap.GrowthTrend), growthTrendDays)
	}
	// Oldest day first, every day present.
	first := snap.GrowthTrend[0]
	if got := first.Date.Format("2006-01-02"); got != "2026-08-18" {
		t.Errorf("first day = %s, want 2026-08-18", got)
	}
	byDate := map[string]int64{}
	for _, p := range snap.GrowthTrend {
		byDate[p.Date.Format("2006-01-02")] = p.NewExecutions
	}
	if byDate["2026-08-20"] != 420 {
		t.Errorf("2026-08-20 = %d, want 420", byDate["2026-08-20"])
	}
	if byDate["2026-08-21"] != 0 {
		t.Errorf("2026-08-21 = %d, want zero-filled 0", byDate["2026-08-21"])
	}
}

func TestBuildSnapshotDegradesToGap(t *testing.T) {
	scripts := healthyScripts()
	for i := range scripts {
		if scripts[i].contains == "FROM dbstat" {
			scripts[i] = script{contains: "FROM dbstat", stderr: "Error: no such table: dbstat", exitCode: 1}
		}
		if scripts[i].contains == "pragma_page_count" {
			scripts[i] = script{contains: "pragma_page_count", stderr: "Error: database is locked", exitCode: 1}
		}
	}
	c := newTestCollector(scripts)

	snap, err := c.BuildSnapshot(context.Background(), target())
	if err != nil {
		t.Fatalf("BuildSnapshot failed: %v", err)
	}

	if snap.DatabaseSizeBytes != nil {
		t.Error("DatabaseSizeBytes should be absent, not zero")
	}
	if snap.TableSizes != nil {
		t.Error("TableSizes should be absent")
	}
	if _, ok := snap.Gap(models.MetricDatabaseSize); !ok {
		t.Error("expected gap for database_size")
	}
	if _, ok := snap.Gap(models.MetricTableSizes); !ok {
		t.Error("expected gap for table_sizes")
	}
	// Unaffected collectors still land.
	if snap.TotalExecutions == nil {
		t.Error("TotalExecutions should survive other collectors failing")
	}
}

func TestBuildSnapshotExcludesTables(t *testing.T) {
	c := newTestCollector(healthyScripts())
	c.cfg.ExcludeTables = []string{"execution_entity"}
	c.cfg.Normalize()

	snap, err := c.BuildSnapshot(context.Background(), target())
	if err != nil {
		t.Fatalf("BuildSnapshot failed: %v", err)
	}

	for _, e := range snap.TableSizes.Entries {
		if e.Name == "execution_entity" {
			t.Error("excluded table present in snapshot")
		}
	}
}

func TestBuildSnapshotRemoteUnavailable(t *testing.T) {
	c := newTestCollector([]script{
		{contains: "SELECT 1;", stderr: "error: unable to upgrade connection", exitCode: 1},
	})

	_, err := c.BuildSnapshot(context.Background(), target())
	var unavailable *gateway.RemoteUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("err = %v, want RemoteUnavailableError", err)
	}
}
