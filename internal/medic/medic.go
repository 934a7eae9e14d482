// Package medic holds the mutating operations: canceling executions,
// deactivating workflows, pruning data. Everything here changes instance
// state, which is why it lives apart from the read-only investigation path.
package medic

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ppiankov/flowmedic/internal/gateway"
	"github.com/ppiankov/flowmedic/internal/models"
)

// A waitTill in the year 3000 marks executions parked forever by a broken
// Wait node.
const stuckWaitTill = "3000-01-01 00:00:00.000"

const backupScript = "/usr/local/bin/n8n-backup.py"

// Runner executes commands in pods. Satisfied by k8s.Executor.
type Runner interface {
	ExecInPod(ctx context.Context, target models.Target, command []string) (stdout string, stderr string, exitCode int, err error)
	ExecInPodWithStdin(ctx context.Context, target models.Target, command []string, stdin io.Reader) (stdout string, stderr string, exitCode int, err error)
	CopyFromPod(ctx context.Context, target models.Target, remotePath string, w io.Writer) error
}

// Instance groups the exec targets one workspace exposes: the database
// sidecar, the app container with the instance CLI, and the exporter service
// pod in its own namespace.
type Instance struct {
	DB       models.Target
	App      models.Target
	Exporter models.Target
}

// Medic performs remediation against one workspace.
type Medic struct {
	runner Runner
	gw     *gateway.Gateway
}

// New creates a medic. The gateway must point at the same database the
// runner's target containers see.
func New(runner Runner, gw *gateway.Gateway) *Medic {
	return &Medic{runner: runner, gw: gw}
}

// TakeBackup runs the instance backup script. Mutating operations call this
// first so there is always a restore point.
func (m *Medic) TakeBackup(ctx context.Context, target models.Target) error {
	stdout, stderr, exitCode, err := m.runner.ExecInPod(ctx, target, []string{"python3", backupScript})
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}
	if exitCode != 0 {
		return fmt.Errorf("backup script exited %d: %s", exitCode, stderr)
	}
	slog.Debug("backup complete", slog.String("workspace", target.Workspace), slog.String("output", stdout))
	return nil
}

// Workflow is one workflow row for listing.
type Workflow struct {
	ID     string
	Name   string
	Active bool
}

// ListWorkflows returns all workflows, active first, then by name.
func (m *Medic) ListWorkflows(ctx context.Context, target models.Target) ([]Workflow, error) {
	rows, err := m.gw.Query(ctx, target,
		"SELECT id, COALESCE(name, ''), active FROM workflow_entity ORDER BY active DESC, name ASC;", 3)
	if err != nil {
		return nil, err
	}

	workflows := make([]Workflow, 0, len(rows))
	for _, row := range rows {
		workflows = append(workflows, Workflow{
			ID:     row[0],
			Name:   row[1],
			Active: gateway.ParseBool(row[2]),
		})
	}
	return workflows, nil
}

// DeactivateWorkflow turns one workflow off. Returns whether it was active.
func (m *Medic) DeactivateWorkflow(ctx context.Context, target models.Target, workflowID string) (bool, error) {
	active, err := m.gw.QueryScalar(ctx, target, fmt.Sprintf(
		"SELECT COUNT(*) FROM workflow_entity WHERE id = %s AND active = 1;",
		gateway.QuoteLiteral(workflowID)))
	if err != nil {
		return false, err
	}
	if active == 0 {
		return false, nil
	}

	err = m.gw.Exec(ctx, target, fmt.Sprintf(
		"UPDATE workflow_entity SET active = 0 WHERE id = %s;",
		gateway.QuoteLiteral(workflowID)))
	return true, err
}

// DeactivateAll turns every active workflow off and returns how many were
// active.
func (m *Medic) DeactivateAll(ctx context.Context, target models.Target) (int64, error) {
	count, err := m.gw.QueryScalar(ctx, target, "SELECT COUNT(*) FROM workflow_entity WHERE active = 1;")
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}

	if err := m.gw.Exec(ctx, target, "UPDATE workflow_entity SET active = 0;"); err != nil {
		return 0, err
	}
	return count, nil
}

// Execution is one execution row for display.
type Execution struct {
	ID        int64
	Workflow  string
	Status    string
	StartedAt string
}

// ListExecutions returns recent executions with a given status, newest first.
func (m *Medic) ListExecutions(ctx context.Context, target models.Target, status string, limit int) ([]Execution, error) {
	sql := fmt.Sprintf(
		"SELECT e.id, COALESCE(w.name, COALESCE(e.workflowId, '')), COALESCE(e.status, ''), COALESCE(e.startedAt, '')"+
			" FROM execution_entity e LEFT JOIN workflow_entity w ON w.id = e.workflowId"+
			" WHERE e.status = %s ORDER BY e.id DESC LIMIT %d;",
		gateway.QuoteLiteral(status), limit)

	rows, err := m.gw.Query(ctx, target, sql, 4)
	if err != nil {
		return nil, err
	}

	executions := make([]Execution, 0, len(rows))
	for _, row := range rows {
		id, err := gateway.ParseInt(row[0])
		if err != nil {
			return nil, err
		}
		executions = append(executions, Execution{ID: id, Workflow: row[1], Status: row[2], StartedAt: row[3]})
	}
	return executions, nil
}

// CancelExecutions marks every execution with the given status as crashed so
// the instance stops reprocessing them. Returns how many were canceled.
func (m *Medic) CancelExecutions(ctx context.Context, target models.Target, status string) (int64, error) {
	count, err := m.gw.QueryScalar(ctx, target, fmt.Sprintf(
		"SELECT COUNT(*) FROM execution_entity WHERE status = %s;", gateway.QuoteLiteral(status)))
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}

	err = m.gw.Exec(ctx, target, fmt.Sprintf(
		"UPDATE execution_entity SET status = 'crashed', stoppedAt = datetime('now') WHERE status = %s;",
		gateway.QuoteLiteral(status)))
	if err != nil {
		return 0, err
	}
	return count, nil
}

// CancelStuckWaiting cancels executions parked on the year-3000 waitTill
// sentinel.
func (m *Medic) CancelStuckWaiting(ctx context.Context, target models.Target) (int64, error) {
	where := fmt.Sprintf("status = 'waiting' AND waitTill = %s", gateway.QuoteLiteral(stuckWaitTill))

	count, err := m.gw.QueryScalar(ctx, target,
		"SELECT COUNT(*) FROM execution_entity WHERE "+where+";")
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}

	err = m.gw.Exec(ctx, target,
		"UPDATE execution_entity SET status = 'crashed', stoppedAt = datetime('now') WHERE "+where+";")
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ExecutionDetail is one execution with its stored payload.
type ExecutionDetail struct {
	Execution
	StoppedAt string
	DataBytes int64
	Payload   string
}

// ShowExecution fetches one execution, optionally including its payload.
func (m *Medic) ShowExecution(ctx context.Context, target models.Target, id int64, withPayload bool) (*ExecutionDetail, error) {
	rows, err := m.gw.Query(ctx, target, fmt.Sprintf(
		"SELECT e.id, COALESCE(w.name, COALESCE(e.workflowId, '')), COALESCE(e.status, ''),"+
			" COALESCE(e.startedAt, ''), COALESCE(e.stoppedAt, ''), COALESCE(LENGTH(d.data), 0)"+
			" FROM execution_entity e"+
			" LEFT JOIN workflow_entity w ON w.id = e.workflowId"+
			" LEFT JOIN execution_data d ON d.executionId = e.id"+
			" WHERE e.id = %d;", id), 6)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("execution %d does not exist", id)
	}

	row := rows[0]
	dataBytes, err := gateway.ParseInt(row[5])
	if err != nil {
		return nil, err
	}
	detail := &ExecutionDetail{
		Execution: Execution{ID: id, Workflow: row[1], Status: row[2], StartedAt: row[3]},
		StoppedAt: row[4],
		DataBytes: dataBytes,
	}

	if withPayload && dataBytes > 0 {
		payload, err := m.gw.Query(ctx, target, fmt.Sprintf(
			"SELECT COALESCE(data, '') FROM execution_data WHERE executionId = %d;", id), 1)
		if err != nil {
			return nil, err
		}
		if len(payload) > 0 {
			detail.Payload = payload[0][0]
		}
	}
	return detail, nil
}

// StuckWaitingCount reports executions parked on the year-3000 waitTill
// sentinel without changing them.
func (m *Medic) StuckWaitingCount(ctx context.Context, target models.Target) (int64, error) {
	return m.gw.QueryScalar(ctx, target, fmt.Sprintf(
		"SELECT COUNT(*) FROM execution_entity WHERE status = 'waiting' AND waitTill = %s;",
		gateway.QuoteLiteral(stuckWaitTill)))
}

// PendingByWorkflow breaks the queued backlog down per workflow, largest
// first.
func (m *Medic) PendingByWorkflow(ctx context.Context, target models.Target) ([]WorkflowCount, error) {
	rows, err := m.gw.Query(ctx, target,
		"SELECT COALESCE(w.name, COALESCE(e.workflowId, '')), COUNT(*)"+
			" FROM execution_entity e LEFT JOIN workflow_entity w ON w.id = e.workflowId"+
			" WHERE e.status IN ('pending', 'new')"+
			" GROUP BY e.workflowId ORDER BY COUNT(*) DESC, e.workflowId ASC;", 2)
	if err != nil {
		return nil, err
	}

	counts := make([]WorkflowCount, 0, len(rows))
	for _, row := range rows {
		n, err := gateway.ParseInt(row[1])
		if err != nil {
			return nil, err
		}
		counts = append(counts, WorkflowCount{Workflow: row[0], Count: n})
	}
	return counts, nil
}

// WorkflowCount pairs a workflow with an execution count.
type WorkflowCount struct {
	Workflow string
	Count    int64
}

// PruneResult summarizes a prune pass.
type PruneResult struct {
	ExecutionsDeleted int64
	Vacuumed          bool
}

// Prune deletes executions older than the cutoff along with their payloads,
// then optionally VACUUMs to return the space to the filesystem. A non-empty
// workflowID restricts the pass to that workflow's executions.
func (m *Medic) Prune(ctx context.Context, target models.Target, olderThan time.Duration, workflowID string, vacuum bool) (PruneResult, error) {
	cutoff := gateway.QuoteLiteral(time.Now().UTC().Add(-olderThan).Format("2006-01-02 15:04:05"))

	where := fmt.Sprintf("startedAt < %s", cutoff)
	if workflowID != "" {
		where += fmt.Sprintf(" AND workflowId = %s", gateway.QuoteLiteral(workflowID))
	}

	count, err := m.gw.QueryScalar(ctx, target,
		"SELECT COUNT(*) FROM execution_entity WHERE "+where+";")
	if err != nil {
		return PruneResult{}, err
	}

	if count > 0 {
		// Payloads first so a failure between the two statements leaves no
		// orphaned data rows.
		if err := m.gw.Exec(ctx, target,
			"DELETE FROM execution_data WHERE executionId IN (SELECT id FROM execution_entity WHERE "+where+");"); err != nil {
			return PruneResult{}, err
		}
		if err := m.gw.Exec(ctx, target,
			"DELETE FROM execution_entity WHERE "+where+";"); err != nil {
			return PruneResult{}, err
		}
	}

	result := PruneResult{ExecutionsDeleted: count}
	if vacuum {
		if err := m.gw.Exec(ctx, target, "VACUUM;"); err != nil {
			return result, err
		}
		result.Vacuumed = true
	}
	return result, nil
}
