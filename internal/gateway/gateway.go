// Package gateway runs read-only SQL against a workspace's embedded sqlite
// database by exec-ing the sqlite3 CLI inside the pod. There is no network
// path to the database; every query is one in-pod command.
package gateway

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ppiankov/flowmedic/internal/models"
)

// Executor runs commands inside workspace pods. Satisfied by k8s.Executor.
type Executor interface {
	ExecInPod(ctx context.Context, target models.Target, command []string) (stdout string, stderr string, exitCode int, err error)
}

// Gateway issues sqlite queries against a remote instance database.
type Gateway struct {
	exec   Executor
	dbPath string
}

// New creates a gateway for the database at dbPath inside the pod.
func New(exec Executor, dbPath string) *Gateway {
	return &Gateway{exec: exec, dbPath: dbPath}
}

// Probe verifies the database is reachable before an investigation starts.
// Any failure here means nothing else will work either.
func (g *Gateway) Probe(ctx context.Context, target models.Target) error {
	stdout, stderr, exitCode, err := g.exec.ExecInPod(ctx, target, g.command("SELECT 1;"))
	if err != nil {
		return &RemoteUnavailableError{Err: err}
	}
	if exitCode != 0 {
		return &RemoteUnavailableError{Err: &QueryFailedError{SQL: "SELECT 1;", Stderr: strings.TrimSpace(stderr)}}
	}
	if strings.TrimSpace(stdout) != "1" {
		return &RemoteUnavailableError{Err: &ParseFailedError{Raw: stdout, Reason: "probe did not return 1"}}
	}
	return nil
}

// Query runs a statement and parses its pipe-separated output into rows of
// cols fields.
func (g *Gateway) Query(ctx context.Context, target models.Target, sql string, cols int) ([][]string, error) {
	stdout, stderr, exitCode, err := g.exec.ExecInPod(ctx, target, g.command(sql))
	if err != nil {
		return nil, &RemoteUnavailableError{Err: err}
	}
	if exitCode != 0 {
		slog.Debug("query failed",
			slog.String("workspace", target.Workspace),
			slog.Int("exit_code", exitCode),
			slog.String("stderr", strings.TrimSpace(stderr)),
		)
		return nil, &QueryFailedError{SQL: sql, Stderr: strings.TrimSpace(stderr)}
	}

	return ParseRows(stdout, cols)
}

// QueryScalar runs a statement expected to return a single numeric value.
func (g *Gateway) QueryScalar(ctx context.Context, target models.Target, sql string) (int64, error) {
	rows, err := g.Query(ctx, target, sql, 1)
	if err != nil {
		return 0, err
	}
	if len(rows) != 1 {
		return 0, &ParseFailedError{Reason: "expected exactly one row"}
	}
	return ParseInt(rows[0][0])
}

// Exec runs a write statement. Remediation commands use it; the investigate
// path never does.
func (g *Gateway) Exec(ctx context.Context, target models.Target, sql string) error {
	_, stderr, exitCode, err := g.exec.ExecInPod(ctx, target, g.command(sql))
	if err != nil {
		return &RemoteUnavailableError{Err: err}
	}
	if exitCode != 0 {
		return &QueryFailedError{SQL: sql, Stderr: strings.TrimSpace(stderr)}
	}
	return nil
}

func (g *Gateway) command(sql string) []string {
	return []string{"sqlite3", g.dbPath, sql}
}

// QuoteLiteral escapes a string for embedding as a SQL literal.
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
