package gateway

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ppiankov/flowmedic/internal/models"
)

// fakeExecutor scripts sqlite3 invocations by SQL text.
type fakeExecutor struct {
	responses map[string]fakeResponse
	calls     []string
	execErr   error
}

type fakeResponse struct {
	stdout   string
	stderr   string
	exitCode int
}

func (f *fakeExecutor) ExecInPod(_ context.Context, _ models.Target, command []string) (string, string, int, error) {
	if f.execErr != nil {
		return "", "", -1, f.execErr
	}
	if len(command) != 3 || command[0] != "sqlite3" {
		return "", "", -1, fmt.Errorf("unexpected command: %v", command)
	}
	sql := command[2]
	f.calls = append(f.calls, sql)
	resp, ok := f.responses[sql]
	if !ok {
		return "", "unknown query", 1, nil
	}
	return resp.stdout, resp.stderr, resp.exitCode, nil
}

func testTarget() models.Target {
	return models.Target{Workspace: "acme-prod", Pod: "workflow-0", Container: "backup-cron"}
}

func TestParseRows(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		cols    int
		want    [][]string
		wantErr bool
	}{
		{
			name: "simple rows",
			raw:  "a|1\nb|2\n",
			cols: 2,
			want: [][]string{{"a", "1"}, {"b", "2"}},
		},
		{
			name: "extra pipes fold into last column",
			raw:  "wf1|Error: foo | bar | baz",
			cols: 2,
			want: [][]string{{"wf1", "Error: foo | bar | baz"}},
		},
		{
			name: "blank lines skipped",
			raw:  "\na|1\n\n",
			cols: 2,
			want: [][]string{{"a", "1"}},
		},
		{
			name:    "short row fails",
			raw:     "only-one-field",
			cols:    2,
			wantErr: true,
		},
		{
			name: "empty output",
			raw:  "",
			cols: 3,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRows(tt.raw, tt.cols)
			if tt.wantErr {
				var perr *ParseFailedError
				if !errors.As(err, &perr) {
					t.Fatalf("err = %v, want ParseFailedError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRows failed: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d rows, want %d", len(got), len(tt.want))
			}
			for i := range got {
				for j := range got[i] {
					if got[i][j] != tt.want[i][j] {
						t.Errorf("row %d col %d = %q, want %q", i, j, got[i][j], tt.want[i][j])
					}
				}
			}
		})
	}
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{input: "42", want: 42},
		{input: " 42 ", want: 42},
		{input: "", want: 0},
		{input: "1234.0", want: 1234},
		{input: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseInt(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseInt(%q) succeeded, want error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseInt(%q) failed: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseInt(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestProbe(t *testing.T) {
	exec := &fakeExecutor{responses: map[string]fakeResponse{
		"SELECT 1;": {stdout: "1\n"},
	}}
	g := New(exec, "database.sqlite")

	if err := g.Probe(context.Background(), testTarget()); err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
}

func TestProbeTransportFailure(t *testing.T) {
	exec := &fakeExecutor{execErr: fmt.Errorf("error dialing backend")}
	g := New(exec, "database.sqlite")

	err := g.Probe(context.Background(), testTarget())
	var unavailable *RemoteUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("err = %v, want RemoteUnavailableError", err)
	}
}

func TestProbeMissingBinary(t *testing.T) {
	exec := &fakeExecutor{responses: map[string]fakeResponse{
		"SELECT 1;": {stderr: "sh: sqlite3: not found", exitCode: 127},
	}}
	g := New(exec, "database.sqlite")

	err := g.Probe(context.Background(), testTarget())
	var unavailable *RemoteUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("err = %v, want RemoteUnavailableError", err)
	}
}

func TestQueryFailed(t *testing.T) {
	exec := &fakeExecutor{responses: map[string]fakeResponse{
		"SELECT x FROM missing;": {stderr: "Error: no such table: missing", exitCode: 1},
	}}
	g := New(exec, "database.sqlite")

	_, err := g.Query(context.Background(), testTarget(), "SELECT x FROM missing;", 1)
	var qerr *QueryFailedError
	if !errors.As(err, &qerr) {
		t.Fatalf("err = %v, want QueryFailedError", err)
	}
	if qerr.Stderr != "Error: no such table: missing" {
		t.Errorf("stderr = %q", qerr.Stderr)
	}
}

func TestQueryScalar(t *testing.T) {
	exec := &fakeExecutor{responses: map[string]fakeResponse{
		"SELECT COUNT(*) FROM execution_entity;": {stdout: "1234\n"},
	}}
	g := New(exec, "database.sqlite")

	got, err := g.QueryScalar(context.Background(), testTarget(), "SELECT COUNT(*) FROM execution_entity;")
	if err != nil {
		t.Fatalf("QueryScalar failed: %v", err)
	}
	if got != 1234 {
		t.Errorf("got %d, want 1234", got)
	}
}

func TestTableSizesExact(t *testing.T) {
	exec := &fakeExecutor{responses: map[string]fakeResponse{
		exactTableSizesSQL: {stdout: "execution_entity|1000\nexecution_data|50000\nworkflow_entity|1000\n"},
	}}
	g := New(exec, "database.sqlite")

	set, err := g.TableSizes(context.Background(), testTarget())
	if err != nil {
		t.Fatalf("TableSizes failed: %v", err)
	}
	if set.Accuracy != models.SizeExact {
		t.Errorf("accuracy = %v, want exact", set.Accuracy)
	}
	// Largest first, size ties broken by name.
	wantOrder := []string{"execution_data", "execution_entity", "workflow_entity"}
	for i, want := range wantOrder {
		if set.Entries[i].Name != want {
			t.Errorf("entry %d = %q, want %q", i, set.Entries[i].Name, want)
		}
	}
}

func TestTableSizesApproximateFallback(t *testing.T) {
	exec := &fakeExecutor{responses: map[string]fakeResponse{
		exactTableSizesSQL: {stderr: "Error: no such table: dbstat", exitCode: 1},
		databaseSizeSQL:    {stdout: "1000000\n"},
		userTablesSQL:      {stdout: "execution_data\nworkflow_entity\n"},
		"SELECT COUNT(*) FROM \"execution_data\";":  {stdout: "900\n"},
		"SELECT COUNT(*) FROM \"workflow_entity\";": {stdout: "100\n"},
	}}
	g := New(exec, "database.sqlite")

	set, err := g.TableSizes(context.Background(), testTarget())
	if err != nil {
		t.Fatalf("TableSizes failed: %v", err)
	}
	if set.Accuracy != models.SizeApproximate {
		t.Errorf("accuracy = %v, want approximate", set.Accuracy)
	}
	if len(set.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(set.Entries))
	}
	if set.Entries[0].Name != "execution_data" || set.Entries[0].SizeBytes != 900000 {
		t.Errorf("entry 0 = %+v, want execution_data 900000", set.Entries[0])
	}
	if set.Entries[1].SizeBytes != 100000 {
		t.Errorf("entry 1 size = %d, want 100000", set.Entries[1].SizeBytes)
	}
}

func TestQuoteLiteral(t *testing.T) {
	if got := QuoteLiteral("it's"); got != "'it''s'" {
		t.Errorf("QuoteLiteral = %q", got)
	}
	if got := QuoteLiteral("plain"); got != "'plain'" {
		t.Errorf("QuoteLiteral = %q", got)
	}
}
