package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ppiankov/flowmedic/internal/gateway"
	"github.com/ppiankov/flowmedic/internal/k8s"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"findings", &FindingsError{Count: 3}, ExitFindings},
		{"wrapped findings", fmt.Errorf("gate: %w", &FindingsError{Count: 1}), ExitFindings},
		{"remote unavailable", &gateway.RemoteUnavailableError{Err: errors.New("probe failed")}, ExitNetwork},
		{"pod not found", fmt.Errorf("workspace acme: %w", k8s.ErrNotFound), ExitNotFound},
		{"not found text", errors.New("workflow does not exist"), ExitNotFound},
		{"network text", errors.New("dial tcp 10.0.0.1:443: i/o timeout"), ExitNetwork},
		{"invalid arg text", errors.New("--workspace is required"), ExitInvalidArg},
		{"generic", errors.New("something broke"), ExitInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyError(tt.err); got != tt.want {
				t.Errorf("classifyError(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestFindingsErrorMessage(t *testing.T) {
	err := &FindingsError{Count: 2}
	if err.Error() != "2 findings detected" {
		t.Errorf("Error() = %q", err.Error())
	}
}
