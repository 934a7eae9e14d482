package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/flowmedic/internal/app"
	"github.com/ppiankov/flowmedic/internal/gateway"
	"github.com/ppiankov/flowmedic/internal/k8s"
	"github.com/ppiankov/flowmedic/internal/logging"
)

var (
	version    = "1.0.0"
	verbose    bool
	assumeYes  bool
	isFirstRun bool
)

// Exit codes for structured error reporting.
const (
	ExitSuccess    = 0
	ExitInternal   = 1
	ExitInvalidArg = 2
	ExitNotFound   = 3
	ExitNetwork    = 5
	ExitFindings   = 6
)

// FindingsError indicates the investigation completed but findings were
// detected. Used with --fail-on-findings for scripted health gates.
type FindingsError struct {
	Count int
}

func (e *FindingsError) Error() string {
	return fmt.Sprintf("%d findings detected", e.Count)
}

func main() {
	logging.Init(false)
	isFirstRun = app.IsFirstRun()

	root := &cobra.Command{
		Use:   "flowmedic",
		Short: "Workflow instance doctor",
		Long: `Flowmedic diagnoses and repairs managed workflow instances running
in Kubernetes. It inspects the embedded database through pod exec,
explains why an instance is crashing or out of memory, and carries the
remediation commands an on-call operator needs.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Init(verbose)
		},
	}

	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose logging")
	root.PersistentFlags().BoolVar(&assumeYes, "yes", false, "Skip confirmation prompts")
	root.SilenceUsage = true
	root.SilenceErrors = true

	root.AddCommand(NewInvestigateCmd())
	root.AddCommand(NewHealthCmd())
	root.AddCommand(NewStatusCmd())
	root.AddCommand(NewWorkflowsCmd())
	root.AddCommand(NewExecutionsCmd())
	root.AddCommand(NewPruneCmd())
	root.AddCommand(NewExportCmd())
	root.AddCommand(NewImportCmd())
	root.AddCommand(NewBackupsCmd())
	root.AddCommand(NewLogsCmd())
	root.AddCommand(NewOwnerCmd())
	root.AddCommand(NewMFACmd())
	root.AddCommand(NewVersionCmd())

	if isFirstRun {
		fmt.Fprintln(os.Stderr, "Welcome to flowmedic. Settings load from .flowmedic.yaml in the current or home directory.")
		fmt.Fprintln(os.Stderr, "Start with: flowmedic investigate -w <workspace>")
	}

	if err := root.Execute(); err != nil {
		exitCode := classifyError(err)
		var fe *FindingsError
		if errors.As(err, &fe) {
			slog.Info("findings detected", slog.Int("count", fe.Count))
		} else {
			slog.Error("command failed", slog.String("error", err.Error()))
		}
		os.Exit(exitCode)
	}
}

func classifyError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var fe *FindingsError
	if errors.As(err, &fe) {
		return ExitFindings
	}

	var unavailable *gateway.RemoteUnavailableError
	if errors.As(err, &unavailable) {
		return ExitNetwork
	}

	if errors.Is(err, k8s.ErrNotFound) || os.IsNotExist(err) {
		return ExitNotFound
	}

	msg := strings.ToLower(err.Error())

	if strings.Contains(msg, "does not exist") ||
		strings.Contains(msg, "no such file") ||
		strings.Contains(msg, "not found") {
		return ExitNotFound
	}

	if strings.Contains(msg, "dial") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "i/o timeout") ||
		strings.Contains(msg, "network is unreachable") ||
		strings.Contains(msg, "unreachable") {
		return ExitNetwork
	}

	if strings.Contains(msg, "required") ||
		strings.Contains(msg, "invalid") ||
		strings.Contains(msg, "must be") ||
		strings.Contains(msg, "expected") {
		return ExitInvalidArg
	}

	return ExitInternal
}
