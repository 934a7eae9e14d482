package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/ppiankov/flowmedic/internal/gateway"
	"github.com/ppiankov/flowmedic/internal/k8s"
	"github.com/ppiankov/flowmedic/internal/medic"
	"github.com/ppiankov/flowmedic/internal/models"
	"github.com/ppiankov/flowmedic/pkg/config"
)

// loadConfig builds the runtime config: defaults, then the optional
// .flowmedic.yaml, with flags bound on top.
func loadConfig() *config.Config {
	cfg := config.DefaultConfig()

	fc, path, err := config.AutoLoadFile()
	if err != nil {
		slog.Warn("ignoring unreadable config file", slog.String("error", err.Error()))
		return cfg
	}
	if fc != nil {
		fc.Apply(cfg)
		slog.Debug("loaded config file", slog.String("path", path))
	}
	return cfg
}

// addWorkspaceFlags binds the instance-selection flags every workspace-scoped
// command shares.
func addWorkspaceFlags(cmd *cobra.Command, cfg *config.Config) {
	cmd.Flags().StringVarP(&cfg.Workspace, "workspace", "w", cfg.Workspace, "Workspace namespace (required)")
	cmd.Flags().StringVar(&cfg.KubeConfig, "kubeconfig", cfg.KubeConfig, "Path to kubeconfig (default: ~/.kube/config)")
	cmd.Flags().StringVar(&cfg.DBContainer, "db-container", cfg.DBContainer, "Container with sqlite access")
	cmd.Flags().StringVar(&cfg.DatabasePath, "database", cfg.DatabasePath, "Database path inside the container")
}

// session wires the Kubernetes plumbing for one workspace: client, pod
// discovery, exec, query gateway and medic.
type session struct {
	cfg       *config.Config
	discovery *k8s.Discovery
	executor  *k8s.Executor
	gw        *gateway.Gateway
	med       *medic.Medic
	pod       *k8s.PodInfo
}

func newSession(ctx context.Context, cfg *config.Config) (*session, error) {
	if cfg.Workspace == "" {
		return nil, fmt.Errorf("--workspace is required")
	}

	client, err := k8s.NewClient(cfg.KubeConfig)
	if err != nil {
		return nil, err
	}

	s := &session{
		cfg:       cfg,
		discovery: k8s.NewDiscovery(client, cfg.ExecRateLimit),
		executor:  k8s.NewExecutor(client, cfg.ExecRateLimit),
	}
	s.gw = gateway.New(s.executor, cfg.DatabasePath)
	s.med = medic.New(s.executor, s.gw)

	pod, err := s.discovery.FindPod(ctx, cfg.Workspace)
	if err != nil {
		return nil, err
	}
	s.pod = pod

	return s, nil
}

// dbTarget points at the database sidecar of the workspace pod.
func (s *session) dbTarget() models.Target {
	return models.Target{
		Workspace:    s.cfg.Workspace,
		Pod:          s.pod.Name,
		Container:    s.cfg.DBContainer,
		DatabasePath: s.cfg.DatabasePath,
	}
}

// appTarget points at the app container with the instance CLI.
func (s *session) appTarget() models.Target {
	t := s.dbTarget()
	return t.WithContainer(s.cfg.AppContainer)
}

// instance resolves the full exec-target set including the exporter pod.
// Commands that never touch the exporter pass needExporter=false and skip a
// discovery round trip.
func (s *session) instance(ctx context.Context, needExporter bool) (medic.Instance, error) {
	inst := medic.Instance{
		DB:  s.dbTarget(),
		App: s.appTarget(),
	}

	if needExporter {
		pod, err := s.discovery.FindPod(ctx, s.cfg.ExporterNamespace)
		if err != nil {
			return inst, fmt.Errorf("exporter service unavailable: %w", err)
		}
		inst.Exporter = models.Target{
			Workspace: s.cfg.ExporterNamespace,
			Pod:       pod.Name,
		}
	}

	return inst, nil
}

// confirm asks the operator before a destructive operation. --yes skips the
// prompt for scripted use.
func confirm(message string) error {
	if assumeYes {
		return nil
	}

	confirmed := false
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(message).
			Affirmative("Yes").
			Negative("No").
			Value(&confirmed),
	))
	if err := form.Run(); err != nil {
		return fmt.Errorf("confirmation prompt failed: %w", err)
	}
	if !confirmed {
		return errors.New("aborted by operator")
	}
	return nil
}
