package main

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// NewLogsCmd creates the logs command.
func NewLogsCmd() *cobra.Command {
	cfg := loadConfig()

	var (
		container string
		tail      int64
		bundle    bool
		outDir    string
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show container logs, or bundle logs and events for escalation",
		Long: `Logs prints one container's log. --bundle instead collects every
container's log, the pod's events and its container states into a
tar.gz in the downloads directory, ready to attach to an escalation.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := newSession(ctx, cfg)
			if err != nil {
				return err
			}

			if bundle {
				dir := outDir
				if dir == "" {
					dir = cfg.DownloadsDir
				}
				path, err := writeLogBundle(ctx, s, dir, tail)
				if err != nil {
					return err
				}
				fmt.Printf("Bundle written: %s\n", path)
				return nil
			}

			target := s.dbTarget()
			if container != "" {
				target = target.WithContainer(container)
			} else {
				target = target.WithContainer(cfg.AppContainer)
			}

			logs, err := s.executor.ContainerLogs(ctx, target, tail)
			if err != nil {
				return err
			}
			fmt.Print(logs)
			return nil
		},
	}

	addWorkspaceFlags(cmd, cfg)
	cmd.Flags().StringVarP(&container, "container", "c", "", "Container to read (default: app container)")
	cmd.Flags().Int64Var(&tail, "tail", 200, "Lines from the end of the log (0 for all)")
	cmd.Flags().BoolVar(&bundle, "bundle", false, "Write a tar.gz of logs, events and pod state")
	cmd.Flags().StringVarP(&outDir, "output", "o", "", "Bundle output directory (default: downloads directory)")
	return cmd
}

// writeLogBundle gathers per-container logs, pod events and container states
// into one tar.gz. Individual collection failures become files in the bundle
// noting the error, so a half-broken pod still yields a useful archive.
func writeLogBundle(ctx context.Context, s *session, dir string, tail int64) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	name := fmt.Sprintf("%s-logs-%s.tar.gz", s.cfg.Workspace, time.Now().Format("20060102-150405"))
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create bundle: %w", err)
	}
	defer func() { _ = f.Close() }()

	zw := gzip.NewWriter(f)
	tw := tar.NewWriter(zw)

	addFile := func(name, content string) error {
		hdr := &tar.Header{
			Name:    name,
			Mode:    0o644,
			Size:    int64(len(content)),
			ModTime: time.Now(),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		_, err := tw.Write([]byte(content))
		return err
	}

	statuses, err := s.discovery.PodStatus(ctx, s.cfg.Workspace, s.pod.Name)
	if err != nil {
		if werr := addFile("pod.txt", fmt.Sprintf("pod status unavailable: %v\n", err)); werr != nil {
			return "", werr
		}
	} else {
		var b strings.Builder
		fmt.Fprintf(&b, "Pod: %s\nNode: %s\nPhase: %s\nStarted: %s\n\n",
			s.pod.Name, s.pod.Node, s.pod.Phase, s.pod.StartedAt.Format(time.RFC3339))
		for _, st := range statuses {
			fmt.Fprintf(&b, "container %s: ready=%t restarts=%d state=%s reason=%s\n",
				st.Name, st.Ready, st.RestartCount, st.State, st.Reason)
		}
		if err := addFile("pod.txt", b.String()); err != nil {
			return "", err
		}

		for _, st := range statuses {
			target := s.dbTarget().WithContainer(st.Name)
			logs, err := s.executor.ContainerLogs(ctx, target, tail)
			if err != nil {
				logs = fmt.Sprintf("logs unavailable: %v\n", err)
			}
			if err := addFile(fmt.Sprintf("logs-%s.txt", st.Name), logs); err != nil {
				return "", err
			}
		}
	}

	events, err := s.discovery.PodEvents(ctx, s.cfg.Workspace, s.pod.Name)
	if err != nil {
		if werr := addFile("events.txt", fmt.Sprintf("events unavailable: %v\n", err)); werr != nil {
			return "", werr
		}
	} else {
		var b strings.Builder
		for _, ev := range events {
			fmt.Fprintf(&b, "%s  %-8s %-20s %s\n",
				ev.Time.Format("2006-01-02 15:04:05"), ev.Type, ev.Reason, ev.Message)
		}
		if err := addFile("events.txt", b.String()); err != nil {
			return "", err
		}
	}

	if err := tw.Close(); err != nil {
		return "", fmt.Errorf("finish bundle: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("finish bundle: %w", err)
	}
	return path, nil
}
