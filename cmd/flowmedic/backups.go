package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewBackupsCmd creates the backups command group, backed by the exporter
// service in its own namespace.
func NewBackupsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backups",
		Short: "List or export stored workspace backups",
	}
	cmd.AddCommand(newBackupsListCmd())
	cmd.AddCommand(newBackupsExportCmd())
	cmd.AddCommand(newBackupsTakeCmd())
	return cmd
}

func newBackupsListCmd() *cobra.Command {
	cfg := loadConfig()

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored database dumps, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := newSession(ctx, cfg)
			if err != nil {
				return err
			}

			inst, err := s.instance(ctx, true)
			if err != nil {
				return err
			}

			backups, err := s.med.ListBackups(ctx, inst)
			if err != nil {
				return err
			}
			if len(backups) == 0 {
				fmt.Println("No stored backups.")
				return nil
			}
			for _, b := range backups {
				fmt.Println(b.Name)
			}
			return nil
		},
	}

	addWorkspaceFlags(cmd, cfg)
	return cmd
}

func newBackupsExportCmd() *cobra.Command {
	cfg := loadConfig()

	var outDir string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download the workspace's workflow archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := newSession(ctx, cfg)
			if err != nil {
				return err
			}

			inst, err := s.instance(ctx, true)
			if err != nil {
				return err
			}

			dir := outDir
			if dir == "" {
				dir = cfg.DownloadsDir
			}

			path, err := s.med.ExportBackup(ctx, inst, dir)
			if err != nil {
				return err
			}
			fmt.Printf("Archive downloaded: %s\n", path)
			return nil
		},
	}

	addWorkspaceFlags(cmd, cfg)
	cmd.Flags().StringVarP(&outDir, "output", "o", "", "Output directory (default: downloads directory)")
	return cmd
}

func newBackupsTakeCmd() *cobra.Command {
	cfg := loadConfig()

	cmd := &cobra.Command{
		Use:   "take",
		Short: "Run the instance backup script now",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := newSession(ctx, cfg)
			if err != nil {
				return err
			}

			if err := s.med.TakeBackup(ctx, s.dbTarget()); err != nil {
				return err
			}
			fmt.Println("Backup complete.")
			return nil
		},
	}

	addWorkspaceFlags(cmd, cfg)
	return cmd
}
