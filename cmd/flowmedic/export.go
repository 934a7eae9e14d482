package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewExportCmd creates the export command: dump all workflow definitions from
// the instance CLI into a local gzipped JSON file.
func NewExportCmd() *cobra.Command {
	cfg := loadConfig()

	var outDir string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all workflow definitions to a local file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := newSession(ctx, cfg)
			if err != nil {
				return err
			}

			inst, err := s.instance(ctx, false)
			if err != nil {
				return err
			}

			dir := outDir
			if dir == "" {
				dir = cfg.DownloadsDir
			}

			path, err := s.med.ExportWorkflows(ctx, inst, dir)
			if err != nil {
				return err
			}
			fmt.Printf("Workflows exported: %s\n", path)
			return nil
		},
	}

	addWorkspaceFlags(cmd, cfg)
	cmd.Flags().StringVarP(&outDir, "output", "o", "", "Output directory (default: downloads directory)")
	return cmd
}
