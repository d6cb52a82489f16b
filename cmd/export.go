package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/iksnae/aichat/internal"
	"github.com/iksnae/aichat/internal/export"
	"github.com/spf13/cobra"
)

var (
	format    string
	outputDir string
	exportAll bool
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export [session-id]",
	Short: "Export archived sessions to file",
	Long: `Export archived sessions to various formats (jsonl, md, yaml, json).

Pass a session ID to export one session, or --all to export every
archived session. Use 'aichat sessions' to see available session IDs.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && !exportAll {
			return fmt.Errorf("either a session ID or --all is required (use 'aichat sessions' to see available sessions)")
		}

		store, err := openArchive()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		var dumps []*internal.SessionDump
		if exportAll {
			infos, err := store.List()
			if err != nil {
				return err
			}
			for _, info := range infos {
				dump, err := store.Load(info.ID)
				if err != nil {
					internal.LogWarn("Failed to load session %s: %v", info.ID, err)
					continue
				}
				dumps = append(dumps, dump)
			}
		} else {
			dump, err := store.Load(args[0])
			if err != nil {
				return err
			}
			dumps = append(dumps, dump)
		}

		exporter, err := export.NewExporter(format)
		if err != nil {
			return err
		}

		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		for _, dump := range dumps {
			filename := fmt.Sprintf("session_%s.%s", dump.ID, exporter.Extension())
			path := filepath.Join(outputDir, filename)

			file, err := os.Create(path)
			if err != nil {
				internal.LogError("Failed to create file %s: %v", path, err)
				continue
			}
			if err := exporter.Export(dump, file); err != nil {
				_ = file.Close()
				internal.LogError("Failed to export session %s: %v", dump.ID, err)
				continue
			}
			if err := file.Close(); err != nil {
				internal.LogWarn("Failed to close file %s: %v", path, err)
			}
		}

		internal.PrintSuccess(fmt.Sprintf("Export complete: %d session(s) exported to %s", len(dumps), outputDir))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&format, "format", "f", "jsonl", "Export format (jsonl, md, yaml, json)")
	exportCmd.Flags().StringVarP(&outputDir, "out", "o", "./exports", "Output directory")
	exportCmd.Flags().BoolVar(&exportAll, "all", false, "Export every archived session")
}
