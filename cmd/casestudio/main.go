package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentworks/casestudio/internal/casestudy"
)

// outputDir, when set via --output, overrides the configured output
// directory for case-study files.
var outputDir string

func main() {
	var cfgPath string
	root := &cobra.Command{
		Use:           "casestudio",
		Short:         "AI agent suite that produces and serves case-study documents",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default searches ./config and .)")
	root.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "directory for case-study files (default from config)")

	root.AddCommand(
		fraudTrendsCMD(&cfgPath),
		articleEditorCMD(&cfgPath),
		stockMonitorCMD(&cfgPath),
		gitaGuideCMD(&cfgPath),
		importCMD(&cfgPath),
		loadCorpusCMD(&cfgPath),
		migrateCMD(&cfgPath),
		serveCMD(&cfgPath),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// writeDocument saves the case study to the output directory and prints
// where it landed.
func writeDocument(doc casestudy.Document, configuredDir string) error {
	dir := configuredDir
	if outputDir != "" {
		dir = outputDir
	}
	path, err := doc.WriteFile(dir)
	if err != nil {
		return err
	}
	fmt.Printf("case study %s written to %s\n", doc.ID, path)
	return nil
}
