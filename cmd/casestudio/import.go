package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentworks/casestudio/config"
	"github.com/agentworks/casestudio/internal/store"
)

func importCMD(cfgPath *string) *cobra.Command {
	var (
		dir    string
		file   string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Validate and import case-study JSON files into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(*cfgPath)

			var db store.Database
			if !dryRun {
				if err := cfg.Storage.Postgres.Validate(); err != nil {
					return err
				}
				st, err := store.NewWithDSN(cmd.Context(), cfg.Storage.Postgres.DSN())
				if err != nil {
					return err
				}
				defer st.DB.Close()
				db = st
			}

			imp := store.NewImporter(db, nil)
			imp.DryRun = dryRun

			if file != "" {
				if err := imp.ImportFile(cmd.Context(), file); err != nil {
					return err
				}
				fmt.Println("import successful")
				return nil
			}

			stats, err := imp.ImportDir(cmd.Context(), dir)
			if err != nil {
				return err
			}
			fmt.Printf("files: %d total, %d valid, %d invalid\n",
				stats.TotalFiles, stats.ValidFiles, stats.InvalidFiles)
			if !dryRun {
				fmt.Printf("imports: %d successful, %d failed, %d execution steps in %s\n",
					stats.SuccessfulImports, stats.FailedImports,
					stats.TotalStepsImported, stats.Duration.Round(10*time.Millisecond))
			}
			for name, msg := range stats.ValidationErrors {
				fmt.Printf("  invalid %s: %s\n", name, msg)
			}
			for name, msg := range stats.ImportErrors {
				fmt.Printf("  failed %s: %s\n", name, msg)
			}
			if stats.Failed() {
				return fmt.Errorf("import finished with errors")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "output", "directory containing case_study_*.json files")
	cmd.Flags().StringVar(&file, "file", "", "import a single file instead of a directory")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate files without importing")
	return cmd
}
