package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentworks/casestudio/config"
	"github.com/agentworks/casestudio/internal/store"
	"github.com/agentworks/casestudio/tools/vedic"
)

func loadCorpusCMD(cfgPath *string) *cobra.Command {
	var (
		chapters []int
		pause    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "load-corpus",
		Short: "Fetch the Bhagavad Gita corpus and load it into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(*cfgPath)
			if err := cfg.Storage.Postgres.Validate(); err != nil {
				return err
			}
			st, err := store.NewWithDSN(cmd.Context(), cfg.Storage.Postgres.DSN())
			if err != nil {
				return err
			}
			defer st.DB.Close()

			loader := store.NewCorpusLoader(st, nil)
			loader.Pause = pause
			stats, err := loader.Load(cmd.Context(), vedic.NewClient(), chapters)
			if err != nil {
				return err
			}
			fmt.Printf("loaded %d chapters: %d verses, %d commentaries, %d theme tags (%d missing) in %s\n",
				stats.Chapters, stats.Verses, stats.Commentaries, stats.Themes,
				stats.Missing, stats.Duration.Round(time.Second))
			return nil
		},
	}
	cmd.Flags().IntSliceVar(&chapters, "chapters", nil, "chapters to load (default all 18)")
	cmd.Flags().DurationVar(&pause, "pause", 300*time.Millisecond, "pause between verse fetches")
	return cmd
}
