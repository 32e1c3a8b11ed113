package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentworks/casestudio/config"
	"github.com/agentworks/casestudio/internal/agents/articleeditor"
	"github.com/agentworks/casestudio/internal/agents/fraudtrends"
	"github.com/agentworks/casestudio/internal/agents/gitaguide"
	"github.com/agentworks/casestudio/internal/agents/stockmonitor"
	"github.com/agentworks/casestudio/internal/llm"
	"github.com/agentworks/casestudio/internal/store"
	"github.com/agentworks/casestudio/tools/markets/twelvedata"
	"github.com/agentworks/casestudio/tools/web_fetch"
	"github.com/agentworks/casestudio/tools/web_search"
)

func buildLLM(cfg *config.Config) (llm.Provider, error) {
	if err := cfg.LLM.Validate(); err != nil {
		return nil, err
	}
	return llm.NewProvider(cfg.LLM)
}

func buildSearcher(cfg *config.Config) (web_search.WebSearcher, error) {
	if err := cfg.Search.Validate(); err != nil {
		return nil, err
	}
	return web_search.NewWebSearcher(web_search.Provider(cfg.Search.Provider), cfg.Search.APIKey)
}

func fraudTrendsCMD(cfgPath *string) *cobra.Command {
	var (
		topic      string
		regions    []string
		timeRange  string
		focusAreas []string
	)
	cmd := &cobra.Command{
		Use:   "fraud-trends",
		Short: "Research insurance fraud trends and write a case study",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(*cfgPath)
			provider, err := buildLLM(cfg)
			if err != nil {
				return err
			}
			searcher, err := buildSearcher(cfg)
			if err != nil {
				return err
			}

			agent := fraudtrends.New(provider, searcher, nil)
			agent.Fetcher = web_fetch.NewFetcher(0, 0)
			doc, err := agent.Run(cmd.Context(), fraudtrends.Input{
				Topic:      topic,
				Regions:    regions,
				TimeRange:  timeRange,
				FocusAreas: focusAreas,
			})
			if err != nil {
				return err
			}
			return writeDocument(doc, cfg.General.OutputDir)
		},
	}
	cmd.Flags().StringVar(&topic, "topic", "", "fraud topic to research")
	cmd.Flags().StringSliceVar(&regions, "regions", nil, "regions to cover (comma-separated)")
	cmd.Flags().StringVar(&timeRange, "time-range", "", "time range for the research (e.g. 2024-2025)")
	cmd.Flags().StringSliceVar(&focusAreas, "focus-areas", nil, "optional focus areas")
	_ = cmd.MarkFlagRequired("topic")
	_ = cmd.MarkFlagRequired("regions")
	_ = cmd.MarkFlagRequired("time-range")
	return cmd
}

func articleEditorCMD(cfgPath *string) *cobra.Command {
	var (
		file      string
		keywords  []string
		audience  string
		focus     []string
		wordLimit int
		tone      string
	)
	cmd := &cobra.Command{
		Use:   "article-editor",
		Short: "Enhance an article and write a case study",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read article: %w", err)
			}
			text := string(data)

			cfg := config.LoadConfig(*cfgPath)
			provider, err := buildLLM(cfg)
			if err != nil {
				return err
			}
			// Reference search is optional; the agent skips it when no
			// searcher is configured.
			searcher, err := buildSearcher(cfg)
			if err != nil {
				fmt.Fprintf(os.Stderr, "warning: reference search disabled: %v\n", err)
				searcher = nil
			}

			var limit *int
			if wordLimit > 0 {
				limit = &wordLimit
			}
			agent := articleeditor.New(provider, searcher, nil)
			doc, err := agent.Run(cmd.Context(), articleeditor.Input{
				OriginalText:     text,
				TargetKeywords:   keywords,
				TargetAudience:   audience,
				EnhancementFocus: focus,
				WordLimit:        limit,
				Tone:             tone,
			})
			if err != nil {
				return err
			}
			return writeDocument(doc, cfg.General.OutputDir)
		},
	}
	cmd.Flags().StringVar(&file, "article-file", "", "path to a file containing the article")
	cmd.Flags().StringSliceVar(&keywords, "keywords", nil, "target SEO keywords")
	cmd.Flags().StringVar(&audience, "audience", "general", "target audience")
	cmd.Flags().StringSliceVar(&focus, "goals", []string{"readability", "seo", "engagement"}, "enhancement goals")
	cmd.Flags().IntVar(&wordLimit, "word-limit", 0, "optional word limit for the enhanced article")
	cmd.Flags().StringVar(&tone, "tone", "professional", "tone to preserve")
	_ = cmd.MarkFlagRequired("article-file")
	return cmd
}

func stockMonitorCMD(cfgPath *string) *cobra.Command {
	var (
		watchlist  []string
		period     string
		eventTypes []string
		threshold  string
	)
	cmd := &cobra.Command{
		Use:   "stock-monitor",
		Short: "Scan a stock watchlist for events and write a case study",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(*cfgPath)
			provider, err := buildLLM(cfg)
			if err != nil {
				return err
			}
			searcher, err := buildSearcher(cfg)
			if err != nil {
				return err
			}
			if err := cfg.Markets.Validate(); err != nil {
				return err
			}
			quotes := twelvedata.NewClient(cfg.Markets.TwelveDataAPIKey, cfg.Markets.RequestInterval)

			agent := stockmonitor.New(provider, quotes, searcher, nil)
			doc, err := agent.Run(cmd.Context(), stockmonitor.Input{
				Watchlist:      watchlist,
				TimePeriod:     period,
				EventTypes:     eventTypes,
				AlertThreshold: threshold,
			})
			if err != nil {
				return err
			}
			return writeDocument(doc, cfg.General.OutputDir)
		},
	}
	cmd.Flags().StringSliceVar(&watchlist, "watchlist", nil, "ticker symbols to monitor")
	cmd.Flags().StringVar(&period, "period", "24h", "time period: 24h, 7d or 30d")
	cmd.Flags().StringSliceVar(&eventTypes, "events",
		[]string{"earnings", "news", "filings", "analyst_ratings", "price_movements"},
		"event types to monitor")
	cmd.Flags().StringVar(&threshold, "threshold", "medium", "alert threshold: low, medium, high or critical")
	_ = cmd.MarkFlagRequired("watchlist")
	return cmd
}

func gitaGuideCMD(cfgPath *string) *cobra.Command {
	var (
		question  string
		userLevel string
		prevCtx   string
		history   string
	)
	cmd := &cobra.Command{
		Use:   "gita-guide",
		Short: "Answer a spiritual question from the Gita corpus and write a case study",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(*cfgPath)
			provider, err := buildLLM(cfg)
			if err != nil {
				return err
			}
			if err := cfg.Storage.Postgres.Validate(); err != nil {
				return err
			}
			st, err := store.NewWithDSN(cmd.Context(), cfg.Storage.Postgres.DSN())
			if err != nil {
				return err
			}
			defer st.DB.Close()

			// Conversation history is folded into the prompt context; it
			// is never persisted.
			combined := prevCtx
			if history != "" {
				if combined != "" {
					combined += "\n"
				}
				combined += history
			}
			agent := gitaguide.New(provider, st, nil)
			doc, err := agent.Run(cmd.Context(), gitaguide.Input{
				Question:  question,
				UserLevel: userLevel,
				Context:   combined,
			})
			if err != nil {
				return err
			}
			return writeDocument(doc, cfg.General.OutputDir)
		},
	}
	cmd.Flags().StringVar(&question, "question", "", "spiritual question to answer")
	cmd.Flags().StringVar(&userLevel, "level", "beginner", "user level: beginner, intermediate or advanced")
	cmd.Flags().StringVar(&prevCtx, "context", "", "optional context or topic for the question")
	cmd.Flags().StringVar(&history, "conversation-history", "", "JSON string of previous conversation messages")
	_ = cmd.MarkFlagRequired("question")
	return cmd
}
