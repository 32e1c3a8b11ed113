// Package metrics holds the process-wide prometheus counters served by
// the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LLMCompletions counts successful LLM generations.
	LLMCompletions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "casestudio_llm_completions_total",
		Help: "Successful LLM completions by provider and model.",
	}, []string{"provider", "model"})

	// WebSearches counts search queries issued, whether or not the
	// provider answered.
	WebSearches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "casestudio_web_searches_total",
		Help: "Web search queries issued by provider.",
	}, []string{"provider"})

	// Imports counts case-study import attempts. Validation rejects are
	// not attempts and are not counted here.
	Imports = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "casestudio_imports_total",
		Help: "Case-study import attempts by result (success or failure).",
	}, []string{"result"})
)
