// Package retrieval picks passages for a query. Two strategies: a direct
// similarity search, and a fusion mode that fans out over model-generated
// rephrasings and merges deduplicated results. Retrieval never returns an
// error to the caller; every failure degrades to the simplest thing that can
// still produce an answer.
package retrieval

import (
	"context"
	"log"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nyayagpt/nyayagpt/internal/helpers"
	"github.com/nyayagpt/nyayagpt/internal/llm"
	"github.com/nyayagpt/nyayagpt/internal/prompt"
	"github.com/nyayagpt/nyayagpt/internal/vectorstore"
	"github.com/nyayagpt/nyayagpt/models"
)

const (
	// maxResults caps the final passage list regardless of strategy.
	maxResults = 3
	// dedupPrefixLen is how much leading content identifies a duplicate passage.
	dedupPrefixLen = 50
	// maxVariants bounds how many query variants fusion actually searches.
	maxVariants = 2
	// maxRephrasings bounds how many model rephrasings are kept.
	maxRephrasings = 2
	// fusionMinWords is the query length below which fusion degrades to simple.
	fusionMinWords = 3
)

var fallbacks = promauto.NewCounter(prometheus.CounterOpts{
	Name: "nyayagpt_retrieval_fallbacks_total",
	Help: "Times the fusion strategy degraded to the simple strategy.",
})

// Engine runs retrieval strategies against the vector index.
type Engine struct {
	searcher vectorstore.Searcher
	gen      llm.Generator
	logger   *log.Logger
}

// NewEngine creates a retrieval engine. gen is only used by the fusion
// strategy for query rephrasing.
func NewEngine(searcher vectorstore.Searcher, gen llm.Generator, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(log.Writer(), "[RETRIEVE] ", log.LstdFlags)
	}
	return &Engine{searcher: searcher, gen: gen, logger: logger}
}

// Retrieve returns at most three passages for query under the given strategy.
// It never fails: strategy errors fall back to the simple search and a search
// error yields an empty list, both logged.
func (e *Engine) Retrieve(ctx context.Context, query string, strategy models.Strategy, model string) []models.Passage {
	if strategy == models.StrategyFusion {
		// Short queries skip fusion by design; only genuine fusion
		// failures count as fallbacks.
		if len(strings.Fields(query)) <= fusionMinWords {
			return e.simple(ctx, query)
		}
		if passages, ok := e.fusion(ctx, query, model); ok {
			return passages
		}
		fallbacks.Inc()
	}
	return e.simple(ctx, query)
}

// simple is one direct similarity search for the top passages.
func (e *Engine) simple(ctx context.Context, query string) []models.Passage {
	passages, err := e.searcher.Search(ctx, query, maxResults)
	if err != nil {
		e.logger.Printf("similarity search failed: %v", err)
		return nil
	}
	if len(passages) > maxResults {
		passages = passages[:maxResults]
	}
	return passages
}

// fusion searches over model-generated rephrasings of the query and merges
// the deduplicated results. ok is false when the caller should fall back.
func (e *Engine) fusion(ctx context.Context, query, model string) ([]models.Passage, bool) {
	raw, err := e.gen.Complete(ctx, model, prompt.Fusion(query), llm.Params{Temperature: 0.1})
	if err != nil {
		e.logger.Printf("fusion rephrasing failed, falling back to simple: %v", err)
		return nil, false
	}

	rephrasings := parseRephrasings(raw)
	if len(rephrasings) == 0 {
		e.logger.Printf("fusion produced no usable rephrasings, falling back to simple")
		return nil, false
	}

	variants := append([]string{query}, rephrasings...)
	if len(variants) > maxVariants {
		variants = variants[:maxVariants]
	}

	seen := make(map[string]struct{})
	var merged []models.Passage
	for _, variant := range variants {
		passages, err := e.searcher.Search(ctx, variant, maxResults)
		if err != nil {
			e.logger.Printf("fusion search failed, falling back to simple: %v", err)
			return nil, false
		}
		for _, p := range passages {
			key := helpers.TruncateRunes(p.Content, dedupPrefixLen)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, p)
		}
	}

	if len(merged) > maxResults {
		merged = merged[:maxResults]
	}
	return merged, true
}

// parseRephrasings extracts rephrasing lines from the model output: bullet
// markers stripped, blanks dropped, at most maxRephrasings kept.
func parseRephrasings(raw string) []string {
	var out []string
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*•0123456789. "))
		if line == "" {
			continue
		}
		out = append(out, line)
		if len(out) == maxRephrasings {
			break
		}
	}
	return out
}
