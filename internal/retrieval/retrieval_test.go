package retrieval

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/nyayagpt/nyayagpt/internal/llm"
	"github.com/nyayagpt/nyayagpt/models"
)

type fakeSearcher struct {
	calls   []string
	results map[string][]models.Passage
	err     error
}

func (f *fakeSearcher) Search(ctx context.Context, query string, k int) ([]models.Passage, error) {
	f.calls = append(f.calls, query)
	if f.err != nil {
		return nil, f.err
	}
	return f.results[query], nil
}

type fakeGenerator struct {
	completion string
	err        error
	calls      int
}

func (f *fakeGenerator) Complete(ctx context.Context, model, prompt string, p llm.Params) (string, error) {
	f.calls++
	return f.completion, f.err
}

func (f *fakeGenerator) Stream(ctx context.Context, model, prompt string, p llm.Params) (llm.FragmentReader, error) {
	return nil, errors.New("not implemented")
}

func passage(content string) models.Passage {
	return models.Passage{Content: content, Title: "t", URL: "u"}
}

func TestSimpleStrategy(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]models.Passage{
		"what is bail": {passage("a"), passage("b")},
	}}
	engine := NewEngine(searcher, &fakeGenerator{}, nil)

	got := engine.Retrieve(context.Background(), "what is bail", models.StrategySimple, "gpt-4o-mini")
	if len(got) != 2 {
		t.Fatalf("expected 2 passages, got %d", len(got))
	}
	if len(searcher.calls) != 1 {
		t.Fatalf("expected one search, got %v", searcher.calls)
	}
}

func TestSimpleStrategySearchFailureYieldsEmpty(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("index down")}
	engine := NewEngine(searcher, &fakeGenerator{}, nil)

	if got := engine.Retrieve(context.Background(), "query text here", models.StrategySimple, "m"); len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}
}

func TestFusionShortQueryDegradesToSimple(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]models.Passage{"short query": {passage("a")}}}
	gen := &fakeGenerator{completion: "- rephrasing one\n- rephrasing two"}
	engine := NewEngine(searcher, gen, nil)

	got := engine.Retrieve(context.Background(), "short query", models.StrategyFusion, "m")
	if gen.calls != 0 {
		t.Fatal("short query must not invoke the model")
	}
	if !reflect.DeepEqual(searcher.calls, []string{"short query"}) {
		t.Fatalf("expected single direct search, got %v", searcher.calls)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 passage, got %d", len(got))
	}
}

func TestFusionSearchesOriginalPlusRephrasing(t *testing.T) {
	query := "what is anticipatory bail under crpc"
	searcher := &fakeSearcher{results: map[string][]models.Passage{
		query: {passage("aaaa"), passage("bbbb")},
		"What is the scope of anticipatory bail?": {passage("cccc")},
	}}
	gen := &fakeGenerator{completion: "- What is the scope of anticipatory bail?\n- Second rephrasing\n- Third rephrasing"}
	engine := NewEngine(searcher, gen, nil)

	got := engine.Retrieve(context.Background(), query, models.StrategyFusion, "m")
	// At most two variants searched: the original plus the first rephrasing.
	if !reflect.DeepEqual(searcher.calls, []string{query, "What is the scope of anticipatory bail?"}) {
		t.Fatalf("unexpected searches: %v", searcher.calls)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 merged passages, got %d", len(got))
	}
}

func TestFusionDeduplicatesByPrefix(t *testing.T) {
	query := "what is anticipatory bail under crpc"
	shared := "Section 438 CrPC empowers the High Court and the Court of Session to grant anticipatory bail"
	searcher := &fakeSearcher{results: map[string][]models.Passage{
		query:   {passage(shared + " - copy one"), passage("distinct passage")},
		"alt q": {passage(shared + " - copy two"), passage("another distinct")},
	}}
	gen := &fakeGenerator{completion: "alt q"}
	engine := NewEngine(searcher, gen, nil)

	got := engine.Retrieve(context.Background(), query, models.StrategyFusion, "m")
	if len(got) != 3 {
		t.Fatalf("expected 3 passages after dedup+cap, got %d", len(got))
	}
	// First occurrence wins.
	if got[0].Content != shared+" - copy one" {
		t.Fatalf("unexpected first passage: %q", got[0].Content)
	}
	for _, p := range got[1:] {
		if p.Content == shared+" - copy two" {
			t.Fatal("duplicate-prefix passage must be dropped")
		}
	}
}

func TestFusionCapsAtThree(t *testing.T) {
	query := "a query with more than three words total"
	searcher := &fakeSearcher{results: map[string][]models.Passage{
		query:  {passage("one"), passage("two"), passage("three")},
		"r one": {passage("four"), passage("five")},
	}}
	gen := &fakeGenerator{completion: "r one"}
	engine := NewEngine(searcher, gen, nil)

	if got := engine.Retrieve(context.Background(), query, models.StrategyFusion, "m"); len(got) != 3 {
		t.Fatalf("expected cap at 3, got %d", len(got))
	}
}

func TestFusionModelFailureFallsBack(t *testing.T) {
	query := "what is anticipatory bail under crpc"
	searcher := &fakeSearcher{results: map[string][]models.Passage{query: {passage("a")}}}
	gen := &fakeGenerator{err: errors.New("model timeout")}
	engine := NewEngine(searcher, gen, nil)

	got := engine.Retrieve(context.Background(), query, models.StrategyFusion, "m")
	if len(got) != 1 {
		t.Fatalf("expected simple fallback result, got %v", got)
	}
	// Fallback performs its own direct search.
	if !reflect.DeepEqual(searcher.calls, []string{query}) {
		t.Fatalf("unexpected searches: %v", searcher.calls)
	}
}

func TestFusionEmptyRephrasingsFallsBack(t *testing.T) {
	query := "what is anticipatory bail under crpc"
	searcher := &fakeSearcher{results: map[string][]models.Passage{query: {passage("a")}}}
	gen := &fakeGenerator{completion: "\n\n  \n"}
	engine := NewEngine(searcher, gen, nil)

	if got := engine.Retrieve(context.Background(), query, models.StrategyFusion, "m"); len(got) != 1 {
		t.Fatalf("expected simple fallback result, got %v", got)
	}
}

func TestFallbackCounterSkipsShortQueryBypass(t *testing.T) {
	before := testutil.ToFloat64(fallbacks)

	// The short-query bypass is designed behavior, not a degradation.
	searcher := &fakeSearcher{results: map[string][]models.Passage{"short query": {passage("a")}}}
	engine := NewEngine(searcher, &fakeGenerator{}, nil)
	engine.Retrieve(context.Background(), "short query", models.StrategyFusion, "m")
	if got := testutil.ToFloat64(fallbacks); got != before {
		t.Fatalf("short-query bypass counted as fallback (%v -> %v)", before, got)
	}

	// A genuine rephrasing failure is.
	engine = NewEngine(&fakeSearcher{results: map[string][]models.Passage{}}, &fakeGenerator{err: errors.New("model down")}, nil)
	engine.Retrieve(context.Background(), "what is anticipatory bail under crpc", models.StrategyFusion, "m")
	if got := testutil.ToFloat64(fallbacks); got != before+1 {
		t.Fatalf("fusion failure should count one fallback (%v -> %v)", before, got)
	}
}

func TestParseRephrasings(t *testing.T) {
	raw := "\n- First rephrasing\n\n* Second rephrasing\n3. Third rephrasing\n"
	got := parseRephrasings(raw)
	want := []string{"First rephrasing", "Second rephrasing"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
