package respcache

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/nyayagpt/nyayagpt/models"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(client, time.Hour, nil), mr
}

func sampleResponse() *models.QueryResponse {
	return &models.QueryResponse{
		Response: "Section 302 IPC prescribes the punishment for murder.",
		Metadata: models.ResponseMetadata{
			Model:           "gpt-4o-mini",
			Strategy:        "simple",
			ChunksRetrieved: 2,
		},
		ContextSources: []models.Source{{Title: "IPC s302", URL: "https://example.org", Snippet: "..."}},
	}
}

func TestFingerprintStable(t *testing.T) {
	a := Fingerprint("q", "m", "s")
	b := Fingerprint("q", "m", "s")
	if a != b {
		t.Fatal("fingerprint must be deterministic")
	}
	if Fingerprint("q2", "m", "s") == a {
		t.Fatal("different queries must not collide")
	}
	// Delimited hashing: moving a boundary changes the fingerprint.
	if Fingerprint("qm", "", "s") == Fingerprint("q", "m", "s") {
		t.Fatal("field boundaries must be part of the fingerprint")
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	cache.Put(ctx, "q", "gpt-4o-mini", "simple", sampleResponse())

	got := cache.Get(ctx, "q", "gpt-4o-mini", "simple")
	if got == nil {
		t.Fatal("expected cache hit")
	}
	if got.Response != sampleResponse().Response || got.Metadata.ChunksRetrieved != 2 {
		t.Fatalf("unexpected cached payload: %+v", got)
	}

	if cache.Get(ctx, "q", "gpt-4o", "simple") != nil {
		t.Fatal("different model must miss")
	}
	if cache.Get(ctx, "q", "gpt-4o-mini", "fusion") != nil {
		t.Fatal("different strategy must miss")
	}
}

func TestExpiry(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	cache.Put(ctx, "q", "m", "s", sampleResponse())
	mr.FastForward(2 * time.Hour)

	if cache.Get(ctx, "q", "m", "s") != nil {
		t.Fatal("expected miss after TTL expiry")
	}
}

func TestClearRemovesOnlyCacheKeys(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	// More entries than one SCAN batch to exercise the cursor loop.
	for i := 0; i < 250; i++ {
		cache.Put(ctx, fmt.Sprintf("query-%d", i), "m", "s", sampleResponse())
	}
	mr.Set("conv:keepme", "[]")

	n, err := cache.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n != 250 {
		t.Fatalf("expected 250 deleted, got %d", n)
	}
	if cache.Get(ctx, "query-0", "m", "s") != nil {
		t.Fatal("lookup after clear must miss")
	}
	if !mr.Exists("conv:keepme") {
		t.Fatal("clear must not touch non-cache keys")
	}
}

func TestTruncatePreservesMultibyteText(t *testing.T) {
	devanagari := strings.Repeat("ह", 40)
	got := truncate(devanagari, 30)
	if !utf8.ValidString(got) {
		t.Fatalf("truncation produced invalid UTF-8: %q", got)
	}
	if got != strings.Repeat("ह", 30)+"..." {
		t.Fatalf("expected whole-rune truncation, got %q", got)
	}
	if short := truncate("bail", 30); short != "bail" {
		t.Fatalf("expected passthrough, got %q", short)
	}
}

func TestDegradedMode(t *testing.T) {
	cache := New(nil, time.Hour, nil)
	ctx := context.Background()

	cache.Put(ctx, "q", "m", "s", sampleResponse())
	if cache.Get(ctx, "q", "m", "s") != nil {
		t.Fatal("nil client must always miss")
	}
	if _, err := cache.Clear(ctx); err == nil {
		t.Fatal("clear must surface nil client")
	}
}
