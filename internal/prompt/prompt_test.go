package prompt

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/nyayagpt/nyayagpt/models"
)

func TestFormatPassagesTruncatesAndCaps(t *testing.T) {
	long := strings.Repeat("x", 500)
	passages := []models.Passage{
		{Content: long, Title: "Doc A", URL: "https://a"},
		{Content: "short", Title: "Doc B", URL: "https://b"},
		{Content: "third", Title: "Doc C", URL: "https://c"},
		{Content: "fourth", Title: "Doc D", URL: "https://d"},
	}

	block := FormatPassages(passages, 300)
	if strings.Count(block, "### ") != 3 {
		t.Fatalf("expected 3 sections, got %d", strings.Count(block, "### "))
	}
	if strings.Contains(block, "Doc D") {
		t.Fatal("fourth passage must not appear")
	}
	if !strings.Contains(block, strings.Repeat("x", 300)+"...") {
		t.Fatal("long content not truncated to 300 with ellipsis")
	}
	if strings.Contains(block, strings.Repeat("x", 301)) {
		t.Fatal("content exceeds the per-passage budget")
	}
}

func TestFormatPassagesPlaceholders(t *testing.T) {
	block := FormatPassages([]models.Passage{{Content: "body"}}, 300)
	if !strings.Contains(block, "### Untitled Document") {
		t.Fatalf("missing title placeholder: %q", block)
	}
	if !strings.Contains(block, "**Source:** No URL") {
		t.Fatalf("missing url placeholder: %q", block)
	}
}

func TestFormatHistoryKeepsLastFour(t *testing.T) {
	msgs := []models.ChatMessage{
		{Role: models.RoleUser, Content: "first"},
		{Role: models.RoleAssistant, Content: "second"},
		{Role: models.RoleUser, Content: "third"},
		{Role: models.RoleAssistant, Content: "fourth"},
		{Role: models.RoleUser, Content: "fifth"},
	}
	text := FormatHistory(msgs)
	if strings.Contains(text, "first") {
		t.Fatal("oldest message should be dropped")
	}
	if !strings.Contains(text, "User: fifth") || !strings.Contains(text, "Assistant: second") {
		t.Fatalf("unexpected history: %q", text)
	}
}

func TestFormatHistoryTruncatesLongMessages(t *testing.T) {
	msgs := []models.ChatMessage{{Role: models.RoleUser, Content: strings.Repeat("a", 250)}}
	text := FormatHistory(msgs)
	if !strings.Contains(text, strings.Repeat("a", 200)+"...") {
		t.Fatalf("long message not truncated: %q", text)
	}
}

func TestFormatHistoryStaysWithinBudget(t *testing.T) {
	long := strings.Repeat("b", 900)
	msgs := []models.ChatMessage{
		{Role: models.RoleUser, Content: long},
		{Role: models.RoleAssistant, Content: long},
		{Role: models.RoleUser, Content: long},
		{Role: models.RoleAssistant, Content: long},
	}
	text := FormatHistory(msgs)
	if len(text) > historyTokenBudget*4 {
		t.Fatalf("history block exceeds budget: %d chars", len(text))
	}
}

func TestFormatPassagesKeepsMultibyteContentValid(t *testing.T) {
	devanagari := "ab" + strings.Repeat("ह", 200)
	out := FormatPassages([]models.Passage{{Content: devanagari, Title: "IPC", URL: "https://a"}}, 300)
	if !utf8.ValidString(out) {
		t.Fatalf("context block contains invalid UTF-8: %q", out)
	}

	out = FormatPassages([]models.Passage{{Content: devanagari, Title: "IPC", URL: "https://a"}}, 50)
	if !utf8.ValidString(out) {
		t.Fatalf("truncated context block contains invalid UTF-8: %q", out)
	}
	if !strings.Contains(out, "हहह...") {
		t.Fatalf("expected whole-rune truncation, got %q", out)
	}
}

func TestFormatHistoryKeepsMultibyteContentValid(t *testing.T) {
	long := strings.Repeat("ह", 300)
	msgs := []models.ChatMessage{
		{Role: models.RoleUser, Content: long},
		{Role: models.RoleAssistant, Content: long},
	}
	text := FormatHistory(msgs)
	if !utf8.ValidString(text) {
		t.Fatalf("history block contains invalid UTF-8: %q", text)
	}
	if !strings.Contains(text, "हहह...") {
		t.Fatalf("expected whole-rune message truncation, got %q", text)
	}
}

func TestFinalTemplateContainsAllSections(t *testing.T) {
	out := Final("HISTORY", "CONTEXT", "QUESTION")
	for _, part := range []string{"HISTORY", "CONTEXT", "QUESTION", "NyayaGPT"} {
		if !strings.Contains(out, part) {
			t.Fatalf("final prompt missing %q", part)
		}
	}
}

func TestFusionTemplate(t *testing.T) {
	out := Fusion("what is anticipatory bail")
	if !strings.Contains(out, "what is anticipatory bail") {
		t.Fatal("fusion prompt missing question")
	}
	if !strings.Contains(out, "Three Rephrasings:") {
		t.Fatal("fusion prompt missing rephrasing cue")
	}
}
