// Package prompt builds the model-ready prompts: the final answering prompt,
// the fusion rephrasing prompt, the bounded context block assembled from
// retrieved passages and the conversation history summary.
package prompt

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/nyayagpt/nyayagpt/internal/helpers"
	"github.com/nyayagpt/nyayagpt/models"
)

const (
	// ContextLimit is the per-passage budget for non-streaming requests.
	ContextLimit = 300
	// StreamingContextLimit widens the budget when latency allows richer context.
	StreamingContextLimit = 600

	maxPassages        = 3
	maxHistoryMessages = 4
	maxMessageChars    = 200
	historyTokenBudget = 500
)

const finalTemplate = `
You are NyayaGPT, a legal assistant for Indian law. Be concise but comprehensive.

Instructions:
1. For greetings (hi, hello), respond conversationally.
2. For legal queries:
   - Analyze the legal issue clearly
   - Cite relevant statutes, cases, and principles
   - Use clear headings for different issues
   - Provide complete citations with case names, courts, and dates
   - If drafting is needed, provide a complete template

Previous Context: %s

Legal Context: %s

Query: %s

Response:`

const fusionTemplate = `
You are an assistant skilled in legal language modeling.
Given the following user query, generate 3 different rephrasings of it as formal Indian legal questions.
Do not invent extra facts or foreign law. Just reword using Indian legal terminology.

User Query: %s

Three Rephrasings:`

// Final renders the answering prompt from history, context and the question.
func Final(history, context, question string) string {
	return fmt.Sprintf(finalTemplate, history, context, question)
}

// Fusion renders the rephrasing prompt for the fusion retrieval strategy.
func Fusion(question string) string {
	return fmt.Sprintf(fusionTemplate, question)
}

// FormatPassages assembles up to three passages into a prompt-ready block:
// a heading, a source line and content truncated to maxLen with an ellipsis.
// Missing metadata falls back to placeholder strings.
func FormatPassages(passages []models.Passage, maxLen int) string {
	if maxLen <= 0 {
		maxLen = ContextLimit
	}
	sections := make([]string, 0, maxPassages)
	for i, p := range passages {
		if i >= maxPassages {
			break
		}
		title := p.Title
		if title == "" {
			title = "Untitled Document"
		}
		url := p.URL
		if url == "" {
			url = "No URL"
		}
		// Budgets are in characters; cut on rune boundaries so Devanagari
		// and other multibyte text stays valid.
		content := helpers.TruncateRunes(strings.TrimSpace(p.Content), maxLen)
		sections = append(sections, fmt.Sprintf("### %s\n**Source:** %s\n\n%s...", title, url, content))
	}
	return strings.Join(sections, "\n\n")
}

// FormatHistory renders the trailing conversation as "Role: content" lines.
// Only the last four messages are used, long messages are truncated, and the
// whole block is bounded by an approximate character budget; when it overflows
// only the trailing portion is kept, prefixed with a truncation marker.
func FormatHistory(messages []models.ChatMessage) string {
	start := 0
	if len(messages) > maxHistoryMessages {
		start = len(messages) - maxHistoryMessages
	}

	lines := make([]string, 0, maxHistoryMessages)
	for _, msg := range messages[start:] {
		content := msg.Content
		if utf8.RuneCountInString(content) > maxMessageChars {
			content = helpers.TruncateRunes(content, maxMessageChars) + "..."
		}
		lines = append(lines, fmt.Sprintf("%s: %s", capitalize(string(msg.Role)), content))
	}

	text := strings.Join(lines, "\n\n")
	if budget := historyTokenBudget * 4; utf8.RuneCountInString(text) > budget {
		text = "...\n" + helpers.LastRunes(text, budget)
	}
	return text
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
