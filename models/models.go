// Package models holds the shared request, response and conversation types
// exchanged between the HTTP surface, the pipeline and the stores.
package models

// Strategy selects how passages are retrieved for a query.
type Strategy string

const (
	StrategySimple Strategy = "simple"
	StrategyFusion Strategy = "fusion"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one entry in a conversation history.
type ChatMessage struct {
	Role      Role    `json:"role"`
	Content   string  `json:"content"`
	Timestamp float64 `json:"timestamp,omitempty"`
}

// QueryRequest is an incoming legal query. Defaults favour the fastest path:
// the smallest model, the simple strategy and no history.
type QueryRequest struct {
	Query          string  `json:"query"`
	ModelName      string  `json:"model_name"`
	ConversationID string  `json:"conversation_id,omitempty"`
	Strategy       string  `json:"strategy"`
	MaxTokens      int     `json:"max_tokens"`
	Temperature    float32 `json:"temperature"`
	Stream         bool    `json:"stream"`
	IncludeHistory bool    `json:"include_history"`
}

// Passage is a retrieved unit of source text plus provenance metadata.
type Passage struct {
	Content string
	Title   string
	URL     string
}

// Source is the provenance of one passage as exposed to API clients.
type Source struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// ResponseMetadata is attached to every answer, fast-pathed or not.
type ResponseMetadata struct {
	Model           string  `json:"model"`
	Strategy        string  `json:"strategy"`
	ChunksRetrieved int     `json:"chunks_retrieved"`
	TokensUsed      int     `json:"tokens_used"`
	ProcessingTime  float64 `json:"processing_time"`
	ConversationID  string  `json:"conversation_id"`
}

// QueryResponse is the complete answer payload for a non-streaming query. It
// is also the shape persisted in the response cache.
type QueryResponse struct {
	Response       string           `json:"response"`
	Metadata       ResponseMetadata `json:"metadata"`
	ContextSources []Source         `json:"context_sources"`
}

// StreamEvent is one frame of a streaming response. Fragment frames carry
// Chunk and the cumulative Full text; the terminal frame carries Done plus the
// same metadata shape as the non-streaming path.
type StreamEvent struct {
	Chunk          string            `json:"chunk,omitempty"`
	Full           string            `json:"full,omitempty"`
	Done           bool              `json:"done,omitempty"`
	Error          string            `json:"error,omitempty"`
	Metadata       *ResponseMetadata `json:"metadata,omitempty"`
	ContextSources []Source          `json:"context_sources,omitempty"`
}
