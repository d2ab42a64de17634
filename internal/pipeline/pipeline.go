// Package pipeline sequences a legal query end to end: persist the user
// message, short-circuit greetings, consult the response cache, retrieve and
// assemble context, compose the prompt, generate the answer and persist the
// assistant message. Streaming and non-streaming requests share everything but
// the cache (streaming always runs the full pipeline) and the context budget.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/nyayagpt/nyayagpt/internal/greeting"
	"github.com/nyayagpt/nyayagpt/internal/helpers"
	"github.com/nyayagpt/nyayagpt/internal/llm"
	"github.com/nyayagpt/nyayagpt/internal/prompt"
	"github.com/nyayagpt/nyayagpt/internal/tokens"
	"github.com/nyayagpt/nyayagpt/models"
)

var tracer = otel.Tracer("nyayagpt/internal/pipeline")

const (
	// fastPathModel marks responses that never reached a real model.
	fastPathModel    = "fast-path-greeting"
	fastPathStrategy = "direct"

	snippetLen     = 150
	persistTimeout = 5 * time.Second

	defaultModel       = "gpt-4o-mini"
	defaultMaxTokens   = 1500
	defaultTemperature = 0.1
)

// Retriever returns at most three passages for a query; it never fails.
type Retriever interface {
	Retrieve(ctx context.Context, query string, strategy models.Strategy, model string) []models.Passage
}

// ConversationStore persists per-conversation history, best-effort.
type ConversationStore interface {
	History(ctx context.Context, id string) []models.ChatMessage
	Append(ctx context.Context, id string, msg models.ChatMessage)
}

// ResponseCache is the read-through/write-through cache for non-streaming
// responses. Both methods degrade silently.
type ResponseCache interface {
	Get(ctx context.Context, query, model, strategy string) *models.QueryResponse
	Put(ctx context.Context, query, model, strategy string, resp *models.QueryResponse)
}

// Pipeline orchestrates query resolution. All collaborators are injected so
// tests can substitute fakes.
type Pipeline struct {
	gen       llm.Generator
	retriever Retriever
	conv      ConversationStore
	cache     ResponseCache
	logger    *log.Logger

	// spawn runs best-effort background work; overridable in tests to run
	// inline.
	spawn func(func())
}

// New creates a Pipeline.
func New(gen llm.Generator, retriever Retriever, conv ConversationStore, cache ResponseCache, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.New(log.Writer(), "[PIPE] ", log.LstdFlags)
	}
	return &Pipeline{
		gen:       gen,
		retriever: retriever,
		conv:      conv,
		cache:     cache,
		logger:    logger,
		spawn:     func(f func()) { go f() },
	}
}

// Normalize fills request defaults and assigns a conversation id when absent.
func Normalize(req *models.QueryRequest) {
	if req.ModelName == "" {
		req.ModelName = defaultModel
	}
	if req.Strategy == "" {
		req.Strategy = string(models.StrategySimple)
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = defaultMaxTokens
	}
	if req.Temperature <= 0 {
		req.Temperature = defaultTemperature
	}
	if req.ConversationID == "" {
		req.ConversationID = uuid.NewString()
	}
}

// Validate rejects requests the pipeline cannot serve.
func Validate(req *models.QueryRequest) error {
	if req.Query == "" {
		return fmt.Errorf("query is required")
	}
	if !llm.Known(req.ModelName) {
		return fmt.Errorf("%w: %s (available: %v)", llm.ErrUnknownModel, req.ModelName, llm.AvailableModels())
	}
	return nil
}

// Process resolves a non-streaming query and returns the complete response.
func (p *Pipeline) Process(ctx context.Context, req models.QueryRequest) (*models.QueryResponse, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "Pipeline.Process")
	defer span.End()
	span.SetAttributes(
		attribute.String("model", req.ModelName),
		attribute.String("strategy", req.Strategy),
	)

	convID := req.ConversationID
	p.conv.Append(ctx, convID, models.ChatMessage{Role: models.RoleUser, Content: req.Query})

	if cached := p.cache.Get(ctx, req.Query, req.ModelName, req.Strategy); cached != nil {
		resp := *cached
		resp.Metadata.ConversationID = convID
		p.persistAssistant(convID, resp.Response)
		cacheHits.Inc()
		observe("query", "cache_hit", start)
		return &resp, nil
	}

	history := p.historyFor(ctx, req)

	if greeting.IsGreeting(req.Query) {
		reply := greeting.Reply(req.Query)
		p.persistAssistant(convID, reply)
		fastPathHits.Inc()
		observe("query", "fast_path", start)
		return &models.QueryResponse{
			Response: reply,
			Metadata: models.ResponseMetadata{
				Model:          fastPathModel,
				Strategy:       fastPathStrategy,
				ProcessingTime: secondsSince(start),
				ConversationID: convID,
			},
			ContextSources: []models.Source{},
		}, nil
	}

	passages := p.retriever.Retrieve(ctx, req.Query, models.Strategy(req.Strategy), req.ModelName)
	contextBlock := prompt.FormatPassages(passages, prompt.ContextLimit)
	finalPrompt := prompt.Final(history, contextBlock, req.Query)

	answer, err := p.gen.Complete(ctx, req.ModelName, finalPrompt, llm.Params{
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		observe("query", "error", start)
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	p.persistAssistant(convID, answer)

	resp := &models.QueryResponse{
		Response: answer,
		Metadata: models.ResponseMetadata{
			Model:           req.ModelName,
			Strategy:        req.Strategy,
			ChunksRetrieved: len(passages),
			TokensUsed:      tokens.Approximate(finalPrompt),
			ProcessingTime:  secondsSince(start),
			ConversationID:  convID,
		},
		ContextSources: sourcesFrom(passages),
	}

	p.cache.Put(ctx, req.Query, req.ModelName, req.Strategy, resp)
	observe("query", "ok", start)
	return resp, nil
}

// historyFor renders the prior conversation for prompt composition, excluding
// the user message this request just appended.
func (p *Pipeline) historyFor(ctx context.Context, req models.QueryRequest) string {
	if !req.IncludeHistory {
		return ""
	}
	msgs := p.conv.History(ctx, req.ConversationID)
	if len(msgs) <= 1 {
		return ""
	}
	return prompt.FormatHistory(msgs[:len(msgs)-1])
}

// persistAssistant saves the assistant message without blocking the response
// path. Failures are handled (logged) inside the store.
func (p *Pipeline) persistAssistant(id, content string) {
	p.spawn(func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		p.conv.Append(ctx, id, models.ChatMessage{Role: models.RoleAssistant, Content: content})
	})
}

func sourcesFrom(passages []models.Passage) []models.Source {
	sources := make([]models.Source, 0, len(passages))
	for _, p := range passages {
		title := p.Title
		if title == "" {
			title = "Untitled"
		}
		url := p.URL
		if url == "" {
			url = "No URL"
		}
		snippet := helpers.TruncateRunes(p.Content, snippetLen)
		sources = append(sources, models.Source{Title: title, URL: url, Snippet: snippet + "..."})
	}
	return sources
}

func secondsSince(start time.Time) float64 {
	return float64(time.Since(start).Milliseconds()) / 1000
}
