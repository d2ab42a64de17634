package pipeline

import (
	"context"
	"errors"
	"io"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/nyayagpt/nyayagpt/internal/greeting"
	"github.com/nyayagpt/nyayagpt/internal/llm"
	"github.com/nyayagpt/nyayagpt/internal/prompt"
	"github.com/nyayagpt/nyayagpt/internal/tokens"
	"github.com/nyayagpt/nyayagpt/models"
)

const apology = "I apologize, but I encountered an error while processing your request. Please try again or contact support if the issue persists."

// Stream resolves a query in streaming mode, calling emit once per fragment
// and once for the terminal done event. The cache is never consulted.
// Generation failures are reported to the client as an apology fragment plus
// a terminal event carrying the error; emit errors (client gone) stop fragment
// consumption and propagate.
func (p *Pipeline) Stream(ctx context.Context, req models.QueryRequest, emit func(models.StreamEvent) error) error {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "Pipeline.Stream")
	defer span.End()
	span.SetAttributes(
		attribute.String("model", req.ModelName),
		attribute.String("strategy", req.Strategy),
	)

	convID := req.ConversationID
	p.conv.Append(ctx, convID, models.ChatMessage{Role: models.RoleUser, Content: req.Query})

	history := p.historyFor(ctx, req)

	if greeting.IsGreeting(req.Query) {
		reply := greeting.Reply(req.Query)
		if err := emit(models.StreamEvent{Chunk: reply, Full: reply}); err != nil {
			return err
		}
		p.persistAssistant(convID, reply)
		fastPathHits.Inc()
		observe("stream", "fast_path", start)
		return emit(models.StreamEvent{
			Done: true,
			Metadata: &models.ResponseMetadata{
				Model:          fastPathModel,
				Strategy:       fastPathStrategy,
				ProcessingTime: secondsSince(start),
				ConversationID: convID,
			},
			ContextSources: []models.Source{},
		})
	}

	passages := p.retriever.Retrieve(ctx, req.Query, models.Strategy(req.Strategy), req.ModelName)
	contextBlock := prompt.FormatPassages(passages, prompt.StreamingContextLimit)
	finalPrompt := prompt.Final(history, contextBlock, req.Query)
	tokensUsed := tokens.Count(finalPrompt, req.ModelName)

	reader, err := p.gen.Stream(ctx, req.ModelName, finalPrompt, llm.Params{
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		observe("stream", "error", start)
		return p.emitStreamError(emit, req, convID, start, err)
	}
	defer reader.Close()

	var full string
	for {
		frag, err := reader.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			observe("stream", "error", start)
			return p.emitStreamError(emit, req, convID, start, err)
		}
		full += frag
		if err := emit(models.StreamEvent{Chunk: frag, Full: full}); err != nil {
			// Client stopped pulling; cease emission. The user message
			// persistence already issued completes on its own.
			return err
		}
	}

	p.persistAssistant(convID, full)
	observe("stream", "ok", start)
	return emit(models.StreamEvent{
		Done: true,
		Metadata: &models.ResponseMetadata{
			Model:           req.ModelName,
			Strategy:        req.Strategy,
			ChunksRetrieved: len(passages),
			TokensUsed:      tokensUsed,
			ProcessingTime:  secondsSince(start),
			ConversationID:  convID,
		},
		ContextSources: sourcesFrom(passages),
	})
}

// emitStreamError surfaces a generation failure to a streaming client: an
// apologetic fragment followed by a terminal event carrying the error detail.
func (p *Pipeline) emitStreamError(emit func(models.StreamEvent) error, req models.QueryRequest, convID string, start time.Time, cause error) error {
	p.logger.Printf("streaming generation failed: %v", cause)
	if err := emit(models.StreamEvent{Error: cause.Error(), Full: apology}); err != nil {
		return err
	}
	return emit(models.StreamEvent{
		Done:  true,
		Error: cause.Error(),
		Metadata: &models.ResponseMetadata{
			Model:          req.ModelName,
			Strategy:       req.Strategy,
			ProcessingTime: secondsSince(start),
			ConversationID: convID,
		},
		ContextSources: []models.Source{},
	})
}
