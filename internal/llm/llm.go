// Package llm wraps the OpenAI chat completion API behind small interfaces so
// the pipeline can be exercised with fakes.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// ErrUnknownModel is returned for model names outside the configured registry.
var ErrUnknownModel = errors.New("model not available")

// Params are per-request generation settings.
type Params struct {
	Temperature float32
	MaxTokens   int
}

// Generator produces completions, either whole or as an ordered fragment stream.
type Generator interface {
	Complete(ctx context.Context, model, prompt string, p Params) (string, error)
	Stream(ctx context.Context, model, prompt string, p Params) (FragmentReader, error)
}

// FragmentReader is an ordered, finite, non-restartable sequence of text
// fragments. Recv returns io.EOF after the final fragment. The consumer stops
// pulling to cancel.
type FragmentReader interface {
	Recv() (string, error)
	Close() error
}

// modelSpec pins the API name, completion budget and request deadline per model.
type modelSpec struct {
	apiName   string
	maxTokens int
	timeout   time.Duration
}

var specs = map[string]modelSpec{
	"gpt-4o":        {apiName: openai.GPT4o, maxTokens: 1500, timeout: 20 * time.Second},
	"gpt-4o-mini":   {apiName: openai.GPT4oMini, maxTokens: 1500, timeout: 15 * time.Second},
	"gpt-3.5-turbo": {apiName: openai.GPT3Dot5Turbo, maxTokens: 1200, timeout: 10 * time.Second},
}

// AvailableModels lists the model names the service accepts.
func AvailableModels() []string {
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Known reports whether model is in the registry.
func Known(model string) bool {
	_, ok := specs[model]
	return ok
}

// Client is a Generator backed by the OpenAI API.
type Client struct {
	api    *openai.Client
	logger *log.Logger
}

// NewClient creates an OpenAI-backed Generator.
func NewClient(apiKey string, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(log.Writer(), "[LLM] ", log.LstdFlags)
	}
	return &Client{api: openai.NewClient(apiKey), logger: logger}
}

func buildRequest(spec modelSpec, prompt string, p Params) openai.ChatCompletionRequest {
	maxTokens := p.MaxTokens
	if maxTokens <= 0 || maxTokens > spec.maxTokens {
		maxTokens = spec.maxTokens
	}
	return openai.ChatCompletionRequest{
		Model:       spec.apiName,
		Temperature: p.Temperature,
		MaxTokens:   maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
}

// Complete runs a single chat completion under the model's fixed deadline.
func (c *Client) Complete(ctx context.Context, model, prompt string, p Params) (string, error) {
	spec, ok := specs[model]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownModel, model)
	}
	ctx, cancel := context.WithTimeout(ctx, spec.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, buildRequest(spec, prompt, p))
	if err != nil {
		return "", fmt.Errorf("chat completion (%s): %w", model, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion (%s): empty choices", model)
	}
	return resp.Choices[0].Message.Content, nil
}

// Stream opens a streaming chat completion. The returned reader owns the
// deadline; Close releases it.
func (c *Client) Stream(ctx context.Context, model, prompt string, p Params) (FragmentReader, error) {
	spec, ok := specs[model]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, model)
	}
	ctx, cancel := context.WithTimeout(ctx, spec.timeout)

	stream, err := c.api.CreateChatCompletionStream(ctx, buildRequest(spec, prompt, p))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("chat completion stream (%s): %w", model, err)
	}
	return &openaiFragments{stream: stream, cancel: cancel}, nil
}

type openaiFragments struct {
	stream *openai.ChatCompletionStream
	cancel context.CancelFunc
}

func (f *openaiFragments) Recv() (string, error) {
	for {
		resp, err := f.stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", io.EOF
			}
			return "", err
		}
		if len(resp.Choices) == 0 {
			continue
		}
		// Role-only and empty deltas are skipped; callers see content fragments.
		if resp.Choices[0].Delta.Content == "" {
			continue
		}
		return resp.Choices[0].Delta.Content, nil
	}
}

func (f *openaiFragments) Close() error {
	f.cancel()
	return f.stream.Close()
}

// Embed generates an embedding for a single text, used for similarity search.
func (c *Client) Embed(ctx context.Context, model, text string) ([]float32, error) {
	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(model),
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("create embedding: empty response")
	}
	return resp.Data[0].Embedding, nil
}
