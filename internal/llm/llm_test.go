package llm

import (
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

func TestAvailableModels(t *testing.T) {
	names := AvailableModels()
	if len(names) != 3 {
		t.Fatalf("expected 3 models, got %v", names)
	}
	for _, name := range []string{"gpt-4o", "gpt-4o-mini", "gpt-3.5-turbo"} {
		if !Known(name) {
			t.Fatalf("expected %s to be known", name)
		}
	}
	if Known("gpt-99") {
		t.Fatal("unexpected model gpt-99 known")
	}
}

func TestBuildRequestClampsMaxTokens(t *testing.T) {
	spec := specs["gpt-3.5-turbo"]

	req := buildRequest(spec, "q", Params{MaxTokens: 0})
	if req.MaxTokens != 1200 {
		t.Fatalf("expected default budget 1200, got %d", req.MaxTokens)
	}

	req = buildRequest(spec, "q", Params{MaxTokens: 5000})
	if req.MaxTokens != 1200 {
		t.Fatalf("expected clamp to 1200, got %d", req.MaxTokens)
	}

	req = buildRequest(spec, "q", Params{MaxTokens: 400, Temperature: 0.3})
	if req.MaxTokens != 400 || req.Temperature != 0.3 {
		t.Fatalf("unexpected request: %+v", req)
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != openai.ChatMessageRoleUser {
		t.Fatalf("unexpected messages: %+v", req.Messages)
	}
}
