package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestParseModelFlag(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantProv string
		wantMod  string
		wantErr  bool
	}{
		{"empty defaults to google", "", "google", "gemini-2.5-flash", false},
		{"google flash", "google/gemini-2.5-flash", "google", "gemini-2.5-flash", false},
		{"openrouter model", "openrouter/openai/gpt-4o-mini", "openrouter", "openai/gpt-4o-mini", false},
		{"unknown provider", "anthropic/claude-4", "", "", true},
		{"no slash", "gemini-2.5-flash", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseModelFlag(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.Provider != tt.wantProv {
				t.Errorf("provider: got %q, want %q", cfg.Provider, tt.wantProv)
			}
			if cfg.Model != tt.wantMod {
				t.Errorf("model: got %q, want %q", cfg.Model, tt.wantMod)
			}
		})
	}
}

func TestNewProviderErrors(t *testing.T) {
	// Unknown provider
	_, err := NewProvider(Config{Provider: "unknown"})
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}

	// Google without API key (clear env)
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	_, err = NewProvider(Config{Provider: "google"})
	if err == nil {
		t.Fatal("expected error for google without API key")
	}

	// OpenRouter without API key
	t.Setenv("OPENROUTER_API_KEY", "")
	_, err = NewProvider(Config{Provider: "openrouter"})
	if err == nil {
		t.Fatal("expected error for openrouter without API key")
	}
}

func TestGoogleProviderComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("expected POST, got %s", r.Method)
		}

		var req googleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if len(req.Contents) == 0 || len(req.Contents[0].Parts) == 0 {
			t.Fatal("empty request contents")
		}
		if req.Contents[0].Parts[0].Text != "test prompt" {
			t.Errorf("unexpected prompt: %q", req.Contents[0].Parts[0].Text)
		}
		if req.SystemInstruction == nil {
			t.Error("expected system instruction")
		}

		resp := googleResponse{}
		resp.Candidates = []struct {
			Content struct {
				Parts []googlePart `json:"parts"`
			} `json:"content"`
		}{{}}
		resp.Candidates[0].Content.Parts = []googlePart{{Text: "  30 mins  "}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	p := &googleProvider{
		apiKey:  "test-key",
		model:   "gemini-2.5-flash",
		baseURL: server.URL,
	}

	got, err := p.Complete(context.Background(), "test prompt", CompletionOpts{
		MaxTokens:   32,
		Temperature: 0.1,
		System:      "reply with a duration",
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "30 mins" {
		t.Errorf("got %q, want trimmed %q", got, "30 mins")
	}
}

func TestGoogleProviderAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"code":429,"message":"quota exceeded"}}`))
	}))
	defer server.Close()

	p := &googleProvider{apiKey: "k", model: "m", baseURL: server.URL}
	_, err := p.Complete(context.Background(), "hi", CompletionOpts{})
	if err == nil {
		t.Fatal("expected error on 429")
	}
}

func TestOpenRouterProviderComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer or-key" {
			t.Errorf("unexpected auth header: %q", got)
		}

		var req orRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if len(req.Messages) != 2 {
			t.Fatalf("expected system + user messages, got %d", len(req.Messages))
		}
		if req.Messages[0].Role != "system" {
			t.Errorf("first message role: got %q", req.Messages[0].Role)
		}

		resp := orResponse{}
		resp.Choices = []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		}{{}}
		resp.Choices[0].Message.Content = "Errands"
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	p := &openrouterProvider{apiKey: "or-key", model: "openai/gpt-4o-mini", baseURL: server.URL}
	got, err := p.Complete(context.Background(), "classify this", CompletionOpts{System: "pick one"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "Errands" {
		t.Errorf("got %q, want %q", got, "Errands")
	}
}

func TestCompleteRespectsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer server.Close()

	p := &openrouterProvider{apiKey: "k", model: "m", baseURL: server.URL}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := p.Complete(ctx, "hi", CompletionOpts{})
	if err == nil {
		t.Fatal("expected context deadline error")
	}
}
