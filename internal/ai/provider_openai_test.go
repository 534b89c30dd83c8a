package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// completionCall is what the fake chat completions endpoint received.
type completionCall struct {
	path    string
	headers http.Header
	body    openaiRequest
}

// fakeCompletions serves an OpenAI-format chat completions endpoint that
// answers every request with content and records the calls it saw.
func fakeCompletions(t *testing.T, status int, content string) (*httptest.Server, *[]completionCall) {
	t.Helper()
	var calls []completionCall
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := completionCall{path: r.URL.Path, headers: r.Header.Clone()}
		if err := json.NewDecoder(r.Body).Decode(&call.body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		calls = append(calls, call)

		if status != http.StatusOK {
			w.WriteHeader(status)
			fmt.Fprint(w, content)
			return
		}
		encoded, _ := json.Marshal(content)
		fmt.Fprintf(w, `{"choices":[{"message":{"content":%s}}],"model":%q,"usage":{"prompt_tokens":120,"completion_tokens":48}}`,
			encoded, call.body.Model)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

const quizReply = `{"questions":[{"question":"What does chlorophyll absorb?","options":["Blue and red light","Green light","Heat","Water"],"correctAnswer":0,"explanation":"It reflects green."}]}`

func TestOpenAICompatibleProviders_Complete(t *testing.T) {
	tests := []struct {
		name      string
		build     func(baseURL string) Provider
		wantPath  string
		wantAuth  string
		wantModel string
	}{
		{
			name:      "openai",
			build:     func(u string) Provider { return NewOpenAIProvider("sk-test", WithBaseURL(u)) },
			wantPath:  "/chat/completions",
			wantAuth:  "Bearer sk-test",
			wantModel: "gpt-4o-mini",
		},
		{
			name:      "deepseek",
			build:     func(u string) Provider { return NewDeepSeekProvider("ds-test", WithBaseURL(u)) },
			wantPath:  "/chat/completions",
			wantAuth:  "Bearer ds-test",
			wantModel: "deepseek-chat",
		},
		{
			name:      "openrouter",
			build:     func(u string) Provider { return NewOpenRouterProvider("or-test", "https://kiu.example.com", WithBaseURL(u)) },
			wantPath:  "/chat/completions",
			wantAuth:  "Bearer or-test",
			wantModel: "qwen/qwen-2.5-72b-instruct",
		},
		{
			name:      "ollama",
			build:     func(u string) Provider { return NewOllamaProvider(u) },
			wantPath:  "/v1/chat/completions",
			wantModel: "llama3:8b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, calls := fakeCompletions(t, http.StatusOK, quizReply)

			resp, err := tt.build(srv.URL).Complete(context.Background(), CompletionRequest{
				Messages:  []Message{{Role: "system", Content: "Write a quiz."}, {Role: "user", Content: "Photosynthesis..."}},
				MaxTokens: 2048,
				Task:      TaskQuiz,
				JSON:      true,
			})
			if err != nil {
				t.Fatalf("Complete() error = %v", err)
			}
			if resp.Content != quizReply {
				t.Errorf("Content = %q", resp.Content)
			}
			if resp.Model != tt.wantModel || resp.TotalTokens() != 168 {
				t.Errorf("resp = %+v, want model %q and 168 tokens", resp, tt.wantModel)
			}

			if len(*calls) != 1 {
				t.Fatalf("calls = %d, want 1", len(*calls))
			}
			call := (*calls)[0]
			if call.path != tt.wantPath {
				t.Errorf("path = %q, want %q", call.path, tt.wantPath)
			}
			if got := call.headers.Get("Authorization"); got != tt.wantAuth {
				t.Errorf("Authorization = %q, want %q", got, tt.wantAuth)
			}
			if call.headers.Get("Content-Type") != "application/json" {
				t.Errorf("Content-Type = %q", call.headers.Get("Content-Type"))
			}
			if len(call.body.Messages) != 2 || call.body.Messages[0].Role != "system" {
				t.Errorf("messages = %+v", call.body.Messages)
			}
			if call.body.MaxTokens != 2048 {
				t.Errorf("max_tokens = %d, want 2048", call.body.MaxTokens)
			}
			if call.body.ResponseFormat == nil || call.body.ResponseFormat.Type != "json_object" {
				t.Errorf("response_format = %+v, want json_object", call.body.ResponseFormat)
			}
		})
	}
}

func TestOpenAIProvider_Complete_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		content string
		wantErr string
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":"rate limited"}`, "status 429"},
		{"server error", http.StatusInternalServerError, "upstream down", "upstream down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := fakeCompletions(t, tt.status, tt.content)
			_, err := NewOpenAIProvider("sk-test", WithBaseURL(srv.URL)).Complete(context.Background(), CompletionRequest{Task: TaskFactCheck})
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Complete() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}

	t.Run("no choices", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"choices":[],"model":"gpt-4o-mini"}`))
		}))
		defer srv.Close()

		if _, err := NewOpenAIProvider("sk-test", WithBaseURL(srv.URL)).Complete(context.Background(), CompletionRequest{}); err == nil {
			t.Fatal("Complete() should fail without choices")
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>`))
		}))
		defer srv.Close()

		if _, err := NewOpenAIProvider("sk-test", WithBaseURL(srv.URL)).Complete(context.Background(), CompletionRequest{}); err == nil {
			t.Fatal("Complete() should fail on a non-JSON body")
		}
	})
}

func TestOpenAIProvider_RequestOptions(t *testing.T) {
	tests := []struct {
		name       string
		opts       []OpenAIOption
		req        CompletionRequest
		wantModel  string
		wantFormat bool
		wantTemp   bool
	}{
		{
			name:      "provider default model",
			req:       CompletionRequest{Task: TaskFactCheck},
			wantModel: "gpt-4o-mini",
		},
		{
			name:      "configured default model",
			opts:      []OpenAIOption{WithDefaultModel("gpt-4.1")},
			req:       CompletionRequest{Task: TaskLearningUnit},
			wantModel: "gpt-4.1",
		},
		{
			name:       "request model wins",
			opts:       []OpenAIOption{WithDefaultModel("gpt-4.1")},
			req:        CompletionRequest{Model: "gpt-4o", JSON: true, Temperature: 0.2},
			wantModel:  "gpt-4o",
			wantFormat: true,
			wantTemp:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, calls := fakeCompletions(t, http.StatusOK, "Accurate.")
			p := NewOpenAIProvider("sk-test", append([]OpenAIOption{WithBaseURL(srv.URL)}, tt.opts...)...)
			if _, err := p.Complete(context.Background(), tt.req); err != nil {
				t.Fatalf("Complete() error = %v", err)
			}

			body := (*calls)[0].body
			if body.Model != tt.wantModel {
				t.Errorf("model = %q, want %q", body.Model, tt.wantModel)
			}
			if (body.ResponseFormat != nil) != tt.wantFormat {
				t.Errorf("response_format = %+v, want set=%v", body.ResponseFormat, tt.wantFormat)
			}
			if (body.Temperature != nil) != tt.wantTemp {
				t.Errorf("temperature = %v, want set=%v", body.Temperature, tt.wantTemp)
			}
		})
	}
}

func TestOpenRouterProvider_AttributionHeaders(t *testing.T) {
	srv, calls := fakeCompletions(t, http.StatusOK, "ok")

	p := NewOpenRouterProvider("or-test", "https://kiu.example.com", WithBaseURL(srv.URL))
	if p.Name() != "openrouter" {
		t.Errorf("Name() = %q, want openrouter", p.Name())
	}
	if _, err := p.Complete(context.Background(), CompletionRequest{}); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	h := (*calls)[0].headers
	if h.Get("HTTP-Referer") != "https://kiu.example.com" || h.Get("X-Title") != "KIU Assessment" {
		t.Errorf("attribution headers = %q / %q", h.Get("HTTP-Referer"), h.Get("X-Title"))
	}
}

func TestOpenAIProvider_HealthCheck(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"key accepted", http.StatusOK, false},
		{"key rejected", http.StatusUnauthorized, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/models" {
					t.Errorf("health path = %q, want /models", r.URL.Path)
				}
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			err := NewOpenAIProvider("sk-test", WithBaseURL(srv.URL)).HealthCheck(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("HealthCheck() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOpenAIProvider_Models(t *testing.T) {
	if models := NewOpenAIProvider("sk-test").Models(); len(models) == 0 || models[0].Name == "" {
		t.Errorf("default Models() = %+v", models)
	}

	custom := []ModelInfo{{ID: "gpt-4.1", Name: "GPT-4.1"}}
	if models := NewOpenAIProvider("sk-test", WithModels(custom)).Models(); len(models) != 1 || models[0].ID != "gpt-4.1" {
		t.Errorf("custom Models() = %+v", models)
	}
}
