package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllamaProvider_NoAuthorization(t *testing.T) {
	srv, calls := fakeCompletions(t, http.StatusOK, "Accurate.")

	if _, err := NewOllamaProvider(srv.URL).Complete(context.Background(), CompletionRequest{Task: TaskFactCheck}); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if auth := (*calls)[0].headers.Get("Authorization"); auth != "" {
		t.Errorf("Authorization = %q, self-hosted models take no key", auth)
	}
}

func TestOllamaProvider_Model(t *testing.T) {
	tests := []struct {
		name string
		opt  string
		req  string
		want string
	}{
		{"built-in default", "", "", "llama3:8b"},
		{"configured model", "qwen2.5:7b", "", "qwen2.5:7b"},
		{"request model wins", "qwen2.5:7b", "mistral:7b", "mistral:7b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, calls := fakeCompletions(t, http.StatusOK, "{}")

			p := NewOllamaProvider(srv.URL, WithOllamaModel(tt.opt))
			if _, err := p.Complete(context.Background(), CompletionRequest{Model: tt.req, JSON: true}); err != nil {
				t.Fatalf("Complete() error = %v", err)
			}
			if got := (*calls)[0].body.Model; got != tt.want {
				t.Errorf("model = %q, want %q", got, tt.want)
			}
			if models := p.Models(); len(models) != 1 || models[0].ID != p.defaultModel {
				t.Errorf("Models() = %+v", models)
			}
		})
	}
}

func TestOllamaProvider_ModelMissing(t *testing.T) {
	srv, _ := fakeCompletions(t, http.StatusNotFound, `{"error":"model \"llama3:8b\" not found, try pulling it first"}`)

	if _, err := NewOllamaProvider(srv.URL).Complete(context.Background(), CompletionRequest{Task: TaskQuiz}); err == nil {
		t.Fatal("Complete() should fail when the model is not pulled")
	}
}

func TestOllamaProvider_HealthCheck(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"daemon up", http.StatusOK, false},
		{"daemon starting", http.StatusServiceUnavailable, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/tags" {
					t.Errorf("health path = %q, want /api/tags", r.URL.Path)
				}
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			err := NewOllamaProvider(srv.URL, WithOllamaHTTPClient(srv.Client())).HealthCheck(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("HealthCheck() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	t.Run("daemon down", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		if err := NewOllamaProvider(url).HealthCheck(context.Background()); err == nil {
			t.Error("HealthCheck() should fail when nothing listens")
		}
	})
}
