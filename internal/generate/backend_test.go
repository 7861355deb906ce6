package generate

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiBackend_Complete(t *testing.T) {
	var gotPath, gotKey string
	var gotBody geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates": [{"content": {"parts": [{"text": "{\"intro\":"}, {"text": "\"hi\"}"}]}, "finishReason": "STOP"}]}`))
	}))
	defer srv.Close()

	b := NewGeminiBackend(srv.URL+"/", "secret", "gemini-2.0-flash", 0.4, time.Second)
	out, err := b.Complete(context.Background(), "suggest things")
	require.NoError(t, err)

	assert.Equal(t, `{"intro":"hi"}`, out, "parts are concatenated")
	assert.Equal(t, "/v1beta/models/gemini-2.0-flash:generateContent", gotPath)
	assert.Equal(t, "secret", gotKey)
	require.Len(t, gotBody.Contents, 1)
	assert.Equal(t, "suggest things", gotBody.Contents[0].Parts[0].Text)
	assert.Equal(t, 0.4, gotBody.GenerationConfig.Temperature)
	assert.Equal(t, "application/json", gotBody.GenerationConfig.ResponseMimeType)
}

func TestGeminiBackend_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"status", http.StatusTooManyRequests, `{"error": "quota"}`, "unexpected status code 429"},
		{"no candidates", http.StatusOK, `{"candidates": []}`, "no candidates"},
		{"blocked", http.StatusOK, `{"promptFeedback": {"blockReason": "SAFETY"}}`, "SAFETY"},
		{"empty parts", http.StatusOK, `{"candidates": [{"content": {"parts": []}, "finishReason": "MAX_TOKENS"}]}`, "MAX_TOKENS"},
		{"bad json", http.StatusOK, `not json`, "unmarshal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewGeminiBackend(srv.URL, "k", "m", 0, time.Second).Complete(context.Background(), "p")
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestOpenAIBackend_Complete(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody chatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		_, _ = w.Write([]byte(`{"choices": [{"message": {"role": "assistant", "content": "{\"intro\":\"x\"}"}, "finish_reason": "stop"}]}`))
	}))
	defer srv.Close()

	b := NewOpenAIBackend(srv.URL+"/v1", "sk-test", "gpt-4o-mini", 0.7, time.Second)
	out, err := b.Complete(context.Background(), "ideas please")
	require.NoError(t, err)

	assert.Equal(t, `{"intro":"x"}`, out)
	assert.Equal(t, "/v1/chat/completions", gotPath)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "gpt-4o-mini", gotBody.Model)
	require.Len(t, gotBody.Messages, 1)
	assert.Equal(t, "user", gotBody.Messages[0].Role)
	assert.Equal(t, "ideas please", gotBody.Messages[0].Content)
}

func TestOpenAIBackend_NoKeyNoHeader(t *testing.T) {
	var hadAuth bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hadAuth = r.Header["Authorization"]
		_, _ = w.Write([]byte(`{"choices": [{"message": {"content": "ok"}}]}`))
	}))
	defer srv.Close()

	_, err := NewOpenAIBackend(srv.URL, "", "llama3", 0, time.Second).Complete(context.Background(), "p")
	require.NoError(t, err)
	assert.False(t, hadAuth)
}

func TestOpenAIBackend_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"status", http.StatusUnauthorized, `{"error": {"message": "bad key"}}`, "401"},
		{"no choices", http.StatusOK, `{"choices": []}`, "no choices"},
		{"blank content", http.StatusOK, `{"choices": [{"message": {"content": " "}, "finish_reason": "length"}]}`, "length"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewOpenAIBackend(srv.URL, "k", "m", 0, time.Second).Complete(context.Background(), "p")
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestDoRequest_TruncatesErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(strings.Repeat("x", 4*maxErrorBody)))
	}))
	defer srv.Close()

	_, err := NewOpenAIBackend(srv.URL, "", "m", 0, time.Second).Complete(context.Background(), "p")
	require.Error(t, err)
	assert.Less(t, len(err.Error()), 2*maxErrorBody)
}

func TestBackend_ContextCanceled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := NewGeminiBackend(srv.URL, "k", "m", 0, 5*time.Second).Complete(ctx, "p")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}
