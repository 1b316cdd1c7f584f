package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ai-roleplay-platform/backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logger.Logger {
	return logger.New(logger.DefaultConfig())
}

func TestClean(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		speaker string
		want    string
	}{
		{"plain text untouched", "Hello there!", "Aria", "Hello there!"},
		{"strips assistant prefix", "Assistant: Hello there!", "Aria", "Hello there!"},
		{"strips speaker prefix", "Aria: Hello there!", "Aria", "Hello there!"},
		{"prefix match is case-insensitive", "assistant: Hello!", "Aria", "Hello!"},
		{"strips whole-line asterisks", "*Hello there!*", "Aria", "Hello there!"},
		{"strips whole-line underscores", "_Hello there!_", "Aria", "Hello there!"},
		{"keeps inline emphasis", "I *really* mean it", "Aria", "I *really* mean it"},
		{"trims whitespace", "  Hello  ", "Aria", "Hello"},
		{"prefix then markup both stripped", "Aria: *waves* ", "Aria", "waves"},
		{"whitespace only becomes empty", "   \n  ", "Aria", ""},
		{"speaker name mid-sentence survives", "Ask Aria: she knows", "Bram", "Ask Aria: she knows"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.raw, tt.speaker))
		})
	}
}

func TestNewValidation(t *testing.T) {
	_, err := New(Config{}, testLogger())
	assert.Error(t, err)

	_, err = New(Config{UseLocalModel: true}, testLogger())
	assert.Error(t, err)

	g, err := New(Config{APIKey: "test-key"}, testLogger())
	require.NoError(t, err)
	assert.Equal(t, "https://api.openai.com/v1", g.config.BaseURL)
	assert.Equal(t, "gpt-4o", g.config.Model)
}

func TestGenerateSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"Aria: *Well met, traveler!*"}}]}`))
	}))
	defer server.Close()

	g, err := New(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5 * time.Second}, testLogger())
	require.NoError(t, err)

	reply, err := g.Generate(context.Background(), "payload", "Aria")
	require.NoError(t, err)
	assert.Equal(t, "Well met, traveler!", reply)
}

func TestGenerateProviderFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	g, err := New(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5 * time.Second}, testLogger())
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), "payload", "Aria")
	assert.ErrorIs(t, err, ErrProvider)
}

func TestGenerateEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"   "}}]}`))
	}))
	defer server.Close()

	g, err := New(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5 * time.Second}, testLogger())
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), "payload", "Aria")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestGenerateLocalModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/generate", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"response":"Hello from the cottage."}`))
	}))
	defer server.Close()

	g, err := New(Config{UseLocalModel: true, LocalModelURL: server.URL, Timeout: 5 * time.Second}, testLogger())
	require.NoError(t, err)

	reply, err := g.Generate(context.Background(), "payload", "Aria")
	require.NoError(t, err)
	assert.Equal(t, "Hello from the cottage.", reply)
}
