package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiComplete_SeparatesSystemInstruction(t *testing.T) {
	var captured geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "gemini-pro:generateContent")
		assert.Equal(t, "g-key", r.URL.Query().Get("key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": "answer"}}}},
			},
			"usageMetadata": map[string]any{"promptTokenCount": 7, "candidatesTokenCount": 3},
		})
	}))
	defer srv.Close()

	p := NewGeminiProvider(srv.URL)
	resp, err := p.Complete(context.Background(), Request{
		Model:        "gemini-pro",
		SystemPrompt: "be terse",
		UserPrompt:   "summarize",
		APIKey:       "g-key",
	})
	require.NoError(t, err)

	require.NotNil(t, captured.SystemInstruction)
	require.Len(t, captured.SystemInstruction.Parts, 1)
	assert.Equal(t, "be terse", captured.SystemInstruction.Parts[0].Text)
	require.Len(t, captured.Contents, 1)
	assert.Equal(t, "summarize", captured.Contents[0].Parts[0].Text)

	assert.Equal(t, "answer", resp.Text)
	assert.Equal(t, int32(7), resp.PromptTokens)
	assert.Equal(t, int32(3), resp.OutputTokens)
}

func TestGeminiComplete_NoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	}))
	defer srv.Close()

	p := NewGeminiProvider(srv.URL)
	_, err := p.Complete(context.Background(), Request{Model: "gemini-pro"})
	require.Error(t, err)
}

func TestGeminiComplete_ServerFault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewGeminiProvider(srv.URL)
	_, err := p.Complete(context.Background(), Request{Model: "gemini-pro"})
	require.Error(t, err)
	assert.True(t, IsServerError(err))
}
