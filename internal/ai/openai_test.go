package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenAIProvider_Generate(t *testing.T) {
	var got openAIChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":" answer "}}]}`))
	}))
	defer srv.Close()

	p, err := NewProvider("openai", map[string]interface{}{"api_key": "k", "base_url": srv.URL})
	require.NoError(t, err)
	out, err := p.Generate(context.Background(), "gpt-4o-mini", "q", GenerateOptions{Temperature: 0.2, MaxOutputTokens: 64})
	require.NoError(t, err)
	require.Equal(t, "answer", out)
	require.Equal(t, "gpt-4o-mini", got.Model)
	require.Equal(t, 64, got.MaxTokens)
	require.InDelta(t, 0.2, got.Temperature, 1e-6)
}

func TestOpenAIProvider_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embeddings", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.5,0.25]}]}`))
	}))
	defer srv.Close()

	p, err := NewEmbedProvider("openai", map[string]interface{}{"api_key": "k", "base_url": srv.URL})
	require.NoError(t, err)
	out, err := NewEmbedder(p, "text-embedding-3-small").Embed(context.Background(), "x", "")
	require.NoError(t, err)
	require.Equal(t, []float32{0.5, 0.25}, out)
}

func TestOpenAIProvider_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()
	p, err := NewProvider("openai", map[string]interface{}{"api_key": "k", "base_url": srv.URL})
	require.NoError(t, err)
	_, err = p.Generate(context.Background(), "m", "q", GenerateOptions{})
	require.Error(t, err)
}

func TestNewProvider_MissingCredential(t *testing.T) {
	t.Setenv(openAIAPIKeyEnv, "")
	t.Setenv(geminiAPIKeyEnv, "")
	_, err := NewProvider("openai", nil)
	require.ErrorIs(t, err, ErrMissingCredential)
	_, err = NewProvider("gemini", map[string]interface{}{})
	require.ErrorIs(t, err, ErrMissingCredential)
	_, err = NewProvider("nope", nil)
	require.Error(t, err)
}
