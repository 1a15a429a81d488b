package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func ollamaServer(t *testing.T, pulled bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/show" && !pulled:
			w.WriteHeader(http.StatusNotFound)
		case r.URL.Path == "/api/show":
			w.Write([]byte(`{}`))
		case r.URL.Path == "/api/generate":
			w.Write([]byte(`{"response":"{\"decision\":\"approved\",\"feedback\":\"ok\"}","done":true}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLoadNoProviders(t *testing.T) {
	_, err := Load(context.Background(), nil, 3, zap.NewNop())
	assert.ErrorIs(t, err, ErrNoProviders)
}

func TestLoadSkipsUnusableProviders(t *testing.T) {
	missing := ollamaServer(t, false)

	_, err := Load(context.Background(), []ProviderConfig{
		{Type: "t5-local", ModelName: "flan-t5"},
		{Type: ProviderGroq, ModelName: "llama-3.1-8b-instant"},
		{Type: ProviderGemini},
		{Type: ProviderOllama, BaseURL: missing.URL, ModelName: "flan-t5"},
	}, 3, zap.NewNop())

	assert.ErrorIs(t, err, ErrNoProviders)
}

func TestLoadOllama(t *testing.T) {
	srv := ollamaServer(t, true)

	client, err := Load(context.Background(), []ProviderConfig{
		{Type: ProviderGroq, ModelName: "llama-3.1-8b-instant"},
		{Type: ProviderOllama, BaseURL: srv.URL, ModelName: "flan-t5"},
	}, 3, zap.NewNop())
	require.NoError(t, err)
	defer client.Close()

	out, err := client.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, `{"decision":"approved","feedback":"ok"}`, out)

	info := client.GetModelInfo()
	assert.Equal(t, "ollama", info["provider"])
	assert.Equal(t, 1, info["total_providers"])
}

func TestNewProviderPresets(t *testing.T) {
	_, err := newProvider(ProviderConfig{Type: ProviderOpenRouter, ModelName: "m"}, zap.NewNop())
	assert.Error(t, err)

	p, err := newProvider(ProviderConfig{Type: ProviderOpenRouter, APIKey: "k", ModelName: "m"}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "openrouter", p.GetModelInfo()["provider"])

	_, err = newProvider(ProviderConfig{Type: ProviderOpenAI, ModelName: "m"}, zap.NewNop())
	assert.Error(t, err, "generic endpoints need a base URL")
}
