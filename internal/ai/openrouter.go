package ai

import (
	"fmt"
	"os"
	"strings"
)

const (
	defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	openrouterAPIKeyEnv      = "OPENROUTER_API_KEY"
)

// openrouterConfig adds the optional attribution headers OpenRouter uses to
// list an app on its leaderboard.
type openrouterConfig struct {
	APIKey      string `json:"api_key"`
	BaseURL     string `json:"base_url"`
	HTTPReferer string `json:"http_referer"`
	XTitle      string `json:"x_title"`
}

// createOpenRouterFactory builds a fallback answer model. OpenRouter speaks the
// OpenAI chat protocol, so only the endpoint and headers differ.
func createOpenRouterFactory(args interface{}) (IProvider, error) {
	cfg := &openrouterConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		apiKey = strings.TrimSpace(os.Getenv(openrouterAPIKeyEnv))
	}
	if apiKey == "" {
		return nil, fmt.Errorf("openrouter: %w (set api_key or %s)", ErrMissingCredential, openrouterAPIKeyEnv)
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultOpenRouterBaseURL
	}
	headers := map[string]string{}
	if v := strings.TrimSpace(cfg.HTTPReferer); v != "" {
		headers["HTTP-Referer"] = v
	}
	if v := strings.TrimSpace(cfg.XTitle); v != "" {
		headers["X-Title"] = v
	}
	return &openAIProvider{name: "openrouter", apiKey: apiKey, baseURL: baseURL, headers: headers}, nil
}

func init() {
	Register("openrouter", createOpenRouterFactory)
}
