package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"google.golang.org/genai"
)

const (
	geminiAPIKeyEnv          = "GEMINI_API_KEY"
	geminiCacheAction        = "createCachedContent"
	geminiModelPrefix        = "models/"
	transcriptCacheSysPrompt = "You are an expert at analyzing video transcripts. Answer questions based on the content of the transcript. If information is not found in the transcript, clearly indicate this. ALWAYS include timestamps in square brackets [HH:MM:SS] when referencing information from the transcript."
)

type geminiConfig struct {
	APIKey string `json:"api_key"`
}

type geminiProvider struct {
	client *genai.Client
}

func newGeminiClient(args interface{}) (*genai.Client, error) {
	cfg := &geminiConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		apiKey = strings.TrimSpace(os.Getenv(geminiAPIKeyEnv))
	}
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: %w (set api_key or %s)", ErrMissingCredential, geminiAPIKeyEnv)
	}
	return genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
}

func (p *geminiProvider) Name() string {
	return "gemini"
}

func (p *geminiProvider) Generate(ctx context.Context, model string, prompt string, opts GenerateOptions) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](opts.Temperature),
	}
	if opts.MaxOutputTokens > 0 {
		config.MaxOutputTokens = int32(opts.MaxOutputTokens)
	}
	if opts.CachedContent != "" {
		config.CachedContent = opts.CachedContent
	}
	resp, err := p.client.Models.GenerateContent(
		ctx,
		model,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: prompt}}}},
		config,
	)
	if err != nil {
		if opts.CachedContent != "" && isCacheRejection(err) {
			return "", fmt.Errorf("%w: %w", ErrCacheRejected, err)
		}
		return "", err
	}
	return strings.TrimSpace(resp.Text()), nil
}

// isCacheRejection reports whether err is the API refusing the request itself
// (missing, expired or foreign cache) rather than a transient failure.
func isCacheRejection(err error) bool {
	code := 0
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &apiErrPtr) && apiErrPtr != nil:
		code = apiErrPtr.Code
	}
	switch code {
	case http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound:
		return true
	}
	return false
}

func (p *geminiProvider) CreateCache(ctx context.Context, model string, document string, ttl time.Duration) (string, error) {
	cc, err := p.client.Caches.Create(ctx, model, &genai.CreateCachedContentConfig{
		Contents:          []*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: document}}}},
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: transcriptCacheSysPrompt}}},
		TTL:               ttl,
	})
	if err != nil {
		return "", err
	}
	if cc == nil || cc.Name == "" {
		return "", fmt.Errorf("gemini returned no cache name")
	}
	return cc.Name, nil
}

func (p *geminiProvider) DeleteCache(ctx context.Context, cacheID string) error {
	_, err := p.client.Caches.Delete(ctx, cacheID, nil)
	return err
}

func (p *geminiProvider) CacheCapableModels(ctx context.Context) ([]string, error) {
	var out []string
	for m, err := range p.client.Models.All(ctx) {
		if err != nil {
			return out, err
		}
		for _, action := range m.SupportedActions {
			if action == geminiCacheAction {
				out = append(out, strings.TrimPrefix(m.Name, geminiModelPrefix))
				break
			}
		}
	}
	return out, nil
}

type geminiEmbedProvider struct {
	client *genai.Client
}

func (p *geminiEmbedProvider) Name() string {
	return "gemini"
}

func (p *geminiEmbedProvider) Embed(ctx context.Context, model string, text string, taskType string) ([]float32, error) {
	var config *genai.EmbedContentConfig
	if taskType != "" {
		config = &genai.EmbedContentConfig{
			TaskType: taskType,
		}
	}
	resp, err := p.client.Models.EmbedContent(
		ctx,
		model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: text}}}},
		config,
	)
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("no embedding values returned")
	}
	return resp.Embeddings[0].Values, nil
}

func createGeminiFactory(args interface{}) (IProvider, error) {
	client, err := newGeminiClient(args)
	if err != nil {
		return nil, err
	}
	return &geminiProvider{client: client}, nil
}

func createGeminiEmbedFactory(args interface{}) (IEmbedProvider, error) {
	client, err := newGeminiClient(args)
	if err != nil {
		return nil, err
	}
	return &geminiEmbedProvider{client: client}, nil
}

func init() {
	Register("gemini", createGeminiFactory)
	RegisterEmbed("gemini", createGeminiEmbedFactory)
}

// decodeConfig round-trips the loosely typed provider data into dst.
// A nil args leaves dst at its zero value.
func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode ai provider config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode ai provider config: %w", err)
	}
	return nil
}
