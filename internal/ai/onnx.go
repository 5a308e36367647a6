package ai

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	tokenizer "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	ort "github.com/yalue/onnxruntime_go"
)

const defaultONNXMaxTokens = 256

type onnxConfig struct {
	ModelPath     string `json:"model_path"`
	TokenizerPath string `json:"tokenizer_path"`
	LibraryPath   string `json:"library_path"`
	MaxTokens     int    `json:"max_tokens"`
}

var (
	ortInitOnce sync.Once
	ortInitErr  error
)

// onnxEmbedProvider runs a sentence-transformer (all-MiniLM-L6-v2 or similar)
// locally. Output vectors are mean pooled over the attention mask and L2
// normalised, so a dot product equals cosine similarity.
type onnxEmbedProvider struct {
	mu        sync.Mutex
	tok       *tokenizer.Tokenizer
	session   *ort.DynamicAdvancedSession
	maxTokens int
}

func (p *onnxEmbedProvider) Name() string {
	return "onnx"
}

func (p *onnxEmbedProvider) Embed(ctx context.Context, model string, text string, taskType string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	enc, err := p.tok.EncodeSingle(text, true)
	if err != nil {
		return nil, fmt.Errorf("tokenize: %w", err)
	}
	ids := enc.GetIds()
	mask := enc.GetAttentionMask()
	if len(ids) > p.maxTokens {
		ids = ids[:p.maxTokens]
		mask = mask[:p.maxTokens]
	}
	seqLen := len(ids)
	if seqLen == 0 {
		return nil, fmt.Errorf("tokenize: empty input")
	}
	inputIDs := make([]int64, seqLen)
	attention := make([]int64, seqLen)
	tokenTypes := make([]int64, seqLen)
	for i := range ids {
		inputIDs[i] = int64(ids[i])
		attention[i] = int64(mask[i])
	}

	shape := ort.NewShape(1, int64(seqLen))
	idsTensor, err := ort.NewTensor(shape, inputIDs)
	if err != nil {
		return nil, fmt.Errorf("create input_ids tensor: %w", err)
	}
	defer idsTensor.Destroy()
	maskTensor, err := ort.NewTensor(shape, attention)
	if err != nil {
		return nil, fmt.Errorf("create attention_mask tensor: %w", err)
	}
	defer maskTensor.Destroy()
	typeTensor, err := ort.NewTensor(shape, tokenTypes)
	if err != nil {
		return nil, fmt.Errorf("create token_type_ids tensor: %w", err)
	}
	defer typeTensor.Destroy()

	outputs := make([]ort.Value, 1)
	p.mu.Lock()
	err = p.session.Run([]ort.Value{idsTensor, maskTensor, typeTensor}, outputs)
	p.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("inference: %w", err)
	}
	defer outputs[0].Destroy()
	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output tensor type")
	}
	dims := out.GetShape()
	if len(dims) != 3 {
		return nil, fmt.Errorf("unexpected output shape %v", dims)
	}
	return meanPool(out.GetData(), attention, int(dims[1]), int(dims[2])), nil
}

// meanPool averages token vectors of one sequence where mask is set and
// L2-normalises the result.
func meanPool(hidden []float32, mask []int64, seqLen, dim int) []float32 {
	out := make([]float32, dim)
	var count float32
	for t := 0; t < seqLen && t < len(mask); t++ {
		if mask[t] == 0 {
			continue
		}
		count++
		row := hidden[t*dim : (t+1)*dim]
		for d, v := range row {
			out[d] += v
		}
	}
	if count == 0 {
		return out
	}
	var norm float64
	for d := range out {
		out[d] /= count
		norm += float64(out[d]) * float64(out[d])
	}
	if norm == 0 {
		return out
	}
	inv := float32(1 / math.Sqrt(norm))
	for d := range out {
		out[d] *= inv
	}
	return out
}

func createONNXEmbedFactory(args interface{}) (IEmbedProvider, error) {
	cfg := &onnxConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.ModelPath) == "" || strings.TrimSpace(cfg.TokenizerPath) == "" {
		return nil, fmt.Errorf("onnx embedder requires model_path and tokenizer_path")
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultONNXMaxTokens
	}
	tok, err := pretrained.FromFile(cfg.TokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}
	ortInitOnce.Do(func() {
		if cfg.LibraryPath != "" {
			ort.SetSharedLibraryPath(cfg.LibraryPath)
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	if ortInitErr != nil {
		return nil, fmt.Errorf("init onnx runtime: %w", ortInitErr)
	}
	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("create session options: %w", err)
	}
	defer opts.Destroy()
	if err := opts.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableAll); err != nil {
		return nil, fmt.Errorf("set graph optimization: %w", err)
	}
	session, err := ort.NewDynamicAdvancedSession(
		cfg.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"last_hidden_state"},
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("create onnx session: %w", err)
	}
	return &onnxEmbedProvider{tok: tok, session: session, maxTokens: cfg.MaxTokens}, nil
}

func init() {
	RegisterEmbed("onnx", createONNXEmbedFactory)
}
