package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// ollamaGenerator delegates inference to a local Ollama daemon, which owns
// model pulling and caching itself.
type ollamaGenerator struct {
	llm *ollama.LLM
}

// NewOllamaGenerator constructs the Ollama backend.
func NewOllamaGenerator(host, model string) (Generator, error) {
	opts := []ollama.Option{ollama.WithModel(model)}
	if host != "" {
		opts = append(opts, ollama.WithServerURL(host))
	}
	l, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w", err)
	}
	return &ollamaGenerator{llm: l}, nil
}

func (g *ollamaGenerator) Name() string { return "ollama" }

func (g *ollamaGenerator) Generate(ctx context.Context, prompt string, params Params, onToken func(string) error) (FinalResult, error) {
	opts := []llms.CallOption{
		llms.WithMaxTokens(params.MaxTokens),
		llms.WithTemperature(float64(params.Temperature)),
		llms.WithTopP(float64(params.TopP)),
		llms.WithTopK(params.TopK),
	}
	if len(params.Stop) > 0 {
		opts = append(opts, llms.WithStopWords(params.Stop))
	}
	if onToken != nil {
		opts = append(opts, llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			return onToken(string(chunk))
		}))
	}
	out, err := llms.GenerateFromSinglePrompt(ctx, g.llm, prompt, opts...)
	if err != nil {
		if ctx.Err() != nil {
			return FinalResult{}, ctx.Err()
		}
		return FinalResult{}, ErrUnavailable("ollama generation failed: " + err.Error())
	}
	return FinalResult{Content: out, FinishReason: "stop"}, nil
}
