//go:build llama

package llm

// cgo link directives for the in-process llama backend.
// - rpath $ORIGIN lets the runtime loader find libllama.so next to the
//   built binary (./bin).
// - -L${SRCDIR}/../../bin lets the linker find libllama.so when building
//   the 'llama' variant.
/*
#cgo LDFLAGS: -Wl,-rpath,'$ORIGIN' -L${SRCDIR}/../../bin -lllama
*/
import "C"

import (
	"context"
	"errors"
	"strings"
	"sync"

	llama "github.com/go-skynet/go-llama.cpp"
)

// cgoGenerator runs the model in-process via go-llama.cpp. The model is
// loaded lazily on first use and reused for the life of the process.
type cgoGenerator struct {
	modelPath string
	ctxSize   int
	threads   int

	mu    sync.Mutex
	model *llama.LLama
}

// NewCgoGenerator constructs the in-process backend for a local GGUF file.
func NewCgoGenerator(modelPath string, ctxSize, threads int) Generator {
	return &cgoGenerator{modelPath: modelPath, ctxSize: ctxSize, threads: threads}
}

func (g *cgoGenerator) Name() string { return "cgo" }

func (g *cgoGenerator) load() (*llama.LLama, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.model != nil {
		return g.model, nil
	}
	if strings.TrimSpace(g.modelPath) == "" {
		return nil, errors.New("model path is empty")
	}
	m, err := llama.New(g.modelPath, llama.SetContext(g.ctxSize))
	if err != nil {
		return nil, err
	}
	g.model = m
	return m, nil
}

func (g *cgoGenerator) Generate(ctx context.Context, prompt string, params Params, onToken func(string) error) (FinalResult, error) {
	m, err := g.load()
	if err != nil {
		return FinalResult{}, err
	}
	// One generation at a time; the studio admission queue already enforces
	// this, but the llama context itself is not reentrant either.
	g.mu.Lock()
	defer g.mu.Unlock()

	m.SetTokenCallback(func(tok string) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		if onToken != nil {
			if err := onToken(tok); err != nil {
				return false
			}
		}
		return true
	})
	po := predictOptions(params, g.threads)
	text, err := m.Predict(prompt, po...)
	if err != nil {
		if ctx.Err() != nil {
			return FinalResult{}, ctx.Err()
		}
		return FinalResult{}, err
	}
	return FinalResult{Content: text, FinishReason: "stop"}, nil
}

// Close frees the loaded model.
func (g *cgoGenerator) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.model != nil {
		g.model.Free()
		g.model = nil
	}
	return nil
}

func orInt(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func orFloat(v, def float32) float32 {
	if v > 0 {
		return v
	}
	return def
}

// predictOptions converts Params into go-llama.cpp options.
func predictOptions(params Params, threads int) []llama.PredictOption {
	po := []llama.PredictOption{
		llama.SetTokens(orInt(params.MaxTokens, 512)),
		llama.SetThreads(orInt(threads, 4)),
		llama.SetTopP(orFloat(params.TopP, llama.DefaultOptions.TopP)),
		llama.SetTopK(orInt(params.TopK, llama.DefaultOptions.TopK)),
		llama.SetTemperature(orFloat(params.Temperature, llama.DefaultOptions.Temperature)),
		llama.SetPenalty(orFloat(params.RepeatPenalty, llama.DefaultOptions.Penalty)),
	}
	if params.Seed != 0 {
		po = append(po, llama.SetSeed(params.Seed))
	}
	if len(params.Stop) > 0 {
		po = append(po, llama.SetStopWords(params.Stop...))
	}
	return po
}
