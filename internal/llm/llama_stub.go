//go:build !llama

package llm

// This file provides a no-CGO stub for the in-process llama backend. It is
// compiled when the 'llama' build tag is NOT set, keeping default builds and
// CI CGO-free. The real backend lives in llama_cgo.go (tagged 'llama').

import (
	"context"
)

type cgoGenerator struct {
	modelPath string
	ctxSize   int
	threads   int
}

// NewCgoGenerator returns a stub that refuses to run inference without the
// 'llama' build tag. This avoids any mocked behavior in binaries built
// without CGO support.
func NewCgoGenerator(modelPath string, ctxSize, threads int) Generator {
	return &cgoGenerator{modelPath: modelPath, ctxSize: ctxSize, threads: threads}
}

func (g *cgoGenerator) Name() string { return "cgo" }

func (g *cgoGenerator) Generate(ctx context.Context, prompt string, params Params, onToken func(string) error) (FinalResult, error) {
	select {
	case <-ctx.Done():
		return FinalResult{}, ctx.Err()
	default:
	}
	return FinalResult{}, ErrUnavailable("llama support not built (missing 'llama' build tag)")
}
