package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// serverGenerator implements Generator by talking to a running llama.cpp
// server (or any OpenAI-compatible completion server) over HTTP.
type serverGenerator struct {
	baseURL    string
	apiKey     string
	reqTimeout time.Duration
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewServerGenerator constructs a server-backed generator. reqTimeout bounds
// a single completion request; zero disables the extra deadline.
func NewServerGenerator(baseURL, apiKey string, reqTimeout time.Duration, logger zerolog.Logger) Generator {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	// Timeout stays 0 on the client: deadlines are carried by the request
	// context so streaming responses are not cut mid-generation.
	cli := &http.Client{Transport: tr, Timeout: 0}
	return &serverGenerator{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		reqTimeout: reqTimeout,
		httpClient: cli,
		logger:     logger,
	}
}

func (g *serverGenerator) Name() string { return "server" }

// completionRequest is the payload for /v1/completions.
type completionRequest struct {
	Prompt      string   `json:"prompt"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Temperature float32  `json:"temperature,omitempty"`
	TopP        float32  `json:"top_p,omitempty"`
	TopK        int      `json:"top_k,omitempty"`
	Stop        []string `json:"stop,omitempty"`
	Seed        int      `json:"seed,omitempty"`
	Stream      bool     `json:"stream"`
	// Not standard OpenAI; llama.cpp builds that ignore it do so safely.
	RepeatPenalty float32 `json:"repeat_penalty,omitempty"`
}

// streamChoice is a minimal subset of the OpenAI streaming response.
type streamChoice struct {
	Text  string `json:"text"`
	Delta struct {
		Content string `json:"content"`
	} `json:"delta"`
	FinishReason string `json:"finish_reason"`
}

type streamResponse struct {
	Object  string         `json:"object"`
	Choices []streamChoice `json:"choices"`
}

func (g *serverGenerator) Generate(ctx context.Context, prompt string, params Params, onToken func(string) error) (FinalResult, error) {
	if g.httpClient == nil {
		return FinalResult{}, errors.New("server generator not initialized")
	}
	if g.reqTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.reqTimeout)
		defer cancel()
	}
	payload := completionRequest{
		Prompt:        prompt,
		MaxTokens:     params.MaxTokens,
		Temperature:   params.Temperature,
		TopP:          params.TopP,
		TopK:          params.TopK,
		Stop:          params.Stop,
		Seed:          params.Seed,
		Stream:        true,
		RepeatPenalty: params.RepeatPenalty,
	}
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/completions", bytes.NewReader(body))
	if err != nil {
		return FinalResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return FinalResult{}, ctx.Err()
		}
		return FinalResult{}, ErrUnavailable("llama server unreachable: " + err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return FinalResult{}, errors.New("llama server http error: " + resp.Status + ": " + string(b))
	}
	return g.consumeStream(ctx, resp.Body, onToken)
}

// consumeStream parses SSE "data:" lines (and per-line JSON objects some
// servers emit) and forwards content fragments.
func (g *serverGenerator) consumeStream(ctx context.Context, body io.Reader, onToken func(string) error) (FinalResult, error) {
	r := bufio.NewReader(body)
	var final FinalResult
	var sb strings.Builder
	emit := func(frag string) error {
		sb.WriteString(frag)
		if onToken != nil {
			return onToken(frag)
		}
		return nil
	}
	for {
		line, err := r.ReadString('\n')
		if len(line) > 0 {
			line = strings.TrimSpace(line)
			switch {
			case line == "":
				// heartbeats/empties
			case strings.HasPrefix(strings.ToLower(line), "data:"):
				data := strings.TrimSpace(line[len("data:"):])
				if data == "[DONE]" {
					final.Content = sb.String()
					return final, nil
				}
				var msg streamResponse
				if jerr := json.Unmarshal([]byte(data), &msg); jerr == nil && len(msg.Choices) > 0 {
					frag := msg.Choices[0].Delta.Content
					if frag == "" {
						frag = msg.Choices[0].Text
					}
					if frag != "" {
						if cbErr := emit(frag); cbErr != nil {
							final.Content = sb.String()
							return final, cbErr
						}
					}
					if fr := msg.Choices[0].FinishReason; fr != "" {
						final.FinishReason = fr
					}
					continue
				}
				// Some servers stream raw JSON objects with a "content" field.
				var generic map[string]any
				if jerr := json.Unmarshal([]byte(data), &generic); jerr == nil {
					if tok, ok := generic["content"].(string); ok && tok != "" {
						if cbErr := emit(tok); cbErr != nil {
							final.Content = sb.String()
							return final, cbErr
						}
						continue
					}
				}
				g.logger.Debug().Str("line", line).Msg("unknown stream line")
			}
		}
		if err != nil {
			final.Content = sb.String()
			if errors.Is(err, io.EOF) {
				return final, nil
			}
			if ctx.Err() != nil {
				return final, ctx.Err()
			}
			return final, err
		}
	}
}
