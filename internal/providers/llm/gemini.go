package llm

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sandevgo/mualim/internal/core"
	"github.com/sandevgo/mualim/pkg/log"
	"github.com/sandevgo/mualim/pkg/retry"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com"

type GeminiConfig struct {
	BaseURL           string // defaults to the public endpoint
	APIKeys           []string
	Model             string
	SystemInstruction string
	Retry             *retry.Config
}

// Gemini streams answers from the generative-inference API. Each
// attempt acquires the pool's current key; quota errors rotate the key
// and retry with backoff, bounded by the larger of the configured
// attempts and the pool size so every key gets one chance.
type Gemini struct {
	baseProvider
	pool    *KeyPool
	retrier *retry.Retrier
	system  string
}

func NewGemini(cfg GeminiConfig) *Gemini {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = geminiBaseURL
	}

	pool := NewKeyPool(cfg.APIKeys)

	retryCfg := cfg.Retry
	if retryCfg == nil {
		retryCfg = retry.NewDefaultConfig()
	}
	if pool.Size() > retryCfg.MaxAttempts {
		retryCfg.MaxAttempts = pool.Size()
	}

	return &Gemini{
		baseProvider: newBaseProvider(baseURL, cfg.Model),
		pool:         pool,
		retrier:      retry.NewRetrier(retryCfg),
		system:       cfg.SystemInstruction,
	}
}

func (g *Gemini) Pool() *KeyPool { return g.pool }

func (g *Gemini) Stream(ctx context.Context, req core.PromptRequest, onDelta core.StreamFunc) (string, error) {
	if g.pool.Size() == 0 {
		return "", core.NewProviderError(core.FailInvalidCredential, 0,
			errors.New("no API keys configured"))
	}

	logger := log.FromCtx(ctx)

	var total string
	op := func() error {
		key := g.pool.Current()

		text, err := g.streamOnce(ctx, key, req, onDelta)
		if err == nil {
			total = text
			return nil
		}

		// Rotation happens on every quota failure, so a burst of
		// rate limits walks through the whole pool exactly once.
		if core.IsRateLimited(err) {
			rotated := g.pool.Rotate()
			logger.Warn().Bool("rotated", rotated).Msg("provider rate limited, rotating key")
		}
		return err
	}

	retryIf := func(err error) bool {
		if core.IsInvalidCredential(err) {
			return false
		}
		if core.IsRateLimited(err) {
			return g.pool.Size() > 1
		}
		return true // network and unknown errors get the same bounded retry
	}

	onRetry := func(attempt int, err error) {
		logger.Debug().Int("attempt", attempt).Err(err).Msg("retrying provider call")
	}

	if err := g.retrier.Do(ctx, op, retryIf, onRetry); err != nil {
		return "", err
	}
	return total, nil
}

// geminiContent mirrors the generateContent wire schema.
type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

func (g *Gemini) buildPayload(req core.PromptRequest) map[string]any {
	contents := make([]geminiContent, 0, len(req.History)+1)
	for _, turn := range req.History {
		role := "user"
		if turn.Role == core.RoleAssistant {
			role = "model"
		}
		contents = append(contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: turn.Content}},
		})
	}

	current := geminiContent{Role: "user"}
	if req.Attachment != nil {
		current.Parts = append(current.Parts, geminiPart{
			InlineData: &geminiInlineData{
				MimeType: req.Attachment.MimeType,
				Data:     req.Attachment.Data,
			},
		})
	}
	current.Parts = append(current.Parts, geminiPart{Text: req.Query})
	contents = append(contents, current)

	payload := map[string]any{
		"contents": contents,
		"generationConfig": map[string]any{
			"temperature": 0.7,
		},
	}
	if g.system != "" {
		payload["system_instruction"] = geminiContent{
			Parts: []geminiPart{{Text: g.system}},
		}
	}
	return payload
}

func (g *Gemini) streamOnce(ctx context.Context, key string, req core.PromptRequest, onDelta core.StreamFunc) (string, error) {
	path := fmt.Sprintf("/v1beta/models/%s:streamGenerateContent?alt=sse", g.model)
	headers := map[string]string{
		"x-goog-api-key": key,
	}

	resp, err := g.doRequest(ctx, http.MethodPost, path, g.buildPayload(req), headers)
	if err != nil {
		return "", core.NewProviderError(core.FailNetwork, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", classifyStatus(resp.StatusCode, body)
	}

	return readStream(resp.Body, onDelta)
}

// classifyStatus maps HTTP status codes to the typed taxonomy. The
// provider signals quota exhaustion with 429; credential problems with
// 400/401/403.
func classifyStatus(status int, body []byte) error {
	err := fmt.Errorf("%s", strings.TrimSpace(string(body)))
	switch status {
	case http.StatusTooManyRequests:
		return core.NewProviderError(core.FailRateLimited, status, err)
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return core.NewProviderError(core.FailInvalidCredential, status, err)
	default:
		return core.NewProviderError(core.FailOther, status, err)
	}
}

// readStream consumes the SSE body. Each data event carries a text
// delta; onDelta always receives the cumulative text.
func readStream(body io.Reader, onDelta core.StreamFunc) (string, error) {
	var total strings.Builder

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" || data == "[DONE]" {
			continue
		}

		var chunk struct {
			Candidates []struct {
				Content struct {
					Parts []struct {
						Text string `json:"text"`
					} `json:"parts"`
				} `json:"content"`
			} `json:"candidates"`
		}
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return "", core.NewProviderError(core.FailOther, 0, fmt.Errorf("decode chunk: %w", err))
		}

		var delta string
		for _, c := range chunk.Candidates {
			for _, p := range c.Content.Parts {
				delta += p.Text
			}
		}
		if delta != "" {
			total.WriteString(delta)
			if onDelta != nil {
				onDelta(total.String())
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return "", core.NewProviderError(core.FailNetwork, 0, err)
	}

	return total.String(), nil
}
