// Package llm wraps the Gemini completion API behind the small contract
// the dialogue loop needs: one prompt in, free text out, with a sampling
// temperature and an output-token budget. Callers must supply their own
// user-visible fallback text; this package only reports failure.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/myravoice/myra/internal/ratelimit"
)

type Client struct {
	client  *genai.Client
	model   string
	limiter *ratelimit.Limiter
}

func NewClient(ctx context.Context, apiKey, model string, limiter *ratelimit.Limiter) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{client: client, model: model, limiter: limiter}, nil
}

func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// Complete runs one completion. No retries; a failed call surfaces
// immediately and the caller speaks its fallback.
func (c *Client) Complete(ctx context.Context, prompt string, temperature float32, maxTokens int32) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Acquire(ctx); err != nil {
			return "", err
		}
	}

	model := c.client.GenerativeModel(c.model)
	model.SetTemperature(temperature)
	if maxTokens > 0 {
		model.SetMaxOutputTokens(maxTokens)
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from Gemini")
	}

	text := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("empty response from Gemini")
	}
	return text, nil
}
