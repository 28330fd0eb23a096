package openai

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/studydeck/internal/common"
	"github.com/joseph-ayodele/studydeck/internal/llm"
)

var _ llm.Invoker = (*Client)(nil)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Invoke implements llm.Invoker with a single text-only chat/completions call.
func (c *Client) Invoke(ctx context.Context, prompt string, opts llm.InvokeOptions) (string, error) {
	if err := c.validate(); err != nil {
		c.log.Error("llm.invoke.config_error", "error", err)
		return "", err
	}

	rid := common.RequestIDFromContext(ctx)
	if rid == "" {
		rid = uuid.New().String()
		ctx = common.WithRequestID(ctx, rid)
	}
	start := time.Now()

	c.log.Info("llm.invoke.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"temp", opts.Temperature,
		"max_tokens", opts.MaxTokens,
		"prompt_len", len(prompt),
	)

	body := chatRequest{
		Model:       c.cfg.Model,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
	}
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}

	raw, status, err := llm.SendJSON(ctx, c.httpClient, endpoint, body, headers, c.log)
	if err != nil {
		c.log.Error("llm.invoke.http_error",
			"req_id", rid, "status", status, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", err
	}

	var cc chatResponse
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.log.Error("llm.invoke.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", common.TransportError("decode provider response", err)
	}
	if len(cc.Choices) == 0 {
		c.log.Error("llm.invoke.no_choices",
			"req_id", rid,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", common.TransportError("provider response has no choices", nil)
	}

	choice := cc.Choices[0]
	if choice.FinishReason == "length" {
		c.log.Warn("llm.invoke.truncated", "req_id", rid, "max_tokens", opts.MaxTokens)
	}
	c.log.Info("llm.invoke.ok",
		"req_id", rid,
		"content_len", len(choice.Message.Content),
		"finish_reason", choice.FinishReason,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return choice.Message.Content, nil
}

func (c *Client) validate() error {
	return common.LLMConfig{
		Model:   c.cfg.Model,
		APIKey:  c.cfg.APIKey,
		BaseURL: c.cfg.BaseURL,
	}.Validate()
}
