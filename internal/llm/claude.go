package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"stock-noti-bot/internal/store"
	"stock-noti-bot/internal/trace"
)

const anthropicVersion = "2023-06-01"

// ClaudeClient speaks the Anthropic messages format.
type ClaudeClient struct {
	cfg  *store.Config
	http *http.Client
}

func NewClaudeClient(cfg *store.Config) *ClaudeClient {
	return &ClaudeClient{
		cfg:  cfg,
		http: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *ClaudeClient) Complete(ctx context.Context, system, user string) (string, error) {
	ctx, span := trace.StartSpan(ctx, "claude-api-call")
	defer span.End()

	if c.cfg.AI.APIKey == "" {
		return "", errors.New("ai.api_key missing")
	}

	body := map[string]any{
		"model":      c.cfg.AI.Model,
		"max_tokens": 2048,
		"system":     system,
		"messages": []map[string]string{
			{"role": "user", "content": user},
		},
	}
	bb, _ := json.Marshal(body)

	url := strings.TrimSuffix(c.cfg.AI.BaseURL, "/") + "/messages"
	req, _ := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(bb))
	req.Header.Set("x-api-key", c.cfg.AI.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("claude http %d: %s", resp.StatusCode, string(msg))
	}

	var r struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return "", err
	}
	for _, block := range r.Content {
		if block.Type == "text" && strings.TrimSpace(block.Text) != "" {
			return strings.TrimSpace(block.Text), nil
		}
	}
	return "", errors.New("no text content in claude response")
}
