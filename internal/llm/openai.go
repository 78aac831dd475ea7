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

// OpenAIClient speaks the OpenAI chat completions format. It serves
// OpenAI, Zhipu, DeepSeek and xAI, which all expose the same wire shape
// behind different base URLs.
type OpenAIClient struct {
	cfg  *store.Config
	http *http.Client
}

func NewOpenAIClient(cfg *store.Config) *OpenAIClient {
	return &OpenAIClient{
		cfg:  cfg,
		http: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *OpenAIClient) Complete(ctx context.Context, system, user string) (string, error) {
	ctx, span := trace.StartSpan(ctx, "openai-api-call")
	defer span.End()

	if c.cfg.AI.APIKey == "" {
		return "", errors.New("ai.api_key missing")
	}

	body := map[string]any{
		"model": c.cfg.AI.Model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
		"temperature": 0.3,
	}
	bb, _ := json.Marshal(body)

	url := strings.TrimSuffix(c.cfg.AI.BaseURL, "/") + "/chat/completions"
	req, _ := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(bb))
	req.Header.Set("Authorization", "Bearer "+c.cfg.AI.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%s http %d: %s", c.cfg.AI.Provider, resp.StatusCode, string(msg))
	}

	var r struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return "", err
	}
	if len(r.Choices) == 0 {
		return "", errors.New("no choices in completion response")
	}

	return strings.TrimSpace(r.Choices[0].Message.Content), nil
}
