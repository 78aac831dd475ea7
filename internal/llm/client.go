package llm

import (
	"context"

	"stock-noti-bot/internal/store"
)

// Chatter is the low-level completion client. It sends one system+user
// exchange and returns the model's raw text output. Prompt construction
// and output parsing live in the analyzer, not here.
type Chatter interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// NewChatter picks the wire format for the configured provider. Everything
// except Anthropic speaks the OpenAI chat completions format.
func NewChatter(cfg *store.Config) Chatter {
	if cfg.ProviderEnum().OpenAICompatible() {
		return NewOpenAIClient(cfg)
	}
	return NewClaudeClient(cfg)
}
