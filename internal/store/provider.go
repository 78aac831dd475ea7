package store

import "fmt"

// Provider is the closed set of supported classification providers. Each
// variant carries its fixed API defaults so an invalid provider name can
// never reach the network layer.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderZhipu     Provider = "zhipu"
	ProviderDeepSeek  Provider = "deepseek"
	ProviderXAI       Provider = "xai"
)

var providerDefaults = map[Provider]struct {
	baseURL string
	model   string
}{
	ProviderOpenAI:    {"https://api.openai.com/v1", "gpt-4o-mini"},
	ProviderAnthropic: {"https://api.anthropic.com/v1", "claude-3-haiku-20240307"},
	ProviderZhipu:     {"https://open.bigmodel.cn/api/paas/v4", "glm-4-flash"},
	ProviderDeepSeek:  {"https://api.deepseek.com/v1", "deepseek-chat"},
	ProviderXAI:       {"https://api.x.ai/v1", "grok-4-latest"},
}

// ParseProvider validates a provider name from configuration.
func ParseProvider(s string) (Provider, error) {
	p := Provider(s)
	if _, ok := providerDefaults[p]; !ok {
		return "", fmt.Errorf("unknown ai.provider '%s': must be one of openai, anthropic, zhipu, deepseek, xai", s)
	}
	return p, nil
}

// DefaultBaseURL returns the provider's fixed API endpoint.
func (p Provider) DefaultBaseURL() string {
	return providerDefaults[p].baseURL
}

// DefaultModel returns the provider's default model name.
func (p Provider) DefaultModel() string {
	return providerDefaults[p].model
}

// OpenAICompatible reports whether the provider speaks the OpenAI chat
// completions wire format. Anthropic is the only exception.
func (p Provider) OpenAICompatible() bool {
	return p != ProviderAnthropic
}
