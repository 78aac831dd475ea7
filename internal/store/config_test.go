package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0644)
}

const validConfigYAML = `
ai:
  provider: openai
  api_key: sk-test
telegram:
  bot_token: "123:abc"
  chat_id: "-100123"
stocks:
  - symbol: NVDA
    name: NVIDIA
    keywords: ["nvidia", "黄仁勋"]
alert_settings:
  interval_minutes: 45
  min_importance: 6
  price_change_threshold: 2.5
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := writeFile(path, content); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validConfigYAML))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.AI.Provider != "openai" {
		t.Errorf("expected provider openai, got %s", cfg.AI.Provider)
	}
	if cfg.AI.Model != "gpt-4o-mini" {
		t.Errorf("expected default model gpt-4o-mini, got %s", cfg.AI.Model)
	}
	if cfg.AI.BaseURL != "https://api.openai.com/v1" {
		t.Errorf("expected default base URL, got %s", cfg.AI.BaseURL)
	}
	if cfg.AlertSettings.IntervalMinutes != 45 {
		t.Errorf("expected interval 45, got %d", cfg.AlertSettings.IntervalMinutes)
	}
	if cfg.AlertSettings.NewsTimeframeHours != 24 {
		t.Errorf("expected default timeframe 24, got %d", cfg.AlertSettings.NewsTimeframeHours)
	}

	chatID, err := cfg.ChatID()
	if err != nil {
		t.Fatalf("ChatID failed: %v", err)
	}
	if chatID != -100123 {
		t.Errorf("expected chat id -100123, got %d", chatID)
	}

	if got := cfg.StockName("NVDA"); got != "NVIDIA" {
		t.Errorf("expected configured name NVIDIA, got %s", got)
	}
	if got := cfg.StockName("MSFT"); got != "MSFT" {
		t.Errorf("expected symbol fallback for unconfigured stock, got %s", got)
	}
}

func TestLoadConfigUnknownProvider(t *testing.T) {
	yaml := strings.Replace(validConfigYAML, "provider: openai", "provider: cohere", 1)
	_, err := LoadConfig(writeConfig(t, yaml))
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
	if !strings.Contains(err.Error(), "cohere") {
		t.Errorf("error should name the bad provider, got: %v", err)
	}
}

func TestLoadConfigMissingKey(t *testing.T) {
	yaml := strings.Replace(validConfigYAML, "api_key: sk-test", "api_key: \"\"", 1)
	_, err := LoadConfig(writeConfig(t, yaml))
	if err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("AI_API_KEY", "sk-env")
	t.Setenv("TELEGRAM_CHAT_ID", "42")

	cfg, err := LoadConfig(writeConfig(t, validConfigYAML))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.AI.APIKey != "sk-env" {
		t.Errorf("expected env override for api key, got %s", cfg.AI.APIKey)
	}
	chatID, err := cfg.ChatID()
	if err != nil {
		t.Fatalf("ChatID failed: %v", err)
	}
	if chatID != 42 {
		t.Errorf("expected env override chat id 42, got %d", chatID)
	}
}

func TestProviderDefaults(t *testing.T) {
	cases := []struct {
		provider   Provider
		model      string
		compatible bool
	}{
		{ProviderOpenAI, "gpt-4o-mini", true},
		{ProviderAnthropic, "claude-3-haiku-20240307", false},
		{ProviderZhipu, "glm-4-flash", true},
		{ProviderDeepSeek, "deepseek-chat", true},
		{ProviderXAI, "grok-4-latest", true},
	}
	for _, c := range cases {
		if got := c.provider.DefaultModel(); got != c.model {
			t.Errorf("%s: expected default model %s, got %s", c.provider, c.model, got)
		}
		if got := c.provider.OpenAICompatible(); got != c.compatible {
			t.Errorf("%s: expected OpenAICompatible %v", c.provider, c.compatible)
		}
	}

	if _, err := ParseProvider("gemini"); err == nil {
		t.Error("expected ParseProvider to reject gemini")
	}
}
