package store

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	AI struct {
		Provider string `yaml:"provider"`
		APIKey   string `yaml:"api_key"`
		Model    string `yaml:"model"`
		BaseURL  string `yaml:"base_url"`
	} `yaml:"ai"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Stocks        []StockConfig `yaml:"stocks"`
	AlertSettings struct {
		IntervalMinutes           int     `yaml:"interval_minutes"`
		MinImportance             int     `yaml:"min_importance"`
		PriceChangeThreshold      float64 `yaml:"price_change_threshold"`
		NewsTimeframeHours        int     `yaml:"news_timeframe_hours"`
		PriceAlertCooldownMinutes int     `yaml:"price_alert_cooldown_minutes"`
	} `yaml:"alert_settings"`
	Schedule struct {
		Enabled  bool   `yaml:"enabled"`
		Cron     string `yaml:"cron"`
		Timezone string `yaml:"timezone"`
	} `yaml:"schedule"`
	SettingsFile string `yaml:"settings_file"`
}

// StockConfig names a configured symbol and its detection keywords.
type StockConfig struct {
	Symbol   string   `yaml:"symbol"`
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// ProviderEnum returns the validated provider variant. Validate must have
// passed for the result to be meaningful.
func (c *Config) ProviderEnum() Provider {
	p, _ := ParseProvider(c.AI.Provider)
	return p
}

// ChatID parses the configured chat destination.
func (c *Config) ChatID() (int64, error) {
	id, err := strconv.ParseInt(c.Telegram.ChatID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("telegram.chat_id '%s' is not a numeric chat id", c.Telegram.ChatID)
	}
	return id, nil
}

// StockName resolves the display name for a symbol, falling back to the
// symbol itself when it is not configured.
func (c *Config) StockName(symbol string) string {
	for _, s := range c.Stocks {
		if s.Symbol == symbol {
			return s.Name
		}
	}
	return symbol
}

func (c *Config) Validate() error {
	if _, err := ParseProvider(c.AI.Provider); err != nil {
		return err
	}
	if c.AI.APIKey == "" {
		return fmt.Errorf("ai.api_key is empty: set it in config.yaml or export AI_API_KEY")
	}
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is empty: set it in config.yaml or export TELEGRAM_BOT_TOKEN")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is empty: set it in config.yaml or export TELEGRAM_CHAT_ID")
	}
	if _, err := c.ChatID(); err != nil {
		return err
	}
	if c.AlertSettings.MinImportance < 0 || c.AlertSettings.MinImportance > 10 {
		return fmt.Errorf("alert_settings.min_importance must be between 0-10, got %d", c.AlertSettings.MinImportance)
	}
	if c.AlertSettings.PriceChangeThreshold <= 0 {
		return fmt.Errorf("alert_settings.price_change_threshold must be positive, got %.2f", c.AlertSettings.PriceChangeThreshold)
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w\n\nRun: cp config.example.yaml config.yaml and fill in your API keys", err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	applyDefaults(&c)
	applyEnvOverrides(&c)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}

func applyDefaults(c *Config) {
	if c.AI.Provider == "" {
		c.AI.Provider = string(ProviderOpenAI)
	}
	if p, err := ParseProvider(c.AI.Provider); err == nil {
		if c.AI.Model == "" {
			c.AI.Model = p.DefaultModel()
		}
		if c.AI.BaseURL == "" {
			c.AI.BaseURL = p.DefaultBaseURL()
		}
	}
	if c.AlertSettings.IntervalMinutes == 0 {
		c.AlertSettings.IntervalMinutes = 60
	}
	if c.AlertSettings.MinImportance == 0 {
		c.AlertSettings.MinImportance = 5
	}
	if c.AlertSettings.PriceChangeThreshold == 0 {
		c.AlertSettings.PriceChangeThreshold = 3.0
	}
	if c.AlertSettings.NewsTimeframeHours == 0 {
		c.AlertSettings.NewsTimeframeHours = 24
	}
	if c.Schedule.Cron == "" {
		c.Schedule.Cron = "0 9-16 * * 1-5"
	}
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = "America/New_York"
	}
	if c.SettingsFile == "" {
		c.SettingsFile = "user_settings.json"
	}
}

// applyEnvOverrides lets secrets come from the environment instead of the
// config file.
func applyEnvOverrides(c *Config) {
	if v := os.Getenv("AI_API_KEY"); v != "" {
		c.AI.APIKey = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
}
