package config

import (
	"fmt"
	"strings"

	"sibyl/internal/timeframe"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.Ledger.validate(); err != nil {
		return err
	}
	if err := c.Submit.validate(); err != nil {
		return err
	}
	if err := c.Notify.validate(); err != nil {
		return err
	}
	if err := c.Context.validate(); err != nil {
		return err
	}
	return nil
}

func (l *LedgerConfig) validate() error {
	if strings.TrimSpace(l.Endpoint) == "" {
		return fmt.Errorf("ledger.endpoint cannot be empty")
	}
	if strings.TrimSpace(l.ContractAddress) == "" {
		return fmt.Errorf("ledger.contract_address cannot be empty")
	}
	return nil
}

func (s *SubmitConfig) validate() error {
	if s.MaxRetries < 0 {
		return fmt.Errorf("submit.max_retries must be >= 0")
	}
	if _, err := timeframe.ParseSet(s.Timeframes); err != nil {
		return fmt.Errorf("submit.timeframes: %w", err)
	}
	return nil
}

func (n *NotifyConfig) validate() error {
	if !n.Telegram.Enabled {
		return nil
	}
	if strings.TrimSpace(n.Telegram.BotToken) == "" {
		return fmt.Errorf("notify.telegram.bot_token cannot be empty when enabled")
	}
	if strings.TrimSpace(n.Telegram.ChatID) == "" {
		return fmt.Errorf("notify.telegram.chat_id cannot be empty when enabled")
	}
	return nil
}

func (c *ContextConfig) validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("context.base_url cannot be empty")
	}
	return nil
}
