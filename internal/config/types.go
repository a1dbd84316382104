package config

import "strings"

// Config 是 Sibyl 的主配置载体。
type Config struct {
	App      AppConfig      `toml:"app"`
	Ledger   LedgerConfig   `toml:"ledger"`
	Schedule ScheduleConfig `toml:"schedule"`
	Submit   SubmitConfig   `toml:"submit"`
	Poll     PollConfig     `toml:"poll"`
	Context  ContextConfig  `toml:"context"`
	Accuracy AccuracyConfig `toml:"accuracy"`
	Notify   NotifyConfig   `toml:"notify"`
	RunLog   RunLogConfig   `toml:"runlog"`
	Symbols  SymbolsConfig  `toml:"symbols"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
}

// LedgerConfig 描述 GenLayer RPC 端点与合约的访问方式。
type LedgerConfig struct {
	Endpoint               string `toml:"endpoint"`
	ContractAddress        string `toml:"contract_address"`
	Account                string `toml:"account"`
	TimeoutSeconds         int    `toml:"timeout_seconds"`
	BreakerThreshold       int    `toml:"breaker_threshold"`
	BreakerCooldownSeconds int    `toml:"breaker_cooldown_seconds"`
}

type ScheduleConfig struct {
	IntervalSeconds int  `toml:"interval_seconds"`
	RunImmediately  bool `toml:"run_immediately"`
}

// SubmitConfig 控制提交引擎与编排节奏。
type SubmitConfig struct {
	MaxRetries            int      `toml:"max_retries"`
	BackoffSeconds        int      `toml:"backoff_seconds"`
	Timeframes            []string `toml:"timeframes"`
	Whitelist             []string `toml:"whitelist"`
	TimeframePauseSeconds int      `toml:"timeframe_pause_seconds"`
	SymbolPauseSeconds    int      `toml:"symbol_pause_seconds"`
	SkipLivePredictions   bool     `toml:"skip_live_predictions"`
}

type PollConfig struct {
	IntervalSeconds int `toml:"interval_seconds"`
	MaxAttempts     int `toml:"max_attempts"`
}

// ContextConfig 指向行情上下文聚合服务。
type ContextConfig struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type AccuracyConfig struct {
	Enabled    bool `toml:"enabled"`
	BatchLimit int  `toml:"batch_limit"`
	PacingMS   int  `toml:"pacing_ms"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled"`
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
}

type RunLogConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// SymbolsConfig 控制启动时的符号注册引导。
type SymbolsConfig struct {
	BootstrapPath string `toml:"bootstrap_path"`
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}
