package config

import "strings"

// 默认值常量
const (
	defaultAppEnv           = "dev"
	defaultAppLogLevel      = "info"
	defaultAppHTTPAddr      = ":9880"
	defaultAppLogPath       = "/data/logs/sibyl.log"
	defaultLedgerTimeout    = 30
	defaultBreakerThreshold = 5
	defaultBreakerCooldown  = 120
	defaultScheduleInterval = 3600
	defaultSubmitRetries    = 3
	defaultSubmitBackoff    = 5
	defaultTimeframePause   = 1
	defaultSymbolPause      = 3
	defaultPollInterval     = 3
	defaultPollMaxAttempts  = 40
	defaultContextTimeout   = 30
	defaultAccuracyBatch    = 50
	defaultAccuracyPacingMS = 500
	defaultRunLogPath       = "/data/db/sibyl-runs.db"
	defaultSymbolsBootstrap = "configs/symbols.yaml"
)

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Ledger.applyDefaults(keys)
	c.Schedule.applyDefaults(keys)
	c.Submit.applyDefaults(keys)
	c.Poll.applyDefaults(keys)
	c.Context.applyDefaults(keys)
	c.Accuracy.applyDefaults(keys)
	c.RunLog.applyDefaults(keys)
	c.Symbols.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
	)
}

func (l *LedgerConfig) applyDefaults(keys keySet) {
	if l == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "ledger.timeout_seconds",
			need:  func() bool { return l.TimeoutSeconds <= 0 },
			apply: func() { l.TimeoutSeconds = defaultLedgerTimeout },
		},
		fieldDefault{
			key:   "ledger.breaker_threshold",
			need:  func() bool { return l.BreakerThreshold <= 0 },
			apply: func() { l.BreakerThreshold = defaultBreakerThreshold },
		},
		fieldDefault{
			key:   "ledger.breaker_cooldown_seconds",
			need:  func() bool { return l.BreakerCooldownSeconds <= 0 },
			apply: func() { l.BreakerCooldownSeconds = defaultBreakerCooldown },
		},
	)
}

func (s *ScheduleConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "schedule.interval_seconds",
			need:  func() bool { return s.IntervalSeconds <= 0 },
			apply: func() { s.IntervalSeconds = defaultScheduleInterval },
		},
		boolFieldDefault("schedule.run_immediately", &s.RunImmediately, true),
	)
}

func (s *SubmitConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "submit.max_retries",
			need:  func() bool { return s.MaxRetries <= 0 },
			apply: func() { s.MaxRetries = defaultSubmitRetries },
		},
		fieldDefault{
			key:   "submit.backoff_seconds",
			need:  func() bool { return s.BackoffSeconds <= 0 },
			apply: func() { s.BackoffSeconds = defaultSubmitBackoff },
		},
		fieldDefault{
			key:   "submit.timeframe_pause_seconds",
			need:  func() bool { return s.TimeframePauseSeconds <= 0 },
			apply: func() { s.TimeframePauseSeconds = defaultTimeframePause },
		},
		fieldDefault{
			key:   "submit.symbol_pause_seconds",
			need:  func() bool { return s.SymbolPauseSeconds <= 0 },
			apply: func() { s.SymbolPauseSeconds = defaultSymbolPause },
		},
		boolFieldDefault("submit.skip_live_predictions", &s.SkipLivePredictions, true),
	)
}

func (p *PollConfig) applyDefaults(keys keySet) {
	if p == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "poll.interval_seconds",
			need:  func() bool { return p.IntervalSeconds <= 0 },
			apply: func() { p.IntervalSeconds = defaultPollInterval },
		},
		fieldDefault{
			key:   "poll.max_attempts",
			need:  func() bool { return p.MaxAttempts <= 0 },
			apply: func() { p.MaxAttempts = defaultPollMaxAttempts },
		},
	)
}

func (c *ContextConfig) applyDefaults(keys keySet) {
	if c == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "context.timeout_seconds",
			need:  func() bool { return c.TimeoutSeconds <= 0 },
			apply: func() { c.TimeoutSeconds = defaultContextTimeout },
		},
	)
}

func (a *AccuracyConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "accuracy.batch_limit",
			need:  func() bool { return a.BatchLimit <= 0 },
			apply: func() { a.BatchLimit = defaultAccuracyBatch },
		},
		fieldDefault{
			key:   "accuracy.pacing_ms",
			need:  func() bool { return a.PacingMS <= 0 },
			apply: func() { a.PacingMS = defaultAccuracyPacingMS },
		},
	)
}

func (r *RunLogConfig) applyDefaults(keys keySet) {
	if r == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("runlog.path", &r.Path, defaultRunLogPath),
	)
}

func (s *SymbolsConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("symbols.bootstrap_path", &s.BootstrapPath, defaultSymbolsBootstrap),
	)
}

// Helper functions

type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
