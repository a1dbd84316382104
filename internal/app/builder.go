package app

import (
	"context"
	"fmt"
	"time"

	"sibyl/internal/accuracy"
	"sibyl/internal/agent"
	"sibyl/internal/config"
	"sibyl/internal/gateway/genlayer"
	"sibyl/internal/gateway/notifier"
	"sibyl/internal/logger"
	"sibyl/internal/market"
	"sibyl/internal/scheduler"
	"sibyl/internal/store/runlog"
	"sibyl/internal/submit"
	"sibyl/internal/timeframe"
	"sibyl/internal/track"
	statushttp "sibyl/internal/transport/http/status"
)

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

// build 按依赖顺序组装整条流水线：ledger 客户端 → 跟踪层 → 提交引擎 →
// 编排器 → 外围（审计、通知、HTTP）。
func build(cfg *config.Config) (*App, error) {
	client, err := genlayer.New(genlayer.Config{
		Endpoint:         cfg.Ledger.Endpoint,
		ContractAddress:  cfg.Ledger.ContractAddress,
		Account:          cfg.Ledger.Account,
		Timeout:          seconds(cfg.Ledger.TimeoutSeconds),
		BreakerThreshold: cfg.Ledger.BreakerThreshold,
		BreakerCooldown:  seconds(cfg.Ledger.BreakerCooldownSeconds),
	})
	if err != nil {
		return nil, fmt.Errorf("building ledger client: %w", err)
	}

	timeframes, err := timeframe.ParseSet(cfg.Submit.Timeframes)
	if err != nil {
		return nil, err
	}

	bus := track.NewBus()
	store := track.NewStore(bus)
	poller := track.NewPoller(client, store, seconds(cfg.Poll.IntervalSeconds), cfg.Poll.MaxAttempts)
	engine := submit.NewEngine(client, store, poller,
		cfg.Submit.MaxRetries, seconds(cfg.Submit.BackoffSeconds))

	builder, err := market.NewRemoteContextBuilder(cfg.Context.BaseURL, seconds(cfg.Context.TimeoutSeconds))
	if err != nil {
		return nil, fmt.Errorf("building context client: %w", err)
	}

	var expiry *agent.ExpiryChecker
	if cfg.Submit.SkipLivePredictions {
		expiry = agent.NewExpiryChecker(client)
	}

	orch := agent.NewOrchestrator(engine, builder, expiry, timeframes, cfg.Submit.Whitelist).
		WithPacing(seconds(cfg.Submit.TimeframePauseSeconds), seconds(cfg.Submit.SymbolPauseSeconds))

	health := agent.NewHealthChecker(client)
	service := agent.NewService(health, orch)

	if cfg.Accuracy.Enabled {
		prices := market.NewBinanceSource(market.BinanceConfig{})
		recorder := accuracy.NewRecorder(client, client, prices, timeframes).
			WithBatchLimit(cfg.Accuracy.BatchLimit).
			WithPacing(time.Duration(cfg.Accuracy.PacingMS) * time.Millisecond)
		service.WithAccuracyRecorder(recorder)
	}

	a := &App{
		cfg:       cfg,
		service:   service,
		poller:    poller,
		scheduler: scheduler.NewIntervalScheduler(seconds(cfg.Schedule.IntervalSeconds)),
		bootstrap: agent.NewBootstrapper(client, cfg.Symbols.BootstrapPath),
	}
	a.scheduler.RunImmediately = cfg.Schedule.RunImmediately

	httpCfg := statushttp.ServerConfig{
		Addr:    cfg.App.HTTPAddr,
		Status:  service,
		Records: store,
		Prober:  health,
		Trigger: func(ctx context.Context) { service.RunOnce(ctx) },
	}

	if cfg.RunLog.Enabled {
		runs, err := runlog.New(cfg.RunLog.Path)
		if err != nil {
			return nil, fmt.Errorf("opening run log: %w", err)
		}
		a.runlog = runs
		service.WithRunLogger(runs)
		httpCfg.History = runs
		// Terminal settlements leave an audit row as they happen.
		bus.Subscribe(func(rec track.Record) {
			if !rec.Status.Terminal() {
				return
			}
			if err := runs.RecordOutcome(context.Background(), rec); err != nil {
				logger.Warnf("recording outcome for %s failed: %v", rec.ID, err)
			}
		})
	}

	if cfg.Notify.Telegram.Enabled {
		tg := notifier.NewTelegram(cfg.Notify.Telegram.BotToken, cfg.Notify.Telegram.ChatID)
		service.WithNotifier(tg)
		notifier.AttachAlerts(bus, tg)
	}

	httpSrv, err := statushttp.NewServer(httpCfg)
	if err != nil {
		return nil, fmt.Errorf("building status http server: %w", err)
	}
	a.httpSrv = httpSrv

	return a, nil
}
