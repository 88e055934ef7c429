package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"portfolio-alerts/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	State     StateConfig     `mapstructure:"state"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Broker    BrokerConfig    `mapstructure:"broker"`
	Alerts    AlertsConfig    `mapstructure:"alerts"`
	Macro     MacroConfig     `mapstructure:"macro"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// StateConfig locates the dedup state file.
type StateConfig struct {
	Path string `mapstructure:"path"`
}

// DatabaseConfig encapsulates the optional PostgreSQL audit store.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// SchedulerConfig governs daemon-mode cadence.
type SchedulerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	AlignToBucket   bool          `mapstructure:"align_to_bucket"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
}

// BrokerConfig covers the broker aggregation gateway.
type BrokerConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	AuthToken      string        `mapstructure:"auth_token"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// AlertsConfig defines thresholds and escalation steps for the evaluators.
type AlertsConfig struct {
	TopN            int           `mapstructure:"top_n"`
	TopNThreshold   float64       `mapstructure:"top_n_threshold"`
	OtherThreshold  float64       `mapstructure:"other_threshold"`
	MoveStep        float64       `mapstructure:"move_step"`
	PnLTrigger      float64       `mapstructure:"pnl_trigger"`
	PnLStep         float64       `mapstructure:"pnl_step"`
	RSIHigh         int           `mapstructure:"rsi_high"`
	RSILow          int           `mapstructure:"rsi_low"`
	RSIStep         float64       `mapstructure:"rsi_step"`
	RSITopHoldings  int           `mapstructure:"rsi_top_holdings"`
	SnapshotTimeout time.Duration `mapstructure:"snapshot_timeout"`
	RSITimeout      time.Duration `mapstructure:"rsi_timeout"`
	QuoteTimeout    time.Duration `mapstructure:"quote_timeout"`
	GlobalTimeout   time.Duration `mapstructure:"global_timeout"`
}

// MacroConfig tunes the capped-repeat benchmark drawdown trigger.
type MacroConfig struct {
	Ticker        string        `mapstructure:"ticker"`
	High52W       float64       `mapstructure:"high_52w"`
	TriggerPct    float64       `mapstructure:"trigger_pct"`
	AmountEach    float64       `mapstructure:"amount_each"`
	MaxRepeats    int           `mapstructure:"max_repeats"`
	MinGap        time.Duration `mapstructure:"min_gap"`
	LeveragedName string        `mapstructure:"leveraged_name"`
}

// TriggerLevel 返回回撤触发价位 (52周高点 × (1+trigger_pct))。
func (m MacroConfig) TriggerLevel() float64 {
	return m.High52W * (1 + m.TriggerPct)
}

// TelegramConfig 描述 Telegram 告警参数。
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FOLIOWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "foliowatch")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("state.path", "data/portfolio_alert_state.json")

	v.SetDefault("scheduler.interval", "5m")
	v.SetDefault("scheduler.align_to_bucket", true)
	v.SetDefault("scheduler.advisory_lock_key", int64(0x666f6c69))
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("broker.request_timeout", "10s")
	v.SetDefault("broker.user_agent", "foliowatch/1.0")

	v.SetDefault("alerts.top_n", 10)
	v.SetDefault("alerts.top_n_threshold", 0.05)
	v.SetDefault("alerts.other_threshold", 0.10)
	v.SetDefault("alerts.move_step", 0.01)
	v.SetDefault("alerts.pnl_trigger", 500.0)
	v.SetDefault("alerts.pnl_step", 500.0)
	v.SetDefault("alerts.rsi_high", 80)
	v.SetDefault("alerts.rsi_low", 20)
	v.SetDefault("alerts.rsi_step", 2.0)
	v.SetDefault("alerts.rsi_top_holdings", 10)
	v.SetDefault("alerts.snapshot_timeout", "20s")
	v.SetDefault("alerts.rsi_timeout", "15s")
	v.SetDefault("alerts.quote_timeout", "8s")
	v.SetDefault("alerts.global_timeout", "50s")

	v.SetDefault("macro.ticker", "QQQ")
	v.SetDefault("macro.trigger_pct", -0.10)
	v.SetDefault("macro.max_repeats", 3)
	v.SetDefault("macro.min_gap", "48h")
	v.SetDefault("macro.leveraged_name", "TQQQ")

	v.SetDefault("telegram.api_base", "https://api.telegram.org")

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
//
// 单个类别阈值缺失不算错误 (对应评估器会被跳过), 这里只拦截让整个进程
// 无法安全运行的取值。
func (c *Config) Validate() error {
	if c.State.Path == "" {
		return fmt.Errorf("state.path must not be empty")
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Alerts.GlobalTimeout <= 0 {
		return fmt.Errorf("alerts.global_timeout must be greater than zero")
	}
	if c.Alerts.TopN < 0 {
		return fmt.Errorf("alerts.top_n cannot be negative")
	}
	if c.Alerts.RSIHigh != 0 && c.Alerts.RSILow != 0 && c.Alerts.RSIHigh <= c.Alerts.RSILow {
		return fmt.Errorf("alerts.rsi_high 必须大于 alerts.rsi_low")
	}
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token 必须配置")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id 必须配置")
		}
	}
	return nil
}
