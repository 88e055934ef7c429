package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("默认配置应可加载: %v", err)
	}

	if cfg.Alerts.PnLTrigger != 500 || cfg.Alerts.PnLStep != 500 {
		t.Fatalf("盈亏默认阈值不正确: %+v", cfg.Alerts)
	}
	if cfg.Alerts.TopN != 10 || cfg.Alerts.TopNThreshold != 0.05 || cfg.Alerts.OtherThreshold != 0.10 {
		t.Fatalf("异动默认阈值不正确: %+v", cfg.Alerts)
	}
	if cfg.Alerts.RSIHigh != 80 || cfg.Alerts.RSILow != 20 {
		t.Fatalf("RSI 默认区间不正确: %+v", cfg.Alerts)
	}
	if cfg.Alerts.GlobalTimeout != 50*time.Second {
		t.Fatalf("全局超时默认值不正确: %v", cfg.Alerts.GlobalTimeout)
	}
	if cfg.Macro.MinGap != 48*time.Hour {
		t.Fatalf("宏观最小间隔默认值不正确: %v", cfg.Macro.MinGap)
	}
	if cfg.State.Path == "" {
		t.Fatal("状态文件路径应有默认值")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
state:
  path: /tmp/custom_state.json
alerts:
  pnl_trigger: 800
  move_step: 0.02
  global_timeout: 30s
macro:
  ticker: QQQ
  high_52w: 636.60
  amount_each: 2301.86
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("加载配置文件失败: %v", err)
	}

	if cfg.State.Path != "/tmp/custom_state.json" {
		t.Fatalf("state.path 未生效: %s", cfg.State.Path)
	}
	if cfg.Alerts.PnLTrigger != 800 || cfg.Alerts.MoveStep != 0.02 {
		t.Fatalf("alerts 覆盖未生效: %+v", cfg.Alerts)
	}
	if cfg.Alerts.GlobalTimeout != 30*time.Second {
		t.Fatalf("duration 解析不正确: %v", cfg.Alerts.GlobalTimeout)
	}
	if cfg.Macro.High52W != 636.60 {
		t.Fatalf("macro 覆盖未生效: %+v", cfg.Macro)
	}
	if got := cfg.Macro.TriggerLevel(); got < 572.9 || got > 573.0 {
		t.Fatalf("触发价位计算不正确: %v", got)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		if err != nil {
			t.Fatal(err)
		}
		return cfg
	}

	cfg := base()
	cfg.State.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("空状态路径应校验失败")
	}

	cfg = base()
	cfg.Alerts.GlobalTimeout = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("零全局超时应校验失败")
	}

	cfg = base()
	cfg.Alerts.RSIHigh = 20
	cfg.Alerts.RSILow = 30
	if err := cfg.Validate(); err == nil {
		t.Fatal("rsi_high <= rsi_low 应校验失败")
	}

	cfg = base()
	cfg.Telegram.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Fatal("启用 Telegram 但缺少凭据应校验失败")
	}
}
