package monitor

import (
	"strings"
	"testing"

	"portfolio-alerts/internal/broker"
	"portfolio-alerts/internal/dedupe"
)

func TestFmtMoney(t *testing.T) {
	cases := []struct {
		in       float64
		decimals int
		want     string
	}{
		{600, 0, "$600"},
		{1234, 0, "$1,234"},
		{1234567.891, 2, "$1,234,567.89"},
		{2301.86, 2, "$2,301.86"},
		{-950, 0, "-$950"},
	}
	for _, tc := range cases {
		if got := fmtMoney(tc.in, tc.decimals); got != tc.want {
			t.Fatalf("fmtMoney(%v, %d) = %q, 期望 %q", tc.in, tc.decimals, got, tc.want)
		}
	}
}

func TestFmtPct(t *testing.T) {
	if got := fmtPct(0.015, 1); got != "1.5%" {
		t.Fatalf("fmtPct 结果不正确: %q", got)
	}
}

func TestRenderPnLDetailGain(t *testing.T) {
	holds := []broker.Holding{
		{Ticker: "NVDA", Weight: 0.20, DayPct: 0.04},
		{Ticker: "AAPL", Weight: 0.30, DayPct: 0.01},
		{Ticker: "TSLA", Weight: 0.10, DayPct: -0.02},
	}

	detail := renderPnLDetail(holds, 800, 100000)
	if !strings.Contains(detail, "主要贡献") {
		t.Fatalf("盈利应列出主要贡献: %s", detail)
	}
	// NVDA 贡献 0.04*0.2*100000=800 > AAPL 0.01*0.3*100000=300。
	if strings.Index(detail, "NVDA") > strings.Index(detail, "AAPL") {
		t.Fatalf("贡献应按金额降序: %s", detail)
	}
	if strings.Contains(detail, "TSLA") {
		t.Fatalf("下跌持仓不应出现在盈利贡献中: %s", detail)
	}
}

func TestRenderPnLDetailLossTone(t *testing.T) {
	holds := []broker.Holding{{Ticker: "TSLA", Weight: 0.5, DayPct: -0.12}}

	// 亏损占净值 6%: 语气应是最重的一档。
	detail := renderPnLDetail(holds, -6000, 100000)
	if !strings.Contains(detail, "主要拖累") || !strings.Contains(detail, "建议审视仓位") {
		t.Fatalf("大幅亏损应给出减仓提示: %s", detail)
	}
}

func TestRenderPnLAlertDirection(t *testing.T) {
	gain := renderPnLAlert(600, "detail")
	if !strings.Contains(gain, "📈") || !strings.Contains(gain, "▲$600") {
		t.Fatalf("盈利文案不正确: %s", gain)
	}
	loss := renderPnLAlert(-600, "detail")
	if !strings.Contains(loss, "📉") || !strings.Contains(loss, "▼$600") {
		t.Fatalf("亏损文案不正确: %s", loss)
	}
}

func TestRenderRSIAdviceBands(t *testing.T) {
	if got := renderRSIAdvice("TSLA", 15); !strings.Contains(got, "极端超卖") {
		t.Fatalf("RSI 15 应为极端超卖: %s", got)
	}
	if got := renderRSIAdvice("TSLA", 25); !strings.Contains(got, "超卖区域") {
		t.Fatalf("RSI 25 应为超卖区域: %s", got)
	}
	if got := renderRSIAdvice("TSLA", 85); !strings.Contains(got, "极端超买") {
		t.Fatalf("RSI 85 应为极端超买: %s", got)
	}
	if got := renderRSIAdvice("TSLA", 78); !strings.Contains(got, "超买区域") {
		t.Fatalf("RSI 78 应为超买区域: %s", got)
	}
}

func TestRenderMoveContextLeveraged(t *testing.T) {
	h := broker.Holding{Ticker: "SOXL", Weight: 0.12, DayPct: -0.16}
	ctx := renderMoveContext(h)
	if !strings.Contains(ctx, "3倍杠杆ETF") || !strings.Contains(ctx, "半导体") || !strings.Contains(ctx, "SOXX") {
		t.Fatalf("杠杆 ETF 说明不完整: %s", ctx)
	}
}

func TestRenderMoveContextImpactBands(t *testing.T) {
	// 权重大、跌幅大: 拖累表述。
	big := renderMoveContext(broker.Holding{Ticker: "AAPL", Weight: 0.30, DayPct: -0.06})
	if !strings.Contains(big, "拖累组合约") {
		t.Fatalf("高影响应表述为拖累: %s", big)
	}

	// 权重很小: 影响不大。
	small := renderMoveContext(broker.Holding{Ticker: "PLTR", Weight: 0.005, DayPct: 0.12})
	if !strings.Contains(small, "对组合整体影响不大") {
		t.Fatalf("低影响应淡化表述: %s", small)
	}
}

func TestRenderMoveAlertHeadlineAnnotation(t *testing.T) {
	msg := renderMoveAlert(broker.Holding{Ticker: "TQQQ", Weight: 0.10, DayPct: -0.16})
	if !strings.Contains(msg, "TQQQ（3倍杠杆ETF，跟随纳指100(QQQ)）") {
		t.Fatalf("杠杆标的头行应带注释: %s", msg)
	}

	plain := renderMoveAlert(broker.Holding{Ticker: "AAPL", Weight: 0.10, DayPct: -0.06})
	if !strings.Contains(plain, "异动：AAPL ▼") {
		t.Fatalf("非杠杆标的头行不应带注释: %s", plain)
	}
}

func TestRenderMacroAlertPhases(t *testing.T) {
	p1 := renderMacroAlert(dedupe.MacroDecision{Fire: true, Phase: 1, Seq: 2}, "QQQ", 540, 600, -0.10, 533.2, 2301.86, 3, "TQQQ")
	if !strings.Contains(p1, "TQQQ 加仓触发") || !strings.Contains(p1, "[2/3]") || !strings.Contains(p1, "$2,301.86") {
		t.Fatalf("第一阶段文案不正确: %s", p1)
	}
	if !strings.Contains(p1, "回撤-10%") {
		t.Fatalf("应标注回撤比例: %s", p1)
	}

	p2 := renderMacroAlert(dedupe.MacroDecision{Fire: true, Phase: 2, Seq: 1}, "QQQ", 540, 600, -0.10, 531.0, 2301.86, 3, "TQQQ")
	if !strings.Contains(p2, "再次确认") || !strings.Contains(p2, "[1/3]") {
		t.Fatalf("第二阶段文案不正确: %s", p2)
	}
}
