package monitor

import (
	"fmt"
	"sort"
	"strings"

	"portfolio-alerts/internal/broker"
	"portfolio-alerts/internal/dedupe"
	"portfolio-alerts/internal/leverage"
)

// 告警正文渲染。文案沿用中文输出, 语气随幅度分档。

type pnlContributor struct {
	ticker  string
	dayPct  float64
	weight  float64
	contrib float64
}

// renderPnLDetail 列出盈亏的主要贡献/拖累并给出概括语气。
func renderPnLDetail(holds []broker.Holding, dayPnL, totalNet float64) string {
	isGain := dayPnL > 0

	var contributors []pnlContributor
	for _, h := range holds {
		if (isGain && h.DayPct > 0) || (!isGain && h.DayPct < 0) {
			contributors = append(contributors, pnlContributor{
				ticker:  h.Ticker,
				dayPct:  h.DayPct,
				weight:  h.Weight,
				contrib: h.DayPct * h.Weight * totalNet,
			})
		}
	}
	sort.Slice(contributors, func(i, j int) bool {
		if isGain {
			return contributors[i].contrib > contributors[j].contrib
		}
		return contributors[i].contrib < contributors[j].contrib
	})
	if len(contributors) > 3 {
		contributors = contributors[:3]
	}

	arrow := "▼"
	if isGain {
		arrow = "▲"
	}
	parts := make([]string, 0, len(contributors))
	for _, c := range contributors {
		pct := c.dayPct
		if pct < 0 {
			pct = -pct
		}
		parts = append(parts, fmt.Sprintf("%s %s%.1f%%(占%.1f%%)", c.ticker, arrow, pct*100, c.weight*100))
	}

	pnlPct := 0.0
	if totalNet > 0 {
		pnlPct = abs(dayPnL) / totalNet * 100
	}

	if isGain {
		summary := strings.Join(parts, "、")
		if summary == "" {
			summary = "多只持仓小幅上涨累积"
		}
		tone := "小幅盈利，继续持有观察。"
		if pnlPct >= 5 {
			tone = "涨幅较大，可以考虑部分获利了结。"
		} else if pnlPct >= 3 {
			tone = "涨势不错，关注是否有回调风险。"
		}
		return fmt.Sprintf("主要贡献：%s。%s", summary, tone)
	}

	summary := strings.Join(parts, "、")
	if summary == "" {
		summary = "多只持仓小幅下跌累积"
	}
	tone := "亏损尚在可控范围，可以持有观望。"
	if pnlPct >= 5 {
		tone = "亏损幅度较大，建议审视仓位考虑减仓控制风险。"
	} else if pnlPct >= 3 {
		tone = "亏损值得关注，密切跟踪走势，做好止损准备。"
	}
	return fmt.Sprintf("主要拖累：%s。%s", summary, tone)
}

func renderPnLAlert(dayPnL float64, detail string) string {
	if dayPnL > 0 {
		return fmt.Sprintf("📈 组合日内盈利 ▲%s\n%s", fmtMoney(dayPnL, 0), detail)
	}
	return fmt.Sprintf("📉 组合日内亏损 ▼%s\n%s", fmtMoney(abs(dayPnL), 0), detail)
}

// renderRSIAdvice 按 RSI 区间给出建议文案。
func renderRSIAdvice(ticker string, rsi int) string {
	switch {
	case rsi < 20:
		return fmt.Sprintf("%s 连续走弱，RSI跌到%d已经是极端超卖了。这种位置反弹概率不小，基本面没变的话可以考虑分批接一些。", ticker, rsi)
	case rsi <= 30:
		return fmt.Sprintf("%s 近期持续走弱，RSI %d处于超卖区域，关注是否出现反弹迹象。", ticker, rsi)
	case rsi >= 80:
		return fmt.Sprintf("%s 连续走强，RSI到%d已经极端超买了，可以考虑部分减仓锁定利润。", ticker, rsi)
	default:
		return fmt.Sprintf("%s 近期持续走强，RSI %d处于超买区域，可以适当获利了结。", ticker, rsi)
	}
}

func renderRSIAlert(ticker string, rsi, low, high int) string {
	label := "超买"
	if rsi <= low {
		label = "超卖"
	}
	return fmt.Sprintf("📊 RSI%s：%s RSI %d\n%s", label, ticker, rsi, renderRSIAdvice(ticker, rsi))
}

// renderMoveContext 解释单票异动: 权重、对组合的影响、杠杆说明与幅度分档。
func renderMoveContext(h broker.Holding) string {
	absPct := abs(h.DayPct) * 100
	impact := abs(h.DayPct*h.Weight) * 100
	wStr := fmt.Sprintf("占组合%.1f%%", h.Weight*100)

	var impactStr string
	switch {
	case impact >= 0.5:
		word := "贡献"
		if h.DayPct < 0 {
			word = "拖累"
		}
		impactStr = fmt.Sprintf("，%s组合约%.1f%%", word, impact)
	case impact >= 0.1:
		impactStr = fmt.Sprintf("，对组合影响约%.1f%%", impact)
	default:
		impactStr = "，对组合整体影响不大"
	}

	if inst, ok := leverage.Lookup(h.Ticker); ok {
		mult := inst.Multiplier
		if mult < 0 {
			mult = -mult
		}
		return fmt.Sprintf(
			"%s（%s）是%d倍杠杆ETF，跟随%s(%s)放大波动属于正常杠杆效应%s。关注标的指数 %s 走势就好，不用盯 %s 本身。",
			h.Ticker, wStr, mult, inst.Label, inst.Underlying, impactStr, inst.Underlying, h.Ticker,
		)
	}

	direction := "涨"
	if h.DayPct < 0 {
		direction = "跌"
	}

	switch {
	case absPct >= 10:
		return fmt.Sprintf(
			"%s（%s）单日%s了%.1f%%%s。幅度比较异常。暂未查到明确催化剂，建议关注是否有财报、公告或评级变动。",
			h.Ticker, wStr, direction, absPct, impactStr,
		)
	case h.DayPct < -0.05:
		return fmt.Sprintf(
			"%s（%s）今天%s了%.1f%%%s。回调幅度较大，基本面没变的话可以耐心持有。",
			h.Ticker, wStr, direction, absPct, impactStr,
		)
	case h.DayPct > 0.05:
		return fmt.Sprintf(
			"%s（%s）今天%s了%.1f%%%s。短期涨势较强，可以考虑适当获利了结一部分。",
			h.Ticker, wStr, direction, absPct, impactStr,
		)
	default:
		return fmt.Sprintf("%s（%s）波动较大%s，密切关注后续走势。", h.Ticker, wStr, impactStr)
	}
}

func renderMoveAlert(h broker.Holding) string {
	emoji, arrow := "📈", "▲"
	if h.DayPct < 0 {
		emoji, arrow = "📉", "▼"
	}
	// 杠杆标的在头行直接带注释, 非杠杆标的注释为空串。
	return fmt.Sprintf("%s 异动：%s%s %s%.1f%%\n%s",
		emoji, h.Ticker, leverage.Annotation(h.Ticker), arrow, abs(h.DayPct)*100, renderMoveContext(h))
}

// renderMacroAlert 输出基准回撤触发的加仓提示, 分两个阶段。
func renderMacroAlert(d dedupe.MacroDecision, ticker string, level, high52w, triggerPct, last, amountEach float64, maxRepeats int, leveragedName string) string {
	if d.Phase == 1 {
		return fmt.Sprintf(
			"📌 %s 加仓触发（L1）[%d/%d]\n%s ≤ %.2f（52W高点%.2f回撤%.0f%%）\n当前%s: %.2f\n建议金额：%s（第1笔/2）",
			leveragedName, d.Seq, maxRepeats,
			ticker, level, high52w, triggerPct*100,
			ticker, last,
			fmtMoney(amountEach, 2),
		)
	}
	return fmt.Sprintf(
		"📌 %s 加仓再次确认（L1）[%d/%d]\n%s 仍 ≤ %.2f 且已满足最小间隔\n当前%s: %.2f\n建议金额：%s（第2笔/2）",
		leveragedName, d.Seq, maxRepeats,
		ticker, level,
		ticker, last,
		fmtMoney(amountEach, 2),
	)
}

func renderMacroDegraded(ticker string) string {
	return fmt.Sprintf("⚠️ %s 行情获取失败，加仓触发暂无法评估，请手动确认。", ticker)
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
