package monitor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"portfolio-alerts/internal/broker"
	"portfolio-alerts/internal/config"
	"portfolio-alerts/internal/dedupe"
	"portfolio-alerts/internal/history"
	"portfolio-alerts/internal/indicator"
	"portfolio-alerts/internal/leverage"
	"portfolio-alerts/internal/state"
)

// 信号键命名空间。不同类别共用一个 ticker 时靠前缀隔离。
const (
	keyPnL       = "pnl"
	prefixMove   = "move:"
	prefixRSILow = "rsi_low:"
	prefixRSIHi  = "rsi_high:"
)

// Monitor runs one evaluation pass: gather external data under per-source
// budgets, then apply the dedup state machine inside a single locked
// read-modify-write transaction, and return the fired batch.
type Monitor struct {
	cfg        *config.Config
	stateFile  *state.File
	snapshots  broker.SnapshotFetcher
	quotes     broker.QuoteFetcher
	closes     broker.HistoryFetcher
	alertStore history.AlertStore
	logger     zerolog.Logger
	now        func() time.Time
}

// New constructs a Monitor. quotes, closes, and alertStore may be nil; the
// corresponding evaluators degrade to zero signals.
func New(cfg *config.Config, stateFile *state.File, snapshots broker.SnapshotFetcher, quotes broker.QuoteFetcher, closes broker.HistoryFetcher, alertStore history.AlertStore, logger zerolog.Logger) *Monitor {
	return &Monitor{
		cfg:        cfg,
		stateFile:  stateFile,
		snapshots:  snapshots,
		quotes:     quotes,
		closes:     closes,
		alertStore: alertStore,
		logger:     logger.With().Str("component", "monitor").Logger(),
		now:        time.Now,
	}
}

type rsiHit struct {
	ticker string
	rsi    int
}

// passData carries the external data one pass consumed; evaluators never
// touch the collaborators directly after gathering.
type passData struct {
	holdings  []broker.Holding
	dayPnL    float64
	netAssets float64

	quoteOK   bool
	quoteLast float64

	rsiHits []rsiHit
}

// RunOnce executes one full pass and returns the ordered alert batch. An
// empty batch is the normal outcome. The whole pass is bounded by
// alerts.global_timeout; on forced interruption whatever was assembled so
// far is returned.
func (m *Monitor) RunOnce(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.Alerts.GlobalTimeout)
	defer cancel()

	data := m.gather(ctx)
	now := m.now().Unix()

	var alerts []string
	var audit []history.AlertRecord
	err := m.stateFile.WithLock(ctx, func(doc *state.Document) error {
		alerts, audit = m.reconcile(doc, data, now)
		doc.UpdatedAt = now
		return nil
	})
	if err != nil {
		if errors.Is(err, state.ErrLockNotAcquired) || errors.Is(err, context.DeadlineExceeded) {
			// 锁竞争或超时: 优雅放弃, 不写任何状态, 不发任何告警。
			m.logger.Warn().Err(err).Msg("本轮放弃: 状态锁未获得")
			return nil, nil
		}
		return nil, fmt.Errorf("persist alert state: %w", err)
	}

	m.recordAudit(ctx, audit)

	m.logger.Info().
		Int("holdings", len(data.holdings)).
		Int("fired", len(alerts)).
		Msg("evaluation pass complete")
	return alerts, nil
}

// gather pulls the portfolio snapshot, RSI inputs, and the macro benchmark
// quote, each under its own budget. A failed source yields zero data for its
// categories, never an error for the pass.
func (m *Monitor) gather(ctx context.Context) passData {
	var data passData

	if m.snapshots != nil {
		snap, ok := runBudget(ctx, m.cfg.Alerts.SnapshotTimeout, m.logger, "snapshot", func(ctx context.Context) (broker.Snapshot, error) {
			return m.snapshots.FetchSnapshot(ctx)
		})
		if ok {
			data.holdings = snap.Holdings()
			data.dayPnL, _ = snap.DayPnL.Float64()
			data.netAssets, _ = snap.NetAssets.Float64()
		}
	}

	if m.closes != nil && m.rsiConfigured() {
		hits, ok := runBudget(ctx, m.cfg.Alerts.RSITimeout, m.logger, "rsi", func(ctx context.Context) ([]rsiHit, error) {
			return m.collectRSI(ctx, data.holdings)
		})
		if ok {
			data.rsiHits = hits
		}
	}

	if m.quotes != nil && m.macroConfigured() {
		last, ok := runBudget(ctx, m.cfg.Alerts.QuoteTimeout, m.logger, "macro_quote", func(ctx context.Context) (float64, error) {
			return m.quotes.FetchLast(ctx, m.cfg.Macro.Ticker)
		})
		data.quoteOK = ok
		data.quoteLast = last
	}

	return data
}

// reconcile applies all evaluators against the loaded document and returns
// the fired messages plus their audit rows. Runs entirely inside the state
// lock; it must not block on I/O.
func (m *Monitor) reconcile(doc *state.Document, data passData, now int64) ([]string, []history.AlertRecord) {
	var alerts []string
	var audit []history.AlertRecord

	emit := func(category, key, message string, severity float64) {
		alerts = append(alerts, message)
		audit = append(audit, history.AlertRecord{
			Category:  category,
			SignalKey: key,
			Severity:  severity,
			Message:   message,
			FiredAt:   time.Unix(now, 0).UTC(),
		})
	}

	m.evalMacro(doc, data, now, emit)
	m.evalPnL(doc, data, now, emit)
	m.evalRSI(doc, data, now, emit)
	m.evalMoves(doc, data, now, emit)

	return alerts, audit
}

type emitFunc func(category, key, message string, severity float64)

func (m *Monitor) macroConfigured() bool {
	return m.cfg.Macro.High52W > 0 && m.cfg.Macro.Ticker != ""
}

// evalMacro drives the capped-repeat benchmark drawdown trigger. Its state
// lives in doc.Done under its own record shape, not the severity ladder.
func (m *Monitor) evalMacro(doc *state.Document, data passData, now int64, emit emitFunc) {
	if !m.macroConfigured() {
		return
	}

	mc := m.cfg.Macro
	key := strings.ToLower(mc.Ticker) + "_l1"
	level := mc.TriggerLevel()

	if !data.quoteOK {
		// 数据源不可用: 保留计数与时间戳不动, 已进入触发状态时提示一次降级,
		// 故障持续期间保持静默, 行情恢复后闩锁复位。
		if rec, ok := doc.Done[key]; ok && rec.HitTS != 0 && !rec.DegradedNotified {
			rec.DegradedNotified = true
			doc.Done[key] = rec
			emit("macro", key, renderMacroDegraded(mc.Ticker), 0)
		}
		return
	}

	if data.quoteLast > level {
		doc.Done[key] = dedupe.MacroRecord{}
		return
	}

	rec := doc.Done[key]
	rec.DegradedNotified = false
	decision, next := dedupe.DecideMacro(rec, now, mc.MaxRepeats, int64(mc.MinGap.Seconds()))
	doc.Done[key] = next
	if decision.Fire {
		msg := renderMacroAlert(decision, mc.Ticker, level, mc.High52W, mc.TriggerPct, data.quoteLast, mc.AmountEach, mc.MaxRepeats, mc.LeveragedName)
		emit("macro", key, msg, level-data.quoteLast)
	}
}

// evalPnL maintains the single shared "pnl" ladder on absolute day P&L.
func (m *Monitor) evalPnL(doc *state.Document, data passData, now int64, emit emitFunc) {
	if m.cfg.Alerts.PnLTrigger <= 0 {
		return // 配置缺失, 跳过该类别
	}

	sev := abs(data.dayPnL)
	if sev < m.cfg.Alerts.PnLTrigger {
		doc.Last[keyPnL] = dedupe.Cleared(now)
		return
	}

	prev := prevRecord(doc, keyPnL)
	fire, next := dedupe.Decide(prev, sev, m.cfg.Alerts.PnLStep, now)
	doc.Last[keyPnL] = next
	if fire {
		detail := renderPnLDetail(data.holdings, data.dayPnL, data.netAssets)
		emit("pnl", keyPnL, renderPnLAlert(data.dayPnL, detail), sev)
	}
}

func (m *Monitor) rsiConfigured() bool {
	return m.cfg.Alerts.RSIHigh > 0 || m.cfg.Alerts.RSILow > 0
}

// evalRSI maintains two independent ladders per ticker, so the overbought
// side is never suppressed by the oversold side's state.
func (m *Monitor) evalRSI(doc *state.Document, data passData, now int64, emit emitFunc) {
	if !m.rsiConfigured() {
		return
	}
	high, low := m.cfg.Alerts.RSIHigh, m.cfg.Alerts.RSILow

	active := make(map[string]bool, len(data.rsiHits))
	for _, hit := range data.rsiHits {
		var key string
		var sev float64
		switch {
		case low > 0 && hit.rsi <= low:
			key = prefixRSILow + hit.ticker
			sev = float64(low - hit.rsi)
		case high > 0 && hit.rsi >= high:
			key = prefixRSIHi + hit.ticker
			sev = float64(hit.rsi - high)
		default:
			continue
		}

		active[key] = true
		prev := prevRecord(doc, key)
		fire, next := dedupe.Decide(prev, sev, m.cfg.Alerts.RSIStep, now)
		rsi := hit.rsi
		next.RSI = &rsi
		doc.Last[key] = next
		if fire {
			emit("rsi", key, renderRSIAlert(hit.ticker, hit.rsi, low, high), sev)
		}
	}

	clearStale(doc, prefixRSILow, active, now)
	clearStale(doc, prefixRSIHi, active, now)
}

// evalMoves checks每只持仓的日内涨跌幅, 阈值随权重排名与杠杆倍数放宽。
func (m *Monitor) evalMoves(doc *state.Document, data passData, now int64, emit emitFunc) {
	ac := m.cfg.Alerts
	if ac.TopNThreshold <= 0 && ac.OtherThreshold <= 0 {
		return
	}

	active := make(map[string]bool)
	for i, h := range data.holdings {
		rank := i + 1
		base := ac.OtherThreshold
		if rank <= ac.TopN {
			base = ac.TopNThreshold
		}
		if base <= 0 {
			continue
		}

		thr := leverage.EffectiveThreshold(h.Ticker, base)
		sev := abs(h.DayPct)
		if sev < thr {
			continue
		}

		key := prefixMove + h.Ticker
		active[key] = true

		prev := prevRecord(doc, key)
		fire, next := dedupe.Decide(prev, sev, ac.MoveStep, now)
		dayPct, r := h.DayPct, rank
		next.DayPct = &dayPct
		next.Rank = &r
		doc.Last[key] = next
		if fire {
			emit("move", key, renderMoveAlert(h), sev)
		}
	}

	clearStale(doc, prefixMove, active, now)
}

// collectRSI computes RSI for the top holdings. Each history fetch runs with
// its own slice of the budget so one slow ticker cannot consume the rest.
func (m *Monitor) collectRSI(ctx context.Context, holdings []broker.Holding) ([]rsiHit, error) {
	top := m.cfg.Alerts.RSITopHoldings
	if top <= 0 {
		top = 10
	}
	if len(holdings) > top {
		holdings = holdings[:top]
	}

	high, low := m.cfg.Alerts.RSIHigh, m.cfg.Alerts.RSILow

	var hits []rsiHit
	for _, h := range holdings {
		if ctx.Err() != nil {
			return hits, nil
		}

		tickCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
		closes, err := m.closes.FetchCloses(tickCtx, h.Ticker, 30)
		cancel()
		if err != nil {
			m.logger.Debug().Err(err).Str("ticker", h.Ticker).Msg("收盘价获取失败, 跳过该票 RSI")
			continue
		}

		value, ok := indicator.RSI(closes, indicator.DefaultRSIPeriod)
		if !ok {
			continue
		}
		rsi := int(math.Round(value))
		if (high > 0 && rsi >= high) || (low > 0 && rsi <= low) {
			hits = append(hits, rsiHit{ticker: h.Ticker, rsi: rsi})
		}
	}

	// 先报更极端的低值, 告警排序保持稳定。
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].rsi < hits[j].rsi })
	return hits, nil
}

func (m *Monitor) recordAudit(ctx context.Context, records []history.AlertRecord) {
	if m.alertStore == nil {
		return
	}
	for _, rec := range records {
		if _, err := m.alertStore.InsertAlert(ctx, rec); err != nil {
			m.logger.Error().Err(err).Str("key", rec.SignalKey).Msg("failed to persist alert audit row")
		}
	}
}

func prevRecord(doc *state.Document, key string) *dedupe.Record {
	if rec, ok := doc.Last[key]; ok {
		return &rec
	}
	return nil
}

// clearStale writes the canonical cleared shape for every key in the given
// namespace that was not evaluated active this pass. This is what makes a
// re-crossing fire as a fresh alert.
func clearStale(doc *state.Document, prefix string, active map[string]bool, now int64) {
	for key := range doc.Last {
		if strings.HasPrefix(key, prefix) && !active[key] {
			doc.Last[key] = dedupe.Cleared(now)
		}
	}
}
