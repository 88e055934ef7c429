package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"portfolio-alerts/internal/alerting"
	"portfolio-alerts/internal/broker"
	"portfolio-alerts/internal/monitor"
	"portfolio-alerts/internal/state"
)

// SimulateOptions 描述一次模拟评估的合成快照。
type SimulateOptions struct {
	Ticker string
	DayPct float64
	DayPnL float64
	Notify bool
}

// SimulateAlert drives the full pipeline with a synthetic single-position
// snapshot. State is kept in a throwaway file so simulations never disturb
// the production dedup ladder.
func (a *App) SimulateAlert(ctx context.Context, opts SimulateOptions) error {
	if opts.Ticker == "" {
		return errors.New("simulate: ticker 不能为空")
	}

	dir, err := os.MkdirTemp("", "foliowatch-sim")
	if err != nil {
		return fmt.Errorf("create simulation state dir: %w", err)
	}
	defer os.RemoveAll(dir)

	sf := state.NewFile(filepath.Join(dir, "alert_state.json"), a.Logger)
	snaps := &staticSnapshotFetcher{
		ticker: opts.Ticker,
		dayPct: opts.DayPct,
		dayPnL: opts.DayPnL,
	}

	m := monitor.New(a.Config, sf, snaps, nil, nil, nil, a.Logger)
	alerts, err := m.RunOnce(ctx)
	if err != nil {
		return err
	}

	msg := alerting.RenderBatch(alerts)
	if msg == "" {
		a.Logger.Info().Msg("模拟评估未触发任何告警")
		return nil
	}

	if opts.Notify {
		notifier := a.newNotifier()
		if notifier == nil {
			return errors.New("未配置任何告警通道")
		}
		return notifier.Notify(ctx, msg)
	}

	fmt.Println(msg)
	return nil
}

type staticSnapshotFetcher struct {
	ticker string
	dayPct float64
	dayPnL float64
}

func (s *staticSnapshotFetcher) FetchSnapshot(ctx context.Context) (broker.Snapshot, error) {
	prev := decimal.NewFromInt(100)
	price := prev.Mul(decimal.NewFromFloat(1 + s.dayPct))
	return broker.Snapshot{
		Positions: []broker.Position{
			{Ticker: s.ticker, Quantity: decimal.NewFromInt(100), MarketValue: decimal.NewFromInt(17500), Price: price, PrevClose: prev},
		},
		NetAssets: decimal.NewFromInt(22500),
		DayPnL:    decimal.NewFromFloat(s.dayPnL),
	}, nil
}

var _ broker.SnapshotFetcher = (*staticSnapshotFetcher)(nil)
