package broker

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
)

// Position is one holding as reported by the broker gateway.
type Position struct {
	Ticker      string          `json:"ticker"`
	Quantity    decimal.Decimal `json:"quantity"`
	MarketValue decimal.Decimal `json:"market_value"`
	Price       decimal.Decimal `json:"price"`
	PrevClose   decimal.Decimal `json:"prev_close"`
}

// Snapshot is the combined account view for one evaluation pass.
type Snapshot struct {
	Positions []Position      `json:"positions"`
	NetAssets decimal.Decimal `json:"net_assets"`
	DayPnL    decimal.Decimal `json:"day_pnl"`
}

// Holding is a position reduced to what the evaluators consume: portfolio
// weight and day change, ordered by weight descending.
type Holding struct {
	Ticker string
	Weight float64
	DayPct float64
}

// Holdings derives the weighted holding list from the snapshot. Positions
// with non-positive market value are skipped; so is everything when net
// assets are non-positive (a broker-side failure must not fabricate weights).
func (s Snapshot) Holdings() []Holding {
	if s.NetAssets.Sign() <= 0 {
		return nil
	}

	out := make([]Holding, 0, len(s.Positions))
	for _, p := range s.Positions {
		if p.MarketValue.Sign() <= 0 {
			continue
		}
		weight, _ := p.MarketValue.Div(s.NetAssets).Float64()

		dayPct := 0.0
		if p.Price.Sign() > 0 && p.PrevClose.Sign() > 0 {
			dayPct, _ = p.Price.Div(p.PrevClose).Sub(decimal.NewFromInt(1)).Float64()
		}
		out = append(out, Holding{Ticker: p.Ticker, Weight: weight, DayPct: dayPct})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Weight > out[j].Weight })
	return out
}

// SnapshotFetcher retrieves the combined account snapshot.
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context) (Snapshot, error)
}

// QuoteFetcher retrieves the last traded price for a ticker.
type QuoteFetcher interface {
	FetchLast(ctx context.Context, ticker string) (float64, error)
}

// HistoryFetcher retrieves recent daily closes for a ticker, oldest first.
type HistoryFetcher interface {
	FetchCloses(ctx context.Context, ticker string, days int) ([]float64, error)
}
