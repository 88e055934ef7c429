package leverage

import "fmt"

// Instrument describes a leveraged ETF and the benchmark it tracks.
type Instrument struct {
	Underlying string
	Multiplier int
	Label      string
}

// 杠杆 ETF 对照表: 代码 -> (标的, 倍数, 中文名)。
var instruments = map[string]Instrument{
	"TQQQ": {"QQQ", 3, "纳指100"},
	"SQQQ": {"QQQ", -3, "纳指100"},
	"UPRO": {"SPY", 3, "标普500"},
	"SPXU": {"SPY", -3, "标普500"},
	"TNA":  {"IWM", 3, "罗素2000"},
	"TZA":  {"IWM", -3, "罗素2000"},
	"SOXL": {"SOXX", 3, "半导体"},
	"SOXS": {"SOXX", -3, "半导体"},
	"FNGU": {"QQQ", 3, "FANG+"},
	"LABU": {"XBI", 3, "生物科技"},
}

// Lookup returns the instrument entry for a ticker, if it is a recognised
// leveraged ETF.
func Lookup(ticker string) (Instrument, bool) {
	inst, ok := instruments[ticker]
	return inst, ok
}

// EffectiveThreshold widens the base move threshold for leveraged ETFs by the
// absolute leverage multiplier. A 3x fund moving 3x its benchmark on an
// ordinary day is not an anomaly worth an alert.
func EffectiveThreshold(ticker string, base float64) float64 {
	inst, ok := instruments[ticker]
	if !ok {
		return base
	}
	mult := inst.Multiplier
	if mult < 0 {
		mult = -mult
	}
	return base * float64(mult)
}

// Annotation 返回用于告警正文的杠杆说明, 非杠杆标的返回空串。
func Annotation(ticker string) string {
	inst, ok := instruments[ticker]
	if !ok {
		return ""
	}
	mult := inst.Multiplier
	if mult < 0 {
		mult = -mult
	}
	return fmt.Sprintf("（%d倍杠杆ETF，跟随%s(%s)）", mult, inst.Label, inst.Underlying)
}
