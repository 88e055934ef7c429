package indicator

import (
	"math"

	"github.com/markcheno/go-talib"
)

// DefaultRSIPeriod is the conventional 14-day lookback.
const DefaultRSIPeriod = 14

// RSI returns the latest RSI value over the given period, or false when the
// close history is too short or the computation yields no usable value.
func RSI(closes []float64, period int) (float64, bool) {
	if period <= 0 {
		period = DefaultRSIPeriod
	}
	if len(closes) < period+1 {
		return 0, false
	}

	values := talib.Rsi(closes, period)
	if len(values) == 0 {
		return 0, false
	}

	last := values[len(values)-1]
	if math.IsNaN(last) {
		return 0, false
	}
	return last, true
}
