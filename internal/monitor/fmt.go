package monitor

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// fmtMoney renders a dollar amount with thousands separators: $1,234 or
// $1,234.56 depending on decimals.
func fmtMoney(x float64, decimals int) string {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return "$N/A"
	}

	neg := x < 0
	if neg {
		x = -x
	}

	var intPart int64
	var frac string
	if decimals <= 0 {
		intPart = int64(math.Round(x))
	} else {
		s := fmt.Sprintf("%.*f", decimals, x)
		dot := strings.IndexByte(s, '.')
		intPart, _ = strconv.ParseInt(s[:dot], 10, 64)
		frac = s[dot:]
	}

	grouped := groupThousands(intPart)
	sign := ""
	if neg {
		sign = "-"
	}
	return sign + "$" + grouped + frac
}

func groupThousands(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// fmtPct renders a ratio as a percentage: 0.015 -> "1.5%".
func fmtPct(x float64, decimals int) string {
	return fmt.Sprintf("%.*f%%", decimals, x*100)
}
