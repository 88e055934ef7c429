package indicator

import "testing"

func TestRSIInsufficientHistory(t *testing.T) {
	closes := make([]float64, 10)
	if _, ok := RSI(closes, 14); ok {
		t.Fatal("历史不足 period+1 时应返回 false")
	}
}

func TestRSIMonotonicSeries(t *testing.T) {
	up := make([]float64, 30)
	for i := range up {
		up[i] = 100 + float64(i)
	}
	val, ok := RSI(up, 14)
	if !ok {
		t.Fatal("足够历史应返回结果")
	}
	if val < 90 {
		t.Fatalf("单边上涨序列 RSI 应接近 100, 实际 %v", val)
	}

	down := make([]float64, 30)
	for i := range down {
		down[i] = 200 - float64(i)
	}
	val, ok = RSI(down, 14)
	if !ok || val > 10 {
		t.Fatalf("单边下跌序列 RSI 应接近 0, 实际 %v ok=%v", val, ok)
	}
}

func TestRSIDefaultPeriod(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i%5)
	}
	if _, ok := RSI(closes, 0); !ok {
		t.Fatal("period<=0 应回退到默认周期")
	}
}
