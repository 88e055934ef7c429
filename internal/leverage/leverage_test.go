package leverage

import (
	"strings"
	"testing"
)

func TestEffectiveThreshold(t *testing.T) {
	cases := []struct {
		ticker string
		base   float64
		want   float64
	}{
		{"TQQQ", 0.05, 0.15},
		{"SQQQ", 0.05, 0.15}, // 反向杠杆取绝对倍数
		{"SOXL", 0.10, 0.30},
		{"AAPL", 0.05, 0.05},
	}

	for _, tc := range cases {
		if got := EffectiveThreshold(tc.ticker, tc.base); got != tc.want {
			t.Fatalf("%s: 期望 %v, 实际 %v", tc.ticker, tc.want, got)
		}
	}
}

func TestAnnotation(t *testing.T) {
	note := Annotation("TQQQ")
	if !strings.Contains(note, "3倍") || !strings.Contains(note, "纳指100") || !strings.Contains(note, "QQQ") {
		t.Fatalf("杠杆说明不完整: %s", note)
	}

	if Annotation("AAPL") != "" {
		t.Fatal("非杠杆标的不应有说明")
	}
}

func TestLookup(t *testing.T) {
	inst, ok := Lookup("TZA")
	if !ok || inst.Underlying != "IWM" || inst.Multiplier != -3 {
		t.Fatalf("TZA 条目不正确: %+v ok=%v", inst, ok)
	}
	if _, ok := Lookup("MSFT"); ok {
		t.Fatal("MSFT 不应命中杠杆表")
	}
}
