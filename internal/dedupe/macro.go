package dedupe

// MacroRecord tracks a capped-repeat level trigger. Unlike Record it carries
// no severity ladder: firing is bounded by per-phase counts and a minimum
// gap, measured from the first time the level was hit. DegradedNotified
// latches the one-per-outage data-unavailable notice; it is cleared by the
// next healthy evaluation.
type MacroRecord struct {
	HitTS            int64 `json:"hitTs,omitempty"`
	T1Count          int   `json:"t1Count"`
	T2Count          int   `json:"t2Count"`
	DegradedNotified bool  `json:"degradedNotified,omitempty"`
}

// MacroDecision 描述一次宏观触发评估的结果。
type MacroDecision struct {
	Fire  bool
	Phase int // 1 = 即时确认, 2 = 间隔确认
	Seq   int // 本阶段第几次触发
}

// DecideMacro advances a macro record for an evaluation where the level
// condition currently holds. Phase one fires up to maxRepeats times
// immediately; once exhausted, phase two fires up to maxRepeats more times
// but only after minGapSeconds have elapsed since the first hit.
func DecideMacro(rec MacroRecord, now int64, maxRepeats int, minGapSeconds int64) (MacroDecision, MacroRecord) {
	if rec.HitTS == 0 {
		rec.HitTS = now
	}

	if rec.T1Count < maxRepeats {
		rec.T1Count++
		return MacroDecision{Fire: true, Phase: 1, Seq: rec.T1Count}, rec
	}

	if now-rec.HitTS >= minGapSeconds && rec.T2Count < maxRepeats {
		rec.T2Count++
		return MacroDecision{Fire: true, Phase: 2, Seq: rec.T2Count}, rec
	}

	return MacroDecision{}, rec
}
