package dedupe

// Record is the persisted state of one signal key.
//
// Severity is rewritten on every evaluation that finds the condition active,
// whether or not the alert fires, so escalation is always measured from the
// latest observed magnitude. The optional fields carry category context for
// auditing and are never consulted by the decision itself.
type Record struct {
	Active   bool     `json:"active"`
	Severity float64  `json:"severity"`
	TS       int64    `json:"ts"`
	RSI      *int     `json:"rsi,omitempty"`
	DayPct   *float64 `json:"day_pct,omitempty"`
	Rank     *int     `json:"rank,omitempty"`
}

// Cleared 返回条件不再成立时的规范清零状态。
func Cleared(ts int64) Record {
	return Record{Active: false, Severity: 0, TS: ts}
}

// Decide reports whether an active signal should fire now and returns the
// record to persist for it.
//
// Rules:
//   - no previous record: fire (first occurrence),
//   - previous record inactive: fire (re-crossing re-arms the key),
//   - previous record active: fire only when severity has grown by at least
//     step since the last recorded magnitude.
//
// A step of zero or below fires on every active evaluation; that is valid
// configuration, not an error.
func Decide(prev *Record, severity, step float64, ts int64) (bool, Record) {
	next := Record{Active: true, Severity: severity, TS: ts}
	if prev == nil {
		return true, next
	}
	if !prev.Active {
		return true, next
	}
	return severity >= prev.Severity+step, next
}
