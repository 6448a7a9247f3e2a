package domain

// Verdict is the result of a rule-engine stage (risk or security).
// OK is false iff at least one rule was violated; Reasons keeps rule order.
type Verdict struct {
	OK      bool     `json:"ok"`
	Reasons []string `json:"reasons"`
}

// Approve returns a passing verdict.
func Approve() Verdict {
	return Verdict{OK: true, Reasons: []string{}}
}

// Reject appends reason and marks the verdict failed.
func (v *Verdict) Reject(reason string) {
	v.OK = false
	v.Reasons = append(v.Reasons, reason)
}
