package policy

import (
	"fmt"

	"github.com/oklog/ulid/v2"
)

// Approvals is the session state the engine consults. Implementations
// must return true for CategoryRead unconditionally and false for
// CategoryBlocked and CategoryUnrecognized regardless of session
// state.
type Approvals interface {
	IsApproved(sessionID string, cat Category) bool
}

// Decide runs the full pipeline for one raw command string and
// produces exactly one verdict. It never retries and never downgrades
// a failure: parse errors, dangerous patterns and blocked commands
// are rejections, in that order of precedence.
func Decide(raw, sessionID string, rules *Ruleset, approvals Approvals) Verdict {
	v := Verdict{ID: ulid.Make().String()}

	segs, err := Split(raw, rules.Separators)
	if err != nil {
		v.Decision = DecisionRejected
		v.Code = ReasonMalformedInput
		v.Reason = err.Error()
		return v
	}
	v.Segments = segs

	// A disabled separator that survived splitting as literal text is
	// part of the dangerous surface, never silently ignored.
	for i := range segs {
		if segs[i].DisabledSep != SepNone {
			idx := i
			v.Decision = DecisionRejected
			v.Code = ReasonDangerousPattern
			v.Reason = fmt.Sprintf("command separator %q is not allowed in the current configuration", string(segs[i].DisabledSep))
			v.SegmentIndex = &idx
			return v
		}
	}

	if m := rules.MatchDangerous(raw, segs); m != nil {
		v.Decision = DecisionRejected
		v.Code = ReasonDangerousPattern
		v.Pattern = m.Pattern
		v.Reason = fmt.Sprintf("dangerous pattern: %s", m.Pattern)
		v.SegmentIndex = m.SegmentIndex
		return v
	}

	for i := range segs {
		segs[i].Category = rules.Classify(segs[i].Base)
		if segs[i].Background {
			v.Background = true
		}
	}

	for i := range segs {
		cat := segs[i].Category
		if cat == CategoryBlocked || (cat == CategoryUnrecognized && !rules.AllowUnrecognized) {
			idx := i
			v.Decision = DecisionRejected
			v.Code = ReasonCommandNotPermitted
			v.Reason = fmt.Sprintf("command not permitted: %s", segs[i].Base)
			v.SegmentIndex = &idx
			return v
		}
	}

	top := CategoryRead
	needed := make(map[Category]bool)
	for _, seg := range segs {
		cat := seg.Category
		if cat == CategoryUnrecognized {
			// Whitelisted unknowns still carry system-level risk.
			cat = CategorySystem
		}
		if cat.rank() > top.rank() {
			top = cat
		}
		if cat.Approvable() {
			needed[cat] = true
		}
	}
	v.CommandType = top

	if !rules.AllowUserConfirmation {
		v.Decision = DecisionApproved
		return v
	}

	var missing []Category
	for _, cat := range []Category{CategoryWrite, CategorySystem} {
		if needed[cat] && !(approvals != nil && approvals.IsApproved(sessionID, cat)) {
			missing = append(missing, cat)
		}
	}
	if len(missing) > 0 {
		v.Decision = DecisionRequiresApproval
		v.Categories = missing
		return v
	}

	v.Decision = DecisionApproved
	return v
}
