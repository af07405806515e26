package policy

import "fmt"

// Category is the trust classification of a base command.
type Category string

const (
	CategoryRead         Category = "read"
	CategoryWrite        Category = "write"
	CategorySystem       Category = "system"
	CategoryBlocked      Category = "blocked"
	CategoryUnrecognized Category = "unrecognized"
)

// rank orders categories by privilege, most restrictive last.
func (c Category) rank() int {
	switch c {
	case CategoryRead:
		return 0
	case CategoryWrite:
		return 1
	case CategorySystem:
		return 2
	case CategoryUnrecognized:
		return 3
	case CategoryBlocked:
		return 4
	}
	return 4
}

// Approvable reports whether the category can be session-approved.
// Read never needs approval; Blocked and Unrecognized never get it.
func (c Category) Approvable() bool {
	return c == CategoryWrite || c == CategorySystem
}

// Separator identifies what introduced a command segment.
type Separator string

const (
	// SepNone marks the first (or only) segment.
	SepNone Separator = ""
	// SepPipe is `|`.
	SepPipe Separator = "|"
	// SepSequence is `;`.
	SepSequence Separator = ";"
	// SepBackground is `&`.
	SepBackground Separator = "&"
)

// SeparatorSet is the set of separators splitting is enabled for.
type SeparatorSet struct {
	Pipe       bool
	Sequence   bool
	Background bool
}

// AllSeparators returns a set with every separator enabled.
func AllSeparators() SeparatorSet {
	return SeparatorSet{Pipe: true, Sequence: true, Background: true}
}

// NoSeparators returns a set with every separator disabled.
func NoSeparators() SeparatorSet { return SeparatorSet{} }

func (s SeparatorSet) enabled(sep Separator) bool {
	switch sep {
	case SepPipe:
		return s.Pipe
	case SepSequence:
		return s.Sequence
	case SepBackground:
		return s.Background
	}
	return false
}

// Segment is one command within a possibly chained input.
type Segment struct {
	// Index is the left-to-right position, starting at zero.
	Index int `json:"index"`
	// Raw is the trimmed segment text.
	Raw string `json:"raw"`
	// Tokens are the quote-aware tokens, quotes stripped.
	Tokens []string `json:"tokens"`
	// Sep is the separator that introduced this segment.
	Sep Separator `json:"separator,omitempty"`
	// Base is the first token with any directory prefix stripped.
	Base string `json:"base"`
	// Background is set when the segment is followed by `&`.
	Background bool `json:"background,omitempty"`
	// Category is assigned during classification.
	Category Category `json:"category,omitempty"`
	// DisabledSep records a separator character that appeared unquoted
	// while disabled by configuration; the engine rejects it.
	DisabledSep Separator `json:"-"`
}

// Decision is the kind of verdict the engine produced.
type Decision string

const (
	DecisionApproved         Decision = "approved"
	DecisionRequiresApproval Decision = "requires_approval"
	DecisionRejected         Decision = "rejected"
)

// ReasonCode distinguishes rejection causes for callers.
type ReasonCode string

const (
	ReasonMalformedInput      ReasonCode = "malformed_input"
	ReasonDangerousPattern    ReasonCode = "dangerous_pattern"
	ReasonCommandNotPermitted ReasonCode = "command_not_permitted"
)

// Verdict is the engine's output for one raw input.
type Verdict struct {
	// ID is a ULID correlating the decision across logs and replies.
	ID       string   `json:"id"`
	Decision Decision `json:"decision"`
	// Categories lists the categories still needing approval, sorted
	// by privilege, when Decision is requires_approval.
	Categories []Category `json:"categories,omitempty"`
	// CommandType is the most privileged category across segments for
	// non-rejected verdicts.
	CommandType Category `json:"command_type,omitempty"`
	// Reason and Code describe a rejection.
	Reason string     `json:"reason,omitempty"`
	Code   ReasonCode `json:"code,omitempty"`
	// Pattern is the dangerous pattern that matched, if any.
	Pattern string `json:"pattern,omitempty"`
	// SegmentIndex is the first offending segment for rejections; nil
	// when the failure concerns the whole string.
	SegmentIndex *int `json:"segment_index,omitempty"`
	// Segments carries the parsed, classified segments for the
	// execution collaborator.
	Segments []Segment `json:"segments,omitempty"`
	// Background is set when any segment must be detached.
	Background bool `json:"background,omitempty"`
}

// MalformedInputError reports input the parser refuses to reason
// about: unterminated quotes, empty segments, unparseable separator
// sequences.
type MalformedInputError struct {
	Detail string
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed input: %s", e.Detail)
}

// IsMalformedInput reports whether err is a MalformedInputError.
func IsMalformedInput(err error) bool {
	_, ok := err.(*MalformedInputError)
	return ok
}
