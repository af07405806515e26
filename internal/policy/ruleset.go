package policy

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/cmdgate/cmdgate/pkg/types"
)

// Options are the toggles a Ruleset is compiled with.
type Options struct {
	// Separators the parser may split on.
	Separators SeparatorSet
	// AllowUnrecognized treats unknown commands as system commands
	// instead of rejecting them. Default-deny applies when false.
	AllowUnrecognized bool
	// AllowUserConfirmation enables the session approval flow. When
	// false, write and system commands are approved without asking.
	AllowUserConfirmation bool
}

// Pattern is one compiled dangerous pattern.
type Pattern struct {
	Source string
	re     *regexp.Regexp
}

// PatternMatch reports which pattern matched and where. SegmentIndex
// is nil for a whole-string match no single segment reproduces.
type PatternMatch struct {
	Pattern      string
	SegmentIndex *int
}

// Ruleset is an immutable, compiled view of the command lists and
// dangerous patterns from one configuration snapshot. Building it
// once per snapshot keeps string-set lookups out of the decision path
// and surfaces bad configuration at load time instead of first use.
type Ruleset struct {
	Options

	categories map[string]Category
	patterns   []Pattern
	supported  []string
}

// Compile validates the command lists and patterns and builds the
// lookup structures. It fails on a regex that does not compile and on
// a command listed in more than one of read/write/system. Membership
// in blocked is never a conflict: blocked always wins.
func Compile(cmds types.CommandsConfig, opts Options) (*Ruleset, error) {
	categories := make(map[string]Category)
	for _, group := range []struct {
		names []string
		cat   Category
	}{
		{cmds.Read, CategoryRead},
		{cmds.Write, CategoryWrite},
		{cmds.System, CategorySystem},
	} {
		for _, name := range group.names {
			if prev, ok := categories[name]; ok && prev != group.cat {
				return nil, fmt.Errorf("command %q configured as both %s and %s", name, prev, group.cat)
			}
			categories[name] = group.cat
		}
	}

	supported := make([]string, 0, len(categories))
	for name := range categories {
		supported = append(supported, name)
	}
	sort.Strings(supported)

	for _, name := range cmds.Blocked {
		categories[name] = CategoryBlocked
	}

	patterns := make([]Pattern, 0, len(cmds.DangerousPatterns))
	for _, src := range cmds.DangerousPatterns {
		re, err := regexp.Compile(src)
		if err != nil {
			return nil, fmt.Errorf("invalid dangerous pattern %q: %w", src, err)
		}
		patterns = append(patterns, Pattern{Source: src, re: re})
	}

	return &Ruleset{
		Options:    opts,
		categories: categories,
		patterns:   patterns,
		supported:  supported,
	}, nil
}

// Classify maps a base command name to exactly one category. Names
// absent from every list are Unrecognized.
func (r *Ruleset) Classify(base string) Category {
	if cat, ok := r.categories[base]; ok {
		return cat
	}
	return CategoryUnrecognized
}

// Supported returns the sorted union of the read, write and system
// lists, for rejection messages.
func (r *Ruleset) Supported() []string {
	return r.supported
}

// MatchDangerous evaluates the configured patterns in order against
// the full raw string first, then against each segment, and returns
// the first match. Given the same input and pattern list the same
// pattern is always reported.
func (r *Ruleset) MatchDangerous(raw string, segs []Segment) *PatternMatch {
	for _, p := range r.patterns {
		if p.re.MatchString(raw) {
			// Pin the match to the first segment that reproduces it,
			// if any; cross-segment constructs stay whole-string.
			for i := range segs {
				if p.re.MatchString(segs[i].Raw) {
					idx := i
					return &PatternMatch{Pattern: p.Source, SegmentIndex: &idx}
				}
			}
			return &PatternMatch{Pattern: p.Source}
		}
		for i := range segs {
			if p.re.MatchString(segs[i].Raw) {
				idx := i
				return &PatternMatch{Pattern: p.Source, SegmentIndex: &idx}
			}
		}
	}
	return nil
}
