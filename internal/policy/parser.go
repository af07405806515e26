package policy

import (
	"path/filepath"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// Split parses raw into ordered command segments, splitting on the
// enabled separators outside of quoted spans. It fails with
// MalformedInputError on unterminated quotes, empty segments and
// input that is not well-formed shell.
//
// A trailing `&` does not open a new segment; it marks the final
// segment as background. A disabled separator character is kept as
// literal segment text and recorded in DisabledSep so the engine can
// reject it instead of silently ignoring it.
func Split(raw string, seps SeparatorSet) ([]Segment, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, &MalformedInputError{Detail: "empty command"}
	}
	if err := checkShellSyntax(trimmed); err != nil {
		return nil, err
	}

	var segs []Segment
	var cur strings.Builder
	curDisabled := SepNone
	pending := SepNone
	inSingle, inDouble, escaped := false, false, false

	flush := func(next Separator) error {
		text := strings.TrimSpace(cur.String())
		cur.Reset()
		if text == "" {
			return &MalformedInputError{Detail: "empty command segment"}
		}
		segs = append(segs, Segment{
			Index:       len(segs),
			Raw:         text,
			Sep:         pending,
			DisabledSep: curDisabled,
		})
		curDisabled = SepNone
		pending = next
		return nil
	}

	for _, r := range trimmed {
		if escaped {
			cur.WriteRune(r)
			escaped = false
			continue
		}
		switch {
		case r == '\\' && !inSingle:
			escaped = true
			cur.WriteRune(r)
			continue
		case r == '\'' && !inDouble:
			inSingle = !inSingle
		case r == '"' && !inSingle:
			inDouble = !inDouble
		case (r == '\n' || r == '\r') && !inSingle && !inDouble:
			// An unquoted newline would hand the shell a second
			// command this pipeline never saw.
			return nil, &MalformedInputError{Detail: "unquoted newline"}
		case (r == '|' || r == ';' || r == '&') && !inSingle && !inDouble:
			sep := Separator(string(r))
			if seps.enabled(sep) {
				if err := flush(sep); err != nil {
					return nil, err
				}
				if sep == SepBackground {
					segs[len(segs)-1].Background = true
				}
				continue
			}
			if curDisabled == SepNone {
				curDisabled = sep
			}
		}
		cur.WriteRune(r)
	}

	if inSingle || inDouble {
		return nil, &MalformedInputError{Detail: "unterminated quote"}
	}

	tail := strings.TrimSpace(cur.String())
	switch {
	case tail != "":
		segs = append(segs, Segment{
			Index:       len(segs),
			Raw:         tail,
			Sep:         pending,
			DisabledSep: curDisabled,
		})
	case pending == SepBackground && len(segs) > 0:
		// Trailing & already marked the last segment background.
	default:
		return nil, &MalformedInputError{Detail: "empty command segment"}
	}

	for i := range segs {
		tokens, err := Tokenize(segs[i].Raw)
		if err != nil {
			return nil, err
		}
		if len(tokens) == 0 {
			return nil, &MalformedInputError{Detail: "empty command segment"}
		}
		segs[i].Tokens = tokens
		segs[i].Base = baseCommand(tokens[0])
	}
	return segs, nil
}

// Tokenize splits segment text on whitespace, respecting single- and
// double-quoted spans and one level of backslash-escaping for the
// quote characters. Quotes are stripped from the returned tokens.
func Tokenize(s string) ([]string, error) {
	var tokens []string
	var tok strings.Builder
	have := false
	inSingle, inDouble, escaped := false, false, false

	for _, r := range s {
		if escaped {
			// Only the quote characters are escapable; anything else
			// keeps its backslash.
			if r != '\'' && r != '"' {
				tok.WriteRune('\\')
			}
			tok.WriteRune(r)
			have = true
			escaped = false
			continue
		}
		switch {
		case r == '\\' && !inSingle:
			escaped = true
		case r == '\'' && !inDouble:
			inSingle = !inSingle
			have = true
		case r == '"' && !inSingle:
			inDouble = !inDouble
			have = true
		case (r == ' ' || r == '\t') && !inSingle && !inDouble:
			if have {
				tokens = append(tokens, tok.String())
				tok.Reset()
				have = false
			}
		default:
			tok.WriteRune(r)
			have = true
		}
	}
	if escaped {
		tok.WriteRune('\\')
		have = true
	}
	if inSingle || inDouble {
		return nil, &MalformedInputError{Detail: "unterminated quote"}
	}
	if have {
		tokens = append(tokens, tok.String())
	}
	return tokens, nil
}

// baseCommand strips any directory component so /bin/ls and ls
// classify identically.
func baseCommand(tok string) string {
	if tok == "" {
		return ""
	}
	if strings.ContainsRune(tok, '/') {
		return filepath.Base(tok)
	}
	return tok
}

// checkShellSyntax rejects input that is not well-formed shell before
// any splitting happens. The AST is discarded: the pipeline reasons
// about command boundaries and base names only, never about
// expansions.
func checkShellSyntax(raw string) error {
	parser := syntax.NewParser(
		syntax.Variant(syntax.LangBash),
		syntax.KeepComments(false),
	)
	if _, err := parser.Parse(strings.NewReader(raw), ""); err != nil {
		return &MalformedInputError{Detail: err.Error()}
	}
	return nil
}
