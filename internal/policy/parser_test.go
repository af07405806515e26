package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_SingleCommand(t *testing.T) {
	segs, err := Split("ls -la", AllSeparators())
	require.NoError(t, err)
	require.Len(t, segs, 1)
	assert.Equal(t, "ls -la", segs[0].Raw)
	assert.Equal(t, []string{"ls", "-la"}, segs[0].Tokens)
	assert.Equal(t, SepNone, segs[0].Sep)
	assert.Equal(t, "ls", segs[0].Base)
	assert.False(t, segs[0].Background)
}

func TestSplit_Pipeline(t *testing.T) {
	segs, err := Split("ls -la | grep foo", AllSeparators())
	require.NoError(t, err)
	require.Len(t, segs, 2)
	assert.Equal(t, "ls", segs[0].Base)
	assert.Equal(t, SepNone, segs[0].Sep)
	assert.Equal(t, "grep", segs[1].Base)
	assert.Equal(t, SepPipe, segs[1].Sep)
	assert.Equal(t, 1, segs[1].Index)
}

func TestSplit_MixedSeparators(t *testing.T) {
	segs, err := Split("mkdir test; touch test/file.txt | grep x", AllSeparators())
	require.NoError(t, err)
	require.Len(t, segs, 3)
	assert.Equal(t, SepSequence, segs[1].Sep)
	assert.Equal(t, SepPipe, segs[2].Sep)
	assert.Equal(t, "touch", segs[1].Base)
}

func TestSplit_QuotedSeparatorsDoNotSplit(t *testing.T) {
	tests := []struct {
		name  string
		input string
		count int
	}{
		{"double quoted pipe", `echo "a | b"`, 1},
		{"single quoted semicolon", `echo 'x;y'`, 1},
		{"quoted then real separator", `echo "a ; b" ; ls`, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segs, err := Split(tt.input, AllSeparators())
			require.NoError(t, err)
			assert.Len(t, segs, tt.count)
		})
	}
}

func TestSplit_QuotesStrippedFromTokens(t *testing.T) {
	segs, err := Split(`echo "a | b" 'c d'`, AllSeparators())
	require.NoError(t, err)
	require.Len(t, segs, 1)
	assert.Equal(t, []string{"echo", "a | b", "c d"}, segs[0].Tokens)
}

func TestSplit_BasenameResolution(t *testing.T) {
	segs, err := Split("/bin/ls -la", AllSeparators())
	require.NoError(t, err)
	assert.Equal(t, "ls", segs[0].Base)

	segs, err = Split("/usr/local/bin/mytool", AllSeparators())
	require.NoError(t, err)
	assert.Equal(t, "mytool", segs[0].Base)
}

func TestSplit_MalformedInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"unterminated double quote", `ls "unterminated`},
		{"unterminated single quote", `ls 'open`},
		{"double semicolon", "ls ;; pwd"},
		{"trailing semicolon", "ls ;"},
		{"trailing pipe", "ls |"},
		{"leading pipe", "| ls"},
		{"empty segment between pipes", "ls | | wc"},
		{"and-list", "ls && pwd"},
		{"unquoted newline", "ls\npwd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Split(tt.input, AllSeparators())
			require.Error(t, err)
			assert.True(t, IsMalformedInput(err), "expected MalformedInputError, got %v", err)
		})
	}
}

func TestSplit_TrailingAmpersandMarksBackground(t *testing.T) {
	segs, err := Split("sleep 10 &", AllSeparators())
	require.NoError(t, err)
	require.Len(t, segs, 1)
	assert.True(t, segs[0].Background)
}

func TestSplit_AmpersandBetweenSegments(t *testing.T) {
	segs, err := Split("ls & pwd", AllSeparators())
	require.NoError(t, err)
	require.Len(t, segs, 2)
	assert.True(t, segs[0].Background)
	assert.Equal(t, SepBackground, segs[1].Sep)
	assert.False(t, segs[1].Background)
}

func TestSplit_DisabledSeparatorKeptAndRecorded(t *testing.T) {
	segs, err := Split("ls ; pwd", SeparatorSet{Pipe: true})
	require.NoError(t, err)
	require.Len(t, segs, 1)
	assert.Equal(t, SepSequence, segs[0].DisabledSep)
	assert.Contains(t, segs[0].Raw, ";")
}

func TestSplit_AllSeparatorsDisabled(t *testing.T) {
	segs, err := Split("ls | grep x", NoSeparators())
	require.NoError(t, err)
	require.Len(t, segs, 1)
	assert.Equal(t, SepPipe, segs[0].DisabledSep)
}

func TestSplit_RedirectAmpersandSplits(t *testing.T) {
	// 2>&1 is valid shell, so it survives the syntax precheck; the
	// ampersand still splits, and the pattern matcher catches the
	// construct on the raw string.
	segs, err := Split("echo hi 2>&1", AllSeparators())
	require.NoError(t, err)
	require.Len(t, segs, 2)
	assert.True(t, segs[0].Background)
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"plain", "ls -la /tmp", []string{"ls", "-la", "/tmp"}},
		{"double quotes", `grep "hello world" f.txt`, []string{"grep", "hello world", "f.txt"}},
		{"single quotes", `echo 'a b'`, []string{"echo", "a b"}},
		{"empty quoted token", `echo ""`, []string{"echo", ""}},
		{"escaped double quote", `echo \"hi`, []string{"echo", `"hi`}},
		{"backslash before non-quote kept", `grep a\tb`, []string{"grep", `a\tb`}},
		{"adjacent quoted parts", `echo a"b c"d`, []string{"echo", "ab cd"}},
		{"tabs", "ls\t-la", []string{"ls", "-la"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := Tokenize(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, tokens)
		})
	}
}

func TestTokenize_UnterminatedQuote(t *testing.T) {
	_, err := Tokenize(`ls "open`)
	require.Error(t, err)
	assert.True(t, IsMalformedInput(err))
}
