package editing

import (
	"testing"

	models "casefile/internal/domain/models/editing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	analyzer := NewContentAnalyzer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"unchanged", "plain text", "plain text"},
		{"windows line endings", "line one\r\nline two\r\n", "line one\nline two"},
		{"old mac line endings", "line one\rline two", "line one\nline two"},
		{"byte order mark", "\uFEFFheading", "heading"},
		{"trailing whitespace", "body \t\n\n", "body"},
		{"leading whitespace kept", "  indented", "  indented"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, analyzer.Normalize(tt.input))
		})
	}
}

func TestHash(t *testing.T) {
	analyzer := NewContentAnalyzer()
	a := analyzer.Hash(analyzer.Normalize("same\r\n"))
	b := analyzer.Hash(analyzer.Normalize("same"))
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, analyzer.Hash("different"))
}

func TestTokenizeAndCount(t *testing.T) {
	analyzer := NewContentAnalyzer()

	assert.Equal(t, []string{"Hello", "world"}, analyzer.Tokenize("  Hello\n\tworld  "))
	assert.Empty(t, analyzer.Tokenize(" \n "))
	assert.Equal(t, 5, analyzer.CountCharacters("héllo"))
	assert.Equal(t, 2, analyzer.CountCharacters("日本"))
}

func TestWordDelta(t *testing.T) {
	analyzer := NewContentAnalyzer()

	tests := []struct {
		name        string
		before      []string
		after       []string
		wantAdded   int
		wantRemoved int
	}{
		{"empty to words", nil, []string{"a", "b"}, 2, 0},
		{"words to empty", []string{"a", "b"}, nil, 0, 2},
		{"order ignored", []string{"a", "b"}, []string{"b", "a"}, 0, 0},
		{"multiplicity counts", []string{"a"}, []string{"a", "a", "a"}, 2, 0},
		{"case sensitive", []string{"Court"}, []string{"court"}, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			added, removed := analyzer.WordDelta(tt.before, tt.after)
			assert.Equal(t, tt.wantAdded, added)
			assert.Equal(t, tt.wantRemoved, removed)
		})
	}
}

func TestDiff(t *testing.T) {
	analyzer := NewContentAnalyzer()

	segments := analyzer.Diff([]string{"a", "b", "c"}, []string{"a", "x", "c", "d"})
	assert.Equal(t, []models.DiffSegment{
		{Op: models.DiffEqual, Words: []string{"a"}},
		{Op: models.DiffRemoved, Words: []string{"b"}},
		{Op: models.DiffAdded, Words: []string{"x"}},
		{Op: models.DiffEqual, Words: []string{"c"}},
		{Op: models.DiffAdded, Words: []string{"d"}},
	}, segments)

	assert.Empty(t, analyzer.Diff(nil, nil))
}
