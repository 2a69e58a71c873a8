package editing

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
	"unicode/utf8"

	models "casefile/internal/domain/models/editing"
	editingSvc "casefile/internal/domain/services/editing"

	"github.com/pmezard/go-difflib/difflib"
)

type contentAnalyzerService struct{}

// NewContentAnalyzer creates a new content analyzer service
func NewContentAnalyzer() editingSvc.ContentAnalyzer {
	return &contentAnalyzerService{}
}

// Normalize unifies line endings, drops a leading byte order mark and trailing
// whitespace. Two saves that differ only in those are the same content.
func (s *contentAnalyzerService) Normalize(content string) string {
	text := strings.TrimPrefix(content, "\uFEFF")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.TrimRightFunc(text, unicode.IsSpace)
}

// Hash returns the hex SHA-256 of normalized content
func (s *contentAnalyzerService) Hash(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// Tokenize splits by whitespace, dropping empty tokens
func (s *contentAnalyzerService) Tokenize(content string) []string {
	return strings.FieldsFunc(content, unicode.IsSpace)
}

// CountCharacters counts runes, not bytes
func (s *contentAnalyzerService) CountCharacters(content string) int {
	return utf8.RuneCountInString(content)
}

// WordDelta computes the multiset difference between two word bags
func (s *contentAnalyzerService) WordDelta(before, after []string) (added, removed int) {
	counts := make(map[string]int, len(before))
	for _, w := range before {
		counts[w]++
	}
	for _, w := range after {
		counts[w]--
	}
	for _, n := range counts {
		switch {
		case n < 0:
			added += -n
		case n > 0:
			removed += n
		}
	}
	return added, removed
}

// Diff aligns the two word sequences and groups them into marked runs
func (s *contentAnalyzerService) Diff(before, after []string) []models.DiffSegment {
	matcher := difflib.NewMatcherWithJunk(before, after, false, nil)

	segments := make([]models.DiffSegment, 0)
	appendRun := func(op models.DiffOp, words []string) {
		if len(words) == 0 {
			return
		}
		run := make([]string, len(words))
		copy(run, words)
		segments = append(segments, models.DiffSegment{Op: op, Words: run})
	}

	for _, oc := range matcher.GetOpCodes() {
		switch oc.Tag {
		case 'e':
			appendRun(models.DiffEqual, before[oc.I1:oc.I2])
		case 'd':
			appendRun(models.DiffRemoved, before[oc.I1:oc.I2])
		case 'i':
			appendRun(models.DiffAdded, after[oc.J1:oc.J2])
		case 'r':
			appendRun(models.DiffRemoved, before[oc.I1:oc.I2])
			appendRun(models.DiffAdded, after[oc.J1:oc.J2])
		}
	}
	return segments
}
