package editing

import models "casefile/internal/domain/models/editing"

// ContentAnalyzer handles content analysis operations
type ContentAnalyzer interface {
	// Normalize canonicalizes content for the no-op comparison; stored
	// content is never normalized
	Normalize(content string) string

	// Hash fingerprints normalized content for no-op detection
	Hash(normalized string) string

	// Tokenize splits content into words on whitespace
	Tokenize(content string) []string

	// CountCharacters counts runes
	CountCharacters(content string) int

	// WordDelta is the bag-of-words difference: words gained and lost
	// counting multiplicity, ignoring order
	WordDelta(before, after []string) (added, removed int)

	// Diff marks word runs as equal, added or removed for rendering
	Diff(before, after []string) []models.DiffSegment
}
