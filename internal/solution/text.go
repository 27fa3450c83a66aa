package solution

import (
	"sort"
	"strings"
)

// Text assembly rules. The same serialization feeds the lexical index, the
// embedding input, and the content hash, so every piece must be
// deterministic for a given record.

const (
	previewErrorChars   = 80
	previewContextChars = 50
	embedSolutionChars  = 500
)

// EnvironmentText serializes the environment map with stable key ordering.
// Returns "" for an empty map.
func (s *Solution) EnvironmentText() string {
	if len(s.Environment) == 0 {
		return ""
	}
	keys := make([]string, 0, len(s.Environment))
	for k := range s.Environment {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+s.Environment[k])
	}
	return strings.Join(parts, " ")
}

// IndexableText is the concatenation of all lexically searchable fields,
// space joined, empty fields skipped. Field order is fixed.
func (s *Solution) IndexableText() string {
	fields := []string{
		s.Title,
		s.ErrorMessage,
		s.Context,
		s.RootCause,
		s.Solution,
		strings.Join(s.Tags, " "),
		s.EnvironmentText(),
	}
	nonEmpty := fields[:0]
	for _, f := range fields {
		if f != "" {
			nonEmpty = append(nonEmpty, f)
		}
	}
	return strings.Join(nonEmpty, " ")
}

// EmbeddingText is the weighted concatenation fed to the embedding model.
// The title appears twice for emphasis and long solutions are truncated,
// matching how the stored vectors were generated.
func (s *Solution) EmbeddingText() string {
	sol := s.Solution
	if len(sol) > embedSolutionChars {
		sol = sol[:embedSolutionChars]
	}
	return strings.Join([]string{
		s.Title,
		s.Title,
		s.ErrorMessage,
		s.Context,
		s.RootCause,
		sol,
		strings.Join(s.Tags, " "),
		s.EnvironmentText(),
		strings.Join(s.Labels, " "),
	}, " ")
}

// Preview builds the short display line used in search results: the first
// 80 chars of the error message and the first 50 chars of the context.
func Preview(errorMessage, context string) string {
	msg := errorMessage
	if len(msg) > previewErrorChars {
		msg = msg[:previewErrorChars] + "..."
	}
	ctx := ""
	if context != "" {
		if len(context) > previewContextChars {
			context = context[:previewContextChars]
		}
		ctx = " | " + context
	}
	return strings.TrimSpace(msg + ctx)
}
