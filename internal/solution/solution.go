package solution

import (
	"strings"
)

// ErrorType categorizes what kind of failure a solution addresses.
type ErrorType string

const (
	ErrorTypeCompile       ErrorType = "compile"
	ErrorTypeRuntime       ErrorType = "runtime"
	ErrorTypeConfiguration ErrorType = "configuration"
	ErrorTypeDependency    ErrorType = "dependency"
	ErrorTypeNetwork       ErrorType = "network"
	ErrorTypeLogic         ErrorType = "logic"
	ErrorTypePerformance   ErrorType = "performance"
	ErrorTypeSecurity      ErrorType = "security"
	ErrorTypeOther         ErrorType = "other"
)

// ErrorTypes lists every valid error type, in display order.
var ErrorTypes = []ErrorType{
	ErrorTypeCompile, ErrorTypeRuntime, ErrorTypeConfiguration,
	ErrorTypeDependency, ErrorTypeNetwork, ErrorTypeLogic,
	ErrorTypePerformance, ErrorTypeSecurity, ErrorTypeOther,
}

// ValidErrorType reports whether s is a known error type.
func ValidErrorType(s string) bool {
	for _, t := range ErrorTypes {
		if string(t) == s {
			return true
		}
	}
	return false
}

// Solution is one error→resolution record. Records are immutable once saved:
// id, created_at, and embedding are assigned by the store at save time and
// never change afterwards.
type Solution struct {
	// ID is a ULID assigned by the store
	ID string `json:"id"`

	// Title is a concise technical summary of the error
	Title string `json:"title"`

	// ErrorMessage is the (redacted) error text as observed
	ErrorMessage string `json:"errorMessage"`

	// ErrorType is the failure category
	ErrorType ErrorType `json:"errorType"`

	// Context describes the situation the error occurred in
	Context string `json:"context"`

	// RootCause is the technical explanation of why the error happens
	RootCause string `json:"rootCause"`

	// Solution is the resolution, free text
	Solution string `json:"solution"`

	// CodeChanges holds abstracted diffs or snippets (optional)
	CodeChanges string `json:"codeChanges,omitempty"`

	// Tags categorize the record; order preserves caller intent
	Tags []string `json:"tags"`

	// Labels are optional free-form classification strings
	Labels []string `json:"labels,omitempty"`

	// CLILibraryID is an optional versioned library reference
	CLILibraryID string `json:"cliLibraryId,omitempty"`

	// Environment is an optional open key/value map (runtime, versions)
	Environment map[string]string `json:"environment,omitempty"`

	// ProjectPath is an optional generic project descriptor
	ProjectPath string `json:"projectPath,omitempty"`

	// CreatedAt is an RFC3339 UTC timestamp assigned at save time
	CreatedAt string `json:"createdAt"`

	// Embedding is the record's dense vector; nil when the record predates
	// embedding support. Never serialized over the tool boundary.
	Embedding []float32 `json:"-"`
}

// SearchResult is one ranked hit returned by any search mode.
type SearchResult struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	ErrorType  ErrorType `json:"errorType"`
	Tags       []string  `json:"tags"`
	CreatedAt  string    `json:"createdAt"`
	Similarity float64   `json:"similarity,omitempty"` // fused or dense score
	Score      float64   `json:"score,omitempty"`      // normalized sparse component
	Preview    string    `json:"preview,omitempty"`
}

// requiredFields maps field names to accessors, used by Validate.
var requiredFields = []struct {
	name string
	get  func(*Solution) string
}{
	{"title", func(s *Solution) string { return s.Title }},
	{"errorMessage", func(s *Solution) string { return s.ErrorMessage }},
	{"context", func(s *Solution) string { return s.Context }},
	{"rootCause", func(s *Solution) string { return s.RootCause }},
	{"solution", func(s *Solution) string { return s.Solution }},
}

// Validate returns the names of required fields that are missing or blank,
// plus an error-type problem if the type is unknown. An empty slice means
// the record is valid.
func (s *Solution) Validate() []string {
	var missing []string
	for _, f := range requiredFields {
		if strings.TrimSpace(f.get(s)) == "" {
			missing = append(missing, f.name)
		}
	}
	if s.ErrorType == "" {
		missing = append(missing, "errorType")
	} else if !ValidErrorType(string(s.ErrorType)) {
		missing = append(missing, "errorType (unknown value "+string(s.ErrorType)+")")
	}
	return missing
}
