package solution

import (
	"reflect"
	"strings"
	"testing"
)

func validSolution() *Solution {
	return &Solution{
		Title:        "Null pointer in event handler",
		ErrorMessage: "TypeError: Cannot read properties of null",
		ErrorType:    ErrorTypeRuntime,
		Context:      "Attaching a listener before the DOM node exists",
		RootCause:    "Handler registered before element mount",
		Solution:     "Register the handler after mount, or guard the lookup",
		Tags:         []string{"javascript", "dom"},
	}
}

func TestValidate_OK(t *testing.T) {
	if missing := validSolution().Validate(); len(missing) != 0 {
		t.Fatalf("Validate() = %v, want no missing fields", missing)
	}
}

func TestValidate_MissingFields(t *testing.T) {
	s := &Solution{Title: "only a title"}
	missing := s.Validate()

	for _, want := range []string{"errorMessage", "context", "rootCause", "solution", "errorType"} {
		found := false
		for _, m := range missing {
			if m == want {
				found = true
			}
		}
		if !found {
			t.Errorf("Validate() = %v, missing %q not reported", missing, want)
		}
	}
}

func TestValidate_UnknownErrorType(t *testing.T) {
	s := validSolution()
	s.ErrorType = "catastrophe"
	missing := s.Validate()
	if len(missing) != 1 || !strings.Contains(missing[0], "errorType") {
		t.Errorf("Validate() = %v, want single errorType complaint", missing)
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("The quick-Brown fox_1 a of IS running!")
	want := []string{"quick", "brown", "fox_1", "running"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize() = %v, want %v", got, want)
	}
}

func TestTokenize_DropsShortAndStopWords(t *testing.T) {
	got := Tokenize("a b c to in xyzzy12345")
	if !reflect.DeepEqual(got, []string{"xyzzy12345"}) {
		t.Errorf("Tokenize() = %v, want [xyzzy12345]", got)
	}
}

func TestTermCounts_MinimumDocLength(t *testing.T) {
	counts, docLen := TermCounts("a a a")
	if len(counts) != 0 {
		t.Errorf("TermCounts counts = %v, want empty", counts)
	}
	if docLen != 1 {
		t.Errorf("docLength = %d, want 1 (floor)", docLen)
	}
}

func TestTermCounts_Frequencies(t *testing.T) {
	counts, docLen := TermCounts("retry retry retry backoff")
	if counts["retry"] != 3 || counts["backoff"] != 1 {
		t.Errorf("TermCounts = %v, want retry:3 backoff:1", counts)
	}
	if docLen != 4 {
		t.Errorf("docLength = %d, want 4", docLen)
	}
}

func TestEnvironmentText_StableOrder(t *testing.T) {
	s := validSolution()
	s.Environment = map[string]string{"node": "20.1", "arch": "arm64", "os": "linux"}

	want := "arch=arm64 node=20.1 os=linux"
	for range 10 {
		if got := s.EnvironmentText(); got != want {
			t.Fatalf("EnvironmentText() = %q, want %q", got, want)
		}
	}
}

func TestIndexableText_SkipsEmptyFields(t *testing.T) {
	s := validSolution()
	s.Tags = nil
	text := s.IndexableText()
	if strings.Contains(text, "  ") {
		t.Errorf("IndexableText() contains double space: %q", text)
	}
	if !strings.Contains(text, s.Title) || !strings.Contains(text, s.RootCause) {
		t.Errorf("IndexableText() missing required fields: %q", text)
	}
}

func TestEmbeddingText_TitleTwiceAndTruncatedSolution(t *testing.T) {
	s := validSolution()
	s.Solution = strings.Repeat("x", 600)
	text := s.EmbeddingText()

	if strings.Count(text, s.Title) != 2 {
		t.Errorf("EmbeddingText() should repeat the title twice")
	}
	if strings.Contains(text, strings.Repeat("x", 501)) {
		t.Errorf("EmbeddingText() did not truncate the solution field")
	}
	if !strings.Contains(text, strings.Repeat("x", 500)) {
		t.Errorf("EmbeddingText() lost the solution prefix")
	}
}

func TestPreview_Truncation(t *testing.T) {
	long := strings.Repeat("e", 100)
	got := Preview(long, "some context")
	if !strings.HasPrefix(got, strings.Repeat("e", 80)+"...") {
		t.Errorf("Preview() = %q, want 80-char prefix with ellipsis", got)
	}
	if !strings.HasSuffix(got, "| some context") {
		t.Errorf("Preview() = %q, want context suffix", got)
	}
}

func TestPreview_NoContext(t *testing.T) {
	if got := Preview("short error", ""); got != "short error" {
		t.Errorf("Preview() = %q, want %q", got, "short error")
	}
}

func TestContentHash_StableAcrossVolatileFields(t *testing.T) {
	a := validSolution()
	b := validSolution()
	b.ID = "01OTHER"
	b.CreatedAt = "2026-01-01T00:00:00Z"
	b.Environment = map[string]string{"os": "linux"}
	b.ProjectPath = "react-app"

	if a.ContentHash() != b.ContentHash() {
		t.Error("ContentHash differs across volatile-field changes")
	}
}

func TestContentHash_SensitiveToContent(t *testing.T) {
	a := validSolution()
	b := validSolution()
	b.Solution = "a different fix"

	if a.ContentHash() == b.ContentHash() {
		t.Error("ContentHash identical for different solutions")
	}
}

func TestValidErrorType(t *testing.T) {
	if !ValidErrorType("network") {
		t.Error("network should be valid")
	}
	if ValidErrorType("weather") {
		t.Error("weather should be invalid")
	}
}
