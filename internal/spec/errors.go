package spec

import (
	"fmt"
	"strings"

	"github.com/matthewbaird/turbine/internal/errors"
)

// Issue is one problem found in a specification document.
type Issue struct {
	Path       string `json:"path"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

func (i Issue) String() string {
	msg := i.Message
	if i.Path != "" {
		msg = i.Path + ": " + msg
	}
	if i.Suggestion != "" {
		msg += " (" + i.Suggestion + ")"
	}
	return msg
}

// ValidationError reports every shape or structural problem of a document.
// It matches errors.ErrSchemaValidation.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	switch len(e.Issues) {
	case 0:
		return "invalid specification"
	case 1:
		return "invalid specification: " + e.Issues[0].String()
	}
	parts := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		parts[i] = is.String()
	}
	return fmt.Sprintf("invalid specification: %d issues: %s", len(e.Issues), strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool { return target == errors.ErrSchemaValidation }

// issues accumulates problems during validation.
type issues []Issue

func (is *issues) add(path, format string, args ...any) {
	*is = append(*is, Issue{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (is *issues) addSuggest(path, got string, candidates []string, format string, args ...any) {
	*is = append(*is, Issue{
		Path:       path,
		Message:    fmt.Sprintf(format, args...),
		Suggestion: SuggestFrom(got, candidates, maxSuggestDistance(got)),
	})
}

func (is issues) err() error {
	if len(is) == 0 {
		return nil
	}
	return &ValidationError{Issues: is}
}

// Levenshtein computes the edit distance between two strings, comparing
// runes case-insensitively.
func Levenshtein(a, b string) int {
	ra := []rune(strings.ToLower(a))
	rb := []rune(strings.ToLower(b))
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// SuggestFrom returns "did you mean 'x'?" for the closest candidate within
// maxDist edits, or "" when nothing is close enough.
func SuggestFrom(input string, candidates []string, maxDist int) string {
	best := ""
	bestDist := maxDist + 1
	for _, c := range candidates {
		if d := Levenshtein(input, c); d < bestDist {
			bestDist = d
			best = c
		}
	}
	if best == "" || bestDist > maxDist {
		return ""
	}
	return fmt.Sprintf("did you mean '%s'?", best)
}

func maxSuggestDistance(s string) int {
	if len(s) <= 4 {
		return 1
	}
	if len(s) <= 8 {
		return 2
	}
	return 3
}
