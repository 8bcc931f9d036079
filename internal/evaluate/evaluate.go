// Package evaluate judges a learner's free-text answer against the expected
// answer by token overlap. It is the local, deterministic implementation of
// the review package's AnswerEvaluator; callers can swap in a remote
// evaluator without touching session logic.
package evaluate

import (
	"context"
	"fmt"

	"github.com/recallkit/recallkit/internal/review"
	"github.com/recallkit/recallkit/internal/textnorm"
)

// Responses that signal the learner is not attempting an answer. These are
// scored incorrect with high confidence rather than matched.
var nonAnswers = map[string]struct{}{
	"i don't know": {},
	"i dont know":  {},
	"idk":          {},
	"dunno":        {},
	"no idea":      {},
	"not sure":     {},
	"i forgot":     {},
	"forgot":       {},
	"pass":         {},
	"skip":         {},
	"next":         {},
}

// Filler words ignored during overlap scoring.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "be": {},
	"of": {}, "in": {}, "on": {}, "at": {}, "to": {}, "for": {},
	"and": {}, "or": {}, "it": {}, "its": {}, "that": {}, "this": {},
}

// DefaultThreshold is the minimum overlap score counted as correct.
const DefaultThreshold = 0.6

// Matcher scores answers by the fraction of expected key terms present in
// the response.
type Matcher struct {
	threshold float64
}

// NewMatcher builds a matcher. A zero threshold selects DefaultThreshold.
func NewMatcher(threshold float64) (*Matcher, error) {
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("evaluate: threshold %f outside [0, 1]", threshold)
	}
	return &Matcher{threshold: threshold}, nil
}

// Evaluate scores userAnswer against expectedAnswer. It never fails; the
// error return exists to satisfy the evaluator contract shared with remote
// implementations.
func (m *Matcher) Evaluate(ctx context.Context, question, expectedAnswer, userAnswer string) (review.Evaluation, error) {
	cleaned := textnorm.Clean(userAnswer)
	if _, ok := nonAnswers[cleaned]; ok || len(cleaned) < 3 {
		return review.Evaluation{
			IsCorrect:  false,
			Confidence: 0.95,
			Feedback:   "No answer was attempted.",
		}, nil
	}

	if cleaned == textnorm.Clean(expectedAnswer) {
		return review.Evaluation{
			IsCorrect:  true,
			Confidence: 1,
			Feedback:   "Exact match.",
		}, nil
	}

	expected := keyTerms(expectedAnswer)
	if len(expected) == 0 {
		// Expected answer is all filler; fall back to the cleaned comparison
		// above, which already failed.
		return review.Evaluation{
			IsCorrect:  false,
			Confidence: 0.5,
			Feedback:   "Expected answer has no comparable terms.",
		}, nil
	}

	given := make(map[string]struct{})
	for _, tok := range keyTerms(userAnswer) {
		given[tok] = struct{}{}
	}
	matched := 0
	for _, tok := range expected {
		if _, ok := given[tok]; ok {
			matched++
		}
	}
	score := float64(matched) / float64(len(expected))
	feedback := fmt.Sprintf("Matched %d of %d key terms.", matched, len(expected))

	if score >= m.threshold {
		return review.Evaluation{IsCorrect: true, Confidence: score, Feedback: feedback}, nil
	}
	return review.Evaluation{IsCorrect: false, Confidence: 1 - score, Feedback: feedback}, nil
}

// keyTerms tokenizes text and drops stopwords, keeping order and duplicates
// collapsed.
func keyTerms(s string) []string {
	seen := make(map[string]struct{})
	var terms []string
	for _, tok := range textnorm.Tokens(s) {
		if _, ok := stopwords[tok]; ok {
			continue
		}
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		terms = append(terms, tok)
	}
	return terms
}
