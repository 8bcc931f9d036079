package domain

import "fmt"

// DifficultyLevel grades how hard a card or question is, from 1 (very easy)
// to 5 (very hard).
type DifficultyLevel int

const (
	VeryEasy DifficultyLevel = iota + 1
	Easy
	Medium
	Hard
	VeryHard
)

var difficultyNames = [...]string{
	VeryEasy: "very_easy",
	Easy:     "easy",
	Medium:   "medium",
	Hard:     "hard",
	VeryHard: "very_hard",
}

// IsValid reports whether d is within the 1..5 range.
func (d DifficultyLevel) IsValid() bool {
	return d >= VeryEasy && d <= VeryHard
}

// String returns the snake_case name of the level. For invalid values it
// returns "DifficultyLevel(n)".
func (d DifficultyLevel) String() string {
	if d.IsValid() {
		return difficultyNames[d]
	}
	return fmt.Sprintf("DifficultyLevel(%d)", int(d))
}

// DifficultyRating is the learner's own 1..4 rating of how hard a review
// felt, recorded alongside a session review.
type DifficultyRating int

const (
	RatedEasy DifficultyRating = iota + 1
	RatedMedium
	RatedHard
	RatedVeryHard
)

// IsValid reports whether r is within the 1..4 range.
func (r DifficultyRating) IsValid() bool {
	return r >= RatedEasy && r <= RatedVeryHard
}

// StudyMode selects which evaluator and grading path a session is wired
// with. Modes are recorded policy configuration; they do not change the
// session state machine.
type StudyMode string

const (
	ModeDefault        StudyMode = "default"         // fully automated grading
	ModeControlled     StudyMode = "controlled"      // learner confirms transcription first
	ModeNoTTS          StudyMode = "no_tts"          // visual question, automated grading
	ModeManualDecision StudyMode = "manual_decision" // learner supplies the evaluation
	ModeStudy          StudyMode = "study"           // batch question generation pass
	ModeReview         StudyMode = "review"          // traditional flashcard review
	ModePerformance    StudyMode = "performance"     // minimal-latency review
)

// IsValid reports whether m is one of the known study modes.
func (m StudyMode) IsValid() bool {
	switch m {
	case ModeDefault, ModeControlled, ModeNoTTS, ModeManualDecision,
		ModeStudy, ModeReview, ModePerformance:
		return true
	}
	return false
}

// QuestionType describes the phrasing style of a generated question.
type QuestionType string

const (
	QuestionStandard       QuestionType = "standard"
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionFillBlank      QuestionType = "fill_blank"
	QuestionTrueFalse      QuestionType = "true_false"
)

// IsValid reports whether t is one of the known question types.
func (t QuestionType) IsValid() bool {
	switch t {
	case QuestionStandard, QuestionMultipleChoice, QuestionFillBlank, QuestionTrueFalse:
		return true
	}
	return false
}
