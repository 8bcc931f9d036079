package domain

import (
	"fmt"
	"time"
)

// Card is an immutable study unit. Cards are soft-deleted (IsActive=false)
// rather than removed while progress records still reference them.
type Card struct {
	ID             int64
	Content        string `validate:"required,max=2000"`
	SourceMaterial string
	Tags           []string
	Difficulty     DifficultyLevel `validate:"gte=1,lte=5"`
	IsActive       bool
	SourceID       *int64 // set when the card came from an imported source
	Fingerprint    string // content identity for import reconciliation
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewCard builds an active card and validates its fields.
func NewCard(content string, tags []string, difficulty DifficultyLevel) (Card, error) {
	c := Card{
		Content:    content,
		Tags:       tags,
		Difficulty: difficulty,
		IsActive:   true,
	}
	if err := c.Validate(); err != nil {
		return Card{}, err
	}
	return c, nil
}

// Validate checks the card's field constraints.
func (c Card) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid card: %w", err)
	}
	return nil
}

// Question is one phrasing generated for a card, carrying its own expected
// answer and difficulty. Questions are owned by their card and deleted with it.
type Question struct {
	ID           int64
	CardID       int64  `validate:"required"`
	QuestionText string `validate:"required,max=2000"`
	AnswerText   string `validate:"required,max=2000"`
	Type         QuestionType
	Difficulty   DifficultyLevel `validate:"gte=1,lte=5"`
	CreatedAt    time.Time
}

// NewQuestion builds a question for the given card and validates it.
func NewQuestion(cardID int64, text, answer string, difficulty DifficultyLevel) (Question, error) {
	q := Question{
		CardID:       cardID,
		QuestionText: text,
		AnswerText:   answer,
		Type:         QuestionStandard,
		Difficulty:   difficulty,
	}
	if err := q.Validate(); err != nil {
		return Question{}, err
	}
	return q, nil
}

// Validate checks the question's field constraints.
func (q Question) Validate() error {
	if err := validate.Struct(q); err != nil {
		return fmt.Errorf("invalid question: %w", err)
	}
	if !q.Type.IsValid() {
		return fmt.Errorf("invalid question: unknown type %q", q.Type)
	}
	return nil
}
