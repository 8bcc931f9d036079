package importer

import (
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name          string
		input         string
		expectedCards int
		expectedQ     string
		expectedA     string
		expectedC     string
		expectedTags  []string
	}{
		{
			name:          "Simple Q&A",
			input:         "Q: What is the capital of France?\nA: Paris",
			expectedCards: 1,
			expectedQ:     "What is the capital of France?",
			expectedA:     "Paris",
		},
		{
			name:          "Q, A and C",
			input:         "Q: What is 1+1?\nA: 2\nC: Basic arithmetic",
			expectedCards: 1,
			expectedQ:     "What is 1+1?",
			expectedA:     "2",
			expectedC:     "Basic arithmetic",
		},
		{
			name: "Multiline answer",
			input: `
Q: What are the primary colors?
A: Red
Blue
Yellow
`,
			expectedCards: 1,
			expectedQ:     "What are the primary colors?",
			expectedA:     "Red\nBlue\nYellow",
		},
		{
			name: "Two cards",
			input: `
Q: First question
A: First answer

Q: Second question
A: Second answer
`,
			expectedCards: 2,
		},
		{
			name: "Separator ends a card",
			input: `
Q: First question
A: First answer
---
Q: Second question
A: Second answer
`,
			expectedCards: 2,
		},
		{
			name: "All fields with multiline",
			input: `
Q: What is Go?
A: A statically typed, compiled programming language.
It was designed at Google.
C: Programming Languages
`,
			expectedCards: 1,
			expectedQ:     "What is Go?",
			expectedA:     "A statically typed, compiled programming language.\nIt was designed at Google.",
			expectedC:     "Programming Languages",
		},
		{
			name:          "Tags line",
			input:         "Q: What is a goroutine?\nA: A lightweight thread.\nT: go, concurrency",
			expectedCards: 1,
			expectedQ:     "What is a goroutine?",
			expectedA:     "A lightweight thread.",
			expectedTags:  []string{"go", "concurrency"},
		},
		{
			name:          "No cards, just text",
			input:         "This is a file with no questions.",
			expectedCards: 0,
		},
		{
			name:          "Prefixes with no space",
			input:         "Q:Question\nA:Answer",
			expectedCards: 1,
			expectedQ:     "Question",
			expectedA:     "Answer",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cards, err := Parse(strings.NewReader(tc.input))
			if err != nil {
				t.Fatalf("Parse() returned an unexpected error: %v", err)
			}
			if len(cards) != tc.expectedCards {
				t.Fatalf("Expected %d cards, but got %d", tc.expectedCards, len(cards))
			}
			if tc.expectedCards != 1 {
				return
			}

			card := cards[0]
			if card.Question != tc.expectedQ {
				t.Errorf("Question = %q, want %q", card.Question, tc.expectedQ)
			}
			if card.Answer != tc.expectedA {
				t.Errorf("Answer = %q, want %q", card.Answer, tc.expectedA)
			}
			if card.Context != tc.expectedC {
				t.Errorf("Context = %q, want %q", card.Context, tc.expectedC)
			}
			if len(card.Tags) != len(tc.expectedTags) {
				t.Fatalf("Tags = %v, want %v", card.Tags, tc.expectedTags)
			}
			for i := range card.Tags {
				if card.Tags[i] != tc.expectedTags[i] {
					t.Fatalf("Tags = %v, want %v", card.Tags, tc.expectedTags)
				}
			}
		})
	}
}
