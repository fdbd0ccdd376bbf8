package models

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxQuestionLength caps the size of a single question in runes.
const MaxQuestionLength = 4000

// QueryRequest is a single-turn question.
type QueryRequest struct {
	Question string `json:"question"`
	Debug    bool   `json:"debug,omitempty"`
}

// Validate trims the question and rejects empty or oversized input.
func (q *QueryRequest) Validate() error {
	q.Question = strings.TrimSpace(q.Question)
	if q.Question == "" {
		return fmt.Errorf("question cannot be empty")
	}
	if utf8.RuneCountInString(q.Question) > MaxQuestionLength {
		return fmt.Errorf("question exceeds %d characters", MaxQuestionLength)
	}
	return nil
}
