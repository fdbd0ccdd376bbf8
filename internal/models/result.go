package models

// Answer is the composer's output for one question.
// Failed is set when generation errored and Text holds the safe error message.
type Answer struct {
	Question string           `json:"question"`
	Text     string           `json:"answer"`
	Chunks   []RetrievedChunk `json:"chunks,omitempty"`
	Failed   bool             `json:"failed,omitempty"`
}

// Usage is a user's prompt count for the current day.
type Usage struct {
	User      string `json:"user"`
	Used      int    `json:"used"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
	Allowed   bool   `json:"allowed"`
}

// NewUsage builds a Usage from a count and a limit.
func NewUsage(user string, used, limit int) Usage {
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return Usage{User: user, Used: used, Limit: limit, Remaining: remaining, Allowed: used < limit}
}
