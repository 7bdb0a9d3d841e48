// Package llm extracts structured meeting insights from a finished
// transcript. The core treats the Analysis payload as opaque; its
// shape is whatever the language model was asked to produce.
package llm

import (
	"context"
)

// Task is one actionable item pulled out of a meeting.
type Task struct {
	Title       string `json:"title"`
	Assignee    string `json:"assignee"`
	DueDate     string `json:"due_date"`
	Priority    string `json:"priority"`
	Description string `json:"description,omitempty"`
}

// Analysis is the structured result of analyzing a full transcript.
type Analysis struct {
	Tasks     []Task   `json:"tasks"`
	Decisions []string `json:"decisions"`
	Risks     []string `json:"risks"`
	FollowUps []string `json:"follow_ups"`
	Summary   string   `json:"summary"`
}

// Analyzer turns a complete transcript into meeting insights. An empty
// transcript is a valid input and still produces a (trivial) analysis.
type Analyzer interface {
	Analyze(ctx context.Context, transcript string) (*Analysis, error)
}
