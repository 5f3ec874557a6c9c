// Package testutil provides builders shared by package tests.
package testutil

import (
	"time"

	"github.com/collegecompass/compass/core"
)

// Profile returns a junior interested in computer science with one recorded
// application deadline.
func Profile() *core.StudentProfile {
	due := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	return &core.StudentProfile{
		StudentID:        "student-1",
		Grade:            11,
		Interests:        []string{"robotics", "math"},
		TargetMajors:     []string{"Computer Science"},
		FavoriteColleges: []string{"State University"},
		Deadlines: []core.ApplicationDeadline{
			{College: "State University", Due: due},
		},
	}
}

// Session returns an open session for Profile's student with the given
// primary agent.
func Session(primaryAgent string) *core.Session {
	return core.NewSession("sess-1", "student-1", primaryAgent, Profile())
}

// RawResponse returns a completed provider payload with plausible metadata.
func RawResponse(agentID, text string) *core.RawAgentResponse {
	return &core.RawAgentResponse{
		ResponseID: "resp-1",
		AgentID:    agentID,
		Provider:   "anthropic",
		Model:      "claude-sonnet-4-0",
		Text:       text,
		Latency:    120 * time.Millisecond,
		Usage:      core.TokenUsage{PromptTokens: 200, CompletionTokens: 80, TotalTokens: 280},
		Attempts:   1,
	}
}

// Item builds an actionable item.
func Item(id string, category core.Category, text string, grades ...int) core.ActionableItem {
	return core.ActionableItem{
		ID:       id,
		Category: category,
		Text:     text,
		Grades:   core.NewGradeSet(grades...),
	}
}
