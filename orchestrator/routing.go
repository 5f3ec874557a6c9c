package orchestrator

import (
	"strings"

	"github.com/collegecompass/compass/agent"
	"github.com/collegecompass/compass/core"
)

// consultRule maps a topic keyword found in the primary agent's answer to
// the role that is authoritative for it.
type consultRule struct {
	keyword string
	role    string
}

// consultRules is the static routing table, checked in order. First match
// wins, so the table is fully deterministic.
var consultRules = []consultRule{
	{keyword: "deadline", role: agent.RoleTimeline},
	{keyword: "due date", role: agent.RoleTimeline},
	{keyword: "application window", role: agent.RoleTimeline},
	{keyword: "registration date", role: agent.RoleTimeline},
	{keyword: "personal statement", role: agent.RoleEssay},
	{keyword: "essay", role: agent.RoleEssay},
	{keyword: "supplemental", role: agent.RoleEssay},
	{keyword: "college list", role: agent.RoleResearch},
	{keyword: "safety school", role: agent.RoleResearch},
	{keyword: "reach school", role: agent.RoleResearch},
	{keyword: "campus visit", role: agent.RoleResearch},
	{keyword: "extracurricular", role: agent.RoleActivity},
	{keyword: "summer program", role: agent.RoleActivity},
	{keyword: "volunteer", role: agent.RoleActivity},
	{keyword: "application strategy", role: agent.RoleStrategic},
	{keyword: "profile gap", role: agent.RoleStrategic},
}

// routeConsult decides whether the primary answer warrants a specialist
// consult. The keyword table runs first; as a profile hint, an answer that
// names a college the student has a recorded application deadline for routes
// to the timeline role. The primary's own specialty never triggers a
// consult.
func routeConsult(prose, primaryRole string, profile *core.StudentProfile) (role, topic string, ok bool) {
	lower := strings.ToLower(prose)

	for _, rule := range consultRules {
		if rule.role == primaryRole {
			continue
		}
		if strings.Contains(lower, rule.keyword) {
			return rule.role, rule.keyword, true
		}
	}

	if profile != nil && primaryRole != agent.RoleTimeline {
		for _, d := range profile.Deadlines {
			if d.College != "" && strings.Contains(lower, strings.ToLower(d.College)) {
				return agent.RoleTimeline, d.College, true
			}
		}
	}

	return "", "", false
}
