package agent

// The specialized reasoning roles of the counseling team.
const (
	RoleCounselor = "counselor"
	RoleStrategic = "strategic"
	RoleTimeline  = "timeline"
	RoleEssay     = "essay"
	RoleResearch  = "research"
	RoleActivity  = "activity"
)

// Roles returns all known role identifiers in registration order.
func Roles() []string {
	return []string{
		RoleCounselor,
		RoleStrategic,
		RoleTimeline,
		RoleEssay,
		RoleResearch,
		RoleActivity,
	}
}

// Specialty describes what a role is authoritative for, used by the
// orchestrator's routing table to decide on a secondary consult.
var Specialty = map[string]string{
	RoleCounselor: "general admissions guidance and student conversation",
	RoleStrategic: "long-term application strategy and profile gaps",
	RoleTimeline:  "deadlines, schedules and milestone dates",
	RoleEssay:     "essay topics, drafts and revision guidance",
	RoleResearch:  "college matching and institutional research",
	RoleActivity:  "extracurricular and summer activity planning",
}
