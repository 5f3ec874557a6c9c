package core

import "time"

// ApplicationDeadline is a read-only view of one application deadline from
// the admissions collaborator, consumed for routing hints only.
type ApplicationDeadline struct {
	College string    `json:"college"`
	Due     time.Time `json:"due"`
}

// StudentProfile is a read-only snapshot of the student record taken when a
// session is created. Grade is 0 when the student's current grade is unknown.
type StudentProfile struct {
	StudentID        string                `json:"student_id"`
	Grade            int                   `json:"grade"`
	Interests        []string              `json:"interests,omitempty"`
	TargetMajors     []string              `json:"target_majors,omitempty"`
	FavoriteColleges []string              `json:"favorite_colleges,omitempty"`
	Deadlines        []ApplicationDeadline `json:"deadlines,omitempty"`
}

// Clone returns a deep copy safe for independent mutation.
func (p *StudentProfile) Clone() *StudentProfile {
	if p == nil {
		return nil
	}
	clone := *p
	clone.Interests = append([]string(nil), p.Interests...)
	clone.TargetMajors = append([]string(nil), p.TargetMajors...)
	clone.FavoriteColleges = append([]string(nil), p.FavoriteColleges...)
	clone.Deadlines = append([]ApplicationDeadline(nil), p.Deadlines...)
	return &clone
}
