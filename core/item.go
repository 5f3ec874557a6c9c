package core

import (
	"sort"
	"strings"
	"time"
)

// Category classifies an actionable item into one of the planning areas the
// counseling agents recommend across.
type Category string

// The eight planning categories. Display text doubles as the wire value so
// provider output can be matched directly.
const (
	CategoryCourses         Category = "Courses"
	CategoryExtracurricular Category = "Extracurricular Activities"
	CategorySummerPrograms  Category = "Summer Programs"
	CategoryTests           Category = "Standardized Tests"
	CategoryApplications    Category = "College Applications"
	CategoryCareer          Category = "Career Exploration"
	CategoryNetworking      Category = "Networking and Mentorship"
	CategoryGeneral         Category = "General Resources"
)

// Categories returns all known categories in display order.
func Categories() []Category {
	return []Category{
		CategoryCourses,
		CategoryExtracurricular,
		CategorySummerPrograms,
		CategoryTests,
		CategoryApplications,
		CategoryCareer,
		CategoryNetworking,
		CategoryGeneral,
	}
}

// ParseCategory matches s against the known categories, ignoring case and
// surrounding whitespace. Returns false if s names no known category.
func ParseCategory(s string) (Category, bool) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for _, c := range Categories() {
		if strings.ToLower(string(c)) == needle {
			return c, true
		}
	}
	return "", false
}

// GradeSet is a set of applicable high-school grade levels (9 through 12),
// stored as a bitmask so the zero value is the empty set.
type GradeSet uint8

// MinGrade and MaxGrade bound the grade levels a GradeSet can hold.
const (
	MinGrade = 9
	MaxGrade = 12
)

// NewGradeSet builds a set from the given grade levels. Values outside
// 9..12 are ignored.
func NewGradeSet(grades ...int) GradeSet {
	var g GradeSet
	for _, grade := range grades {
		g = g.With(grade)
	}
	return g
}

// AllGrades returns the full 9-12 set.
func AllGrades() GradeSet { return NewGradeSet(9, 10, 11, 12) }

// With returns a copy of the set including grade.
func (g GradeSet) With(grade int) GradeSet {
	if grade < MinGrade || grade > MaxGrade {
		return g
	}
	return g | 1<<(grade-MinGrade)
}

// Contains reports whether grade is in the set.
func (g GradeSet) Contains(grade int) bool {
	if grade < MinGrade || grade > MaxGrade {
		return false
	}
	return g&(1<<(grade-MinGrade)) != 0
}

// Bits exposes the raw bitmask for storage.
func (g GradeSet) Bits() uint8 { return uint8(g) }

// GradeSetFromBits rebuilds a set from a stored bitmask, masking off bits
// outside the 9-12 range.
func GradeSetFromBits(bits uint8) GradeSet {
	return GradeSet(bits) & AllGrades()
}

// IsEmpty reports whether no grade is set.
func (g GradeSet) IsEmpty() bool { return g == 0 }

// Grades returns the member grades in ascending order.
func (g GradeSet) Grades() []int {
	var out []int
	for grade := MinGrade; grade <= MaxGrade; grade++ {
		if g.Contains(grade) {
			out = append(out, grade)
		}
	}
	return out
}

// Earliest returns the lowest grade in the set at or above from, and whether
// one exists.
func (g GradeSet) Earliest(from int) (int, bool) {
	for grade := max(from, MinGrade); grade <= MaxGrade; grade++ {
		if g.Contains(grade) {
			return grade, true
		}
	}
	return 0, false
}

// String renders the set as ordinal text, e.g. "9th, 11th".
func (g GradeSet) String() string {
	grades := g.Grades()
	parts := make([]string, len(grades))
	for i, grade := range grades {
		parts[i] = ordinal(grade)
	}
	return strings.Join(parts, ", ")
}

func ordinal(grade int) string {
	switch grade {
	case 9:
		return "9th"
	case 10:
		return "10th"
	case 11:
		return "11th"
	case 12:
		return "12th"
	}
	return ""
}

// ActionableItem is a discrete recommendation extracted from an agent
// response. ID is the provider-generated token scoped to a single response;
// it is not globally unique and is replaced by a stable server id when the
// item is accepted into a plan.
type ActionableItem struct {
	ID       string     `json:"id"`
	Category Category   `json:"category"`
	Text     string     `json:"text"`
	Grades   GradeSet   `json:"grades"`
	URL      string     `json:"url,omitempty"`
	Deadline *time.Time `json:"deadline,omitempty"`
}

// SortItemsByID orders items by their temporary id, for deterministic output
// in exports and tests.
func SortItemsByID(items []ActionableItem) {
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
}
