package plan

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/collegecompass/compass/core"
)

// GradeGroup holds the active entries applicable to one grade level, in the
// order they were added to the plan.
type GradeGroup struct {
	Grade   int
	Entries []core.PlanEntry
}

// Export is a grade-grouped view of a student's active plan at one version.
type Export struct {
	StudentID   string
	Version     int
	GeneratedAt time.Time
	Groups      []GradeGroup
	// Ungraded collects entries with no grade levels attached.
	Ungraded []core.PlanEntry
}

// BuildExport groups the student's active entries by grade level, ascending.
// An entry spanning several grades appears under each of them.
func BuildExport(ctx context.Context, store core.PlanStore, studentID string) (*Export, error) {
	entries, err := store.ActiveEntries(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("read active entries: %w", err)
	}
	version, err := store.CurrentVersion(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("read current version: %w", err)
	}

	byGrade := make(map[int][]core.PlanEntry)
	ex := &Export{
		StudentID:   studentID,
		Version:     version,
		GeneratedAt: time.Now().UTC(),
	}
	for _, e := range entries {
		if e.Grades.IsEmpty() {
			ex.Ungraded = append(ex.Ungraded, e)
			continue
		}
		for _, g := range e.Grades.Grades() {
			byGrade[g] = append(byGrade[g], e)
		}
	}

	grades := make([]int, 0, len(byGrade))
	for g := range byGrade {
		grades = append(grades, g)
	}
	sort.Ints(grades)
	for _, g := range grades {
		ex.Groups = append(ex.Groups, GradeGroup{Grade: g, Entries: byGrade[g]})
	}
	return ex, nil
}

// RenderDocument formats the export as a plain-text document suitable for
// download or printing.
func RenderDocument(ex *Export) string {
	var b strings.Builder

	fmt.Fprintf(&b, "College Plan for %s\n", ex.StudentID)
	fmt.Fprintf(&b, "Version %d, generated %s\n", ex.Version, ex.GeneratedAt.Format("January 2, 2006"))
	b.WriteString(strings.Repeat("=", 60) + "\n")

	if len(ex.Groups) == 0 && len(ex.Ungraded) == 0 {
		b.WriteString("\nNo items in plan yet.\n")
		return b.String()
	}

	for _, group := range ex.Groups {
		fmt.Fprintf(&b, "\n%s Grade\n", ordinal(group.Grade))
		b.WriteString(strings.Repeat("-", 40) + "\n")
		for _, e := range group.Entries {
			writeEntry(&b, e)
		}
	}

	if len(ex.Ungraded) > 0 {
		b.WriteString("\nAnytime\n")
		b.WriteString(strings.Repeat("-", 40) + "\n")
		for _, e := range ex.Ungraded {
			writeEntry(&b, e)
		}
	}

	return b.String()
}

func writeEntry(b *strings.Builder, e core.PlanEntry) {
	fmt.Fprintf(b, "  [%s] %s\n", e.Category, e.Text)
	if e.Deadline != nil {
		fmt.Fprintf(b, "        Due: %s\n", e.Deadline.Format("January 2, 2006"))
	}
	if e.URL != "" {
		fmt.Fprintf(b, "        %s\n", e.URL)
	}
}

func ordinal(n int) string {
	if n%100 >= 11 && n%100 <= 13 {
		return fmt.Sprintf("%dth", n)
	}
	switch n % 10 {
	case 1:
		return fmt.Sprintf("%dst", n)
	case 2:
		return fmt.Sprintf("%dnd", n)
	case 3:
		return fmt.Sprintf("%drd", n)
	default:
		return fmt.Sprintf("%dth", n)
	}
}
