package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collegecompass/compass/core"
)

func TestExtractEmptyInput(t *testing.T) {
	res := New().Extract("")

	assert.Empty(t, res.Prose)
	assert.Empty(t, res.Items)
	assert.Equal(t, DialectNone, res.Dialect)
}

func TestExtractPlainProse(t *testing.T) {
	res := New().Extract("Just keep your grades up this semester.")

	assert.Equal(t, "Just keep your grades up this semester.", res.Prose)
	assert.Empty(t, res.Items)
	assert.Equal(t, DialectNone, res.Dialect)
}

func TestExtractAttributeDialectScenario(t *testing.T) {
	raw := "Apply to X. <actionable id=\"a1\">Apply to X</actionable> [system]\nactionable:\n[1]\ncategory: College Applications\nyear: \"12th\"\n[/system]"

	res := New().Extract(raw)

	assert.Equal(t, "Apply to X. Apply to X", res.Prose)
	assert.Equal(t, DialectAttributeTag, res.Dialect)
	require.Len(t, res.Items, 1)

	item := res.Items[0]
	assert.Equal(t, "a1", item.ID)
	assert.Equal(t, core.CategoryApplications, item.Category)
	assert.Equal(t, "Apply to X", item.Text)
	assert.Equal(t, core.NewGradeSet(12), item.Grades)
	assert.Empty(t, res.Inconsistencies)
}

func TestExtractBracketDialect(t *testing.T) {
	raw := "Consider this: [actionable id=b1]Take AP Calculus[/actionable]\n\n[system]\nactionable:\n[1]\ncategory: Courses\ngrades: 11th, 12th\n[/system]"

	res := New().Extract(raw)

	assert.Equal(t, DialectBracketTag, res.Dialect)
	assert.Equal(t, "Consider this: Take AP Calculus", res.Prose)
	require.Len(t, res.Items, 1)
	assert.Equal(t, core.CategoryCourses, res.Items[0].Category)
	assert.Equal(t, core.NewGradeSet(11, 12), res.Items[0].Grades)
}

func TestExtractJoinsAllFields(t *testing.T) {
	raw := `Two ideas.
<actionable id="a1">Visit the robotics club fair</actionable>
<actionable id="a2">Register for the June SAT</actionable>
[system]
actionable:
[1]
category: Extracurricular Activities
year: "9th"
url: https://example.edu/clubs
[2]
category: Standardized Tests
year: "11th"
deadline: 2027-05-01
[/system]`

	res := New().Extract(raw)

	require.Len(t, res.Items, 2)
	assert.Empty(t, res.Inconsistencies)

	first := res.Items[0]
	assert.Equal(t, core.CategoryExtracurricular, first.Category)
	assert.Equal(t, "Visit the robotics club fair", first.Text)
	assert.Equal(t, "https://example.edu/clubs", first.URL)
	assert.Nil(t, first.Deadline)

	second := res.Items[1]
	assert.Equal(t, core.CategoryTests, second.Category)
	assert.Equal(t, core.NewGradeSet(11), second.Grades)
	require.NotNil(t, second.Deadline)
	assert.Equal(t, time.Date(2027, 5, 1, 0, 0, 0, 0, time.UTC), *second.Deadline)
}

func TestExtractInlineWithoutRecordKept(t *testing.T) {
	raw := `<actionable id="a1">Email your counselor this week</actionable>`

	res := New().Extract(raw)

	require.Len(t, res.Items, 1)
	assert.Equal(t, core.CategoryGeneral, res.Items[0].Category)
	assert.True(t, res.Items[0].Grades.IsEmpty())
	assert.Len(t, res.Inconsistencies, 1)
}

func TestExtractOrphanRecordDropped(t *testing.T) {
	raw := "Good luck!\n[system]\nactionable:\n[1]\ncategory: Courses\nyear: \"10th\"\n[/system]"

	res := New().Extract(raw)

	assert.Equal(t, "Good luck!", res.Prose)
	assert.Empty(t, res.Items)
	assert.Len(t, res.Inconsistencies, 1)
}

func TestExtractDuplicateInlineIDDropped(t *testing.T) {
	raw := `<actionable id="a1">First</actionable> and <actionable id="a1">Second</actionable>
[system]
actionable:
[1]
category: Courses
[/system]`

	res := New().Extract(raw)

	require.Len(t, res.Items, 1)
	assert.Equal(t, "First", res.Items[0].Text)
	assert.NotEmpty(t, res.Inconsistencies)
}

func TestExtractDuplicateRecordLastWins(t *testing.T) {
	raw := `<actionable id="a1">Join the debate team</actionable>
[system]
actionable:
[1]
category: Courses
[1]
category: Extracurricular Activities
[/system]`

	res := New().Extract(raw)

	require.Len(t, res.Items, 1)
	assert.Equal(t, core.CategoryExtracurricular, res.Items[0].Category)
	assert.NotEmpty(t, res.Inconsistencies)
}

func TestExtractUnparseableGradesDefaultToAll(t *testing.T) {
	raw := `<actionable id="a1">Look into summer research</actionable>
[system]
actionable:
[1]
category: Summer Programs
year: "sophomore-ish"
[/system]`

	res := New().Extract(raw)

	require.Len(t, res.Items, 1)
	assert.Equal(t, core.AllGrades(), res.Items[0].Grades)
}

func TestExtractUnknownCategoryDowngraded(t *testing.T) {
	raw := `<actionable id="a1">Do the thing</actionable>
[system]
actionable:
[1]
category: Underwater Basketweaving
year: "9th"
[/system]`

	res := New().Extract(raw)

	require.Len(t, res.Items, 1)
	assert.Equal(t, core.CategoryGeneral, res.Items[0].Category)
	assert.NotEmpty(t, res.Inconsistencies)
}

func TestExtractIdempotentOnProse(t *testing.T) {
	raws := []string{
		"Apply to X. <actionable id=\"a1\">Apply to X</actionable> [system]\nactionable:\n[1]\ncategory: College Applications\nyear: \"12th\"\n[/system]",
		"Plain text, nothing else.",
		"[actionable id=b1]Take AP Calculus[/actionable]\n\n\n[system]\nactionable:\n[1]\ncategory: Courses\n[/system]",
	}

	e := New()
	for _, raw := range raws {
		first := e.Extract(raw)
		second := e.Extract(first.Prose)

		assert.Equal(t, first.Prose, second.Prose)
		assert.Empty(t, second.Items)
	}
}

func TestDetectDialectPrecedence(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Dialect
	}{
		{"attribute", `<actionable id="a">x</actionable>`, DialectAttributeTag},
		{"bracket", `[actionable id=a]x[/actionable]`, DialectBracketTag},
		{"both prefers attribute", `<actionable id="a">x</actionable> [actionable id=b]y[/actionable]`, DialectAttributeTag},
		{"none", "no markup here", DialectNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detectDialect(tt.raw))
		})
	}
}

func TestNormalizeProseCollapsesBlankRuns(t *testing.T) {
	got := normalizeProse("a\n\n\n\nb   \n\nc\n")
	assert.Equal(t, "a\n\nb\n\nc", got)
	assert.Equal(t, got, normalizeProse(got))
}
