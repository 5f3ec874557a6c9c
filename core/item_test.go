package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in   string
		want Category
		ok   bool
	}{
		{"College Applications", CategoryApplications, true},
		{"college applications", CategoryApplications, true},
		{"  Summer Programs  ", CategorySummerPrograms, true},
		{"STANDARDIZED TESTS", CategoryTests, true},
		{"Underwater Basketweaving", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseCategory(tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestGradeSet(t *testing.T) {
	g := NewGradeSet(9, 11)

	assert.True(t, g.Contains(9))
	assert.False(t, g.Contains(10))
	assert.True(t, g.Contains(11))
	assert.False(t, g.IsEmpty())
	assert.Equal(t, []int{9, 11}, g.Grades())
	assert.Equal(t, "9th, 11th", g.String())
}

func TestGradeSetIgnoresOutOfRange(t *testing.T) {
	g := NewGradeSet(5, 8, 13, 10)
	assert.Equal(t, []int{10}, g.Grades())
}

func TestGradeSetEarliest(t *testing.T) {
	g := NewGradeSet(10, 12)

	earliest, ok := g.Earliest(9)
	require.True(t, ok)
	assert.Equal(t, 10, earliest)

	earliest, ok = g.Earliest(11)
	require.True(t, ok)
	assert.Equal(t, 12, earliest)

	_, ok = NewGradeSet(9).Earliest(10)
	assert.False(t, ok, "all applicable grades have passed")
}

func TestGradeSetBitsRoundTrip(t *testing.T) {
	g := NewGradeSet(9, 12)
	assert.Equal(t, g, GradeSetFromBits(g.Bits()))

	// Stray high bits from storage are masked off.
	assert.Equal(t, AllGrades(), GradeSetFromBits(0xFF))
}

func TestAllGrades(t *testing.T) {
	assert.Equal(t, []int{9, 10, 11, 12}, AllGrades().Grades())
}
