package plan

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collegecompass/compass/core"
	"github.com/collegecompass/compass/internal/testutil"
)

var testSource = core.ItemSource{SessionID: "sess-1", ResponseID: "resp-1"}

func TestIntegrateInsertsAcceptedItems(t *testing.T) {
	in := NewIntegrator(NewMemoryStore())

	items := []core.ActionableItem{
		testutil.Item("a1", core.CategoryCourses, "Take AP Calculus", 11),
		testutil.Item("a2", core.CategoryTests, "Register for the June SAT", 11),
	}

	version, rejections, err := in.Integrate(t.Context(), "student-1", testutil.Profile(), items, testSource, "student-1")
	require.NoError(t, err)
	require.NotNil(t, version)
	assert.Equal(t, 1, version.Version)
	assert.Empty(t, rejections)

	entries, err := in.store.ActiveEntries(t.Context(), "student-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Stable server ids replace the per-response temporary ids.
	for _, e := range entries {
		assert.NotEmpty(t, e.EntryID)
		assert.NotContains(t, []string{"a1", "a2"}, e.EntryID)
		assert.Equal(t, testSource, e.Source)
	}
}

func TestIntegrateRejectsNearDuplicates(t *testing.T) {
	in := NewIntegrator(NewMemoryStore())
	ctx := t.Context()

	first := []core.ActionableItem{testutil.Item("a1", core.CategoryCourses, "Take AP Calculus next year", 11)}
	_, _, err := in.Integrate(ctx, "student-1", testutil.Profile(), first, testSource, "")
	require.NoError(t, err)

	// Same category, near-identical text.
	again := []core.ActionableItem{testutil.Item("b1", core.CategoryCourses, "Take AP Calculus next year!", 11)}
	version, rejections, err := in.Integrate(ctx, "student-1", testutil.Profile(), again, testSource, "")
	require.NoError(t, err)

	assert.Nil(t, version, "no version minted for a no-op")
	require.Len(t, rejections, 1)
	assert.ErrorIs(t, rejections[0].Reason, ErrDuplicateItem)

	entries, err := in.store.ActiveEntries(ctx, "student-1")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestIntegrateDedupsWithinBatch(t *testing.T) {
	in := NewIntegrator(NewMemoryStore())

	items := []core.ActionableItem{
		testutil.Item("a1", core.CategoryCourses, "Take AP Calculus", 11),
		testutil.Item("a2", core.CategoryCourses, "Take AP Calculus", 11),
	}

	version, rejections, err := in.Integrate(t.Context(), "student-1", testutil.Profile(), items, testSource, "")
	require.NoError(t, err)
	require.NotNil(t, version)
	assert.Len(t, rejections, 1)

	entries, err := in.store.ActiveEntries(t.Context(), "student-1")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestIntegrateSameTextDifferentCategoryAllowed(t *testing.T) {
	in := NewIntegrator(NewMemoryStore())
	ctx := t.Context()

	_, _, err := in.Integrate(ctx, "student-1", testutil.Profile(),
		[]core.ActionableItem{testutil.Item("a1", core.CategoryCourses, "Research local programs", 11)}, testSource, "")
	require.NoError(t, err)

	version, rejections, err := in.Integrate(ctx, "student-1", testutil.Profile(),
		[]core.ActionableItem{testutil.Item("b1", core.CategorySummerPrograms, "Research local programs", 11)}, testSource, "")
	require.NoError(t, err)
	require.NotNil(t, version)
	assert.Empty(t, rejections)
}

func TestIntegrateAssignsEarliestRemainingGrade(t *testing.T) {
	in := NewIntegrator(NewMemoryStore())

	items := []core.ActionableItem{testutil.Item("a1", core.CategoryTests, "Take the PSAT", 9, 10, 11, 12)}
	profile := testutil.Profile() // grade 11

	_, _, err := in.Integrate(t.Context(), "student-1", profile, items, testSource, "")
	require.NoError(t, err)

	entries, err := in.store.ActiveEntries(t.Context(), "student-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, core.NewGradeSet(11), entries[0].Grades)
}

func TestIntegrateKeepsAllGradesWhenCurrentGradeUnknown(t *testing.T) {
	in := NewIntegrator(NewMemoryStore())

	items := []core.ActionableItem{testutil.Item("a1", core.CategoryTests, "Take the PSAT", 10, 11)}

	_, _, err := in.Integrate(t.Context(), "student-1", nil, items, testSource, "")
	require.NoError(t, err)

	entries, err := in.store.ActiveEntries(t.Context(), "student-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, core.NewGradeSet(10, 11), entries[0].Grades)
}

func TestConcurrentIntegrationNeverDuplicatesVersions(t *testing.T) {
	in := NewIntegrator(NewMemoryStore())
	ctx := context.Background()

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			item := testutil.Item("a1", core.CategoryCourses, courseName(n), 11)
			_, _, err := in.Integrate(ctx, "student-1", testutil.Profile(),
				[]core.ActionableItem{item}, testSource, "")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	versions, err := in.store.Versions(ctx, "student-1")
	require.NoError(t, err)

	seen := make(map[int]bool)
	for _, v := range versions {
		assert.False(t, seen[v.Version], "version %d appeared twice", v.Version)
		seen[v.Version] = true
	}
	assert.Len(t, versions, writers)
}

func courseName(n int) string {
	names := []string{
		"Take AP Calculus",
		"Join the robotics team",
		"Start a coding portfolio",
		"Volunteer at the library",
		"Shadow a software engineer",
		"Enter the science fair",
		"Apply for a summer internship",
		"Study for the ACT",
	}
	return names[n%len(names)]
}

func TestRevertRestoresEarlierActiveSet(t *testing.T) {
	in := NewIntegrator(NewMemoryStore())
	ctx := t.Context()

	for _, text := range []string{"First milestone", "Second milestone", "Third milestone"} {
		_, _, err := in.Integrate(ctx, "student-1", testutil.Profile(),
			[]core.ActionableItem{testutil.Item("x", core.CategoryCourses, text, 11)}, testSource, "")
		require.NoError(t, err)
	}

	v1Entries, err := in.store.EntriesForVersion(ctx, "student-1", 1)
	require.NoError(t, err)
	require.Len(t, v1Entries, 1)

	reverted, err := in.Revert(ctx, "student-1", 1, "student-1")
	require.NoError(t, err)
	assert.Equal(t, 4, reverted.Version)

	active, err := in.store.ActiveEntries(ctx, "student-1")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, v1Entries[0].EntryID, active[0].EntryID)

	// Intervening versions remain queryable unchanged.
	v2, err := in.store.EntriesForVersion(ctx, "student-1", 2)
	require.NoError(t, err)
	assert.Len(t, v2, 2)
	v3, err := in.store.EntriesForVersion(ctx, "student-1", 3)
	require.NoError(t, err)
	assert.Len(t, v3, 3)
}

func TestRevertToUnknownVersionErrors(t *testing.T) {
	in := NewIntegrator(NewMemoryStore())

	_, err := in.Revert(t.Context(), "student-1", 5, "")
	assert.Error(t, err)
}

func TestRemoveDeactivatesSingleEntry(t *testing.T) {
	in := NewIntegrator(NewMemoryStore())
	ctx := t.Context()

	_, _, err := in.Integrate(ctx, "student-1", testutil.Profile(),
		[]core.ActionableItem{
			testutil.Item("a1", core.CategoryCourses, "Take AP Calculus", 11),
			testutil.Item("a2", core.CategoryTests, "Register for the SAT", 11),
		}, testSource, "")
	require.NoError(t, err)

	active, err := in.store.ActiveEntries(ctx, "student-1")
	require.NoError(t, err)
	require.Len(t, active, 2)

	version, err := in.Remove(ctx, "student-1", active[0].EntryID, "student-1")
	require.NoError(t, err)
	assert.Equal(t, 2, version.Version)

	remaining, err := in.store.ActiveEntries(ctx, "student-1")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, active[1].EntryID, remaining[0].EntryID)
}
