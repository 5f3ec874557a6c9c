package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/collegecompass/compass/core"
	"github.com/collegecompass/compass/internal/testutil"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "plan.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStoreContract(t *testing.T) {
	testutil.RunPlanStoreContract(t, func(t *testing.T) core.PlanStore {
		return newTestStore(t)
	})
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.db")

	store, err := New(path)
	require.NoError(t, err)

	_, err = store.Apply(t.Context(), core.PlanMutation{
		StudentID:   "student-1",
		BaseVersion: 0,
		Insert:      []core.PlanEntry{testutil.Entry("e1", core.CategoryCourses, "Take AP Calculus")},
		Description: "added 1 item(s) from chat",
	})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := New(path)
	require.NoError(t, err)
	defer reopened.Close()

	entries, err := reopened.ActiveEntries(t.Context(), "student-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "Take AP Calculus", entries[0].Text)
	require.Equal(t, core.NewGradeSet(11), entries[0].Grades)
}
