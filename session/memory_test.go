package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collegecompass/compass/core"
	"github.com/collegecompass/compass/internal/testutil"
)

func TestCreateAndGet(t *testing.T) {
	store := NewInMemoryStore()

	sess, err := store.Create(t.Context(), "student-1", "counselor", testutil.Profile())
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, "counselor", sess.PrimaryAgent)
	assert.True(t, sess.IsOpen())

	got, err := store.Get(t.Context(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)

	_, err = store.Get(t.Context(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateValidatesInput(t *testing.T) {
	store := NewInMemoryStore()

	_, err := store.Create(t.Context(), "", "counselor", nil)
	assert.Error(t, err)

	_, err = store.Create(t.Context(), "student-1", "", nil)
	assert.Error(t, err)
}

func TestProfileIsSnapshotted(t *testing.T) {
	store := NewInMemoryStore()

	profile := testutil.Profile()
	sess, err := store.Create(t.Context(), "student-1", "counselor", profile)
	require.NoError(t, err)

	profile.Interests[0] = "changed after creation"
	assert.Equal(t, "robotics", sess.Profile.Interests[0])
}

func TestAppendTurnOrderAndTitle(t *testing.T) {
	store := NewInMemoryStore()
	ctx := t.Context()

	sess, err := store.Create(ctx, "student-1", "counselor", nil)
	require.NoError(t, err)

	require.NoError(t, store.AppendTurn(ctx, sess.ID, core.NewTurn(core.RoleUser, "What courses should I take?")))
	require.NoError(t, store.AppendTurn(ctx, sess.ID, core.NewTurn(core.RoleAssistant, "Consider AP Calculus.")))

	history := sess.History()
	require.Len(t, history, 2)
	assert.Equal(t, core.RoleUser, history[0].Role)
	assert.Equal(t, "What courses should I take?", sess.Title)
}

func TestTitleTruncatedFromLongFirstMessage(t *testing.T) {
	store := NewInMemoryStore()
	ctx := t.Context()

	sess, err := store.Create(ctx, "student-1", "counselor", nil)
	require.NoError(t, err)

	long := "This is a very long first message that keeps going well past the title limit"
	require.NoError(t, store.AppendTurn(ctx, sess.ID, core.NewTurn(core.RoleUser, long)))

	assert.Len(t, sess.Title, 53)
	assert.Equal(t, long[:50]+"...", sess.Title)
}

func TestAppendTurnToClosedSessionFails(t *testing.T) {
	store := NewInMemoryStore()
	ctx := t.Context()

	sess, err := store.Create(ctx, "student-1", "counselor", nil)
	require.NoError(t, err)
	require.NoError(t, store.Close(ctx, sess.ID))

	err = store.AppendTurn(ctx, sess.ID, core.NewTurn(core.RoleUser, "anyone there?"))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestListByStudent(t *testing.T) {
	store := NewInMemoryStore()
	ctx := t.Context()

	first, err := store.Create(ctx, "student-1", "counselor", nil)
	require.NoError(t, err)
	_, err = store.Create(ctx, "student-2", "counselor", nil)
	require.NoError(t, err)

	sessions, err := store.ListByStudent(ctx, "student-1")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, first.ID, sessions[0].ID)
}

func TestMessageLogAppendIsIdempotent(t *testing.T) {
	store := NewInMemoryStore()
	ctx := t.Context()

	turns := []core.Turn{
		core.NewTurn(core.RoleUser, "hello"),
		core.NewTurn(core.RoleAssistant, "hi"),
	}

	require.NoError(t, store.Append(ctx, "sess-1", "resp-1", turns))
	require.NoError(t, store.Append(ctx, "sess-1", "resp-1", turns), "retried append must succeed")

	logged := store.LoggedTurns(ctx, "sess-1")
	assert.Len(t, logged, 2, "retry must not duplicate turns")

	require.NoError(t, store.Append(ctx, "sess-1", "resp-2", turns[:1]))
	assert.Len(t, store.LoggedTurns(ctx, "sess-1"), 3)
}

func TestMessageLogRequiresKeys(t *testing.T) {
	store := NewInMemoryStore()

	assert.Error(t, store.Append(t.Context(), "", "resp-1", nil))
	assert.Error(t, store.Append(t.Context(), "sess-1", "", nil))
}
