package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/collegecompass/compass/core"
	"github.com/collegecompass/compass/internal/util"
)

// ErrNotFound is returned when a session id resolves to nothing.
var ErrNotFound = errors.New("session not found")

// ErrClosed is returned when a write hits a closed session.
var ErrClosed = errors.New("session is closed")

type logKey struct {
	sessionID  string
	responseID string
}

// InMemoryStore keeps sessions and the durable message log in process
// memory. It implements core.SessionStore and core.MessageLog. Reads return
// live session pointers; Session methods carry their own locking.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*core.Session
	logged   map[logKey][]core.Turn
}

var (
	_ core.SessionStore = (*InMemoryStore)(nil)
	_ core.MessageLog   = (*InMemoryStore)(nil)
)

// NewInMemoryStore constructs an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[string]*core.Session),
		logged:   make(map[logKey][]core.Turn),
	}
}

// Create implements core.SessionStore.
func (s *InMemoryStore) Create(_ context.Context, studentID, primaryAgent string, profile *core.StudentProfile) (*core.Session, error) {
	if studentID == "" {
		return nil, fmt.Errorf("student id is required")
	}
	if primaryAgent == "" {
		return nil, fmt.Errorf("primary agent is required")
	}

	sess := core.NewSession(util.NewID(), studentID, primaryAgent, profile)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return sess, nil
}

// Get implements core.SessionStore.
func (s *InMemoryStore) Get(_ context.Context, sessionID string) (*core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	return sess, nil
}

// AppendTurn implements core.SessionStore.
func (s *InMemoryStore) AppendTurn(ctx context.Context, sessionID string, t core.Turn) error {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if !sess.IsOpen() {
		return fmt.Errorf("%w: %s", ErrClosed, sessionID)
	}
	sess.AppendTurn(t)
	return nil
}

// Close implements core.SessionStore. Closing twice is a no-op.
func (s *InMemoryStore) Close(ctx context.Context, sessionID string) error {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	sess.Close()
	return nil
}

// ListByStudent returns the student's sessions ordered by creation time,
// newest first.
func (s *InMemoryStore) ListByStudent(_ context.Context, studentID string) ([]*core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*core.Session
	for _, sess := range s.sessions {
		if sess.StudentID == studentID {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Created.After(out[j].Created) })
	return out, nil
}

// Append implements core.MessageLog. A repeated (sessionID, responseID) pair
// is acknowledged without writing a second copy.
func (s *InMemoryStore) Append(_ context.Context, sessionID, responseID string, turns []core.Turn) error {
	if sessionID == "" || responseID == "" {
		return fmt.Errorf("session id and response id are required")
	}

	key := logKey{sessionID: sessionID, responseID: responseID}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.logged[key]; ok {
		return nil
	}
	copied := make([]core.Turn, len(turns))
	copy(copied, turns)
	s.logged[key] = copied
	return nil
}

// LoggedTurns returns the durable history recorded for a session in append
// order. Intended for inspection and tests.
func (s *InMemoryStore) LoggedTurns(_ context.Context, sessionID string) []core.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type batch struct {
		responseID string
		turns      []core.Turn
	}
	var batches []batch
	for key, turns := range s.logged {
		if key.sessionID == sessionID {
			batches = append(batches, batch{responseID: key.responseID, turns: turns})
		}
	}
	sort.Slice(batches, func(i, j int) bool {
		ti, tj := batches[i].turns, batches[j].turns
		if len(ti) > 0 && len(tj) > 0 && !ti[0].Timestamp.Equal(tj[0].Timestamp) {
			return ti[0].Timestamp.Before(tj[0].Timestamp)
		}
		return batches[i].responseID < batches[j].responseID
	})

	var out []core.Turn
	for _, b := range batches {
		out = append(out, b.turns...)
	}
	return out
}
