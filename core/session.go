package core

import (
	"context"
	"sync"
	"time"
)

// Conversation roles used on turns.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Turn is one entry in a session's conversation log.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTurn builds a turn stamped with the current UTC time.
func NewTurn(role, content string) Turn {
	return Turn{Role: role, Content: content, Timestamp: time.Now().UTC()}
}

// Session is the conversation context owned by a single chat session. It
// carries the ordered turn history, a read-only profile snapshot of the
// owning student, and scratch state for cross-turn routing hints.
//
// Contract:
//   - Turns are append-only and strictly in arrival order
//   - Profile is a snapshot; it is never written after session creation
//   - Clone performs deep copies so callers can diverge safely
type Session struct {
	ID           string          `json:"id"`
	StudentID    string          `json:"student_id"`
	PrimaryAgent string          `json:"primary_agent"`
	Title        string          `json:"title,omitempty"`
	Profile      *StudentProfile `json:"profile,omitempty"`
	Turns        []Turn          `json:"turns"`
	Scratch      map[string]any  `json:"scratch,omitempty"`
	Created      time.Time       `json:"created"`
	Updated      time.Time       `json:"updated"`
	Closed       bool            `json:"closed"`

	mu sync.RWMutex
}

// NewSession creates an open session for the given student with the fixed
// primary agent chosen at creation time.
func NewSession(id, studentID, primaryAgent string, profile *StudentProfile) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:           id,
		StudentID:    studentID,
		PrimaryAgent: primaryAgent,
		Profile:      profile.Clone(),
		Turns:        []Turn{},
		Scratch:      map[string]any{},
		Created:      now,
		Updated:      now,
	}
}

// AppendTurn appends a turn to the history. The session title is derived
// from the first user turn.
func (s *Session) AppendTurn(t Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Title == "" && t.Role == RoleUser {
		s.Title = deriveTitle(t.Content)
	}
	s.Turns = append(s.Turns, t)
	s.Updated = time.Now().UTC()
}

// History returns a defensive copy of the full turn sequence.
func (s *Session) History() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := make([]Turn, len(s.Turns))
	copy(turns, s.Turns)
	return turns
}

// SetScratch stores a cross-turn routing hint.
func (s *Session) SetScratch(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Scratch[key] = value
	s.Updated = time.Now().UTC()
}

// GetScratch returns the value and existence flag for a scratch key.
func (s *Session) GetScratch(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.Scratch[key]
	return v, ok
}

// IsOpen reports whether the session still accepts turns.
func (s *Session) IsOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.Closed
}

// Close marks the session ended. Turns remain readable afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed = true
	s.Updated = time.Now().UTC()
}

// Clone returns a deep copy of the session (maps and slices) except the mutex.
func (s *Session) Clone() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clone := &Session{
		ID:           s.ID,
		StudentID:    s.StudentID,
		PrimaryAgent: s.PrimaryAgent,
		Title:        s.Title,
		Profile:      s.Profile.Clone(),
		Turns:        make([]Turn, len(s.Turns)),
		Scratch:      make(map[string]any, len(s.Scratch)),
		Created:      s.Created,
		Updated:      s.Updated,
		Closed:       s.Closed,
	}
	copy(clone.Turns, s.Turns)
	for k, v := range s.Scratch {
		clone.Scratch[k] = v
	}
	return clone
}

func deriveTitle(content string) string {
	const maxTitle = 50
	if len(content) <= maxTitle {
		return content
	}
	return content[:maxTitle] + "..."
}

// SessionStore persists sessions and their turn history.
type SessionStore interface {
	Create(ctx context.Context, studentID, primaryAgent string, profile *StudentProfile) (*Session, error)
	Get(ctx context.Context, sessionID string) (*Session, error)
	AppendTurn(ctx context.Context, sessionID string, t Turn) error
	Close(ctx context.Context, sessionID string) error
}

// MessageLog is the collaborator write contract for durable message history.
// Append must be idempotent under retry keyed by (sessionID, responseID).
type MessageLog interface {
	Append(ctx context.Context, sessionID, responseID string, turns []Turn) error
}
