// Package session provides storage for chat sessions and their durable
// message history. The in-memory store implements both core.SessionStore and
// core.MessageLog and is the default for tests and single-process use.
package session
