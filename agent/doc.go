// Package agent holds the registry of specialized reasoning roles. Each
// role is an immutable core.AgentConfig (provider, model, temperature,
// token budget, fallback) paired with an Instruction that resolves its
// system prompt against the student's profile snapshot.
//
// The registry is read-only after construction and safe to share without
// locking.
package agent
