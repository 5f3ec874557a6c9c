// Package orchestrator drives one conversation turn end to end: it
// serializes turns per session, invokes the session's primary agent through
// the provider adapter, extracts actionable items from the response, and
// consults a specialist agent when the primary answer strays into another
// role's specialty.
//
// The orchestrator never writes persistent storage itself. It hands the
// turns it appended back to the caller, who owns the message-log write.
package orchestrator
