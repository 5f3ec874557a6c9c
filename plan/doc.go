// Package plan merges accepted actionable items into a student's versioned
// plan. It owns deduplication against active entries, grade-level
// assignment, the atomic insert-plus-version-bump unit, reversion, and
// grade-grouped export.
//
// All writes for one student serialize through a per-student lock so
// version numbers are strictly increasing with no gaps even when two
// sessions for the same student are active.
package plan
