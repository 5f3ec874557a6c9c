// Package core defines the domain contracts shared by every layer of the
// engine: conversation sessions and turns, student profile snapshots,
// actionable items extracted from agent responses, versioned plan entries,
// and the store interfaces their persistence hides behind.
//
// Keeping the contracts here (and only implementations in leaf packages)
// prevents higher layers from depending on concrete storage or provider SDKs.
package core
