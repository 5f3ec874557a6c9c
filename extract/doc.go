// Package extract parses completed agent responses into display prose plus
// structured actionable items.
//
// Providers have produced three markup dialects in practice: attribute tags
// (<actionable id="...">...</actionable>), bracket tags
// ([actionable id=...]...[/actionable]), and a trailing [system] block whose
// records carry ordinals only and bind to inline tags by document position.
// Extraction detects the dialect per response instead of assuming one
// canonical form.
//
// Extraction never fails a whole response: malformed records are dropped or
// downgraded individually and reported as inconsistencies.
package extract
