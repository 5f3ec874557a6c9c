package extract

import (
	"fmt"

	"github.com/collegecompass/compass/core"
	"github.com/collegecompass/compass/logging"
)

// Result is the outcome of extracting one raw response.
type Result struct {
	// Prose is the display text with all markup stripped and whitespace
	// normalized.
	Prose string
	// Items are the actionable items joined from both passes, in document
	// order.
	Items []core.ActionableItem
	// Dialect is the inline grammar that was detected.
	Dialect Dialect
	// Inconsistencies lists the malformed-output problems that were
	// recovered from (dropped records, duplicate ids, bad fields).
	Inconsistencies []string
}

// Options configures an Extractor.
type Options struct {
	Logger logging.Logger
}

// Extractor turns raw agent responses into prose plus actionable items. It
// holds no per-response state and is safe for concurrent use.
type Extractor struct {
	logger logging.Logger
}

// New constructs an Extractor.
func New(optFns ...func(o *Options)) *Extractor {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Extractor{logger: opts.Logger}
}

// Extract runs the two-pass, order-preserving extraction.
//
// Pass one collects inline-tagged spans and strips the tag delimiters from
// the prose. Pass two parses the trailing structured block. Records bind to
// spans positionally (the Nth record describes the Nth inline tag). An
// inline span with no record is kept with category General Resources and no
// grade levels; a record with no span is dropped with a logged
// inconsistency. Re-running Extract on the returned prose yields the same
// prose and no items.
func (e *Extractor) Extract(raw string) Result {
	if raw == "" {
		return Result{}
	}

	dialect := detectDialect(raw)

	prose, spans := scanInline(raw, dialect)
	prose, records, warnings := scanBlock(prose)

	res := Result{
		Prose:           normalizeProse(prose),
		Dialect:         dialect,
		Inconsistencies: warnings,
	}

	// Drop duplicate inline ids: the contract says an id appears exactly
	// once inline, so a repeat is malformed output, not a second item.
	seen := make(map[string]bool, len(spans))
	kept := spans[:0]
	for _, span := range spans {
		if seen[span.ID] {
			res.Inconsistencies = append(res.Inconsistencies,
				fmt.Sprintf("inline id %q repeated; later occurrence dropped", span.ID))
			continue
		}
		seen[span.ID] = true
		kept = append(kept, span)
	}
	spans = kept

	byOrdinal := make(map[int]blockRecord, len(records))
	for _, rec := range records {
		byOrdinal[rec.Ordinal] = rec
	}

	for i, span := range spans {
		item := core.ActionableItem{
			ID:       span.ID,
			Category: core.CategoryGeneral,
			Text:     span.Text,
		}
		if rec, ok := byOrdinal[i+1]; ok {
			if rec.HasCat {
				item.Category = rec.Category
			}
			item.Grades = rec.Grades
			item.URL = rec.URL
			item.Deadline = rec.Deadline
			delete(byOrdinal, i+1)
		} else {
			res.Inconsistencies = append(res.Inconsistencies,
				fmt.Sprintf("inline id %q has no structured record; defaulting to %s", span.ID, core.CategoryGeneral))
		}
		res.Items = append(res.Items, item)
	}

	// Records with no inline counterpart are provider inconsistencies and
	// are dropped, never guessed into items.
	for _, rec := range records {
		if _, orphaned := byOrdinal[rec.Ordinal]; orphaned {
			res.Inconsistencies = append(res.Inconsistencies,
				fmt.Sprintf("structured record [%d] has no inline tag; dropped", rec.Ordinal))
		}
	}

	for _, inc := range res.Inconsistencies {
		e.logger.Warn("extraction inconsistency", "detail", inc, "dialect", dialect.String())
	}

	return res
}
