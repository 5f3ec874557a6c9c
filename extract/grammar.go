package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/collegecompass/compass/core"
)

// Dialect identifies which inline markup grammar a response used.
type Dialect int

// Known inline grammars, in detection order.
const (
	DialectNone Dialect = iota
	DialectAttributeTag
	DialectBracketTag
)

func (d Dialect) String() string {
	switch d {
	case DialectAttributeTag:
		return "attribute-tag"
	case DialectBracketTag:
		return "bracket-tag"
	default:
		return "none"
	}
}

var (
	attributeTagRe = regexp.MustCompile(`(?s)<actionable\s+id="([^"]+)"\s*>(.*?)</actionable>`)
	bracketTagRe   = regexp.MustCompile(`(?s)\[actionable\s+id=([^\]]+)\](.*?)\[/actionable\]`)
	systemBlockRe  = regexp.MustCompile(`(?s)\[system\]\s*(.*?)\[/system\]`)
	recordHeaderRe = regexp.MustCompile(`^\[(\d+)\]$`)
	blankRunRe     = regexp.MustCompile(`\n{3,}`)
)

// inlineSpan is one inline-tagged recommendation found in pass one.
type inlineSpan struct {
	ID   string
	Text string
}

// blockRecord is one field group from the trailing structured block. Ordinal
// is 1-based and binds positionally to the inline span with the same index.
type blockRecord struct {
	Ordinal  int
	Category core.Category
	HasCat   bool
	Grades   core.GradeSet
	URL      string
	Deadline *time.Time
}

// detectDialect picks the inline grammar used by the response. Attribute
// tags win when both appear, matching the original renderer's precedence.
func detectDialect(raw string) Dialect {
	if attributeTagRe.MatchString(raw) {
		return DialectAttributeTag
	}
	if bracketTagRe.MatchString(raw) {
		return DialectBracketTag
	}
	return DialectNone
}

func (d Dialect) pattern() *regexp.Regexp {
	switch d {
	case DialectAttributeTag:
		return attributeTagRe
	case DialectBracketTag:
		return bracketTagRe
	default:
		return nil
	}
}

// scanInline collects inline spans in document order and returns the prose
// with each tag replaced by its inner text.
func scanInline(raw string, d Dialect) (string, []inlineSpan) {
	re := d.pattern()
	if re == nil {
		return raw, nil
	}

	var spans []inlineSpan
	prose := re.ReplaceAllStringFunc(raw, func(m string) string {
		groups := re.FindStringSubmatch(m)
		id := strings.TrimSpace(groups[1])
		text := strings.TrimSpace(groups[2])
		spans = append(spans, inlineSpan{ID: id, Text: text})
		return groups[2]
	})
	return prose, spans
}

// scanBlock finds the trailing structured block, parses its records, and
// returns the prose with the block removed. Warnings accumulate per-record
// problems that never fail the whole scan.
func scanBlock(raw string) (prose string, records []blockRecord, warnings []string) {
	matches := systemBlockRe.FindAllStringSubmatchIndex(raw, -1)
	if len(matches) == 0 {
		return raw, nil, nil
	}

	// Only the last block is the structured record set; earlier ones are
	// treated as provider noise and stripped like the real one.
	last := matches[len(matches)-1]
	body := raw[last[2]:last[3]]

	prose = systemBlockRe.ReplaceAllString(raw, "")
	records, warnings = parseRecords(body)
	return prose, records, warnings
}

// parseRecords parses the body of a [system] block: an optional
// "actionable:" header followed by [N] record headers with field lines.
func parseRecords(body string) ([]blockRecord, []string) {
	var (
		records  []blockRecord
		byOrd    = map[int]int{} // ordinal -> index in records
		warnings []string
		current  *blockRecord
	)

	flush := func() {
		if current == nil {
			return
		}
		if prev, dup := byOrd[current.Ordinal]; dup {
			warnings = append(warnings, "duplicate structured record ["+strconv.Itoa(current.Ordinal)+"]; last occurrence wins")
			records[prev] = *current
		} else {
			byOrd[current.Ordinal] = len(records)
			records = append(records, *current)
		}
		current = nil
	}

	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.EqualFold(line, "actionable:") {
			continue
		}

		if m := recordHeaderRe.FindStringSubmatch(line); m != nil {
			flush()
			ord, _ := strconv.Atoi(m[1])
			current = &blockRecord{Ordinal: ord}
			continue
		}

		if current == nil {
			continue // field line before any record header
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "category":
			cat, ok := core.ParseCategory(value)
			if !ok {
				warnings = append(warnings, "unknown category "+strconv.Quote(value)+" in record ["+strconv.Itoa(current.Ordinal)+"]")
				cat = core.CategoryGeneral
			}
			current.Category = cat
			current.HasCat = true
		case "year", "grades", "grade":
			current.Grades = parseGrades(value)
		case "url", "website", "link":
			current.URL = strings.Trim(value, `"`)
		case "deadline", "due":
			if t, err := time.Parse(time.DateOnly, strings.Trim(value, `"`)); err == nil {
				t = t.UTC()
				current.Deadline = &t
			} else {
				warnings = append(warnings, "unparseable deadline in record ["+strconv.Itoa(current.Ordinal)+"]")
			}
		}
	}
	flush()

	return records, warnings
}

// parseGrades reads comma-separated grade levels ("10th, 11th", "Grade 9",
// "9, 10"). Unparseable syntax defaults to all grades rather than failing
// the extraction.
func parseGrades(value string) core.GradeSet {
	value = strings.Trim(strings.TrimSpace(value), `"`)
	if value == "" || strings.EqualFold(value, "all") {
		return core.AllGrades()
	}

	var grades core.GradeSet
	for _, tok := range strings.Split(value, ",") {
		tok = strings.ToLower(strings.TrimSpace(tok))
		tok = strings.TrimPrefix(tok, "grade")
		tok = strings.TrimSuffix(tok, "grade")
		tok = strings.TrimSuffix(tok, "th")
		tok = strings.TrimSpace(tok)

		n, err := strconv.Atoi(tok)
		if err != nil || n < core.MinGrade || n > core.MaxGrade {
			return core.AllGrades()
		}
		grades = grades.With(n)
	}
	return grades
}

// normalizeProse collapses runs of blank lines left behind by stripped
// markup and trims the ends. Idempotent.
func normalizeProse(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	s = strings.Join(lines, "\n")

	s = blankRunRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
