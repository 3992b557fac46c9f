package geo

import "strings"

type section int

const (
	sectionNone section = iota
	sectionScope
	sectionAreas
	sectionSummary
	sectionConfidence
	sectionNotes
)

var headings = []struct {
	prefix string
	tag    section
}{
	{"### Geographic Scope", sectionScope},
	{"### Identified Areas", sectionAreas},
	{"### Analysis Summary", sectionSummary},
	{"### Confidence Level", sectionConfidence},
	{"### Additional Notes", sectionNotes},
}

// parseState lives for exactly one ParseMarkdown call.
type parseState struct {
	current        section
	headerConsumed bool
	result         AnalysisResult
}

// ParseMarkdown classifies the answer text into the five result fields.
// The returned result carries markdown verbatim in RawMarkdown.
func ParseMarkdown(markdown string) AnalysisResult {
	st := parseState{result: AnalysisResult{Areas: []AreaRecord{}}}
	for _, raw := range strings.Split(markdown, "\n") {
		st.consume(strings.TrimSpace(raw))
	}
	st.result.RawMarkdown = markdown
	return st.result
}

func (st *parseState) consume(line string) {
	if tag, ok := headingTag(line); ok {
		st.current = tag
		return
	}
	if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "|--") {
		return
	}

	r := &st.result
	switch st.current {
	case sectionScope:
		r.Scope = line
	case sectionConfidence:
		r.Confidence = line
	case sectionSummary:
		r.Summary = joinLine(r.Summary, line)
	case sectionNotes:
		r.Notes = joinLine(r.Notes, line)
	case sectionAreas:
		st.consumeTableLine(line)
	}
}

// consumeTableLine handles one line of the areas table. The header flag is
// per parse call, so a repeated "### Identified Areas" heading does not get
// a second header row skipped.
func (st *parseState) consumeTableLine(line string) {
	if !strings.HasPrefix(line, "|") {
		return
	}
	if !st.headerConsumed {
		st.headerConsumed = true
		return
	}
	if rec, ok := ParseAreaRow(line); ok {
		st.result.Areas = append(st.result.Areas, rec)
	}
}

// ParseAreaRow splits a pipe-delimited row into an AreaRecord. Rows with
// fewer than three non-empty cells are rejected; extra cells are ignored.
func ParseAreaRow(line string) (AreaRecord, bool) {
	cells := make([]string, 0, 4)
	for _, c := range strings.Split(line, "|") {
		if c = strings.TrimSpace(c); c != "" {
			cells = append(cells, c)
		}
	}
	if len(cells) < 3 {
		return AreaRecord{}, false
	}
	return AreaRecord{Name: cells[0], Region: cells[1], Context: cells[2]}, true
}

func headingTag(line string) (section, bool) {
	for _, h := range headings {
		if strings.HasPrefix(line, h.prefix) {
			return h.tag, true
		}
	}
	return sectionNone, false
}

func joinLine(acc, line string) string {
	if acc == "" {
		return line
	}
	return acc + " " + line
}
