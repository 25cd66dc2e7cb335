package analysis

import (
	"regexp"
	"strings"

	"github.com/richinex/repolens/model"
)

// MissingSectionText stands in for a non-critical section the model left out.
const MissingSectionText = "No information available."

var (
	reRoleMarker  = regexp.MustCompile(`(?im)^[ \t]*(?:system|assistant|user)[ \t]*:[ \t]*`)
	reInstTokens  = regexp.MustCompile(`(?i)</?s>|\[/?INST\]`)
	reNextHeading = regexp.MustCompile(`(?m)^#{1,2}[ \t]`)
	reBlankRun    = regexp.MustCompile(`\n{3,}`)
)

var sectionHeadings = buildSectionHeadings()

func buildSectionHeadings() map[string]*regexp.Regexp {
	m := make(map[string]*regexp.Regexp, len(model.SectionNames))
	for _, name := range model.SectionNames {
		m[name] = regexp.MustCompile(`(?m)^##[ \t]+` + regexp.QuoteMeta(name) + `[ \t]*$`)
	}
	return m
}

// Format validates a raw model response and rebuilds it in canonical form.
//
// The zero AnalysisResult is returned when any critical section is missing;
// callers treat it as a request to regenerate. Otherwise FullText contains all
// sections in fixed order, with MissingSectionText for absent non-critical
// ones, and Sections mirrors it.
func Format(raw string) model.AnalysisResult {
	result, _ := format(raw)
	return result
}

// format also returns the names of missing critical sections.
func format(raw string) (model.AnalysisResult, []string) {
	text := reRoleMarker.ReplaceAllString(raw, "")
	text = reInstTokens.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "\r\n", "\n")

	found := make(map[string]string, len(model.SectionNames))
	var missing []string
	for _, name := range model.SectionNames {
		body, ok := sliceSection(text, name)
		if ok {
			body = strings.TrimSpace(normalizeLines(body))
		}
		if body == "" {
			if model.IsCritical(name) {
				missing = append(missing, name)
			}
			continue
		}
		found[name] = body
	}
	if len(missing) > 0 {
		return model.AnalysisResult{}, missing
	}

	sections := make([]model.Section, 0, len(model.SectionNames))
	parts := make([]string, 0, len(model.SectionNames))
	for _, name := range model.SectionNames {
		body, ok := found[name]
		if !ok {
			body = MissingSectionText
		}
		sections = append(sections, model.Section{Name: name, Content: body})
		parts = append(parts, "## "+name+"\n\n"+body)
	}

	full := reBlankRun.ReplaceAllString(strings.Join(parts, "\n\n"), "\n\n")
	return model.AnalysisResult{FullText: strings.TrimSpace(full), Sections: sections}, nil
}

// sliceSection returns the text between the "## name" heading and the next
// level one or two heading.
func sliceSection(text, name string) (string, bool) {
	loc := sectionHeadings[name].FindStringIndex(text)
	if loc == nil {
		return "", false
	}
	rest := text[loc[1]:]
	if next := reNextHeading.FindStringIndex(rest); next != nil {
		rest = rest[:next[0]]
	}
	return rest, true
}
