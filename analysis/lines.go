package analysis

import (
	"regexp"
	"strings"
)

type lineKind int

const (
	lineBlank lineKind = iota
	lineHeading
	lineBullet
	lineOrdinal
	lineProse
)

var (
	reBullet  = regexp.MustCompile(`^(\s*)[-*•]\s+(.*)$`)
	reOrdinal = regexp.MustCompile(`^(\s*)\d{1,3}[.)]\s+(.*)$`)
	reHeading = regexp.MustCompile(`^\s*#{1,6}\s`)
)

// classify returns the kind of line together with its indentation and
// item text for list lines.
func classify(line string) (kind lineKind, indent, text string) {
	if strings.TrimSpace(line) == "" {
		return lineBlank, "", ""
	}
	if reHeading.MatchString(line) {
		return lineHeading, "", line
	}
	if m := reOrdinal.FindStringSubmatch(line); m != nil {
		return lineOrdinal, m[1], m[2]
	}
	if m := reBullet.FindStringSubmatch(line); m != nil {
		return lineBullet, m[1], m[2]
	}
	return lineProse, "", line
}

// normalizeLines rewrites enumerations inside a section body.
//
// Ordinal items and "*" or "•" bullets become "- " bullets at the same
// indentation. Blank lines between two list items are dropped so the list
// stays tight; a blank line that ends a list is kept. Headings and prose pass
// through unchanged.
func normalizeLines(body string) string {
	var out []string
	inList := false
	pendingBlank := false

	for _, line := range strings.Split(body, "\n") {
		kind, indent, text := classify(line)
		switch kind {
		case lineBlank:
			if inList {
				pendingBlank = true
				continue
			}
			out = append(out, "")
		case lineBullet, lineOrdinal:
			pendingBlank = false
			inList = true
			out = append(out, indent+"- "+strings.TrimSpace(text))
		case lineHeading:
			if pendingBlank {
				out = append(out, "")
			}
			pendingBlank = false
			inList = false
			out = append(out, strings.TrimRight(text, " \t"))
		default:
			if pendingBlank {
				out = append(out, "")
				inList = false
			}
			pendingBlank = false
			out = append(out, strings.TrimRight(line, " \t"))
		}
	}
	return strings.Join(out, "\n")
}
