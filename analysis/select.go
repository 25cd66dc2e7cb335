// Package analysis turns a set of source files into a validated technical analysis.
//
// The pipeline is strictly sequential: select and sanitize files, synthesize
// one prompt, invoke the completion service with retries, then validate and
// format the response. A response that fails validation consumes a retry
// exactly like a failed call.
package analysis

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/richinex/repolens/config"
	"github.com/richinex/repolens/model"
)

// TruncationMarker is appended to file content cut at the size limit.
const TruncationMarker = "\n... (truncated)"

var eligibleExtensions = map[string]bool{
	".py":    true,
	".ipynb": true,
}

var (
	// name = "value" / name: 'value' for credential-like names.
	reSecretAssign = regexp.MustCompile(`(?i)\b(\w*(?:api_?key|access_?key|password|passwd|secret)\w*)(["']?\s*[:=]\s*)["'][^"'\n]*["']`)

	// Bare references to the environment mapping.
	reEnvRef = regexp.MustCompile(`\bos\.environ\b(\.(?:copy|items|keys|values)\(\))?`)
)

// IsEligible reports whether a file name marks Python source or a notebook.
func IsEligible(name string) bool {
	return eligibleExtensions[strings.ToLower(filepath.Ext(name))]
}

// SelectFiles keeps eligible files in their original order, at most
// cfg.MaxFiles of them, with content sanitized and truncated.
// The input slice is not modified.
func SelectFiles(files []model.SourceFile, cfg config.AnalysisConfig) []model.SourceFile {
	selected := make([]model.SourceFile, 0, cfg.MaxFiles)
	for _, f := range files {
		if len(selected) >= cfg.MaxFiles {
			break
		}
		if !IsEligible(f.Name) {
			continue
		}
		f.Content = Truncate(Sanitize(f.Content), cfg.MaxFileContentChars)
		selected = append(selected, f)
	}
	return selected
}

// Truncate cuts content to limit characters and appends TruncationMarker when cut.
func Truncate(content string, limit int) string {
	if limit <= 0 {
		return content
	}
	runes := []rune(content)
	if len(runes) <= limit {
		return content
	}
	return string(runes[:limit]) + TruncationMarker
}

// Sanitize redacts credential assignments and neutralizes direct dumps of
// the process environment. Sanitize(Sanitize(s)) == Sanitize(s).
func Sanitize(content string) string {
	content = reSecretAssign.ReplaceAllString(content, `${1}${2}"***"`)
	return neutralizeEnvDumps(content)
}

// neutralizeEnvDumps replaces os.environ where the whole mapping is used
// (printed, copied, iterated). Single-key lookups such as os.environ["X"]
// and os.environ.get("X") are kept.
func neutralizeEnvDumps(content string) string {
	matches := reEnvRef.FindAllStringSubmatchIndex(content, -1)
	if len(matches) == 0 {
		return content
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		wholeMapping := m[2] != -1
		if !wholeMapping && isKeyLookup(content[end:]) {
			continue
		}
		b.WriteString(content[last:start])
		b.WriteString("{}")
		last = end
	}
	b.WriteString(content[last:])
	return b.String()
}

func isKeyLookup(rest string) bool {
	return strings.HasPrefix(rest, "[") ||
		strings.HasPrefix(rest, ".get(") ||
		strings.HasPrefix(rest, ".setdefault(") ||
		strings.HasPrefix(rest, ".pop(")
}
