// Package replytext isolates the newly authored portion of an e-mail body
// from the quoted history and signature trailer below it.
package replytext

import (
	"regexp"
	"strings"
)

// contentPattern matches a line that carries actual content: a run of
// alphanumerics, whitespace and light punctuation starting at the first
// column. Separator noise like "--" or "____" does not match.
var contentPattern = regexp.MustCompile(`^[0-9A-Za-z_\s\[\](){}.,/]+`)

// Extract returns the newly authored text at the top of body, cutting off
// the quoted chain and signature trailer. The trailer is assumed to begin
// on the first line that mentions the author's display name or address
// (mail clients repeat both when quoting and in signatures).
//
// The cut index is always the index of the first line not retained: the
// marker line itself is never included, and when no marker exists the index
// is the line count, so the whole body is kept. If the last retained line
// carries no content it is dropped as boilerplate.
//
// Extract is pure; empty input yields empty output.
func Extract(body, senderName, senderAddr string) string {
	if body == "" {
		return ""
	}

	body = strings.ReplaceAll(body, "\r", "")
	lines := strings.Split(body, "\n")

	cut := len(lines)
	for i, line := range lines {
		if containsMarker(line, senderName) || containsMarker(line, senderAddr) {
			cut = i
			break
		}
	}

	kept := lines[:cut]
	if n := len(kept); n > 0 && !contentPattern.MatchString(kept[n-1]) {
		kept = kept[:n-1]
	}

	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// containsMarker reports whether line mentions the given marker. An empty
// marker never matches, so unconfigured names do not cut the body at the
// first line.
func containsMarker(line, marker string) bool {
	return marker != "" && strings.Contains(line, marker)
}
