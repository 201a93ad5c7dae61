package camconfig

import (
	"errors"
	"strings"
)

// DynamicContentMarker starts the region of config.txt owned by this package
const DynamicContentMarker = "#OPENHD_DYNAMIC_CONTENT_BEGIN#"

var ErrMarkerNotFound = errors.New("dynamic content marker not found")

// IsMarker matches any line containing DynamicContentMarker
func IsMarker(line string) bool {
	return strings.Contains(line, DynamicContentMarker)
}

// Patch keeps lines up to and including the first marker line and appends
// replacement after it. Everything after the marker is dropped.
// Without a marker the input is returned unchanged together with ErrMarkerNotFound.
func Patch(lines []string, isMarker func(string) bool, replacement []string) ([]string, error) {
	for i, line := range lines {
		if !isMarker(line) {
			continue
		}
		out := make([]string, 0, i+1+len(replacement))
		out = append(out, lines[:i+1]...)
		return append(out, replacement...), nil
	}
	return lines, ErrMarkerNotFound
}

// SplitLines splits file content into lines, a trailing newline does not
// produce an empty last line
func SplitLines(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.TrimSuffix(content, "\n")
	if content == "" {
		return []string{}
	}
	return strings.Split(content, "\n")
}

// JoinLines is the inverse of SplitLines, every line is newline terminated
func JoinLines(lines []string) string {
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}
