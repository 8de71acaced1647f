package curriculum

import (
	"regexp"
	"strings"
)

var titleRe = regexp.MustCompile(`"title"\s*:\s*"((?:[^"\\]|\\.)*)"`)

// legacyWeeks reads the old storage format: one week per non-empty line.
// Lines holding embedded JSON are decoded like the whole field would be.
func legacyWeeks(text string) []Week {
	var weeks []Week
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		weeks = append(weeks, weekFromValue(line, len(weeks)+1))
	}
	if len(weeks) == 0 {
		weeks = append(weeks, newWeek(1, ""))
	}
	return weeks
}

// extractTitle pulls the first "title" value out of text that did not
// decode.
func extractTitle(text string) string {
	m := titleRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(strings.ReplaceAll(m[1], `\"`, `"`))
}
