package markup

import (
	"regexp"
	"strings"
)

const (
	annotationPattern = `\[([^\[\]/{}]+)(?:/[^\[\]/{}]*){0,5}\]`
	clausePattern     = `\(\(\(\{|\}\)\)\)|\(\(\{|\}\)\)|<<\{|\}>>|\[\[\{|\}\]\]|\{\{|\}\}`
	tagPattern        = `<[A-Za-z/][^<>]*>`
)

var (
	tagRe = regexp.MustCompile(tagPattern)
	// stripRe lists the constructs in the scanner's priority order. Go
	// regexps prefer the leftmost match and, at one position, the first
	// alternative, so a single pass consumes input exactly as the scanner
	// does.
	stripRe = regexp.MustCompile(annotationPattern + `|` + clausePattern + `|` + tagPattern + `|/ / bg|/`)
)

// Strip reduces an annotated sentence to its clean reading text. The result
// equals CollapseSpace(Text(Tokenize(src))).
func Strip(src string) string {
	matches := stripRe.FindAllStringSubmatchIndex(src, -1)
	if len(matches) == 0 {
		return CollapseSpace(src)
	}
	var b strings.Builder
	b.Grow(len(src))
	last := 0
	for _, m := range matches {
		b.WriteString(src[last:m[0]])
		if m[2] >= 0 {
			b.WriteString(tagRe.ReplaceAllString(src[m[2]:m[3]], ""))
		}
		last = m[1]
	}
	b.WriteString(src[last:])
	return CollapseSpace(b.String())
}
