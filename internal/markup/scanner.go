package markup

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// maxAnnotationFields is the number of metadata fields an annotation may
// carry after its text.
const maxAnnotationFields = 5

// clauseMarker pairs a literal marker with the clause color it opens or closes.
type clauseMarker struct {
	lit   string
	color string
	open  bool
}

// clauseMarkers is ordered longest first so that ((({ wins over (({.
var clauseMarkers = []clauseMarker{
	{"((({", ClausePink, true},
	{"})))", ClausePink, false},
	{"(({", ClauseBlue, true},
	{"}))", ClauseBlue, false},
	{"<<{", ClauseGreen, true},
	{"}>>", ClauseGreen, false},
	{"[[{", ClausePurple, true},
	{"}]]", ClausePurple, false},
	{"{{", ClauseOrange, true},
	{"}}", ClauseOrange, false},
}

// bgDiscard is the literal background marker dropped by the scanner.
const bgDiscard = "/ / bg"

// IssueKind classifies a clause-nesting problem.
type IssueKind string

// Clause nesting issues.
const (
	IssueUnopenedClose   IssueKind = "unopened-close"
	IssueMismatchedClose IssueKind = "mismatched-close"
	IssueUnclosedOpen    IssueKind = "unclosed-open"
)

// Issue reports an unbalanced clause marker. The token stream is left as is.
type Issue struct {
	Kind   IssueKind `json:"kind"`
	Color  string    `json:"color"`
	Offset int       `json:"offset"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s %s clause at byte %d", i.Kind, i.Color, i.Offset)
}

// Result is the output of scanning one sentence.
type Result struct {
	Tokens []Token `json:"tokens"`
	Issues []Issue `json:"issues,omitempty"`
}

// Balanced reports whether every clause marker was matched.
func (r Result) Balanced() bool { return len(r.Issues) == 0 }

// Option configures a scan.
type Option func(*scanner)

// WithIDPrefix sets the prefix of generated token IDs (default "t").
func WithIDPrefix(prefix string) Option {
	return func(s *scanner) {
		s.idPrefix = prefix
	}
}

// Tokenize returns the tokens of an annotated sentence.
func Tokenize(src string, opts ...Option) []Token {
	return Scan(src, opts...).Tokens
}

// Scan tokenizes an annotated sentence and reports clause nesting issues.
// It never fails: characters that start no construct become text tokens.
func Scan(src string, opts ...Option) Result {
	s := &scanner{src: src, idPrefix: "t"}
	for _, opt := range opts {
		opt(s)
	}
	s.run()
	for _, open := range s.stack {
		s.issues = append(s.issues, Issue{Kind: IssueUnclosedOpen, Color: open.color, Offset: open.offset})
	}
	tokens := s.tokens
	if tokens == nil {
		tokens = []Token{}
	}
	return Result{Tokens: tokens, Issues: s.issues}
}

type openClause struct {
	color  string
	offset int
}

type scanner struct {
	src      string
	pos      int
	idPrefix string
	tokens   []Token
	stack    []openClause
	issues   []Issue
}

func (s *scanner) run() {
	for s.pos < len(s.src) {
		switch {
		case s.annotation():
		case s.clause():
		case s.tag():
		case s.paren():
		case s.discard():
		default:
			s.plain()
		}
	}
}

func (s *scanner) emit(tok Token) {
	tok.ID = fmt.Sprintf("%s%d", s.idPrefix, len(s.tokens))
	s.tokens = append(s.tokens, tok)
}

// annotation handles [TEXT/A1/.../A5].
func (s *scanner) annotation() bool {
	if s.src[s.pos] != '[' {
		return false
	}
	i := s.pos + 1
	text, i := readField(s.src, i)
	if text == "" {
		return false
	}
	var fields []string
	for i < len(s.src) && s.src[i] == '/' {
		if len(fields) == maxAnnotationFields {
			return false
		}
		var f string
		f, i = readField(s.src, i+1)
		fields = append(fields, f)
	}
	if i >= len(s.src) || s.src[i] != ']' {
		return false
	}
	s.pos = i + 1
	// Inline tags inside the annotated text are dropped like anywhere else.
	if text = tagRe.ReplaceAllString(text, ""); text == "" {
		return true
	}
	s.emit(annotationToken(text, fields))
	return true
}

// readField reads up to the next annotation delimiter.
func readField(src string, i int) (string, int) {
	start := i
	for i < len(src) && !isAnnotationDelim(src[i]) {
		i++
	}
	return src[start:i], i
}

func isAnnotationDelim(c byte) bool {
	switch c {
	case '[', ']', '/', '{', '}':
		return true
	}
	return false
}

func field(fields []string, i int) string {
	if i < len(fields) {
		return strings.TrimSpace(fields[i])
	}
	return ""
}

func annotationToken(text string, fields []string) Token {
	note := field(fields, 0)
	color := strings.ToLower(field(fields, 1))
	shape := strings.ToLower(field(fields, 2))
	noteColor := field(fields, 3)
	override := Type(strings.ToLower(field(fields, 4)))

	return Token{
		Text:      text,
		Type:      annotationType(color, shape, override),
		Note:      note,
		NoteColor: noteColor,
	}
}

// annotationType applies the annotation decision table. First match wins.
func annotationType(color, shape string, override Type) Type {
	if override.IsAnnotation() {
		return override
	}
	switch shape {
	case "line":
		return Type("underline-" + paletteOr(color, "blue"))
	case "box":
		return Type("box-" + paletteOr(color, "blue"))
	}
	if shape == "oval" || color == "orange" {
		return TypeOvalOrange
	}
	switch shape {
	case "bold":
		return TypeBold
	case "strike":
		return TypeStrike
	case "ox":
		return TypeOX
	case "arrow":
		return TypeArrow
	case "bg":
		return TypeBgSoft
	}
	if color == "soft" {
		return TypeBgSoft
	}
	if color == "verb" || shape == "verb" || color == "green" {
		return TypeVerb
	}
	if color == "red" {
		return TypeHighlightRed
	}
	return TypeHighlightBlue
}

func paletteOr(color, def string) string {
	if palette[color] {
		return color
	}
	return def
}

// clause handles the five paired clause markers.
func (s *scanner) clause() bool {
	rest := s.src[s.pos:]
	for _, m := range clauseMarkers {
		if !strings.HasPrefix(rest, m.lit) {
			continue
		}
		offset := s.pos
		s.pos += len(m.lit)
		if m.open {
			s.stack = append(s.stack, openClause{color: m.color, offset: offset})
			s.emit(Token{Text: "[", Type: ClauseOpen(m.color)})
			return true
		}
		s.closeClause(m.color, offset)
		s.emit(Token{Text: "]", Type: ClauseClose(m.color)})
		return true
	}
	return false
}

func (s *scanner) closeClause(color string, offset int) {
	if len(s.stack) == 0 {
		s.issues = append(s.issues, Issue{Kind: IssueUnopenedClose, Color: color, Offset: offset})
		return
	}
	top := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	if top.color != color {
		s.issues = append(s.issues, Issue{Kind: IssueMismatchedClose, Color: color, Offset: offset})
	}
}

// tag drops an inline HTML tag.
func (s *scanner) tag() bool {
	if s.src[s.pos] != '<' || s.pos+1 >= len(s.src) {
		return false
	}
	if c := s.src[s.pos+1]; !isASCIILetter(c) && c != '/' {
		return false
	}
	for i := s.pos + 1; i < len(s.src); i++ {
		switch s.src[i] {
		case '<':
			return false
		case '>':
			s.pos = i + 1
			return true
		}
	}
	return false
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// paren handles (TEXT).
func (s *scanner) paren() bool {
	if s.src[s.pos] != '(' {
		return false
	}
	i := s.pos + 1
	for i < len(s.src) && !isParenExcluded(s.src[i]) {
		i++
	}
	if i == s.pos+1 || i >= len(s.src) || s.src[i] != ')' {
		return false
	}
	inner := s.src[s.pos+1 : i]
	s.pos = i + 1
	s.emit(Token{Text: "(", Type: TypeText})
	s.emit(Token{Text: inner, Type: TypeBracket})
	s.emit(Token{Text: ")", Type: TypeText})
	return true
}

func isParenExcluded(c byte) bool {
	switch c {
	case '(', ')', '[', ']', '{', '}', '<', '>', '/':
		return true
	}
	return false
}

// discard drops "/ / bg" and bare slashes.
func (s *scanner) discard() bool {
	if s.src[s.pos] != '/' {
		return false
	}
	if strings.HasPrefix(s.src[s.pos:], bgDiscard) {
		s.pos += len(bgDiscard)
		return true
	}
	s.pos++
	return true
}

// plain emits a maximal run of ordinary characters, or a single special
// character that started no construct.
func (s *scanner) plain() {
	start := s.pos
	for s.pos < len(s.src) && !isSpecial(s.src[s.pos]) {
		s.pos++
	}
	if s.pos == start {
		_, size := utf8.DecodeRuneInString(s.src[s.pos:])
		s.pos += size
	}
	s.emit(Token{Text: s.src[start:s.pos], Type: TypeText})
}

func isSpecial(c byte) bool {
	switch c {
	case '[', ']', '(', ')', '{', '}', '<', '>', '/':
		return true
	}
	return false
}
