package markup

import (
	"testing"
)

func TestTokenize_AnnotationAndParen(t *testing.T) {
	tokens := Tokenize("[He/him/blue] went (quickly)")
	want := []Token{
		{ID: "t0", Text: "He", Type: TypeHighlightBlue, Note: "him"},
		{ID: "t1", Text: " went ", Type: TypeText},
		{ID: "t2", Text: "(", Type: TypeText},
		{ID: "t3", Text: "quickly", Type: TypeBracket},
		{ID: "t4", Text: ")", Type: TypeText},
	}
	assertTokens(t, tokens, want)
}

func TestTokenize_ClauseMarker(t *testing.T) {
	tokens := Tokenize("(({high})) jump")
	want := []Token{
		{ID: "t0", Text: "[", Type: "clause-blue-open"},
		{ID: "t1", Text: "high", Type: TypeText},
		{ID: "t2", Text: "]", Type: "clause-blue-close"},
		{ID: "t3", Text: " jump", Type: TypeText},
	}
	assertTokens(t, tokens, want)
}

func TestTokenize_AllClauseColors(t *testing.T) {
	cases := map[string]string{
		"(({a}))":   ClauseBlue,
		"<<{a}>>":   ClauseGreen,
		"{{a}}":     ClauseOrange,
		"[[{a}]]":   ClausePurple,
		"((({a})))": ClausePink,
	}
	for src, color := range cases {
		r := Scan(src)
		if len(r.Tokens) != 3 {
			t.Fatalf("%s: got %d tokens, want 3: %+v", src, len(r.Tokens), r.Tokens)
		}
		if r.Tokens[0].Type != ClauseOpen(color) || r.Tokens[0].Text != "[" {
			t.Errorf("%s: open = %+v", src, r.Tokens[0])
		}
		if r.Tokens[2].Type != ClauseClose(color) || r.Tokens[2].Text != "]" {
			t.Errorf("%s: close = %+v", src, r.Tokens[2])
		}
		if !r.Balanced() {
			t.Errorf("%s: unexpected issues %v", src, r.Issues)
		}
	}
}

func TestTokenize_Empty(t *testing.T) {
	tokens := Tokenize("")
	if tokens == nil || len(tokens) != 0 {
		t.Errorf("tokens = %#v, want empty non-nil slice", tokens)
	}
}

func TestTokenize_Discards(t *testing.T) {
	tokens := Tokenize("a / / bg b/c")
	if got := Text(tokens); got != "a  bc" {
		t.Errorf("text = %q, want %q", got, "a  bc")
	}
	for _, tok := range tokens {
		if tok.Text == "/" {
			t.Errorf("slash survived: %+v", tokens)
		}
	}
}

func TestTokenize_HTMLTagsDropped(t *testing.T) {
	tokens := Tokenize("<b>bold</b> text")
	if got := Text(tokens); got != "bold text" {
		t.Errorf("text = %q", got)
	}
}

func TestTokenize_TagInsideAnnotation(t *testing.T) {
	tokens := Tokenize("[a<b>c/x] end")
	if len(tokens) == 0 || tokens[0].Text != "ac" || tokens[0].Note != "x" {
		t.Fatalf("tokens = %+v, want annotation text \"ac\" with note x", tokens)
	}
	if got := Text(Tokenize("[<b>/x] y")); got != " y" {
		t.Errorf("tag-only annotation text = %q, want %q", got, " y")
	}
}

func TestTokenize_SlashesBeforeTagKeepBg(t *testing.T) {
	if got := CollapseSpace(Text(Tokenize("/ / b<i>g end"))); got != "bg end" {
		t.Errorf("text = %q, want %q", got, "bg end")
	}
}

func TestTokenize_UnmatchedCharactersFallThrough(t *testing.T) {
	tokens := Tokenize("[open and ) close")
	if got := Text(tokens); got != "[open and ) close" {
		t.Errorf("text = %q", got)
	}
	if tokens[0].Text != "[" || tokens[0].Type != TypeText {
		t.Errorf("first token = %+v", tokens[0])
	}
}

func TestTokenize_TooManyFieldsIsNotAnnotation(t *testing.T) {
	tokens := Tokenize("[a/1/2/3/4/5/6]")
	for _, tok := range tokens {
		if tok.Type != TypeText {
			t.Errorf("unexpected annotation token %+v", tok)
		}
	}
}

func TestAnnotationType_DecisionTable(t *testing.T) {
	cases := []struct {
		src  string
		want Type
	}{
		{"[x/n/red/line]", "underline-red"},
		{"[x/n//line]", "underline-blue"},
		{"[x/n/green/box]", "box-green"},
		{"[x/n//box]", "box-blue"},
		{"[x/n/blue/oval]", TypeOvalOrange},
		{"[x/n/orange]", TypeOvalOrange},
		{"[x/n/verb]", TypeVerb},
		{"[x/n//verb]", TypeVerb},
		{"[x/n/green]", TypeVerb},
		{"[x/n/red]", TypeHighlightRed},
		{"[x/n/blue]", TypeHighlightBlue},
		{"[x]", TypeHighlightBlue},
		{"[x/n//bold]", TypeBold},
		{"[x/n//strike]", TypeStrike},
		{"[x/n//ox]", TypeOX},
		{"[x/n//arrow]", TypeArrow},
		{"[x/n//bg]", TypeBgSoft},
		{"[x/n/soft]", TypeBgSoft},
		{"[x/n/red/line//box-purple]", "box-purple"},
		{"[x/n/red/line//nonsense]", "underline-red"},
	}
	for _, c := range cases {
		tokens := Tokenize(c.src)
		if len(tokens) != 1 {
			t.Fatalf("%s: got %d tokens", c.src, len(tokens))
		}
		if tokens[0].Type != c.want {
			t.Errorf("%s: type = %q, want %q", c.src, tokens[0].Type, c.want)
		}
	}
}

func TestAnnotation_NoteColor(t *testing.T) {
	tokens := Tokenize("[that/접속사/blue/line/red]")
	if len(tokens) != 1 {
		t.Fatalf("tokens = %+v", tokens)
	}
	tok := tokens[0]
	if tok.Text != "that" || tok.Note != "접속사" || tok.NoteColor != "red" || tok.Type != "underline-blue" {
		t.Errorf("token = %+v", tok)
	}
}

func TestScan_Issues(t *testing.T) {
	r := Scan("}}) a (({b}} <<{c")
	if r.Balanced() {
		t.Fatal("expected issues")
	}
	kinds := map[IssueKind]int{}
	for _, is := range r.Issues {
		kinds[is.Kind]++
	}
	if kinds[IssueUnopenedClose] != 1 || kinds[IssueMismatchedClose] != 1 || kinds[IssueUnclosedOpen] != 1 {
		t.Errorf("issues = %v", r.Issues)
	}
}

func TestScan_IDPrefix(t *testing.T) {
	tokens := Tokenize("a (b)", WithIDPrefix("s3-"))
	if tokens[0].ID != "s3-0" || tokens[3].ID != "s3-3" {
		t.Errorf("ids = %q %q", tokens[0].ID, tokens[3].ID)
	}
}

func TestType_Helpers(t *testing.T) {
	if c := ClauseOpen(ClausePink).ClauseColor(); c != ClausePink {
		t.Errorf("clause color = %q", c)
	}
	if !ClauseClose(ClauseBlue).IsClauseClose() || ClauseClose(ClauseBlue).IsClauseOpen() {
		t.Error("close predicates wrong")
	}
	if Type("underline-red").Family() != "underline" || Type("underline-red").Color() != "red" {
		t.Error("family/color wrong")
	}
	if TypeText.IsAnnotation() || !TypeVerb.IsAnnotation() || !Type("box-pink").IsAnnotation() {
		t.Error("IsAnnotation wrong")
	}
}

func assertTokens(t *testing.T, got, want []Token) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d tokens, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}
