package markup

import "testing"

var corpus = []string{
	"",
	"plain sentence with no markup.",
	"[He/him/blue] went (quickly)",
	"(({high})) jump",
	"(({The man [who/관계대명사/green] lives})) next door {{is kind}}.",
	"I / / bg think / that <b>this</b> works (well).",
	"[[{He said}]] [that/접속사/blue/line/red] <<{she [left/leave의 과거/red/line]}>>.",
	"((({Not only})) did he {{come}}, but [also/부사//bold] (stay)",
	"그는 [학교에/to school/blue] 갔다 (어제).",
	"[broken/note and (paren] [[x] {y} <z",
	"a/b/c // d",
	"[a/1/2/3/4/5/6] tail",
	"  leading   and trailing   spaces  ",
	"((nested (parens)))",
	"}))  stray close",
	"/ / b<i>g end",
	"[a<b>c/x] end",
	"[<b>/x] only tag",
	"</ > and </> and <a/b>",
	"/ / / bg // / bg",
	"[a<b]>c/x]",
	"<<{<b>green</b>}>> <i/>",
}

func TestStrip_MatchesTokenText(t *testing.T) {
	for _, src := range corpus {
		got := Strip(src)
		want := CollapseSpace(Text(Tokenize(src)))
		if got != want {
			t.Errorf("Strip(%q) = %q, token text = %q", src, got, want)
		}
	}
}

func TestStrip_Examples(t *testing.T) {
	cases := map[string]string{
		"[He/him/blue] went (quickly)": "He went (quickly)",
		"(({high})) jump":              "high jump",
		"I / / bg think <i>so</i>.":    "I think so.",
		"":                             "",
	}
	for src, want := range cases {
		if got := Strip(src); got != want {
			t.Errorf("Strip(%q) = %q, want %q", src, got, want)
		}
	}
}
