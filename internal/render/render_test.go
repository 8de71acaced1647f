package render

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/starford/gloss/internal/apperr"
	"github.com/starford/gloss/internal/material"
)

func analysisDoc() material.Document {
	return material.Build(material.RawMaterial{
		Title: "Reading 1",
		Structure: &material.Structure{
			Title:            "A Walk",
			TitleTranslation: "산책",
		},
		BackgroundKnowledge: "Walking is good.",
		Sentences: []material.SentenceRecord{{
			Original:     "He went home.",
			Analysis:     "(({[He/주어/blue] went})) home <b>now</b>.",
			Translation:  "그는 집에 갔다.",
			GrammarPoint: "과거 시제",
		}},
		Vocabulary: []material.VocabularyItem{{Word: "go", Meaning: "가다", PartOfSpeech: "v."}},
	})
}

func TestViewState_Transitions(t *testing.T) {
	s := DefaultViewState()
	clean := s.WithCleanView(true)
	if s.CleanView {
		t.Error("WithCleanView modified the receiver")
	}
	if !clean.CleanView || !clean.ShowTranslations {
		t.Errorf("clean = %+v", clean)
	}
	both := clean.WithAnswers(true).WithTranslations(false)
	if !both.ShowAnswers || both.ShowTranslations || !both.CleanView {
		t.Errorf("both = %+v", both)
	}
}

func TestParseTarget(t *testing.T) {
	for in, want := range map[string]Target{"": TargetViewer, "PDF": TargetPDF, "hwpx": TargetWord, "print": TargetPrint} {
		got, err := ParseTarget(in)
		if err != nil || got != want {
			t.Errorf("ParseTarget(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseTarget("docx"); !errors.Is(err, apperr.ErrUnsupportedTarget) {
		t.Errorf("err = %v, want ErrUnsupportedTarget", err)
	}
}

func TestViewer_Analysis(t *testing.T) {
	out := Viewer(analysisDoc(), DefaultViewState())
	for _, want := range []string{
		`data-kind="analysis"`,
		`class="clause clause-blue"`,
		`class="note"`,
		">주어<",
		"그는 집에 갔다.",
		"과거 시제",
		"산책",
		"Walking is good.",
		"go (v.)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("viewer output missing %q", want)
		}
	}
	if strings.Contains(out, "<b>") {
		t.Error("inline tag from the source leaked into output")
	}
	if strings.Count(out, "<span") != strings.Count(out, "</span>") {
		t.Error("unbalanced spans")
	}
}

func TestViewer_CleanViewAndTranslations(t *testing.T) {
	out := Viewer(analysisDoc(), DefaultViewState().WithCleanView(true).WithTranslations(false))
	if strings.Contains(out, "clause-blue") || strings.Contains(out, `class="note"`) {
		t.Error("clean view still shows annotations")
	}
	if !strings.Contains(out, "He went home now.") {
		t.Error("clean view missing stripped sentence")
	}
	if strings.Contains(out, "그는 집에 갔다.") || strings.Contains(out, "산책") {
		t.Error("translations shown while hidden")
	}
}

func TestViewer_UnbalancedClausesStayWellFormed(t *testing.T) {
	doc := material.Build(material.RawMaterial{Sentences: []material.SentenceRecord{{Original: "}} stray {{ open (({ deeper"}}})
	out := Viewer(doc, DefaultViewState())
	if strings.Count(out, "<span") != strings.Count(out, "</span>") {
		t.Errorf("unbalanced spans in %s", out)
	}
}

func TestViewer_Variant(t *testing.T) {
	doc := material.Build(material.RawMaterial{Questions: []material.Question{{
		Question:    "Which is correct?",
		Choices:     material.StringList{"a", "b", "c"},
		Answer:      "2",
		Explanation: "because",
	}}})
	out := Viewer(doc, DefaultViewState())
	if !strings.Contains(out, "column-count:2") || !strings.Contains(out, "① a") {
		t.Error("questions not laid out in two columns with choices")
	}
	if strings.Contains(out, headAnswers) {
		t.Error("answer key shown while hidden")
	}
	out = Viewer(doc, DefaultViewState().WithAnswers(true))
	if !strings.Contains(out, headAnswers) || !strings.Contains(out, "②") || !strings.Contains(out, "because") {
		t.Error("answer key missing")
	}
}

func TestViewer_WordList(t *testing.T) {
	doc := material.Build(material.RawMaterial{Title: "단어장", Vocabulary: []material.VocabularyItem{{Word: "apple", Meaning: "사과"}}})
	out := Viewer(doc, DefaultViewState())
	if !strings.Contains(out, "<table") || !strings.Contains(out, "apple") || !strings.Contains(out, "사과") {
		t.Errorf("word list table missing: %s", out)
	}
}

func TestViewer_RawFallback(t *testing.T) {
	doc := material.Build(material.RawMaterial{Fallback: true, Sentences: []material.SentenceRecord{{Original: `{"title":<broken`}}})
	out := Viewer(doc, DefaultViewState())
	if !strings.Contains(out, `<pre class="raw"`) || !strings.Contains(out, "{&#34;title&#34;:&lt;broken") {
		t.Errorf("raw text not shown escaped: %s", out)
	}
}

func TestWorkbookDrills(t *testing.T) {
	doc := material.Build(material.RawMaterial{
		Title: "1과 워크북",
		Sentences: []material.SentenceRecord{
			{Original: "He [went/≠goes] home quickly today."},
			{Original: "She [left/leave/verb] the room early.", Translation: "그녀는 일찍 방을 나갔다."},
		},
	})
	if doc.Kind() != material.KindWorkbook {
		t.Fatalf("kind = %q", doc.Kind())
	}
	out := Viewer(doc, DefaultViewState())
	for _, want := range []string{headChoice, "[went / goes]", headVerb, "________ (leave)", headOrder, "그녀는 일찍 방을 나갔다."} {
		if !strings.Contains(out, want) {
			t.Errorf("workbook missing %q", want)
		}
	}
	if strings.Contains(out, headAnswers) {
		t.Error("answer key shown while hidden")
	}
	out = Viewer(doc, DefaultViewState().WithAnswers(true))
	for _, want := range []string{"1. went", "1. left", "2. She left the room early."} {
		if !strings.Contains(out, want) {
			t.Errorf("answer key missing %q", want)
		}
	}
}

func TestOrderDrill(t *testing.T) {
	if got := orderDrill("too short"); got != nil {
		t.Errorf("short sentence scrambled: %v", got)
	}
	got := orderDrill("c b a")
	if strings.Join(got, " ") != "a b c" {
		t.Errorf("scrambled = %v", got)
	}
	got = orderDrill("a b c")
	if strings.Join(got, " ") != "c b a" {
		t.Errorf("already sorted sentence not reversed: %v", got)
	}
}

func TestPrintHTML_BottomAnchoredBackgrounds(t *testing.T) {
	out := PrintHTML(analysisDoc(), DefaultViewState())
	if !strings.HasPrefix(out, "<!DOCTYPE html>") {
		t.Error("print output is not a standalone document")
	}
	if !strings.Contains(out, "linear-gradient(to top") || !strings.Contains(out, "size: A4 portrait") {
		t.Error("print styles missing")
	}
}

func TestRender_Word(t *testing.T) {
	r := NewRenderer()
	out, err := r.Render(context.Background(), analysisDoc(), TargetWord, DefaultViewState())
	if err != nil {
		t.Fatal(err)
	}
	if out.ContentType != "application/hwp+zip" || out.FileName != "Reading 1.hwpx" {
		t.Errorf("output = %q %q", out.ContentType, out.FileName)
	}
	body := string(out.Body)
	if !strings.Contains(body, "@page { size: 210mm 297mm") || !strings.Contains(body, "<style>") {
		t.Error("word document missing page setup")
	}
}

func TestRender_PDFCleansUp(t *testing.T) {
	tmp := t.TempDir()
	r := NewRenderer(WithScale(1), WithTempDir(tmp))
	out, err := r.Render(context.Background(), analysisDoc(), TargetPDF, DefaultViewState())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(out.Body, []byte("%PDF")) || out.ContentType != ContentTypePDF {
		t.Errorf("not a pdf: %q", out.ContentType)
	}
	entries, err := os.ReadDir(tmp)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("temporary page images left behind: %v", entries)
	}
}

func TestRender_PDFCancelled(t *testing.T) {
	tmp := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewRenderer(WithScale(1), WithTempDir(tmp))
	if _, err := r.PDF(ctx, analysisDoc(), DefaultViewState()); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	entries, _ := os.ReadDir(tmp)
	if len(entries) != 0 {
		t.Error("cancelled export left files behind")
	}
}

func TestFileName(t *testing.T) {
	if got := FileName(` a/b:c `, "pdf"); got != "a_b_c.pdf" {
		t.Errorf("FileName = %q", got)
	}
	if got := FileName("", "hwpx"); got != "material.hwpx" {
		t.Errorf("FileName = %q", got)
	}
}

func TestRenderer_FallbackFontLacksHangul(t *testing.T) {
	if NewRenderer().CoversHangul() {
		t.Error("bundled fallback font should not report Hangul coverage")
	}
}

func TestFaces_FollowRasterScale(t *testing.T) {
	one := NewRenderer(WithScale(1)).faces()
	defer one.close()
	two := NewRenderer(WithScale(2)).faces()
	defer two.close()

	h1, h2 := height(one.body), height(two.body)
	if h1 <= 0 || h2 < 1.8*h1 || h2 > 2.2*h1 {
		t.Errorf("body height at 1x = %v, at 2x = %v; want about double", h1, h2)
	}
}
