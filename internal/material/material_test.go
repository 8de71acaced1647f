package material

import (
	"encoding/json"
	"testing"
)

func TestClassify_QuestionsAlwaysVariant(t *testing.T) {
	m := RawMaterial{
		Title:      "3과 워크북 단어장",
		Type:       "workbook",
		Sentences:  []SentenceRecord{{Original: "a"}},
		Vocabulary: []VocabularyItem{{Word: "w"}},
		Questions:  []Question{{Question: "q?"}},
	}
	if k := Classify(m); k != KindVariant {
		t.Errorf("kind = %q, want variant", k)
	}
}

func TestClassify_Order(t *testing.T) {
	cases := []struct {
		name string
		m    RawMaterial
		want Kind
	}{
		{"explicit type wins", RawMaterial{Type: "word", Sentences: []SentenceRecord{{Original: "a"}}}, KindWord},
		{"explicit alias", RawMaterial{Type: "vocabulary"}, KindWord},
		{"default type is not an override", RawMaterial{Type: "analysis", Vocabulary: []VocabularyItem{{Word: "w"}}}, KindWord},
		{"workbook title", RawMaterial{Title: "1강 워크북", Sentences: []SentenceRecord{{Original: "a"}}}, KindWorkbook},
		{"workbook title without sentences", RawMaterial{Title: "1강 워크북"}, KindWorkbook},
		{"workbook type with sentences", RawMaterial{Type: "workbook", Sentences: []SentenceRecord{{Original: "a"}}}, KindWorkbook},
		{"sentences", RawMaterial{Sentences: []SentenceRecord{{Original: "a"}}}, KindAnalysis},
		{"content", RawMaterial{Content: []SentenceRecord{{Original: "a"}}}, KindAnalysis},
		{"vocabulary does not downgrade analysis", RawMaterial{Sentences: []SentenceRecord{{Original: "a"}}, Vocabulary: []VocabularyItem{{Word: "w"}}}, KindAnalysis},
		{"vocabulary only", RawMaterial{Vocabulary: []VocabularyItem{{Word: "w"}}}, KindWord},
		{"word list title", RawMaterial{Title: "필수 단어장"}, KindWord},
		{"variant title", RawMaterial{Title: "2과 변형문제"}, KindVariant},
		{"default", RawMaterial{}, KindAnalysis},
	}
	for _, c := range cases {
		if got := Classify(c.m); got != c.want {
			t.Errorf("%s: kind = %q, want %q", c.name, got, c.want)
		}
	}
}

func TestClassify_Idempotent(t *testing.T) {
	m := RawMaterial{Title: "워크북", Vocabulary: []VocabularyItem{{Word: "w"}}}
	first := Classify(m)
	second := Classify(m)
	if first != second {
		t.Errorf("classification changed: %q then %q", first, second)
	}
	if len(m.Vocabulary) != 1 {
		t.Error("classifier modified its input")
	}
}

func TestBuild_TaggedVariants(t *testing.T) {
	doc := Build(RawMaterial{Title: " 단어장 ", Vocabulary: []VocabularyItem{{Word: "apple", Meaning: "사과"}}})
	wl, ok := doc.(*WordList)
	if !ok {
		t.Fatalf("doc = %T, want *WordList", doc)
	}
	if wl.Title != "단어장" || len(wl.Items) != 1 {
		t.Errorf("word list = %+v", wl)
	}
	if err := doc.Validate(); err != nil {
		t.Errorf("validate: %v", err)
	}

	doc = Build(RawMaterial{Content: []SentenceRecord{{Original: "  "}, {Analysis: "[x/y]"}}})
	an, ok := doc.(*Analysis)
	if !ok {
		t.Fatalf("doc = %T, want *Analysis", doc)
	}
	if len(an.Sentences) != 1 {
		t.Errorf("blank sentence not dropped: %+v", an.Sentences)
	}
}

func TestBuild_FallbackKeepsRawText(t *testing.T) {
	doc := Build(RawMaterial{Type: "variant", Fallback: true, Sentences: []SentenceRecord{{Original: `{"questions":[`}}})
	if doc.Kind() != KindVariant {
		t.Fatalf("kind = %q", doc.Kind())
	}
	if doc.Header().RawText != `{"questions":[` {
		t.Errorf("raw text = %q", doc.Header().RawText)
	}
	if err := doc.Validate(); err != nil {
		t.Errorf("fallback should validate: %v", err)
	}
}

func TestValidate_WordListMissingWord(t *testing.T) {
	doc := &WordList{Items: []VocabularyItem{{Word: "ok"}, {Meaning: "no word"}}}
	if err := doc.Validate(); err == nil {
		t.Error("expected validation error for entry without word")
	}
}

func TestRawMaterial_LooseShapes(t *testing.T) {
	input := `{
		"title": "t",
		"content": "first line\n\nsecond line",
		"vocabulary": ["apple: 사과", {"word": "pear", "meaning": "배"}],
		"questions": ["What?", {"question": "Which?", "choices": "a\nb", "answer": 2}],
		"backgroundKnowledge": ["one", "two"]
	}`
	var m RawMaterial
	if err := json.Unmarshal([]byte(input), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(m.Content) != 2 || m.Content[1].Original != "second line" {
		t.Errorf("content = %+v", m.Content)
	}
	if m.Vocabulary[0].Word != "apple" || m.Vocabulary[0].Meaning != "사과" || m.Vocabulary[1].Word != "pear" {
		t.Errorf("vocabulary = %+v", m.Vocabulary)
	}
	if m.Questions[0].Question != "What?" || len(m.Questions[1].Choices) != 2 || m.Questions[1].Answer != "2" {
		t.Errorf("questions = %+v", m.Questions)
	}
	if m.BackgroundKnowledge != "one\ntwo" {
		t.Errorf("background = %q", m.BackgroundKnowledge)
	}
}

func TestSentenceRecord_Annotated(t *testing.T) {
	s := SentenceRecord{Original: "plain", Analysis: "[plain/note]"}
	if s.Annotated() != "[plain/note]" {
		t.Errorf("annotated = %q", s.Annotated())
	}
	s.Analysis = " "
	if s.Annotated() != "plain" {
		t.Errorf("annotated = %q", s.Annotated())
	}
}
