package render

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/starford/gloss/internal/markup"
	"github.com/starford/gloss/internal/material"
)

type blockKind int

const (
	blockParagraph blockKind = iota
	blockSentence
	blockQuestion
	blockTable
	blockRaw
)

// block is one laid-out unit shared by every target.
type block struct {
	kind      blockKind
	label     string
	text      string
	secondary string
	number    int
	tokens    []markup.Token
	note      string
	choices   []string
	header    []string
	rows      [][]string
}

type section struct {
	heading string
	class   string
	columns int
	blocks  []block
}

type page struct {
	title    string
	kind     material.Kind
	sections []section
}

// Section headings.
const (
	headStructure  = "지문 구조"
	headBackground = "배경 지식"
	headSentences  = "문장 분석"
	headVocabulary = "어휘"
	headWordList   = "단어장"
	headQuestions  = "문제"
	headAnswers    = "정답 및 해설"
	headChoice     = "A. 어법 선택"
	headVerb       = "B. 동사 변형"
	headOrder      = "C. 단어 배열"
	headRaw        = "원문"
)

var defaultTitles = map[material.Kind]string{
	material.KindAnalysis: "문장 분석",
	material.KindWorkbook: "워크북",
	material.KindWord:     "단어장",
	material.KindVariant:  "변형문제",
}

func layout(doc material.Document, state ViewState) page {
	meta := doc.Header()
	p := page{title: meta.Title, kind: doc.Kind()}
	if p.title == "" {
		p.title = defaultTitles[p.kind]
	}
	if meta.RawText != "" {
		p.sections = []section{{heading: headRaw, class: "raw", blocks: []block{{kind: blockRaw, text: meta.RawText}}}}
		return p
	}
	switch d := doc.(type) {
	case *material.Analysis:
		p.sections = analysisSections(d, state)
	case *material.Workbook:
		p.sections = workbookSections(d, state)
	case *material.WordList:
		p.sections = []section{vocabularySection(headWordList, "word-list", d.Items)}
	case *material.Variant:
		p.sections = variantSections(d, state)
	}
	return p
}

func analysisSections(d *material.Analysis, state ViewState) []section {
	var out []section
	if !d.Structure.Empty() {
		out = append(out, structureSection(d.Structure, state))
	}
	if d.Background != "" {
		s := section{heading: headBackground, class: "background"}
		for _, line := range strings.Split(d.Background, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				s.blocks = append(s.blocks, block{kind: blockParagraph, text: line})
			}
		}
		out = append(out, s)
	}
	if len(d.Sentences) > 0 {
		s := section{heading: headSentences, class: "sentences"}
		for i, rec := range d.Sentences {
			s.blocks = append(s.blocks, sentenceBlock(i, rec, state))
		}
		out = append(out, s)
	}
	if len(d.Vocabulary) > 0 {
		out = append(out, vocabularySection(headVocabulary, "vocabulary", d.Vocabulary))
	}
	return out
}

func structureSection(st *material.Structure, state ViewState) section {
	s := section{heading: headStructure, class: "structure"}
	add := func(label, text, translation string) {
		if text == "" {
			return
		}
		b := block{kind: blockParagraph, label: label, text: text}
		if state.ShowTranslations {
			b.secondary = translation
		}
		s.blocks = append(s.blocks, b)
	}
	add("제목", st.Title, st.TitleTranslation)
	add("주제", st.Subject, st.SubjectTranslation)
	add("요지", st.Summary, st.SummaryTranslation)
	for _, sec := range st.Sections {
		add(sec.Heading, sec.Content, sec.Translation)
	}
	return s
}

func sentenceBlock(i int, rec material.SentenceRecord, state ViewState) block {
	b := block{kind: blockSentence, number: i + 1, note: rec.GrammarPoint}
	src := rec.Annotated()
	if state.CleanView {
		b.tokens = []markup.Token{{ID: fmt.Sprintf("s%d-0", i), Text: markup.Strip(src), Type: markup.TypeText}}
	} else {
		b.tokens = markup.Tokenize(src, markup.WithIDPrefix(fmt.Sprintf("s%d-", i)))
	}
	if state.ShowTranslations {
		b.secondary = rec.Translation
	}
	return b
}

func vocabularySection(heading, class string, items []material.VocabularyItem) section {
	b := block{kind: blockTable, header: []string{"단어", "뜻"}}
	for _, it := range items {
		word := it.Word
		if it.PartOfSpeech != "" {
			word += " (" + it.PartOfSpeech + ")"
		}
		meaning := it.Meaning
		if it.Example != "" {
			meaning += "\n" + it.Example
		}
		b.rows = append(b.rows, []string{word, meaning})
	}
	return section{heading: heading, class: class, blocks: []block{b}}
}

var circled = []string{"①", "②", "③", "④", "⑤", "⑥", "⑦", "⑧", "⑨", "⑩"}

func choiceLabel(i int) string {
	if i < len(circled) {
		return circled[i]
	}
	return strconv.Itoa(i+1) + "."
}

func variantSections(d *material.Variant, state ViewState) []section {
	qs := section{heading: headQuestions, class: "questions", columns: 2}
	for i, q := range d.Questions {
		b := block{
			kind:   blockQuestion,
			number: i + 1,
			text:   markup.Strip(q.Question),
			label:  q.Type,
		}
		if q.Passage != "" {
			b.secondary = markup.Strip(q.Passage)
		}
		for j, c := range q.Choices {
			b.choices = append(b.choices, choiceLabel(j)+" "+markup.Strip(c))
		}
		qs.blocks = append(qs.blocks, b)
	}
	out := []section{qs}
	if state.ShowAnswers {
		ans := section{heading: headAnswers, class: "answers"}
		for i, q := range d.Questions {
			ans.blocks = append(ans.blocks, block{
				kind:      blockParagraph,
				label:     fmt.Sprintf("%d.", i+1),
				text:      formatAnswer(q),
				secondary: q.Explanation,
			})
		}
		out = append(out, ans)
	}
	return out
}

// formatAnswer turns a 1-based choice number into its circled label.
func formatAnswer(q material.Question) string {
	a := strings.TrimSpace(q.Answer.String())
	if n, err := strconv.Atoi(a); err == nil && n >= 1 && n <= len(q.Choices) {
		return choiceLabel(n - 1)
	}
	return a
}

// choiceSep splits a note into its answer and distractor.
const choiceSep = "≠"

func workbookSections(d *material.Workbook, state ViewState) []section {
	choice := section{heading: headChoice, class: "drill-choice"}
	verb := section{heading: headVerb, class: "drill-verb"}
	order := section{heading: headOrder, class: "drill-order"}
	var choiceKey, verbKey, orderKey []string

	for i, rec := range d.Sentences {
		tokens := markup.Tokenize(rec.Annotated(), markup.WithIDPrefix(fmt.Sprintf("w%d-", i)))

		if drill, answers := choiceDrill(tokens, i); len(answers) > 0 {
			n := len(choice.blocks) + 1
			choice.blocks = append(choice.blocks, block{kind: blockSentence, number: n, tokens: drill})
			choiceKey = append(choiceKey, fmt.Sprintf("%d. %s", n, strings.Join(answers, ", ")))
		}
		if drill, answers := verbDrill(tokens); len(answers) > 0 {
			n := len(verb.blocks) + 1
			verb.blocks = append(verb.blocks, block{kind: blockSentence, number: n, tokens: drill})
			verbKey = append(verbKey, fmt.Sprintf("%d. %s", n, strings.Join(answers, ", ")))
		}
		clean := markup.CollapseSpace(markup.Text(tokens))
		if words := orderDrill(clean); words != nil {
			n := len(order.blocks) + 1
			order.blocks = append(order.blocks, block{
				kind:      blockParagraph,
				label:     fmt.Sprintf("%d.", n),
				text:      strings.Join(words, " / "),
				secondary: rec.Translation,
			})
			orderKey = append(orderKey, fmt.Sprintf("%d. %s", n, clean))
		}
	}

	var out []section
	for _, s := range []section{choice, verb, order} {
		if len(s.blocks) > 0 {
			out = append(out, s)
		}
	}
	if state.ShowAnswers {
		ans := section{heading: headAnswers, class: "answers"}
		for _, key := range []struct {
			label string
			lines []string
		}{{"A", choiceKey}, {"B", verbKey}, {"C", orderKey}} {
			for _, line := range key.lines {
				ans.blocks = append(ans.blocks, block{kind: blockParagraph, label: key.label, text: line})
			}
		}
		if len(ans.blocks) > 0 {
			out = append(out, ans)
		}
	}
	return out
}

// plainToken drops clause markers and annotation styling so drills carry
// no hints.
func plainToken(tok markup.Token) markup.Token {
	return markup.Token{ID: tok.ID, Text: tok.Text, Type: markup.TypeText}
}

// choiceDrill replaces every token whose note holds a ≠ with an
// "[a / b]" pair. The pair order alternates so the answer is not always
// first.
func choiceDrill(tokens []markup.Token, sentence int) ([]markup.Token, []string) {
	var out []markup.Token
	var answers []string
	for _, tok := range tokens {
		if tok.Type.IsClause() {
			continue
		}
		left, right, ok := strings.Cut(tok.Note, choiceSep)
		if !ok {
			out = append(out, plainToken(tok))
			continue
		}
		distractor := strings.TrimSpace(right)
		if distractor == "" {
			distractor = strings.TrimSpace(left)
		}
		answer := strings.TrimSpace(tok.Text)
		pair := [2]string{answer, distractor}
		if (sentence+len(answers))%2 == 1 {
			pair[0], pair[1] = pair[1], pair[0]
		}
		out = append(out, markup.Token{ID: tok.ID, Text: "[" + pair[0] + " / " + pair[1] + "]", Type: markup.TypeBold})
		answers = append(answers, answer)
	}
	return out, answers
}

// verbBlank is the gap left where a verb was.
const verbBlank = "________"

// verbDrill blanks verb tokens, keeping their note as the base-form hint.
func verbDrill(tokens []markup.Token) ([]markup.Token, []string) {
	var out []markup.Token
	var answers []string
	for _, tok := range tokens {
		if tok.Type.IsClause() {
			continue
		}
		if tok.Type != markup.TypeVerb {
			out = append(out, plainToken(tok))
			continue
		}
		text := verbBlank
		if hint := strings.TrimSpace(tok.Note); hint != "" {
			text += " (" + hint + ")"
		}
		out = append(out, markup.Token{ID: tok.ID, Text: text, Type: markup.TypeBold})
		answers = append(answers, strings.TrimSpace(tok.Text))
	}
	return out, answers
}

// minOrderWords is the shortest sentence turned into an ordering drill.
const minOrderWords = 3

// orderDrill returns the words of s in a deterministic scrambled order:
// sorted case-insensitively, reversed when sorting keeps the original order.
func orderDrill(s string) []string {
	words := strings.Fields(s)
	if len(words) < minOrderWords {
		return nil
	}
	scrambled := append([]string(nil), words...)
	sort.SliceStable(scrambled, func(i, j int) bool {
		return strings.ToLower(scrambled[i]) < strings.ToLower(scrambled[j])
	})
	if equalWords(scrambled, words) {
		for i, j := 0, len(scrambled)-1; i < j; i, j = i+1, j-1 {
			scrambled[i], scrambled[j] = scrambled[j], scrambled[i]
		}
	}
	return scrambled
}

func equalWords(a, b []string) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return len(a) == len(b)
}
