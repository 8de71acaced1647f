package mcpserver

// MarkupGrammar describes the sentence annotation markup and the course file
// layout that LLM consumers should follow when writing materials.
const MarkupGrammar = `# Gloss Markup Grammar

Sentences inside analysis and workbook materials carry inline annotations.
The reader renders them as colored highlights, underlines, boxes and nested
clause backgrounds. The clean reading text is what remains once every
annotation is removed.

## Annotations

` + "```" + `
[TEXT/NOTE/COLOR/SHAPE/NOTE_COLOR/STYLE]
` + "```" + `

- TEXT is required and may not contain ` + "`[ ] / { }`" + `.
- Up to five metadata fields follow, separated by ` + "`/`" + `. Trailing fields may be omitted.
- NOTE is shown in small type under TEXT.
- COLOR is one of blue, green, red, orange, purple, pink, soft or verb.
- SHAPE is one of line, box, oval, bold, strike, ox, arrow, bg or verb.
- STYLE names a token type directly (e.g. ` + "`underline-red`" + `) and wins over COLOR and SHAPE.

Type resolution, first match wins:

1. STYLE names a known type.
2. SHAPE line gives underline-COLOR; SHAPE box gives box-COLOR (default blue).
3. SHAPE oval or COLOR orange gives oval-orange.
4. SHAPE bold, strike, ox or arrow gives that type; SHAPE bg or COLOR soft gives bg-soft.
5. COLOR verb, SHAPE verb or COLOR green gives verb.
6. COLOR red gives highlight-red; anything else highlight-blue.

## Clauses

Clauses nest and must be balanced:

| Open   | Close  | Color  |
|--------|--------|--------|
| ` + "`(({`" + `  | ` + "`}))`" + `  | blue   |
| ` + "`<<{`" + `  | ` + "`}>>`" + `  | green  |
| ` + "`{{`" + `   | ` + "`}}`" + `   | orange |
| ` + "`[[{`" + `  | ` + "`}]]`" + `  | purple |
| ` + "`((({`" + ` | ` + "`})))`" + ` | pink   |

Unbalanced markers are reported by the tokenize_sentence tool as issues.

## Other constructs

- ` + "`(TEXT)`" + ` marks a parenthetical shown in blue.
- Inline HTML tags such as ` + "`<b>`" + ` are dropped.
- ` + "`/ / bg`" + ` and bare slashes are dropped.

## Workbook drills

In workbook materials a NOTE of the form ` + "`answer≠distractor`" + ` turns the token
into a two-way choice, and tokens of type verb become blanks with their NOTE
as the base-form hint.

## Course files

A course is a JSON file ending in ` + "`.json`" + `:

` + "```" + `json
{
  "title": "Reading Basics",
  "level": "A2",
  "curriculum": [
    {"week": 1, "title": "Orientation", "analysisMaterials": [
      {"title": "Lesson 1", "sentences": [
        {"original": "He went home.", "analysis": "(({[He/subject] [went/go/verb]})) home.",
         "translation": "그는 집에 갔다."}
      ]},
      {"title": "1과 단어장", "vocabulary": ["apple: 사과"]},
      {"title": "Quiz", "questions": [{"question": "Pick one", "choices": ["a", "b"], "answer": 1}]}
    ]}
  ]
}
` + "```" + `

Material kinds are inferred: questions make a variant set, a title with
워크북 makes a workbook, sentences make an analysis and vocabulary alone
makes a word list.
`
