package render

import (
	"fmt"
	"html"
	"strings"

	"github.com/starford/gloss/internal/markup"
	"github.com/starford/gloss/internal/material"
)

type mode int

const (
	modeViewer mode = iota
	modePrint
	modeWord
)

const fontStack = `'Noto Sans KR','Malgun Gothic','Apple SD Gothic Neo',sans-serif`

var esc = html.EscapeString

// Viewer renders doc as an HTML fragment for the on-screen reader.
func Viewer(doc material.Document, state ViewState) string {
	var b strings.Builder
	writeArticle(&b, layout(doc, state), modeViewer)
	return b.String()
}

// PrintHTML renders doc as a standalone HTML page styled for A4 printing.
func PrintHTML(doc material.Document, state ViewState) string {
	return document(layout(doc, state), modePrint)
}

// WordHTML renders doc as a standalone HTML document for word-processor
// import. It is served with the word-processor MIME type and a .hwpx name.
func WordHTML(doc material.Document, state ViewState) string {
	return document(layout(doc, state), modeWord)
}

func document(p page, m mode) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html lang=\"ko\">\n<head>\n<meta charset=\"utf-8\">\n")
	if m == modeWord {
		b.WriteString("<meta http-equiv=\"Content-Type\" content=\"text/html; charset=utf-8\">\n")
	}
	fmt.Fprintf(&b, "<title>%s</title>\n<style>\n", esc(p.title))
	switch m {
	case modeWord:
		b.WriteString("@page { size: 210mm 297mm; margin: 20mm 18mm; }\n")
		fmt.Fprintf(&b, "body { font-family: %s; font-size: 11pt; line-height: 1.9; color: %s; }\n", fontStack, inkColor.hex())
	default:
		b.WriteString("@page { size: A4 portrait; margin: 15mm; }\n")
		b.WriteString("* { -webkit-print-color-adjust: exact; print-color-adjust: exact; }\n")
		fmt.Fprintf(&b, "body { font-family: %s; font-size: 10.5pt; line-height: 2.1; color: %s; margin: 0; }\n", fontStack, inkColor.hex())
	}
	b.WriteString("</style>\n</head>\n<body>\n")
	writeArticle(&b, p, m)
	b.WriteString("</body>\n</html>\n")
	return b.String()
}

func writeArticle(b *strings.Builder, p page, m mode) {
	style := ""
	if m == modeViewer {
		style = fmt.Sprintf(` style="font-family:%s;line-height:2.3;color:%s"`, esc(fontStack), inkColor.hex())
	}
	fmt.Fprintf(b, `<article class="gloss-doc gloss-%s" data-kind="%s"%s>`, p.kind, p.kind, style)
	fmt.Fprintf(b, `<h1 style="font-size:1.5em;margin:0 0 16px;border-bottom:2px solid %s;padding-bottom:6px">%s</h1>`, inkColor.hex(), esc(p.title))
	for _, s := range p.sections {
		writeSection(b, s, m)
	}
	b.WriteString("</article>\n")
}

func writeSection(b *strings.Builder, s section, m mode) {
	fmt.Fprintf(b, `<section class="gloss-section gloss-%s" style="margin:0 0 20px">`, s.class)
	fmt.Fprintf(b, `<h2 style="font-size:1.1em;margin:0 0 10px;color:%s">%s</h2>`, ink("blue").hex(), esc(s.heading))
	if s.columns > 1 && m != modeWord {
		fmt.Fprintf(b, `<div style="column-count:%d;column-gap:28px;column-rule:1px solid %s">`, s.columns, ruleColor.hex())
	} else {
		b.WriteString("<div>")
	}
	for _, blk := range s.blocks {
		writeBlock(b, blk, m)
	}
	b.WriteString("</div></section>\n")
}

func writeBlock(b *strings.Builder, blk block, m mode) {
	switch blk.kind {
	case blockSentence:
		b.WriteString(`<div class="sentence" style="margin:0 0 14px;break-inside:avoid">`)
		fmt.Fprintf(b, `<div class="sentence-text"><span class="num" style="font-weight:700;margin-right:6px">%d.</span>`, blk.number)
		writeTokens(b, blk.tokens, m)
		b.WriteString("</div>")
		if blk.secondary != "" {
			fmt.Fprintf(b, `<div class="translation" style="color:%s;font-size:0.92em;line-height:1.6">%s</div>`, mutedColor.hex(), esc(blk.secondary))
		}
		if blk.note != "" {
			fmt.Fprintf(b, `<div class="grammar" style="color:%s;font-size:0.88em;line-height:1.6">▸ %s</div>`, verbColor.hex(), esc(blk.note))
		}
		b.WriteString("</div>")
	case blockQuestion:
		b.WriteString(`<div class="question" style="margin:0 0 18px;break-inside:avoid;line-height:1.7">`)
		fmt.Fprintf(b, `<p style="margin:0 0 6px"><strong>%d.</strong> `, blk.number)
		if blk.label != "" {
			fmt.Fprintf(b, `<span class="qtype" style="color:%s">[%s]</span> `, mutedColor.hex(), esc(blk.label))
		}
		fmt.Fprintf(b, "%s</p>", esc(blk.text))
		if blk.secondary != "" {
			fmt.Fprintf(b, `<div class="passage" style="border:1px solid %s;padding:8px 10px;margin:0 0 6px">%s</div>`, ruleColor.hex(), esc(blk.secondary))
		}
		if len(blk.choices) > 0 {
			b.WriteString(`<ul class="choices" style="list-style:none;margin:0;padding:0">`)
			for _, c := range blk.choices {
				fmt.Fprintf(b, "<li>%s</li>", esc(c))
			}
			b.WriteString("</ul>")
		}
		b.WriteString("</div>")
	case blockTable:
		cell := fmt.Sprintf("border:1px solid %s;padding:4px 8px;vertical-align:top", ruleColor.hex())
		b.WriteString(`<table style="width:100%;border-collapse:collapse;line-height:1.6">`)
		if len(blk.header) > 0 {
			b.WriteString("<thead><tr>")
			for _, h := range blk.header {
				fmt.Fprintf(b, `<th style="%s;background-color:%s;text-align:left">%s</th>`, cell, softColor.hex(), esc(h))
			}
			b.WriteString("</tr></thead>")
		}
		b.WriteString("<tbody>")
		for _, row := range blk.rows {
			b.WriteString("<tr>")
			for i, c := range row {
				weight := ""
				if i == 0 {
					weight = ";font-weight:700;width:35%"
				}
				fmt.Fprintf(b, `<td style="%s%s">%s</td>`, cell, weight, strings.ReplaceAll(esc(c), "\n", "<br>"))
			}
			b.WriteString("</tr>")
		}
		b.WriteString("</tbody></table>")
	case blockRaw:
		fmt.Fprintf(b, `<pre class="raw" style="white-space:pre-wrap;word-break:break-all;font-family:inherit;line-height:1.6">%s</pre>`, esc(blk.text))
	default:
		b.WriteString(`<p style="margin:0 0 8px;line-height:1.7">`)
		if blk.label != "" {
			fmt.Fprintf(b, "<strong>%s</strong> ", esc(blk.label))
		}
		b.WriteString(esc(blk.text))
		if blk.secondary != "" {
			fmt.Fprintf(b, `<br><span class="translation" style="color:%s;font-size:0.92em">%s</span>`, mutedColor.hex(), esc(blk.secondary))
		}
		b.WriteString("</p>")
	}
}

// writeTokens renders a token stream. Clause markers open and close nested
// spans so their backgrounds stack; a close with no open span only prints
// its bracket, and spans left open are closed at the end.
func writeTokens(b *strings.Builder, tokens []markup.Token, m mode) {
	depth := 0
	for _, tok := range tokens {
		switch {
		case tok.Type.IsClauseOpen():
			c := tok.Type.ClauseColor()
			fmt.Fprintf(b, `<span class="clause clause-%s" style="%s">`, c, clauseCSS(c, m))
			writeClauseMark(b, tok)
			depth++
		case tok.Type.IsClauseClose():
			writeClauseMark(b, tok)
			if depth > 0 {
				b.WriteString("</span>")
				depth--
			}
		case tok.Type == markup.TypeText:
			b.WriteString(esc(tok.Text))
		default:
			writeAnnotated(b, tok, m)
		}
	}
	for ; depth > 0; depth-- {
		b.WriteString("</span>")
	}
}

func writeClauseMark(b *strings.Builder, tok markup.Token) {
	fmt.Fprintf(b, `<span class="clause-mark" style="color:%s;font-weight:700">%s</span>`, ink(tok.Type.ClauseColor()).hex(), esc(tok.Text))
}

func writeAnnotated(b *strings.Builder, tok markup.Token, m mode) {
	css := tokenCSS(tok.Type, m)
	if tok.Note == "" {
		fmt.Fprintf(b, `<span class="tok tok-%s" style="%s">%s</span>`, tok.Type, css, esc(tok.Text))
		return
	}
	nc := noteColor(tok).hex()
	if m == modeWord {
		fmt.Fprintf(b, `<span class="tok tok-%s" style="%s">%s</span><sub style="font-size:7pt;color:%s">%s</sub>`,
			tok.Type, css, esc(tok.Text), nc, esc(tok.Note))
		return
	}
	fmt.Fprintf(b, `<span class="tok tok-%s" style="display:inline-block;text-align:center;vertical-align:top;line-height:1.4">`, tok.Type)
	fmt.Fprintf(b, `<span style="%s">%s</span>`, css, esc(tok.Text))
	fmt.Fprintf(b, `<span class="note" style="display:block;font-size:0.62em;line-height:1.1;color:%s;white-space:nowrap">%s</span>`, nc, esc(tok.Note))
	b.WriteString("</span>")
}
