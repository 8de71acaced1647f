package render

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/fogleman/gg"
	"github.com/go-pdf/fpdf"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/starford/gloss/internal/apperr"
	"github.com/starford/gloss/internal/markup"
	"github.com/starford/gloss/internal/material"
)

// A4 portrait at 96 dpi, in CSS pixels.
const (
	a4Width    = 794
	a4Height   = 1123
	a4WidthMM  = 210
	a4HeightMM = 297
	pageMargin = 56
)

// DefaultScale is the raster scale of PDF pages.
const DefaultScale = 2.0

// Renderer renders documents to every target. The zero value is not
// usable; create one with NewRenderer.
type Renderer struct {
	font    *truetype.Font
	scale   float64
	tempDir string
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithFont sets the TrueType font used for PDF output. Without it PDF
// pages use the bundled Go font, which has Latin glyphs but no Hangul.
func WithFont(f *truetype.Font) Option {
	return func(r *Renderer) { r.font = f }
}

// WithScale sets the PDF raster scale.
func WithScale(scale float64) Option {
	return func(r *Renderer) {
		if scale > 0 {
			r.scale = scale
		}
	}
}

// WithTempDir sets the parent directory of the per-export page image
// directory. The default is os.TempDir.
func WithTempDir(dir string) Option {
	return func(r *Renderer) { r.tempDir = dir }
}

// NewRenderer creates a Renderer.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{scale: DefaultScale}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// LoadFont reads and parses a TrueType font file.
func LoadFont(path string) (*truetype.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("render: read font: %w", err)
	}
	f, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("render: parse font %s: %w", path, err)
	}
	return f, nil
}

// Render produces doc in the requested target format.
func (r *Renderer) Render(ctx context.Context, doc material.Document, target Target, state ViewState) (Output, error) {
	title := layout(doc, state).title
	switch target {
	case TargetViewer:
		return Output{Body: []byte(Viewer(doc, state)), ContentType: ContentTypeHTML, FileName: FileName(title, "html")}, nil
	case TargetPrint:
		return Output{Body: []byte(PrintHTML(doc, state)), ContentType: ContentTypeHTML, FileName: FileName(title, "html")}, nil
	case TargetWord:
		return Output{Body: []byte(WordHTML(doc, state)), ContentType: ContentTypeWord, FileName: FileName(title, "hwpx")}, nil
	case TargetPDF:
		body, err := r.PDF(ctx, doc, state)
		if err != nil {
			return Output{}, err
		}
		return Output{Body: body, ContentType: ContentTypePDF, FileName: FileName(title, "pdf")}, nil
	}
	return Output{}, fmt.Errorf("render: target %q: %w", target, apperr.ErrUnsupportedTarget)
}

// PDF rasterizes doc onto A4 portrait pages and wraps them in a PDF. Page
// images are written to a temporary directory that is removed before PDF
// returns.
func (r *Renderer) PDF(ctx context.Context, doc material.Document, state ViewState) ([]byte, error) {
	p := layout(doc, state)
	faces := r.faces()
	defer faces.close()

	c := newCanvas(r.scale, faces)
	c.title(p.title)
	for _, s := range p.sections {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c.section(s)
	}

	dir, err := os.MkdirTemp(r.tempDir, "gloss-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("render: temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(p.title, true)
	pdf.SetCreator("gloss", true)
	for i, pg := range c.pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(dir, fmt.Sprintf("page-%03d.png", i+1))
		if err := pg.SavePNG(path); err != nil {
			return nil, fmt.Errorf("render: write page %d: %w", i+1, err)
		}
		pdf.AddPage()
		pdf.ImageOptions(path, 0, 0, a4WidthMM, a4HeightMM, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render: encode pdf: %w", err)
	}
	return buf.Bytes(), nil
}

type faceSet struct {
	title, heading, body, note font.Face
}

func (f faceSet) close() {
	for _, face := range []font.Face{f.title, f.heading, f.body, f.note} {
		face.Close()
	}
}

// fallbackFont is parsed once from the Go font bundled with x/image.
var fallbackFont = sync.OnceValue(func() *truetype.Font {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		panic("render: bundled font: " + err.Error())
	}
	return f
})

// hangulProbe is a syllable every Korean font maps.
const hangulProbe = '한'

// pdfFont returns the configured font or the bundled fallback.
func (r *Renderer) pdfFont() *truetype.Font {
	if r.font != nil {
		return r.font
	}
	return fallbackFont()
}

// CoversHangul reports whether PDF output can draw Korean text. Section
// headings and translations are Korean, so without it most of a page
// renders as missing-glyph boxes.
func (r *Renderer) CoversHangul() bool {
	return r.pdfFont().Index(hangulProbe) != 0
}

func (r *Renderer) faces() faceSet {
	f := r.pdfFont()
	at := func(px float64) font.Face {
		return truetype.NewFace(f, &truetype.Options{Size: px * r.scale, DPI: 72, Hinting: font.HintingFull})
	}
	return faceSet{title: at(22), heading: at(16), body: at(14), note: at(9)}
}

func ascent(f font.Face) float64  { return float64(f.Metrics().Ascent.Ceil()) }
func descent(f font.Face) float64 { return float64(f.Metrics().Descent.Ceil()) }
func height(f font.Face) float64  { return ascent(f) + descent(f) }

// canvas lays blocks out top to bottom, starting a new page when the next
// line does not fit.
type canvas struct {
	scale  float64
	faces  faceSet
	width  float64
	height float64
	margin float64
	meter  *gg.Context
	pages  []*gg.Context
	dc     *gg.Context
	y      float64
}

func newCanvas(scale float64, faces faceSet) *canvas {
	return &canvas{
		scale:  scale,
		faces:  faces,
		width:  a4Width * scale,
		height: a4Height * scale,
		margin: pageMargin * scale,
		meter:  gg.NewContext(1, 1),
	}
}

func (c *canvas) px(v float64) float64 { return v * c.scale }

func (c *canvas) contentWidth() float64 { return c.width - 2*c.margin }

func (c *canvas) newPage() {
	dc := gg.NewContext(int(c.width), int(c.height))
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	c.pages = append(c.pages, dc)
	c.dc = dc
	c.y = c.margin
}

// reserve makes sure h pixels fit on the current page.
func (c *canvas) reserve(h float64) {
	if c.dc == nil || (c.y+h > c.height-c.margin && c.y > c.margin) {
		c.newPage()
	}
}

func (c *canvas) measure(s string, face font.Face) float64 {
	c.meter.SetFontFace(face)
	w, _ := c.meter.MeasureString(s)
	return w
}

// wrap breaks s into lines no wider than width. Words longer than a line
// are broken between runes.
func (c *canvas) wrap(s string, face font.Face, width float64) []string {
	c.meter.SetFontFace(face)
	var out []string
	for _, para := range strings.Split(s, "\n") {
		if strings.TrimSpace(para) == "" {
			out = append(out, "")
			continue
		}
		for _, line := range c.meter.WordWrap(para, width) {
			out = append(out, c.breakRunes(line, face, width)...)
		}
	}
	return out
}

func (c *canvas) breakRunes(line string, face font.Face, width float64) []string {
	if c.measure(line, face) <= width {
		return []string{line}
	}
	var out []string
	start := 0
	for i := 0; i < len(line); {
		_, size := utf8.DecodeRuneInString(line[i:])
		if i > start && c.measure(line[start:i+size], face) > width {
			out = append(out, line[start:i])
			start = i
		}
		i += size
	}
	return append(out, line[start:])
}

func (c *canvas) drawText(s string, x, baseline float64, face font.Face, col rgb, bold bool) {
	c.dc.SetFontFace(face)
	c.dc.SetColor(col.color(1))
	c.dc.DrawString(s, x, baseline)
	if bold {
		c.dc.DrawString(s, x+c.px(0.6), baseline)
	}
}

// paragraph draws wrapped text at indent and advances the cursor.
func (c *canvas) paragraph(s string, face font.Face, col rgb, indent float64, bold bool) {
	lh := height(face) * 1.4
	for _, line := range c.wrap(s, face, c.contentWidth()-indent) {
		c.reserve(lh)
		c.drawText(line, c.margin+indent, c.y+ascent(face), face, col, bold)
		c.y += lh
	}
}

func (c *canvas) gap(v float64) { c.y += c.px(v) }

func (c *canvas) rule(col rgb, w float64) {
	c.dc.SetColor(col.color(1))
	c.dc.SetLineWidth(c.px(w))
	c.dc.DrawLine(c.margin, c.y, c.width-c.margin, c.y)
	c.dc.Stroke()
}

func (c *canvas) title(s string) {
	c.reserve(height(c.faces.title) * 2)
	c.paragraph(s, c.faces.title, inkColor, 0, true)
	c.gap(2)
	c.rule(inkColor, 2)
	c.gap(14)
}

func (c *canvas) section(s section) {
	c.reserve(height(c.faces.heading)*1.4 + height(c.faces.body)*2)
	c.paragraph(s.heading, c.faces.heading, ink("blue"), 0, true)
	c.gap(6)
	for _, b := range s.blocks {
		c.block(b)
	}
	c.gap(14)
}

func (c *canvas) block(b block) {
	body := c.faces.body
	switch b.kind {
	case blockSentence:
		prefix := markup.Token{Text: fmt.Sprintf("%d. ", b.number), Type: markup.TypeBold}
		c.tokens(append([]markup.Token{prefix}, b.tokens...))
		if b.secondary != "" {
			c.paragraph(b.secondary, body, mutedColor, c.px(18), false)
		}
		if b.note != "" {
			c.paragraph("- "+b.note, body, verbColor, c.px(18), false)
		}
		c.gap(10)
	case blockQuestion:
		head := fmt.Sprintf("%d. ", b.number)
		if b.label != "" {
			head += "[" + b.label + "] "
		}
		c.paragraph(head+b.text, body, inkColor, 0, false)
		if b.secondary != "" {
			c.gap(4)
			c.paragraph(b.secondary, body, inkColor, c.px(16), false)
		}
		for _, choice := range b.choices {
			c.paragraph(choice, body, inkColor, c.px(16), false)
		}
		c.gap(12)
	case blockTable:
		c.table(b)
	case blockRaw:
		c.paragraph(b.text, body, inkColor, 0, false)
	default:
		text := b.text
		if b.label != "" {
			text = b.label + " " + text
		}
		c.paragraph(text, body, inkColor, 0, false)
		if b.secondary != "" {
			c.paragraph(b.secondary, body, mutedColor, c.px(12), false)
		}
		c.gap(4)
	}
}

func (c *canvas) table(b block) {
	body := c.faces.body
	lh := height(body) * 1.4
	pad := c.px(6)
	first := c.contentWidth() * 0.35
	rest := c.contentWidth() - first

	row := func(cells []string, bold bool) {
		left := c.wrap(cellText(cells, 0), body, first-2*pad)
		right := c.wrap(cellText(cells, 1), body, rest-2*pad)
		n := max(len(left), len(right))
		c.reserve(float64(n)*lh + 2*pad)
		top := c.y
		for i := 0; i < n; i++ {
			base := top + pad + float64(i)*lh + ascent(body)
			if i < len(left) {
				c.drawText(left[i], c.margin+pad, base, body, inkColor, true)
			}
			if i < len(right) {
				c.drawText(right[i], c.margin+first+pad, base, body, inkColor, bold)
			}
		}
		c.y = top + float64(n)*lh + 2*pad
		c.rule(ruleColor, 1)
	}
	c.reserve(lh)
	c.rule(ruleColor, 1)
	if len(b.header) > 0 {
		row(b.header, true)
	}
	for _, cells := range b.rows {
		row(cells, false)
	}
	c.gap(8)
}

func cellText(cells []string, i int) string {
	if i < len(cells) {
		return cells[i]
	}
	return ""
}

// atom is a run of token text that is never split across lines.
type atom struct {
	text    string
	tok     markup.Token
	clauses []string
	mark    bool
	first   bool
	width   float64
}

// atoms splits tokens at spaces and records the clause colors active
// over each piece.
func (c *canvas) atoms(tokens []markup.Token) []atom {
	var out []atom
	var stack []string
	snapshot := func() []string { return append([]string(nil), stack...) }
	for _, tok := range tokens {
		switch {
		case tok.Type.IsClauseOpen():
			stack = append(stack, tok.Type.ClauseColor())
			out = append(out, atom{text: tok.Text, tok: tok, clauses: snapshot(), mark: true})
		case tok.Type.IsClauseClose():
			out = append(out, atom{text: tok.Text, tok: tok, clauses: snapshot(), mark: true})
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			for i, piece := range strings.SplitAfter(tok.Text, " ") {
				if piece == "" {
					continue
				}
				out = append(out, atom{text: piece, tok: tok, clauses: snapshot(), first: i == 0})
			}
		}
	}
	for i := range out {
		out[i].width = c.measure(out[i].text, c.faces.body)
	}
	return out
}

// tokens lays out an annotated sentence, wrapping between atoms.
func (c *canvas) tokens(tokens []markup.Token) {
	var line []atom
	x := 0.0
	for _, a := range c.atoms(tokens) {
		if len(line) == 0 && strings.TrimSpace(a.text) == "" {
			continue
		}
		if x+a.width > c.contentWidth() && len(line) > 0 {
			c.tokenLine(line)
			line, x = nil, 0
			if strings.TrimSpace(a.text) == "" {
				continue
			}
		}
		line = append(line, a)
		x += a.width
	}
	if len(line) > 0 {
		c.tokenLine(line)
	}
}

func (c *canvas) tokenLine(line []atom) {
	body, note := c.faces.body, c.faces.note
	asc, desc := ascent(body), descent(body)
	lh := height(body) * 1.5
	for _, a := range line {
		if a.first && a.tok.Note != "" {
			lh += height(note) + c.px(2)
			break
		}
	}
	c.reserve(lh)
	base := c.y + asc + c.px(4)
	x := c.margin
	for _, a := range line {
		w := c.measure(strings.TrimRight(a.text, " "), body)
		c.decorateBehind(a, x, a.width, base, asc, desc)
		col, bold := atomInk(a)
		c.drawText(a.text, x, base, body, col, bold)
		c.decorateFront(a, x, w, base, asc, desc)
		if a.first && a.tok.Note != "" {
			c.drawText(a.tok.Note, x, base+desc+ascent(note)+c.px(2), note, noteColor(a.tok), false)
		}
		x += a.width
	}
	c.y += lh
}

func atomInk(a atom) (rgb, bool) {
	if a.mark {
		return ink(a.tok.Type.ClauseColor()), true
	}
	switch t := a.tok.Type; {
	case t == markup.TypeBold:
		return inkColor, true
	case t == markup.TypeVerb:
		return verbColor, true
	case t == markup.TypeOX:
		return ink("red"), true
	case t == markup.TypeArrow:
		return mutedColor, false
	case t.Family() == "bracket":
		return ink(t.Color()), false
	}
	return inkColor, false
}

// decorateBehind paints clause bands and highlights under the text. Clause
// bands cover the lower part of the line so nested clauses stack visibly.
func (c *canvas) decorateBehind(a atom, x, w, base, asc, desc float64) {
	for _, color := range a.clauses {
		top := base - asc*float64(underlay)/100
		c.dc.SetColor(wash(color).color(clauseAlpha * 1.6))
		c.dc.DrawRectangle(x, top, w, base+desc-top)
		c.dc.Fill()
	}
	if a.mark {
		return
	}
	switch t := a.tok.Type; {
	case t == markup.TypeBgSoft:
		c.dc.SetColor(softColor.color(1))
		c.dc.DrawRectangle(x, base-asc, w, asc+desc)
		c.dc.Fill()
	case t.Family() == "highlight":
		top := base - asc*0.6
		c.dc.SetColor(wash(t.Color()).color(highlightAlpha * 1.4))
		c.dc.DrawRectangle(x, top, w, base+desc-top)
		c.dc.Fill()
	}
}

func (c *canvas) decorateFront(a atom, x, w, base, asc, desc float64) {
	if a.mark || w <= 0 {
		return
	}
	t := a.tok.Type
	line := func(col rgb, y float64) {
		c.dc.SetColor(col.color(1))
		c.dc.SetLineWidth(c.px(1.5))
		c.dc.DrawLine(x, y, x+w, y)
		c.dc.Stroke()
	}
	switch {
	case t == markup.TypeStrike:
		line(inkColor, base-asc*0.3)
	case t == markup.TypeVerb:
		line(verbColor, base+c.px(2))
	case t.Family() == "underline":
		line(ink(t.Color()), base+c.px(2))
	case t.Family() == "box":
		c.dc.SetColor(ink(t.Color()).color(1))
		c.dc.SetLineWidth(c.px(1.5))
		c.dc.DrawRectangle(x-c.px(2), base-asc, w+c.px(4), asc+desc)
		c.dc.Stroke()
	case t.Family() == "oval":
		h := asc + desc
		c.dc.SetColor(ink(t.Color()).color(1))
		c.dc.SetLineWidth(c.px(1.5))
		c.dc.DrawRoundedRectangle(x-c.px(4), base-asc, w+c.px(8), h, h/2)
		c.dc.Stroke()
	}
}
