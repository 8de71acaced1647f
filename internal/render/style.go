package render

import (
	"fmt"
	"image/color"

	"github.com/starford/gloss/internal/markup"
)

type rgb struct{ r, g, b uint8 }

func (c rgb) hex() string { return fmt.Sprintf("#%02x%02x%02x", c.r, c.g, c.b) }

func (c rgb) rgba(alpha float64) string {
	return fmt.Sprintf("rgba(%d,%d,%d,%.2f)", c.r, c.g, c.b, alpha)
}

// tint mixes c with white; f is the share of c.
func (c rgb) tint(f float64) rgb {
	mix := func(v uint8) uint8 { return uint8(float64(v)*f + 255*(1-f)) }
	return rgb{mix(c.r), mix(c.g), mix(c.b)}
}

func (c rgb) color(alpha float64) color.NRGBA {
	return color.NRGBA{R: c.r, G: c.g, B: c.b, A: uint8(alpha * 255)}
}

var (
	inkColor   = rgb{0x1f, 0x29, 0x37}
	mutedColor = rgb{0x64, 0x74, 0x8b}
	softColor  = rgb{0xf1, 0xf5, 0xf9}
	ruleColor  = rgb{0xcb, 0xd5, 0xe1}
	verbColor  = rgb{0x15, 0x80, 0x3d}
)

// Foreground colors for annotation types and notes.
var inkPalette = map[string]rgb{
	"blue":   {0x25, 0x63, 0xeb},
	"green":  {0x16, 0xa3, 0x4a},
	"red":    {0xdc, 0x26, 0x26},
	"orange": {0xea, 0x58, 0x0c},
	"purple": {0x93, 0x33, 0xea},
	"pink":   {0xdb, 0x27, 0x77},
}

// Background colors for clause spans and highlights.
var washPalette = map[string]rgb{
	"blue":   {0x3b, 0x82, 0xf6},
	"green":  {0x22, 0xc5, 0x5e},
	"red":    {0xef, 0x44, 0x44},
	"orange": {0xf9, 0x73, 0x16},
	"purple": {0xa8, 0x55, 0xf7},
	"pink":   {0xec, 0x48, 0x99},
}

func ink(name string) rgb {
	if c, ok := inkPalette[name]; ok {
		return c
	}
	return inkPalette["blue"]
}

func wash(name string) rgb {
	if c, ok := washPalette[name]; ok {
		return c
	}
	return washPalette["blue"]
}

// noteColor is the color of the label under an annotated token.
func noteColor(tok markup.Token) rgb {
	if c, ok := inkPalette[tok.NoteColor]; ok {
		return c
	}
	if c := tok.Type.Color(); c != "" {
		return ink(c)
	}
	return mutedColor
}

const (
	clauseAlpha    = 0.18
	highlightAlpha = 0.28
	// underlay is the share of the line height covered by a bottom-anchored
	// background in print output.
	underlay = 45
)

// clauseCSS styles the span opened by a clause marker.
func clauseCSS(color string, m mode) string {
	c := wash(color)
	switch m {
	case modePrint:
		return bottomBand(c, clauseAlpha*1.6)
	case modeWord:
		return "background-color:" + c.tint(0.22).hex()
	}
	return fmt.Sprintf("background-color:%s;border-radius:3px;padding:2px 0", c.rgba(clauseAlpha))
}

// bottomBand draws a background over the lower part of the line only, so
// stacked clauses do not cover ascenders of the line above.
func bottomBand(c rgb, alpha float64) string {
	return fmt.Sprintf("background-image:linear-gradient(to top,%s 0,%s %d%%,transparent %d%%);background-repeat:no-repeat;background-position:bottom",
		c.rgba(alpha), c.rgba(alpha), underlay, underlay)
}

// tokenCSS styles the text of an annotated token.
func tokenCSS(t markup.Type, m mode) string {
	switch t {
	case markup.TypeBgSoft:
		return "background-color:" + softColor.hex()
	case markup.TypeBold:
		return "font-weight:700"
	case markup.TypeStrike:
		return "text-decoration:line-through"
	case markup.TypeVerb:
		return fmt.Sprintf("color:%s;font-weight:700;text-decoration:underline", verbColor.hex())
	case markup.TypeOX:
		return fmt.Sprintf("color:%s;font-weight:700", ink("red").hex())
	case markup.TypeArrow:
		return "color:" + mutedColor.hex()
	}
	color := t.Color()
	switch t.Family() {
	case "highlight":
		c := wash(color)
		switch m {
		case modePrint:
			return bottomBand(c, highlightAlpha*1.4)
		case modeWord:
			return "background-color:" + c.tint(0.3).hex()
		}
		return "background-color:" + c.rgba(highlightAlpha)
	case "underline":
		return fmt.Sprintf("text-decoration:underline;text-decoration-color:%s;text-decoration-thickness:2px;text-underline-offset:3px", ink(color).hex())
	case "box":
		return fmt.Sprintf("border:1.5px solid %s;padding:0 2px", ink(color).hex())
	case "oval":
		return fmt.Sprintf("border:1.5px solid %s;border-radius:999px;padding:0 4px", ink(color).hex())
	case "bracket":
		return "color:" + ink(color).hex()
	}
	return ""
}
