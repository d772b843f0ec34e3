package tokens

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Length is an absolute length. Stored in points; converters produce the
// fixed point units the package format actually uses.
type Length struct {
	pt float64
}

func Points(v float64) Length { return Length{pt: v} }
func Inches(v float64) Length { return Length{pt: v * 72} }

func (l Length) Points() float64 { return l.pt }
func (l Length) Inches() float64 { return l.pt / 72 }

// Twips returns the length in twentieths of a point, the base unit of
// wordprocessing measurements. Half-up rounding.
func (l Length) Twips() int { return int(math.Round(l.pt * 20)) }

// HalfPoints returns the length in half points (font size unit).
func (l Length) HalfPoints() int { return int(math.Round(l.pt * 2)) }

// EighthPoints returns the length in eighths of a point (border width unit).
func (l Length) EighthPoints() int { return int(math.Round(l.pt * 8)) }

func (l Length) IsZero() bool { return l.pt == 0 }

// Sub returns l - o. Lengths never go negative here; geometry code checks
// operand order before calling.
func (l Length) Sub(o Length) Length { return Length{pt: l.pt - o.pt} }

// String renders the length as a CSS point literal with stable precision.
func (l Length) String() string {
	return strconv.FormatFloat(math.Round(l.pt*1000)/1000, 'f', -1, 64) + "pt"
}

// ParseLength parses a CSS style length literal. Unitless numbers are points.
func ParseLength(raw string) (Length, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Length{}, fmt.Errorf("empty length")
	}

	lex := css.NewLexer(parse.NewInput(strings.NewReader(raw)))
	tt, data := lex.Next()
	switch tt {
	case css.NumberToken:
		v, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return Length{}, fmt.Errorf("bad length %q: %w", raw, err)
		}
		return lengthDone(lex, Points(v), raw)
	case css.DimensionToken:
		num, unit := splitDimension(string(data))
		v, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return Length{}, fmt.Errorf("bad length %q: %w", raw, err)
		}
		switch strings.ToLower(unit) {
		case "pt":
			return lengthDone(lex, Points(v), raw)
		case "in":
			return lengthDone(lex, Inches(v), raw)
		case "px":
			// CSS reference pixel: 96 per inch
			return lengthDone(lex, Points(v*0.75), raw)
		case "mm":
			return lengthDone(lex, Points(v*72/25.4), raw)
		case "cm":
			return lengthDone(lex, Points(v*72/2.54), raw)
		default:
			return Length{}, fmt.Errorf("unsupported length unit %q", unit)
		}
	}
	return Length{}, fmt.Errorf("bad length literal %q", raw)
}

func lengthDone(lex *css.Lexer, l Length, raw string) (Length, error) {
	if tt, _ := lex.Next(); tt != css.ErrorToken {
		return Length{}, fmt.Errorf("trailing garbage in length %q", raw)
	}
	return l, nil
}

func splitDimension(s string) (num, unit string) {
	i := 0
	for i < len(s) {
		c := s[i]
		if (c >= '0' && c <= '9') || c == '.' || c == '+' || c == '-' {
			i++
			continue
		}
		// scientific notation: 'e' belongs to the number only when followed by a digit or sign
		if (c == 'e' || c == 'E') && i+1 < len(s) && ((s[i+1] >= '0' && s[i+1] <= '9') || s[i+1] == '+' || s[i+1] == '-') {
			i += 2
			continue
		}
		break
	}
	return s[:i], s[i:]
}

// Color is an opaque sRGB color.
type Color struct {
	R, G, B uint8
}

// ParseColor parses "#RRGGBB" or "#RGB".
func ParseColor(raw string) (Color, error) {
	s := strings.TrimSpace(raw)

	lex := css.NewLexer(parse.NewInput(strings.NewReader(s)))
	tt, data := lex.Next()
	if tt != css.HashToken {
		return Color{}, fmt.Errorf("bad color literal %q", raw)
	}
	hex := strings.TrimPrefix(string(data), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return Color{}, fmt.Errorf("bad color literal %q", raw)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("bad color literal %q: %w", raw, err)
	}
	if tt, _ := lex.Next(); tt != css.ErrorToken {
		return Color{}, fmt.Errorf("trailing garbage in color %q", raw)
	}
	return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// Hex renders the color as uppercase RRGGBB without the leading hash, the
// form wordprocessing attributes expect.
func (c Color) Hex() string {
	return fmt.Sprintf("%02X%02X%02X", c.R, c.G, c.B)
}

// CSS renders the color as a CSS hash literal.
func (c Color) CSS() string {
	return "#" + c.Hex()
}

// Casing is a text case transform applied to rendered content.
type Casing int

const (
	CasingNone Casing = iota
	CasingUpper
	CasingTitle
)

func ParseCasing(s string) (Casing, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return CasingNone, nil
	case "upper", "uppercase":
		return CasingUpper, nil
	case "title", "titlecase":
		return CasingTitle, nil
	}
	return CasingNone, fmt.Errorf("unsupported casing %q", s)
}

func (c Casing) String() string {
	switch c {
	case CasingUpper:
		return "upper"
	case CasingTitle:
		return "title"
	}
	return "none"
}

// CSSTextTransform returns the equivalent CSS text-transform value.
func (c Casing) CSSTextTransform() string {
	switch c {
	case CasingUpper:
		return "uppercase"
	case CasingTitle:
		return "capitalize"
	}
	return "none"
}

var titleCaser = cases.Title(language.English, cases.NoLower)

// Apply transforms s according to the casing. Both renderers use this same
// transform so emitted text matches what CSS would display.
func (c Casing) Apply(s string) string {
	switch c {
	case CasingUpper:
		return strings.ToUpper(s)
	case CasingTitle:
		return titleCaser.String(s)
	}
	return s
}
