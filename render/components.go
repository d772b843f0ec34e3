// Package render holds the universal renderer components. Every component
// resolves its BoxStyle exactly once at construction and derives both the
// markup output and the wordprocessing output from that single record, so
// the two renditions cannot drift apart.
package render

import (
	"strings"

	"github.com/beevik/etree"

	"resumedoc/docx"
	"resumedoc/style"
)

// page content width for US letter with the default margins, in twips
const contentWidthTwips = 12240 - 2*1080

// Inspection is the resolved visual contract of a component. Both renderers
// read their formatting from the same BoxStyle this is derived from, so two
// components with equal inspections produce equivalent output.
type Inspection struct {
	Style  string
	Font   string
	SizePt float64
	Color  string
	Bold   bool
	Italic bool
	Casing string

	SpacingBeforePt float64
	SpacingAfterPt  float64
	PaddingHPt      float64

	BorderWidthPt float64
	BorderColor   string
	BorderStyle   string

	// bullet lists only
	LeftIndentPt float64
	HangingPt    float64
}

func inspect(bs *style.BoxStyle) Inspection {
	ins := Inspection{
		Style:           bs.Name,
		Font:            bs.Font,
		SizePt:          bs.Size.Points(),
		Color:           bs.Color.CSS(),
		Bold:            bs.Bold,
		Italic:          bs.Italic,
		Casing:          bs.Casing.String(),
		SpacingBeforePt: bs.SpacingBefore.Points(),
		SpacingAfterPt:  bs.SpacingAfter.Points(),
		PaddingHPt:      bs.PaddingH.Points(),
	}
	if bs.Border != nil {
		ins.BorderWidthPt = bs.Border.Width.Points()
		ins.BorderColor = bs.Border.Color.CSS()
		ins.BorderStyle = bs.Border.Style.CSSValue()
	}
	return ins
}

// BoxedHeader is a section title inside a bordered box.
type BoxedHeader struct {
	st   *style.BoxStyle
	text string
}

// NewBoxedHeader resolves the style and prepares the header text. Casing is
// applied to the text itself, once, so both outputs carry identical content.
func NewBoxedHeader(reg *style.Registry, styleName, text string) (*BoxedHeader, error) {
	st, err := reg.Resolve(styleName)
	if err != nil {
		return nil, err
	}
	return &BoxedHeader{st: st, text: st.Casing.Apply(text)}, nil
}

func (h *BoxedHeader) Docx(parent *etree.Element) error {
	p := docx.AddParagraph(parent)
	return p.AddText(h.text).ApplyStyle(h.st)
}

func (h *BoxedHeader) HTML(parent *etree.Element) {
	el := parent.CreateElement("h2")
	el.CreateAttr("class", h.st.ID)
	el.SetText(h.text)
}

func (h *BoxedHeader) Inspect() Inspection { return inspect(h.st) }

// TextBlock is a plain paragraph of body text.
type TextBlock struct {
	st   *style.BoxStyle
	text string
}

func NewTextBlock(reg *style.Registry, styleName, text string) (*TextBlock, error) {
	st, err := reg.Resolve(styleName)
	if err != nil {
		return nil, err
	}
	return &TextBlock{st: st, text: st.Casing.Apply(text)}, nil
}

func (b *TextBlock) Docx(parent *etree.Element) error {
	p := docx.AddParagraph(parent)
	return p.AddText(b.text).ApplyStyle(b.st)
}

func (b *TextBlock) HTML(parent *etree.Element) {
	el := parent.CreateElement("p")
	el.CreateAttr("class", b.st.ID)
	el.SetText(b.text)
}

func (b *TextBlock) Inspect() Inspection { return inspect(b.st) }

// ContactLine is the identity block contact row, items separated by a
// fixed divider.
type ContactLine struct {
	st   *style.BoxStyle
	text string
}

const contactDivider = "  |  "

func NewContactLine(reg *style.Registry, styleName string, items []string) (*ContactLine, error) {
	st, err := reg.Resolve(styleName)
	if err != nil {
		return nil, err
	}
	return &ContactLine{st: st, text: st.Casing.Apply(strings.Join(items, contactDivider))}, nil
}

func (c *ContactLine) Docx(parent *etree.Element) error {
	p := docx.AddParagraph(parent)
	return p.AddText(c.text).ApplyStyle(c.st)
}

func (c *ContactLine) HTML(parent *etree.Element) {
	el := parent.CreateElement("p")
	el.CreateAttr("class", c.st.ID+" contact")
	el.SetText(c.text)
}

func (c *ContactLine) Inspect() Inspection { return inspect(c.st) }

// KeyValueBar is the two column organization / date range row. The left
// column takes the organization and optional role, the right column takes
// the dates, right aligned.
type KeyValueBar struct {
	st    *style.BoxStyle
	left  string
	right string
}

func NewKeyValueBar(reg *style.Registry, styleName, org, role, dates string) (*KeyValueBar, error) {
	st, err := reg.Resolve(styleName)
	if err != nil {
		return nil, err
	}
	left := org
	if role != "" {
		left = org + " - " + role
	}
	return &KeyValueBar{
		st:    st,
		left:  st.Casing.Apply(left),
		right: st.Casing.Apply(dates),
	}, nil
}

func (kv *KeyValueBar) Docx(parent *etree.Element) error {
	leftWidth := contentWidthTwips * 3 / 5
	rightWidth := contentWidthTwips - leftWidth

	tbl := docx.AddTable(parent, leftWidth, rightWidth)
	row := tbl.AddRow()

	lc := row.AddCell(leftWidth)
	if err := lc.AddParagraph().AddText(kv.left).ApplyStyle(kv.st); err != nil {
		return err
	}

	rc := row.AddCell(rightWidth)
	if err := rc.AddParagraph().AddText(kv.right).ApplyStyle(kv.st); err != nil {
		return err
	}
	rc.Align("right")
	return nil
}

func (kv *KeyValueBar) HTML(parent *etree.Element) {
	div := parent.CreateElement("div")
	div.CreateAttr("class", kv.st.ID+" kvbar")
	l := div.CreateElement("span")
	l.CreateAttr("class", "kv-left")
	l.SetText(kv.left)
	r := div.CreateElement("span")
	r.CreateAttr("class", "kv-right")
	r.SetText(kv.right)
}

func (kv *KeyValueBar) Inspect() Inspection { return inspect(kv.st) }

// BulletList renders a flat list of bullet items. In native mode each item
// becomes a numbered paragraph tied to the list family; in fallback mode the
// glyph is emitted as literal text and no numbering reference is written.
type BulletList struct {
	st    *style.BoxStyle
	fam   *docx.Family
	eng   *docx.Engine
	items []string
}

func NewBulletList(reg *style.Registry, styleName string, eng *docx.Engine, fam *docx.Family, items []string) (*BulletList, error) {
	st, err := reg.Resolve(styleName)
	if err != nil {
		return nil, err
	}
	cased := make([]string, len(items))
	for i, it := range items {
		cased[i] = st.Casing.Apply(it)
	}
	return &BulletList{st: st, fam: fam, eng: eng, items: cased}, nil
}

func (l *BulletList) Docx(parent *etree.Element, native bool) error {
	for _, item := range l.items {
		p := docx.AddParagraph(parent)
		text := item
		if !native {
			text = l.fam.Glyph + " " + text
		}
		if err := p.AddText(text).ApplyStyle(l.st); err != nil {
			return err
		}
		if native {
			if err := l.eng.ApplyNumbering(p, l.fam, 0); err != nil {
				return err
			}
		}
	}
	return nil
}

func (l *BulletList) HTML(parent *etree.Element) {
	ul := parent.CreateElement("ul")
	ul.CreateAttr("class", l.st.ID)
	for _, item := range l.items {
		li := ul.CreateElement("li")
		li.SetText(item)
	}
}

func (l *BulletList) Inspect() Inspection {
	ins := inspect(l.st)
	g := l.fam.Geometry()
	ins.LeftIndentPt = g.LeftIndent().Points()
	ins.HangingPt = g.Hanging().Points()
	return ins
}
