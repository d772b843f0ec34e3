package docx

import (
	"fmt"
	"strconv"

	"github.com/beevik/etree"

	"resumedoc/style"
)

// OrderingError reports a style application attempted before the element
// received content. The underlying format silently drops styles assigned to
// content-less elements, so this ordering is enforced, not advised.
type OrderingError struct {
	Op string
}

func (e *OrderingError) Error() string {
	return fmt.Sprintf("%s: style applied before content was set", e.Op)
}

// Paragraph wraps a w:p element under construction.
type Paragraph struct {
	el *etree.Element
}

// AddParagraph appends a new paragraph to parent, keeping the trailing
// section properties last when parent is the document body.
func AddParagraph(parent *etree.Element) *Paragraph {
	p := etree.NewElement("w:p")
	insertBeforeSectPr(parent, p)
	return &Paragraph{el: p}
}

// Element exposes the underlying node for the numbering and reconciliation
// layers, which only ever add properties the style layer does not own.
func (p *Paragraph) Element() *etree.Element { return p.el }

// StyledText is the proof that a paragraph has content. ApplyStyle lives
// here and not on Paragraph, so "style before content" cannot be written.
type StyledText struct {
	p   *Paragraph
	run *etree.Element
}

// AddText appends a text run and returns the styleable handle for it.
func (p *Paragraph) AddText(text string) *StyledText {
	run := p.el.CreateElement("w:r")
	t := run.CreateElement("w:t")
	t.CreateAttr("xml:space", "preserve")
	t.SetText(text)
	return &StyledText{p: p, run: run}
}

// ApplyStyle attaches a named style to the paragraph holding this text.
// The handle check backs up the compile-time ordering guarantee at runtime.
func (st *StyledText) ApplyStyle(bs *style.BoxStyle) error {
	if st == nil || st.p == nil || st.run == nil {
		return &OrderingError{Op: "ApplyStyle"}
	}
	if st.run.SelectElement("w:t") == nil {
		return &OrderingError{Op: "ApplyStyle"}
	}
	pPr := paragraphProps(st.p.el)
	if ps := pPr.SelectElement("w:pStyle"); ps != nil {
		pPr.RemoveChild(ps)
	}
	ps := etree.NewElement("w:pStyle")
	ps.CreateAttr("w:val", bs.ID)
	pPr.InsertChildAt(0, ps)
	return nil
}

// Paragraph returns the styled paragraph, for callers that need to continue
// working with it (numbering application).
func (st *StyledText) Paragraph() *Paragraph { return st.p }

// Table wraps a w:tbl element.
type Table struct {
	el *etree.Element
}

// AddTable appends a borderless fixed-layout table with the given column
// widths in twips. Used for two-column bars; it is layout, not decoration.
func AddTable(parent *etree.Element, colWidths ...int) *Table {
	tbl := etree.NewElement("w:tbl")
	insertBeforeSectPr(parent, tbl)

	pr := tbl.CreateElement("w:tblPr")
	layout := pr.CreateElement("w:tblLayout")
	layout.CreateAttr("w:type", "fixed")
	total := 0
	for _, w := range colWidths {
		total += w
	}
	tw := pr.CreateElement("w:tblW")
	tw.CreateAttr("w:w", strconv.Itoa(total))
	tw.CreateAttr("w:type", "dxa")

	grid := tbl.CreateElement("w:tblGrid")
	for _, w := range colWidths {
		col := grid.CreateElement("w:gridCol")
		col.CreateAttr("w:w", strconv.Itoa(w))
	}
	return &Table{el: tbl}
}

// Element exposes the underlying table node.
func (t *Table) Element() *etree.Element { return t.el }

// Row is a table row under construction.
type Row struct {
	el *etree.Element
}

func (t *Table) AddRow() *Row {
	return &Row{el: t.el.CreateElement("w:tr")}
}

// Cell is a table cell; content is added through the same content-first
// paragraph builder.
type Cell struct {
	el *etree.Element
}

// AddCell appends a cell of the given width in twips.
func (r *Row) AddCell(widthTwips int) *Cell {
	tc := r.el.CreateElement("w:tc")
	pr := tc.CreateElement("w:tcPr")
	tw := pr.CreateElement("w:tcW")
	tw.CreateAttr("w:w", strconv.Itoa(widthTwips))
	tw.CreateAttr("w:type", "dxa")
	return &Cell{el: tc}
}

// AddParagraph starts a paragraph inside the cell.
func (c *Cell) AddParagraph() *Paragraph {
	return AddParagraph(c.el)
}

// Align sets horizontal alignment ("left", "right", "center") on every
// paragraph already present in the cell.
func (c *Cell) Align(jc string) {
	for _, p := range c.el.SelectElements("w:p") {
		pPr := paragraphProps(p)
		if old := pPr.SelectElement("w:jc"); old != nil {
			pPr.RemoveChild(old)
		}
		el := pPr.CreateElement("w:jc")
		el.CreateAttr("w:val", jc)
	}
}

// paragraphProps returns the w:pPr child, creating it as the first child.
// Property order inside is managed by the callers (pStyle, then numPr).
func paragraphProps(p *etree.Element) *etree.Element {
	if pPr := p.SelectElement("w:pPr"); pPr != nil {
		return pPr
	}
	pPr := etree.NewElement("w:pPr")
	p.InsertChildAt(0, pPr)
	return pPr
}

// insertBeforeSectPr appends el to parent but keeps w:sectPr terminal.
func insertBeforeSectPr(parent *etree.Element, el *etree.Element) {
	children := parent.ChildElements()
	for i, ch := range children {
		if ch.Tag == "sectPr" && ch.Space == "w" {
			parent.InsertChildAt(indexOfChild(parent, children[i]), el)
			return
		}
	}
	parent.AddChild(el)
}

func indexOfChild(parent *etree.Element, child *etree.Element) int {
	for i, tok := range parent.Child {
		if el, ok := tok.(*etree.Element); ok && el == child {
			return i
		}
	}
	return len(parent.Child)
}
