package docx

import (
	"fmt"
	"strconv"

	"github.com/beevik/etree"

	"resumedoc/tokens"
)

// numbering ids are signed 32 bit in the format; leave headroom
const maxNumberingID = 1<<31 - 2

// AllocationError reports an unusable numbering table or exhausted id space.
// Fatal for the build; a caller may retry on a fresh package.
type AllocationError struct {
	Reason string
}

func (e *AllocationError) Error() string {
	return "numbering allocation: " + e.Reason
}

// Geometry describes bullet layout by the two visually meaningful positions:
// where the glyph sits and where the text starts, both measured from the
// margin. The format wants left indent and hanging indent instead; the
// conversion lives here and nowhere else.
type Geometry struct {
	BulletPos tokens.Length
	TextPos   tokens.Length
}

// LeftIndent is the paragraph left indent: the text position itself.
func (g Geometry) LeftIndent() tokens.Length { return g.TextPos }

// Hanging is how far the glyph hangs left of the text: textPos - bulletPos.
func (g Geometry) Hanging() tokens.Length { return g.TextPos.Sub(g.BulletPos) }

func (g Geometry) validate() error {
	if g.TextPos.Points() <= g.BulletPos.Points() {
		return fmt.Errorf("text position %v must lie right of bullet position %v", g.TextPos, g.BulletPos)
	}
	return nil
}

// Family is one allocated numbering definition: a bullet glyph plus leveled
// geometry shared by every list item using the same visual bullet style.
type Family struct {
	NumID      int
	AbstractID int
	Glyph      string
	Levels     int
	geom       Geometry
}

// Geometry returns the level zero geometry of the family.
func (f *Family) Geometry() Geometry { return f.geom }

// Engine allocates numbering definitions for exactly one document build.
// Never share an instance across builds: concurrent builds seeing each
// other's counters is how cross-document numbering corruption happens.
type Engine struct {
	pkg    *Package
	nextID int // 0 until the existing table has been scanned
	levels int
}

// NewEngine creates a numbering engine bound to one package build.
func NewEngine(pkg *Package) *Engine {
	return &Engine{pkg: pkg, levels: 3}
}

// AllocateFamily creates one bullet family with the given glyph and font.
// Ids are strictly greater than anything already present in the package;
// the existing table is scanned once and the maximum cached.
func (e *Engine) AllocateFamily(glyph, font string, geom Geometry) (*Family, error) {
	if err := geom.validate(); err != nil {
		return nil, &AllocationError{Reason: err.Error()}
	}
	root, err := e.numberingRoot()
	if err != nil {
		return nil, err
	}
	if e.nextID == 0 {
		if e.nextID, err = scanMaxNumberingID(root); err != nil {
			return nil, err
		}
		e.nextID++
	}
	if e.nextID > maxNumberingID {
		return nil, &AllocationError{Reason: "id space exhausted"}
	}

	fam := &Family{
		NumID:      e.nextID,
		AbstractID: e.nextID,
		Glyph:      glyph,
		Levels:     e.levels,
		geom:       geom,
	}
	e.nextID++

	abstract := etree.NewElement("w:abstractNum")
	abstract.CreateAttr("w:abstractNumId", strconv.Itoa(fam.AbstractID))
	for lvl := 0; lvl < fam.Levels; lvl++ {
		level := abstract.CreateElement("w:lvl")
		level.CreateAttr("w:ilvl", strconv.Itoa(lvl))
		start := level.CreateElement("w:start")
		start.CreateAttr("w:val", "1")
		numFmt := level.CreateElement("w:numFmt")
		numFmt.CreateAttr("w:val", "bullet")
		lvlText := level.CreateElement("w:lvlText")
		lvlText.CreateAttr("w:val", glyph)
		lvlJc := level.CreateElement("w:lvlJc")
		lvlJc.CreateAttr("w:val", "left")

		pPr := level.CreateElement("w:pPr")
		ind := pPr.CreateElement("w:ind")
		ind.CreateAttr("w:left", strconv.Itoa(fam.LeftIndentTwips(lvl)))
		ind.CreateAttr("w:hanging", strconv.Itoa(fam.HangingTwips()))

		rPr := level.CreateElement("w:rPr")
		fonts := rPr.CreateElement("w:rFonts")
		fonts.CreateAttr("w:ascii", font)
		fonts.CreateAttr("w:hAnsi", font)
	}

	num := etree.NewElement("w:num")
	num.CreateAttr("w:numId", strconv.Itoa(fam.NumID))
	abstractRef := num.CreateElement("w:abstractNumId")
	abstractRef.CreateAttr("w:val", strconv.Itoa(fam.AbstractID))

	// schema order: abstract definitions strictly before num mappings
	insertAbstractNum(root, abstract)
	root.AddChild(num)
	return fam, nil
}

// LeftIndentTwips is the paragraph left indent for a level: each nesting
// level shifts the whole geometry right by one text position.
func (f *Family) LeftIndentTwips(level int) int {
	return f.geom.LeftIndent().Twips() + level*f.geom.TextPos.Twips()
}

// HangingTwips is constant across levels: the glyph to text offset does not
// change with nesting.
func (f *Family) HangingTwips() int {
	return f.geom.Hanging().Twips()
}

// ApplyNumbering attaches the family's numbering reference to a paragraph at
// the given level. It only ever adds the reference; everything else on the
// paragraph is owned by the style layer.
func (e *Engine) ApplyNumbering(p *Paragraph, fam *Family, level int) error {
	if fam == nil {
		return &AllocationError{Reason: "no family allocated"}
	}
	if level < 0 || level >= fam.Levels {
		return fmt.Errorf("numbering level %d out of range [0, %d)", level, fam.Levels)
	}
	applyNumberingTo(p.el, fam, level)
	return nil
}

func applyNumberingTo(p *etree.Element, fam *Family, level int) {
	pPr := paragraphProps(p)
	if old := pPr.SelectElement("w:numPr"); old != nil {
		pPr.RemoveChild(old)
	}
	numPr := etree.NewElement("w:numPr")
	ilvl := numPr.CreateElement("w:ilvl")
	ilvl.CreateAttr("w:val", strconv.Itoa(level))
	numID := numPr.CreateElement("w:numId")
	numID.CreateAttr("w:val", strconv.Itoa(fam.NumID))

	// numPr follows pStyle when present, otherwise leads
	pos := 0
	if ps := pPr.SelectElement("w:pStyle"); ps != nil {
		pos = indexOfChild(pPr, ps) + 1
	}
	pPr.InsertChildAt(pos, numPr)
}

func (e *Engine) numberingRoot() (*etree.Element, error) {
	if e.pkg == nil || e.pkg.numbering == nil {
		return nil, &AllocationError{Reason: "package has no numbering table"}
	}
	root := e.pkg.numbering.Root()
	if root == nil || root.Tag != "numbering" {
		return nil, &AllocationError{Reason: "numbering table unreadable"}
	}
	return root, nil
}

// scanMaxNumberingID walks the table once and returns the largest id used by
// either a num mapping or an abstract definition.
func scanMaxNumberingID(root *etree.Element) (int, error) {
	maxID := 0
	for _, el := range root.ChildElements() {
		var attr string
		switch el.Tag {
		case "num":
			attr = el.SelectAttrValue("w:numId", "")
		case "abstractNum":
			attr = el.SelectAttrValue("w:abstractNumId", "")
		default:
			continue
		}
		if attr == "" {
			continue
		}
		v, err := strconv.Atoi(attr)
		if err != nil {
			return 0, &AllocationError{Reason: fmt.Sprintf("malformed id %q in numbering table", attr)}
		}
		if v > maxID {
			maxID = v
		}
	}
	return maxID, nil
}

// insertAbstractNum places an abstract definition after the last existing
// one, before any num mapping.
func insertAbstractNum(root *etree.Element, abstract *etree.Element) {
	insertAt := 0
	for i, tok := range root.Child {
		if el, ok := tok.(*etree.Element); ok {
			if el.Tag == "abstractNum" {
				insertAt = i + 1
			}
		}
	}
	if insertAt == 0 {
		// also skip past any leading non-element tokens
		root.InsertChildAt(0, abstract)
		return
	}
	root.InsertChildAt(insertAt, abstract)
}
