package docx

import (
	"fmt"
	"strconv"

	"github.com/beevik/etree"

	"resumedoc/style"
)

// WriteStyles emits one w:style record per registered BoxStyle into the
// package style table, in registration order. Existing records with the same
// id (from an extended base package) are replaced so the registry stays the
// single writer for every visual property it controls.
func WriteStyles(pkg *Package, reg *style.Registry) error {
	root := pkg.styles.Root()
	if root == nil || root.Tag != "styles" {
		return fmt.Errorf("style table unreadable")
	}

	for _, bs := range reg.Styles() {
		removeStyleByID(root, bs.ID)
		root.AddChild(buildStyleElement(bs, reg))
	}
	return nil
}

func removeStyleByID(root *etree.Element, id string) {
	for _, el := range root.SelectElements("w:style") {
		if el.SelectAttrValue("w:styleId", "") == id {
			root.RemoveChild(el)
			return
		}
	}
}

func buildStyleElement(bs *style.BoxStyle, reg *style.Registry) *etree.Element {
	st := etree.NewElement("w:style")
	st.CreateAttr("w:type", "paragraph")
	st.CreateAttr("w:styleId", bs.ID)

	name := st.CreateElement("w:name")
	name.CreateAttr("w:val", bs.Name)

	if bs.BasedOn != "" {
		if base, err := reg.Resolve(bs.BasedOn); err == nil {
			basedOn := st.CreateElement("w:basedOn")
			basedOn.CreateAttr("w:val", base.ID)
		}
	}

	pPr := st.CreateElement("w:pPr")
	spacing := pPr.CreateElement("w:spacing")
	spacing.CreateAttr("w:before", strconv.Itoa(bs.SpacingBefore.Twips()))
	spacing.CreateAttr("w:after", strconv.Itoa(bs.SpacingAfter.Twips()))

	if bs.Border != nil {
		pBdr := pPr.CreateElement("w:pBdr")
		for _, side := range []string{"w:top", "w:left", "w:bottom", "w:right"} {
			edge := pBdr.CreateElement(side)
			edge.CreateAttr("w:val", bs.Border.Style.XMLValue())
			edge.CreateAttr("w:sz", strconv.Itoa(bs.Border.Width.EighthPoints()))
			// border to text distance in points
			edge.CreateAttr("w:space", strconv.Itoa(int(bs.PaddingH.Points())))
			edge.CreateAttr("w:color", bs.Border.Color.Hex())
		}
	}

	rPr := st.CreateElement("w:rPr")
	fonts := rPr.CreateElement("w:rFonts")
	fonts.CreateAttr("w:ascii", bs.Font)
	fonts.CreateAttr("w:hAnsi", bs.Font)
	if bs.Bold {
		rPr.CreateElement("w:b")
	}
	if bs.Italic {
		rPr.CreateElement("w:i")
	}
	sz := rPr.CreateElement("w:sz")
	sz.CreateAttr("w:val", strconv.Itoa(bs.Size.HalfPoints()))
	szCs := rPr.CreateElement("w:szCs")
	szCs.CreateAttr("w:val", strconv.Itoa(bs.Size.HalfPoints()))
	color := rPr.CreateElement("w:color")
	color.CreateAttr("w:val", bs.Color.Hex())

	return st
}
