package render

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"text/template"

	"github.com/beevik/etree"
	sprig "github.com/go-task/slim-sprig/v3"

	"resumedoc/docx"
	"resumedoc/style"
)

// Markup accumulates the document body fragment. Components append to its
// root; Document wraps the result into a standalone page.
type Markup struct {
	doc  *etree.Document
	root *etree.Element
}

// NewMarkup creates an empty body fragment.
func NewMarkup() *Markup {
	doc := etree.NewDocument()
	doc.WriteSettings = etree.WriteSettings{
		CanonicalText:    true,
		CanonicalAttrVal: true,
	}
	root := doc.CreateElement("div")
	root.CreateAttr("class", "resume")
	return &Markup{doc: doc, root: root}
}

// Root returns the fragment container element for components to append to.
func (m *Markup) Root() *etree.Element { return m.root }

// String serializes the fragment.
func (m *Markup) String() (string, error) {
	m.doc.Indent(2)
	s, err := m.doc.WriteToString()
	if err != nil {
		return "", fmt.Errorf("unable to serialize markup: %w", err)
	}
	return s, nil
}

// pt formats a point measure for CSS, rounded to a hundredth of a point so
// binary float residue never leaks into the sheet.
func pt(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64) + "pt"
}

// StyleSheet derives page CSS from the registry, one rule per registered
// style keyed by the same slug the wordprocessing output uses as style id.
// Casing is applied to text content by the components, never here, so the
// sheet carries no text-transform rules.
func StyleSheet(reg *style.Registry, bulletGeom docx.Geometry) string {
	var sb strings.Builder
	for _, bs := range reg.Styles() {
		sb.WriteString("." + bs.ID + " {\n")
		fmt.Fprintf(&sb, "  font-family: %q;\n", bs.Font)
		fmt.Fprintf(&sb, "  font-size: %s;\n", pt(bs.Size.Points()))
		fmt.Fprintf(&sb, "  color: %s;\n", bs.Color.CSS())
		if bs.Bold {
			sb.WriteString("  font-weight: bold;\n")
		}
		if bs.Italic {
			sb.WriteString("  font-style: italic;\n")
		}
		if !bs.SpacingBefore.IsZero() {
			fmt.Fprintf(&sb, "  margin-top: %s;\n", pt(bs.SpacingBefore.Points()))
		}
		if !bs.SpacingAfter.IsZero() {
			fmt.Fprintf(&sb, "  margin-bottom: %s;\n", pt(bs.SpacingAfter.Points()))
		}
		if bs.Border != nil {
			fmt.Fprintf(&sb, "  border: %s %s %s;\n",
				pt(bs.Border.Width.Points()), bs.Border.Style.CSSValue(), bs.Border.Color.CSS())
			fmt.Fprintf(&sb, "  padding: 0pt %s;\n", pt(bs.PaddingH.Points()))
		}
		if bs.Bullet {
			fmt.Fprintf(&sb, "  padding-left: %s;\n", pt(bulletGeom.LeftIndent().Points()))
			fmt.Fprintf(&sb, "  text-indent: -%s;\n", pt(bulletGeom.Hanging().Points()))
			sb.WriteString("  list-style-position: inside;\n")
		}
		sb.WriteString("}\n")
	}
	return sb.String()
}

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8"/>
<title>{{ .Title | trim }}</title>
<style>
{{ .CSS }}</style>
</head>
<body>
{{ .Body }}</body>
</html>
`

type pageValues struct {
	Title string
	CSS   string
	Body  string
}

// Document assembles a standalone page around the body fragment, with the
// registry derived stylesheet inlined.
func Document(title string, reg *style.Registry, bulletGeom docx.Geometry, m *Markup) (string, error) {
	body, err := m.String()
	if err != nil {
		return "", err
	}

	tmpl, err := template.New("page").Funcs(sprig.FuncMap()).Parse(pageTemplate)
	if err != nil {
		return "", fmt.Errorf("unable to parse page template: %w", err)
	}

	buf := new(bytes.Buffer)
	err = tmpl.Execute(buf, pageValues{
		Title: title,
		CSS:   StyleSheet(reg, bulletGeom),
		Body:  body,
	})
	if err != nil {
		return "", fmt.Errorf("unable to expand page template: %w", err)
	}
	return buf.String(), nil
}
