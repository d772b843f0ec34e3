package docx

import (
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"resumedoc/style"
	"resumedoc/tokens"
)

const reconcileTokens = `
styles:
  body:
    font: Calibri
    sizePt: 10.5
    color: "#1A1A1A"
  bullet:
    font: Calibri
    sizePt: 10.5
    color: "#1A1A1A"
`

type reconcileFixture struct {
	pkg *Package
	reg *style.Registry
	eng *Engine
	fam *Family
	bs  *style.BoxStyle // bullet style
	pl  *style.BoxStyle // plain style
}

func newReconcileFixture(t *testing.T) *reconcileFixture {
	t.Helper()
	toks, err := tokens.Load([]byte(reconcileTokens))
	if err != nil {
		t.Fatalf("tokens.Load() failed: %v", err)
	}
	reg := style.NewRegistry(toks)
	pl, err := reg.Register("Body", "styles.body")
	if err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	bs, err := reg.RegisterBullet("List Bullet", "styles.bullet")
	if err != nil {
		t.Fatalf("RegisterBullet() failed: %v", err)
	}

	pkg := NewPackage()
	eng := NewEngine(pkg)
	fam, err := eng.AllocateFamily("•", "Calibri", Geometry{
		BulletPos: tokens.Inches(0.1), TextPos: tokens.Inches(0.23),
	})
	if err != nil {
		t.Fatalf("AllocateFamily() failed: %v", err)
	}
	return &reconcileFixture{pkg: pkg, reg: reg, eng: eng, fam: fam, bs: bs, pl: pl}
}

// addBullet creates a bullet styled paragraph; numbered controls whether the
// builder finished its job or the build was interrupted before numbering.
func (f *reconcileFixture) addBullet(t *testing.T, text string, numbered bool) *Paragraph {
	t.Helper()
	p := AddParagraph(f.pkg.Body())
	if err := p.AddText(text).ApplyStyle(f.bs); err != nil {
		t.Fatalf("ApplyStyle() failed: %v", err)
	}
	if numbered {
		if err := f.eng.ApplyNumbering(p, f.fam, 0); err != nil {
			t.Fatalf("ApplyNumbering() failed: %v", err)
		}
	}
	return p
}

func (f *reconcileFixture) run(t *testing.T) *Report {
	t.Helper()
	rpt, err := Reconcile(f.pkg, f.reg, f.eng, f.fam, Thresholds{}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Reconcile() failed: %v", err)
	}
	return rpt
}

func TestReconcileInterruptedBuild(t *testing.T) {
	f := newReconcileFixture(t)

	// 500 bullets, 10 of which never received numbering
	for i := 0; i < 500; i++ {
		f.addBullet(t, "accomplishment", i%50 != 0)
	}

	rpt := f.run(t)
	if rpt.Repaired != 10 {
		t.Errorf("Repaired = %d, want 10", rpt.Repaired)
	}
	if rpt.Scanned != 500 {
		t.Errorf("Scanned = %d, want 500", rpt.Scanned)
	}
	if got := len(f.pkg.Body().FindElements(".//w:p")); got != 500 {
		t.Errorf("paragraph count changed to %d, reconciliation must never delete", got)
	}
	for _, p := range f.pkg.Body().FindElements(".//w:p") {
		if p.SelectElement("w:pPr").SelectElement("w:numPr") == nil {
			t.Fatal("bullet styled paragraph left without numbering reference")
		}
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	f := newReconcileFixture(t)
	for i := 0; i < 20; i++ {
		f.addBullet(t, "item", i%2 == 0)
	}

	first := f.run(t)
	if first.Repaired != 10 {
		t.Fatalf("first pass Repaired = %d, want 10", first.Repaired)
	}

	before, err := f.pkg.Document().WriteToBytes()
	if err != nil {
		t.Fatalf("serialize failed: %v", err)
	}

	second := f.run(t)
	if second.Repaired != 0 {
		t.Errorf("second pass Repaired = %d, want 0", second.Repaired)
	}
	after, err := f.pkg.Document().WriteToBytes()
	if err != nil {
		t.Fatalf("serialize failed: %v", err)
	}
	if string(before) != string(after) {
		t.Error("second pass changed the document")
	}
}

func TestReconcileReachesTableCells(t *testing.T) {
	f := newReconcileFixture(t)

	tbl := AddTable(f.pkg.Body(), 5000, 5000)
	cell := tbl.AddRow().AddCell(5000)
	p := cell.AddParagraph()
	if err := p.AddText("nested accomplishment").ApplyStyle(f.bs); err != nil {
		t.Fatalf("ApplyStyle() failed: %v", err)
	}

	rpt := f.run(t)
	if rpt.Repaired != 1 {
		t.Fatalf("Repaired = %d, want the table nested bullet repaired", rpt.Repaired)
	}
	if p.Element().SelectElement("w:pPr").SelectElement("w:numPr") == nil {
		t.Error("nested bullet still missing numbering")
	}
}

func TestReconcilePreservesLevelAndStripsGlyphs(t *testing.T) {
	f := newReconcileFixture(t)

	// dangling level marker without an id
	p1 := f.addBullet(t, "nested item", false)
	pPr := p1.Element().SelectElement("w:pPr")
	numPr := pPr.CreateElement("w:numPr")
	ilvl := numPr.CreateElement("w:ilvl")
	ilvl.CreateAttr("w:val", "2")

	// literal glyph pre-pended by a content source
	p2 := f.addBullet(t, "• doubled bullet", false)
	p3 := f.addBullet(t, "- dashed bullet", false)

	rpt := f.run(t)
	if rpt.Repaired != 3 {
		t.Fatalf("Repaired = %d, want 3", rpt.Repaired)
	}

	got := p1.Element().SelectElement("w:pPr").SelectElement("w:numPr")
	if got.SelectElement("w:ilvl").SelectAttrValue("w:val", "") != "2" {
		t.Error("pre-existing nesting level flattened")
	}
	if got.SelectElement("w:numId") == nil {
		t.Error("dangling numbering reference not completed")
	}
	if text := p2.Element().FindElement(".//w:t").Text(); text != "doubled bullet" {
		t.Errorf("glyph not stripped: %q", text)
	}
	if text := p3.Element().FindElement(".//w:t").Text(); text != "dashed bullet" {
		t.Errorf("dash not stripped: %q", text)
	}
}

func TestReconcileSkipsPlainParagraphs(t *testing.T) {
	f := newReconcileFixture(t)

	p := AddParagraph(f.pkg.Body())
	if err := p.AddText("just text").ApplyStyle(f.pl); err != nil {
		t.Fatalf("ApplyStyle() failed: %v", err)
	}
	AddParagraph(f.pkg.Body()).AddText("unstyled")

	rpt := f.run(t)
	if rpt.Repaired != 0 {
		t.Errorf("Repaired = %d, want 0", rpt.Repaired)
	}
	if p.Element().SelectElement("w:pPr").SelectElement("w:numPr") != nil {
		t.Error("plain paragraph received a numbering reference")
	}
}

func TestReconcileIsolatesElementErrors(t *testing.T) {
	f := newReconcileFixture(t)

	bad := f.addBullet(t, "broken", false)
	pPr := bad.Element().SelectElement("w:pPr")
	numPr := pPr.CreateElement("w:numPr")
	ilvl := numPr.CreateElement("w:ilvl")
	ilvl.CreateAttr("w:val", "NaN")

	f.addBullet(t, "fine", false)

	rpt := f.run(t)
	if rpt.Repaired != 1 {
		t.Errorf("Repaired = %d, want the healthy element repaired", rpt.Repaired)
	}
	if rpt.Errs == nil {
		t.Error("element failure not recorded in report")
	}
}

func TestReconcileRepairsHeaderParts(t *testing.T) {
	f := newReconcileFixture(t)

	header := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:hdr xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
		`<w:p><w:pPr><w:pStyle w:val="list-bullet"/></w:pPr><w:r><w:t>header item</w:t></w:r></w:p>` +
		`</w:hdr>`
	f.pkg.SetRawPart("word/header1.xml", []byte(header))

	rpt := f.run(t)
	if rpt.Repaired != 1 {
		t.Fatalf("Repaired = %d, want header bullet repaired", rpt.Repaired)
	}
	data, _ := f.pkg.RawPart("word/header1.xml")
	if !strings.Contains(string(data), "w:numPr") {
		t.Error("header part not rewritten with numbering reference")
	}
}
