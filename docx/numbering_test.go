package docx

import (
	"errors"
	"strconv"
	"testing"

	"resumedoc/tokens"
)

func TestGeometryFromVisualPositions(t *testing.T) {
	tests := []struct {
		name        string
		bulletIn    float64
		textIn      float64
		wantLeft    int
		wantHanging int
	}{
		{"resume defaults", 0.1, 0.23, 331, 187},
		{"quarter and half inch", 0.25, 0.5, 720, 360},
		{"tight", 0.05, 0.15, 216, 144},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Geometry{BulletPos: tokens.Inches(tt.bulletIn), TextPos: tokens.Inches(tt.textIn)}
			if got := g.LeftIndent().Twips(); got != tt.wantLeft {
				t.Errorf("left indent = %d twips, want %d", got, tt.wantLeft)
			}
			if got := g.Hanging().Twips(); got != tt.wantHanging {
				t.Errorf("hanging = %d twips, want %d", got, tt.wantHanging)
			}
		})
	}
}

func TestGeometryRejectsInvertedPositions(t *testing.T) {
	eng := NewEngine(NewPackage())
	_, err := eng.AllocateFamily("•", "Calibri", Geometry{
		BulletPos: tokens.Inches(0.3),
		TextPos:   tokens.Inches(0.1),
	})
	if err == nil {
		t.Fatal("AllocateFamily() accepted text position left of bullet position")
	}
}

func TestAllocateDistinctIDs(t *testing.T) {
	pkg := NewPackage()
	eng := NewEngine(pkg)
	geom := Geometry{BulletPos: tokens.Inches(0.1), TextPos: tokens.Inches(0.23)}

	seen := make(map[int]bool)
	for i := 0; i < 5; i++ {
		fam, err := eng.AllocateFamily("•", "Calibri", geom)
		if err != nil {
			t.Fatalf("AllocateFamily() #%d failed: %v", i, err)
		}
		if seen[fam.NumID] {
			t.Fatalf("duplicate numbering id %d", fam.NumID)
		}
		seen[fam.NumID] = true
	}

	root := pkg.Numbering().Root()
	if got := len(root.SelectElements("w:abstractNum")); got != 5 {
		t.Errorf("abstract definitions = %d, want 5", got)
	}
	if got := len(root.SelectElements("w:num")); got != 5 {
		t.Errorf("num mappings = %d, want 5", got)
	}
	// schema order: all abstract definitions precede all mappings
	sawNum := false
	for _, el := range root.ChildElements() {
		switch el.Tag {
		case "num":
			sawNum = true
		case "abstractNum":
			if sawNum {
				t.Fatal("abstract definition emitted after a num mapping")
			}
		}
	}
}

func TestAllocateAboveExistingIDs(t *testing.T) {
	pkg := NewPackage()
	root := pkg.Numbering().Root()
	for _, id := range []string{"3", "17", "9"} {
		num := root.CreateElement("w:num")
		num.CreateAttr("w:numId", id)
	}

	eng := NewEngine(pkg)
	fam, err := eng.AllocateFamily("•", "Calibri", Geometry{
		BulletPos: tokens.Inches(0.1), TextPos: tokens.Inches(0.23),
	})
	if err != nil {
		t.Fatalf("AllocateFamily() failed: %v", err)
	}
	if fam.NumID != 18 {
		t.Errorf("NumID = %d, want max existing + 1 = 18", fam.NumID)
	}
}

func TestAllocationFailsOnMalformedTable(t *testing.T) {
	pkg := NewPackage()
	num := pkg.Numbering().Root().CreateElement("w:num")
	num.CreateAttr("w:numId", "not-a-number")

	eng := NewEngine(pkg)
	_, err := eng.AllocateFamily("•", "Calibri", Geometry{
		BulletPos: tokens.Inches(0.1), TextPos: tokens.Inches(0.23),
	})
	if err == nil {
		t.Fatal("AllocateFamily() succeeded on malformed table")
	}
	var ae *AllocationError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AllocationError, got %T: %v", err, err)
	}
}

func TestLevelGeometryInDefinition(t *testing.T) {
	pkg := NewPackage()
	eng := NewEngine(pkg)
	fam, err := eng.AllocateFamily("•", "Calibri", Geometry{
		BulletPos: tokens.Inches(0.1), TextPos: tokens.Inches(0.23),
	})
	if err != nil {
		t.Fatalf("AllocateFamily() failed: %v", err)
	}

	abstract := pkg.Numbering().Root().SelectElement("w:abstractNum")
	levels := abstract.SelectElements("w:lvl")
	if len(levels) != fam.Levels {
		t.Fatalf("levels = %d, want %d", len(levels), fam.Levels)
	}
	for i, lvl := range levels {
		ind := lvl.SelectElement("w:pPr").SelectElement("w:ind")
		wantLeft := 331 + i*331
		if got := ind.SelectAttrValue("w:left", ""); got != strconv.Itoa(wantLeft) {
			t.Errorf("level %d left = %s, want %d", i, got, wantLeft)
		}
		if got := ind.SelectAttrValue("w:hanging", ""); got != "187" {
			t.Errorf("level %d hanging = %s, want 187", i, got)
		}
	}
}

func TestApplyNumberingPlacement(t *testing.T) {
	pkg := NewPackage()
	eng := NewEngine(pkg)
	fam, err := eng.AllocateFamily("•", "Calibri", Geometry{
		BulletPos: tokens.Inches(0.1), TextPos: tokens.Inches(0.23),
	})
	if err != nil {
		t.Fatalf("AllocateFamily() failed: %v", err)
	}

	p := AddParagraph(pkg.Body())
	p.AddText("item")
	if err := eng.ApplyNumbering(p, fam, 1); err != nil {
		t.Fatalf("ApplyNumbering() failed: %v", err)
	}

	numPr := p.Element().SelectElement("w:pPr").SelectElement("w:numPr")
	if numPr == nil {
		t.Fatal("numbering reference missing")
	}
	if got := numPr.SelectElement("w:ilvl").SelectAttrValue("w:val", ""); got != "1" {
		t.Errorf("ilvl = %s, want 1", got)
	}
	if got := numPr.SelectElement("w:numId").SelectAttrValue("w:val", ""); got != strconv.Itoa(fam.NumID) {
		t.Errorf("numId = %s, want %d", got, fam.NumID)
	}

	if err := eng.ApplyNumbering(p, fam, fam.Levels); err == nil {
		t.Error("ApplyNumbering() accepted out of range level")
	}
}
