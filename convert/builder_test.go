package convert

import (
	"errors"
	"strings"
	"testing"

	"resumedoc/content"
	"resumedoc/tokens"
)

func testTokens() *tokens.Set {
	text := func(over map[string]any) map[string]any {
		m := map[string]any{
			"font":   "Georgia",
			"sizePt": "10pt",
			"color":  "#222222",
		}
		for k, v := range over {
			m[k] = v
		}
		return m
	}
	return tokens.FromMap(map[string]any{
		"identity": map[string]any{
			"name":    text(map[string]any{"sizePt": "18pt", "weight": "bold"}),
			"title":   text(map[string]any{"sizePt": "12pt", "italic": true}),
			"contact": text(map[string]any{"sizePt": "9pt", "color": "#555555"}),
		},
		"section": map[string]any{
			"header": text(map[string]any{
				"sizePt": "11pt",
				"color":  "#0D2B7E",
				"weight": "bold",
				"casing": "upper",
				"border": map[string]any{
					"widthPt": "1pt",
					"color":   "#0D2B7E",
					"style":   "single",
				},
				"paddingHorizontalPt": "0pt",
			}),
			"body":   text(nil),
			"entry":  text(map[string]any{"weight": "bold"}),
			"bullet": text(nil),
		},
		"list": map[string]any{
			"glyph":     "•",
			"bulletPos": "0.1in",
			"textPos":   "0.23in",
		},
	})
}

func testResume() *content.Resume {
	return &content.Resume{
		Identity: content.Identity{
			Name:    "Jordan Reyes",
			Title:   "Staff Software Engineer",
			Contact: []string{"jordan@example.com", "555 0100"},
		},
		Sections: []content.Section{
			{
				Header: "Summary",
				Items: []content.Item{
					{Text: "Backend engineer focused on document pipelines."},
				},
			},
			{
				Header: "Experience",
				Items: []content.Item{
					{Entry: &content.Entry{Org: "Acme Corp", Role: "Senior Engineer", Dates: "2020 - Present"}},
					{Bullets: []string{"Led migration of the rendering stack.", "Cut build times by half."}},
				},
			},
		},
	}
}

func TestBuilderRun(t *testing.T) {
	b, err := NewBuilder(testTokens(), testResume(), Options{NativeLists: true}, nil)
	if err != nil {
		t.Fatalf("NewBuilder() failed: %v", err)
	}

	res, err := b.Run()
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if b.Phase() != PhaseDone {
		t.Errorf("builder finished in phase %s, want done", b.Phase())
	}

	body := res.Package.Body()
	if got := len(body.FindElements(".//w:p")); got < 6 {
		t.Errorf("got %d paragraphs, expected the full composed document", got)
	}
	if tbl := body.FindElement(".//w:tbl"); tbl == nil {
		t.Error("entry bar table missing from the document")
	}

	// every bullet paragraph ends up with a numbering reference
	bullets := 0
	for _, p := range body.FindElements(".//w:p") {
		ps := p.FindElement("w:pPr/w:pStyle")
		if ps == nil || ps.SelectAttrValue("w:val", "") != "list-bullet" {
			continue
		}
		bullets++
		if p.FindElement("w:pPr/w:numPr/w:numId") == nil {
			t.Error("bullet paragraph without numbering reference")
		}
	}
	if bullets != 2 {
		t.Errorf("got %d bullet paragraphs, want 2", bullets)
	}

	// style table emitted
	if res.Package.Styles().FindElement("//w:style[@w:styleId='section-header']") == nil {
		t.Error("style table missing the section header record")
	}

	// markup side
	if !strings.Contains(res.Markup, "Jordan Reyes") {
		t.Error("markup missing identity name")
	}
	if !strings.Contains(res.Markup, "EXPERIENCE") {
		t.Error("markup missing upper cased section header")
	}
	if !strings.Contains(res.Markup, "<li>") {
		t.Error("markup missing bullet list items")
	}
	if !strings.Contains(res.Markup, "border: 1pt solid #0D2B7E;") {
		t.Error("markup stylesheet missing the header border rule")
	}

	if res.Report == nil {
		t.Fatal("missing reconciliation report")
	}
	if res.Report.Scanned == 0 {
		t.Error("reconciliation pass scanned nothing")
	}
	if res.Report.Errs != nil {
		t.Errorf("reconciliation reported element errors: %v", res.Report.Errs)
	}
}

func TestBuilderFallbackMode(t *testing.T) {
	b, err := NewBuilder(testTokens(), testResume(), Options{NativeLists: false}, nil)
	if err != nil {
		t.Fatal(err)
	}
	res, err := b.Run()
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	body := res.Package.Body()
	if body.FindElement(".//w:numPr") != nil {
		t.Error("fallback mode wrote a numbering reference")
	}
	found := false
	for _, tEl := range body.FindElements(".//w:t") {
		if strings.HasPrefix(tEl.Text(), "• ") {
			found = true
		}
	}
	if !found {
		t.Error("fallback mode did not emit literal glyph text")
	}
	if res.Report.Scanned != 0 || res.Report.Repaired != 0 {
		t.Errorf("fallback mode ran reconciliation: %+v", res.Report)
	}
}

func TestBuilderPhaseOrdering(t *testing.T) {
	b, err := NewBuilder(testTokens(), testResume(), Options{}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := b.postProcess(); err == nil {
		t.Error("post-process accepted before build")
	}
	if _, err := b.reconcile(); err == nil {
		t.Error("reconcile accepted before build")
	}

	if err := b.build(); err != nil {
		t.Fatalf("build() failed: %v", err)
	}
	if err := b.build(); err == nil {
		t.Error("second build pass accepted")
	}
}

func TestNewBuilderMissingToken(t *testing.T) {
	broken := tokens.FromMap(map[string]any{
		"identity": map[string]any{"name": map[string]any{"font": "Georgia"}},
	})

	_, err := NewBuilder(broken, testResume(), Options{}, nil)
	if err == nil {
		t.Fatal("builder accepted an incomplete token set")
	}
	var re *tokens.ResolutionError
	if !errors.As(err, &re) {
		t.Errorf("error %v is not a token resolution failure", err)
	}
}

func TestBuildOutputName(t *testing.T) {
	r := testResume()

	got, err := buildOutputName(r, `{{.Name}} - {{.Title}}`)
	if err != nil {
		t.Fatalf("buildOutputName() failed: %v", err)
	}
	if !strings.Contains(got, "Jordan Reyes") || !strings.Contains(got, "Staff Software Engineer") {
		t.Errorf("unexpected output name %q", got)
	}

	if _, err := buildOutputName(r, `{{.Nope}}`); err == nil {
		t.Error("template referencing unknown value accepted")
	}
	if _, err := buildOutputName(&content.Resume{}, `{{.Name}}`); err == nil {
		t.Error("empty expansion accepted")
	}
}
