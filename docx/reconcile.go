package docx

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"resumedoc/style"
)

// Report is the reconciliation outcome: observability only, never control
// flow. Errs collects per-element failures that were skipped over.
type Report struct {
	Scanned  int
	Repaired int
	Elapsed  time.Duration
	Errs     error
}

// Thresholds are the guard rails for the pass. Exceeding them produces a
// warning, never an abort.
type Thresholds struct {
	WarnAfter    time.Duration
	WarnElements int
}

// glyphs content sources are known to prepend; stripped before native
// numbering is attached so documents never show double bullets
var literalBulletPrefixes = []string{"•", "◦", "▪", "–", "-", "*"}

// Reconcile walks the entire structural tree - body, tables, headers and
// footers - and attaches a missing numbering reference to every element
// styled with a bullet family style. Elements are only ever added to, never
// deleted or recreated. Running it on an already correct document changes
// nothing.
//
// A per-element failure is logged and collected; the walk continues. Only an
// unreadable tree aborts the pass, leaving the document exactly as it was.
func Reconcile(pkg *Package, reg *style.Registry, eng *Engine, fam *Family, thr Thresholds, log *zap.Logger) (*Report, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("reconcile")
	start := time.Now()
	rpt := &Report{}

	if pkg == nil || pkg.doc == nil {
		return nil, fmt.Errorf("no document to reconcile")
	}
	body := pkg.doc.FindElement("//w:body")
	if body == nil {
		return nil, fmt.Errorf("document body unreadable, leaving package as is")
	}
	if fam == nil {
		return nil, fmt.Errorf("no bullet family to reconcile against")
	}

	// main part: FindElements descends into tables and every other container
	reconcileTree(body, reg, fam, rpt, log)

	// nested container parts
	for _, name := range pkg.HeaderFooterParts() {
		data, ok := pkg.RawPart(name)
		if !ok {
			continue
		}
		doc := etree.NewDocument()
		if err := doc.ReadFromBytes(data); err != nil {
			rpt.Errs = multierr.Append(rpt.Errs, fmt.Errorf("part %s: %w", name, err))
			log.Warn("Skipping unreadable container part", zap.String("part", name), zap.Error(err))
			continue
		}
		repairedBefore := rpt.Repaired
		if root := doc.Root(); root != nil {
			reconcileTree(root, reg, fam, rpt, log)
		}
		if rpt.Repaired != repairedBefore {
			out, err := doc.WriteToBytes()
			if err != nil {
				rpt.Errs = multierr.Append(rpt.Errs, fmt.Errorf("part %s: %w", name, err))
				continue
			}
			pkg.SetRawPart(name, out)
		}
	}

	rpt.Elapsed = time.Since(start)
	if (thr.WarnAfter > 0 && rpt.Elapsed > thr.WarnAfter) || (thr.WarnElements > 0 && rpt.Scanned > thr.WarnElements) {
		log.Warn("Reconciliation pass is slow",
			zap.Duration("elapsed", rpt.Elapsed),
			zap.Int("scanned", rpt.Scanned),
			zap.Int("repaired", rpt.Repaired))
	}
	log.Debug("Reconciliation complete",
		zap.Int("scanned", rpt.Scanned),
		zap.Int("repaired", rpt.Repaired),
		zap.Duration("elapsed", rpt.Elapsed))
	return rpt, nil
}

func reconcileTree(root *etree.Element, reg *style.Registry, fam *Family, rpt *Report, log *zap.Logger) {
	for _, p := range root.FindElements(".//w:p") {
		rpt.Scanned++
		repaired, err := repairParagraph(p, reg, fam)
		if err != nil {
			rpt.Errs = multierr.Append(rpt.Errs, err)
			log.Warn("Unable to repair element", zap.Error(err))
			continue
		}
		if repaired {
			rpt.Repaired++
		}
	}
}

func repairParagraph(p *etree.Element, reg *style.Registry, fam *Family) (bool, error) {
	pPr := p.SelectElement("w:pPr")
	if pPr == nil {
		return false, nil // unstyled, cannot belong to a bullet family
	}
	ps := pPr.SelectElement("w:pStyle")
	if ps == nil {
		return false, nil
	}
	styleID := ps.SelectAttrValue("w:val", "")
	bs, ok := reg.ByID(styleID)
	if !ok || !bs.Bullet {
		return false, nil
	}

	level := 0
	if numPr := pPr.SelectElement("w:numPr"); numPr != nil {
		if numPr.SelectElement("w:numId") != nil {
			return false, nil // already correct, reconciliation is idempotent
		}
		// dangling level without an id: keep the level, complete the reference
		if ilvl := numPr.SelectElement("w:ilvl"); ilvl != nil {
			v, err := strconv.Atoi(ilvl.SelectAttrValue("w:val", "0"))
			if err != nil {
				return false, fmt.Errorf("malformed list level on element: %w", err)
			}
			level = v
		}
	} else if ind := pPr.SelectElement("w:ind"); ind != nil {
		// infer nesting from stored indentation so multi-level lists are not
		// flattened to level zero
		if left := ind.SelectAttrValue("w:left", ""); left != "" {
			v, err := strconv.Atoi(left)
			if err != nil {
				return false, fmt.Errorf("malformed indent on element: %w", err)
			}
			level = levelFromIndent(v, fam)
		}
	}
	if level >= fam.Levels {
		level = fam.Levels - 1
	}

	stripLiteralBullets(p)
	applyNumberingTo(p, fam, level)
	return true, nil
}

func levelFromIndent(leftTwips int, fam *Family) int {
	step := fam.Geometry().TextPos.Twips()
	if step <= 0 {
		return 0
	}
	level := (leftTwips - fam.LeftIndentTwips(0)) / step
	if level < 0 {
		return 0
	}
	if level >= fam.Levels {
		return fam.Levels - 1
	}
	return level
}

// stripLiteralBullets removes a leading bullet glyph from the first text run
// so native numbering does not produce a double bullet.
func stripLiteralBullets(p *etree.Element) {
	for _, r := range p.SelectElements("w:r") {
		t := r.SelectElement("w:t")
		if t == nil {
			continue
		}
		text := t.Text()
		trimmed := strings.TrimLeft(text, " \t")
		for _, glyph := range literalBulletPrefixes {
			if strings.HasPrefix(trimmed, glyph+" ") || trimmed == glyph {
				trimmed = strings.TrimLeft(strings.TrimPrefix(trimmed, glyph), " \t")
				break
			}
		}
		if trimmed != text {
			t.SetText(trimmed)
		}
		return // only the first text run can carry a pre-pended glyph
	}
}
