// Package convert drives the document build: it walks the content
// description in order, composes the renderer components, and runs the
// post-build passes. It decides structure and sequence only - every visual
// property belongs to the style registry.
package convert

import (
	"fmt"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"resumedoc/content"
	"resumedoc/docx"
	"resumedoc/render"
	"resumedoc/style"
	"resumedoc/tokens"
)

// Phase is the builder lifecycle position. Phases advance strictly forward;
// calling a pass out of order is a hard error, mirroring the content-first
// rule one level up.
type Phase int

const (
	PhaseBuild Phase = iota
	PhasePostProcess
	PhaseReconcile
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseBuild:
		return "build"
	case PhasePostProcess:
		return "post-process"
	case PhaseReconcile:
		return "reconcile"
	case PhaseDone:
		return "done"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// registry wiring: component style names to token namespaces
var styleTable = []struct {
	name   string
	path   string
	bullet bool
}{
	{"Identity Name", "identity.name", false},
	{"Identity Title", "identity.title", false},
	{"Contact", "identity.contact", false},
	{"Section Header", "section.header", false},
	{"Body Text", "section.body", false},
	{"Entry Bar", "section.entry", false},
	{"List Bullet", "section.bullet", true},
}

// Options are per-build settings decided by the caller; the builder never
// reads configuration or environment on its own.
type Options struct {
	// BasePackagePath, when set, names an existing package to extend instead
	// of starting from an empty one.
	BasePackagePath string
	// NativeLists selects native numbering; false emits literal glyph text
	// and skips the reconciliation pass.
	NativeLists bool
	Thresholds  docx.Thresholds
}

// Result is the finished build.
type Result struct {
	Package *docx.Package
	Markup  string
	Report  *docx.Report
}

// Builder assembles one document from one content description. All build
// scoped state (registry cache, numbering engine, id counters) lives here
// and dies with the build.
type Builder struct {
	id     uuid.UUID
	phase  Phase
	log    *zap.Logger
	reg    *style.Registry
	resume *content.Resume
	opts   Options

	pkg    *docx.Package
	eng    *docx.Engine
	fam    *docx.Family
	markup *render.Markup
	geom   docx.Geometry
	glyph  string
}

// NewBuilder resolves everything the build needs up front: all styles are
// registered and the bullet geometry read, so a missing token fails the
// build here, before any output exists.
func NewBuilder(toks *tokens.Set, resume *content.Resume, opts Options, log *zap.Logger) (*Builder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("unable to generate build id: %w", err)
	}

	reg := style.NewRegistry(toks)
	for _, row := range styleTable {
		if row.bullet {
			_, err = reg.RegisterBullet(row.name, row.path)
		} else {
			_, err = reg.Register(row.name, row.path)
		}
		if err != nil {
			return nil, err
		}
	}

	b := &Builder{
		id:     id,
		log:    log.Named("build").With(zap.Stringer("build_id", id)),
		reg:    reg,
		resume: resume,
		opts:   opts,
	}
	if b.geom.BulletPos, err = toks.Length("list.bulletPos"); err != nil {
		return nil, err
	}
	if b.geom.TextPos, err = toks.Length("list.textPos"); err != nil {
		return nil, err
	}
	if b.glyph, err = toks.String("list.glyph"); err != nil {
		return nil, err
	}
	return b, nil
}

// Registry exposes the build's resolved styles, for callers that emit
// auxiliary artifacts (the page stylesheet) from the same records.
func (b *Builder) Registry() *style.Registry { return b.reg }

// Geometry returns the bullet geometry of this build.
func (b *Builder) Geometry() docx.Geometry { return b.geom }

// Phase returns the current lifecycle position.
func (b *Builder) Phase() Phase { return b.phase }

func (b *Builder) advance(from, to Phase) error {
	if b.phase != from {
		return fmt.Errorf("build pass ordering violated: in phase %s, expected %s", b.phase, from)
	}
	b.phase = to
	return nil
}

// Run executes the whole lifecycle and returns the finished build.
func (b *Builder) Run() (*Result, error) {
	if err := b.build(); err != nil {
		return nil, err
	}
	if err := b.postProcess(); err != nil {
		return nil, err
	}
	rpt, err := b.reconcile()
	if err != nil {
		return nil, err
	}

	if err := b.advance(PhaseReconcile, PhaseDone); err != nil {
		return nil, err
	}
	markup, err := render.Document(b.resume.Identity.Name, b.reg, b.geom, b.markup)
	if err != nil {
		return nil, err
	}
	b.log.Info("Build complete",
		zap.Int("sections", len(b.resume.Sections)),
		zap.Bool("native_lists", b.opts.NativeLists))
	return &Result{Package: b.pkg, Markup: markup, Report: rpt}, nil
}

// build composes the document tree from the content description, in input
// order: identity block first, then every section.
func (b *Builder) build() error {
	if b.phase != PhaseBuild {
		return fmt.Errorf("build pass ordering violated: in phase %s, expected %s", b.phase, PhaseBuild)
	}

	var err error
	if b.opts.BasePackagePath != "" {
		if b.pkg, err = docx.OpenPackage(b.opts.BasePackagePath); err != nil {
			return err
		}
		b.log.Debug("Extending base package", zap.String("path", b.opts.BasePackagePath))
	} else {
		b.pkg = docx.NewPackage()
	}
	b.eng = docx.NewEngine(b.pkg)

	bulletStyle, err := b.reg.Resolve("List Bullet")
	if err != nil {
		return err
	}
	if b.fam, err = b.eng.AllocateFamily(b.glyph, bulletStyle.Font, b.geom); err != nil {
		return err
	}

	b.markup = render.NewMarkup()
	body := b.pkg.Body()

	if err := b.buildIdentity(body); err != nil {
		return err
	}
	for i := range b.resume.Sections {
		if err := b.buildSection(body, &b.resume.Sections[i]); err != nil {
			return err
		}
	}
	return b.advance(PhaseBuild, PhasePostProcess)
}

func (b *Builder) buildIdentity(body *etree.Element) error {
	ident := &b.resume.Identity

	name, err := render.NewTextBlock(b.reg, "Identity Name", ident.Name)
	if err != nil {
		return err
	}
	if err := name.Docx(body); err != nil {
		return err
	}
	name.HTML(b.markup.Root())

	if ident.Title != "" {
		title, err := render.NewTextBlock(b.reg, "Identity Title", ident.Title)
		if err != nil {
			return err
		}
		if err := title.Docx(body); err != nil {
			return err
		}
		title.HTML(b.markup.Root())
	}

	if len(ident.Contact) > 0 {
		cl, err := render.NewContactLine(b.reg, "Contact", ident.Contact)
		if err != nil {
			return err
		}
		if err := cl.Docx(body); err != nil {
			return err
		}
		cl.HTML(b.markup.Root())
	}
	return nil
}

func (b *Builder) buildSection(body *etree.Element, sec *content.Section) error {
	hdr, err := render.NewBoxedHeader(b.reg, "Section Header", sec.Header)
	if err != nil {
		return err
	}
	if err := hdr.Docx(body); err != nil {
		return err
	}
	hdr.HTML(b.markup.Root())

	for i := range sec.Items {
		it := &sec.Items[i]
		switch it.Kind() {
		case content.KindText:
			tb, err := render.NewTextBlock(b.reg, "Body Text", it.Text)
			if err != nil {
				return err
			}
			if err := tb.Docx(body); err != nil {
				return err
			}
			tb.HTML(b.markup.Root())

		case content.KindEntry:
			kv, err := render.NewKeyValueBar(b.reg, "Entry Bar", it.Entry.Org, it.Entry.Role, it.Entry.Dates)
			if err != nil {
				return err
			}
			if err := kv.Docx(body); err != nil {
				return err
			}
			kv.HTML(b.markup.Root())

		case content.KindBullets:
			list, err := render.NewBulletList(b.reg, "List Bullet", b.eng, b.fam, it.Bullets)
			if err != nil {
				return err
			}
			if err := list.Docx(body, b.opts.NativeLists); err != nil {
				return err
			}
			list.HTML(b.markup.Root())

		default:
			return fmt.Errorf("section %q item %d: unrecognized content kind", sec.Header, i+1)
		}
	}
	return nil
}

// postProcess emits the style table from the registry.
func (b *Builder) postProcess() error {
	if err := b.advance(PhasePostProcess, PhaseReconcile); err != nil {
		return err
	}
	return docx.WriteStyles(b.pkg, b.reg)
}

// reconcile runs the numbering repair pass over the finished tree. In
// fallback mode there is nothing to repair against, so the pass is skipped
// and an empty report returned.
func (b *Builder) reconcile() (*docx.Report, error) {
	if b.phase != PhaseReconcile {
		return nil, fmt.Errorf("build pass ordering violated: in phase %s, expected %s", b.phase, PhaseReconcile)
	}
	if !b.opts.NativeLists {
		b.log.Debug("Native lists disabled, skipping reconciliation")
		return &docx.Report{}, nil
	}
	return docx.Reconcile(b.pkg, b.reg, b.eng, b.fam, b.opts.Thresholds, b.log)
}
