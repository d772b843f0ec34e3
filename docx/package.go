// Package docx builds and repairs OOXML wordprocessing packages. All XML
// manipulation goes through etree; parts we do not understand are carried
// through byte for byte when an existing package is extended.
package docx

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/beevik/etree"
	"github.com/h2non/filetype"
	fixzip "github.com/hidez8891/zip"
)

const (
	// wordprocessing main namespace, bound to the "w" prefix everywhere
	nsW = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsR = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"

	partContentTypes = "[Content_Types].xml"
	partRootRels     = "_rels/.rels"
	partDocument     = "word/document.xml"
	partDocRels      = "word/_rels/document.xml.rels"
	partStyles       = "word/styles.xml"
	partNumbering    = "word/numbering.xml"

	ctDocument  = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
	ctStyles    = "application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"
	ctNumbering = "application/vnd.openxmlformats-officedocument.wordprocessingml.numbering+xml"
)

// Package is an in-memory wordprocessing package. The three parts the engine
// mutates are kept as parsed documents; everything else stays raw.
type Package struct {
	doc       *etree.Document
	styles    *etree.Document
	numbering *etree.Document

	raw   map[string][]byte // untouched parts from a base package
	order []string          // raw part names in original order
}

// NewPackage creates a minimal valid package: content types, relationships,
// an empty body, empty style and numbering tables.
func NewPackage() *Package {
	p := &Package{
		raw: make(map[string][]byte),
	}

	p.doc = newXMLDocument()
	docRoot := p.doc.CreateElement("w:document")
	docRoot.CreateAttr("xmlns:w", nsW)
	docRoot.CreateAttr("xmlns:r", nsR)
	body := docRoot.CreateElement("w:body")
	addSectionProperties(body)

	p.styles = newXMLDocument()
	stylesRoot := p.styles.CreateElement("w:styles")
	stylesRoot.CreateAttr("xmlns:w", nsW)

	p.numbering = newXMLDocument()
	numRoot := p.numbering.CreateElement("w:numbering")
	numRoot.CreateAttr("xmlns:w", nsW)

	p.storeRaw(partContentTypes, []byte(contentTypesXML))
	p.storeRaw(partRootRels, []byte(rootRelsXML))
	p.storeRaw(partDocRels, []byte(docRelsXML))
	return p
}

// OpenPackage reads an existing .docx to be extended. The file is sniffed
// before parsing - a renamed non-archive fails early with a clear error.
func OpenPackage(fname string) (*Package, error) {
	head := make([]byte, 262)
	f, err := os.Open(fname)
	if err != nil {
		return nil, fmt.Errorf("unable to open package (%s): %w", fname, err)
	}
	n, _ := io.ReadFull(f, head)
	f.Close()
	if !filetype.Is(head[:n], "zip") {
		return nil, fmt.Errorf("not a wordprocessing package (%s)", fname)
	}

	zr, err := zip.OpenReader(fname)
	if err != nil {
		return nil, fmt.Errorf("unable to read package (%s): %w", fname, err)
	}
	defer zr.Close()

	p := &Package{raw: make(map[string][]byte)}
	for _, file := range zr.File {
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("unable to read part %s: %w", file.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("unable to read part %s: %w", file.Name, err)
		}

		switch file.Name {
		case partDocument:
			if p.doc, err = parseXMLPart(data, file.Name); err != nil {
				return nil, err
			}
		case partStyles:
			if p.styles, err = parseXMLPart(data, file.Name); err != nil {
				return nil, err
			}
		case partNumbering:
			if p.numbering, err = parseXMLPart(data, file.Name); err != nil {
				return nil, err
			}
		default:
			p.storeRaw(file.Name, data)
		}
	}

	if p.doc == nil || p.doc.FindElement("//w:body") == nil {
		return nil, fmt.Errorf("package has no document body (%s)", fname)
	}
	if p.styles == nil {
		p.styles = newXMLDocument()
		root := p.styles.CreateElement("w:styles")
		root.CreateAttr("xmlns:w", nsW)
		if err := p.registerPart(partStyles, ctStyles, "styles.xml"); err != nil {
			return nil, err
		}
	}
	if p.numbering == nil {
		p.numbering = newXMLDocument()
		root := p.numbering.CreateElement("w:numbering")
		root.CreateAttr("xmlns:w", nsW)
		if err := p.registerPart(partNumbering, ctNumbering, "numbering.xml"); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Body returns the document body element new content is appended to.
// Content always goes before the final section properties.
func (p *Package) Body() *etree.Element {
	return p.doc.FindElement("//w:body")
}

// Document returns the parsed main document part.
func (p *Package) Document() *etree.Document { return p.doc }

// Styles returns the parsed style table part.
func (p *Package) Styles() *etree.Document { return p.styles }

// Numbering returns the parsed numbering table part.
func (p *Package) Numbering() *etree.Document { return p.numbering }

// RawPart returns a carried-over part by name.
func (p *Package) RawPart(name string) ([]byte, bool) {
	data, ok := p.raw[name]
	return data, ok
}

// SetRawPart replaces a carried-over part (used by reconciliation when it
// repairs headers or footers).
func (p *Package) SetRawPart(name string, data []byte) {
	p.storeRaw(name, data)
}

// RawPartNames returns names of carried-over parts in stable order.
func (p *Package) RawPartNames() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// WriteFile serializes the package. Written via a temporary archive which is
// then rewritten without data descriptors - several document consumers
// refuse streamed entries.
func (p *Package) WriteFile(fname string) error {
	if err := os.MkdirAll(filepath.Dir(fname), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fname), ".pkg-*.tmp")
	if err != nil {
		return fmt.Errorf("unable to create temporary package: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	err = p.writeArchive(tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("unable to assemble package: %w", err)
	}
	return copyZipWithoutDataDescriptors(tmpName, fname)
}

func (p *Package) writeArchive(w io.Writer) error {
	zw := zip.NewWriter(w)
	defer zw.Close()

	live := []struct {
		name string
		doc  *etree.Document
	}{
		{partDocument, p.doc},
		{partStyles, p.styles},
		{partNumbering, p.numbering},
	}

	// content types and relationships first, then live parts, then the rest
	names := make([]string, 0, len(p.order))
	names = append(names, partContentTypes, partRootRels)
	for _, n := range p.order {
		if n != partContentTypes && n != partRootRels {
			names = append(names, n)
		}
	}

	written := make(map[string]bool)
	writeRaw := func(name string) error {
		if written[name] {
			return nil
		}
		data, ok := p.raw[name]
		if !ok {
			return fmt.Errorf("missing required part %s", name)
		}
		written[name] = true
		return writeZipPart(zw, name, data)
	}

	if err := writeRaw(partContentTypes); err != nil {
		return err
	}
	if err := writeRaw(partRootRels); err != nil {
		return err
	}
	for _, part := range live {
		data, err := serializeXMLPart(part.doc)
		if err != nil {
			return fmt.Errorf("unable to serialize %s: %w", part.name, err)
		}
		written[part.name] = true
		if err := writeZipPart(zw, part.name, data); err != nil {
			return err
		}
	}
	for _, name := range names {
		if err := writeRaw(name); err != nil {
			return err
		}
	}
	return nil
}

func writeZipPart(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return fmt.Errorf("unable to create part %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("unable to write part %s: %w", name, err)
	}
	return nil
}

func copyZipWithoutDataDescriptors(from, to string) error {
	out, err := os.Create(to)
	if err != nil {
		return fmt.Errorf("unable to create target file (%s): %w", to, err)
	}
	defer out.Close()

	r, err := fixzip.OpenReader(from)
	if err != nil {
		return fmt.Errorf("unable to read archive file (%s): %w", from, err)
	}
	defer r.Close()

	w := fixzip.NewWriter(out)
	defer w.Close()

	for _, file := range r.File {
		// unset data descriptor flag.
		file.Flags &= ^fixzip.FlagDataDescriptor

		if err := w.CopyFile(file); err != nil {
			return fmt.Errorf("unable to write target file (%s): %w", to, err)
		}
	}
	return nil
}

func (p *Package) storeRaw(name string, data []byte) {
	if _, exists := p.raw[name]; !exists {
		p.order = append(p.order, name)
	}
	p.raw[name] = data
}

// registerPart patches content types and document relationships for a part
// the base package was missing.
func (p *Package) registerPart(partName, contentType, relTarget string) error {
	ct, ok := p.raw[partContentTypes]
	if !ok {
		return fmt.Errorf("package has no %s", partContentTypes)
	}
	ctDoc := etree.NewDocument()
	if err := ctDoc.ReadFromBytes(ct); err != nil {
		return fmt.Errorf("unable to parse %s: %w", partContentTypes, err)
	}
	root := ctDoc.Root()
	if root == nil {
		return fmt.Errorf("empty %s", partContentTypes)
	}
	found := false
	for _, ov := range root.SelectElements("Override") {
		if ov.SelectAttrValue("PartName", "") == "/"+partName {
			found = true
			break
		}
	}
	if !found {
		ov := root.CreateElement("Override")
		ov.CreateAttr("PartName", "/"+partName)
		ov.CreateAttr("ContentType", contentType)
		data, err := ctDoc.WriteToBytes()
		if err != nil {
			return err
		}
		p.raw[partContentTypes] = data
	}

	rels, ok := p.raw[partDocRels]
	if !ok {
		p.storeRaw(partDocRels, []byte(docRelsXML))
		return nil
	}
	relDoc := etree.NewDocument()
	if err := relDoc.ReadFromBytes(rels); err != nil {
		return fmt.Errorf("unable to parse %s: %w", partDocRels, err)
	}
	relRoot := relDoc.Root()
	if relRoot == nil {
		return fmt.Errorf("empty %s", partDocRels)
	}
	maxID := 0
	for _, rel := range relRoot.SelectElements("Relationship") {
		if rel.SelectAttrValue("Target", "") == relTarget {
			return nil
		}
		id := rel.SelectAttrValue("Id", "")
		if v, err := relIDNumber(id); err == nil && v > maxID {
			maxID = v
		}
	}
	rel := relRoot.CreateElement("Relationship")
	rel.CreateAttr("Id", fmt.Sprintf("rId%d", maxID+1))
	rel.CreateAttr("Type", nsR+"/"+strings.TrimSuffix(relTarget, ".xml"))
	rel.CreateAttr("Target", relTarget)
	data, err := relDoc.WriteToBytes()
	if err != nil {
		return err
	}
	p.raw[partDocRels] = data
	return nil
}

func relIDNumber(id string) (int, error) {
	var v int
	if _, err := fmt.Sscanf(id, "rId%d", &v); err != nil {
		return 0, err
	}
	return v, nil
}

// HeaderFooterParts returns names of header and footer parts present in the
// package - the nested containers the reconciliation pass must not miss.
func (p *Package) HeaderFooterParts() []string {
	var out []string
	for _, name := range p.order {
		base := filepath.Base(name)
		if !strings.HasPrefix(name, "word/") || filepath.Dir(name) != "word" {
			continue
		}
		if strings.HasPrefix(base, "header") || strings.HasPrefix(base, "footer") {
			if strings.HasSuffix(base, ".xml") {
				out = append(out, name)
			}
		}
	}
	sort.Strings(out)
	return out
}

func newXMLDocument() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
	return doc
}

func parseXMLPart(data []byte, name string) (*etree.Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("unable to parse part %s: %w", name, err)
	}
	return doc, nil
}

func serializeXMLPart(doc *etree.Document) ([]byte, error) {
	return doc.WriteToBytes()
}

// addSectionProperties closes the body with US Letter geometry and 0.75in
// margins.
func addSectionProperties(body *etree.Element) {
	sectPr := body.CreateElement("w:sectPr")
	pgSz := sectPr.CreateElement("w:pgSz")
	pgSz.CreateAttr("w:w", "12240")
	pgSz.CreateAttr("w:h", "15840")
	pgMar := sectPr.CreateElement("w:pgMar")
	pgMar.CreateAttr("w:top", "1080")
	pgMar.CreateAttr("w:bottom", "1080")
	pgMar.CreateAttr("w:left", "1080")
	pgMar.CreateAttr("w:right", "1080")
}

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/><Default Extension="xml" ContentType="application/xml"/><Override PartName="/word/document.xml" ContentType="` + ctDocument + `"/><Override PartName="/word/styles.xml" ContentType="` + ctStyles + `"/><Override PartName="/word/numbering.xml" ContentType="` + ctNumbering + `"/></Types>`

const rootRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/></Relationships>`

const docRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/><Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/numbering" Target="numbering.xml"/></Relationships>`
