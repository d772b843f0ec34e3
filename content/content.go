// Package content defines the semantic resume description - the input side
// of the pipeline. It knows what the document says, never how it looks;
// every formatting decision belongs to the style registry.
package content

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Resume is the parsed and validated content description.
type Resume struct {
	Identity Identity  `yaml:"identity"`
	Sections []Section `yaml:"sections"`
}

// Identity is the document header block: who the resume is about and how
// to reach them.
type Identity struct {
	Name    string   `yaml:"name"`
	Title   string   `yaml:"title,omitempty"`
	Contact []string `yaml:"contact,omitempty"`
}

// Section is one titled block of the document, rendered in input order.
type Section struct {
	Header string `yaml:"header"`
	Items  []Item `yaml:"items"`
}

// ItemKind discriminates the section item union.
type ItemKind int

const (
	KindInvalid ItemKind = iota
	KindText             // a plain paragraph
	KindEntry            // organization / role / date range line
	KindBullets          // a bullet list
)

// Item is exactly one of: a text paragraph, an entry line, or a bullet
// list. Kind reports which; the unused members stay zero.
type Item struct {
	Text    string   `yaml:"text,omitempty"`
	Entry   *Entry   `yaml:"entry,omitempty"`
	Bullets []string `yaml:"bullets,omitempty"`
}

// Entry is an organization line with an optional role and date range,
// rendered as a two column bar.
type Entry struct {
	Org   string `yaml:"org"`
	Role  string `yaml:"role,omitempty"`
	Dates string `yaml:"dates,omitempty"`
}

// Kind reports which member of the union is populated. KindInvalid means
// none or more than one - Load rejects such items.
func (it *Item) Kind() ItemKind {
	var kind ItemKind
	var set int
	if it.Text != "" {
		kind, set = KindText, set+1
	}
	if it.Entry != nil {
		kind, set = KindEntry, set+1
	}
	if len(it.Bullets) > 0 {
		kind, set = KindBullets, set+1
	}
	if set != 1 {
		return KindInvalid
	}
	return kind
}

// Load parses and validates a resume description.
func Load(data []byte) (*Resume, error) {
	var r Resume
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("unable to parse resume content: %w", err)
	}
	if err := r.validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// LoadFile reads and parses a resume description from a YAML file.
func LoadFile(fname string) (*Resume, error) {
	data, err := os.ReadFile(fname)
	if err != nil {
		return nil, fmt.Errorf("unable to read resume content: %w", err)
	}
	return Load(data)
}

func (r *Resume) validate() error {
	if r.Identity.Name == "" {
		return fmt.Errorf("resume content: identity.name is required")
	}
	if len(r.Sections) == 0 {
		return fmt.Errorf("resume content: at least one section is required")
	}
	for i, sec := range r.Sections {
		if sec.Header == "" {
			return fmt.Errorf("resume content: section %d has no header", i+1)
		}
		if len(sec.Items) == 0 {
			return fmt.Errorf("resume content: section %q has no items", sec.Header)
		}
		for j := range sec.Items {
			it := &sec.Items[j]
			if it.Kind() == KindInvalid {
				return fmt.Errorf("resume content: section %q item %d must set exactly one of text, entry or bullets", sec.Header, j+1)
			}
			if it.Entry != nil && it.Entry.Org == "" {
				return fmt.Errorf("resume content: section %q item %d entry has no org", sec.Header, j+1)
			}
			for k, b := range it.Bullets {
				if strings.TrimSpace(b) == "" {
					return fmt.Errorf("resume content: section %q item %d bullet %d is empty", sec.Header, j+1, k+1)
				}
			}
		}
	}
	return nil
}
