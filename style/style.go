// Package style implements the token driven style registry. All token to
// formatting resolution happens here and nowhere else - builders and
// renderers work exclusively with resolved BoxStyle records.
package style

import (
	"fmt"

	"github.com/gosimple/slug"

	"resumedoc/tokens"
)

// BorderStyle enumerates supported border line styles.
type BorderStyle string

const (
	BorderSingle BorderStyle = "single"
	BorderDouble BorderStyle = "double"
	BorderDashed BorderStyle = "dashed"
	BorderDotted BorderStyle = "dotted"
)

// XMLValue returns the wordprocessing border value.
func (b BorderStyle) XMLValue() string {
	return string(b)
}

// CSSValue returns the equivalent CSS border-style keyword.
func (b BorderStyle) CSSValue() string {
	if b == BorderSingle {
		return "solid"
	}
	return string(b)
}

func parseBorderStyle(s string) (BorderStyle, error) {
	switch BorderStyle(s) {
	case BorderSingle, BorderDouble, BorderDashed, BorderDotted:
		return BorderStyle(s), nil
	case "solid":
		return BorderSingle, nil
	}
	return "", fmt.Errorf("unsupported border style %q", s)
}

// Border is a resolved box border. A nil *Border means no border at all;
// there is no implicit default width or color.
type Border struct {
	Width tokens.Length
	Color tokens.Color
	Style BorderStyle
}

// BoxStyle is a fully resolved per-element formatting record. Created once
// per distinct name per build and immutable afterwards.
type BoxStyle struct {
	Name    string // registry name, also the display name in the package
	ID      string // slug used for style ids and CSS class names
	BasedOn string // registry name of the base style, empty for roots

	Font   string
	Size   tokens.Length
	Bold   bool
	Italic bool
	Color  tokens.Color
	Casing tokens.Casing

	SpacingBefore tokens.Length
	SpacingAfter  tokens.Length
	PaddingH      tokens.Length // horizontal inset between border and text

	Border *Border

	// Bullet marks the style as a member of the bullet family; elements
	// carrying it must end up with a numbering reference.
	Bullet bool
}

// Registry resolves token subsets into named BoxStyle records. One instance
// per document build - never shared across builds.
type Registry struct {
	toks   *tokens.Set
	styles map[string]*BoxStyle
	order  []string // preserve registration order for deterministic output
}

// NewRegistry creates an empty registry over a loaded token set.
func NewRegistry(toks *tokens.Set) *Registry {
	return &Registry{
		toks:   toks,
		styles: make(map[string]*BoxStyle),
	}
}

// Register builds a style from the token namespace at path and caches it
// under name. Repeated registration under the same name returns the cached
// record - styles are immutable for the build's lifetime.
func (r *Registry) Register(name, path string) (*BoxStyle, error) {
	return r.register(name, path, false)
}

// RegisterBullet is Register for bullet family styles.
func (r *Registry) RegisterBullet(name, path string) (*BoxStyle, error) {
	return r.register(name, path, true)
}

func (r *Registry) register(name, path string, bullet bool) (*BoxStyle, error) {
	if st, ok := r.styles[name]; ok {
		return st, nil
	}

	st := &BoxStyle{
		Name:   name,
		ID:     slug.Make(name),
		Bullet: bullet,
	}

	var err error
	if st.Font, err = r.toks.String(path + ".font"); err != nil {
		return nil, err
	}
	if st.Size, err = r.toks.Length(path + ".sizePt"); err != nil {
		return nil, err
	}
	if st.Color, err = r.toks.Color(path + ".color"); err != nil {
		return nil, err
	}

	// optional properties: absence means "not controlled by this style",
	// never a substituted value
	if r.toks.Has(path + ".weight") {
		w, err := r.toks.String(path + ".weight")
		if err != nil {
			return nil, err
		}
		switch w {
		case "normal":
		case "bold":
			st.Bold = true
		default:
			return nil, fmt.Errorf("style %q: unsupported weight %q", name, w)
		}
	}
	if r.toks.Has(path + ".italic") {
		if st.Italic, err = r.toks.Bool(path + ".italic"); err != nil {
			return nil, err
		}
	}
	if r.toks.Has(path + ".casing") {
		if st.Casing, err = r.toks.Casing(path + ".casing"); err != nil {
			return nil, err
		}
	}
	if r.toks.Has(path + ".spacingBeforePt") {
		if st.SpacingBefore, err = r.toks.Length(path + ".spacingBeforePt"); err != nil {
			return nil, err
		}
	}
	if r.toks.Has(path + ".spacingAfterPt") {
		if st.SpacingAfter, err = r.toks.Length(path + ".spacingAfterPt"); err != nil {
			return nil, err
		}
	}
	if r.toks.Has(path + ".paddingHorizontalPt") {
		if st.PaddingH, err = r.toks.Length(path + ".paddingHorizontalPt"); err != nil {
			return nil, err
		}
	}
	if r.toks.Has(path + ".basedOn") {
		if st.BasedOn, err = r.toks.String(path + ".basedOn"); err != nil {
			return nil, err
		}
	}

	// a border namespace makes all three of its members required
	if r.toks.Has(path+".border.widthPt") || r.toks.Has(path+".border.color") || r.toks.Has(path+".border.style") {
		b := &Border{}
		if b.Width, err = r.toks.Length(path + ".border.widthPt"); err != nil {
			return nil, err
		}
		if b.Color, err = r.toks.Color(path + ".border.color"); err != nil {
			return nil, err
		}
		bs, err := r.toks.String(path + ".border.style")
		if err != nil {
			return nil, err
		}
		if b.Style, err = parseBorderStyle(bs); err != nil {
			return nil, fmt.Errorf("style %q: %w", name, err)
		}
		st.Border = b
	}

	r.styles[name] = st
	r.order = append(r.order, name)
	return st, nil
}

// Resolve returns a previously registered style. Unknown names are an error,
// not a default.
func (r *Registry) Resolve(name string) (*BoxStyle, error) {
	st, ok := r.styles[name]
	if !ok {
		return nil, fmt.Errorf("style %q is not registered", name)
	}
	return st, nil
}

// ByID returns the style whose slugged id matches, if any. Used by the
// reconciliation pass which sees style ids, not registry names.
func (r *Registry) ByID(id string) (*BoxStyle, bool) {
	for _, name := range r.order {
		if r.styles[name].ID == id {
			return r.styles[name], true
		}
	}
	return nil, false
}

// Names returns all registered style names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Styles returns all registered styles in registration order.
func (r *Registry) Styles() []*BoxStyle {
	out := make([]*BoxStyle, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.styles[name])
	}
	return out
}
