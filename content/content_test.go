package content

import (
	"strings"
	"testing"
)

const sampleYAML = `
identity:
  name: Jordan Reyes
  title: Staff Software Engineer
  contact:
    - jordan@example.com
    - +1 555 010 2030
    - Portland, OR
sections:
  - header: Summary
    items:
      - text: Backend engineer with a focus on document pipelines.
  - header: Experience
    items:
      - entry:
          org: Acme Corp
          role: Senior Engineer
          dates: 2020 - Present
      - bullets:
          - Led migration of the rendering stack.
          - Cut build times by half.
  - header: Education
    items:
      - entry:
          org: State University
          dates: 2012 - 2016
`

func TestLoad(t *testing.T) {
	r, err := Load([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if r.Identity.Name != "Jordan Reyes" {
		t.Errorf("unexpected identity name %q", r.Identity.Name)
	}
	if len(r.Identity.Contact) != 3 {
		t.Errorf("got %d contact lines, want 3", len(r.Identity.Contact))
	}
	if len(r.Sections) != 3 {
		t.Fatalf("got %d sections, want 3", len(r.Sections))
	}

	exp := r.Sections[1]
	if exp.Header != "Experience" {
		t.Errorf("unexpected section header %q", exp.Header)
	}
	if got := exp.Items[0].Kind(); got != KindEntry {
		t.Errorf("item 0 kind = %v, want KindEntry", got)
	}
	if got := exp.Items[1].Kind(); got != KindBullets {
		t.Errorf("item 1 kind = %v, want KindBullets", got)
	}
	if got := r.Sections[0].Items[0].Kind(); got != KindText {
		t.Errorf("summary item kind = %v, want KindText", got)
	}
	if exp.Items[0].Entry.Role != "Senior Engineer" {
		t.Errorf("unexpected role %q", exp.Items[0].Entry.Role)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		yml  string
		want string
	}{
		{
			name: "missing name",
			yml: `
identity:
  title: Engineer
sections:
  - header: Summary
    items:
      - text: hello
`,
			want: "identity.name",
		},
		{
			name: "no sections",
			yml: `
identity:
  name: Jordan Reyes
`,
			want: "at least one section",
		},
		{
			name: "section without header",
			yml: `
identity:
  name: Jordan Reyes
sections:
  - items:
      - text: hello
`,
			want: "no header",
		},
		{
			name: "empty section",
			yml: `
identity:
  name: Jordan Reyes
sections:
  - header: Summary
`,
			want: "no items",
		},
		{
			name: "item with nothing set",
			yml: `
identity:
  name: Jordan Reyes
sections:
  - header: Summary
    items:
      - {}
`,
			want: "exactly one of",
		},
		{
			name: "item with two members set",
			yml: `
identity:
  name: Jordan Reyes
sections:
  - header: Summary
    items:
      - text: hello
        bullets:
          - also this
`,
			want: "exactly one of",
		},
		{
			name: "entry without org",
			yml: `
identity:
  name: Jordan Reyes
sections:
  - header: Experience
    items:
      - entry:
          role: Engineer
`,
			want: "no org",
		},
		{
			name: "blank bullet",
			yml: `
identity:
  name: Jordan Reyes
sections:
  - header: Experience
    items:
      - bullets:
          - "   "
`,
			want: "bullet 1 is empty",
		},
		{
			name: "unknown field rejected",
			yml: `
identity:
  name: Jordan Reyes
  nickname: JR
sections:
  - header: Summary
    items:
      - text: hello
`,
			want: "parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.yml))
			if err == nil {
				t.Fatal("Load() succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}
