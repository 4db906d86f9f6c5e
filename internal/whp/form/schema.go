package form

import (
	"embed"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bitfantasy/whp/internal/whp/validate"
)

// Kind is the closed set of input controls a field can render as.
type Kind string

const (
	KindText        Kind = "text"
	KindEmail       Kind = "email"
	KindPassword    Kind = "password"
	KindSelect      Kind = "select"
	KindMultiSelect Kind = "multiselect"
	KindTextarea    Kind = "textarea"
	KindDate        Kind = "date"
	KindCheckbox    Kind = "checkbox"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindText, KindEmail, KindPassword, KindSelect, KindMultiSelect, KindTextarea, KindDate, KindCheckbox:
		return true
	}
	return false
}

// HasOptions reports whether the kind picks from a fixed option list.
func (k Kind) HasOptions() bool {
	return k == KindSelect || k == KindMultiSelect
}

// Option is one entry of a select or multiselect.
type Option struct {
	Title string `json:"title" yaml:"title"`
	Value string `json:"value" yaml:"value"`
}

// FieldDescriptor describes one form input.
type FieldDescriptor struct {
	Name          string   `json:"name" yaml:"name"`
	Label         string   `json:"label" yaml:"label"`
	Kind          Kind     `json:"type" yaml:"type"`
	Required      bool     `json:"required" yaml:"required"`
	ColSpan       int      `json:"colSpan,omitempty" yaml:"colSpan"`
	MobileColSpan int      `json:"mobileColSpan,omitempty" yaml:"mobileColSpan"`
	Options       []Option `json:"options,omitempty" yaml:"options"`
	Placeholder   string   `json:"placeholder,omitempty" yaml:"placeholder"`
	Unit          string   `json:"unit,omitempty" yaml:"unit"`
	Disabled      bool     `json:"disabled,omitempty" yaml:"disabled"`
	Description   string   `json:"description,omitempty" yaml:"description"`
	AutoComplete  string   `json:"autoComplete,omitempty" yaml:"autoComplete"`
	Sanitizer     string   `json:"sanitizer,omitempty" yaml:"sanitizer"`
	Validator     string   `json:"validator,omitempty" yaml:"validator"`
}

// FormSection groups fields under a title. Order is display order only.
type FormSection struct {
	Title  string            `json:"title" yaml:"title"`
	Fields []FieldDescriptor `json:"fields" yaml:"fields"`
}

// ChangePolicy selects how errors react to a single field change.
type ChangePolicy string

const (
	// ClearWhenValid drops every error only once the whole form validates.
	ClearWhenValid ChangePolicy = "clear_when_valid"
	// ValidateField recomputes the changed field's own error immediately.
	ValidateField ChangePolicy = "validate_field"
)

// Schema is a complete declarative form.
type Schema struct {
	Name         string        `json:"name" yaml:"name"`
	Title        string        `json:"title" yaml:"title"`
	ChangePolicy ChangePolicy  `json:"changePolicy,omitempty" yaml:"changePolicy"`
	Derive       []string      `json:"derive,omitempty" yaml:"derive"`
	Sections     []FormSection `json:"formSections" yaml:"formSections"`

	index map[string]int
	flat  []FieldDescriptor
}

// Field looks up a descriptor by name.
func (s *Schema) Field(name string) (FieldDescriptor, bool) {
	i, ok := s.index[name]
	if !ok {
		return FieldDescriptor{}, false
	}
	return s.flat[i], true
}

// Fields returns every descriptor across all sections in display order.
func (s *Schema) Fields() []FieldDescriptor {
	return s.flat
}

// ErrUnknownForm is returned for a form name that is not in the catalog.
var ErrUnknownForm = errors.New("unknown form")

// LoadSchema decodes a JSON or YAML schema and checks it against rules.
func LoadSchema(name string, data []byte, rules *validate.Rules) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode form %q: %w", name, err)
	}
	if s.Name == "" {
		s.Name = name
	}
	if s.ChangePolicy == "" {
		s.ChangePolicy = ClearWhenValid
	}
	if err := s.check(rules); err != nil {
		return nil, fmt.Errorf("form %q: %w", s.Name, err)
	}
	return &s, nil
}

func (s *Schema) check(rules *validate.Rules) error {
	switch s.ChangePolicy {
	case ClearWhenValid, ValidateField:
	default:
		return fmt.Errorf("unknown change policy %q", s.ChangePolicy)
	}
	for _, d := range s.Derive {
		if _, ok := derivers[d]; !ok {
			return fmt.Errorf("unknown derivation %q", d)
		}
	}

	s.index = make(map[string]int)
	s.flat = s.flat[:0]
	for _, section := range s.Sections {
		for _, f := range section.Fields {
			if strings.TrimSpace(f.Name) == "" {
				return fmt.Errorf("section %q: field without name", section.Title)
			}
			if _, dup := s.index[f.Name]; dup {
				return fmt.Errorf("duplicate field %q", f.Name)
			}
			if !f.Kind.Valid() {
				return fmt.Errorf("field %q: unknown type %q", f.Name, f.Kind)
			}
			if f.Kind.HasOptions() && len(f.Options) == 0 {
				return fmt.Errorf("field %q: %s needs options", f.Name, f.Kind)
			}
			if f.Sanitizer != "" {
				if _, ok := rules.Sanitizer(f.Sanitizer); !ok {
					return fmt.Errorf("field %q: unknown sanitizer %q", f.Name, f.Sanitizer)
				}
			}
			if f.Validator != "" {
				if _, ok := rules.Validator(f.Validator); !ok {
					return fmt.Errorf("field %q: unknown validator %q", f.Name, f.Validator)
				}
			}
			s.index[f.Name] = len(s.flat)
			s.flat = append(s.flat, f)
		}
	}
	return nil
}

//go:embed schemas/*.json
var schemaFS embed.FS

// Catalog holds the forms shipped with the application.
type Catalog struct {
	rules   *validate.Rules
	schemas map[string]*Schema
}

// LoadCatalog parses every embedded schema.
func LoadCatalog(rules *validate.Rules) (*Catalog, error) {
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return nil, fmt.Errorf("read schemas: %w", err)
	}
	c := &Catalog{rules: rules, schemas: make(map[string]*Schema, len(entries))}
	for _, entry := range entries {
		data, err := schemaFS.ReadFile(path.Join("schemas", entry.Name()))
		if err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(entry.Name(), path.Ext(entry.Name()))
		s, err := LoadSchema(name, data, rules)
		if err != nil {
			return nil, err
		}
		c.schemas[s.Name] = s
	}
	return c, nil
}

// Rules returns the rule registry the catalog was checked against.
func (c *Catalog) Rules() *validate.Rules { return c.rules }

// Get returns the named schema.
func (c *Catalog) Get(name string) (*Schema, error) {
	s, ok := c.schemas[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownForm, name)
	}
	return s, nil
}

// Names lists schema names alphabetically.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.schemas))
	for name := range c.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
