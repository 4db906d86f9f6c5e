// Package render turns form schemas and import state into HTML.
//
// Templates are pongo2 files embedded in the binary. Every dynamic value is
// escaped by pongo2 except field descriptions, which are cleaned with a
// bluemonday policy first, and pre-rendered field markup.
package render

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
	"github.com/microcosm-cc/bluemonday"

	"github.com/bitfantasy/whp/internal/whp/entity"
	"github.com/bitfantasy/whp/internal/whp/form"
	"github.com/bitfantasy/whp/internal/whp/preview"
	"github.com/bitfantasy/whp/internal/whp/validate"
)

// Banner is shown above a form that has validation errors.
const Banner = "กรุณากรอกข้อมูลให้ครบถ้วน"

const fullWidth = 12

// ErrUnknownKind is returned for a descriptor whose kind has no control.
var ErrUnknownKind = errors.New("render: unknown field kind")

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	descriptionPolicyOnce sync.Once
	descriptionPolicy     *bluemonday.Policy
)

// Renderer holds the parsed templates. It is safe for concurrent use.
type Renderer struct {
	field *pongo2.Template
	form  *pongo2.Template
	imp   *pongo2.Template
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("render: templates: %w", err)
	}
	set := pongo2.NewSet("whp", pongo2.NewFSLoader(sub))

	r := &Renderer{}
	for name, dst := range map[string]**pongo2.Template{
		"field.tmpl":  &r.field,
		"form.tmpl":   &r.form,
		"import.tmpl": &r.imp,
	} {
		tmpl, err := set.FromFile(name)
		if err != nil {
			return nil, fmt.Errorf("render: load template %q: %w", name, err)
		}
		*dst = tmpl
	}
	return r, nil
}

type optionView struct {
	Title    string
	Value    string
	Selected bool
}

type fieldView struct {
	Name          string
	Label         string
	RequiredMark  bool
	Unit          string
	Control       string
	InputType     string
	Value         string
	Placeholder   string
	AutoComplete  string
	Disabled      bool
	Checked       bool
	Options       []optionView
	Description   string
	Error         string
	ColSpan       int
	MobileColSpan int
}

// control maps a kind to the template branch and input type. The switch is
// exhaustive over form.Kind.
func control(k form.Kind) (string, string, error) {
	switch k {
	case form.KindText:
		return "input", "text", nil
	case form.KindEmail:
		return "input", "email", nil
	case form.KindPassword:
		return "input", "password", nil
	case form.KindDate:
		return "input", "date", nil
	case form.KindSelect:
		return "select", "", nil
	case form.KindMultiSelect:
		return "multiselect", "", nil
	case form.KindTextarea:
		return "textarea", "", nil
	case form.KindCheckbox:
		return "checkbox", "checkbox", nil
	}
	return "", "", fmt.Errorf("%w: %q", ErrUnknownKind, k)
}

func newFieldView(field form.FieldDescriptor, value form.Value, errMsg string) (fieldView, error) {
	ctrl, inputType, err := control(field.Kind)
	if err != nil {
		return fieldView{}, err
	}

	v := fieldView{
		Name:          field.Name,
		Label:         field.Label,
		RequiredMark:  field.Required && !field.Disabled,
		Unit:          field.Unit,
		Control:       ctrl,
		InputType:     inputType,
		Placeholder:   placeholder(field),
		AutoComplete:  field.AutoComplete,
		Disabled:      field.Disabled,
		Description:   sanitizeDescription(field.Description),
		Error:         errMsg,
		ColSpan:       field.ColSpan,
		MobileColSpan: field.MobileColSpan,
	}
	if v.ColSpan <= 0 {
		v.ColSpan = fullWidth
	}
	if v.MobileColSpan <= 0 {
		v.MobileColSpan = fullWidth
	}
	switch field.Kind {
	case form.KindPassword:
	case form.KindCheckbox:
		v.Checked = validate.Accepted(value.String()) != ""
	default:
		v.Value = value.String()
	}

	if field.Kind.HasOptions() {
		selected := make(map[string]bool)
		if value.IsList() {
			for _, item := range value.Items() {
				selected[item] = true
			}
		} else if value.String() != "" {
			selected[value.String()] = true
		}
		for _, opt := range field.Options {
			v.Options = append(v.Options, optionView{Title: opt.Title, Value: opt.Value, Selected: selected[opt.Value]})
		}
	}
	return v, nil
}

func placeholder(field form.FieldDescriptor) string {
	if field.Placeholder != "" {
		return field.Placeholder
	}
	if field.Kind.HasOptions() {
		return "เลือก" + field.Label
	}
	return field.Label
}

func sanitizeDescription(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	descriptionPolicyOnce.Do(func() {
		policy := bluemonday.StrictPolicy()
		policy.AllowElements("b", "strong", "i", "em", "br", "span", "small")
		policy.AllowAttrs("class").OnElements("span", "small")
		policy.AllowStandardURLs()
		policy.AllowAttrs("href").OnElements("a")
		policy.RequireNoFollowOnLinks(true)
		policy.AddTargetBlankToFullyQualifiedLinks(true)
		descriptionPolicy = policy
	})
	return strings.TrimSpace(descriptionPolicy.Sanitize(trimmed))
}

// RenderField writes the control for one field. Password values are never
// written back into the page.
func (r *Renderer) RenderField(w io.Writer, field form.FieldDescriptor, value form.Value, errMsg string) error {
	v, err := newFieldView(field, value, errMsg)
	if err != nil {
		return err
	}
	if err := r.field.ExecuteWriter(pongo2.Context{"field": v}, w); err != nil {
		return fmt.Errorf("render field %q: %w", field.Name, err)
	}
	return nil
}

// Options are the per-request parts of a rendered form.
type Options struct {
	Action      string
	ChangeURL   string
	SubmitLabel string
	// Notice is a status line shown above the fields, e.g. the outcome of
	// the last submit.
	Notice string
}

type sectionView struct {
	Title  string
	Fields []string
}

type formView struct {
	Title       string
	Name        string
	Action      string
	ChangeURL   string
	HasErrors   bool
	Banner      string
	Notice      string
	Sections    []sectionView
	SubmitLabel string
}

// RenderForm writes a complete form page in section order.
func (r *Renderer) RenderForm(w io.Writer, schema *form.Schema, state form.State, opts Options) error {
	view := formView{
		Title:       schema.Title,
		Name:        schema.Name,
		Action:      opts.Action,
		ChangeURL:   opts.ChangeURL,
		HasErrors:   len(state.Errors) > 0,
		Banner:      Banner,
		Notice:      opts.Notice,
		SubmitLabel: opts.SubmitLabel,
	}
	if view.SubmitLabel == "" {
		view.SubmitLabel = "บันทึก"
	}

	var buf bytes.Buffer
	for _, section := range schema.Sections {
		sv := sectionView{Title: section.Title}
		for _, field := range section.Fields {
			buf.Reset()
			if err := r.RenderField(&buf, field, state.Values[field.Name], state.Errors[field.Name]); err != nil {
				return err
			}
			sv.Fields = append(sv.Fields, buf.String())
		}
		view.Sections = append(view.Sections, sv)
	}

	if err := r.form.ExecuteWriter(pongo2.Context{"form": view}, w); err != nil {
		return fmt.Errorf("render form %q: %w", schema.Name, err)
	}
	return nil
}

// ImportPage is the state of the import screen for one request.
type ImportPage struct {
	BasePath   string
	Message    string
	Busy       bool
	FileName   string
	CanUpload  bool
	CanConfirm bool
	Batch      *entity.ImportBatch
	Table      preview.View
}

type cellView struct {
	Text  string
	Align string
	Class string
}

type rowView struct {
	Cells []cellView
}

type importView struct {
	ImportPage
	Rows      []rowView
	SortQuery string
}

// RenderImport writes the import page with the current preview window.
func (r *Renderer) RenderImport(w io.Writer, page ImportPage) error {
	view := importView{ImportPage: page}
	if page.Table.SortKey != "" {
		view.SortQuery = "&sort=" + page.Table.SortKey
		if page.Table.SortDesc {
			view.SortQuery += "&desc=1"
		}
	}
	for _, rec := range page.Table.Rows {
		row := rowView{Cells: make([]cellView, 0, len(page.Table.Columns))}
		for _, col := range page.Table.Columns {
			cell := cellView{Align: col.Align}
			switch col.Key {
			case "status":
				cell.Text = rec.Status
				cell.Class = preview.StatusColor(rec.Status)
			case "remark":
				cell.Text = rec.Remark
			default:
				cell.Text = rec.Field(col.Key)
			}
			row.Cells = append(row.Cells, cell)
		}
		view.Rows = append(view.Rows, row)
	}

	ctx := pongo2.Context{"page": view}
	if err := r.imp.ExecuteWriter(ctx, w); err != nil {
		return fmt.Errorf("render import page: %w", err)
	}
	return nil
}
