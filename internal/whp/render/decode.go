package render

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bitfantasy/whp/internal/whp/form"
	"github.com/bitfantasy/whp/internal/whp/validate"
)

var dateLayouts = []string{"2006-01-02", "02/01/2006", "2/1/2006", time.RFC3339}

// DecodeChange extracts the value of field from a submitted form body.
// Multiselect fields yield every selected option; dates are normalized to
// YYYY-MM-DD. No validation happens here.
func DecodeChange(field form.FieldDescriptor, values url.Values) form.Value {
	if field.Kind == form.KindMultiSelect {
		return form.List(nonEmpty(values[field.Name]))
	}
	raw := values.Get(field.Name)
	switch field.Kind {
	case form.KindDate:
		raw = NormalizeDate(raw)
	case form.KindCheckbox:
		raw = validate.Accepted(raw)
	}
	return form.Text(raw)
}

// DecodeValue decodes the JSON value of an incremental change.
func DecodeValue(field form.FieldDescriptor, raw json.RawMessage) (form.Value, error) {
	var v form.Value
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &v); err != nil {
			return form.Value{}, fmt.Errorf("field %q: %w", field.Name, err)
		}
	}
	switch {
	case field.Kind == form.KindMultiSelect && !v.IsList():
		if v.String() == "" {
			return form.List(nil), nil
		}
		return form.List([]string{v.String()}), nil
	case field.Kind != form.KindMultiSelect && v.IsList():
		return form.Value{}, fmt.Errorf("field %q: %s does not take a list", field.Name, field.Kind)
	case field.Kind == form.KindDate:
		return form.Text(NormalizeDate(v.String())), nil
	case field.Kind == form.KindCheckbox:
		return form.Text(validate.Accepted(v.String())), nil
	}
	return v, nil
}

// DecodeForm reads every schema field from a full form post.
func DecodeForm(schema *form.Schema, values url.Values) form.Values {
	out := make(form.Values, len(schema.Fields()))
	for _, field := range schema.Fields() {
		if field.Disabled {
			continue
		}
		out[field.Name] = DecodeChange(field, values)
	}
	return out
}

// NormalizeDate returns s as YYYY-MM-DD when it parses as a known date
// layout, and s unchanged otherwise.
func NormalizeDate(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return s
}

func nonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item) != "" {
			out = append(out, item)
		}
	}
	return out
}
