package form

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Value is the stored value of one field: either a single string or, for
// multiselect fields, a sequence of strings.
type Value struct {
	text   string
	items  []string
	isList bool
}

// Text wraps a single string value.
func Text(s string) Value {
	return Value{text: s}
}

// List wraps a multiselect value. The slice is copied.
func List(items []string) Value {
	cp := make([]string, len(items))
	copy(cp, items)
	return Value{items: cp, isList: true}
}

// IsList reports whether v holds a sequence.
func (v Value) IsList() bool { return v.isList }

// String returns the text value, or the items joined by ", " for lists.
func (v Value) String() string {
	if v.isList {
		return strings.Join(v.items, ", ")
	}
	return v.text
}

// Items returns a copy of the sequence; a text value yields nil.
func (v Value) Items() []string {
	if !v.isList {
		return nil
	}
	cp := make([]string, len(v.items))
	copy(cp, v.items)
	return cp
}

// IsEmpty reports a blank text or an empty sequence.
func (v Value) IsEmpty() bool {
	if v.isList {
		return len(v.items) == 0
	}
	return strings.TrimSpace(v.text) == ""
}

// Equal compares kind and content.
func (v Value) Equal(o Value) bool {
	if v.isList != o.isList {
		return false
	}
	if !v.isList {
		return v.text == o.text
	}
	if len(v.items) != len(o.items) {
		return false
	}
	for i := range v.items {
		if v.items[i] != o.items[i] {
			return false
		}
	}
	return true
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.isList {
		items := v.items
		if items == nil {
			items = []string{}
		}
		return json.Marshal(items)
	}
	return json.Marshal(v.text)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*v = Text("")
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Text(s)
	case data[0] == '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		items := make([]string, 0, len(raw))
		for _, r := range raw {
			var item Value
			if err := item.UnmarshalJSON(r); err != nil {
				return err
			}
			if item.isList {
				return fmt.Errorf("nested list in field value")
			}
			items = append(items, item.text)
		}
		*v = List(items)
	default:
		// numbers and booleans keep their literal text
		*v = Text(string(data))
	}
	return nil
}

// Values maps field name to value.
type Values map[string]Value

// Text returns the text of name, or "" when absent or a list.
func (vs Values) Text(name string) string {
	v, ok := vs[name]
	if !ok || v.isList {
		return ""
	}
	return v.text
}

// Clone returns a deep copy.
func (vs Values) Clone() Values {
	out := make(Values, len(vs))
	for k, v := range vs {
		if v.isList {
			out[k] = List(v.items)
		} else {
			out[k] = v
		}
	}
	return out
}
