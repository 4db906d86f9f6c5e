package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Row statuses. PENDING is assigned locally; everything else comes from the
// remote validator.
const (
	RowStatusPending = "PENDING"
	RowStatusOK      = "OK"
)

// RowData holds the template columns of one imported row keyed by column key.
// The remote validator may echo numeric cells as JSON numbers; they are kept
// in their textual form.
type RowData map[string]string

func (d *RowData) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(RowData, len(raw))
	for k, v := range raw {
		s, err := scalarText(v)
		if err != nil {
			return fmt.Errorf("column %s: %w", k, err)
		}
		out[k] = s
	}
	*d = out
	return nil
}

func scalarText(v json.RawMessage) (string, error) {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return "", nil
	}
	switch v[0] {
	case '"':
		var s string
		err := json.Unmarshal(v, &s)
		return s, err
	case '{', '[':
		return "", fmt.Errorf("expected scalar, got %s", v[:1])
	}
	if f, err := strconv.ParseFloat(string(v), 64); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	}
	return string(v), nil
}

// ImportedRecord is one data row of an uploaded spreadsheet.
type ImportedRecord struct {
	RowNumber int     `json:"row_number"`
	Data      RowData `json:"data"`
	Status    string  `json:"status"`
	Remark    string  `json:"remark,omitempty"`
}

// Field returns the value of a template column.
func (r ImportedRecord) Field(key string) string {
	return r.Data[key]
}

// OK reports whether the remote validator accepted the row.
func (r ImportedRecord) OK() bool {
	return r.Status == RowStatusOK
}

// ImportBatch is the server-assigned unit of validated rows awaiting
// confirmation.
type ImportBatch struct {
	BatchUUID string           `json:"batch_uuid"`
	TotalRows int              `json:"total_rows"`
	Rows      []ImportedRecord `json:"rows"`
}

// Counts returns the number of accepted and rejected rows.
func (b ImportBatch) Counts() (ok, failed int) {
	for _, r := range b.Rows {
		if r.OK() {
			ok++
		} else {
			failed++
		}
	}
	return ok, failed
}
