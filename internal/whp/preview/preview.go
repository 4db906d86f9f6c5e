// Package preview projects import records onto a paginated, sortable table.
// It never mutates the records it is given.
package preview

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/bitfantasy/whp/internal/whp/entity"
)

// DefaultPageSize is used when no page size is requested.
const DefaultPageSize = 10

const maxVisiblePages = 5

// PageSizeOptions are the selectable page sizes.
var PageSizeOptions = []int{5, 10, 20, 30, 40, 50}

// Column is one displayed preview column.
type Column struct {
	Key      string `json:"key"`
	Header   string `json:"header"`
	Sortable bool   `json:"sortable"`
	Align    string `json:"align"`
}

// Columns lists the preview columns in display order.
var Columns = []Column{
	{Key: "status", Header: "สถานะ", Align: "center"},
	{Key: "employee_code", Header: "รหัสพนักงาน", Align: "left"},
	{Key: "first_name", Header: "ชื่อ", Sortable: true, Align: "left"},
	{Key: "last_name", Header: "นามสกุล", Align: "left"},
	{Key: "tax_id", Header: "รหัสประจำตัวประชาชน", Align: "center"},
	{Key: "job_position", Header: "ตำแหน่ง", Align: "left"},
	{Key: "gender", Header: "เพศ", Align: "center"},
	{Key: "birth_date", Header: "วันเกิด", Sortable: true, Align: "center"},
	{Key: "nationality", Header: "สัญชาติ", Sortable: true, Align: "center"},
	{Key: "weight_kg", Header: "น้ำหนัก (กก.)", Sortable: true, Align: "center"},
	{Key: "height_cm", Header: "ส่วนสูง (ซม.)", Sortable: true, Align: "center"},
	{Key: "blood_pressure_systolic", Header: "ความดัน (ตัวบน)", Sortable: true, Align: "center"},
	{Key: "blood_pressure_diastolic", Header: "ความดัน (ตัวล่าง)", Sortable: true, Align: "center"},
	{Key: "blood_sugar", Header: "น้ำตาลในเลือด", Sortable: true, Align: "center"},
	{Key: "cholesterol", Header: "คอเลสเตอรอล", Sortable: true, Align: "center"},
	{Key: "remark", Header: "หมายเหตุ", Align: "center"},
}

// Sortable reports whether key is a sortable column.
func Sortable(key string) bool {
	for _, c := range Columns {
		if c.Key == key {
			return c.Sortable
		}
	}
	return false
}

// Table is the pagination and sort state of one preview.
type Table struct {
	PageIndex int
	PageSize  int
	SortKey   string
	SortDesc  bool
}

// New returns a table on the first page.
func New(pageSize int) *Table {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Table{PageSize: pageSize}
}

// SetPageSize changes the page size and always returns to the first page.
// Non-positive sizes are ignored.
func (t *Table) SetPageSize(n int) {
	if n <= 0 {
		return
	}
	t.PageSize = n
	t.PageIndex = 0
}

// SetSort sorts by a sortable column and returns to the first page. An empty
// or unknown key clears the sort.
func (t *Table) SetSort(key string, desc bool) {
	if !Sortable(key) {
		t.SortKey, t.SortDesc = "", false
	} else {
		t.SortKey, t.SortDesc = key, desc
	}
	t.PageIndex = 0
}

// TotalPages returns the page count for total records.
func (t *Table) TotalPages(total int) int {
	if t.PageSize <= 0 || total <= 0 {
		return 0
	}
	return (total + t.PageSize - 1) / t.PageSize
}

// Next moves forward unless on the last page.
func (t *Table) Next(total int) {
	if t.PageIndex < t.TotalPages(total)-1 {
		t.PageIndex++
	}
}

// Prev moves back unless on the first page.
func (t *Table) Prev() {
	if t.PageIndex > 0 {
		t.PageIndex--
	}
}

// Goto jumps to a 1-based page number, clamped to the available pages.
func (t *Table) Goto(page, total int) {
	t.PageIndex = page - 1
	t.clamp(total)
}

func (t *Table) clamp(total int) {
	last := t.TotalPages(total) - 1
	if t.PageIndex > last {
		t.PageIndex = last
	}
	if t.PageIndex < 0 {
		t.PageIndex = 0
	}
}

// Page returns the visible window of records, sorted when a sort key is set.
// The input slice is not modified.
func (t *Table) Page(records []entity.ImportedRecord) []entity.ImportedRecord {
	t.clamp(len(records))
	sorted := make([]entity.ImportedRecord, len(records))
	copy(sorted, records)
	if t.SortKey != "" {
		key, desc := t.SortKey, t.SortDesc
		sort.SliceStable(sorted, func(i, j int) bool {
			if desc {
				return less(sorted[j].Field(key), sorted[i].Field(key))
			}
			return less(sorted[i].Field(key), sorted[j].Field(key))
		})
	}

	start := t.PageIndex * t.PageSize
	if start >= len(sorted) {
		return []entity.ImportedRecord{}
	}
	end := start + t.PageSize
	if end > len(sorted) {
		end = len(sorted)
	}
	return sorted[start:end]
}

// less orders numeric cells numerically, ahead of every non-numeric cell,
// which sort as text.
func less(a, b string) bool {
	fa, numA := number(a)
	fb, numB := number(b)
	switch {
	case numA && numB:
		return fa < fb
	case numA != numB:
		return numA
	}
	return a < b
}

func number(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// Range returns the "start-end จาก total รายการ" summary.
func (t *Table) Range(total int) string {
	if total <= 0 {
		return "0 จาก 0 รายการ"
	}
	start := t.PageIndex*t.PageSize + 1
	end := (t.PageIndex + 1) * t.PageSize
	if end > total {
		end = total
	}
	return fmt.Sprintf("%d-%d จาก %d รายการ", start, end, total)
}

// PageLink is one slot of the page selector; Ellipsis slots carry no number.
type PageLink struct {
	Number   int  `json:"number,omitempty"`
	Ellipsis bool `json:"ellipsis,omitempty"`
	Current  bool `json:"current,omitempty"`
}

// VisiblePages returns the page selector for a 1-based current page: every
// page when there are at most five, otherwise first, neighbours of current
// and last with ellipses for the gaps.
func VisiblePages(current, totalPages int) []PageLink {
	var pages []int
	ellipsisAfter := map[int]bool{}
	if totalPages <= maxVisiblePages {
		for i := 1; i <= totalPages; i++ {
			pages = append(pages, i)
		}
	} else {
		pages = append(pages, 1)
		if current > 3 {
			ellipsisAfter[len(pages)] = true
		}
		start := max(2, current-1)
		end := min(totalPages-1, current+1)
		for i := start; i <= end; i++ {
			pages = append(pages, i)
		}
		if current < totalPages-2 {
			ellipsisAfter[len(pages)] = true
		}
		pages = append(pages, totalPages)
	}

	links := make([]PageLink, 0, len(pages)+2)
	for i, n := range pages {
		if ellipsisAfter[i] {
			links = append(links, PageLink{Ellipsis: true})
		}
		links = append(links, PageLink{Number: n, Current: n == current})
	}
	return links
}

// StatusColor returns the indicator class for a row status.
func StatusColor(status string) string {
	if status == entity.RowStatusOK {
		return "text-green-700"
	}
	return "text-red-700"
}

// View is everything a page needs to draw the table.
type View struct {
	Columns         []Column                `json:"columns"`
	Rows            []entity.ImportedRecord `json:"rows"`
	Total           int                     `json:"total"`
	PageIndex       int                     `json:"page_index"`
	PageSize        int                     `json:"page_size"`
	TotalPages      int                     `json:"total_pages"`
	Range           string                  `json:"range"`
	Pages           []PageLink              `json:"pages"`
	HasPrev         bool                    `json:"has_prev"`
	HasNext         bool                    `json:"has_next"`
	SortKey         string                  `json:"sort,omitempty"`
	SortDesc        bool                    `json:"desc,omitempty"`
	PageSizeOptions []int                   `json:"page_size_options"`
}

// View projects records through the table state.
func (t *Table) View(records []entity.ImportedRecord) View {
	rows := t.Page(records)
	total := len(records)
	totalPages := t.TotalPages(total)
	return View{
		Columns:         Columns,
		Rows:            rows,
		Total:           total,
		PageIndex:       t.PageIndex,
		PageSize:        t.PageSize,
		TotalPages:      totalPages,
		Range:           t.Range(total),
		Pages:           VisiblePages(t.PageIndex+1, totalPages),
		HasPrev:         t.PageIndex > 0,
		HasNext:         t.PageIndex < totalPages-1,
		SortKey:         t.SortKey,
		SortDesc:        t.SortDesc,
		PageSizeOptions: PageSizeOptions,
	}
}
