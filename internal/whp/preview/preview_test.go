package preview

import (
	"fmt"
	"testing"

	"github.com/bitfantasy/whp/internal/whp/entity"
)

func records(n int) []entity.ImportedRecord {
	out := make([]entity.ImportedRecord, n)
	for i := range out {
		out[i] = entity.ImportedRecord{
			RowNumber: i + 2,
			Data: entity.RowData{
				"employee_code": fmt.Sprintf("EMP%03d", i+1),
				"weight_kg":     fmt.Sprintf("%d", 100-i),
			},
			Status: entity.RowStatusPending,
		}
	}
	return out
}

func TestSetPageSizeResetsIndex(t *testing.T) {
	for _, start := range []int{0, 1, 3, 9} {
		for _, size := range PageSizeOptions {
			tbl := New(5)
			tbl.Goto(start+1, 50)
			tbl.SetPageSize(size)
			if tbl.PageIndex != 0 {
				t.Fatalf("start %d size %d: page index = %d, want 0", start, size, tbl.PageIndex)
			}
		}
	}
}

func TestSetPageSizeIgnoresNonPositive(t *testing.T) {
	tbl := New(10)
	tbl.Goto(2, 30)
	tbl.SetPageSize(0)
	if tbl.PageSize != 10 || tbl.PageIndex != 1 {
		t.Fatalf("got size %d index %d", tbl.PageSize, tbl.PageIndex)
	}
}

func TestPageWindowAndRange(t *testing.T) {
	recs := records(23)
	tbl := New(10)

	if got := tbl.Range(len(recs)); got != "1-10 จาก 23 รายการ" {
		t.Fatalf("range = %q", got)
	}
	tbl.Next(len(recs))
	tbl.Next(len(recs))
	tbl.Next(len(recs))
	if tbl.PageIndex != 2 {
		t.Fatalf("next should stop on last page, index = %d", tbl.PageIndex)
	}
	page := tbl.Page(recs)
	if len(page) != 3 || page[0].Field("employee_code") != "EMP021" {
		t.Fatalf("unexpected last page: %+v", page)
	}
	if got := tbl.Range(len(recs)); got != "21-23 จาก 23 รายการ" {
		t.Fatalf("range = %q", got)
	}

	tbl.Prev()
	tbl.Prev()
	tbl.Prev()
	if tbl.PageIndex != 0 {
		t.Fatalf("prev should stop on first page, index = %d", tbl.PageIndex)
	}

	if got := New(10).Range(0); got != "0 จาก 0 รายการ" {
		t.Fatalf("empty range = %q", got)
	}
}

func TestPageDoesNotMutateInput(t *testing.T) {
	recs := records(6)
	tbl := New(10)
	tbl.SetSort("weight_kg", false)

	page := tbl.Page(recs)
	if page[0].Field("weight_kg") != "95" {
		t.Fatalf("ascending numeric sort, first = %s", page[0].Field("weight_kg"))
	}
	if recs[0].Field("weight_kg") != "100" {
		t.Fatal("input slice was reordered")
	}

	tbl.SetSort("weight_kg", true)
	if got := tbl.Page(recs)[0].Field("weight_kg"); got != "100" {
		t.Fatalf("descending first = %s", got)
	}
}

func TestNumericSortBeatsLexical(t *testing.T) {
	recs := []entity.ImportedRecord{
		{Data: entity.RowData{"weight_kg": "9"}},
		{Data: entity.RowData{"weight_kg": "80"}},
		{Data: entity.RowData{"weight_kg": "100"}},
	}
	tbl := New(10)
	tbl.SetSort("weight_kg", false)
	page := tbl.Page(recs)
	got := []string{page[0].Field("weight_kg"), page[1].Field("weight_kg"), page[2].Field("weight_kg")}
	want := []string{"9", "80", "100"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sorted = %v, want %v", got, want)
		}
	}
}

func TestMixedColumnSortsNumbersFirst(t *testing.T) {
	values := []string{"1x", "10", "NaN", "2", "abc", ""}
	for _, a := range values {
		for _, b := range values {
			if less(a, b) && less(b, a) {
				t.Fatalf("less(%q, %q) and less(%q, %q) both hold", a, b, b, a)
			}
			for _, c := range values {
				if less(a, b) && less(b, c) && !less(a, c) {
					t.Fatalf("less is not transitive over %q, %q, %q", a, b, c)
				}
			}
		}
	}

	recs := make([]entity.ImportedRecord, len(values))
	for i, v := range values {
		recs[i] = entity.ImportedRecord{Data: entity.RowData{"weight_kg": v}}
	}
	tbl := New(10)
	tbl.SetSort("weight_kg", false)
	page := tbl.Page(recs)
	want := []string{"2", "10", "", "1x", "NaN", "abc"}
	for i := range want {
		if got := page[i].Field("weight_kg"); got != want[i] {
			t.Fatalf("row %d = %q, want %q", i, got, want[i])
		}
	}
}

func TestUnsortableColumnClearsSort(t *testing.T) {
	tbl := New(10)
	tbl.SetSort("employee_code", true)
	if tbl.SortKey != "" || tbl.SortDesc {
		t.Fatalf("employee_code is not sortable, got %q", tbl.SortKey)
	}
}

func TestVisiblePages(t *testing.T) {
	render := func(links []PageLink) string {
		s := ""
		for _, l := range links {
			if l.Ellipsis {
				s += "… "
				continue
			}
			if l.Current {
				s += fmt.Sprintf("[%d] ", l.Number)
			} else {
				s += fmt.Sprintf("%d ", l.Number)
			}
		}
		return s
	}

	cases := []struct {
		current, total int
		want           string
	}{
		{1, 0, ""},
		{1, 3, "[1] 2 3 "},
		{1, 5, "[1] 2 3 4 5 "},
		{1, 10, "[1] 2 … 10 "},
		{3, 10, "1 2 [3] 4 … 10 "},
		{4, 10, "1 … 3 [4] 5 … 10 "},
		{8, 10, "1 … 7 [8] 9 10 "},
		{10, 10, "1 … 9 [10] "},
	}
	for _, c := range cases {
		if got := render(VisiblePages(c.current, c.total)); got != c.want {
			t.Errorf("VisiblePages(%d, %d) = %q, want %q", c.current, c.total, got, c.want)
		}
	}
}

func TestStatusColor(t *testing.T) {
	if StatusColor("OK") != "text-green-700" {
		t.Fatal("OK should be green")
	}
	for _, s := range []string{"PENDING", "ERROR", ""} {
		if StatusColor(s) != "text-red-700" {
			t.Fatalf("%q should be red", s)
		}
	}
}

func TestViewClampsStaleIndex(t *testing.T) {
	tbl := &Table{PageIndex: 7, PageSize: 10}
	v := tbl.View(records(12))
	if v.PageIndex != 1 || len(v.Rows) != 2 || v.HasNext || !v.HasPrev {
		t.Fatalf("unexpected view: index=%d rows=%d next=%v prev=%v", v.PageIndex, len(v.Rows), v.HasNext, v.HasPrev)
	}
	if v.TotalPages != 2 || v.Range != "11-12 จาก 12 รายการ" {
		t.Fatalf("pages=%d range=%q", v.TotalPages, v.Range)
	}
}
