package render

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfantasy/whp/internal/whp/entity"
	"github.com/bitfantasy/whp/internal/whp/form"
	"github.com/bitfantasy/whp/internal/whp/preview"
	"github.com/bitfantasy/whp/internal/whp/validate"
)

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New()
	require.NoError(t, err)
	return r
}

func renderField(t *testing.T, r *Renderer, f form.FieldDescriptor, v form.Value, errMsg string) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, r.RenderField(&buf, f, v, errMsg))
	return buf.String()
}

func TestRenderFieldControls(t *testing.T) {
	r := newRenderer(t)
	opts := []form.Option{{Title: "ชาย", Value: "male"}, {Title: "หญิง", Value: "female"}}

	cases := []struct {
		field form.FieldDescriptor
		want  string
	}{
		{form.FieldDescriptor{Name: "a", Kind: form.KindText}, `type="text"`},
		{form.FieldDescriptor{Name: "a", Kind: form.KindEmail}, `type="email"`},
		{form.FieldDescriptor{Name: "a", Kind: form.KindPassword}, `type="password"`},
		{form.FieldDescriptor{Name: "a", Kind: form.KindDate}, `type="date"`},
		{form.FieldDescriptor{Name: "a", Kind: form.KindTextarea}, `<textarea`},
		{form.FieldDescriptor{Name: "a", Kind: form.KindSelect, Options: opts}, `<select id="a"`},
		{form.FieldDescriptor{Name: "a", Kind: form.KindMultiSelect, Options: opts}, ` multiple`},
		{form.FieldDescriptor{Name: "a", Kind: form.KindCheckbox}, `type="checkbox" value="true"`},
	}
	for _, tc := range cases {
		out := renderField(t, r, tc.field, form.Value{}, "")
		assert.Contains(t, out, tc.want, string(tc.field.Kind))
	}

	err := r.RenderField(&bytes.Buffer{}, form.FieldDescriptor{Name: "a", Kind: "slider"}, form.Value{}, "")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestRenderFieldLabelAndPlaceholder(t *testing.T) {
	r := newRenderer(t)

	out := renderField(t, r, form.FieldDescriptor{Name: "weight_kg", Label: "น้ำหนัก", Kind: form.KindText, Required: true, Unit: "กก."}, form.Text("70"), "")
	assert.Contains(t, out, `<span class="text-destructive ml-1">*</span>`)
	assert.Contains(t, out, "(กก.)")
	assert.Contains(t, out, `placeholder="น้ำหนัก"`)
	assert.Contains(t, out, `value="70"`)
	assert.Contains(t, out, "col-span-12 lg:col-span-12")

	out = renderField(t, r, form.FieldDescriptor{Name: "bmi", Label: "BMI", Kind: form.KindText, Required: true, Disabled: true, ColSpan: 3}, form.Text("22.9"), "")
	assert.NotContains(t, out, "*</span>", "disabled fields carry no required mark")
	assert.Contains(t, out, "disabled readonly")
	assert.Contains(t, out, "lg:col-span-3")

	out = renderField(t, r, form.FieldDescriptor{Name: "gender", Label: "เพศ", Kind: form.KindSelect,
		Options: []form.Option{{Title: "ชาย", Value: "male"}, {Title: "หญิง", Value: "female"}}}, form.Text("female"), "")
	assert.Contains(t, out, ">เลือกเพศ</option>")
	assert.Contains(t, out, `<option value="female" selected>หญิง</option>`)
	assert.Contains(t, out, `<option value="male">ชาย</option>`)
}

func TestRenderFieldMultiSelectKeepsSelection(t *testing.T) {
	r := newRenderer(t)
	field := form.FieldDescriptor{Name: "org_activities", Label: "กิจกรรม", Kind: form.KindMultiSelect,
		Options: []form.Option{{Title: "ออกกำลังกาย", Value: "exercise"}, {Title: "โภชนาการ", Value: "nutrition"}, {Title: "ตรวจสุขภาพ", Value: "checkup"}}}

	out := renderField(t, r, field, form.List([]string{"exercise", "checkup"}), "")
	assert.Contains(t, out, `value="exercise" selected`)
	assert.Contains(t, out, `value="checkup" selected`)
	assert.NotContains(t, out, `value="nutrition" selected`)
}

func TestRenderFieldEscapesAndSanitizes(t *testing.T) {
	r := newRenderer(t)
	field := form.FieldDescriptor{
		Name:        "first_name",
		Label:       "ชื่อ",
		Kind:        form.KindText,
		Description: `<b>ภาษาไทย</b><script>alert(1)</script>`,
	}

	out := renderField(t, r, field, form.Text(`"><script>x</script>`), "<i>ผิด</i>")
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.Contains(t, out, "<b>ภาษาไทย</b>")
	assert.Contains(t, out, "&lt;i&gt;ผิด&lt;/i&gt;", "error text is not markup")
}

func TestRenderFieldNeverEchoesPasswords(t *testing.T) {
	r := newRenderer(t)
	out := renderField(t, r, form.FieldDescriptor{Name: "password", Label: "รหัสผ่าน", Kind: form.KindPassword}, form.Text("Secret123"), "")
	assert.NotContains(t, out, "Secret123")
}

func TestRenderFormBanner(t *testing.T) {
	r := newRenderer(t)
	catalog, err := form.LoadCatalog(validate.NewRules(validate.DefaultPolicies()))
	require.NoError(t, err)
	schema, err := catalog.Get("health")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.RenderForm(&buf, schema, form.State{}, Options{Action: "/forms/health"}))
	out := buf.String()
	assert.NotContains(t, out, Banner)
	assert.Contains(t, out, `action="/forms/health"`)
	for _, f := range schema.Fields() {
		assert.Contains(t, out, `data-field="`+f.Name+`"`)
	}
	assert.Less(t, strings.Index(out, `data-field="employee_code"`), strings.Index(out, `data-field="health_behavior"`))

	buf.Reset()
	state := form.State{Errors: map[string]string{"first_name": "ชื่อ จำเป็นต้องกรอก"}}
	require.NoError(t, r.RenderForm(&buf, schema, state, Options{}))
	assert.Contains(t, buf.String(), Banner)
	assert.Contains(t, buf.String(), "ชื่อ จำเป็นต้องกรอก")
}

func TestRenderImport(t *testing.T) {
	r := newRenderer(t)
	records := []entity.ImportedRecord{
		{RowNumber: 2, Status: entity.RowStatusOK, Data: entity.RowData{"employee_code": "E1", "first_name": "ก"}},
		{RowNumber: 3, Status: "ERROR", Remark: "เลขบัตรไม่ถูกต้อง", Data: entity.RowData{"employee_code": "E2", "first_name": "ข"}},
	}
	table := preview.New(preview.DefaultPageSize)

	var buf bytes.Buffer
	require.NoError(t, r.RenderImport(&buf, ImportPage{
		BasePath:   "/whp/import",
		FileName:   "staff.xlsx",
		CanConfirm: true,
		Batch:      &entity.ImportBatch{BatchUUID: "b-1", TotalRows: 2},
		Table:      table.View(records),
	}))
	out := buf.String()
	assert.Contains(t, out, "staff.xlsx")
	assert.Contains(t, out, "b-1")
	assert.Contains(t, out, "text-green-700")
	assert.Contains(t, out, "text-red-700")
	assert.Contains(t, out, "เลขบัตรไม่ถูกต้อง")
	assert.Contains(t, out, "1-2 จาก 2 รายการ")

	buf.Reset()
	require.NoError(t, r.RenderImport(&buf, ImportPage{BasePath: "/whp/import", Table: table.View(nil)}))
	assert.Contains(t, buf.String(), "ไม่มีข้อมูล")
	assert.NotContains(t, buf.String(), "Batch ")
}

func TestRenderCheckbox(t *testing.T) {
	r := newRenderer(t)
	f := form.FieldDescriptor{Name: "accept_terms", Label: "ยอมรับเงื่อนไขและบริการ", Kind: form.KindCheckbox, Required: true}

	out := renderField(t, r, f, form.Text(""), validate.MsgNotAccepted)
	assert.NotContains(t, out, " checked")
	assert.Contains(t, out, "ยอมรับเงื่อนไขและบริการ")
	assert.Contains(t, out, validate.MsgNotAccepted)
	assert.Equal(t, 1, strings.Count(out, "<label"))

	out = renderField(t, r, f, form.Text("true"), "")
	assert.Contains(t, out, " checked")
}

func TestDecodeChange(t *testing.T) {
	body := url.Values{
		"first_name":     {"สมชาย"},
		"org_activities": {"exercise", "", "checkup"},
		"birth_date":     {"01/05/1990"},
	}

	v := DecodeChange(form.FieldDescriptor{Name: "first_name", Kind: form.KindText}, body)
	assert.Equal(t, "สมชาย", v.String())

	v = DecodeChange(form.FieldDescriptor{Name: "org_activities", Kind: form.KindMultiSelect}, body)
	assert.Equal(t, []string{"exercise", "checkup"}, v.Items())

	v = DecodeChange(form.FieldDescriptor{Name: "birth_date", Kind: form.KindDate}, body)
	assert.Equal(t, "1990-05-01", v.String())

	terms := form.FieldDescriptor{Name: "accept_terms", Kind: form.KindCheckbox}
	v = DecodeChange(terms, url.Values{"accept_terms": {"on"}})
	assert.Equal(t, "true", v.String())
	v = DecodeChange(terms, body)
	assert.Equal(t, "", v.String())

	v = DecodeChange(form.FieldDescriptor{Name: "missing", Kind: form.KindMultiSelect}, body)
	assert.True(t, v.IsList())
	assert.True(t, v.IsEmpty())
}

func TestDecodeValue(t *testing.T) {
	multi := form.FieldDescriptor{Name: "m", Kind: form.KindMultiSelect}
	text := form.FieldDescriptor{Name: "t", Kind: form.KindText}
	date := form.FieldDescriptor{Name: "d", Kind: form.KindDate}

	v, err := DecodeValue(multi, json.RawMessage(`["a","b"]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, v.Items())

	v, err = DecodeValue(multi, json.RawMessage(`"a"`))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, v.Items())

	v, err = DecodeValue(text, json.RawMessage(`72.5`))
	require.NoError(t, err)
	assert.Equal(t, "72.5", v.String())

	_, err = DecodeValue(text, json.RawMessage(`["a"]`))
	assert.Error(t, err)

	v, err = DecodeValue(date, json.RawMessage(`"1990-05-01T00:00:00Z"`))
	require.NoError(t, err)
	assert.Equal(t, "1990-05-01", v.String())

	v, err = DecodeValue(date, json.RawMessage(`"not a date"`))
	require.NoError(t, err)
	assert.Equal(t, "not a date", v.String())

	terms := form.FieldDescriptor{Name: "accept_terms", Kind: form.KindCheckbox}
	v, err = DecodeValue(terms, json.RawMessage(`true`))
	require.NoError(t, err)
	assert.Equal(t, "true", v.String())
	v, err = DecodeValue(terms, json.RawMessage(`false`))
	require.NoError(t, err)
	assert.Equal(t, "", v.String())
}

func TestDecodeFormSkipsDisabledFields(t *testing.T) {
	catalog, err := form.LoadCatalog(validate.NewRules(validate.DefaultPolicies()))
	require.NoError(t, err)
	schema, err := catalog.Get("health")
	require.NoError(t, err)

	values := DecodeForm(schema, url.Values{"bmi": {"99"}, "weight_kg": {"70"}})
	assert.NotContains(t, values, "bmi")
	assert.Equal(t, "70", values.Text("weight_kg"))
	assert.Equal(t, "", values.Text("first_name"))
}
