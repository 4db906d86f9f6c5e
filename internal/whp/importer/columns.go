// Package importer turns an uploaded health-check spreadsheet into preview
// records and drives the upload/confirm round trip with the remote
// validator.
package importer

// Column is one positional column of the import template.
type Column struct {
	Key    string
	Header string
	Width  float64
}

// Columns is the template column order. Parsing maps cells by position, so
// reordering this list breaks every template already handed out.
var Columns = []Column{
	{Key: "employee_code", Header: "รหัสพนักงาน", Width: 14},
	{Key: "tax_id", Header: "เลขประจำตัวประชาชน", Width: 18},
	{Key: "first_name", Header: "ชื่อ", Width: 16},
	{Key: "last_name", Header: "นามสกุล", Width: 16},
	{Key: "job_position", Header: "ตำแหน่ง", Width: 16},
	{Key: "birth_date", Header: "วันเกิด", Width: 12},
	{Key: "gender", Header: "เพศ", Width: 8},
	{Key: "age", Header: "อายุ", Width: 6},
	{Key: "nationality", Header: "สัญชาติ", Width: 10},
	{Key: "marital_status", Header: "สถานภาพสมรส", Width: 12},
	{Key: "weight_kg", Header: "น้ำหนัก (กก.)", Width: 12},
	{Key: "height_cm", Header: "ส่วนสูง (ซม.)", Width: 12},
	{Key: "waist_cm", Header: "รอบเอว (ซม.)", Width: 12},
	{Key: "underlying_disease", Header: "โรคประจำตัว", Width: 16},
	{Key: "bmi", Header: "BMI", Width: 8},
	{Key: "blood_pressure_systolic", Header: "ความดัน (ตัวบน)", Width: 14},
	{Key: "blood_pressure_diastolic", Header: "ความดัน (ตัวล่าง)", Width: 14},
	{Key: "blood_sugar", Header: "น้ำตาลในเลือด", Width: 14},
	{Key: "cholesterol", Header: "คอเลสเตอรอล", Width: 12},
	{Key: "triglyceride", Header: "ไตรกลีเซอไรด์", Width: 14},
	{Key: "health_behavior", Header: "พฤติกรรมสุขภาพ", Width: 16},
}

const (
	keyEmployeeCode = "employee_code"
	keyBirthDate    = "birth_date"
)

// ColumnKeys returns the column keys in template order.
func ColumnKeys() []string {
	keys := make([]string, len(Columns))
	for i, c := range Columns {
		keys[i] = c.Key
	}
	return keys
}

// Headers returns the header row of the template.
func Headers() []string {
	headers := make([]string, len(Columns))
	for i, c := range Columns {
		headers[i] = c.Header
	}
	return headers
}
