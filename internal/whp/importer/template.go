package importer

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	// TemplateSheet is the data sheet of the import template.
	TemplateSheet = "ข้อมูลสุขภาพ"
	// TemplateFileName is offered as the download name.
	TemplateFileName = "WHP_Import_Template.xlsx"

	// HelpSheet explains each column with an example value. It is never
	// parsed.
	HelpSheet = "คำอธิบาย"
)

var templateHelp = map[string]string{
	"employee_code":            "รหัสพนักงาน (ต้องไม่ว่าง แถวที่ไม่มีรหัสจะถูกข้าม)",
	"tax_id":                   "เลขประจำตัวประชาชน 13 หลัก",
	"birth_date":               "วันเกิด รูปแบบ YYYY-MM-DD หรือเซลล์วันที่",
	"gender":                   "male / female",
	"nationality":              "thai / other",
	"marital_status":           "single / married / divorced / widowed",
	"weight_kg":                "น้ำหนัก หน่วยกิโลกรัม",
	"height_cm":                "ส่วนสูง หน่วยเซนติเมตร",
	"bmi":                      "คำนวณจากน้ำหนักและส่วนสูง เว้นว่างได้",
	"blood_pressure_systolic":  "ความดันตัวบน (mmHg)",
	"blood_pressure_diastolic": "ความดันตัวล่าง (mmHg)",
	"underlying_disease":       "none / diabetes / hypertension / dyslipidemia / other",
	"health_behavior":          "smoking / alcohol / exercise / none",
}

// templateSample is the example column of the help sheet, in Columns order.
var templateSample = []string{
	"EMP001", "1101700230708", "สมชาย", "ใจดี", "วิศวกร", "1990-05-01", "male", "35",
	"thai", "single", "70", "175", "82", "none", "22.9", "120", "80", "95", "180", "140", "exercise",
}

// GenerateTemplate builds the downloadable import workbook from Columns.
func GenerateTemplate() (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", TemplateSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	boldStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	for i, col := range Columns {
		name, _ := excelize.ColumnNumberToName(i + 1)
		cell := name + "1"
		if err := f.SetCellValue(TemplateSheet, cell, col.Header); err != nil {
			return nil, err
		}
		_ = f.SetCellStyle(TemplateSheet, cell, cell, boldStyle)
		_ = f.SetColWidth(TemplateSheet, name, name, col.Width)
	}

	if _, err := f.NewSheet(HelpSheet); err != nil {
		return nil, fmt.Errorf("help sheet: %w", err)
	}
	help := [][]string{{"คอลัมน์", "ชื่อฟิลด์", "คำอธิบาย", "ตัวอย่าง"}}
	for i, col := range Columns {
		help = append(help, []string{col.Header, col.Key, templateHelp[col.Key], templateSample[i]})
	}
	for i, row := range help {
		for j, val := range row {
			name, _ := excelize.ColumnNumberToName(j + 1)
			_ = f.SetCellValue(HelpSheet, fmt.Sprintf("%s%d", name, i+1), val)
		}
	}
	_ = f.SetColWidth(HelpSheet, "A", "A", 20)
	_ = f.SetColWidth(HelpSheet, "B", "B", 26)
	_ = f.SetColWidth(HelpSheet, "C", "C", 50)
	_ = f.SetColWidth(HelpSheet, "D", "D", 16)

	return f, nil
}
