package service

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/bitfantasy/whp/internal/whp/entity"
	"github.com/bitfantasy/whp/internal/whp/form"
)

var (
	leadingFloat = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?`)
	leadingInt   = regexp.MustCompile(`^[+-]?\d+`)
)

// parseFloat reads the leading number of s; anything unparseable is 0.
func parseFloat(s string) float64 {
	m := leadingFloat.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return f
}

// parseInt reads the leading integer of s; anything unparseable is 0.
func parseInt(s string) int {
	m := leadingInt.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}

// HealthReportFromValues normalizes a valid health form into the create
// payload. Numeric fields that do not parse become 0.
func HealthReportFromValues(v form.Values) entity.HealthCheckReport {
	return entity.HealthCheckReport{
		EmployeeCode:           v.Text("employee_code"),
		TaxID:                  v.Text("tax_id"),
		FirstName:              v.Text("first_name"),
		LastName:               v.Text("last_name"),
		JobPosition:            v.Text("job_position"),
		BirthDate:              v.Text("birth_date"),
		Gender:                 v.Text("gender"),
		Age:                    parseInt(v.Text("age")),
		Nationality:            v.Text("nationality"),
		MaritalStatus:          v.Text("marital_status"),
		WeightKg:               parseFloat(v.Text("weight_kg")),
		HeightCm:               parseFloat(v.Text("height_cm")),
		WaistCm:                parseFloat(v.Text("waist_cm")),
		UnderlyingDisease:      v.Text("underlying_disease"),
		BloodPressureSystolic:  parseInt(v.Text("blood_pressure_systolic")),
		BloodPressureDiastolic: parseInt(v.Text("blood_pressure_diastolic")),
		BloodSugar:             parseFloat(v.Text("blood_sugar")),
		Cholesterol:            parseFloat(v.Text("cholesterol")),
		Triglyceride:           parseFloat(v.Text("triglyceride")),
		HealthBehavior:         v.Text("health_behavior"),
	}
}

// RegistrationFromValues maps the register form onto the nested
// registration payload. Area codes are left empty.
func RegistrationFromValues(v form.Values) entity.Registration {
	activities := v["org_activities"].Items()
	if activities == nil {
		activities = []string{}
	}
	return entity.Registration{
		Username:  v.Text("username"),
		Password:  v.Text("password"),
		FirstName: v.Text("first_name"),
		LastName:  v.Text("last_name"),
		TaxID:     v.Text("citizen_id"),
		Company: entity.Company{
			Name:             v.Text("org_name"),
			CompanyCode:      v.Text("org_code"),
			EmployeeCount:    parseInt(v.Text("employee_total")),
			OrganizationSize: v.Text("org_size"),
			Address:          v.Text("org_address"),
			SubdistrictName:  v.Text("org_district"),
			DistrictName:     v.Text("org_area"),
			ProvinceName:     v.Text("org_province"),
			Zipcode:          v.Text("org_zipcode"),
			ContactPhone:     v.Text("org_phone"),
			Email:            v.Text("org_email"),
			HealthActivities: activities,
		},
	}
}

// NewUserFromValues maps the add-user form.
func NewUserFromValues(v form.Values) entity.NewUser {
	return entity.NewUser{
		Username:    v.Text("username"),
		Password:    v.Text("password"),
		FirstName:   v.Text("first_name"),
		LastName:    v.Text("last_name"),
		TaxID:       v.Text("tax_id"),
		Phone:       v.Text("phone"),
		JobPosition: v.Text("job_position"),
		Email:       v.Text("email"),
		Role:        v.Text("role"),
	}
}
