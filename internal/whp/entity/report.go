package entity

// HealthCheckReport is the normalized create payload of one employee's
// annual health check. Contact fields and the derived BMI stay in the form.
type HealthCheckReport struct {
	EmployeeCode           string  `json:"employee_code"`
	TaxID                  string  `json:"tax_id"`
	FirstName              string  `json:"first_name"`
	LastName               string  `json:"last_name"`
	JobPosition            string  `json:"job_position"`
	BirthDate              string  `json:"birth_date"`
	Gender                 string  `json:"gender"`
	Age                    int     `json:"age"`
	Nationality            string  `json:"nationality"`
	MaritalStatus          string  `json:"marital_status"`
	WeightKg               float64 `json:"weight_kg"`
	HeightCm               float64 `json:"height_cm"`
	WaistCm                float64 `json:"waist_cm"`
	UnderlyingDisease      string  `json:"underlying_disease"`
	BloodPressureSystolic  int     `json:"blood_pressure_systolic"`
	BloodPressureDiastolic int     `json:"blood_pressure_diastolic"`
	BloodSugar             float64 `json:"blood_sugar"`
	Cholesterol            float64 `json:"cholesterol"`
	Triglyceride           float64 `json:"triglyceride"`
	HealthBehavior         string  `json:"health_behavior"`
}

// Period is one reporting month offered by the list filter.
type Period struct {
	RoundYearMonth string `json:"round_year_month"`
	Count          int    `json:"count,omitempty"`
}
