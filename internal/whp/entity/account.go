package entity

// Company is the organization block of a registration.
type Company struct {
	Name             string   `json:"name"`
	CompanyCode      string   `json:"company_code"`
	EmployeeCount    int      `json:"employee_count"`
	OrganizationSize string   `json:"organization_size"`
	Address          string   `json:"address"`
	SubdistrictName  string   `json:"subdistrict_nm"`
	DistrictName     string   `json:"district_nm"`
	ProvinceName     string   `json:"province_nm"`
	Zipcode          string   `json:"zipcode"`
	ContactPhone     string   `json:"contact_phone"`
	Email            string   `json:"email"`
	HealthActivities []string `json:"health_activities"`
	SubdistrictCode  string   `json:"subdistrict_code"`
	DistrictCode     string   `json:"district_code"`
	ProvinceCode     string   `json:"province_code"`
}

// Registration creates an organization together with its first account.
type Registration struct {
	Username  string  `json:"username"`
	Password  string  `json:"password"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	TaxID     string  `json:"tax_id"`
	Company   Company `json:"company"`
}

// NewUser is the payload of the add-user form.
type NewUser struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	TaxID       string `json:"tax_id"`
	Phone       string `json:"phone"`
	JobPosition string `json:"job_position"`
	Email       string `json:"email,omitempty"`
	Role        string `json:"role,omitempty"`
}
