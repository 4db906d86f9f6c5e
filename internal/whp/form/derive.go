package form

import (
	"strconv"
	"strings"
)

// Deriver recomputes computed fields after changed was stored.
type Deriver func(changed string, values Values)

var derivers = map[string]Deriver{
	"bmi": DeriveBMI,
}

// DeriveBMI writes bmi = weight / (height in metres)^2 with one decimal
// whenever weight_kg or height_cm changes and both are positive numbers.
func DeriveBMI(changed string, values Values) {
	if changed != "weight_kg" && changed != "height_cm" {
		return
	}
	if bmi, ok := BMI(values.Text("weight_kg"), values.Text("height_cm")); ok {
		values["bmi"] = Text(bmi)
	}
}

// BMI computes the one-decimal body mass index from textual weight (kg)
// and height (cm).
func BMI(weight, height string) (string, bool) {
	w, err := strconv.ParseFloat(strings.TrimSpace(weight), 64)
	if err != nil || w <= 0 {
		return "", false
	}
	h, err := strconv.ParseFloat(strings.TrimSpace(height), 64)
	if err != nil || h <= 0 {
		return "", false
	}
	m := h / 100
	return strconv.FormatFloat(w/(m*m), 'f', 1, 64), true
}
