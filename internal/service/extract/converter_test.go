package extract

import (
	"testing"

	"github.com/careagent/medai/internal/domain"
)

func TestParseFrequency(t *testing.T) {
	cases := []struct {
		raw       string
		wantTimes int
		wantKnown bool
	}{
		{"once daily", 1, true},
		{"twice daily", 2, true},
		{"BD", 2, true},
		{"TDS", 3, true},
		{"QID", 4, true},
		{"every 6 hours", 4, true},
		{"every 8 hours", 3, true},
		{"every 12 hours", 2, true},
		{"1+0+1", 2, true},
		{"1+1+1", 3, true},
		{"3 times a day", 3, true},
		{"", 1, false},
		{"as needed", 1, false},
		{"during the postoperative period", 1, false},
		{"apply to the body as directed", 1, false},
	}

	for _, tc := range cases {
		times, known := ParseFrequency(tc.raw)
		if times != tc.wantTimes || known != tc.wantKnown {
			t.Errorf("ParseFrequency(%q) = (%d, %v), want (%d, %v)",
				tc.raw, times, known, tc.wantTimes, tc.wantKnown)
		}
	}
}

func TestParseFrequency_StableAcrossRepeatedCalls(t *testing.T) {
	// "twice daily" also contains "daily"; the more specific phrase must
	// win on every call, not just on a lucky match order.
	for i := 0; i < 500; i++ {
		times, known := ParseFrequency("twice daily")
		if times != 2 || !known {
			t.Fatalf("call %d: ParseFrequency(%q) = (%d, %v), want (2, true)", i, "twice daily", times, known)
		}
	}
	for i := 0; i < 500; i++ {
		times, known := ParseFrequency("once daily after dinner")
		if times != 1 || !known {
			t.Fatalf("call %d: ParseFrequency(%q) = (%d, %v), want (1, true)", i, "once daily after dinner", times, known)
		}
	}
}

func TestParseDuration(t *testing.T) {
	week := "2 weeks"
	month := "1 month"
	days := "10 days"
	empty := ""
	vague := "until finished"

	cases := []struct {
		name      string
		raw       *string
		wantDays  int
		wantKnown bool
	}{
		{"weeks multiply by seven", &week, 14, true},
		{"months multiply by thirty", &month, 30, true},
		{"plain days pass through", &days, 10, true},
		{"nil falls back", nil, 7, false},
		{"empty falls back", &empty, 7, false},
		{"no number falls back", &vague, 7, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			days, known := ParseDuration(tc.raw)
			if days != tc.wantDays || known != tc.wantKnown {
				t.Errorf("got (%d, %v), want (%d, %v)", days, known, tc.wantDays, tc.wantKnown)
			}
		})
	}
}

func TestParseMealTiming(t *testing.T) {
	cases := []struct {
		raw        string
		wantBefore bool
		wantAfter  bool
	}{
		{"take before breakfast", true, false},
		{"on empty stomach", true, false},
		{"after meal", false, true},
		{"take with food", false, true},
		{"with meals", false, true},
		{"swallow whole", false, false},
	}

	for _, tc := range cases {
		before, after := ParseMealTiming(tc.raw)
		if before != tc.wantBefore || after != tc.wantAfter {
			t.Errorf("ParseMealTiming(%q) = (%v, %v), want (%v, %v)",
				tc.raw, before, after, tc.wantBefore, tc.wantAfter)
		}
	}
}

func TestConvertMedicine_StockWhenBothKnown(t *testing.T) {
	// Arrange
	duration := "7 days"
	med := domain.PrescribedMedicine{
		Name:         "Napa",
		Frequency:    "twice daily",
		Duration:     &duration,
		Instructions: "after meal",
	}

	// Act
	out := ConvertMedicine(med)

	// Assert
	if out.HowManyTime != 2 || out.HowManyDay != 7 {
		t.Fatalf("expected 2 times over 7 days, got %d over %d", out.HowManyTime, out.HowManyDay)
	}
	if out.Stock == nil || *out.Stock != 14 {
		t.Errorf("expected stock 14, got %v", out.Stock)
	}
	if out.BeforeMeal || !out.AfterMeal {
		t.Errorf("expected after-meal only, got before=%v after=%v", out.BeforeMeal, out.AfterMeal)
	}
}

func TestConvertMedicine_StockNullWhenFrequencyUnknown(t *testing.T) {
	// Arrange
	duration := "7 days"
	med := domain.PrescribedMedicine{
		Name:      "Seclo",
		Frequency: "as directed",
		Duration:  &duration,
	}

	// Act
	out := ConvertMedicine(med)

	// Assert
	if out.Stock != nil {
		t.Errorf("expected null stock for unknown frequency, got %d", *out.Stock)
	}
	if out.HowManyTime != 1 || out.HowManyDay != 7 {
		t.Errorf("expected defaults 1 and 7, got %d and %d", out.HowManyTime, out.HowManyDay)
	}
}

func TestConvertMedicine_StockNullWhenDurationUnknown(t *testing.T) {
	// Arrange
	med := domain.PrescribedMedicine{
		Name:      "Monas",
		Frequency: "once daily",
	}

	// Act
	out := ConvertMedicine(med)

	// Assert
	if out.Stock != nil {
		t.Errorf("expected null stock for unknown duration, got %d", *out.Stock)
	}
}

func TestMedicineFromIntent(t *testing.T) {
	// Arrange
	data := map[string]string{
		"medicine_name": "Napa",
		"frequency":     "twice daily",
	}

	// Act
	med, err := MedicineFromIntent(data)

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if med.Name != "Napa" || med.HowManyTime != 2 {
		t.Errorf("unexpected medicine: %+v", med)
	}
	if med.HowManyDay != 30 {
		t.Errorf("spoken schedule without duration must assume 30 days, got %d", med.HowManyDay)
	}
	if med.Stock != nil {
		t.Errorf("stock must stay null without a stated duration, got %d", *med.Stock)
	}

	if _, err := MedicineFromIntent(map[string]string{"frequency": "daily"}); domain.KindOf(err) != domain.KindValidation {
		t.Errorf("expected validation error without a name, got %v", err)
	}
}

func TestConvertPrescription(t *testing.T) {
	// Arrange
	name := "Rahim Uddin"
	age := 54
	diagnosis := "Type 2 diabetes"
	duration := "1 week"
	userID := 12
	doctorID := 3
	imageURL := "https://cdn.example.com/rx/42.jpg"

	p := &domain.Prescription{
		PatientName: &name,
		PatientAge:  &age,
		Diagnosis:   &diagnosis,
		Medicines: []domain.PrescribedMedicine{
			{Name: "Metformin", Frequency: "twice daily", Duration: &duration, Instructions: "with food"},
			{Name: "", Frequency: "once"},
		},
	}

	// Act
	out := ConvertPrescription(p, domain.ConversionContext{
		UserID:               &userID,
		DoctorID:             &doctorID,
		PrescriptionImageURL: &imageURL,
	})

	// Assert
	if out.Users == nil || *out.Users != 12 {
		t.Errorf("expected users 12, got %v", out.Users)
	}
	if out.Doctor == nil || *out.Doctor != 3 {
		t.Errorf("expected doctor 3, got %v", out.Doctor)
	}
	if out.Patient == nil || out.Patient.Name != "Rahim Uddin" || out.Patient.Age != 54 {
		t.Fatalf("unexpected patient: %+v", out.Patient)
	}
	if out.Patient.HealthIssues == nil || *out.Patient.HealthIssues != "Type 2 diabetes" {
		t.Errorf("expected diagnosis carried as health issues, got %v", out.Patient.HealthIssues)
	}
	if len(out.Medicines) != 1 {
		t.Fatalf("expected nameless medicine dropped, got %d medicines", len(out.Medicines))
	}
	if out.Medicines[0].Stock == nil || *out.Medicines[0].Stock != 14 {
		t.Errorf("expected stock 14, got %v", out.Medicines[0].Stock)
	}
	if out.MedicalTests == nil || len(out.MedicalTests) != 0 {
		t.Errorf("expected empty medical_tests slice, got %v", out.MedicalTests)
	}
}
