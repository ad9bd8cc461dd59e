package domain

// LabTestStatus is the derived position of a result against its reference
// range.
type LabTestStatus string

const (
	LabStatusLow    LabTestStatus = "low"
	LabStatusNormal LabTestStatus = "normal"
	LabStatusHigh   LabTestStatus = "high"
)

// LabReport is the structured form of a lab report document.
type LabReport struct {
	PatientName         *string   `json:"patient_name"`
	ReportDate          *string   `json:"report_date"`
	LabName             *string   `json:"lab_name"`
	Tests               []LabTest `json:"tests"`
	SignificantFindings []string  `json:"significant_findings"`
	DoctorComments      *string   `json:"doctor_comments"`
}

// LabTest is a single test result. Value keeps the magnitude as a string so
// the backend receives it verbatim; Status is derived from the reference
// range table, not taken from the extraction capability.
type LabTest struct {
	TestName    string         `json:"test_name"`
	Value       string         `json:"value"`
	Unit        string         `json:"unit"`
	NormalRange *string        `json:"normal_range"`
	Status      *LabTestStatus `json:"status"`
}

// ReferenceRange bounds a normal test result. The range table is static
// input to the normalizer, keyed by canonical test name.
type ReferenceRange struct {
	Min  float64 `mapstructure:"min" json:"min"`
	Max  float64 `mapstructure:"max" json:"max"`
	Unit string  `mapstructure:"unit" json:"unit"`
}

// Classify places a magnitude inside, below or above the range.
func (r ReferenceRange) Classify(value float64) LabTestStatus {
	switch {
	case value < r.Min:
		return LabStatusLow
	case value > r.Max:
		return LabStatusHigh
	default:
		return LabStatusNormal
	}
}
