package domain

// ExtractionSchema names the structured shape an extraction must produce.
type ExtractionSchema string

const (
	SchemaPrescription ExtractionSchema = "prescription"
	SchemaLabReport    ExtractionSchema = "lab_report"
	SchemaIntent       ExtractionSchema = "intent"
)

// Prescription is the AI-readable extraction variant. Values stay as the
// model produced them ("twice daily", "7 days"); nothing is coerced yet.
type Prescription struct {
	PatientName      *string              `json:"patient_name"`
	PatientAge       *int                 `json:"patient_age"`
	PrescriptionDate *string              `json:"prescription_date"`
	DoctorName       *string              `json:"doctor_name"`
	Medicines        []PrescribedMedicine `json:"medicines"`
	Diagnosis        *string              `json:"diagnosis"`
	Advice           *string              `json:"advice"`
}

// PrescribedMedicine is a single medicine line in AI-readable form.
type PrescribedMedicine struct {
	Name         string  `json:"name"`
	Type         *string `json:"type"`
	Dosage       string  `json:"dosage"`
	Frequency    string  `json:"frequency"`
	Duration     *string `json:"duration"`
	Instructions string  `json:"instructions"`
	RefillNeeded bool    `json:"refill_needed"`
}

// BackendPrescription is the backend-ready variant. Its shape is a versioned
// contract with the backend collaborator and must be forwardable unmodified.
type BackendPrescription struct {
	Users               *int                 `json:"users"`
	Doctor              *int                 `json:"doctor"`
	PrescriptionImage   *string              `json:"prescription_image"`
	NextAppointmentDate *string              `json:"next_appointment_date"`
	Patient             *BackendPatient      `json:"patient"`
	Medicines           []BackendMedicine    `json:"medicines"`
	MedicalTests        []BackendMedicalTest `json:"medical_tests"`
}

// BackendPatient mirrors the backend's patient sub-record.
type BackendPatient struct {
	Name         string  `json:"name"`
	Age          int     `json:"age"`
	Sex          *string `json:"sex"`
	HealthIssues *string `json:"health_issues"`
}

// BackendMedicine mirrors the backend's medicine sub-record. Stock is a
// pointer: when frequency or duration could not be parsed from the source
// text the stock estimate is null, never zero.
type BackendMedicine struct {
	Name        string `json:"name"`
	HowManyTime int    `json:"how_many_time"`
	HowManyDay  int    `json:"how_many_day"`
	Stock       *int   `json:"stock"`
	BeforeMeal  bool   `json:"before_meal"`
	AfterMeal   bool   `json:"after_meal"`
}

// BackendMedicalTest mirrors the backend's medical-test sub-record.
type BackendMedicalTest struct {
	Name string `json:"name"`
}

// ConversionContext carries the optional identifiers attached to a
// backend-ready conversion. All fields may be nil.
type ConversionContext struct {
	UserID               *int
	DoctorID             *int
	PrescriptionImageURL *string
}

// StructuredData is the tagged variant embedded in an assistant response for
// document-mode requests.
type StructuredData struct {
	Schema       ExtractionSchema     `json:"schema"`
	Prescription *BackendPrescription `json:"prescription,omitempty"`
	LabReport    *LabReport           `json:"lab_report,omitempty"`
}
