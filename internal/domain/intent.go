package domain

// Intent is one of the closed set of recognized user intents.
type Intent string

const (
	IntentAddMedicine         Intent = "add_medicine"
	IntentScheduleAppointment Intent = "schedule_appointment"
	IntentQueryStock          Intent = "query_stock"
	IntentQuerySchedule       Intent = "query_schedule"
	IntentRefillMedicine      Intent = "refill_medicine"
	IntentAskQuestion         Intent = "ask_question"
	IntentUnknown             Intent = "unknown"
)

// KnownIntents is the closed set the classifier may emit. Anything outside
// it collapses to IntentUnknown.
var KnownIntents = map[Intent]bool{
	IntentAddMedicine:         true,
	IntentScheduleAppointment: true,
	IntentQueryStock:          true,
	IntentQuerySchedule:       true,
	IntentRefillMedicine:      true,
	IntentAskQuestion:         true,
	IntentUnknown:             true,
}

// StateChanging reports whether acting on the intent would write state
// downstream. Such intents always require explicit user confirmation.
func (i Intent) StateChanging() bool {
	return i == IntentAddMedicine || i == IntentScheduleAppointment
}

// BackendAction describes a read-only backend query an intent implies.
// Endpoint is a path; the backend client only ever issues GET requests.
type BackendAction struct {
	Endpoint     string            `json:"api_endpoint"`
	QueryFilters map[string]string `json:"query_filters,omitempty"`
}

// IntentRecord is the classifier's output for one request. It is created
// once, consumed immediately by the orchestrator and never persisted.
type IntentRecord struct {
	Intent              Intent            `json:"intent"`
	Confidence          float64           `json:"confidence"`
	Data                map[string]string `json:"data,omitempty"`
	ConfirmationNeeded  bool              `json:"confirmation_needed"`
	ConfirmationMessage string            `json:"confirmation_message,omitempty"`
	UserResponse        string            `json:"user_response,omitempty"`
	BackendAction       *BackendAction    `json:"backend_action,omitempty"`
}
