package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/careagent/medai/internal/domain"
)

// Defaults applied when the source text does not state a value. They exist so
// a schedule can still be built; the stock estimate is never built on them.
const (
	defaultTimesPerDay = 1
	defaultDays        = 7
)

var digitRe = regexp.MustCompile(`\d+`)

// frequencyPatterns maps common prescription shorthand to times per day.
// The list is ordered most-specific first and every alternative is
// word-bounded, so "twice daily" never resolves through the bare "daily"
// entry and "od" cannot match inside words like "period".
var frequencyPatterns = []struct {
	re    *regexp.Regexp
	times int
}{
	{regexp.MustCompile(`\b(?:four times|qid|q6h)\b`), 4},
	{regexp.MustCompile(`\b(?:thrice|three times|tds|tid|q8h)\b`), 3},
	{regexp.MustCompile(`\b(?:twice daily|twice a day|twice|bd|bid|q12h)\b`), 2},
	{regexp.MustCompile(`\b(?:once daily|once a day|once|od)\b`), 1},
	{regexp.MustCompile(`\bdaily\b`), 1},
}

// ParseFrequency converts a free-text frequency ("twice daily", "1+0+1",
// "every 8 hours") into times per day. known is false when nothing in the
// text could be interpreted; callers then fall back to the default but must
// not estimate stock.
func ParseFrequency(raw string) (times int, known bool) {
	text := strings.ToLower(strings.TrimSpace(raw))
	if text == "" {
		return defaultTimesPerDay, false
	}

	for _, p := range frequencyPatterns {
		if p.re.MatchString(text) {
			return p.times, true
		}
	}

	// "every N hours" schedules
	if strings.Contains(text, "every") && strings.Contains(text, "hour") {
		if m := digitRe.FindString(text); m != "" {
			hours, _ := strconv.Atoi(m)
			switch hours {
			case 6:
				return 4, true
			case 8:
				return 3, true
			case 12:
				return 2, true
			}
			if hours > 0 && 24%hours == 0 {
				return 24 / hours, true
			}
		}
	}

	// Dose grids like "1+0+1" count the non-zero slots.
	if strings.Contains(text, "+") {
		doses := 0
		for _, part := range strings.Split(text, "+") {
			if n, err := strconv.Atoi(strings.TrimSpace(part)); err == nil && n > 0 {
				doses++
			}
		}
		if doses > 0 {
			return doses, true
		}
	}

	// Bare "3 times" style
	if strings.Contains(text, "time") {
		if m := digitRe.FindString(text); m != "" {
			if n, _ := strconv.Atoi(m); n > 0 && n <= 6 {
				return n, true
			}
		}
	}

	return defaultTimesPerDay, false
}

// ParseDuration converts a free-text duration ("7 days", "2 weeks", "1
// month") into days. known is false when the text carried no usable duration.
func ParseDuration(raw *string) (days int, known bool) {
	if raw == nil {
		return defaultDays, false
	}
	text := strings.ToLower(strings.TrimSpace(*raw))
	if text == "" {
		return defaultDays, false
	}

	m := digitRe.FindString(text)
	if m == "" {
		return defaultDays, false
	}
	n, _ := strconv.Atoi(m)
	if n <= 0 {
		return defaultDays, false
	}

	switch {
	case strings.Contains(text, "week"):
		return n * 7, true
	case strings.Contains(text, "month"):
		return n * 30, true
	default:
		return n, true
	}
}

// ParseMealTiming reads meal-relation keywords out of the instruction text.
// Nothing recognized means both flags stay false.
func ParseMealTiming(instructions string) (beforeMeal, afterMeal bool) {
	text := strings.ToLower(instructions)
	if strings.Contains(text, "before") || strings.Contains(text, "empty stomach") {
		beforeMeal = true
	}
	if strings.Contains(text, "after") || strings.Contains(text, "with food") || strings.Contains(text, "with meal") {
		afterMeal = true
	}
	return beforeMeal, afterMeal
}

// ConvertMedicine coerces one AI-readable medicine line into the
// backend-ready shape. Stock is only estimated when both the frequency and
// the duration were actually stated; a guessed stock of zero would read as
// "out of medicine" downstream.
func ConvertMedicine(m domain.PrescribedMedicine) domain.BackendMedicine {
	times, timesKnown := ParseFrequency(m.Frequency)
	days, daysKnown := ParseDuration(m.Duration)
	before, after := ParseMealTiming(m.Instructions)

	out := domain.BackendMedicine{
		Name:        strings.TrimSpace(m.Name),
		HowManyTime: times,
		HowManyDay:  days,
		BeforeMeal:  before,
		AfterMeal:   after,
	}

	if timesKnown && daysKnown {
		stock := times * days
		out.Stock = &stock
	}

	return out
}

// MedicineFromIntent builds a backend-ready medicine from classified intent
// data, e.g. {"medicine_name": "Napa", "frequency": "twice daily"}. It lets a
// spoken instruction produce the same proposal shape a scanned prescription
// does.
func MedicineFromIntent(data map[string]string) (domain.BackendMedicine, error) {
	name := strings.TrimSpace(data["medicine_name"])
	if name == "" {
		name = strings.TrimSpace(data["name"])
	}
	if name == "" {
		return domain.BackendMedicine{}, domain.NewValidationError("medicine name missing from intent data")
	}

	var duration *string
	if d := strings.TrimSpace(data["duration"]); d != "" {
		duration = &d
	}

	med := ConvertMedicine(domain.PrescribedMedicine{
		Name:         name,
		Frequency:    data["frequency"],
		Duration:     duration,
		Instructions: data["instructions"],
	})
	if duration == nil {
		// Spoken schedules run open-ended; assume a month instead of the
		// prescription default of a week. Stock stays null either way.
		med.HowManyDay = 30
	}
	return med, nil
}

// ConvertPrescription builds the backend-ready record from an AI-readable
// prescription plus the request-scoped identifiers. The output shape is a
// versioned contract; the caller forwards it to the backend unmodified.
func ConvertPrescription(p *domain.Prescription, cctx domain.ConversionContext) *domain.BackendPrescription {
	out := &domain.BackendPrescription{
		Users:             cctx.UserID,
		Doctor:            cctx.DoctorID,
		PrescriptionImage: cctx.PrescriptionImageURL,
		Medicines:         make([]domain.BackendMedicine, 0, len(p.Medicines)),
		MedicalTests:      []domain.BackendMedicalTest{},
	}

	if p.PatientName != nil && strings.TrimSpace(*p.PatientName) != "" {
		patient := &domain.BackendPatient{
			Name: strings.TrimSpace(*p.PatientName),
		}
		if p.PatientAge != nil {
			patient.Age = *p.PatientAge
		}
		if p.Diagnosis != nil && strings.TrimSpace(*p.Diagnosis) != "" {
			issues := strings.TrimSpace(*p.Diagnosis)
			patient.HealthIssues = &issues
		}
		out.Patient = patient
	}

	for _, m := range p.Medicines {
		if strings.TrimSpace(m.Name) == "" {
			continue
		}
		out.Medicines = append(out.Medicines, ConvertMedicine(m))
	}

	return out
}
