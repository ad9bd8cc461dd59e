package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/careagent/medai/internal/domain"
	"github.com/careagent/medai/internal/ports"
)

// Service normalizes LLM extraction output into schema-valid records. The
// capability adapter guarantees syntactically valid JSON; everything beyond
// that, coercion, defaulting and derived fields, happens here.
type Service struct {
	extractor ports.LLMExtractor
	ranges    map[string]domain.ReferenceRange
	log       *zap.Logger
}

func NewService(extractor ports.LLMExtractor, ranges map[string]domain.ReferenceRange, log *zap.Logger) *Service {
	return &Service{
		extractor: extractor,
		ranges:    ranges,
		log:       log,
	}
}

// ExtractPrescription produces the AI-readable prescription record from raw
// text. Values are kept as the model produced them.
func (s *Service) ExtractPrescription(ctx context.Context, rawText string) (*domain.Prescription, error) {
	payload, err := s.extractor.Extract(ctx, rawText, domain.SchemaPrescription)
	if err != nil {
		return nil, err
	}

	var p domain.Prescription
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, domain.NewExtractionError("prescription payload does not match schema", err)
	}
	if p.Medicines == nil {
		p.Medicines = []domain.PrescribedMedicine{}
	}

	s.log.Info("Prescription extracted", zap.Int("medicines", len(p.Medicines)))
	return &p, nil
}

// ExtractPrescriptionBackend produces the backend-ready record. It derives
// from a single extraction call; the conversion is pure and never goes back
// to the model.
func (s *Service) ExtractPrescriptionBackend(ctx context.Context, rawText string, cctx domain.ConversionContext) (*domain.BackendPrescription, error) {
	p, err := s.ExtractPrescription(ctx, rawText)
	if err != nil {
		return nil, err
	}
	return ConvertPrescription(p, cctx), nil
}

// ExtractLabReport produces a structured lab report. Test status is derived
// from the reference-range table whenever the test name and magnitude can be
// matched; the model's own status claim is only a fallback.
func (s *Service) ExtractLabReport(ctx context.Context, rawText string) (*domain.LabReport, error) {
	payload, err := s.extractor.Extract(ctx, rawText, domain.SchemaLabReport)
	if err != nil {
		return nil, err
	}

	var report domain.LabReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, domain.NewExtractionError("lab report payload does not match schema", err)
	}
	if report.Tests == nil {
		report.Tests = []domain.LabTest{}
	}

	for i := range report.Tests {
		s.classifyTest(&report.Tests[i])
	}
	report.SignificantFindings = significantFindings(report.Tests)

	s.log.Info("Lab report extracted",
		zap.Int("tests", len(report.Tests)),
		zap.Int("findings", len(report.SignificantFindings)),
	)
	return &report, nil
}

func (s *Service) classifyTest(test *domain.LabTest) {
	ref, ok := s.ranges[strings.ToLower(strings.TrimSpace(test.TestName))]
	if !ok {
		return
	}

	value, ok := parseMagnitude(test.Value)
	if !ok {
		return
	}

	status := ref.Classify(value)
	test.Status = &status
	if test.NormalRange == nil {
		nr := fmt.Sprintf("%g-%g %s", ref.Min, ref.Max, ref.Unit)
		test.NormalRange = &nr
	}
	if test.Unit == "" {
		test.Unit = ref.Unit
	}
}

var magnitudeRe = regexp.MustCompile(`-?\d+(\.\d+)?`)

// parseMagnitude pulls the first numeric magnitude out of a result value
// string such as "7.2 mmol/L" or "<5".
func parseMagnitude(raw string) (float64, bool) {
	m := magnitudeRe.FindString(raw)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func significantFindings(tests []domain.LabTest) []string {
	findings := []string{}
	for _, t := range tests {
		if t.Status == nil || *t.Status == domain.LabStatusNormal {
			continue
		}
		findings = append(findings, fmt.Sprintf("%s is %s (%s)", t.TestName, *t.Status, t.Value))
	}
	return findings
}
