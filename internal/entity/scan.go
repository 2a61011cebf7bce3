package entity

import (
	"time"

	"UrbanScout/pkg/vision"
)

type Severity string

const (
	SeverityLow    Severity = "Low"
	SeverityMedium Severity = "Medium"
	SeverityHigh   Severity = "High"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	default:
		return false
	}
}

// NormalizeSeverity maps free-form model output onto the severity scale.
// Only the exact values Low, Medium and High are accepted; anything else,
// case variants included, becomes Medium. The second return reports whether
// the input was already valid so callers can log the normalization.
func NormalizeSeverity(raw string) (Severity, bool) {
	switch Severity(raw) {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return Severity(raw), true
	}

	return SeverityMedium, false
}

type IssueEntry struct {
	Type        string   `json:"type"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
}

// IssueReport is the structured analysis persisted as llm_report_structured.
type IssueReport struct {
	Summary string       `json:"summary"`
	Issues  []IssueEntry `json:"issues"`
}

// AnalysisUnavailableSummary is the fixed placeholder summary stored when the
// model response cannot be parsed at all.
const AnalysisUnavailableSummary = "analysis unavailable"

type ReportStatus string

const (
	ReportParsed      ReportStatus = "parsed"
	ReportRecovered   ReportStatus = "recovered"
	ReportUnavailable ReportStatus = "unavailable"
)

// AnalysisResult carries the structured report together with the untouched
// raw model output. Raw is persisted alongside the parsed form so a parser
// bug can be diagnosed after the fact.
type AnalysisResult struct {
	Report IssueReport
	Raw    string
	Status ReportStatus
}

// ScanRecord is one completed (possibly degraded) scan. Records are written
// once and never mutated; there is no delete path.
type ScanRecord struct {
	ID                string             `json:"id"`
	Latitude          float64            `json:"latitude"`
	Longitude         float64            `json:"longitude"`
	ImageURL          string             `json:"image_url"`
	AnnotatedImageURL string             `json:"annotated_image_url"`
	Detections        []vision.Detection `json:"detection_results"`
	Report            IssueReport        `json:"llm_report_structured"`
	RawReport         string             `json:"llm_report"`
	CreatedAt         time.Time          `json:"created_at"`
}

// HighSeverityCount counts issues reported as High.
func (r ScanRecord) HighSeverityCount() int {
	count := 0
	for _, issue := range r.Report.Issues {
		if issue.Severity == SeverityHigh {
			count++
		}
	}
	return count
}
