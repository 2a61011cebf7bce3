package scanService

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"

	"UrbanScout/internal/entity"
	"UrbanScout/pkg/vision"
)

// analyzeDetections asks the language model for an issue report. It never
// fails the scan: any model or parse problem yields the placeholder report
// with the raw output preserved for diagnosis.
func (s *scanService) analyzeDetections(ctx context.Context, requestID string, latitude, longitude float64, detections []vision.Detection) entity.AnalysisResult {
	prompt := buildAnalysisPrompt(latitude, longitude, detections)

	var raw string
	err := s.withRetry(ctx, requestID, "generate issue report", func() error {
		var genErr error
		raw, genErr = s.groq.GenerateReport(ctx, prompt)
		return genErr
	})
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Issue report generation failed, storing placeholder")

		return placeholderResult("")
	}

	result := s.parseReport(requestID, raw)

	if result.Status == entity.ReportRecovered {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
		}).Warn("Model reply was not pure JSON, recovered embedded object")
	}
	if result.Status == entity.ReportUnavailable {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"raw_length": len(raw),
		}).Warn("Could not parse model reply, storing placeholder")
	}

	return result
}

func buildAnalysisPrompt(latitude, longitude float64, detections []vision.Detection) string {
	var b strings.Builder

	fmt.Fprintf(&b, "The following objects were detected in a street-level image taken at coordinate (%f, %f):\n\n", latitude, longitude)

	if len(detections) == 0 {
		b.WriteString("(no objects detected)\n")
	} else {
		for _, d := range detections {
			fmt.Fprintf(&b, "- %s (confidence %.2f) at [%.0f, %.0f, %.0f, %.0f]\n",
				d.Label, d.Score, d.Box.XMin, d.Box.YMin, d.Box.XMax, d.Box.YMax)
		}
	}

	b.WriteString("\nIdentify potential public infrastructure maintenance issues.")

	return b.String()
}

// parseReport decodes the model reply. Strict JSON first, then a balanced
// brace extraction for replies wrapped in prose or markdown fences, then the
// placeholder. The raw reply is always carried through untouched.
func (s *scanService) parseReport(requestID string, raw string) entity.AnalysisResult {
	var report entity.IssueReport
	if err := json.Unmarshal([]byte(raw), &report); err == nil {
		return entity.AnalysisResult{
			Report: s.normalizeReport(requestID, report),
			Raw:    raw,
			Status: entity.ReportParsed,
		}
	}

	if extracted, ok := extractJSONObject(raw); ok {
		var recovered entity.IssueReport
		if err := json.Unmarshal([]byte(extracted), &recovered); err == nil {
			return entity.AnalysisResult{
				Report: s.normalizeReport(requestID, recovered),
				Raw:    raw,
				Status: entity.ReportRecovered,
			}
		}
	}

	return placeholderResult(raw)
}

func placeholderResult(raw string) entity.AnalysisResult {
	return entity.AnalysisResult{
		Report: entity.IssueReport{
			Summary: entity.AnalysisUnavailableSummary,
			Issues:  []entity.IssueEntry{},
		},
		Raw:    raw,
		Status: entity.ReportUnavailable,
	}
}

func (s *scanService) normalizeReport(requestID string, report entity.IssueReport) entity.IssueReport {
	if report.Issues == nil {
		report.Issues = []entity.IssueEntry{}
	}

	for i, issue := range report.Issues {
		normalized, valid := entity.NormalizeSeverity(string(issue.Severity))
		if !valid {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"severity":   issue.Severity,
				"normalized": normalized,
			}).Warn("Normalized out-of-scale severity")
		}
		report.Issues[i].Severity = normalized
	}

	return report
}

// extractJSONObject returns the first balanced top-level JSON object in text.
// Braces inside string literals do not count toward the balance.
func extractJSONObject(text string) (string, bool) {
	start := strings.Index(text, "{")
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		ch := text[i]

		if escaped {
			escaped = false
			continue
		}

		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1], true
				}
			}
		}
	}

	return "", false
}
