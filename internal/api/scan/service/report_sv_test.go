package scanService

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"UrbanScout/internal/entity"
	"UrbanScout/pkg/vision"
)

func TestParseReport_StrictJSON(t *testing.T) {
	svc, _ := newTestService(t)

	raw := `{"summary":"two issues found","issues":[{"type":"pothole","severity":"High","description":"deep"},{"type":"faded_marking","severity":"Low","description":"worn paint"}]}`
	result := svc.parseReport("req", raw)

	require.Equal(t, entity.ReportParsed, result.Status)
	require.Equal(t, "two issues found", result.Report.Summary)
	require.Len(t, result.Report.Issues, 2)
	require.Equal(t, raw, result.Raw)
}

func TestParseReport_RecoversWrappedObject(t *testing.T) {
	svc, _ := newTestService(t)

	raw := "Sure! Here is the report: {\"summary\":\"ok\",\"issues\":[]} Let me know if you need anything else."
	result := svc.parseReport("req", raw)

	require.Equal(t, entity.ReportRecovered, result.Status)
	require.Equal(t, "ok", result.Report.Summary)
	require.Empty(t, result.Report.Issues)
	require.Equal(t, raw, result.Raw)
}

func TestParseReport_RecoversFencedObject(t *testing.T) {
	svc, _ := newTestService(t)

	raw := "```json\n{\"summary\":\"one crack\",\"issues\":[{\"type\":\"crack\",\"severity\":\"Medium\",\"description\":\"hairline\"}]}\n```"
	result := svc.parseReport("req", raw)

	require.Equal(t, entity.ReportRecovered, result.Status)
	require.Equal(t, "one crack", result.Report.Summary)
	require.Len(t, result.Report.Issues, 1)
}

func TestParseReport_NormalizesSeverity(t *testing.T) {
	svc, _ := newTestService(t)

	raw := `{"summary":"found things","issues":[{"type":"pothole","severity":"critical","description":"bad"},{"type":"crack","severity":"low","description":"minor"},{"type":"sign","severity":"High","description":"bent"}]}`
	result := svc.parseReport("req", raw)

	require.Equal(t, entity.ReportParsed, result.Status)
	require.Equal(t, entity.SeverityMedium, result.Report.Issues[0].Severity)
	require.Equal(t, entity.SeverityMedium, result.Report.Issues[1].Severity)
	require.Equal(t, entity.SeverityHigh, result.Report.Issues[2].Severity)
}

func TestParseReport_EmptySummaryStillParses(t *testing.T) {
	svc, _ := newTestService(t)

	raw := `{"summary":"","issues":[{"type":"pothole","severity":"High","description":"deep"}]}`
	result := svc.parseReport("req", raw)

	require.Equal(t, entity.ReportParsed, result.Status)
	require.Empty(t, result.Report.Summary)
	require.Len(t, result.Report.Issues, 1)
	require.Equal(t, entity.SeverityHigh, result.Report.Issues[0].Severity)
}

func TestParseReport_GarbageGetsPlaceholder(t *testing.T) {
	svc, _ := newTestService(t)

	for _, raw := range []string{"", "no json here at all", "{broken", "[1,2,3]"} {
		result := svc.parseReport("req", raw)

		require.Equal(t, entity.ReportUnavailable, result.Status)
		require.Equal(t, entity.AnalysisUnavailableSummary, result.Report.Summary)
		require.NotNil(t, result.Report.Issues)
		require.Empty(t, result.Report.Issues)
		require.Equal(t, raw, result.Raw)
	}
}

func TestAnalyzeDetections_NeverFails(t *testing.T) {
	svc, deps := newTestService(t)
	deps.groq.err = errors.New("timeout")

	result := svc.analyzeDetections(context.Background(), "req", -6.2, 106.8, nil)

	require.Equal(t, entity.ReportUnavailable, result.Status)
	require.Equal(t, entity.AnalysisUnavailableSummary, result.Report.Summary)
}

func TestBuildAnalysisPrompt(t *testing.T) {
	prompt := buildAnalysisPrompt(-6.2, 106.8, []vision.Detection{
		{Label: "pothole", Score: 0.85, Box: vision.BoundingBox{XMin: 10, YMin: 20, XMax: 30, YMax: 40}},
	})
	require.Contains(t, prompt, "pothole")
	require.Contains(t, prompt, "0.85")
	require.Contains(t, prompt, "-6.2")

	empty := buildAnalysisPrompt(0, 0, nil)
	require.Contains(t, empty, "no objects detected")
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{"bare object", `{"a":1}`, `{"a":1}`, true},
		{"wrapped in prose", `note {"a":1} trailing`, `{"a":1}`, true},
		{"nested objects", `x {"a":{"b":2}} y`, `{"a":{"b":2}}`, true},
		{"brace inside string", `{"a":"}"}`, `{"a":"}"}`, true},
		{"escaped quote", `{"a":"\"}"}`, `{"a":"\"}"}`, true},
		{"unbalanced", `{"a":1`, "", false},
		{"no object", "nothing here", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractJSONObject(tt.text)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, got)
		})
	}
}
