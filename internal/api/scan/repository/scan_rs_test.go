package scanRepository

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"UrbanScout/internal/entity"
	"UrbanScout/pkg/vision"
)

func TestMarshalDetections_NilBecomesEmptyArray(t *testing.T) {
	data, err := marshalDetections(nil)
	require.NoError(t, err)
	require.Equal(t, "[]", string(data))
}

func TestUnmarshalDetections(t *testing.T) {
	detections := unmarshalDetections([]byte(`[{"label":"pothole","score":0.91,"box":{"xmin":10,"ymin":20,"xmax":30,"ymax":40}}]`))
	require.Len(t, detections, 1)
	require.Equal(t, "pothole", detections[0].Label)
	require.InDelta(t, 0.91, detections[0].Score, 1e-9)
	require.Equal(t, 30.0, detections[0].Box.XMax)

	require.Empty(t, unmarshalDetections(nil))
	require.Empty(t, unmarshalDetections([]byte("not json")))
}

func TestUnmarshalReport(t *testing.T) {
	report := unmarshalReport([]byte(`{"summary":"one pothole","issues":[{"type":"pothole","severity":"High","description":"deep"}]}`))
	require.Equal(t, "one pothole", report.Summary)
	require.Len(t, report.Issues, 1)
	require.Equal(t, entity.SeverityHigh, report.Issues[0].Severity)

	empty := unmarshalReport(nil)
	require.NotNil(t, empty.Issues)
	require.Empty(t, empty.Issues)
}

func TestMakeScanRecord(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	repo := &scanRepository{}

	row := ScanDB{
		ID:                  sql.NullString{String: "01ABCDEF", Valid: true},
		Latitude:            sql.NullFloat64{Float64: -6.2, Valid: true},
		Longitude:           sql.NullFloat64{Float64: 106.8, Valid: true},
		ImageURL:            sql.NullString{String: "https://bucket/scan.jpg", Valid: true},
		AnnotatedImageURL:   sql.NullString{String: "https://bucket/scan_annotated.jpg", Valid: true},
		DetectionResults:    []byte(`[{"label":"crack","score":0.7,"box":{"xmin":1,"ymin":2,"xmax":3,"ymax":4}}]`),
		LLMReport:           sql.NullString{String: `{"summary":"ok","issues":[]}`, Valid: true},
		LLMReportStructured: []byte(`{"summary":"ok","issues":[]}`),
		CreatedAt:           now,
	}

	record := repo.makeScanRecord(row)
	require.Equal(t, "01ABCDEF", record.ID)
	require.Equal(t, -6.2, record.Latitude)
	require.Equal(t, 106.8, record.Longitude)
	require.Len(t, record.Detections, 1)
	require.Equal(t, []vision.Detection{{
		Label: "crack",
		Score: 0.7,
		Box:   vision.BoundingBox{XMin: 1, YMin: 2, XMax: 3, YMax: 4},
	}}, record.Detections)
	require.Equal(t, "ok", record.Report.Summary)
	require.Equal(t, now, record.CreatedAt)
}
