package scan

import (
	"UrbanScout/internal/entity"
)

type CreateScanRequest struct {
	Latitude             float64  `json:"latitude" validate:"latitude"`
	Longitude            float64  `json:"longitude" validate:"longitude"`
	Heading              *int     `json:"heading,omitempty" validate:"omitempty,gte=0,lte=360"`
	FOV                  *int     `json:"fov,omitempty" validate:"omitempty,gte=10,lte=120"`
	ConfidenceThreshold  *float64 `json:"confidence_threshold,omitempty" validate:"omitempty,gte=0,lte=1"`
	UseSecondaryDetector bool     `json:"use_secondary_detector,omitempty"`
}

type ScanResponse struct {
	Scan *entity.ScanRecord `json:"scan"`
}

type ScanListResponse struct {
	Scans []entity.ScanRecord `json:"scans"`
	Total int                 `json:"total"`
}

type StatsResponse struct {
	TotalScans        int `json:"total_scans"`
	TotalIssues       int `json:"total_issues"`
	HighSeverityCount int `json:"high_severity_count"`
}

// FailureReport is the body returned when a scan fails partway through,
// naming the pipeline stage that broke.
type FailureReport struct {
	Stage string `json:"stage"`
	Cause string `json:"cause"`
}
