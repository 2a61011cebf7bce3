package scanService

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"

	"UrbanScout/internal/api/scan"
	"UrbanScout/internal/entity"
	contextPkg "UrbanScout/pkg/context"
)

const scanListTTL = 30 * time.Second

// GetAllScans lists every scan newest first, serving from the short-lived
// cache when the dashboard polls faster than the data changes.
func (s *scanService) GetAllScans(ctx context.Context) ([]entity.ScanRecord, error) {
	requestID := contextPkg.GetRequestID(ctx)

	if cached, err := s.redisServer.GetScanList(ctx); err == nil {
		var scans []entity.ScanRecord
		if unmarshalErr := json.Unmarshal(cached, &scans); unmarshalErr == nil {
			return scans, nil
		} else {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"error":      unmarshalErr.Error(),
			}).Warn("Corrupt scan list cache entry, falling through to database")
		}
	}

	repoClient, err := s.scanRepo.NewClient(false)
	if err != nil {
		return nil, err
	}

	scans, err := repoClient.Scan.GetAllScans(ctx)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(scans); err == nil {
		if err := s.redisServer.SetScanList(ctx, payload, scanListTTL); err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"error":      err.Error(),
			}).Warn("Failed to cache scan list")
		}
	}

	return scans, nil
}

func (s *scanService) GetScanByID(ctx context.Context, id string) (entity.ScanRecord, error) {
	repoClient, err := s.scanRepo.NewClient(false)
	if err != nil {
		return entity.ScanRecord{}, err
	}

	return repoClient.Scan.GetScanByID(ctx, id)
}

func (s *scanService) GetScanStats(ctx context.Context) (scan.StatsResponse, error) {
	scans, err := s.GetAllScans(ctx)
	if err != nil {
		return scan.StatsResponse{}, err
	}

	stats := scan.StatsResponse{TotalScans: len(scans)}
	for _, record := range scans {
		stats.TotalIssues += len(record.Report.Issues)
		stats.HighSeverityCount += record.HighSeverityCount()
	}

	return stats, nil
}

// ExportScansCSV renders the scan history as a CSV document for download.
func (s *scanService) ExportScansCSV(ctx context.Context) ([]byte, error) {
	scans, err := s.GetAllScans(ctx)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"scan_id", "latitude", "longitude", "created_at", "summary", "issues_count", "high_severity_count"}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, record := range scans {
		row := []string{
			record.ID,
			strconv.FormatFloat(record.Latitude, 'f', -1, 64),
			strconv.FormatFloat(record.Longitude, 'f', -1, 64),
			record.CreatedAt.UTC().Format(time.RFC3339),
			record.Report.Summary,
			strconv.Itoa(len(record.Report.Issues)),
			strconv.Itoa(record.HighSeverityCount()),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
