package scanRepository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"UrbanScout/internal/api/scan"
	"UrbanScout/internal/entity"
	contextPkg "UrbanScout/pkg/context"
	"UrbanScout/pkg/vision"
)

type ScanDB struct {
	ID                  sql.NullString  `db:"id"`
	Latitude            sql.NullFloat64 `db:"latitude"`
	Longitude           sql.NullFloat64 `db:"longitude"`
	ImageURL            sql.NullString  `db:"image_url"`
	AnnotatedImageURL   sql.NullString  `db:"annotated_image_url"`
	DetectionResults    []byte          `db:"detection_results"`
	LLMReport           sql.NullString  `db:"llm_report"`
	LLMReportStructured []byte          `db:"llm_report_structured"`
	CreatedAt           time.Time       `db:"created_at"`
}

func (r *scanRepository) CreateScan(c context.Context, record entity.ScanRecord) error {
	requestID := contextPkg.GetRequestID(c)

	detectionsJSON, err := marshalDetections(record.Detections)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to encode detection results")
		return err
	}

	reportJSON, err := json.Marshal(record.Report)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to encode structured report")
		return err
	}

	argsKV := map[string]interface{}{
		"id":                    record.ID,
		"latitude":              record.Latitude,
		"longitude":             record.Longitude,
		"image_url":             record.ImageURL,
		"annotated_image_url":   record.AnnotatedImageURL,
		"detection_results":     detectionsJSON,
		"llm_report":            record.RawReport,
		"llm_report_structured": reportJSON,
		"created_at":            record.CreatedAt,
	}

	query, args, err := sqlx.Named(queryCreateScan, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for CreateScan")
		return err
	}
	query = r.q.Rebind(query)

	_, err = r.q.ExecContext(c, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when creating scan")

		return err
	}

	return nil
}

func (r *scanRepository) GetAllScans(c context.Context) ([]entity.ScanRecord, error) {
	requestID := contextPkg.GetRequestID(c)
	var scans []ScanDB

	query := r.q.Rebind(queryGetAllScans)

	if err := r.q.SelectContext(c, &scans, query); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetAllScans execution err")
		return nil, err
	}

	result := make([]entity.ScanRecord, 0, len(scans))
	for _, s := range scans {
		result = append(result, r.makeScanRecord(s))
	}

	return result, nil
}

func (r *scanRepository) GetScanByID(c context.Context, id string) (entity.ScanRecord, error) {
	requestID := contextPkg.GetRequestID(c)
	var record ScanDB

	argsKV := map[string]interface{}{
		"id": id,
	}

	query, args, err := sqlx.Named(queryGetScanByID, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetScanByID named query preparation err")

		return entity.ScanRecord{}, err
	}

	query = r.q.Rebind(query)

	if err := r.q.QueryRowxContext(c, query, args...).StructScan(&record); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"error":      err.Error(),
			}).Warn("GetScanByID no rows found")
			return entity.ScanRecord{}, scan.ErrScanNotFound
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetScanByID execution err")
		return entity.ScanRecord{}, err
	}

	return r.makeScanRecord(record), nil
}

func marshalDetections(detections []vision.Detection) ([]byte, error) {
	if detections == nil {
		detections = []vision.Detection{}
	}
	return json.Marshal(detections)
}

func unmarshalDetections(data []byte) []vision.Detection {
	if len(data) == 0 {
		return []vision.Detection{}
	}

	var detections []vision.Detection
	if err := json.Unmarshal(data, &detections); err != nil {
		return []vision.Detection{}
	}

	return detections
}

func unmarshalReport(data []byte) entity.IssueReport {
	if len(data) == 0 {
		return entity.IssueReport{Issues: []entity.IssueEntry{}}
	}

	var report entity.IssueReport
	if err := json.Unmarshal(data, &report); err != nil {
		return entity.IssueReport{Issues: []entity.IssueEntry{}}
	}

	if report.Issues == nil {
		report.Issues = []entity.IssueEntry{}
	}

	return report
}

func (r *scanRepository) makeScanRecord(record ScanDB) entity.ScanRecord {
	return entity.ScanRecord{
		ID:                record.ID.String,
		Latitude:          record.Latitude.Float64,
		Longitude:         record.Longitude.Float64,
		ImageURL:          record.ImageURL.String,
		AnnotatedImageURL: record.AnnotatedImageURL.String,
		Detections:        unmarshalDetections(record.DetectionResults),
		Report:            unmarshalReport(record.LLMReportStructured),
		RawReport:         record.LLMReport.String,
		CreatedAt:         record.CreatedAt,
	}
}
