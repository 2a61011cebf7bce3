package scanService

import (
	stdctx "context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"

	"UrbanScout/internal/api/scan"
	"UrbanScout/internal/entity"
	contextPkg "UrbanScout/pkg/context"
	"UrbanScout/pkg/response"
	"UrbanScout/pkg/streetview"
	"UrbanScout/pkg/vision"
)

// RunScan drives one full pipeline pass: fetch imagery, detect objects,
// annotate, analyze, persist. Detector degradation and analysis failures are
// absorbed; everything else surfaces as a StageError naming the broken stage.
func (s *scanService) RunScan(ctx context.Context, req scan.CreateScanRequest) (*entity.ScanRecord, error) {
	requestID := contextPkg.GetRequestID(ctx)

	opts := streetview.DefaultFetchOptions()
	if req.Heading != nil {
		opts.Heading = *req.Heading
	}
	if req.FOV != nil {
		opts.FOV = *req.FOV
	}

	var image []byte
	err := s.withRetry(ctx, requestID, "fetch street view image", func() error {
		var fetchErr error
		image, fetchErr = s.streetView.Fetch(ctx, req.Latitude, req.Longitude, opts)
		return fetchErr
	})
	if err != nil {
		return nil, scan.FailStage(scan.StageAcquiring, err)
	}

	threshold := s.confidenceThreshold
	if req.ConfidenceThreshold != nil {
		threshold = *req.ConfidenceThreshold
	}

	var detections []vision.Detection
	err = s.withRetry(ctx, requestID, "run object detection", func() error {
		var detectErr error
		detections, detectErr = s.engine.Detect(ctx, image, threshold, req.UseSecondaryDetector)
		return detectErr
	})
	if err != nil {
		return nil, scan.FailStage(scan.StageDetecting, err)
	}

	annotated, err := s.engine.Annotate(image, detections)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Annotation failed, continuing with original image only")
		annotated = nil
	}

	analysis := s.analyzeDetections(ctx, requestID, req.Latitude, req.Longitude, detections)

	record, err := s.persistScan(ctx, requestID, req, image, annotated, detections, analysis)
	if err != nil {
		return nil, scan.FailStage(scan.StagePersisting, err)
	}

	if err := s.redisServer.InvalidateScanList(ctx); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Failed to invalidate scan list cache")
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"scan_id":    record.ID,
		"detections": len(record.Detections),
		"issues":     len(record.Report.Issues),
	}).Info("Scan completed")

	return record, nil
}

func (s *scanService) persistScan(ctx context.Context,
	requestID string,
	req scan.CreateScanRequest,
	image, annotated []byte,
	detections []vision.Detection,
	analysis entity.AnalysisResult,
) (*entity.ScanRecord, error) {
	base := s.utils.NewImageObjectKey("")
	imageKey := base + ".jpg"
	annotatedKey := base + "_annotated.jpg"

	var imageURL string
	err := s.withRetry(ctx, requestID, "upload original image", func() error {
		var uploadErr error
		imageURL, uploadErr = s.s3Client.UploadBytes(imageKey, image, "image/jpeg")
		return uploadErr
	})
	if err != nil {
		return nil, err
	}

	annotatedURL := imageURL
	if annotated != nil {
		err = s.withRetry(ctx, requestID, "upload annotated image", func() error {
			var uploadErr error
			annotatedURL, uploadErr = s.s3Client.UploadBytes(annotatedKey, annotated, "image/jpeg")
			return uploadErr
		})
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"error":      err.Error(),
				"object_key": annotatedKey,
			}).Warn("Annotated image upload failed, falling back to original")
			annotatedURL = imageURL
		}
	}

	createdAt := time.Now().UTC()
	id, err := s.utils.NewULIDFromTimestamp(createdAt)
	if err != nil {
		return nil, err
	}

	record := entity.ScanRecord{
		ID:                id,
		Latitude:          req.Latitude,
		Longitude:         req.Longitude,
		ImageURL:          imageURL,
		AnnotatedImageURL: annotatedURL,
		Detections:        detections,
		Report:            analysis.Report,
		RawReport:         analysis.Raw,
		CreatedAt:         createdAt,
	}

	repoClient, err := s.scanRepo.NewClient(false)
	if err != nil {
		return nil, err
	}

	if err := repoClient.Scan.CreateScan(ctx, record); err != nil {
		// The uploaded objects stay behind; log them so they can be reaped.
		s.log.WithFields(logrus.Fields{
			"request_id":    requestID,
			"error":         err.Error(),
			"orphaned_keys": []string{imageKey, annotatedKey},
		}).Error("Scan row insert failed after image upload")
		return nil, err
	}

	return &record, nil
}

// withRetry reruns op on transient failures with a linear backoff. Permanent
// failures and context cancellation end the attempts immediately.
func (s *scanService) withRetry(ctx context.Context, requestID string, operation string, op func() error) error {
	var err error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * s.retryBackoff):
			}

			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"operation":  operation,
				"attempt":    attempt + 1,
			}).Warn("Retrying transient failure")
		}

		err = op()
		if err == nil {
			return nil
		}

		if !isTransient(err) {
			return err
		}
	}

	return err
}

func isTransient(err error) bool {
	var respErr *response.Error
	if errors.As(err, &respErr) {
		return respErr.Code >= http.StatusInternalServerError || respErr.Code == http.StatusTooManyRequests
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return errors.Is(err, stdctx.DeadlineExceeded)
}
