package scanService

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"UrbanScout/internal/api/scan"
	scanRepository "UrbanScout/internal/api/scan/repository"
	"UrbanScout/internal/entity"
	"UrbanScout/pkg/redis"
	"UrbanScout/pkg/response"
	"UrbanScout/pkg/streetview"
	"UrbanScout/pkg/vision"
)

type stubRepo struct {
	created   []entity.ScanRecord
	createErr error
	scans     []entity.ScanRecord
	listErr   error
}

func (r *stubRepo) NewClient(tx bool) (scanRepository.Client, error) {
	return scanRepository.Client{
		Scan:     &stubScanStore{repo: r},
		Commit:   func() error { return nil },
		Rollback: func() error { return nil },
	}, nil
}

type stubScanStore struct {
	repo *stubRepo
}

func (s *stubScanStore) CreateScan(c context.Context, record entity.ScanRecord) error {
	if s.repo.createErr != nil {
		return s.repo.createErr
	}
	s.repo.created = append(s.repo.created, record)
	return nil
}

func (s *stubScanStore) GetAllScans(c context.Context) ([]entity.ScanRecord, error) {
	return s.repo.scans, s.repo.listErr
}

func (s *stubScanStore) GetScanByID(c context.Context, id string) (entity.ScanRecord, error) {
	for _, record := range s.repo.scans {
		if record.ID == id {
			return record, nil
		}
	}
	return entity.ScanRecord{}, scan.ErrScanNotFound
}

type stubStreetView struct {
	image []byte
	errs  []error
	calls int
}

func (s *stubStreetView) Fetch(ctx context.Context, latitude, longitude float64, opts streetview.FetchOptions) ([]byte, error) {
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return s.image, nil
}

type stubEngine struct {
	detections  []vision.Detection
	detectErr   error
	annotated   []byte
	annotateErr error
}

func (e *stubEngine) Detect(ctx context.Context, image []byte, confidenceThreshold float64, useSecondary bool) ([]vision.Detection, error) {
	if e.detectErr != nil {
		return nil, e.detectErr
	}
	return e.detections, nil
}

func (e *stubEngine) Annotate(image []byte, detections []vision.Detection) ([]byte, error) {
	if e.annotateErr != nil {
		return nil, e.annotateErr
	}
	return e.annotated, nil
}

type stubGroq struct {
	raw string
	err error
}

func (g *stubGroq) GenerateReport(ctx context.Context, prompt string) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return g.raw, nil
}

type stubS3 struct {
	uploads   map[string][]byte
	uploadErr error
}

func (s *stubS3) UploadBytes(key string, data []byte, contentType string) (string, error) {
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	if s.uploads == nil {
		s.uploads = map[string][]byte{}
	}
	s.uploads[key] = data
	return "https://bucket.example.com/" + key, nil
}

type stubRedis struct {
	payload     []byte
	invalidated int
	setCalls    int
	getOverride error
}

func (r *stubRedis) SetScanList(ctx context.Context, payload []byte, expiration time.Duration) error {
	r.setCalls++
	r.payload = payload
	return nil
}

func (r *stubRedis) GetScanList(ctx context.Context) ([]byte, error) {
	if r.getOverride != nil {
		return nil, r.getOverride
	}
	if r.payload == nil {
		return nil, redis.ErrCacheMiss
	}
	return r.payload, nil
}

func (r *stubRedis) InvalidateScanList(ctx context.Context) error {
	r.invalidated++
	r.payload = nil
	return nil
}

type stubUtils struct{}

func (stubUtils) NewULIDFromTimestamp(t time.Time) (string, error) {
	return "01HTESTULID", nil
}

func (stubUtils) NewImageObjectKey(suffix string) string {
	return "scan_20260831_120000_abcd1234" + suffix
}

type testDeps struct {
	repo       *stubRepo
	engine     *stubEngine
	streetView *stubStreetView
	groq       *stubGroq
	s3Client   *stubS3
	redis      *stubRedis
}

func newTestService(t *testing.T) (*scanService, *testDeps) {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	deps := &testDeps{
		repo: &stubRepo{},
		engine: &stubEngine{
			detections: []vision.Detection{
				{Label: "pothole", Score: 0.85, Box: vision.BoundingBox{XMin: 10, YMin: 10, XMax: 50, YMax: 50}},
			},
			annotated: []byte("annotated-jpeg"),
		},
		streetView: &stubStreetView{image: []byte("jpeg-bytes")},
		groq:       &stubGroq{raw: `{"summary":"one pothole found","issues":[{"type":"pothole","severity":"High","description":"deep hole"}]}`},
		s3Client:   &stubS3{},
		redis:      &stubRedis{},
	}

	svc := &scanService{
		log:         logger,
		scanRepo:    deps.repo,
		engine:      deps.engine,
		streetView:  deps.streetView,
		groq:        deps.groq,
		s3Client:    deps.s3Client,
		redisServer: deps.redis,
		utils:       stubUtils{},

		maxRetries:          2,
		retryBackoff:        0,
		confidenceThreshold: 0.5,
	}

	return svc, deps
}

func TestRunScan_Success(t *testing.T) {
	svc, deps := newTestService(t)

	record, err := svc.RunScan(context.Background(), scan.CreateScanRequest{
		Latitude:  -6.2,
		Longitude: 106.8,
	})
	require.NoError(t, err)
	require.NotNil(t, record)

	require.Equal(t, "01HTESTULID", record.ID)
	require.Equal(t, -6.2, record.Latitude)
	require.Equal(t, 106.8, record.Longitude)
	require.Contains(t, record.ImageURL, "scan_20260831_120000_abcd1234.jpg")
	require.Contains(t, record.AnnotatedImageURL, "_annotated.jpg")
	require.Len(t, record.Detections, 1)
	require.Equal(t, "one pothole found", record.Report.Summary)
	require.Len(t, record.Report.Issues, 1)

	require.Len(t, deps.repo.created, 1)
	require.Len(t, deps.s3Client.uploads, 2)
	require.Equal(t, 1, deps.redis.invalidated)
}

func TestRunScan_ImageNotFound(t *testing.T) {
	svc, deps := newTestService(t)
	deps.streetView.errs = []error{streetview.ErrImageNotFound}

	record, err := svc.RunScan(context.Background(), scan.CreateScanRequest{})
	require.Nil(t, record)

	var stageErr *scan.StageError
	require.ErrorAs(t, err, &stageErr)
	require.Equal(t, scan.StageAcquiring, stageErr.Stage)
	require.ErrorIs(t, err, streetview.ErrImageNotFound)

	require.Empty(t, deps.repo.created)
	require.Empty(t, deps.s3Client.uploads)
}

func TestRunScan_DetectorFailure(t *testing.T) {
	svc, deps := newTestService(t)
	deps.engine.detectErr = vision.ErrDetectionUnavailable

	record, err := svc.RunScan(context.Background(), scan.CreateScanRequest{})
	require.Nil(t, record)

	var stageErr *scan.StageError
	require.ErrorAs(t, err, &stageErr)
	require.Equal(t, scan.StageDetecting, stageErr.Stage)
	require.ErrorIs(t, err, vision.ErrDetectionUnavailable)
}

func TestRunScan_AnnotationFailureDegrades(t *testing.T) {
	svc, deps := newTestService(t)
	deps.engine.annotateErr = vision.ErrUnsupportedImage

	record, err := svc.RunScan(context.Background(), scan.CreateScanRequest{})
	require.NoError(t, err)

	require.Equal(t, record.ImageURL, record.AnnotatedImageURL)
	require.Len(t, deps.s3Client.uploads, 1)
	require.Len(t, deps.repo.created, 1)
}

func TestRunScan_AnalysisFailureStillPersists(t *testing.T) {
	svc, deps := newTestService(t)
	deps.groq.err = errors.New("model is down")

	record, err := svc.RunScan(context.Background(), scan.CreateScanRequest{})
	require.NoError(t, err)

	require.Equal(t, entity.AnalysisUnavailableSummary, record.Report.Summary)
	require.Empty(t, record.Report.Issues)
	require.Len(t, deps.repo.created, 1)
}

func TestRunScan_InsertFailure(t *testing.T) {
	svc, deps := newTestService(t)
	deps.repo.createErr = errors.New("connection refused")

	record, err := svc.RunScan(context.Background(), scan.CreateScanRequest{})
	require.Nil(t, record)

	var stageErr *scan.StageError
	require.ErrorAs(t, err, &stageErr)
	require.Equal(t, scan.StagePersisting, stageErr.Stage)

	// Images were already uploaded when the insert failed.
	require.Len(t, deps.s3Client.uploads, 2)
}

func TestRunScan_TransientFetchRetries(t *testing.T) {
	svc, deps := newTestService(t)
	deps.streetView.errs = []error{
		response.NewError(http.StatusServiceUnavailable, "upstream flapping"),
		response.NewError(http.StatusTooManyRequests, "slow down"),
	}

	record, err := svc.RunScan(context.Background(), scan.CreateScanRequest{})
	require.NoError(t, err)
	require.NotNil(t, record)
	require.Equal(t, 3, deps.streetView.calls)
}

func TestWithRetry_PermanentFailsImmediately(t *testing.T) {
	svc, _ := newTestService(t)

	calls := 0
	err := svc.withRetry(context.Background(), "req", "op", func() error {
		calls++
		return errors.New("bad request")
	})
	require.Error(t, err)
	require.Equal(t, 1, calls)
}

func TestWithRetry_ExhaustsAttempts(t *testing.T) {
	svc, _ := newTestService(t)

	calls := 0
	transient := response.NewError(http.StatusBadGateway, "still down")
	err := svc.withRetry(context.Background(), "req", "op", func() error {
		calls++
		return transient
	})
	require.ErrorIs(t, err, transient)
	require.Equal(t, 3, calls)
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"server error", response.NewError(http.StatusInternalServerError, "boom"), true},
		{"bad gateway", response.NewError(http.StatusBadGateway, "boom"), true},
		{"rate limited", response.NewError(http.StatusTooManyRequests, "slow"), true},
		{"not found", response.NewError(http.StatusNotFound, "missing"), false},
		{"bad request", response.NewError(http.StatusBadRequest, "invalid"), false},
		{"deadline", context.DeadlineExceeded, true},
		{"plain error", errors.New("nope"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, isTransient(tt.err))
		})
	}
}
