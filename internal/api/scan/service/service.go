package scanService

import (
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"

	"UrbanScout/internal/api/scan"
	scanRepository "UrbanScout/internal/api/scan/repository"
	"UrbanScout/internal/entity"
	"UrbanScout/pkg/groq"
	"UrbanScout/pkg/redis"
	"UrbanScout/pkg/s3"
	"UrbanScout/pkg/streetview"
	"UrbanScout/pkg/utils"
	"UrbanScout/pkg/vision"
)

type IScanService interface {
	RunScan(ctx context.Context, req scan.CreateScanRequest) (*entity.ScanRecord, error)
	GetAllScans(ctx context.Context) ([]entity.ScanRecord, error)
	GetScanByID(ctx context.Context, id string) (entity.ScanRecord, error)
	GetScanStats(ctx context.Context) (scan.StatsResponse, error)
	ExportScansCSV(ctx context.Context) ([]byte, error)
}

type scanService struct {
	log         *logrus.Logger
	scanRepo    scanRepository.Repository
	engine      vision.IEngine
	streetView  streetview.ItfStreetView
	groq        groq.IGroq
	s3Client    s3.ItfS3
	redisServer redis.IRedis
	utils       utils.IUtils

	maxRetries          int
	retryBackoff        time.Duration
	confidenceThreshold float64
}

func New(log *logrus.Logger,
	scanRepo scanRepository.Repository,
	engine vision.IEngine,
	streetView streetview.ItfStreetView,
	groqClient groq.IGroq,
	s3Client s3.ItfS3,
	redisServer redis.IRedis,
	utils utils.IUtils,
) IScanService {
	return &scanService{
		log:         log,
		scanRepo:    scanRepo,
		engine:      engine,
		streetView:  streetView,
		groq:        groqClient,
		s3Client:    s3Client,
		redisServer: redisServer,
		utils:       utils,

		maxRetries:          2,
		retryBackoff:        400 * time.Millisecond,
		confidenceThreshold: 0.5,
	}
}
