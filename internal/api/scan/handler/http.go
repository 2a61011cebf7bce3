package scanHandler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	scanService "UrbanScout/internal/api/scan/service"
	"UrbanScout/internal/middleware"
)

type ScanHandler struct {
	log         *logrus.Logger
	validator   *validator.Validate
	middleware  middleware.Middleware
	scanService scanService.IScanService
}

func New(
	log *logrus.Logger,
	validate *validator.Validate,
	middleware middleware.Middleware,
	scanService scanService.IScanService,
) *ScanHandler {
	return &ScanHandler{
		log:         log,
		validator:   validate,
		middleware:  middleware,
		scanService: scanService,
	}
}

func (h *ScanHandler) Start(srv fiber.Router) {
	scans := srv.Group("/scans")
	scans.Use(h.middleware.NewRateLimiter)

	scans.Post("", h.middleware.NewTokenMiddleware, h.CreateScan)
	scans.Get("", h.GetAllScans)
	scans.Get("/stats", h.GetScanStats)
	scans.Get("/export", h.ExportScans)
	scans.Get("/:id", h.GetScanByID)
}
