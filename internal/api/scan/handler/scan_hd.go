package scanHandler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"

	"UrbanScout/internal/api/scan"
	contextPkg "UrbanScout/pkg/context"
	"UrbanScout/pkg/handlerUtil"
	"UrbanScout/pkg/log"
)

// A full pipeline pass talks to four upstreams, so the trigger route gets a
// much longer deadline than the read routes.
const (
	scanTimeout = 90 * time.Second
	readTimeout = 10 * time.Second
)

func (h *ScanHandler) CreateScan(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), scanTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing create scan request")

	var req scan.CreateScanRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	record, err := h.scanService.RunScan(c, req)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "run_scan")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusCreated, scan.ScanResponse{Scan: record})
	}
}

func (h *ScanHandler) GetAllScans(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), readTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	scans, err := h.scanService.GetAllScans(c)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_all_scans")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, scan.ScanListResponse{
			Scans: scans,
			Total: len(scans),
		})
	}
}

func (h *ScanHandler) GetScanByID(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), readTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	id := ctx.Params("id")
	if id == "" {
		return errHandler.HandleValidationError(ctx, requestID,
			errors.New("scan ID is required"), ctx.Path())
	}

	record, err := h.scanService.GetScanByID(c, id)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_scan")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, scan.ScanResponse{Scan: &record})
	}
}

func (h *ScanHandler) GetScanStats(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), readTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	stats, err := h.scanService.GetScanStats(c)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_scan_stats")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, stats)
	}
}

func (h *ScanHandler) ExportScans(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), readTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	data, err := h.scanService.ExportScansCSV(c)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "export_scans")
	}

	ctx.Set(fiber.HeaderContentType, "text/csv")
	ctx.Set(fiber.HeaderContentDisposition, `attachment; filename="scans.csv"`)

	return ctx.Status(fiber.StatusOK).Send(data)
}
