package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/library_circulation_app/internal/core/ports/services"
	"github.com/SscSPs/library_circulation_app/internal/dto"
	"github.com/SscSPs/library_circulation_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

// fineHandler handles HTTP requests related to fines.
type fineHandler struct {
	fineService portssvc.FineSvcFacade
}

func newFineHandler(fs portssvc.FineSvcFacade) *fineHandler {
	return &fineHandler{fineService: fs}
}

// registerFineRoutes registers routes related to fines.
func registerFineRoutes(rg *gin.RouterGroup, fs portssvc.FineSvcFacade) {
	h := newFineHandler(fs)

	fines := rg.Group("/fines")
	{
		fines.GET("", h.listFines)
		fines.POST("/collect", h.collectFines)
		fines.GET("/:fineID", h.getFine)
		fines.PUT("/:fineID", h.editFine)
		fines.POST("/:fineID/waive", h.waiveFine)
	}
}

// listFines godoc
// @Summary List fines
// @Description Lists fines newest first, optionally by borrower and status
// @Tags fines
// @Produce  json
// @Param   studentID query string false "Borrower ID"
// @Param   status query string false "Unpaid, Paid or Waived"
// @Param   limit query int false "Page size" default(20)
// @Param   nextToken query string false "Token from the previous page"
// @Success 200 {object} dto.ListFinesResponse
// @Failure 400 {object} map[string]string "Invalid query"
// @Failure 500 {object} map[string]string "Failed to list fines"
// @Security BearerAuth
// @Router /fines [get]
func (h *fineHandler) listFines(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var params dto.ListFinesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query for ListFines", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	resp, err := h.fineService.ListFines(c.Request.Context(), params)
	if err != nil {
		respondError(c, logger, err, "Failed to list fines")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// getFine godoc
// @Summary Get a fine
// @Tags fines
// @Produce  json
// @Param   fineID path string true "Fine ID"
// @Success 200 {object} dto.FineResponse
// @Failure 404 {object} map[string]string "Fine not found"
// @Failure 500 {object} map[string]string "Failed to retrieve fine"
// @Security BearerAuth
// @Router /fines/{fineID} [get]
func (h *fineHandler) getFine(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	fineID := c.Param("fineID")

	fine, err := h.fineService.GetFine(c.Request.Context(), fineID)
	if err != nil {
		respondError(c, logger.With(slog.String("fine_id", fineID)), err, "Failed to retrieve fine")
		return
	}
	c.JSON(http.StatusOK, dto.ToFineResponse(fine))
}

// collectFines godoc
// @Summary Collect fines
// @Description Pays every Unpaid fine in the batch under one receipt. Missing or settled fines are skipped.
// @Tags fines
// @Accept  json
// @Produce  json
// @Param   request body dto.CollectFinesRequest true "Fines and payment method"
// @Success 200 {object} domain.CollectionResult
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 500 {object} map[string]string "Failed to collect fines"
// @Security BearerAuth
// @Router /fines/collect [post]
func (h *fineHandler) collectFines(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CollectFinesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CollectFines", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	actorID, ok := staffID(c, logger)
	if !ok {
		return
	}

	result, err := h.fineService.CollectFines(c.Request.Context(), req, actorID)
	if err != nil {
		respondError(c, logger, err, "Failed to collect fines")
		return
	}
	if result.ReceiptID != "" {
		middleware.TrackEvent(c, "fines_collected", map[string]any{
			"receipt_id":      result.ReceiptID,
			"paid_count":      len(result.PaidFineIDs),
			"skipped_count":   len(result.SkippedFineIDs),
			"total_collected": result.TotalCollected.StringFixed(2),
			"payment_method":  req.PaymentMethod,
		})
	}
	c.JSON(http.StatusOK, result)
}

// waiveFine godoc
// @Summary Waive a fine
// @Tags fines
// @Accept  json
// @Produce  json
// @Param   fineID path string true "Fine ID"
// @Param   request body dto.WaiveFineRequest true "Reason"
// @Success 200 {object} dto.FineResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 404 {object} map[string]string "Fine not found"
// @Failure 500 {object} map[string]string "Failed to waive fine"
// @Security BearerAuth
// @Router /fines/{fineID}/waive [post]
func (h *fineHandler) waiveFine(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	fineID := c.Param("fineID")
	var req dto.WaiveFineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for WaiveFine", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	actorID, ok := staffID(c, logger)
	if !ok {
		return
	}

	fine, err := h.fineService.WaiveFine(c.Request.Context(), fineID, req, actorID)
	if err != nil {
		respondError(c, logger.With(slog.String("fine_id", fineID)), err, "Failed to waive fine")
		return
	}
	c.JSON(http.StatusOK, dto.ToFineResponse(fine))
}

// editFine godoc
// @Summary Edit a fine's amount
// @Tags fines
// @Accept  json
// @Produce  json
// @Param   fineID path string true "Fine ID"
// @Param   request body dto.EditFineRequest true "New amount and reason"
// @Success 200 {object} dto.FineResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 404 {object} map[string]string "Fine not found"
// @Failure 500 {object} map[string]string "Failed to edit fine"
// @Security BearerAuth
// @Router /fines/{fineID} [put]
func (h *fineHandler) editFine(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	fineID := c.Param("fineID")
	var req dto.EditFineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for EditFine", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	actorID, ok := staffID(c, logger)
	if !ok {
		return
	}

	fine, err := h.fineService.EditFine(c.Request.Context(), fineID, req, actorID)
	if err != nil {
		respondError(c, logger.With(slog.String("fine_id", fineID)), err, "Failed to edit fine")
		return
	}
	c.JSON(http.StatusOK, dto.ToFineResponse(fine))
}
