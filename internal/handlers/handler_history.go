package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/library_circulation_app/internal/core/ports/services"
	"github.com/SscSPs/library_circulation_app/internal/dto"
	"github.com/SscSPs/library_circulation_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

// historyHandler serves the transaction history and receipts.
type historyHandler struct {
	historyService portssvc.HistorySvc
}

func registerHistoryRoutes(rg *gin.RouterGroup, hs portssvc.HistorySvc) {
	h := &historyHandler{historyService: hs}

	rg.GET("/history", h.listHistory)
	rg.GET("/receipts/:receiptID", h.getReceipt)
}

// listHistory godoc
// @Summary Search transaction history
// @Description Searches history newest first. actionType may repeat or be comma separated.
// @Tags history
// @Produce  json
// @Param   actionType query []string false "ISSUE, RETURN, RENEW, FINE_PAID, FINE_WAIVED, FINE_EDITED" collectionFormat(multi)
// @Param   studentID query string false "Borrower ID"
// @Param   copyID query string false "Copy ID"
// @Param   performedBy query string false "Staff ID"
// @Param   sessionID query string false "Issue session ID"
// @Param   receiptID query string false "Receipt ID"
// @Param   q query string false "Matches name, reg no, title and ISBN snapshots"
// @Param   from query string false "RFC3339 lower bound"
// @Param   to query string false "RFC3339 upper bound"
// @Param   limit query int false "Page size" default(20)
// @Param   nextToken query string false "Token from the previous page"
// @Success 200 {object} dto.ListHistoryResponse
// @Failure 400 {object} map[string]string "Invalid query"
// @Failure 500 {object} map[string]string "Failed to list history"
// @Security BearerAuth
// @Router /history [get]
func (h *historyHandler) listHistory(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var params dto.ListHistoryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query for ListHistory", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	resp, err := h.historyService.ListHistory(c.Request.Context(), params)
	if err != nil {
		respondError(c, logger, err, "Failed to list history")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// getReceipt godoc
// @Summary Reconstruct a payment receipt
// @Tags history
// @Produce  json
// @Param   receiptID path string true "Receipt ID"
// @Success 200 {object} domain.Receipt
// @Failure 404 {object} map[string]string "Receipt not found"
// @Failure 500 {object} map[string]string "Failed to load receipt"
// @Security BearerAuth
// @Router /receipts/{receiptID} [get]
func (h *historyHandler) getReceipt(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	receiptID := c.Param("receiptID")

	receipt, err := h.historyService.GetReceipt(c.Request.Context(), receiptID)
	if err != nil {
		respondError(c, logger.With(slog.String("receipt_id", receiptID)), err, "Failed to load receipt")
		return
	}
	c.JSON(http.StatusOK, receipt)
}
