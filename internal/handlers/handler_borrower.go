package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/library_circulation_app/internal/core/ports/services"
	"github.com/SscSPs/library_circulation_app/internal/dto"
	"github.com/SscSPs/library_circulation_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

// borrowerHandler exposes borrower-scoped circulation views.
type borrowerHandler struct {
	eligibilityService portssvc.EligibilitySvc
	circulationService portssvc.CirculationReaderSvc
	fineService        portssvc.FineWriterSvc
}

func registerBorrowerRoutes(rg *gin.RouterGroup, es portssvc.EligibilitySvc, cs portssvc.CirculationReaderSvc, fs portssvc.FineWriterSvc) {
	h := &borrowerHandler{eligibilityService: es, circulationService: cs, fineService: fs}

	borrowers := rg.Group("/borrowers/:borrowerID")
	{
		borrowers.GET("/eligibility", h.getEligibility)
		borrowers.GET("/loans", h.listLoans)
		borrowers.POST("/detach", h.detach)
	}
}

// getEligibility godoc
// @Summary Evaluate borrower eligibility
// @Description Returns loan count, unpaid and projected fines, and any blocking reasons. Advisory only.
// @Tags borrowers
// @Produce  json
// @Param   borrowerID path string true "Borrower ID"
// @Success 200 {object} domain.Eligibility
// @Failure 404 {object} map[string]string "Borrower not found"
// @Failure 500 {object} map[string]string "Failed to evaluate borrower"
// @Security BearerAuth
// @Router /borrowers/{borrowerID}/eligibility [get]
func (h *borrowerHandler) getEligibility(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	borrowerID := c.Param("borrowerID")

	result, err := h.eligibilityService.Evaluate(c.Request.Context(), borrowerID)
	if err != nil {
		respondError(c, logger.With(slog.String("borrower_id", borrowerID)), err, "Failed to evaluate borrower")
		return
	}
	c.JSON(http.StatusOK, result)
}

// listLoans godoc
// @Summary List a borrower's active loans
// @Tags borrowers
// @Produce  json
// @Param   borrowerID path string true "Borrower ID"
// @Param   overdue query bool false "Only overdue loans"
// @Success 200 {object} dto.ListActiveLoansResponse
// @Failure 500 {object} map[string]string "Failed to list loans"
// @Security BearerAuth
// @Router /borrowers/{borrowerID}/loans [get]
func (h *borrowerHandler) listLoans(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var params dto.ListLoansParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}
	params.StudentID = c.Param("borrowerID")

	loans, err := h.circulationService.ListActiveLoans(c.Request.Context(), params)
	if err != nil {
		respondError(c, logger, err, "Failed to list loans")
		return
	}
	c.JSON(http.StatusOK, dto.ListActiveLoansResponse{Loans: loans})
}

// detach godoc
// @Summary Detach a removed borrower from their fines
// @Description Keeps the fines, drops the borrower reference and marks the name snapshot as deleted
// @Tags borrowers
// @Produce  json
// @Param   borrowerID path string true "Borrower ID"
// @Success 200 {object} dto.DetachBorrowerResponse
// @Failure 500 {object} map[string]string "Failed to detach borrower"
// @Security BearerAuth
// @Router /borrowers/{borrowerID}/detach [post]
func (h *borrowerHandler) detach(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	borrowerID := c.Param("borrowerID")
	actorID, ok := staffID(c, logger)
	if !ok {
		return
	}

	n, err := h.fineService.DetachBorrower(c.Request.Context(), borrowerID, actorID)
	if err != nil {
		respondError(c, logger.With(slog.String("borrower_id", borrowerID)), err, "Failed to detach borrower")
		return
	}
	c.JSON(http.StatusOK, dto.DetachBorrowerResponse{BorrowerID: borrowerID, FinesDetached: n})
}
