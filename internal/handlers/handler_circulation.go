package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/library_circulation_app/internal/core/ports/services"
	"github.com/SscSPs/library_circulation_app/internal/dto"
	"github.com/SscSPs/library_circulation_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

// circulationHandler handles issue, return and renewal requests.
type circulationHandler struct {
	circulationService portssvc.CirculationSvcFacade
	historyService     portssvc.HistorySvc
}

func newCirculationHandler(cs portssvc.CirculationSvcFacade, hs portssvc.HistorySvc) *circulationHandler {
	return &circulationHandler{circulationService: cs, historyService: hs}
}

// registerCirculationRoutes registers routes for the loan state machine.
func registerCirculationRoutes(rg *gin.RouterGroup, cs portssvc.CirculationSvcFacade, hs portssvc.HistorySvc) {
	h := newCirculationHandler(cs, hs)

	rg.POST("/circulation/issue", h.issue)

	loans := rg.Group("/loans")
	{
		loans.GET("", h.listActiveLoans)
		loans.POST("/:loanID/return", h.returnLoan)
		loans.POST("/:loanID/renew", h.renewLoan)
		loans.GET("/:loanID/renewals/reconcile", h.reconcileRenewals)
	}
}

// issue godoc
// @Summary Issue copies to a borrower
// @Description Issues each scan code (accession number or catalog reference) in its own unit of work. Items fail independently.
// @Tags circulation
// @Accept  json
// @Produce  json
// @Param   request body dto.IssueRequest true "Borrower and scan codes"
// @Success 201 {object} domain.IssueResult "At least one item issued"
// @Success 200 {object} domain.IssueResult "No item issued, see per-item reasons"
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 404 {object} map[string]string "Borrower not found"
// @Failure 422 {object} map[string]string "Borrower inactive or loan limit exceeded"
// @Failure 500 {object} map[string]string "Failed to issue"
// @Security BearerAuth
// @Router /circulation/issue [post]
func (h *circulationHandler) issue(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.IssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for Issue", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	actorID, ok := staffID(c, logger)
	if !ok {
		return
	}

	result, err := h.circulationService.Issue(c.Request.Context(), req, actorID)
	if err != nil {
		respondError(c, logger, err, "Failed to issue")
		return
	}

	middleware.TrackEvent(c, "loans_issued", map[string]any{
		"session_id":      result.SessionID,
		"items_requested": len(result.Items),
		"items_issued":    result.SuccessCount(),
		"warnings":        len(result.Warnings),
	})

	status := http.StatusOK
	if result.SuccessCount() > 0 {
		status = http.StatusCreated
	}
	c.JSON(status, result)
}

// listActiveLoans godoc
// @Summary List active loans
// @Description Lists open loans with computed overdue days and projected fine
// @Tags circulation
// @Produce  json
// @Param   studentID query string false "Borrower ID"
// @Param   copyID query string false "Copy ID"
// @Param   catalogRef query string false "Catalog reference"
// @Param   overdue query bool false "Only overdue loans"
// @Success 200 {object} dto.ListActiveLoansResponse
// @Failure 400 {object} map[string]string "Invalid query"
// @Failure 500 {object} map[string]string "Failed to list loans"
// @Security BearerAuth
// @Router /loans [get]
func (h *circulationHandler) listActiveLoans(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var params dto.ListLoansParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query for ListActiveLoans", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	loans, err := h.circulationService.ListActiveLoans(c.Request.Context(), params)
	if err != nil {
		respondError(c, logger, err, "Failed to list loans")
		return
	}
	c.JSON(http.StatusOK, dto.ListActiveLoansResponse{Loans: loans})
}

// returnLoan godoc
// @Summary Return a loan
// @Description Closes a loan, computes overdue and condition fines and updates the copy
// @Tags circulation
// @Accept  json
// @Produce  json
// @Param   loanID path string true "Loan ID"
// @Param   request body dto.ReturnRequest true "Return condition"
// @Success 200 {object} domain.ReturnResult
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 404 {object} map[string]string "Loan not found"
// @Failure 409 {object} map[string]string "Copy state conflict or duplicate replacement accession"
// @Failure 500 {object} map[string]string "Failed to return loan"
// @Security BearerAuth
// @Router /loans/{loanID}/return [post]
func (h *circulationHandler) returnLoan(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	loanID := c.Param("loanID")
	var req dto.ReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for Return", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	actorID, ok := staffID(c, logger)
	if !ok {
		return
	}

	result, err := h.circulationService.Return(c.Request.Context(), loanID, req, actorID)
	if err != nil {
		respondError(c, logger.With(slog.String("loan_id", loanID)), err, "Failed to return loan")
		return
	}
	middleware.TrackEvent(c, "loan_returned", map[string]any{
		"condition":      string(req.Condition),
		"overdue_days":   result.OverdueDays,
		"fine_generated": result.FineGenerated,
		"fine_amount":    result.FineAmount.StringFixed(2),
	})
	c.JSON(http.StatusOK, result)
}

// renewLoan godoc
// @Summary Renew a loan
// @Description Extends the due date by extendDays, to newDueDate, or by the class renewal period
// @Tags circulation
// @Accept  json
// @Produce  json
// @Param   loanID path string true "Loan ID"
// @Param   request body dto.RenewRequest false "Renewal options"
// @Success 200 {object} domain.RenewResult
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 404 {object} map[string]string "Loan not found"
// @Failure 409 {object} map[string]string "Renewed concurrently"
// @Failure 422 {object} map[string]string "Max renewals reached"
// @Failure 500 {object} map[string]string "Failed to renew loan"
// @Security BearerAuth
// @Router /loans/{loanID}/renew [post]
func (h *circulationHandler) renewLoan(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	loanID := c.Param("loanID")
	var req dto.RenewRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			logger.Warn("Failed to bind JSON for Renew", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
			return
		}
	}
	actorID, ok := staffID(c, logger)
	if !ok {
		return
	}

	result, err := h.circulationService.Renew(c.Request.Context(), loanID, req, actorID)
	if err != nil {
		respondError(c, logger.With(slog.String("loan_id", loanID)), err, "Failed to renew loan")
		return
	}
	c.JSON(http.StatusOK, result)
}

// reconcileRenewals godoc
// @Summary Reconcile a loan's renewal counter
// @Description Compares the stored renewal counter with the RENEW entries recorded since issue
// @Tags circulation
// @Produce  json
// @Param   loanID path string true "Loan ID"
// @Success 200 {object} domain.RenewalReconciliation
// @Failure 404 {object} map[string]string "Loan not found"
// @Failure 500 {object} map[string]string "Failed to reconcile renewals"
// @Security BearerAuth
// @Router /loans/{loanID}/renewals/reconcile [get]
func (h *circulationHandler) reconcileRenewals(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	loanID := c.Param("loanID")

	result, err := h.historyService.ReconcileRenewals(c.Request.Context(), loanID)
	if err != nil {
		respondError(c, logger.With(slog.String("loan_id", loanID)), err, "Failed to reconcile renewals")
		return
	}
	c.JSON(http.StatusOK, result)
}
