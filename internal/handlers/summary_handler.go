package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fintrack/internal/ledger"
	"fintrack/internal/models"
	"fintrack/internal/services"
)

// SummaryHandler serves the ledger aggregates.
type SummaryHandler struct {
	summaryService services.SummaryServicer
	cal            ledger.Calendar
}

// NewSummaryHandler creates a new SummaryHandler. cal picks the current
// month when a request omits one.
func NewSummaryHandler(summaryService services.SummaryServicer, cal ledger.Calendar) *SummaryHandler {
	return &SummaryHandler{summaryService: summaryService, cal: cal}
}

// GetBalance handles the all-time balance request
// @Summary     Get balance
// @Description All-time income, expense and balance of the authenticated user
// @Tags        summary
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} ledger.Totals "Balance"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /summary/balance [get]
func (h *SummaryHandler) GetBalance(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	totals, err := h.summaryService.GetBalance(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"balance": totals})
}

// GetMonthlySummary handles the single-month totals request
// @Summary     Get monthly summary
// @Description Income, expense and balance for one calendar month (defaults to the current month)
// @Tags        summary
// @Produce     json
// @Security    BearerAuth
// @Param       year  query int false "Year"
// @Param       month query int false "Month (1-12)"
// @Success     200 {object} ledger.MonthlySummary "Monthly summary"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /summary/monthly [get]
func (h *SummaryHandler) GetMonthlySummary(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	now := h.cal.Now()
	year, month := now.Year(), int(now.Month())
	if v, err := queryInt(c, "year"); err != nil {
		respondWithError(c, err)
		return
	} else if v != nil {
		year = *v
	}
	if v, err := queryInt(c, "month"); err != nil {
		respondWithError(c, err)
		return
	} else if v != nil {
		month = *v
	}

	summary, err := h.summaryService.GetMonthlySummary(c.Request.Context(), userID, year, month)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

// GetCategoryBreakdown handles the per-category totals request
// @Summary     Get category breakdown
// @Description Totals per category for one record type, largest first. Without year it covers all time.
// @Tags        summary
// @Produce     json
// @Security    BearerAuth
// @Param       type  query string false "Record type (income, expense; default expense)"
// @Param       year  query int    false "Year"
// @Param       month query int    false "Month (1-12, requires year)"
// @Success     200 {array}  ledger.CategoryTotal "Category totals"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /summary/categories [get]
func (h *SummaryHandler) GetCategoryBreakdown(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	year, err := queryInt(c, "year")
	if err != nil {
		respondWithError(c, err)
		return
	}
	month, err := queryInt(c, "month")
	if err != nil {
		respondWithError(c, err)
		return
	}

	recordType := models.RecordType(c.Query("type"))
	breakdown, err := h.summaryService.GetCategoryBreakdown(c.Request.Context(), userID, recordType, year, month)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": breakdown})
}

// GetMonthlyTrend handles the trailing months request
// @Summary     Get monthly trend
// @Description Monthly totals for the last N months, oldest first, ending with the current month
// @Tags        summary
// @Produce     json
// @Security    BearerAuth
// @Param       months query int false "Number of months (1-24, default 6)"
// @Success     200 {array}  ledger.MonthlySummary "Monthly totals"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /summary/trend [get]
func (h *SummaryHandler) GetMonthlyTrend(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	months := 0
	if v, err := queryInt(c, "months"); err != nil {
		respondWithError(c, err)
		return
	} else if v != nil {
		months = *v
	}

	trend, err := h.summaryService.GetMonthlyTrend(c.Request.Context(), userID, months)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"trend": trend})
}
