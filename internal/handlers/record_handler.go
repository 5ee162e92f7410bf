package handlers

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/ledger"
	"fintrack/internal/models"
	"fintrack/internal/pagination"
	"fintrack/internal/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// RecordHandler handles record-related requests.
type RecordHandler struct {
	recordService services.RecordServicer
	auditService  services.AuditServicer
	cal           ledger.Calendar
}

// NewRecordHandler creates a new RecordHandler. Bare dates in requests are
// read in cal's location.
func NewRecordHandler(recordService services.RecordServicer, auditService services.AuditServicer, cal ledger.Calendar) *RecordHandler {
	return &RecordHandler{recordService: recordService, auditService: auditService, cal: cal}
}

// CreateRecordRequest represents the request payload for creating a record
type CreateRecordRequest struct {
	Description        string                     `json:"description" binding:"required,min=1,max=200"`
	Amount             *decimal.Decimal           `json:"amount" binding:"required" swaggertype:"number"`
	Type               models.RecordType          `json:"type" binding:"required,record_type"`
	Category           string                     `json:"category" binding:"required,category_label"`
	Date               *string                    `json:"date"`
	PaymentMethod      models.PaymentMethod       `json:"payment_method" binding:"omitempty,payment_method"`
	Tags               []string                   `json:"tags" binding:"omitempty,max=10,dive,max=30"`
	Notes              string                     `json:"notes" binding:"max=500"`
	IsRecurring        bool                       `json:"is_recurring"`
	RecurringFrequency *models.RecurringFrequency `json:"recurring_frequency" binding:"omitempty,recurring_frequency"`
}

// UpdateRecordRequest represents the request payload for updating a record.
// Omitted fields are left unchanged.
type UpdateRecordRequest struct {
	Description        *string                    `json:"description" binding:"omitempty,min=1,max=200"`
	Amount             *decimal.Decimal           `json:"amount" swaggertype:"number"`
	Type               *models.RecordType         `json:"type" binding:"omitempty,record_type"`
	Category           *string                    `json:"category" binding:"omitempty,category_label"`
	Date               *string                    `json:"date"`
	PaymentMethod      *models.PaymentMethod      `json:"payment_method" binding:"omitempty,payment_method"`
	Tags               *[]string                  `json:"tags"`
	Notes              *string                    `json:"notes" binding:"omitempty,max=500"`
	IsRecurring        *bool                      `json:"is_recurring"`
	RecurringFrequency *models.RecurringFrequency `json:"recurring_frequency" binding:"omitempty,recurring_frequency"`
}

// CreateRecord handles the creation of a new record
// @Summary     Create a record
// @Description Create a new income or expense record. Expenses update the budgets they fall under.
// @Tags        records
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateRecordRequest true "Record details"
// @Success     201 {object} models.Record "Record created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /records [post]
func (h *RecordHandler) CreateRecord(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	in := services.RecordInput{
		Description:        req.Description,
		Amount:             *req.Amount,
		Type:               req.Type,
		Category:           req.Category,
		PaymentMethod:      req.PaymentMethod,
		Tags:               req.Tags,
		Notes:              req.Notes,
		IsRecurring:        req.IsRecurring,
		RecurringFrequency: req.RecurringFrequency,
	}
	if req.Date != nil && *req.Date != "" {
		parsed, parseErr := parseFlexibleTime(*req.Date, h.cal)
		if parseErr != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, parseErr.Error()))
			return
		}
		in.Date = &parsed
	}

	record, err := h.recordService.CreateRecord(c.Request.Context(), userID, in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "CREATE_RECORD", "record", record.ID, c.ClientIP(),
		map[string]interface{}{"type": record.Type, "amount": record.Amount, "category": record.Category})

	c.JSON(http.StatusCreated, gin.H{"record": record})
}

// GetRecords handles listing the authenticated user's records
// @Summary     Get records
// @Description Get a paginated list of records, newest first, with optional filters
// @Tags        records
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       page           query int    false "Page number (default 1)"
// @Param       page_size      query int    false "Items per page (default 20, max 100)"
// @Param       type           query string false "Filter by type (income, expense)"
// @Param       category       query string false "Filter by category"
// @Param       from_date      query string false "Filter by start date (RFC3339 e.g. 2024-01-01T00:00:00Z, or YYYY-MM-DD)"
// @Param       to_date        query string false "Filter by end date (RFC3339 or YYYY-MM-DD, whole day included)"
// @Param       min_amount     query number false "Filter by minimum amount"
// @Param       max_amount     query number false "Filter by maximum amount"
// @Param       payment_method query string false "Filter by payment method"
// @Param       search         query string false "Case-insensitive match on description or notes"
// @Success     200 {object} pagination.PageResponse[models.Record] "Paginated records"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /records [get]
func (h *RecordHandler) GetRecords(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	filter, err := parseRecordFilter(c, h.cal)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.recordService.ListRecords(c.Request.Context(), userID, page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetRecord handles retrieving a single record
// @Summary     Get record by ID
// @Description Get a specific record by ID
// @Tags        records
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Record ID"
// @Success     200 {object} models.Record "Record details"
// @Failure     400 {object} ErrorResponse "Invalid record ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Record not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /records/{id} [get]
func (h *RecordHandler) GetRecord(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	recordID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	record, err := h.recordService.GetRecordByID(c.Request.Context(), userID, recordID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"record": record})
}

// UpdateRecord handles updating an existing record
// @Summary     Update record
// @Description Update fields of an existing record. Budgets of the old and new category are both updated.
// @Tags        records
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string              true "Record ID"
// @Param       request body UpdateRecordRequest true "Fields to change"
// @Success     200 {object} models.Record "Updated record"
// @Failure     400 {object} ErrorResponse "Invalid input or record ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Record not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /records/{id} [put]
func (h *RecordHandler) UpdateRecord(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	recordID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	in := services.RecordUpdate{
		Description:        req.Description,
		Amount:             req.Amount,
		Type:               req.Type,
		Category:           req.Category,
		PaymentMethod:      req.PaymentMethod,
		Tags:               req.Tags,
		Notes:              req.Notes,
		IsRecurring:        req.IsRecurring,
		RecurringFrequency: req.RecurringFrequency,
	}
	if req.Date != nil && *req.Date != "" {
		parsed, parseErr := parseFlexibleTime(*req.Date, h.cal)
		if parseErr != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, parseErr.Error()))
			return
		}
		in.Date = &parsed
	}

	record, err := h.recordService.UpdateRecord(c.Request.Context(), userID, recordID, in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "UPDATE_RECORD", "record", recordID, c.ClientIP(),
		map[string]interface{}{"type": record.Type, "amount": record.Amount, "category": record.Category})

	c.JSON(http.StatusOK, gin.H{"record": record})
}

// DeleteRecord handles deleting a record
// @Summary     Delete record
// @Description Permanently delete a record
// @Tags        records
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Record ID"
// @Success     200 {object} MessageResponse "Record deleted"
// @Failure     400 {object} ErrorResponse "Invalid record ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Record not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /records/{id} [delete]
func (h *RecordHandler) DeleteRecord(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	recordID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.recordService.DeleteRecord(c.Request.Context(), userID, recordID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "DELETE_RECORD", "record", recordID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Record deleted successfully"})
}

// ExportRecords handles downloading records as a spreadsheet
// @Summary     Export records
// @Description Download the records matching the filters as an XLSX workbook
// @Tags        records
// @Produce     application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security    BearerAuth
// @Param       type           query string false "Filter by type (income, expense)"
// @Param       category       query string false "Filter by category"
// @Param       from_date      query string false "Filter by start date (RFC3339 or YYYY-MM-DD)"
// @Param       to_date        query string false "Filter by end date (RFC3339 or YYYY-MM-DD)"
// @Param       min_amount     query number false "Filter by minimum amount"
// @Param       max_amount     query number false "Filter by maximum amount"
// @Param       payment_method query string false "Filter by payment method"
// @Param       search         query string false "Case-insensitive match on description or notes"
// @Success     200 {file} file "XLSX workbook"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /records/export [get]
func (h *RecordHandler) ExportRecords(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	filter, err := parseRecordFilter(c, h.cal)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := h.recordService.ExportRecords(c.Request.Context(), userID, filter, &buf); err != nil {
		respondWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="records.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func parseRecordFilter(c *gin.Context, cal ledger.Calendar) (services.RecordFilter, error) {
	var filter services.RecordFilter

	if v := c.Query("type"); v != "" {
		t := models.RecordType(v)
		if !t.Valid() {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid type, must be income or expense")
		}
		filter.Type = &t
	}

	if v := c.Query("category"); v != "" {
		filter.Category = &v
	}

	if v := c.Query("from_date"); v != "" {
		t, err := parseFlexibleTime(v, cal)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid from_date format, use RFC3339 or YYYY-MM-DD")
		}
		filter.FromDate = &t
	}

	if v := c.Query("to_date"); v != "" {
		t, err := parseFlexibleTime(v, cal)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid to_date format, use RFC3339 or YYYY-MM-DD")
		}
		if isDateOnly(v) {
			t = ledger.EndOfDay(t)
		}
		filter.ToDate = &t
	}

	if v := c.Query("min_amount"); v != "" {
		amt, err := decimal.NewFromString(v)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid min_amount")
		}
		filter.MinAmount = &amt
	}

	if v := c.Query("max_amount"); v != "" {
		amt, err := decimal.NewFromString(v)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid max_amount")
		}
		filter.MaxAmount = &amt
	}

	if v := c.Query("payment_method"); v != "" {
		m := models.PaymentMethod(v)
		if !m.Valid() {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid payment_method")
		}
		filter.PaymentMethod = &m
	}

	filter.Search = c.Query("search")
	return filter, nil
}
