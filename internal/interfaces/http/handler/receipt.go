package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appreceipt "github.com/fiscaldesk/backend/internal/application/receipt"
	"github.com/fiscaldesk/backend/internal/interfaces/http/dto"
	"github.com/fiscaldesk/backend/internal/interfaces/http/middleware"
)

// receiptDateLayout is the wire form of calendar dates in receipt payloads
const receiptDateLayout = "2006-01-02"

// UpdateReceiptRequest is the update request body. The received date is an
// ISO calendar date without a time component.
type UpdateReceiptRequest struct {
	ActivityCode string `json:"activity_code" binding:"required"`
	ReceivedDate string `json:"received_date" binding:"required"`
}

// ReceiptHandler handles receipt lifecycle HTTP requests
type ReceiptHandler struct {
	BaseHandler
	service *appreceipt.LifecycleService
}

// NewReceiptHandler creates a new receipt handler
func NewReceiptHandler(service *appreceipt.LifecycleService) *ReceiptHandler {
	return &ReceiptHandler{service: service}
}

// RegisterRoutes registers the receipt endpoints
func (h *ReceiptHandler) RegisterRoutes(rg *gin.RouterGroup) {
	invoices := rg.Group("/invoices")
	invoices.POST("/:id/receipt", h.CreateForInvoice)
	invoices.GET("/:id/receipt", h.GetByInvoice)

	receipts := rg.Group("/receipts")
	receipts.GET("/:id", h.GetByID)
	receipts.PUT("/:id", h.UpdateDetails)
	receipts.POST("/:id/send", h.Send)
	receipts.POST("/:id/mark-sent", h.MarkSent)
	receipts.POST("/:id/mark-unsent", h.MarkUnsent)
}

// CreateForInvoice issues a receipt for a paid invoice. Unpaid invoices
// are a no-op and answer 204; an already receipted invoice answers 201
// with the existing receipt, keeping the endpoint safe to retry.
func (h *ReceiptHandler) CreateForInvoice(c *gin.Context) {
	invoiceID, ok := h.bindID(c)
	if !ok {
		return
	}

	result, err := h.service.CreateForPaidInvoice(c.Request.Context(), middleware.GetPrincipal(c), invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if result == nil {
		h.NoContent(c)
		return
	}

	h.Created(c, result)
}

// GetByInvoice returns the receipt issued for an invoice
func (h *ReceiptHandler) GetByInvoice(c *gin.Context) {
	invoiceID, ok := h.bindID(c)
	if !ok {
		return
	}

	result, err := h.service.GetByInvoiceID(c.Request.Context(), middleware.GetPrincipal(c), invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if result == nil {
		h.NotFound(c, "Invoice has no receipt")
		return
	}

	h.Success(c, result)
}

// GetByID returns a single receipt
func (h *ReceiptHandler) GetByID(c *gin.Context) {
	receiptID, ok := h.bindID(c)
	if !ok {
		return
	}

	result, err := h.service.GetByID(c.Request.Context(), middleware.GetPrincipal(c), receiptID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// UpdateDetails updates the mutable fiscal fields of a pending receipt
func (h *ReceiptHandler) UpdateDetails(c *gin.Context) {
	receiptID, ok := h.bindID(c)
	if !ok {
		return
	}

	var req UpdateReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}
	receivedDate, err := time.Parse(receiptDateLayout, req.ReceivedDate)
	if err != nil {
		h.BadRequest(c, "Received date must be formatted as YYYY-MM-DD")
		return
	}

	result, err := h.service.UpdateDetails(c.Request.Context(), middleware.GetPrincipal(c), receiptID, appreceipt.UpdateReceiptDetailsRequest{
		ActivityCode: req.ActivityCode,
		ReceivedDate: receivedDate,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Send renders the receipt document, archives it and marks the receipt sent
func (h *ReceiptHandler) Send(c *gin.Context) {
	receiptID, ok := h.bindID(c)
	if !ok {
		return
	}

	result, err := h.service.Send(c.Request.Context(), middleware.GetPrincipal(c), receiptID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// MarkSent records a delivery that happened outside the system
func (h *ReceiptHandler) MarkSent(c *gin.Context) {
	receiptID, ok := h.bindID(c)
	if !ok {
		return
	}

	result, err := h.service.MarkSent(c.Request.Context(), middleware.GetPrincipal(c), receiptID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// MarkUnsent reverts a sent receipt to pending
func (h *ReceiptHandler) MarkUnsent(c *gin.Context) {
	receiptID, ok := h.bindID(c)
	if !ok {
		return
	}

	result, err := h.service.MarkUnsent(c.Request.Context(), receiptID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// bindID parses the :id path parameter, answering 400 on malformed input
func (h *ReceiptHandler) bindID(c *gin.Context) (uuid.UUID, bool) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid ID format")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		h.BadRequest(c, "Invalid ID format")
		return uuid.Nil, false
	}
	return id, true
}
