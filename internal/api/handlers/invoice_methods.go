package handlers

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"simplyinvoicing/api/internal/invoicecalc"
	"simplyinvoicing/api/internal/models"
)

// UpdateInvoiceArgs carries the invoice id next to the editable fields.
type UpdateInvoiceArgs struct {
	InvoiceID string `json:"invoiceId"`
	models.InvoiceInput
}

// SetInvoiceStatusArgs defines the arguments for the setInvoiceStatus method
type SetInvoiceStatusArgs struct {
	InvoiceID string               `json:"invoiceId"`
	Status    models.InvoiceStatus `json:"status"`
}

// ListInvoicesArgs is the optional filter of listInvoices.
type ListInvoicesArgs struct {
	Status models.InvoiceStatus `json:"status"`
}

// ListEmailLogsArgs is the optional filter of listEmailLogs.
type ListEmailLogsArgs struct {
	InvoiceID string `json:"invoiceId"`
}

// InvoiceTotalsResult holds the exact totals and their display rounding.
type InvoiceTotalsResult struct {
	Totals  invoicecalc.Totals `json:"totals"`
	Display invoicecalc.Totals `json:"display"`
}

func (h *JsonApiHandler) parseInvoiceID(args json.RawMessage) (string, *ApiError) {
	var invoiceID string
	if apiErr := h.parseRequiredSingleArgFromArray(args, &invoiceID); apiErr != nil {
		return "", apiErr
	}
	if invoiceID == "" {
		return "", NewApiError("invoiceId is required")
	}
	return invoiceID, nil
}

func (h *JsonApiHandler) calculateInvoiceTotals(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	var in models.InvoiceInput
	if apiErr := h.parseRequiredSingleArgFromArray(args, &in); apiErr != nil {
		return nil, apiErr
	}
	totals, err := h.invoiceService.Calculate(in)
	if err != nil {
		return nil, h.translateError("calculateInvoiceTotals", err)
	}
	return &InvoiceTotalsResult{Totals: *totals, Display: totals.Rounded()}, nil
}

func (h *JsonApiHandler) createInvoice(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	userID, apiErr := currentUserID(c)
	if apiErr != nil {
		return nil, apiErr
	}
	var in models.InvoiceInput
	if apiErr := h.parseRequiredSingleArgFromArray(args, &in); apiErr != nil {
		return nil, apiErr
	}

	invoice, err := h.invoiceService.Create(c.Request.Context(), userID, in)
	if err != nil {
		return nil, h.translateError("createInvoice", err)
	}
	log.WithFields(log.Fields{"userID": userID, "invoiceID": invoice.ID, "number": invoice.InvoiceNumber}).Info("Invoice created")
	return invoice, nil
}

func (h *JsonApiHandler) updateInvoice(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	userID, apiErr := currentUserID(c)
	if apiErr != nil {
		return nil, apiErr
	}
	var reqArgs UpdateInvoiceArgs
	if apiErr := h.parseRequiredSingleArgFromArray(args, &reqArgs); apiErr != nil {
		return nil, apiErr
	}
	if reqArgs.InvoiceID == "" {
		return nil, NewApiError("invoiceId is required")
	}

	invoice, err := h.invoiceService.Update(c.Request.Context(), userID, reqArgs.InvoiceID, reqArgs.InvoiceInput)
	if err != nil {
		return nil, h.translateError("updateInvoice", err)
	}
	return invoice, nil
}

func (h *JsonApiHandler) getInvoice(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	userID, apiErr := currentUserID(c)
	if apiErr != nil {
		return nil, apiErr
	}
	invoiceID, apiErr := h.parseInvoiceID(args)
	if apiErr != nil {
		return nil, apiErr
	}
	invoice, err := h.invoiceService.Get(c.Request.Context(), userID, invoiceID)
	if err != nil {
		return nil, h.translateError("getInvoice", err)
	}
	return invoice, nil
}

func (h *JsonApiHandler) listInvoices(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	userID, apiErr := currentUserID(c)
	if apiErr != nil {
		return nil, apiErr
	}
	var reqArgs ListInvoicesArgs
	if apiErr := h.parseOptionalSingleArgFromArray(args, &reqArgs); apiErr != nil {
		return nil, apiErr
	}
	invoices, err := h.invoiceService.List(c.Request.Context(), userID, reqArgs.Status)
	if err != nil {
		return nil, h.translateError("listInvoices", err)
	}
	if invoices == nil {
		invoices = []models.Invoice{}
	}
	return invoices, nil
}

func (h *JsonApiHandler) deleteInvoice(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	userID, apiErr := currentUserID(c)
	if apiErr != nil {
		return nil, apiErr
	}
	invoiceID, apiErr := h.parseInvoiceID(args)
	if apiErr != nil {
		return nil, apiErr
	}
	if err := h.invoiceService.Delete(c.Request.Context(), userID, invoiceID); err != nil {
		return nil, h.translateError("deleteInvoice", err)
	}
	return "deleted", nil
}

func (h *JsonApiHandler) setInvoiceStatus(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	userID, apiErr := currentUserID(c)
	if apiErr != nil {
		return nil, apiErr
	}
	var reqArgs SetInvoiceStatusArgs
	if apiErr := h.parseRequiredSingleArgFromArray(args, &reqArgs); apiErr != nil {
		return nil, apiErr
	}
	if reqArgs.InvoiceID == "" {
		return nil, NewApiError("invoiceId is required")
	}
	invoice, err := h.invoiceService.SetStatus(c.Request.Context(), userID, reqArgs.InvoiceID, reqArgs.Status)
	if err != nil {
		return nil, h.translateError("setInvoiceStatus", err)
	}
	return invoice, nil
}

func (h *JsonApiHandler) getInvoiceArchiveURL(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	userID, apiErr := currentUserID(c)
	if apiErr != nil {
		return nil, apiErr
	}
	invoiceID, apiErr := h.parseInvoiceID(args)
	if apiErr != nil {
		return nil, apiErr
	}
	url, err := h.invoiceService.ArchiveURL(c.Request.Context(), userID, invoiceID)
	if err != nil {
		return nil, h.translateError("getInvoiceArchiveUrl", err)
	}
	return gin.H{"url": url}, nil
}

func (h *JsonApiHandler) sendInvoiceEmail(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	userID, apiErr := currentUserID(c)
	if apiErr != nil {
		return nil, apiErr
	}
	invoiceID, apiErr := h.parseInvoiceID(args)
	if apiErr != nil {
		return nil, apiErr
	}
	result, err := h.emailService.SendInvoiceEmail(c.Request.Context(), userID, invoiceID)
	if err != nil {
		return nil, h.translateError("sendInvoiceEmail", err)
	}
	return result, nil
}

func (h *JsonApiHandler) checkInvoiceLimit(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	_ = args
	userID, apiErr := currentUserID(c)
	if apiErr != nil {
		return nil, apiErr
	}
	limit, err := h.usageService.CheckInvoiceLimit(c.Request.Context(), userID)
	if err != nil {
		return nil, h.translateError("checkInvoiceLimit", err)
	}
	return limit, nil
}

func (h *JsonApiHandler) listEmailLogs(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	userID, apiErr := currentUserID(c)
	if apiErr != nil {
		return nil, apiErr
	}
	var reqArgs ListEmailLogsArgs
	if apiErr := h.parseOptionalSingleArgFromArray(args, &reqArgs); apiErr != nil {
		return nil, apiErr
	}
	logs, err := h.emailService.ListEmailLogs(c.Request.Context(), userID, reqArgs.InvoiceID)
	if err != nil {
		return nil, h.translateError("listEmailLogs", err)
	}
	if logs == nil {
		logs = []models.EmailLog{}
	}
	return logs, nil
}
