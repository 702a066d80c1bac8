package controllers

import (
	"net/http"

	"github.com/candleworks/storefront-api/services"
	"github.com/candleworks/storefront-api/utils"
	"github.com/gin-gonic/gin"
)

// ListInvoices handles GET /api/invoices - own invoices, or every invoice for admins
func ListInvoices(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	invoices, err := invoiceService().ListInvoices(c.Request.Context(), ownerScope(user))
	if err != nil {
		respondServiceError(c, err, "Failed to list invoices")
		return
	}
	utils.RespondData(c, http.StatusOK, invoices)
}

// GetInvoice handles GET /api/invoices/:id
func GetInvoice(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	invoice, err := invoiceService().GetInvoice(c.Request.Context(), id, ownerScope(user))
	if err != nil {
		respondServiceError(c, err, "Failed to load invoice")
		return
	}
	utils.RespondData(c, http.StatusOK, invoice)
}

// GetInvoicePDF handles GET /api/invoices/:id/pdf
func GetInvoicePDF(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	pdf, err := invoiceService().InvoicePDF(c.Request.Context(), id, ownerScope(user))
	if err != nil {
		respondServiceError(c, err, "Failed to render invoice")
		return
	}
	respondPDF(c, pdf)
}

// CreateInvoice handles POST /api/invoices (admin) - a manual invoice without an order
func CreateInvoice(c *gin.Context) {
	var req services.ManualInvoiceInput
	if !bindJSON(c, &req) {
		return
	}
	invoice, err := invoiceService().CreateManualInvoice(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err, "Failed to create invoice")
		return
	}
	utils.RespondData(c, http.StatusCreated, invoice)
}

// DeleteInvoice handles DELETE /api/invoices/:id (admin)
func DeleteInvoice(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := invoiceService().DeleteInvoice(c.Request.Context(), id); err != nil {
		respondServiceError(c, err, "Failed to delete invoice")
		return
	}
	utils.RespondData(c, http.StatusOK, gin.H{"id": id, "deleted": true})
}
