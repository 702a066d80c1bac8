package utils

import "fmt"

// PreviewBaseNumber is the lowest synthetic invoice number handed out for
// invoices that have not been saved yet.
const PreviewBaseNumber = 450

// PreviewInvoiceNumber returns the synthetic number shown on an unsaved
// invoice: "i450" for orders below the base, "i<orderID>" otherwise.
// It is not unique across orders below the base.
func PreviewInvoiceNumber(orderID uint) string {
	if orderID < PreviewBaseNumber {
		return fmt.Sprintf("i%d", PreviewBaseNumber)
	}
	return fmt.Sprintf("i%d", orderID)
}

// FormatInvoiceNumber formats a persisted invoice number as "<year>-<seq>"
// with the sequence zero padded to four digits.
func FormatInvoiceNumber(year, seq int) string {
	return fmt.Sprintf("%d-%04d", year, seq)
}
