package services

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/candleworks/storefront-api/models"
	"github.com/go-pdf/fpdf"
)

// InvoiceParty is a name and address block
type InvoiceParty struct {
	Name       string
	Email      string
	Phone      string
	Address    string
	City       string
	PostalCode string
	Country    string
}

// InvoiceLine is one printed item row
type InvoiceLine struct {
	Name     string
	Scent    string
	Color    string
	Quantity int
	Price    models.Money
	Amount   models.Money
}

// InvoiceDocument is everything the renderer prints, independent of storage
type InvoiceDocument struct {
	Number        string
	Preview       bool
	IssuedAt      time.Time
	Language      string
	OrderID       *uint
	PaymentMethod string
	Seller        ContactSettings
	Customer      InvoiceParty
	Lines         []InvoiceLine
	Subtotal      models.Money
	Tax           models.Money
	Shipping      models.Money
	Total         models.Money
}

// NewInvoiceDocument flattens an invoice and the seller block for rendering
func NewInvoiceDocument(invoice *models.Invoice, seller ContactSettings) InvoiceDocument {
	doc := InvoiceDocument{
		Number:        invoice.InvoiceNumber,
		IssuedAt:      invoice.IssuedAt,
		Language:      invoice.Language,
		OrderID:       invoice.OrderID,
		PaymentMethod: invoice.PaymentMethod,
		Seller:        seller,
		Customer: InvoiceParty{
			Name:       invoice.CustomerName,
			Email:      invoice.CustomerEmail,
			Phone:      invoice.CustomerPhone,
			Address:    invoice.CustomerAddress,
			City:       invoice.CustomerCity,
			PostalCode: invoice.CustomerPostalCode,
			Country:    invoice.CustomerCountry,
		},
		Subtotal: invoice.Subtotal,
		Tax:      invoice.Tax,
		Shipping: invoice.ShippingCost,
		Total:    invoice.Total,
	}
	for _, item := range invoice.Items {
		doc.Lines = append(doc.Lines, InvoiceLine{
			Name:     item.ProductName,
			Scent:    item.SelectedScent,
			Color:    item.SelectedColor,
			Quantity: item.Quantity,
			Price:    item.Price,
			Amount:   item.LineTotal(),
		})
	}
	return doc
}

// InvoiceRenderer renders invoices as A4 PDFs with the built-in Helvetica
// font. Labels come from the language table; the item table continues on new
// pages with its header repeated.
type InvoiceRenderer struct{}

// NewInvoiceRenderer creates a renderer
func NewInvoiceRenderer() *InvoiceRenderer {
	return &InvoiceRenderer{}
}

const (
	pageMargin   = 15.0
	bottomMargin = 20.0
	rowHeight    = 7.0
)

// Column widths of the item table; they add up to the printable A4 width
var invoiceColumns = []float64{90, 20, 35, 35}

// cp1252 lacks these letters used in Croatian and Slovenian
var latinFolding = strings.NewReplacer(
	"č", "c", "ć", "c", "đ", "d", "Č", "C", "Ć", "C", "Đ", "D",
)

// Render produces the PDF bytes for doc
func (r *InvoiceRenderer) Render(doc InvoiceDocument) ([]byte, error) {
	pdf := r.build(doc)
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render invoice %s: %w", doc.Number, err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write invoice %s: %w", doc.Number, err)
	}
	return buf.Bytes(), nil
}

// Filename is the download name of the rendered invoice
func (r *InvoiceRenderer) Filename(doc InvoiceDocument) string {
	labels := LabelsFor(doc.Language)
	title := labels.Invoice
	if doc.Preview {
		title = labels.Preview
	}
	return fmt.Sprintf("%s-%s.pdf", strings.ToLower(latinFolding.Replace(title)), doc.Number)
}

func (r *InvoiceRenderer) build(doc InvoiceDocument) *fpdf.Fpdf {
	labels := LabelsFor(doc.Language)

	pdf := fpdf.New("P", "mm", "A4", "")
	translate := pdf.UnicodeTranslatorFromDescriptor("")
	tr := func(s string) string { return translate(latinFolding.Replace(s)) }

	pdf.SetTitle(fmt.Sprintf("%s %s", labels.Invoice, doc.Number), true)
	pdf.SetCreator(doc.Seller.CompanyName, true)
	if !doc.IssuedAt.IsZero() {
		pdf.SetCreationDate(doc.IssuedAt)
	}
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, bottomMargin)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 10, tr(fmt.Sprintf("%s %d/{nb}", labels.Page, pdf.PageNo())), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	// Title and number
	title := labels.Invoice
	if doc.Preview {
		title = labels.Preview
	}
	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 10, tr(title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("%s: %s", labels.InvoiceNumber, doc.Number)), "", 1, "L", false, 0, "")
	if !doc.IssuedAt.IsZero() {
		pdf.CellFormat(0, 6, tr(fmt.Sprintf("%s: %s", labels.Date, doc.IssuedAt.Format(labels.DateLayout))), "", 1, "L", false, 0, "")
	}
	if doc.OrderID != nil {
		pdf.CellFormat(0, 6, tr(fmt.Sprintf("%s: #%d", labels.Order, *doc.OrderID)), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	// Seller and customer blocks side by side
	top := pdf.GetY()
	half := (210 - 2*pageMargin) / 2
	r.party(pdf, tr, labels.Seller, []string{
		doc.Seller.CompanyName, doc.Seller.Address, doc.Seller.Email, doc.Seller.Phone,
		prefixed(labels.IBAN, doc.Seller.IBAN),
	}, pageMargin, top, half)
	sellerBottom := pdf.GetY()
	r.party(pdf, tr, labels.Customer, []string{
		doc.Customer.Name,
		doc.Customer.Address,
		strings.TrimSpace(doc.Customer.PostalCode + " " + doc.Customer.City),
		doc.Customer.Country,
		doc.Customer.Email,
		doc.Customer.Phone,
	}, pageMargin+half, top, half)
	if sellerBottom > pdf.GetY() {
		pdf.SetY(sellerBottom)
	}
	pdf.Ln(6)

	// Item table
	r.tableHeader(pdf, tr, labels)
	_, pageHeight := pdf.GetPageSize()
	pdf.SetFont("Helvetica", "", 9)
	for _, line := range doc.Lines {
		if pdf.GetY()+rowHeight > pageHeight-bottomMargin {
			pdf.AddPage()
			r.tableHeader(pdf, tr, labels)
			pdf.SetFont("Helvetica", "", 9)
		}
		name := line.Name
		if variant := variantText(labels, line); variant != "" {
			name += " (" + variant + ")"
		}
		pdf.CellFormat(invoiceColumns[0], rowHeight, fit(pdf, tr(name), invoiceColumns[0]-2), "B", 0, "L", false, 0, "")
		pdf.CellFormat(invoiceColumns[1], rowHeight, fmt.Sprintf("%d", line.Quantity), "B", 0, "C", false, 0, "")
		pdf.CellFormat(invoiceColumns[2], rowHeight, tr(labels.FormatAmount(line.Price.String())), "B", 0, "R", false, 0, "")
		pdf.CellFormat(invoiceColumns[3], rowHeight, tr(labels.FormatAmount(line.Amount.String())), "B", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	// Totals, kept together on one page
	if pdf.GetY()+4*rowHeight+20 > pageHeight-bottomMargin {
		pdf.AddPage()
	}
	labelWidth := invoiceColumns[0] + invoiceColumns[1] + invoiceColumns[2]
	for _, row := range []struct {
		label  string
		amount models.Money
		bold   bool
	}{
		{labels.Subtotal, doc.Subtotal, false},
		{labels.Tax, doc.Tax, false},
		{labels.Shipping, doc.Shipping, false},
		{labels.Total, doc.Total, true},
	} {
		style := ""
		if row.bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 10)
		pdf.CellFormat(labelWidth, rowHeight, tr(row.label), "", 0, "R", false, 0, "")
		pdf.CellFormat(invoiceColumns[3], rowHeight, tr(labels.FormatAmount(row.amount.String())), "", 1, "R", false, 0, "")
	}

	if doc.PaymentMethod != "" {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 6, tr(fmt.Sprintf("%s: %s", labels.PaymentMethod, doc.PaymentMethod)), "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.CellFormat(0, 6, tr(labels.ThankYou), "", 1, "L", false, 0, "")

	return pdf
}

func (r *InvoiceRenderer) party(pdf *fpdf.Fpdf, tr func(string) string, heading string, lines []string, x, y, width float64) {
	pdf.SetXY(x, y)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(width, 6, tr(heading), "", 2, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		pdf.CellFormat(width, 5, fit(pdf, tr(line), width-2), "", 2, "L", false, 0, "")
	}
}

func (r *InvoiceRenderer) tableHeader(pdf *fpdf.Fpdf, tr func(string) string, labels InvoiceLabels) {
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(235, 235, 235)
	headers := []string{labels.Product, labels.Quantity, labels.UnitPrice, labels.Amount}
	aligns := []string{"L", "C", "R", "R"}
	for i, header := range headers {
		ln := 0
		if i == len(headers)-1 {
			ln = 1
		}
		pdf.CellFormat(invoiceColumns[i], rowHeight, tr(header), "1", ln, aligns[i], true, 0, "")
	}
}

func variantText(labels InvoiceLabels, line InvoiceLine) string {
	var parts []string
	if line.Scent != "" {
		parts = append(parts, labels.Scent+": "+line.Scent)
	}
	if line.Color != "" {
		parts = append(parts, labels.Color+": "+line.Color)
	}
	return strings.Join(parts, ", ")
}

func prefixed(label, value string) string {
	if value == "" {
		return ""
	}
	return label + ": " + value
}

// fit truncates text with "..." so it fits into width at the current font
func fit(pdf *fpdf.Fpdf, text string, width float64) string {
	if pdf.GetStringWidth(text) <= width {
		return text
	}
	for len(text) > 0 && pdf.GetStringWidth(text+"...") > width {
		text = text[:len(text)-1]
	}
	return text + "..."
}
