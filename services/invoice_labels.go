package services

import (
	"strings"
)

// DefaultLanguage is used for orders and invoices that do not name one and as
// the fallback for unknown languages when rendering
const DefaultLanguage = "hr"

// SupportedLanguages lists the invoice languages
var SupportedLanguages = []string{"hr", "de", "en", "it", "sl"}

// InvoiceLabels holds the translated strings printed on an invoice
type InvoiceLabels struct {
	Invoice       string
	Preview       string
	InvoiceNumber string
	Date          string
	Order         string
	Customer      string
	Seller        string
	Product       string
	Scent         string
	Color         string
	Quantity      string
	UnitPrice     string
	Amount        string
	Subtotal      string
	Tax           string
	Shipping      string
	Total         string
	PaymentMethod string
	IBAN          string
	Page          string
	ThankYou      string

	DateLayout   string
	DecimalComma bool
}

var invoiceLabels = map[string]InvoiceLabels{
	"hr": {
		Invoice:       "Račun",
		Preview:       "Predračun",
		InvoiceNumber: "Broj računa",
		Date:          "Datum",
		Order:         "Narudžba",
		Customer:      "Kupac",
		Seller:        "Prodavatelj",
		Product:       "Proizvod",
		Scent:         "Miris",
		Color:         "Boja",
		Quantity:      "Količina",
		UnitPrice:     "Cijena",
		Amount:        "Iznos",
		Subtotal:      "Međuzbroj",
		Tax:           "PDV",
		Shipping:      "Dostava",
		Total:         "Ukupno",
		PaymentMethod: "Način plaćanja",
		IBAN:          "IBAN",
		Page:          "Stranica",
		ThankYou:      "Hvala na kupnji!",
		DateLayout:    "02.01.2006.",
		DecimalComma:  true,
	},
	"de": {
		Invoice:       "Rechnung",
		Preview:       "Vorschau",
		InvoiceNumber: "Rechnungsnummer",
		Date:          "Datum",
		Order:         "Bestellung",
		Customer:      "Kunde",
		Seller:        "Verkäufer",
		Product:       "Produkt",
		Scent:         "Duft",
		Color:         "Farbe",
		Quantity:      "Menge",
		UnitPrice:     "Preis",
		Amount:        "Betrag",
		Subtotal:      "Zwischensumme",
		Tax:           "MwSt.",
		Shipping:      "Versand",
		Total:         "Gesamt",
		PaymentMethod: "Zahlungsart",
		IBAN:          "IBAN",
		Page:          "Seite",
		ThankYou:      "Vielen Dank für Ihren Einkauf!",
		DateLayout:    "02.01.2006",
		DecimalComma:  true,
	},
	"en": {
		Invoice:       "Invoice",
		Preview:       "Preview",
		InvoiceNumber: "Invoice number",
		Date:          "Date",
		Order:         "Order",
		Customer:      "Customer",
		Seller:        "Seller",
		Product:       "Product",
		Scent:         "Scent",
		Color:         "Color",
		Quantity:      "Qty",
		UnitPrice:     "Price",
		Amount:        "Amount",
		Subtotal:      "Subtotal",
		Tax:           "Tax",
		Shipping:      "Shipping",
		Total:         "Total",
		PaymentMethod: "Payment method",
		IBAN:          "IBAN",
		Page:          "Page",
		ThankYou:      "Thank you for your purchase!",
		DateLayout:    "02/01/2006",
	},
	"it": {
		Invoice:       "Fattura",
		Preview:       "Anteprima",
		InvoiceNumber: "Numero fattura",
		Date:          "Data",
		Order:         "Ordine",
		Customer:      "Cliente",
		Seller:        "Venditore",
		Product:       "Prodotto",
		Scent:         "Profumo",
		Color:         "Colore",
		Quantity:      "Quantità",
		UnitPrice:     "Prezzo",
		Amount:        "Importo",
		Subtotal:      "Subtotale",
		Tax:           "IVA",
		Shipping:      "Spedizione",
		Total:         "Totale",
		PaymentMethod: "Metodo di pagamento",
		IBAN:          "IBAN",
		Page:          "Pagina",
		ThankYou:      "Grazie per il tuo acquisto!",
		DateLayout:    "02/01/2006",
		DecimalComma:  true,
	},
	"sl": {
		Invoice:       "Račun",
		Preview:       "Predračun",
		InvoiceNumber: "Številka računa",
		Date:          "Datum",
		Order:         "Naročilo",
		Customer:      "Kupec",
		Seller:        "Prodajalec",
		Product:       "Izdelek",
		Scent:         "Vonj",
		Color:         "Barva",
		Quantity:      "Količina",
		UnitPrice:     "Cena",
		Amount:        "Znesek",
		Subtotal:      "Vmesna vsota",
		Tax:           "DDV",
		Shipping:      "Dostava",
		Total:         "Skupaj",
		PaymentMethod: "Način plačila",
		IBAN:          "IBAN",
		Page:          "Stran",
		ThankYou:      "Hvala za nakup!",
		DateLayout:    "2. 1. 2006",
		DecimalComma:  true,
	},
}

// LabelsFor returns the labels for language, falling back to DefaultLanguage
func LabelsFor(language string) InvoiceLabels {
	if labels, ok := invoiceLabels[strings.ToLower(language)]; ok {
		return labels
	}
	return invoiceLabels[DefaultLanguage]
}

// NormalizeLanguage lowercases language and checks it is supported. An empty
// language selects DefaultLanguage.
func NormalizeLanguage(language string) (string, error) {
	language = strings.ToLower(strings.TrimSpace(language))
	if language == "" {
		return DefaultLanguage, nil
	}
	if _, ok := invoiceLabels[language]; !ok {
		return "", ErrInvalidLanguage
	}
	return language, nil
}

// FormatAmount renders a two-decimal amount with the euro sign, using a
// decimal comma where the language expects one
func (l InvoiceLabels) FormatAmount(amount string) string {
	if l.DecimalComma {
		return strings.Replace(amount, ".", ",", 1) + " €"
	}
	return "€" + amount
}
