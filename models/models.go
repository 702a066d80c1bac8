package models

// All returns every model in migration order
func All() []interface{} {
	return []interface{}{
		&User{},
		&Product{},
		&Scent{},
		&Color{},
		&ProductScent{},
		&ProductColor{},
		&CartItem{},
		&Order{},
		&OrderItem{},
		&Invoice{},
		&InvoiceItem{},
		&InvoiceCounter{},
		&Setting{},
	}
}
