package entity

import "github.com/shopspring/decimal"

// DocumentLine representa una línea de detalle ya validada de un comprobante.
type DocumentLine struct {
	ID          string
	DocumentID  string
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Tax         decimal.Decimal
	Total       decimal.Decimal // Valor de venta de la línea (sin IGV)
}
