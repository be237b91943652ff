package entity

import "time"

// Issuer emisor electrónico (facturador) registrado ante SUNAT.
type Issuer struct {
	ID           string
	RUC          string // 11 dígitos
	LegalName    string // Razón social
	TradeName    string // Nombre comercial
	Address      string
	Ubigeo       string // Código de domicilio fiscal
	CertPath     string // Ruta al .pfx/.p12 o .pem
	CertPassword string
	SolUser      string // Usuario secundario SOL
	SolPassword  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SolUsername usuario para el UsernameToken de WS-Security: RUC + usuario SOL.
func (i *Issuer) SolUsername() string {
	return i.RUC + i.SolUser
}
