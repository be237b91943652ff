package dto

// CreateIssuerRequest body para POST /api/issuers.
type CreateIssuerRequest struct {
	RUC          string `json:"ruc"`
	LegalName    string `json:"legal_name"`
	TradeName    string `json:"trade_name,omitempty"`
	Address      string `json:"address,omitempty"`
	Ubigeo       string `json:"ubigeo,omitempty"`
	CertPath     string `json:"cert_path"`
	CertPassword string `json:"cert_password,omitempty"`
	SolUser      string `json:"sol_user"`
	SolPassword  string `json:"sol_password"`
}

// IssuerResponse emisor en respuestas (sin credenciales).
type IssuerResponse struct {
	ID        string `json:"id"`
	RUC       string `json:"ruc"`
	LegalName string `json:"legal_name"`
	TradeName string `json:"trade_name,omitempty"`
	Address   string `json:"address,omitempty"`
	Ubigeo    string `json:"ubigeo,omitempty"`
	CertPath  string `json:"cert_path"`
	SolUser   string `json:"sol_user"`
}
