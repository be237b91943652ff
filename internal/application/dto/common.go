package dto

// PageRequest límite para listados.
type PageRequest struct {
	Limit int `query:"limit" validate:"min=1,max=500"`
}

// DefaultPage aplica valores por defecto si Limit es cero.
func (p *PageRequest) DefaultPage() {
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Limit > 500 {
		p.Limit = 500
	}
}

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
