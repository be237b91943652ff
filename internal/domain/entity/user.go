package entity

import "time"

// Estados de User.
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

// User usuario del API. IssuerID vacío solo para administradores globales.
type User struct {
	ID           string
	IssuerID     string
	Email        string
	PasswordHash string // bcrypt hash, nunca plano en dominio después de persistir
	Name         string
	Role         string // admin, emisor, consulta
	Status       string // active, inactive
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
