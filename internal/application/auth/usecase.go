package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/facturador-sunat/internal/application/dto"
	"github.com/jhoicas/facturador-sunat/internal/domain"
	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
	"github.com/jhoicas/facturador-sunat/internal/domain/repository"
	"github.com/jhoicas/facturador-sunat/pkg/jwt"
)

const minPasswordLen = 8

// JWTConfig configuración para generación de tokens.
type JWTConfig struct {
	Secret     string
	ExpMinutes int
	Issuer     string
}

// AuthUseCase casos de uso de autenticación: registro y login.
type AuthUseCase struct {
	userRepo   repository.UserRepository
	issuerRepo repository.IssuerRepository
	jwtCfg     JWTConfig
	now        func() time.Time
}

// NewAuthUseCase construye el caso de uso de auth.
func NewAuthUseCase(userRepo repository.UserRepository, issuerRepo repository.IssuerRepository, jwtCfg JWTConfig) *AuthUseCase {
	return &AuthUseCase{userRepo: userRepo, issuerRepo: issuerRepo, jwtCfg: jwtCfg, now: time.Now}
}

// RegisterUser crea un usuario con password bcrypt. Los roles emisor y consulta
// quedan atados a un emisor existente; admin no lleva emisor.
func (uc *AuthUseCase) RegisterUser(ctx context.Context, in dto.RegisterRequest) (*dto.UserResponse, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" || in.Password == "" {
		return nil, fmt.Errorf("email y password son requeridos: %w", domain.ErrInvalidInput)
	}
	if len(in.Password) < minPasswordLen {
		return nil, fmt.Errorf("password debe tener al menos %d caracteres: %w", minPasswordLen, domain.ErrInvalidInput)
	}

	role := in.Role
	if role == "" {
		role = jwt.RoleEmisor
	}
	issuerID := in.IssuerID
	switch role {
	case jwt.RoleAdmin:
		issuerID = ""
	case jwt.RoleEmisor, jwt.RoleConsulta:
		if issuerID == "" {
			return nil, fmt.Errorf("issuer_id es requerido para el rol %s: %w", role, domain.ErrInvalidInput)
		}
		issuer, err := uc.issuerRepo.GetByID(ctx, issuerID)
		if err != nil {
			return nil, err
		}
		if issuer == nil {
			return nil, fmt.Errorf("emisor %s: %w", issuerID, domain.ErrInvalidInput)
		}
	default:
		return nil, fmt.Errorf("rol desconocido %q: %w", role, domain.ErrInvalidInput)
	}

	existing, err := uc.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("email %s: %w", email, domain.ErrDuplicate)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	name := in.Name
	if name == "" {
		name = email
	}
	now := uc.now()
	user := &entity.User{
		ID:           uuid.New().String(),
		IssuerID:     issuerID,
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
		Role:         role,
		Status:       entity.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return toUserResponse(user), nil
}

// Login verifica email/password, genera JWT y retorna token + usuario.
// Email inexistente y password incorrecto responden igual.
func (uc *AuthUseCase) Login(ctx context.Context, in dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := uc.userRepo.FindByEmail(ctx, strings.TrimSpace(in.Email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, domain.ErrUnauthorized
	}
	if user.Status != entity.UserStatusActive {
		return nil, domain.ErrForbidden
	}
	token, err := jwt.Generate(uc.jwtCfg.Secret, user.ID, user.IssuerID, user.Role, uc.jwtCfg.Issuer, uc.jwtCfg.ExpMinutes)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{
		Token: token,
		User:  *toUserResponse(user),
	}, nil
}

func toUserResponse(u *entity.User) *dto.UserResponse {
	return &dto.UserResponse{
		ID:        u.ID,
		IssuerID:  u.IssuerID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		Status:    u.Status,
		CreatedAt: u.CreatedAt,
	}
}
