package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/facturador-sunat/internal/application/dto"
	"github.com/jhoicas/facturador-sunat/internal/domain"
	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
	"github.com/jhoicas/facturador-sunat/internal/domain/repository"
	pkgsunat "github.com/jhoicas/facturador-sunat/pkg/sunat"
)

// IssuerUseCase alta y consulta de emisores.
type IssuerUseCase struct {
	repo repository.IssuerRepository
}

// NewIssuerUseCase construye el caso de uso.
func NewIssuerUseCase(repo repository.IssuerRepository) *IssuerUseCase {
	return &IssuerUseCase{repo: repo}
}

// Create registra un emisor. El RUC se valida con el dígito verificador.
func (uc *IssuerUseCase) Create(ctx context.Context, in dto.CreateIssuerRequest) (*dto.IssuerResponse, error) {
	ruc := strings.TrimSpace(in.RUC)
	if err := pkgsunat.ValidateRUC(ruc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if strings.TrimSpace(in.LegalName) == "" || in.CertPath == "" || in.SolUser == "" || in.SolPassword == "" {
		return nil, domain.ErrInvalidInput
	}
	existing, err := uc.repo.GetByRUC(ctx, ruc)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicate
	}

	now := time.Now()
	issuer := &entity.Issuer{
		ID:           uuid.New().String(),
		RUC:          ruc,
		LegalName:    strings.TrimSpace(in.LegalName),
		TradeName:    in.TradeName,
		Address:      in.Address,
		Ubigeo:       in.Ubigeo,
		CertPath:     in.CertPath,
		CertPassword: in.CertPassword,
		SolUser:      strings.ToUpper(in.SolUser),
		SolPassword:  in.SolPassword,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.repo.Create(ctx, issuer); err != nil {
		return nil, err
	}
	return toIssuerResponse(issuer), nil
}

// GetByID obtiene un emisor.
func (uc *IssuerUseCase) GetByID(ctx context.Context, id string) (*dto.IssuerResponse, error) {
	issuer, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if issuer == nil {
		return nil, domain.ErrNotFound
	}
	return toIssuerResponse(issuer), nil
}

func toIssuerResponse(i *entity.Issuer) *dto.IssuerResponse {
	return &dto.IssuerResponse{
		ID:        i.ID,
		RUC:       i.RUC,
		LegalName: i.LegalName,
		TradeName: i.TradeName,
		Address:   i.Address,
		Ubigeo:    i.Ubigeo,
		CertPath:  i.CertPath,
		SolUser:   i.SolUser,
	}
}
