// Package wiring arma las dependencias compartidas por cmd/api y cmd/poller.
package wiring

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/facturador-sunat/internal/application/auth"
	"github.com/jhoicas/facturador-sunat/internal/application/billing"
	"github.com/jhoicas/facturador-sunat/internal/infrastructure/boltstore"
	"github.com/jhoicas/facturador-sunat/internal/infrastructure/notify"
	"github.com/jhoicas/facturador-sunat/internal/infrastructure/postgres"
	infrasunat "github.com/jhoicas/facturador-sunat/internal/infrastructure/sunat"
	"github.com/jhoicas/facturador-sunat/internal/infrastructure/sunat/signer"
	"github.com/jhoicas/facturador-sunat/pkg/config"
	"github.com/jhoicas/facturador-sunat/pkg/logger"
)

// Components casos de uso listos para los adaptadores de entrada.
type Components struct {
	Pool      *pgxpool.Pool
	Receipts  *boltstore.ReceiptStore
	Documents *billing.CreateDocumentUseCase
	Issuers   *billing.IssuerUseCase
	Lifecycle *billing.LifecycleManager
	Auth      *auth.AuthUseCase
}

// Close libera el pool y el archivo de CDR.
func (c *Components) Close() {
	if c.Receipts != nil {
		_ = c.Receipts.Close()
	}
	if c.Pool != nil {
		c.Pool.Close()
	}
}

// Build conecta PostgreSQL, abre el archivo de CDR y construye el ciclo de vida.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Components, error) {
	pool, err := postgres.NewPool(ctx, cfg.DB, cfg.App.Name)
	if err != nil {
		return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
	}

	receipts, err := boltstore.Open(cfg.SUNAT.ReceiptDB)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("abrir archivo de CDR %s: %w", cfg.SUNAT.ReceiptDB, err)
	}

	documentRepo := postgres.NewDocumentRepository(pool)
	issuerRepo := postgres.NewIssuerRepository(pool)
	correlativeRepo := postgres.NewCorrelativeRepository(pool)
	txRunner := postgres.NewTxRunner(pool, cfg.DB.LockTimeout)

	sunatLog := log.Component("sunat")
	client := infrasunat.NewSOAPClient(infrasunat.ClientConfig{
		Endpoint:    cfg.SUNAT.Endpoint,
		Timeout:     cfg.SUNAT.Timeout,
		InsecureTLS: cfg.SUNAT.InsecureTLS,
	}, sunatLog)
	extractor := infrasunat.NewReceiptExtractor(cfg.SUNAT.CDRDir, receipts, sunatLog)

	lifecycle := billing.NewLifecycleManager(billing.LifecycleDeps{
		Documents: documentRepo,
		Issuers:   issuerRepo,
		TxRunner:  txRunner,
		Signer:    signer.NewDigitalSignatureService(cfg.SUNAT.SignedDir),
		Packager:  infrasunat.NewZipBuilder(),
		Bills:     infrasunat.NewBillService(client, extractor, sunatLog),
		Notifier:  notify.NewLogNotifier(log.Component("notify")),
		Receipts:  receipts,
		Paths: billing.Paths{
			XMLDir:    filepath.Clean(cfg.SUNAT.XMLDir),
			SignedDir: filepath.Clean(cfg.SUNAT.SignedDir),
		},
		Log: log.Component("lifecycle"),
	})

	return &Components{
		Pool:      pool,
		Receipts:  receipts,
		Documents: billing.NewCreateDocumentUseCase(txRunner, documentRepo, correlativeRepo, log.Component("documents")),
		Issuers:   billing.NewIssuerUseCase(issuerRepo),
		Lifecycle: lifecycle,
		Auth: auth.NewAuthUseCase(postgres.NewUserRepository(pool), issuerRepo, auth.JWTConfig{
			Secret:     cfg.JWT.Secret,
			ExpMinutes: cfg.JWT.Expiration,
			Issuer:     cfg.JWT.Issuer,
		}),
	}, nil
}
