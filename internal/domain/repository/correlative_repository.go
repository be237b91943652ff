package repository

import "context"

// CorrelativeRepository lee los correlativos ocupados de una serie por emisor.
type CorrelativeRepository interface {
	// LockedNumbers toma un bloqueo exclusivo sobre los correlativos de (serie, emisor)
	// que se mantiene hasta el commit de la transacción que lo contiene.
	LockedNumbers(ctx context.Context, series, issuerID string) ([]string, error)
	// Numbers lectura sin bloqueo (solo para previsualizar el siguiente número).
	Numbers(ctx context.Context, series, issuerID string) ([]string, error)
}
