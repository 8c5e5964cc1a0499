package syncer

import (
	"context"

	"github.com/Ramsey-B/fern/pkg/models"
)

// Source reads the remote catalog. A nil version detail means the source has
// no price for that year.
type Source interface {
	FetchBrands(ctx context.Context, vehicleType models.VehicleType) ([]models.Brand, error)
	FetchModels(ctx context.Context, vehicleType models.VehicleType, brandCode string) ([]models.Model, error)
	FetchYears(ctx context.Context, vehicleType models.VehicleType, brandCode, modelCode string) ([]models.Year, error)
	FetchVersionDetail(ctx context.Context, vehicleType models.VehicleType, brandCode, modelCode, yearCode string) (*models.Version, error)
}

// Store persists catalog entities idempotently
type Store interface {
	EnsureBrand(ctx context.Context, brand models.Brand) models.EnsureResult
	EnsureModel(ctx context.Context, model models.Model) models.EnsureResult
	EnsureVersion(ctx context.Context, version models.Version) models.EnsureResult
}

// PricePublisher announces persisted prices
type PricePublisher interface {
	PublishPrice(ctx context.Context, snapshot models.PriceSnapshot) error
}
