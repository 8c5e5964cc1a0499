package repositories

import (
	"context"

	"github.com/Ramsey-B/fern/pkg/models"
)

// BrandRepo defines the interface for brand repository operations
type BrandRepo interface {
	Upsert(ctx context.Context, brand models.Brand) (UpsertResult, error)
	FindByNaturalKey(ctx context.Context, code string, vehicleType models.VehicleType) (*models.Brand, error)
}

// ModelRepo defines the interface for model repository operations
type ModelRepo interface {
	Upsert(ctx context.Context, model models.Model) (UpsertResult, error)
	FindByNaturalKey(ctx context.Context, code string, brandID int64, vehicleType models.VehicleType) (*models.Model, error)
}

// VersionRepo defines the interface for version repository operations
type VersionRepo interface {
	Upsert(ctx context.Context, version models.Version) (UpsertResult, error)
	FindByNaturalKey(ctx context.Context, code string, modelID int64, vehicleType models.VehicleType) (*models.Version, error)
}
