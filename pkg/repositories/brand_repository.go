package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const brandsTable = "brands"

var brandColumns = []string{"id", "code", "name", "vehicle_type", "created_at", "updated_at"}

// BrandRepository handles database operations for brands
type BrandRepository struct {
	*Repository
}

// NewBrandRepository creates a new brand repository
func NewBrandRepository(db database.DB, logger ectologger.Logger) *BrandRepository {
	return &BrandRepository{
		Repository: NewRepository(db, logger),
	}
}

// Upsert creates the brand or overwrites the row sharing its (code, vehicle_type)
func (r *BrandRepository) Upsert(ctx context.Context, brand models.Brand) (UpsertResult, error) {
	ctx, span := tracing.StartSpan(ctx, "BrandRepository.Upsert")
	defer span.End()

	return r.upsert(ctx, upsertStatement{
		table:    brandsTable,
		conflict: []string{"code", "vehicle_type"},
		columns:  []string{"code", "name", "vehicle_type"},
		values:   []any{brand.Code, brand.Name, brand.VehicleType.String()},
		update:   []string{"name"},
	})
}

// FindByNaturalKey returns the brand with the given code in a vehicle type, or models.ErrNotFound
func (r *BrandRepository) FindByNaturalKey(ctx context.Context, code string, vehicleType models.VehicleType) (*models.Brand, error) {
	ctx, span := tracing.StartSpan(ctx, "BrandRepository.FindByNaturalKey")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(brandColumns...).
		From(brandsTable).
		Where(sb.Equal("code", code), sb.Equal("vehicle_type", vehicleType.String()))

	query, args := sb.Build()

	var brand models.Brand
	if err := r.DB().GetContext(ctx, &brand, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &brand, nil
}
