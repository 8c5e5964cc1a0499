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

const modelsTable = "models"

var modelColumns = []string{"id", "code", "name", "brand_id", "vehicle_type", "created_at", "updated_at"}

// ModelRepository handles database operations for models
type ModelRepository struct {
	*Repository
}

// NewModelRepository creates a new model repository
func NewModelRepository(db database.DB, logger ectologger.Logger) *ModelRepository {
	return &ModelRepository{
		Repository: NewRepository(db, logger),
	}
}

// Upsert creates the model or overwrites the row sharing its (code, brand_id, vehicle_type)
func (r *ModelRepository) Upsert(ctx context.Context, model models.Model) (UpsertResult, error) {
	ctx, span := tracing.StartSpan(ctx, "ModelRepository.Upsert")
	defer span.End()

	return r.upsert(ctx, upsertStatement{
		table:    modelsTable,
		conflict: []string{"code", "brand_id", "vehicle_type"},
		columns:  []string{"code", "name", "brand_id", "vehicle_type"},
		values:   []any{model.Code, model.Name, model.BrandID, model.VehicleType.String()},
		update:   []string{"name"},
	})
}

// FindByNaturalKey returns the model with the given code under a brand, or models.ErrNotFound
func (r *ModelRepository) FindByNaturalKey(ctx context.Context, code string, brandID int64, vehicleType models.VehicleType) (*models.Model, error) {
	ctx, span := tracing.StartSpan(ctx, "ModelRepository.FindByNaturalKey")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(modelColumns...).
		From(modelsTable).
		Where(
			sb.Equal("code", code),
			sb.Equal("brand_id", brandID),
			sb.Equal("vehicle_type", vehicleType.String()),
		)

	query, args := sb.Build()

	var model models.Model
	if err := r.DB().GetContext(ctx, &model, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &model, nil
}
