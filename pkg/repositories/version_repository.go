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

const versionsTable = "versions"

var versionColumns = []string{
	"id", "code", "name", "model_id", "vehicle_type",
	"model_year", "fuel_type", "catalog_code", "reference_month", "price", "source_payload",
	"created_at", "updated_at",
}

// VersionRepository handles database operations for versions
type VersionRepository struct {
	*Repository
}

// NewVersionRepository creates a new version repository
func NewVersionRepository(db database.DB, logger ectologger.Logger) *VersionRepository {
	return &VersionRepository{
		Repository: NewRepository(db, logger),
	}
}

// Upsert creates the version or overwrites the row sharing its (code, model_id, vehicle_type).
// Nil enrichment fields are left out of both the insert and the update, so a
// stored value is never replaced with NULL.
func (r *VersionRepository) Upsert(ctx context.Context, version models.Version) (UpsertResult, error) {
	ctx, span := tracing.StartSpan(ctx, "VersionRepository.Upsert")
	defer span.End()

	stmt := upsertStatement{
		table:    versionsTable,
		conflict: []string{"code", "model_id", "vehicle_type"},
		columns:  []string{"code", "name", "model_id", "vehicle_type"},
		values:   []any{version.Code, version.Name, version.ModelID, version.VehicleType.String()},
		update:   []string{"name"},
	}

	add := func(col string, value any) {
		stmt.columns = append(stmt.columns, col)
		stmt.values = append(stmt.values, value)
		stmt.update = append(stmt.update, col)
	}
	if version.ModelYear != nil {
		add("model_year", *version.ModelYear)
	}
	if version.FuelType != nil {
		add("fuel_type", *version.FuelType)
	}
	if version.CatalogCode != nil {
		add("catalog_code", *version.CatalogCode)
	}
	if version.ReferenceMonth != nil {
		add("reference_month", *version.ReferenceMonth)
	}
	if version.Price != nil {
		add("price", *version.Price)
	}
	if version.SourcePayload != nil {
		add("source_payload", *version.SourcePayload)
	}

	return r.upsert(ctx, stmt)
}

// FindByNaturalKey returns the version with the given code under a model, or models.ErrNotFound
func (r *VersionRepository) FindByNaturalKey(ctx context.Context, code string, modelID int64, vehicleType models.VehicleType) (*models.Version, error) {
	ctx, span := tracing.StartSpan(ctx, "VersionRepository.FindByNaturalKey")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(versionColumns...).
		From(versionsTable).
		Where(
			sb.Equal("code", code),
			sb.Equal("model_id", modelID),
			sb.Equal("vehicle_type", vehicleType.String()),
		)

	query, args := sb.Build()

	var version models.Version
	if err := r.DB().GetContext(ctx, &version, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &version, nil
}
