package repositories

import (
	"context"
	"errors"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Gateway is the persistence boundary of the sync. Its Ensure operations
// never return errors: an upsert failure falls back to a natural-key lookup,
// and the outcome is reported as a models.EnsureResult.
type Gateway struct {
	brands   BrandRepo
	models   ModelRepo
	versions VersionRepo
	logger   ectologger.Logger
}

// NewGateway builds a gateway over the catalog tables in db
func NewGateway(db database.DB, logger ectologger.Logger) *Gateway {
	return NewGatewayWithRepos(
		NewBrandRepository(db, logger),
		NewModelRepository(db, logger),
		NewVersionRepository(db, logger),
		logger,
	)
}

// NewGatewayWithRepos builds a gateway over explicit repositories
func NewGatewayWithRepos(brands BrandRepo, modelRepo ModelRepo, versions VersionRepo, logger ectologger.Logger) *Gateway {
	return &Gateway{
		brands:   brands,
		models:   modelRepo,
		versions: versions,
		logger:   logger,
	}
}

// EnsureBrand makes sure the brand exists and returns its identifier
func (g *Gateway) EnsureBrand(ctx context.Context, brand models.Brand) models.EnsureResult {
	ctx, span := tracing.StartSpan(ctx, "Gateway.EnsureBrand")
	defer span.End()

	logger := g.logger.WithContext(ctx).WithFields(map[string]any{
		"vehicle_type": brand.VehicleType.String(),
		"brand_code":   brand.Code,
		"brand":        brand.Name,
	})

	res, err := g.brands.Upsert(ctx, brand)
	return g.resolve(logger, brandsTable, brand.Name, res, err, func() (int64, error) {
		found, err := g.brands.FindByNaturalKey(ctx, brand.Code, brand.VehicleType)
		if err != nil {
			return 0, err
		}
		return found.ID, nil
	})
}

// EnsureModel makes sure the model exists under model.BrandID and returns its identifier
func (g *Gateway) EnsureModel(ctx context.Context, model models.Model) models.EnsureResult {
	ctx, span := tracing.StartSpan(ctx, "Gateway.EnsureModel")
	defer span.End()

	logger := g.logger.WithContext(ctx).WithFields(map[string]any{
		"vehicle_type": model.VehicleType.String(),
		"brand_id":     model.BrandID,
		"model_code":   model.Code,
		"model":        model.Name,
	})

	res, err := g.models.Upsert(ctx, model)
	return g.resolve(logger, modelsTable, model.Name, res, err, func() (int64, error) {
		found, err := g.models.FindByNaturalKey(ctx, model.Code, model.BrandID, model.VehicleType)
		if err != nil {
			return 0, err
		}
		return found.ID, nil
	})
}

// EnsureVersion makes sure the version exists under version.ModelID, writing
// only the enrichment fields it carries, and returns its identifier
func (g *Gateway) EnsureVersion(ctx context.Context, version models.Version) models.EnsureResult {
	ctx, span := tracing.StartSpan(ctx, "Gateway.EnsureVersion")
	defer span.End()

	logger := g.logger.WithContext(ctx).WithFields(map[string]any{
		"vehicle_type": version.VehicleType.String(),
		"model_id":     version.ModelID,
		"version_code": version.Code,
		"version":      version.Name,
	})

	res, err := g.versions.Upsert(ctx, version)
	return g.resolve(logger, versionsTable, version.Name, res, err, func() (int64, error) {
		found, err := g.versions.FindByNaturalKey(ctx, version.Code, version.ModelID, version.VehicleType)
		if err != nil {
			return 0, err
		}
		return found.ID, nil
	})
}

// FindBrand looks a brand up by natural key. A miss returns (nil, nil).
func (g *Gateway) FindBrand(ctx context.Context, code string, vehicleType models.VehicleType) (*models.Brand, error) {
	brand, err := g.brands.FindByNaturalKey(ctx, code, vehicleType)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	return brand, err
}

// FindModel looks a model up by natural key. A miss returns (nil, nil).
func (g *Gateway) FindModel(ctx context.Context, code string, brandID int64, vehicleType models.VehicleType) (*models.Model, error) {
	model, err := g.models.FindByNaturalKey(ctx, code, brandID, vehicleType)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	return model, err
}

func (g *Gateway) resolve(
	logger ectologger.Logger,
	table, name string,
	res UpsertResult,
	upsertErr error,
	lookup func() (int64, error),
) models.EnsureResult {
	if upsertErr == nil && res.ID != 0 {
		status := models.EnsureUpdated
		switch {
		case res.Inserted:
			status = models.EnsureCreated
		case res.Unchanged:
			status = models.EnsureUnchanged
		}
		metrics.UpsertsTotal.WithLabelValues(table, string(status)).Inc()
		return models.EnsureResult{ID: res.ID, Status: status}
	}

	if upsertErr == nil {
		upsertErr = errors.New("upsert returned no identifier")
	}
	logger.WithError(upsertErr).Errorf("Failed to upsert %s %q, looking up existing row", table, name)

	id, err := lookup()
	if err != nil || id == 0 {
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			logger.WithError(err).Errorf("Failed to look up %s %q", table, name)
		}
		metrics.UpsertsTotal.WithLabelValues(table, string(models.EnsureFailed)).Inc()
		return models.EnsureResult{Status: models.EnsureFailed, Err: upsertErr}
	}

	metrics.UpsertsTotal.WithLabelValues(table, string(models.EnsureFoundExisting)).Inc()
	return models.EnsureResult{ID: id, Status: models.EnsureFoundExisting, Err: upsertErr}
}
