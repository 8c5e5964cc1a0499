package syncer

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/fern/pkg/brandfilter"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Options selects the slice of the catalog a run walks
type Options struct {
	// VehicleTypes are walked in order; empty means every type
	VehicleTypes []models.VehicleType
	// Limit caps the brands processed per vehicle type after filtering; zero means no cap
	Limit int
	// Filter is the brand allow-list; nil accepts every brand
	Filter *brandfilter.Filter
}

// Syncer drives the catalog cascade. It holds no state between runs.
type Syncer struct {
	source    Source
	store     Store
	publisher PricePublisher
	logger    ectologger.Logger
	now       func() time.Time
	newRunID  func() string
}

// Option configures a Syncer
type Option func(*Syncer)

// WithPublisher announces each persisted price through p
func WithPublisher(p PricePublisher) Option {
	return func(s *Syncer) {
		s.publisher = p
	}
}

// WithClock replaces the time source
func WithClock(now func() time.Time) Option {
	return func(s *Syncer) {
		s.now = now
	}
}

// WithRunID fixes the identifier of every run
func WithRunID(id string) Option {
	return func(s *Syncer) {
		s.newRunID = func() string { return id }
	}
}

// New creates a Syncer reading from source and writing to store
func New(source Source, store Store, logger ectologger.Logger, opts ...Option) *Syncer {
	s := &Syncer{
		source:   source,
		store:    store,
		logger:   logger,
		now:      time.Now,
		newRunID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// run carries the state of one Run call
type run struct {
	*Syncer
	report *Report
	logger ectologger.Logger
}

// Run walks the requested slice of the catalog. Entity failures are recorded
// in the report; the returned error is non-nil only when ctx ends the run.
func (s *Syncer) Run(ctx context.Context, opts Options) (*Report, error) {
	ctx, span := tracing.StartSpan(ctx, "Syncer.Run")
	defer span.End()

	types := opts.VehicleTypes
	if len(types) == 0 {
		types = models.AllVehicleTypes
	}

	report := &Report{RunID: s.newRunID(), StartedAt: s.now()}
	r := &run{
		Syncer: s,
		report: report,
		logger: s.logger.WithContext(ctx).WithField("run_id", report.RunID),
	}

	r.logger.Infof("Starting sync of %d vehicle types", len(types))

	var err error
	for _, vt := range types {
		tr := &TypeReport{VehicleType: vt}
		report.Types = append(report.Types, tr)

		if err = r.syncVehicleType(ctx, vt, opts, tr); err != nil {
			break
		}
	}

	report.FinishedAt = s.now()
	if err != nil {
		report.Interrupted = true
		r.logger.WithError(err).Warnf("Sync interrupted after %s", report.Duration())
		return report, err
	}

	totals := report.Totals()
	r.logger.WithFields(map[string]any{
		"brands":   totals.BrandsSynced,
		"models":   totals.ModelsSynced,
		"versions": totals.VersionsSynced(),
		"warnings": len(report.Warnings),
	}).Infof("Sync finished in %s", report.Duration())
	return report, nil
}

func (r *run) syncVehicleType(ctx context.Context, vt models.VehicleType, opts Options, tr *TypeReport) error {
	ctx, span := tracing.StartCatalogSpan(ctx, "Syncer.syncVehicleType", tracing.CatalogPath{VehicleType: vt.String()})
	defer span.End()

	logger := r.logger.WithField("vehicle_type", vt.String())

	brands, err := r.source.FetchBrands(ctx, vt)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.WithError(err).Warn("Failed to fetch brands, skipping vehicle type")
		r.report.warn(Warning{VehicleType: vt, Level: LevelVehicleType, Code: vt.String(), Message: "fetch brands: " + err.Error()})
		return nil
	}
	tr.BrandsFetched = len(brands)

	selected := opts.Filter.Apply(brands)
	if opts.Limit > 0 && len(selected) > opts.Limit {
		selected = selected[:opts.Limit]
	}
	tr.BrandsExcluded = len(brands) - len(selected)

	if len(selected) == 0 {
		logger.Warnf("No brands to sync out of %d fetched", len(brands))
		return nil
	}
	logger.Infof("Syncing %d of %d brands", len(selected), len(brands))

	for i, brand := range selected {
		if err := ctx.Err(); err != nil {
			return err
		}
		brand.VehicleType = vt
		logger.WithFields(map[string]any{
			"brand_code": brand.Code,
			"brand":      brand.Name,
		}).Infof("Syncing brand %d/%d", i+1, len(selected))

		if err := r.syncBrand(ctx, brand, tr); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) syncBrand(ctx context.Context, brand models.Brand, tr *TypeReport) error {
	ctx, span := tracing.StartCatalogSpan(ctx, "Syncer.syncBrand", tracing.CatalogPath{
		VehicleType: brand.VehicleType.String(),
		BrandCode:   brand.Code,
	})
	defer span.End()

	vt := brand.VehicleType
	logger := r.logger.WithFields(map[string]any{
		"vehicle_type": vt.String(),
		"brand_code":   brand.Code,
		"brand":        brand.Name,
	})

	res := r.store.EnsureBrand(ctx, brand)
	if !res.OK() {
		if err := ctx.Err(); err != nil {
			return err
		}
		tr.BrandsSkipped++
		metrics.EntitiesTotal.WithLabelValues(vt.String(), "brand", "skipped").Inc()
		logger.WithError(res.Err).Warn("Could not resolve brand, skipping")
		r.report.warn(Warning{VehicleType: vt, Level: LevelBrand, Code: brand.Code, Name: brand.Name, Message: "could not persist brand"})
		return nil
	}
	brand.ID = res.ID
	tr.BrandsSynced++
	metrics.EntitiesTotal.WithLabelValues(vt.String(), "brand", string(res.Status)).Inc()

	brandModels, err := r.source.FetchModels(ctx, vt, brand.Code)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.WithError(err).Warn("Failed to fetch models, skipping brand")
		r.report.warn(Warning{VehicleType: vt, Level: LevelBrand, Code: brand.Code, Name: brand.Name, Message: "fetch models: " + err.Error()})
		return nil
	}
	if len(brandModels) == 0 {
		logger.Warn("No models found for brand")
		return nil
	}

	for _, model := range brandModels {
		if err := ctx.Err(); err != nil {
			return err
		}
		model.BrandID = brand.ID
		model.VehicleType = vt
		if err := r.syncModel(ctx, brand, model, tr); err != nil {
			return err
		}
	}

	logger.Infof("Finished brand with %d models", len(brandModels))
	return nil
}

func (r *run) syncModel(ctx context.Context, brand models.Brand, model models.Model, tr *TypeReport) error {
	ctx, span := tracing.StartCatalogSpan(ctx, "Syncer.syncModel", tracing.CatalogPath{
		VehicleType: model.VehicleType.String(),
		BrandCode:   brand.Code,
		ModelCode:   model.Code,
	})
	defer span.End()

	vt := model.VehicleType
	logger := r.logger.WithFields(map[string]any{
		"vehicle_type": vt.String(),
		"brand_code":   brand.Code,
		"model_code":   model.Code,
		"model":        model.Name,
	})

	res := r.store.EnsureModel(ctx, model)
	if !res.OK() {
		if err := ctx.Err(); err != nil {
			return err
		}
		tr.ModelsSkipped++
		metrics.EntitiesTotal.WithLabelValues(vt.String(), "model", "skipped").Inc()
		logger.WithError(res.Err).Warn("Could not resolve model, skipping")
		r.report.warn(Warning{VehicleType: vt, Level: LevelModel, Code: model.Code, Name: model.Name, Message: "could not persist model"})
		return nil
	}
	model.ID = res.ID
	tr.ModelsSynced++
	metrics.EntitiesTotal.WithLabelValues(vt.String(), "model", string(res.Status)).Inc()

	years, err := r.source.FetchYears(ctx, vt, brand.Code, model.Code)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.WithError(err).Warn("Failed to fetch years, skipping model")
		r.report.warn(Warning{VehicleType: vt, Level: LevelModel, Code: model.Code, Name: model.Name, Message: "fetch years: " + err.Error()})
		return nil
	}
	if len(years) == 0 {
		logger.Debug("No years found for model")
		return nil
	}

	for _, year := range years {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.syncVersion(ctx, brand, model, year, tr); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) syncVersion(ctx context.Context, brand models.Brand, model models.Model, year models.Year, tr *TypeReport) error {
	vt := model.VehicleType
	logger := r.logger.WithFields(map[string]any{
		"vehicle_type": vt.String(),
		"brand_code":   brand.Code,
		"model_code":   model.Code,
		"year_code":    year.Code,
	})

	detail, err := r.source.FetchVersionDetail(ctx, vt, brand.Code, model.Code, year.Code)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		tr.VersionsFailed++
		logger.WithError(err).Warn("Failed to fetch version detail")
		r.report.warn(Warning{VehicleType: vt, Level: LevelVersion, Code: year.Code, Name: year.Name, Message: "fetch detail: " + err.Error()})
		return nil
	}
	if detail == nil {
		tr.VersionsAbsent++
		metrics.EntitiesTotal.WithLabelValues(vt.String(), "version", "absent").Inc()
		logger.Debug("No price detail for year")
		return nil
	}

	version := *detail
	version.ModelID = model.ID
	version.VehicleType = vt
	if version.Code == "" {
		version.Code = model.Code + "_" + year.Code
	}
	if version.Name == "" {
		version.Name = year.Name
	}

	res := r.store.EnsureVersion(ctx, version)
	if !res.OK() {
		if err := ctx.Err(); err != nil {
			return err
		}
		tr.VersionsFailed++
		metrics.EntitiesTotal.WithLabelValues(vt.String(), "version", string(models.EnsureFailed)).Inc()
		logger.WithError(res.Err).Warn("Could not persist version")
		r.report.warn(Warning{VehicleType: vt, Level: LevelVersion, Code: version.Code, Name: version.Name, Message: "could not persist version"})
		return nil
	}
	metrics.EntitiesTotal.WithLabelValues(vt.String(), "version", string(res.Status)).Inc()

	switch res.Status {
	case models.EnsureCreated:
		tr.VersionsCreated++
	case models.EnsureUpdated:
		tr.VersionsUpdated++
	case models.EnsureUnchanged:
		tr.VersionsUnchanged++
	default:
		tr.VersionsFoundExisting++
	}

	if r.publisher != nil && version.Price != nil {
		snapshot := models.PriceSnapshot{
			RunID:          r.report.RunID,
			VehicleType:    vt,
			BrandCode:      brand.Code,
			BrandName:      brand.Name,
			ModelCode:      model.Code,
			ModelName:      model.Name,
			VersionID:      res.ID,
			VersionCode:    version.Code,
			VersionName:    version.Name,
			ModelYear:      version.ModelYear,
			FuelType:       version.FuelType,
			CatalogCode:    version.CatalogCode,
			ReferenceMonth: version.ReferenceMonth,
			Price:          *version.Price,
			ObservedAt:     r.now().UTC(),
		}
		if err := r.publisher.PublishPrice(ctx, snapshot); err != nil {
			logger.WithError(err).Warn("Failed to publish price snapshot")
		} else {
			tr.PricesPublished++
		}
	}
	return nil
}
