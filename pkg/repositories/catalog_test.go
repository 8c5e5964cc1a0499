package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

type fakeBrandRepo struct {
	upsertRes UpsertResult
	upsertErr error
	found     *models.Brand
	findErr   error
	finds     int
}

func (f *fakeBrandRepo) Upsert(_ context.Context, _ models.Brand) (UpsertResult, error) {
	return f.upsertRes, f.upsertErr
}

func (f *fakeBrandRepo) FindByNaturalKey(_ context.Context, _ string, _ models.VehicleType) (*models.Brand, error) {
	f.finds++
	if f.findErr != nil {
		return nil, f.findErr
	}
	if f.found == nil {
		return nil, models.ErrNotFound
	}
	return f.found, nil
}

type fakeModelRepo struct {
	upsertErr error
	found     *models.Model
}

func (f *fakeModelRepo) Upsert(_ context.Context, _ models.Model) (UpsertResult, error) {
	return UpsertResult{}, f.upsertErr
}

func (f *fakeModelRepo) FindByNaturalKey(_ context.Context, _ string, _ int64, _ models.VehicleType) (*models.Model, error) {
	if f.found == nil {
		return nil, models.ErrNotFound
	}
	return f.found, nil
}

type fakeVersionRepo struct {
	upsertRes UpsertResult
}

func (f *fakeVersionRepo) Upsert(_ context.Context, _ models.Version) (UpsertResult, error) {
	return f.upsertRes, nil
}

func (f *fakeVersionRepo) FindByNaturalKey(_ context.Context, _ string, _ int64, _ models.VehicleType) (*models.Version, error) {
	return nil, models.ErrNotFound
}

func newTestGateway(brands BrandRepo, modelRepo ModelRepo, versions VersionRepo) *Gateway {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return NewGatewayWithRepos(brands, modelRepo, versions, logger)
}

func TestGateway_EnsureBrand(t *testing.T) {
	brand := models.Brand{Code: "59", Name: "VW - VolksWagen", VehicleType: models.VehicleTypeCars}
	upsertErr := errors.New("connection reset")

	tests := []struct {
		name       string
		repo       *fakeBrandRepo
		wantID     int64
		wantStatus models.EnsureStatus
		wantErr    bool
		wantFinds  int
	}{
		{
			name:       "created",
			repo:       &fakeBrandRepo{upsertRes: UpsertResult{ID: 10, Inserted: true}},
			wantID:     10,
			wantStatus: models.EnsureCreated,
		},
		{
			name:       "updated",
			repo:       &fakeBrandRepo{upsertRes: UpsertResult{ID: 10}},
			wantID:     10,
			wantStatus: models.EnsureUpdated,
		},
		{
			name:       "unchanged",
			repo:       &fakeBrandRepo{upsertRes: UpsertResult{ID: 10, Unchanged: true}},
			wantID:     10,
			wantStatus: models.EnsureUnchanged,
		},
		{
			name:       "upsert fails, lookup finds row",
			repo:       &fakeBrandRepo{upsertErr: upsertErr, found: &models.Brand{ID: 10}},
			wantID:     10,
			wantStatus: models.EnsureFoundExisting,
			wantErr:    true,
			wantFinds:  1,
		},
		{
			name:       "upsert returns no id, lookup finds row",
			repo:       &fakeBrandRepo{found: &models.Brand{ID: 11}},
			wantID:     11,
			wantStatus: models.EnsureFoundExisting,
			wantErr:    true,
			wantFinds:  1,
		},
		{
			name:       "upsert fails, lookup misses",
			repo:       &fakeBrandRepo{upsertErr: upsertErr},
			wantStatus: models.EnsureFailed,
			wantErr:    true,
			wantFinds:  1,
		},
		{
			name:       "upsert fails, lookup errors",
			repo:       &fakeBrandRepo{upsertErr: upsertErr, findErr: errors.New("timeout")},
			wantStatus: models.EnsureFailed,
			wantErr:    true,
			wantFinds:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGateway(tt.repo, &fakeModelRepo{}, &fakeVersionRepo{})

			res := g.EnsureBrand(context.Background(), brand)

			assert.Equal(t, tt.wantID, res.ID)
			assert.Equal(t, tt.wantStatus, res.Status)
			assert.Equal(t, tt.wantErr, res.Err != nil)
			assert.Equal(t, tt.wantStatus != models.EnsureFailed, res.OK())
			assert.Equal(t, tt.wantFinds, tt.repo.finds)
		})
	}
}

func TestGateway_EnsureModel_FallsBack(t *testing.T) {
	g := newTestGateway(&fakeBrandRepo{}, &fakeModelRepo{upsertErr: errors.New("deadlock"), found: &models.Model{ID: 42}}, &fakeVersionRepo{})

	res := g.EnsureModel(context.Background(), models.Model{Code: "5585", Name: "Gol", BrandID: 10, VehicleType: models.VehicleTypeCars})

	assert.True(t, res.OK())
	assert.Equal(t, int64(42), res.ID)
	assert.Equal(t, models.EnsureFoundExisting, res.Status)
}

func TestGateway_EnsureVersion(t *testing.T) {
	g := newTestGateway(&fakeBrandRepo{}, &fakeModelRepo{}, &fakeVersionRepo{upsertRes: UpsertResult{ID: 7, Inserted: true}})

	res := g.EnsureVersion(context.Background(), models.Version{Code: "5585_2014-1", ModelID: 42, VehicleType: models.VehicleTypeCars})

	assert.Equal(t, models.EnsureResult{ID: 7, Status: models.EnsureCreated}, res)
}

func TestGateway_Find(t *testing.T) {
	brandRepo := &fakeBrandRepo{}
	g := newTestGateway(brandRepo, &fakeModelRepo{found: &models.Model{ID: 3}}, &fakeVersionRepo{})

	brand, err := g.FindBrand(context.Background(), "59", models.VehicleTypeCars)
	require.NoError(t, err)
	assert.Nil(t, brand)

	brandRepo.found = &models.Brand{ID: 9, Code: "59"}
	brand, err = g.FindBrand(context.Background(), "59", models.VehicleTypeCars)
	require.NoError(t, err)
	assert.Equal(t, int64(9), brand.ID)

	model, err := g.FindModel(context.Background(), "5585", 9, models.VehicleTypeCars)
	require.NoError(t, err)
	assert.Equal(t, int64(3), model.ID)

	brandRepo.findErr = errors.New("boom")
	_, err = g.FindBrand(context.Background(), "59", models.VehicleTypeCars)
	assert.Error(t, err)
}
