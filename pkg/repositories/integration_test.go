package repositories_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/repositories"
)

func getTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func migrationsDir(t *testing.T) string {
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), "..", "..", "db", "pg")
}

// startPostgres runs a disposable Postgres with the catalog schema applied
func startPostgres(t *testing.T) database.DB {
	t.Helper()

	if testing.Short() || os.Getenv("FERN_INTEGRATION") == "" {
		t.Skip("set FERN_INTEGRATION=1 to run container backed tests")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "fern",
				"POSTGRES_PASSWORD": "fern",
				"POSTGRES_DB":       "fern",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	logger := getTestLogger()
	db, err := database.Open(ctx, database.Config{
		Host:     host,
		Port:     port.Port(),
		UserName: "fern",
		Password: "fern",
		Name:     "fern",
		SSLMode:  "disable",
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	migrations := database.NewMigrationService(logger, &database.MigrationConfig{MigrationFolderPath: migrationsDir(t)})
	require.NoError(t, migrations.MigrateDB(db, "fern"))

	return db
}

func countRows(t *testing.T, db database.DB, table string) int {
	var n int
	require.NoError(t, db.GetContext(context.Background(), &n, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)))
	return n
}

func TestGateway_Integration(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()
	gw := repositories.NewGateway(db, getTestLogger())

	brand := models.Brand{Code: "59", Name: "VW - VolksWagen", VehicleType: models.VehicleTypeCars}

	t.Run("idempotent brand upsert keeps identifier", func(t *testing.T) {
		first := gw.EnsureBrand(ctx, brand)
		require.True(t, first.OK())
		assert.Equal(t, models.EnsureCreated, first.Status)

		var touched time.Time
		require.NoError(t, db.GetContext(ctx, &touched, "SELECT updated_at FROM brands WHERE id = $1", first.ID))

		second := gw.EnsureBrand(ctx, brand)
		require.True(t, second.OK())
		assert.Equal(t, models.EnsureUnchanged, second.Status)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, 1, countRows(t, db, "brands"))

		var after time.Time
		require.NoError(t, db.GetContext(ctx, &after, "SELECT updated_at FROM brands WHERE id = $1", first.ID))
		assert.True(t, touched.Equal(after))

		renamed := brand
		renamed.Name = "Volkswagen"
		third := gw.EnsureBrand(ctx, renamed)
		require.True(t, third.OK())
		assert.Equal(t, models.EnsureUpdated, third.Status)
		assert.Equal(t, first.ID, third.ID)

		second = gw.EnsureBrand(ctx, brand)
		assert.Equal(t, models.EnsureUpdated, second.Status)
	})

	t.Run("same code in another vehicle type is a different brand", func(t *testing.T) {
		moto := gw.EnsureBrand(ctx, models.Brand{Code: "59", Name: "VW", VehicleType: models.VehicleTypeMotorcycles})
		require.True(t, moto.OK())
		assert.Equal(t, models.EnsureCreated, moto.Status)
		assert.Equal(t, 2, countRows(t, db, "brands"))
	})

	t.Run("additive version write", func(t *testing.T) {
		b := gw.EnsureBrand(ctx, brand)
		m := gw.EnsureModel(ctx, models.Model{Code: "5585", Name: "Gol 1.0", BrandID: b.ID, VehicleType: models.VehicleTypeCars})
		require.True(t, m.OK())

		bare := models.Version{Code: "5585_2014-1", Name: "2014 Gasolina", ModelID: m.ID, VehicleType: models.VehicleTypeCars}
		first := gw.EnsureVersion(ctx, bare)
		require.True(t, first.OK())

		price := "R$ 42.310,00"
		priced := bare
		priced.Price = &price
		second := gw.EnsureVersion(ctx, priced)
		require.True(t, second.OK())
		assert.Equal(t, first.ID, second.ID)

		// A later write without price must not null it out
		third := gw.EnsureVersion(ctx, bare)
		require.True(t, third.OK())

		assert.Equal(t, 1, countRows(t, db, "versions"))
		stored, err := repositories.NewVersionRepository(db, getTestLogger()).FindByNaturalKey(ctx, bare.Code, m.ID, models.VehicleTypeCars)
		require.NoError(t, err)
		require.NotNil(t, stored.Price)
		assert.Equal(t, price, *stored.Price)
	})

	t.Run("cross partition reference is rejected", func(t *testing.T) {
		b := gw.EnsureBrand(ctx, brand)
		res := gw.EnsureModel(ctx, models.Model{Code: "9999", Name: "Mismatch", BrandID: b.ID, VehicleType: models.VehicleTypeTrucks})
		assert.False(t, res.OK())
		assert.Equal(t, models.EnsureFailed, res.Status)
		assert.Error(t, res.Err)
	})

	t.Run("find by natural key", func(t *testing.T) {
		found, err := gw.FindBrand(ctx, "59", models.VehicleTypeCars)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "VW - VolksWagen", found.Name)

		missing, err := gw.FindBrand(ctx, "404", models.VehicleTypeCars)
		require.NoError(t, err)
		assert.Nil(t, missing)
	})
}
