package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/config"
	"github.com/Ramsey-B/fern/pkg/brandfilter"
	"github.com/Ramsey-B/fern/pkg/fipe"
	"github.com/Ramsey-B/fern/pkg/httpclient"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/syncer"
)

func discardLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "fern "+Version)
}

func TestTypesCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"types"})

	require.NoError(t, cmd.Execute())
	text := out.String()
	for _, name := range []string{"carros", "motos", "caminhoes", "cars", "motorcycles", "trucks"} {
		assert.Contains(t, text, name)
	}
}

func TestSyncCommand_InvalidConfig(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"sync", "--type", "boats"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vehicle_type")
}

func TestSyncOptions(t *testing.T) {
	cfg, err := config.Load("", nil)
	require.NoError(t, err)
	app := &App{Config: cfg, Logger: discardLogger()}

	opts, err := syncOptions(app)
	require.NoError(t, err)
	assert.Equal(t, models.AllVehicleTypes, opts.VehicleTypes)
	assert.Zero(t, opts.Limit)
	assert.Nil(t, opts.Filter)

	cfg.TestMode = true
	cfg.Brands = []string{"fiat"}
	opts, err = syncOptions(app)
	require.NoError(t, err)
	assert.Equal(t, []models.VehicleType{models.VehicleTypeCars}, opts.VehicleTypes)
	assert.Equal(t, 2, opts.Limit)
	require.NotNil(t, opts.Filter)
	assert.True(t, opts.Filter.Matches("FIAT"))
}

// catalogServer serves a two-brand car catalog in the source's wire format
func catalogServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	write := func(w http.ResponseWriter, body any) {
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(body))
	}

	mux.HandleFunc("/carros/marcas", func(w http.ResponseWriter, _ *http.Request) {
		write(w, []map[string]string{{"codigo": "21", "nome": "Fiat"}, {"codigo": "59", "nome": "VW - VolksWagen"}})
	})
	mux.HandleFunc("/carros/marcas/21/modelos", func(w http.ResponseWriter, _ *http.Request) {
		write(w, map[string]any{"modelos": []map[string]any{{"codigo": 4828, "nome": "Uno Mille"}}})
	})
	mux.HandleFunc("/carros/marcas/59/modelos", func(w http.ResponseWriter, _ *http.Request) {
		write(w, map[string]any{"modelos": []map[string]any{{"codigo": 5940, "nome": "Gol 1.0"}}})
	})
	mux.HandleFunc("/carros/marcas/21/modelos/4828/anos", func(w http.ResponseWriter, _ *http.Request) {
		write(w, []map[string]string{{"codigo": "2014-1", "nome": "2014 Gasolina"}})
	})
	mux.HandleFunc("/carros/marcas/59/modelos/5940/anos", func(w http.ResponseWriter, _ *http.Request) {
		write(w, []map[string]string{{"codigo": "2020-1", "nome": "2020 Gasolina"}})
	})
	mux.HandleFunc("/carros/marcas/21/modelos/4828/anos/2014-1", func(w http.ResponseWriter, _ *http.Request) {
		write(w, map[string]any{
			"Valor": "R$ 21.000,00", "Marca": "Fiat", "Modelo": "Uno Mille", "AnoModelo": 2014,
			"Combustivel": "Gasolina", "CodigoFipe": "001267-0", "MesReferencia": "outubro de 2026",
		})
	})
	mux.HandleFunc("/carros/marcas/59/modelos/5940/anos/2020-1", func(w http.ResponseWriter, _ *http.Request) {
		http.NotFound(w, nil)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// memStore assigns sequential IDs and remembers what was ensured
type memStore struct {
	mu       sync.Mutex
	nextID   int64
	brands   []models.Brand
	models   []models.Model
	versions []models.Version
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) EnsureBrand(_ context.Context, b models.Brand) models.EnsureResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.brands = append(s.brands, b)
	return models.EnsureResult{ID: s.id(), Status: models.EnsureCreated}
}

func (s *memStore) EnsureModel(_ context.Context, m models.Model) models.EnsureResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.models = append(s.models, m)
	return models.EnsureResult{ID: s.id(), Status: models.EnsureCreated}
}

func (s *memStore) EnsureVersion(_ context.Context, v models.Version) models.EnsureResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions = append(s.versions, v)
	return models.EnsureResult{ID: s.id(), Status: models.EnsureCreated}
}

func newSourceClient(baseURL string) *fipe.Client {
	cfg := fipe.DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.RequestDelay = 0
	return fipe.NewClient(cfg, httpclient.NewClient(httpclient.DefaultConfig(), discardLogger()), discardLogger(),
		fipe.WithSleeper(func(context.Context, time.Duration) error { return nil }))
}

func TestExecuteSync_EndToEnd(t *testing.T) {
	srv := catalogServer(t)
	store := &memStore{}
	var out bytes.Buffer

	s := syncer.New(newSourceClient(srv.URL), store, discardLogger(), syncer.WithRunID("run-1"))
	err := executeSync(context.Background(), s, syncer.Options{
		VehicleTypes: []models.VehicleType{models.VehicleTypeCars},
	}, syncRun{out: &out, logger: discardLogger()})
	require.NoError(t, err)

	require.Len(t, store.brands, 2)
	require.Len(t, store.models, 2)
	require.Len(t, store.versions, 1, "the version without a price detail is absent")

	v := store.versions[0]
	assert.Equal(t, "4828_2014-1", v.Code)
	assert.Equal(t, "Uno Mille - 2014", v.Name)
	assert.Equal(t, models.VehicleTypeCars, v.VehicleType)
	require.NotNil(t, v.Price)
	assert.Equal(t, "R$ 21.000,00", *v.Price)

	assert.Contains(t, out.String(), "carros")
}

func TestExecuteSync_BrandFilter(t *testing.T) {
	srv := catalogServer(t)
	store := &memStore{}

	s := syncer.New(newSourceClient(srv.URL), store, discardLogger())
	err := executeSync(context.Background(), s, syncer.Options{
		VehicleTypes: []models.VehicleType{models.VehicleTypeCars},
		Filter:       brandfilter.NewFilter([]string{"volkswagen"}),
	}, syncRun{out: &bytes.Buffer{}, logger: discardLogger()})
	require.NoError(t, err)

	require.Len(t, store.brands, 1)
	assert.Equal(t, "59", store.brands[0].Code)
}

func TestExecuteSync_InterruptedIsCleanExit(t *testing.T) {
	srv := catalogServer(t)
	store := &memStore{}
	var out bytes.Buffer

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := syncer.New(newSourceClient(srv.URL), store, discardLogger())
	err := executeSync(ctx, s, syncer.Options{}, syncRun{out: &out, logger: discardLogger()})
	require.NoError(t, err)
	assert.Empty(t, store.brands)
	assert.True(t, strings.Contains(out.String(), "carros"))
}

func TestRunSync_InterruptedDuringStartupIsCleanExit(t *testing.T) {
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", "1")

	cfg, err := config.Load("", nil)
	require.NoError(t, err)
	app := &App{Config: cfg, Logger: discardLogger()}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	assert.NoError(t, runSync(ctx, app, &out))
	assert.Empty(t, out.String())
}

func TestRunSync_StartupFailureIsAnError(t *testing.T) {
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", "1")
	t.Setenv("STARTUP_MAX_ATTEMPTS", "1")

	cfg, err := config.Load("", nil)
	require.NoError(t, err)
	app := &App{Config: cfg, Logger: discardLogger()}

	var out bytes.Buffer
	err = runSync(context.Background(), app, &out)
	assert.ErrorContains(t, err, "failed to start dependencies")
}
