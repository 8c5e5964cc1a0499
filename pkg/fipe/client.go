package fipe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/httpclient"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const DefaultBaseURL = "https://parallelum.com.br/fipe/api/v1"

// ErrRateLimited is returned internally when every attempt was answered with 429
var ErrRateLimited = errors.New("rate limited: retries exhausted")

// Getter performs a GET and returns the fully read response.
// *httpclient.Client satisfies it.
type Getter interface {
	Get(ctx context.Context, operation, url string) (*httpclient.Response, error)
}

// Config configures the catalog client
type Config struct {
	BaseURL string
	// RequestDelay is waited before every request, retries included
	RequestDelay time.Duration
	Retry        RetryPolicy
}

// DefaultConfig returns the pacing and retry settings used against the public API
func DefaultConfig() Config {
	return Config{
		BaseURL:      DefaultBaseURL,
		RequestDelay: 500 * time.Millisecond,
		Retry:        DefaultRetryPolicy(),
	}
}

// Client reads the vehicle pricing catalog.
//
// Fetch methods never surface source failures: rate-limit exhaustion, error
// statuses, transport failures and malformed payloads are logged and yield an
// empty result. The only error returned is the context's, so callers can stop
// a walk on cancellation.
type Client struct {
	http   Getter
	cfg    Config
	logger ectologger.Logger
	sleep  Sleeper
}

// Option configures a Client
type Option func(*Client)

// WithSleeper replaces the pacing and backoff sleeper
func WithSleeper(s Sleeper) Option {
	return func(c *Client) {
		c.sleep = s
	}
}

// NewClient creates a catalog client that issues requests through getter
func NewClient(cfg Config, getter Getter, logger ectologger.Logger, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Retry.MaxRetries < 0 {
		cfg.Retry.MaxRetries = 0
	}

	c := &Client{
		http:   getter,
		cfg:    cfg,
		logger: logger,
		sleep:  SleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchBrands lists the brands of a vehicle type
func (c *Client) FetchBrands(ctx context.Context, vehicleType models.VehicleType) ([]models.Brand, error) {
	ctx, span := tracing.StartCatalogSpan(ctx, "FipeClient.FetchBrands", tracing.CatalogPath{VehicleType: vehicleType.String()})
	defer span.End()

	logger := c.logger.WithContext(ctx).WithField("vehicle_type", vehicleType.String())

	var payload []namedCode
	if ok, err := c.getJSON(ctx, "brands", c.path(vehicleType, "marcas"), &payload); !ok {
		return nil, err
	}

	brands := make([]models.Brand, 0, len(payload))
	for _, p := range payload {
		if p.Code == "" {
			continue
		}
		brands = append(brands, models.Brand{
			Code:        p.Code.String(),
			Name:        strings.TrimSpace(p.Name),
			VehicleType: vehicleType,
		})
	}

	logger.Infof("Fetched %d brands", len(brands))
	return brands, nil
}

// FetchModels lists the models of a brand
func (c *Client) FetchModels(ctx context.Context, vehicleType models.VehicleType, brandCode string) ([]models.Model, error) {
	ctx, span := tracing.StartCatalogSpan(ctx, "FipeClient.FetchModels", tracing.CatalogPath{
		VehicleType: vehicleType.String(),
		BrandCode:   brandCode,
	})
	defer span.End()

	logger := c.logger.WithContext(ctx).WithFields(map[string]any{
		"vehicle_type": vehicleType.String(),
		"brand_code":   brandCode,
	})

	var payload modelsResponse
	if ok, err := c.getJSON(ctx, "models", c.path(vehicleType, "marcas", brandCode, "modelos"), &payload); !ok {
		return nil, err
	}

	result := make([]models.Model, 0, len(payload.Models))
	for _, p := range payload.Models {
		if p.Code == "" {
			continue
		}
		result = append(result, models.Model{
			Code:        p.Code.String(),
			Name:        strings.TrimSpace(p.Name),
			VehicleType: vehicleType,
		})
	}

	logger.Infof("Fetched %d models", len(result))
	return result, nil
}

// FetchYears lists the model-year variants of a model
func (c *Client) FetchYears(ctx context.Context, vehicleType models.VehicleType, brandCode, modelCode string) ([]models.Year, error) {
	ctx, span := tracing.StartCatalogSpan(ctx, "FipeClient.FetchYears", tracing.CatalogPath{
		VehicleType: vehicleType.String(),
		BrandCode:   brandCode,
		ModelCode:   modelCode,
	})
	defer span.End()

	var payload []namedCode
	if ok, err := c.getJSON(ctx, "years", c.path(vehicleType, "marcas", brandCode, "modelos", modelCode, "anos"), &payload); !ok {
		return nil, err
	}

	years := make([]models.Year, 0, len(payload))
	for _, p := range payload {
		if p.Code == "" {
			continue
		}
		years = append(years, models.Year{Code: p.Code.String(), Name: strings.TrimSpace(p.Name)})
	}

	c.logger.WithContext(ctx).WithFields(map[string]any{
		"vehicle_type": vehicleType.String(),
		"brand_code":   brandCode,
		"model_code":   modelCode,
	}).Debugf("Fetched %d years", len(years))
	return years, nil
}

// FetchVersionDetail returns the price snapshot of one model-year variant, or
// nil when the source has no usable payload for it. The returned version
// carries its code and enrichment fields; its name is empty when the payload
// omits the model name.
func (c *Client) FetchVersionDetail(ctx context.Context, vehicleType models.VehicleType, brandCode, modelCode, yearCode string) (*models.Version, error) {
	ctx, span := tracing.StartCatalogSpan(ctx, "FipeClient.FetchVersionDetail", tracing.CatalogPath{
		VehicleType: vehicleType.String(),
		BrandCode:   brandCode,
		ModelCode:   modelCode,
		YearCode:    yearCode,
	})
	defer span.End()

	body, err := c.get(ctx, "version_detail", c.path(vehicleType, "marcas", brandCode, "modelos", modelCode, "anos", yearCode))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if httperror.IsHTTPError(err) && httperror.GetStatusCode(err) == http.StatusNotFound {
			c.logger.WithContext(ctx).WithField("year_code", yearCode).Debug("No detail published for year")
			return nil, nil
		}
		c.logFailure(ctx, "version_detail", err)
		return nil, nil
	}

	var detail detailResponse
	if err := json.Unmarshal(body, &detail); err != nil {
		c.logFailure(ctx, "version_detail", fmt.Errorf("malformed payload: %w", err))
		return nil, nil
	}
	if detail.Error != "" || detail.empty() {
		return nil, nil
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		raw = nil
	}

	return buildVersion(vehicleType, modelCode, yearCode, detail, raw), nil
}

// VersionCode is the natural code of a model-year variant
func VersionCode(modelCode, yearCode string) string {
	return modelCode + "_" + yearCode
}

func buildVersion(vehicleType models.VehicleType, modelCode, yearCode string, d detailResponse, raw map[string]any) *models.Version {
	v := &models.Version{
		Code:        VersionCode(modelCode, yearCode),
		VehicleType: vehicleType,
	}

	if d.Model != "" {
		v.Name = strings.TrimSpace(d.Model)
		if d.ModelYear != 0 {
			v.Name = fmt.Sprintf("%s - %d", v.Name, d.ModelYear)
		}
	}

	if d.ModelYear != 0 {
		year := d.ModelYear
		v.ModelYear = &year
	}
	v.FuelType = optional(d.FuelType)
	v.CatalogCode = optional(d.CatalogCode)
	v.ReferenceMonth = optional(d.ReferenceMonth)
	v.Price = optional(d.Price)
	if raw != nil {
		v.SourcePayload = database.NewJSONB(raw)
	}
	return v
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func (c *Client) path(vehicleType models.VehicleType, segments ...string) string {
	escaped := make([]string, 0, len(segments)+2)
	escaped = append(escaped, c.cfg.BaseURL, url.PathEscape(vehicleType.String()))
	for _, s := range segments {
		escaped = append(escaped, url.PathEscape(s))
	}
	return strings.Join(escaped, "/")
}

// getJSON fetches and decodes into dest. ok is false when the caller should
// return an empty result; err is then non-nil only for context errors.
func (c *Client) getJSON(ctx context.Context, operation, url string, dest any) (ok bool, err error) {
	body, err := c.get(ctx, operation, url)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		c.logFailure(ctx, operation, err)
		return false, nil
	}

	if err := json.Unmarshal(body, dest); err != nil {
		c.logFailure(ctx, operation, fmt.Errorf("malformed payload: %w", err))
		return false, nil
	}
	return true, nil
}

func (c *Client) logFailure(ctx context.Context, operation string, err error) {
	logger := c.logger.WithContext(ctx).WithError(err).WithField("operation", operation)
	if errors.Is(err, ErrRateLimited) {
		logger.Warn("Giving up on rate limited request")
		return
	}
	logger.Error("Catalog request failed")
}

// get issues one logical request: pacing before every attempt, retries on 429
// and timeouts, no retry on anything else.
func (c *Client) get(ctx context.Context, operation, url string) ([]byte, error) {
	maxAttempts := c.cfg.Retry.MaxRetries + 1

	for attempt := 1; ; attempt++ {
		if err := c.sleep(ctx, c.cfg.RequestDelay); err != nil {
			return nil, err
		}

		resp, err := c.http.Get(ctx, operation, url)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if !isTimeout(err) || attempt >= maxAttempts {
				return nil, err
			}
			if err := c.backoff(ctx, operation, "timeout", attempt, maxAttempts, 0); err != nil {
				return nil, err
			}
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			if attempt >= maxAttempts {
				metrics.SourceGiveUpsTotal.WithLabelValues(operation).Inc()
				return nil, fmt.Errorf("%s after %d attempts: %w", url, attempt, ErrRateLimited)
			}
			if err := c.backoff(ctx, operation, "rate_limited", attempt, maxAttempts, retryAfter(resp.Header)); err != nil {
				return nil, err
			}
			continue
		case !resp.IsSuccess():
			return nil, httperror.NewHTTPErrorf(resp.StatusCode, "GET %s returned status %d", url, resp.StatusCode)
		}

		return resp.Body, nil
	}
}

func (c *Client) backoff(ctx context.Context, operation, reason string, attempt, maxAttempts int, hint time.Duration) error {
	delay := c.cfg.Retry.Delay(attempt)
	if hint > delay {
		delay = hint
		if c.cfg.Retry.MaxBackoff > 0 && delay > c.cfg.Retry.MaxBackoff {
			delay = c.cfg.Retry.MaxBackoff
		}
	}

	metrics.SourceRetriesTotal.WithLabelValues(operation, reason).Inc()
	c.logger.WithContext(ctx).WithFields(map[string]any{
		"operation": operation,
		"reason":    reason,
	}).Warnf("Retrying in %v (attempt %d/%d)", delay, attempt+1, maxAttempts)

	return c.sleep(ctx, delay)
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// retryAfter reads a Retry-After header given in seconds
func retryAfter(h http.Header) time.Duration {
	if h == nil {
		return 0
	}
	secs, err := strconv.Atoi(strings.TrimSpace(h.Get("Retry-After")))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
