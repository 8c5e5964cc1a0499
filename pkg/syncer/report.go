package syncer

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Ramsey-B/fern/pkg/models"
)

// Level names the cascade level a warning was raised at
type Level string

const (
	LevelVehicleType Level = "vehicle_type"
	LevelBrand       Level = "brand"
	LevelModel       Level = "model"
	LevelVersion     Level = "version"
)

// Warning records a skipped branch of the cascade
type Warning struct {
	VehicleType models.VehicleType `json:"vehicle_type"`
	Level       Level              `json:"level"`
	Code        string             `json:"code"`
	Name        string             `json:"name"`
	Message     string             `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("[%s] %s %s (%s): %s", w.VehicleType, w.Level, w.Code, w.Name, w.Message)
}

// TypeReport counts cascade outcomes for one vehicle type
type TypeReport struct {
	VehicleType models.VehicleType `json:"vehicle_type"`

	BrandsFetched int `json:"brands_fetched"`
	// BrandsExcluded counts brands dropped by the allow-list or the limit
	BrandsExcluded int `json:"brands_excluded"`
	BrandsSynced   int `json:"brands_synced"`
	BrandsSkipped  int `json:"brands_skipped"`

	ModelsSynced  int `json:"models_synced"`
	ModelsSkipped int `json:"models_skipped"`

	VersionsCreated       int `json:"versions_created"`
	VersionsUpdated       int `json:"versions_updated"`
	VersionsUnchanged     int `json:"versions_unchanged"`
	VersionsFoundExisting int `json:"versions_found_existing"`
	VersionsAbsent        int `json:"versions_absent"`
	VersionsFailed        int `json:"versions_failed"`

	PricesPublished int `json:"prices_published"`
}

// VersionsSynced counts versions that ended with a stored row
func (t TypeReport) VersionsSynced() int {
	return t.VersionsCreated + t.VersionsUpdated + t.VersionsUnchanged + t.VersionsFoundExisting
}

func (t *TypeReport) add(o TypeReport) {
	t.BrandsFetched += o.BrandsFetched
	t.BrandsExcluded += o.BrandsExcluded
	t.BrandsSynced += o.BrandsSynced
	t.BrandsSkipped += o.BrandsSkipped
	t.ModelsSynced += o.ModelsSynced
	t.ModelsSkipped += o.ModelsSkipped
	t.VersionsCreated += o.VersionsCreated
	t.VersionsUpdated += o.VersionsUpdated
	t.VersionsUnchanged += o.VersionsUnchanged
	t.VersionsFoundExisting += o.VersionsFoundExisting
	t.VersionsAbsent += o.VersionsAbsent
	t.VersionsFailed += o.VersionsFailed
	t.PricesPublished += o.PricesPublished
}

// Report summarizes one run
type Report struct {
	RunID      string        `json:"run_id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Types      []*TypeReport `json:"types"`
	Warnings   []Warning     `json:"warnings"`
	// Interrupted is set when the run stopped on context cancellation
	Interrupted bool `json:"interrupted"`
}

// Totals sums the per-type counters
func (r *Report) Totals() TypeReport {
	var total TypeReport
	for _, t := range r.Types {
		total.add(*t)
	}
	return total
}

// Duration is the wall time of the run
func (r *Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

func (r *Report) warn(w Warning) {
	r.Warnings = append(r.Warnings, w)
}

// Render writes the report as a table followed by the warnings
func (r *Report) Render(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(fmt.Sprintf("Sync %s (%s)", r.RunID, r.Duration().Round(time.Millisecond)))
	t.AppendHeader(table.Row{
		"Type", "Brands", "Excluded", "Synced", "Skipped",
		"Models", "Skipped", "Versions", "Absent", "Failed", "Published",
	})

	row := func(label string, tr TypeReport) table.Row {
		return table.Row{
			label, tr.BrandsFetched, tr.BrandsExcluded, tr.BrandsSynced, tr.BrandsSkipped,
			tr.ModelsSynced, tr.ModelsSkipped, tr.VersionsSynced(), tr.VersionsAbsent, tr.VersionsFailed, tr.PricesPublished,
		}
	}
	for _, tr := range r.Types {
		t.AppendRow(row(tr.VehicleType.String(), *tr))
	}
	t.AppendFooter(row("total", r.Totals()))
	t.Render()

	if r.Interrupted {
		_, _ = fmt.Fprintln(w, "Run was interrupted before completion")
	}
	if len(r.Warnings) == 0 {
		return
	}
	_, _ = fmt.Fprintf(w, "%d warnings:\n", len(r.Warnings))
	for _, warning := range r.Warnings {
		_, _ = fmt.Fprintf(w, "  %s\n", warning)
	}
}
