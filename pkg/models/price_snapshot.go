package models

import "time"

// PriceSnapshot is a persisted version price together with its lineage,
// published for downstream consumers after each write.
type PriceSnapshot struct {
	RunID          string      `json:"run_id"`
	VehicleType    VehicleType `json:"vehicle_type"`
	BrandCode      string      `json:"brand_code"`
	BrandName      string      `json:"brand_name"`
	ModelCode      string      `json:"model_code"`
	ModelName      string      `json:"model_name"`
	VersionID      int64       `json:"version_id"`
	VersionCode    string      `json:"version_code"`
	VersionName    string      `json:"version_name"`
	ModelYear      *int        `json:"model_year,omitempty"`
	FuelType       *string     `json:"fuel_type,omitempty"`
	CatalogCode    *string     `json:"catalog_code,omitempty"`
	ReferenceMonth *string     `json:"reference_month,omitempty"`
	Price          string      `json:"price"`
	ObservedAt     time.Time   `json:"observed_at"`
}

// Key identifies the version by natural key across runs
func (p PriceSnapshot) Key() string {
	return string(p.VehicleType) + ":" + p.BrandCode + ":" + p.ModelCode + ":" + p.VersionCode
}
