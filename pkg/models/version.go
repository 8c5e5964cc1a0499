package models

import (
	"time"

	"github.com/Ramsey-B/fern/pkg/database"
)

// Version is a model-year variant with its price snapshot.
// Natural key: (code, model_id, vehicle_type).
//
// Enrichment fields are pointers: nil means the source did not supply the
// value and the stored value must be left untouched.
type Version struct {
	ID             int64                           `db:"id" json:"id"`
	Code           string                          `db:"code" json:"code"`
	Name           string                          `db:"name" json:"name"`
	ModelID        int64                           `db:"model_id" json:"model_id"`
	VehicleType    VehicleType                     `db:"vehicle_type" json:"vehicle_type"`
	ModelYear      *int                            `db:"model_year" json:"model_year,omitempty"`
	FuelType       *string                         `db:"fuel_type" json:"fuel_type,omitempty"`
	CatalogCode    *string                         `db:"catalog_code" json:"catalog_code,omitempty"`
	ReferenceMonth *string                         `db:"reference_month" json:"reference_month,omitempty"`
	Price          *string                         `db:"price" json:"price,omitempty"`
	SourcePayload  *database.JSONB[map[string]any] `db:"source_payload" json:"source_payload,omitempty"`
	CreatedAt      time.Time                       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time                       `db:"updated_at" json:"updated_at"`
}

// TableName returns the database table name
func (Version) TableName() string {
	return "versions"
}
