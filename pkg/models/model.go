package models

import "time"

// Model is a vehicle model owned by a brand.
// Natural key: (code, brand_id, vehicle_type).
type Model struct {
	ID          int64       `db:"id" json:"id"`
	Code        string      `db:"code" json:"code"`
	Name        string      `db:"name" json:"name"`
	BrandID     int64       `db:"brand_id" json:"brand_id"`
	VehicleType VehicleType `db:"vehicle_type" json:"vehicle_type"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

// TableName returns the database table name
func (Model) TableName() string {
	return "models"
}

// Year is one model-year variant listed for a model
type Year struct {
	Code string `json:"code"`
	Name string `json:"name"`
}
