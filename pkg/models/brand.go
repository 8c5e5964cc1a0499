package models

import "time"

// Brand is a manufacturer within one vehicle type partition.
// Natural key: (code, vehicle_type).
type Brand struct {
	ID          int64       `db:"id" json:"id"`
	Code        string      `db:"code" json:"code"`
	Name        string      `db:"name" json:"name"`
	VehicleType VehicleType `db:"vehicle_type" json:"vehicle_type"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

// TableName returns the database table name
func (Brand) TableName() string {
	return "brands"
}
