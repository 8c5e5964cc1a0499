package models

import (
	"fmt"
	"slices"
	"strings"
)

// VehicleType is a top-level catalog partition. Its value is the path segment
// the source uses for that partition.
type VehicleType string

const (
	VehicleTypeCars        VehicleType = "carros"
	VehicleTypeMotorcycles VehicleType = "motos"
	VehicleTypeTrucks      VehicleType = "caminhoes"
)

// AllVehicleTypes lists every partition in the order a full sync walks them
var AllVehicleTypes = []VehicleType{VehicleTypeCars, VehicleTypeMotorcycles, VehicleTypeTrucks}

var vehicleTypeAliases = map[string]VehicleType{
	"carros":      VehicleTypeCars,
	"cars":        VehicleTypeCars,
	"car":         VehicleTypeCars,
	"motos":       VehicleTypeMotorcycles,
	"motorcycles": VehicleTypeMotorcycles,
	"motorcycle":  VehicleTypeMotorcycles,
	"caminhoes":   VehicleTypeTrucks,
	"caminhões":   VehicleTypeTrucks,
	"trucks":      VehicleTypeTrucks,
	"truck":       VehicleTypeTrucks,
}

// ParseVehicleType resolves a vehicle type from its source segment or an English alias
func ParseVehicleType(s string) (VehicleType, error) {
	vt, ok := vehicleTypeAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("unknown vehicle type %q (expected one of carros, motos, caminhoes)", s)
	}
	return vt, nil
}

// ParseVehicleTypes resolves a list of vehicle types, dropping duplicates while keeping order
func ParseVehicleTypes(values []string) ([]VehicleType, error) {
	seen := make(map[VehicleType]bool, len(values))
	types := make([]VehicleType, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		vt, err := ParseVehicleType(v)
		if err != nil {
			return nil, err
		}
		if seen[vt] {
			continue
		}
		seen[vt] = true
		types = append(types, vt)
	}
	return types, nil
}

func (v VehicleType) String() string {
	return string(v)
}

// VehicleTypeAliases returns every name ParseVehicleType accepts for vt, sorted
func VehicleTypeAliases(vt VehicleType) []string {
	var names []string
	for name, v := range vehicleTypeAliases {
		if v == vt {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}
