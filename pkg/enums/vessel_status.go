package enums

import "fmt"

// VesselStatus describes the availability of a piece of brewing equipment.
type VesselStatus string

const (
	VesselStatusAvailable    VesselStatus = "available"
	VesselStatusInUse        VesselStatus = "in_use"
	VesselStatusCleaning     VesselStatus = "cleaning"
	VesselStatusMaintenance  VesselStatus = "maintenance"
	VesselStatusOutOfService VesselStatus = "out_of_service"
)

var validVesselStatuses = []VesselStatus{
	VesselStatusAvailable,
	VesselStatusInUse,
	VesselStatusCleaning,
	VesselStatusMaintenance,
	VesselStatusOutOfService,
}

// String implements fmt.Stringer.
func (s VesselStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known VesselStatus.
func (s VesselStatus) IsValid() bool {
	for _, candidate := range validVesselStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseVesselStatus converts raw input into a VesselStatus.
func ParseVesselStatus(value string) (VesselStatus, error) {
	for _, candidate := range validVesselStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid vessel status %q", value)
}
