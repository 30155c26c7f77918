package enums

import "fmt"

// MovementType classifies a stock ledger entry.
type MovementType string

const (
	MovementTypeReceived    MovementType = "received"
	MovementTypeConsumed    MovementType = "consumed"
	MovementTypeAdjusted    MovementType = "adjusted"
	MovementTypeTransferred MovementType = "transferred"
	MovementTypeReturned    MovementType = "returned"
	MovementTypeWrittenOff  MovementType = "written_off"
)

var validMovementTypes = []MovementType{
	MovementTypeReceived,
	MovementTypeConsumed,
	MovementTypeAdjusted,
	MovementTypeTransferred,
	MovementTypeReturned,
	MovementTypeWrittenOff,
}

// String implements fmt.Stringer.
func (t MovementType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known MovementType.
func (t MovementType) IsValid() bool {
	for _, candidate := range validMovementTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// Sign returns +1 when quantities of this type must be positive, -1 when they must be
// negative and 0 when either direction is allowed.
func (t MovementType) Sign() int {
	switch t {
	case MovementTypeReceived:
		return 1
	case MovementTypeConsumed, MovementTypeWrittenOff:
		return -1
	case MovementTypeAdjusted, MovementTypeTransferred, MovementTypeReturned:
		return 0
	default:
		return 0
	}
}

// ParseMovementType converts raw input into a MovementType.
func ParseMovementType(value string) (MovementType, error) {
	for _, candidate := range validMovementTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid movement type %q", value)
}
