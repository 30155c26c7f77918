package enums

import "fmt"

// BatchStatus tracks the lifecycle of a brew batch.
type BatchStatus string

const (
	BatchStatusPlanned        BatchStatus = "planned"
	BatchStatusBrewing        BatchStatus = "brewing"
	BatchStatusFermenting     BatchStatus = "fermenting"
	BatchStatusConditioning   BatchStatus = "conditioning"
	BatchStatusReadyToPackage BatchStatus = "ready_to_package"
	BatchStatusPackaged       BatchStatus = "packaged"
	BatchStatusCompleted      BatchStatus = "completed"
	BatchStatusCancelled      BatchStatus = "cancelled"
	BatchStatusDumped         BatchStatus = "dumped"
)

var validBatchStatuses = []BatchStatus{
	BatchStatusPlanned,
	BatchStatusBrewing,
	BatchStatusFermenting,
	BatchStatusConditioning,
	BatchStatusReadyToPackage,
	BatchStatusPackaged,
	BatchStatusCompleted,
	BatchStatusCancelled,
	BatchStatusDumped,
}

// AllocatingBatchStatuses are the statuses whose recipe demand counts as allocated stock.
var AllocatingBatchStatuses = []BatchStatus{BatchStatusPlanned, BatchStatusBrewing}

// String implements fmt.Stringer.
func (s BatchStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known BatchStatus.
func (s BatchStatus) IsValid() bool {
	for _, candidate := range validBatchStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Successors returns the statuses a batch may move to from s.
// Every status is listed so a new one shows up here first.
func (s BatchStatus) Successors() []BatchStatus {
	switch s {
	case BatchStatusPlanned:
		return []BatchStatus{BatchStatusBrewing, BatchStatusCancelled}
	case BatchStatusBrewing:
		return []BatchStatus{BatchStatusFermenting, BatchStatusDumped}
	case BatchStatusFermenting:
		return []BatchStatus{BatchStatusConditioning, BatchStatusDumped}
	case BatchStatusConditioning:
		return []BatchStatus{BatchStatusReadyToPackage, BatchStatusDumped}
	case BatchStatusReadyToPackage:
		return []BatchStatus{BatchStatusPackaged, BatchStatusDumped}
	case BatchStatusPackaged:
		return []BatchStatus{BatchStatusCompleted}
	case BatchStatusCompleted, BatchStatusCancelled, BatchStatusDumped:
		return nil
	default:
		return nil
	}
}

// CanTransitionTo reports whether to is an allowed successor of s.
func (s BatchStatus) CanTransitionTo(to BatchStatus) bool {
	for _, next := range s.Successors() {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s BatchStatus) IsTerminal() bool {
	return s.IsValid() && len(s.Successors()) == 0
}

// HoldsVessel reports whether a batch in status s occupies its assigned vessel:
// from brewing until the batch reaches a terminal status.
func (s BatchStatus) HoldsVessel() bool {
	switch s {
	case BatchStatusBrewing, BatchStatusFermenting, BatchStatusConditioning,
		BatchStatusReadyToPackage, BatchStatusPackaged:
		return true
	default:
		return false
	}
}

// ParseBatchStatus converts raw input into a BatchStatus.
func ParseBatchStatus(value string) (BatchStatus, error) {
	for _, candidate := range validBatchStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid batch status %q", value)
}
