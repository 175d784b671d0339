package enums

import "fmt"

// ListState tracks where a shopping list sits in the shop-and-pay cycle.
// The values are part of the device mirror contract.
type ListState string

const (
	ListStateScanning ListState = "scanning"
	ListStatePaying   ListState = "paying"
	ListStateFinished ListState = "finished"
)

var validListStates = []ListState{
	ListStateScanning,
	ListStatePaying,
	ListStateFinished,
}

// String implements fmt.Stringer.
func (s ListState) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ListState.
func (s ListState) IsValid() bool {
	for _, candidate := range validListStates {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseListState converts raw input into a ListState.
func ParseListState(value string) (ListState, error) {
	for _, candidate := range validListStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid list state %q", value)
}
