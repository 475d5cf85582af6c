package enums

import "fmt"

// DealStatus toggles whether a deal currently applies to its products.
type DealStatus string

const (
	DealStatusEnabled  DealStatus = "ENABLED"
	DealStatusDisabled DealStatus = "DISABLED"
)

var validDealStatuses = []DealStatus{
	DealStatusEnabled,
	DealStatusDisabled,
}

// String implements fmt.Stringer.
func (d DealStatus) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DealStatus.
func (d DealStatus) IsValid() bool {
	for _, candidate := range validDealStatuses {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDealStatus converts raw input into a DealStatus.
func ParseDealStatus(value string) (DealStatus, error) {
	for _, candidate := range validDealStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid deal status %q", value)
}
