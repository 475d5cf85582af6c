package enums

import "fmt"

// BannerStatus toggles homepage visibility for a banner.
type BannerStatus string

const (
	BannerStatusActive   BannerStatus = "ACTIVE"
	BannerStatusInactive BannerStatus = "INACTIVE"
)

var validBannerStatuses = []BannerStatus{
	BannerStatusActive,
	BannerStatusInactive,
}

// String implements fmt.Stringer.
func (b BannerStatus) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BannerStatus.
func (b BannerStatus) IsValid() bool {
	for _, candidate := range validBannerStatuses {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBannerStatus converts raw input into a BannerStatus.
func ParseBannerStatus(value string) (BannerStatus, error) {
	for _, candidate := range validBannerStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid banner status %q", value)
}
