package enums

import "fmt"

// Principal is the token namespace an access token was minted under. Customers
// authenticate as user principals, sellers as vendor principals, and a token
// from one namespace is never accepted by routes of the other.
type Principal string

const (
	PrincipalUser   Principal = "user"
	PrincipalVendor Principal = "vendor"
)

var validPrincipals = []Principal{
	PrincipalUser,
	PrincipalVendor,
}

// String implements fmt.Stringer.
func (p Principal) String() string {
	return string(p)
}

// IsValid reports whether the value is a known Principal.
func (p Principal) IsValid() bool {
	for _, candidate := range validPrincipals {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePrincipal converts raw input into a Principal.
func ParsePrincipal(value string) (Principal, error) {
	for _, candidate := range validPrincipals {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid principal %q", value)
}
