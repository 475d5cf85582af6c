package types

import (
	"sort"
	"strings"
)

// AttributeMap holds the key-value attributes that distinguish a product
// variant (e.g. color -> "Red", size -> "L"). Stored as jsonb via the gorm
// json serializer.
type AttributeMap map[string]string

// Canonical returns a stable "k1=v1;k2=v2" rendering used for logging and
// duplicate detection. Keys are sorted so equal maps render identically.
func (a AttributeMap) Canonical() string {
	if len(a) == 0 {
		return ""
	}
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+a[k])
	}
	return strings.Join(parts, ";")
}
