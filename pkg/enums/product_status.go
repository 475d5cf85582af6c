package enums

import "fmt"

// ProductStatus reflects sellable stock for a product or variant.
type ProductStatus string

const (
	ProductStatusAvailable  ProductStatus = "AVAILABLE"
	ProductStatusLowStock   ProductStatus = "LOW_STOCK"
	ProductStatusOutOfStock ProductStatus = "OUT_OF_STOCK"
)

var validProductStatuses = []ProductStatus{
	ProductStatusAvailable,
	ProductStatusLowStock,
	ProductStatusOutOfStock,
}

// String implements fmt.Stringer.
func (p ProductStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known ProductStatus.
func (p ProductStatus) IsValid() bool {
	for _, candidate := range validProductStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseProductStatus converts raw input into a ProductStatus.
func ParseProductStatus(value string) (ProductStatus, error) {
	for _, candidate := range validProductStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product status %q", value)
}

// StatusForStock derives the stock status from the remaining quantity and the
// low-stock threshold.
func StatusForStock(stock, lowStockThreshold int) ProductStatus {
	switch {
	case stock <= 0:
		return ProductStatusOutOfStock
	case stock <= lowStockThreshold:
		return ProductStatusLowStock
	default:
		return ProductStatusAvailable
	}
}
