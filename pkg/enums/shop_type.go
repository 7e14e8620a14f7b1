package enums

import (
	"fmt"
	"strings"
)

// ShopType identifies the regional storefront an order belongs to.
type ShopType string

const (
	ShopGermany ShopType = "germany"
	ShopAustria ShopType = "austria"
	ShopBelgium ShopType = "belgium"
	ShopItaly   ShopType = "italy"
	ShopMalta   ShopType = "malta"
)

var validShopTypes = []ShopType{
	ShopGermany,
	ShopAustria,
	ShopBelgium,
	ShopItaly,
	ShopMalta,
}

// String implements fmt.Stringer.
func (s ShopType) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ShopType.
func (s ShopType) IsValid() bool {
	for _, candidate := range validShopTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseShopType converts raw input into a ShopType. Matching ignores case.
func ParseShopType(value string) (ShopType, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validShopTypes {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid shop type %q", value)
}
