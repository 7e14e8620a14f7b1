package shops

import (
	"net"
	"sort"
	"strings"

	"github.com/stanton-energie/heizoel-backend/pkg/config"
	"github.com/stanton-energie/heizoel-backend/pkg/enums"
)

// BelgianReferrerPath is the entry path that switches checkout to the Belgian variant.
const BelgianReferrerPath = "/7/home"

// ShopConfig describes the storefront a request belongs to. Values are copied
// per resolution and never shared between requests.
type ShopConfig struct {
	ShopType   enums.ShopType `json:"shopType"`
	BaseURL    string         `json:"baseUrl"`
	Name       string         `json:"name"`
	Phone      string         `json:"phone"`
	Email      string         `json:"email"`
	SystemName string         `json:"systemName"`
	Language   string         `json:"language"`
	Currency   enums.Currency `json:"currency"`
}

var builtinShops = map[enums.ShopType]ShopConfig{
	enums.ShopGermany: {
		ShopType:   enums.ShopGermany,
		BaseURL:    "https://www.heizoel-stanton.de",
		Name:       "Stanton Energie",
		Phone:      "+49 89 2000 1550",
		Email:      "info@heizoel-stanton.de",
		SystemName: "StantonEnergie",
		Language:   "de",
		Currency:   enums.CurrencyEUR,
	},
	enums.ShopAustria: {
		ShopType:   enums.ShopAustria,
		BaseURL:    "https://www.heizoel-stanton.at",
		Name:       "Stanton Energie Österreich",
		Phone:      "+43 1 260 1550",
		Email:      "info@heizoel-stanton.at",
		SystemName: "StantonAustria",
		Language:   "de",
		Currency:   enums.CurrencyEUR,
	},
	enums.ShopBelgium: {
		ShopType:   enums.ShopBelgium,
		BaseURL:    "https://www.mazoutvandaag.be",
		Name:       "Mazout Vandaag",
		Phone:      "+32 3 808 1550",
		Email:      "info@mazoutvandaag.be",
		SystemName: "MazoutVandaag",
		Language:   "nl",
		Currency:   enums.CurrencyEUR,
	},
	enums.ShopItaly: {
		ShopType:   enums.ShopItaly,
		BaseURL:    "https://www.gasolio-stanton.it",
		Name:       "Stanton Gasolio",
		Phone:      "+39 02 3056 1550",
		Email:      "info@gasolio-stanton.it",
		SystemName: "StantonItalia",
		Language:   "it",
		Currency:   enums.CurrencyEUR,
	},
	enums.ShopMalta: {
		ShopType:   enums.ShopMalta,
		BaseURL:    "https://www.heatingoil-stanton.mt",
		Name:       "Stanton Fuel Malta",
		Phone:      "+356 2034 1550",
		Email:      "info@heatingoil-stanton.mt",
		SystemName: "StantonMalta",
		Language:   "en",
		Currency:   enums.CurrencyEUR,
	},
}

var builtinDomains = map[string]enums.ShopType{
	"heizoel-stanton.de":    enums.ShopGermany,
	"heizoel-stanton.at":    enums.ShopAustria,
	"mazoutvandaag.be":      enums.ShopBelgium,
	"gasolio-stanton.it":    enums.ShopItaly,
	"heatingoil-stanton.mt": enums.ShopMalta,
}

type domainRule struct {
	suffix   string
	shopType enums.ShopType
}

// Registry maps request hosts to shops.
type Registry struct {
	rules        []domainRule
	defaultShop  enums.ShopType
	referrerPath string
}

// NewRegistry builds the host registry. Configured domains extend and override
// the built-in ones; entries naming unknown shop types are ignored.
func NewRegistry(cfg config.ShopsConfig) *Registry {
	domains := make(map[string]enums.ShopType, len(builtinDomains)+len(cfg.Domains))
	for host, shop := range builtinDomains {
		domains[host] = shop
	}
	for host, raw := range cfg.Domains {
		shop, err := enums.ParseShopType(raw)
		if err != nil {
			continue
		}
		domains[normalizeHost(host)] = shop
	}

	rules := make([]domainRule, 0, len(domains))
	for suffix, shop := range domains {
		if suffix == "" {
			continue
		}
		rules = append(rules, domainRule{suffix: suffix, shopType: shop})
	}
	// longest suffix wins
	sort.Slice(rules, func(i, j int) bool {
		if len(rules[i].suffix) != len(rules[j].suffix) {
			return len(rules[i].suffix) > len(rules[j].suffix)
		}
		return rules[i].suffix < rules[j].suffix
	})

	defaultShop, err := enums.ParseShopType(cfg.DefaultShop)
	if err != nil {
		defaultShop = enums.ShopGermany
	}
	referrerPath := strings.TrimSpace(cfg.ReferrerPath)
	if referrerPath == "" {
		referrerPath = BelgianReferrerPath
	}

	return &Registry{rules: rules, defaultShop: defaultShop, referrerPath: referrerPath}
}

// ForHost returns the shop serving host, falling back to the default shop.
func (r *Registry) ForHost(host string) ShopConfig {
	normalized := normalizeHost(host)
	for _, rule := range r.rules {
		if normalized == rule.suffix || strings.HasSuffix(normalized, "."+rule.suffix) {
			return ConfigFor(rule.shopType)
		}
	}
	return ConfigFor(r.defaultShop)
}

// Knows reports whether host belongs to a registered storefront domain.
func (r *Registry) Knows(host string) bool {
	normalized := normalizeHost(host)
	for _, rule := range r.rules {
		if normalized == rule.suffix || strings.HasSuffix(normalized, "."+rule.suffix) {
			return true
		}
	}
	return false
}

// Resolve builds the checkout session for a request.
func (r *Registry) Resolve(host, referrer string) CheckoutSession {
	return r.WithReferrer(r.ForHost(host), referrer)
}

// WithReferrer builds the session for an already resolved shop.
func (r *Registry) WithReferrer(shop ShopConfig, referrer string) CheckoutSession {
	return CheckoutSession{
		Shop:     shop,
		Referrer: referrer,
		Belgian:  isBelgian(referrer, r.referrerPath, shop.ShopType),
	}
}

// ReferrerPath is the configured Belgian entry marker.
func (r *Registry) ReferrerPath() string {
	return r.referrerPath
}

// ConfigFor returns a copy of the built-in configuration for a shop type.
func ConfigFor(shopType enums.ShopType) ShopConfig {
	if shop, ok := builtinShops[shopType]; ok {
		return shop
	}
	return builtinShops[enums.ShopGermany]
}

// IsBelgianCheckout reports whether checkout runs the Belgian variant.
func IsBelgianCheckout(referrer string, shopType enums.ShopType) bool {
	return isBelgian(referrer, BelgianReferrerPath, shopType)
}

// the referrer must equal the marker exactly
func isBelgian(referrer, marker string, shopType enums.ShopType) bool {
	return referrer == marker || shopType == enums.ShopBelgium
}

func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(host, ".")
	return strings.TrimPrefix(host, "www.")
}
