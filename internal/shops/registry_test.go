package shops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanton-energie/heizoel-backend/pkg/config"
	"github.com/stanton-energie/heizoel-backend/pkg/enums"
)

func newTestRegistry(domains map[string]string) *Registry {
	return NewRegistry(config.ShopsConfig{
		Domains:      domains,
		DefaultShop:  "germany",
		ReferrerPath: BelgianReferrerPath,
	})
}

func TestIsBelgianCheckoutTruthTable(t *testing.T) {
	cases := []struct {
		name     string
		referrer string
		shop     enums.ShopType
		want     bool
	}{
		{name: "marker and belgium", referrer: "/7/home", shop: enums.ShopBelgium, want: true},
		{name: "marker only", referrer: "/7/home", shop: enums.ShopGermany, want: true},
		{name: "belgium only", referrer: "/3/home", shop: enums.ShopBelgium, want: true},
		{name: "neither", referrer: "/3/home", shop: enums.ShopGermany, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsBelgianCheckout(tc.referrer, tc.shop))
		})
	}
}

func TestRegistryForHost(t *testing.T) {
	registry := newTestRegistry(nil)

	cases := map[string]enums.ShopType{
		"www.mazoutvandaag.be":    enums.ShopBelgium,
		"mazoutvandaag.be:443":    enums.ShopBelgium,
		"shop.heizoel-stanton.at": enums.ShopAustria,
		"HEIZOEL-STANTON.DE":      enums.ShopGermany,
		"www.gasolio-stanton.it":  enums.ShopItaly,
		"heatingoil-stanton.mt.":  enums.ShopMalta,
		"localhost:8080":          enums.ShopGermany,
		"evil-mazoutvandaag.be":   enums.ShopGermany,
		"":                        enums.ShopGermany,
	}
	for host, want := range cases {
		assert.Equal(t, want, registry.ForHost(host).ShopType, host)
	}
}

func TestRegistryConfiguredDomainsOverrideBuiltins(t *testing.T) {
	registry := newTestRegistry(map[string]string{
		"staging.example.com": "belgium",
		"heizoel-stanton.de":  "austria",
		"broken.example.com":  "atlantis",
	})

	assert.Equal(t, enums.ShopBelgium, registry.ForHost("staging.example.com").ShopType)
	assert.Equal(t, enums.ShopAustria, registry.ForHost("www.heizoel-stanton.de").ShopType)
	assert.Equal(t, enums.ShopGermany, registry.ForHost("broken.example.com").ShopType)
}

func TestRegistryUnknownDefaultFallsBackToGermany(t *testing.T) {
	registry := NewRegistry(config.ShopsConfig{DefaultShop: "nowhere"})

	assert.Equal(t, enums.ShopGermany, registry.ForHost("unknown.test").ShopType)
	assert.Equal(t, BelgianReferrerPath, registry.ReferrerPath())
}

func TestResolveBelgianScenario(t *testing.T) {
	registry := newTestRegistry(nil)

	session := registry.Resolve("www.mazoutvandaag.be", "")
	require.True(t, session.Belgian)
	assert.Equal(t, "MazoutVandaag", session.SettlementSystem())

	variant := session.Variant()
	assert.Equal(t, "nl", variant.CustomerLanguage)
	assert.False(t, variant.ShouldSendOrderConfirmation)
	assert.True(t, variant.ShouldSendInvoice)
}

func TestResolveReferrerMarkerOnGermanDomain(t *testing.T) {
	registry := newTestRegistry(nil)

	session := registry.Resolve("www.heizoel-stanton.de", "/7/home")
	assert.True(t, session.Belgian)
	assert.Equal(t, enums.ShopGermany, session.Shop.ShopType)
	assert.Equal(t, "MazoutVandaag", session.SettlementSystem())
	assert.Equal(t, "nl", session.Variant().CustomerLanguage)
}

func TestResolveMatchesReferrerMarkerExactly(t *testing.T) {
	registry := newTestRegistry(nil)

	for _, referrer := range []string{" /7/home", "/7/home ", "/7/home/", "/7/HOME"} {
		session := registry.Resolve("heizoel-stanton.de", referrer)
		assert.False(t, session.Belgian, referrer)
		assert.Equal(t, IsBelgianCheckout(referrer, enums.ShopGermany), session.Belgian, referrer)
	}
}

func TestResolveUsesConfiguredReferrerMarker(t *testing.T) {
	registry := NewRegistry(config.ShopsConfig{DefaultShop: "germany", ReferrerPath: "/be/start"})

	assert.True(t, registry.Resolve("heizoel-stanton.de", "/be/start").Belgian)
	assert.False(t, registry.Resolve("heizoel-stanton.de", BelgianReferrerPath).Belgian)
}

func TestWithReferrerKeepsShop(t *testing.T) {
	registry := newTestRegistry(nil)
	shop := registry.ForHost("gasolio-stanton.it")

	session := registry.WithReferrer(shop, "/7/home")
	assert.True(t, session.Belgian)
	assert.Equal(t, enums.ShopItaly, session.Shop.ShopType)
	assert.Equal(t, "/7/home", session.Referrer)
}

func TestResolveStandardVariant(t *testing.T) {
	registry := newTestRegistry(nil)

	session := registry.Resolve("www.gasolio-stanton.it", "/3/home")
	require.False(t, session.Belgian)
	assert.Equal(t, "StantonItalia", session.SettlementSystem())
	assert.Equal(t, VariantSettings{
		CustomerLanguage:            "it",
		ShouldSendOrderConfirmation: true,
		ShouldSendInvoice:           false,
	}, session.Variant())
}

func TestResolveReturnsIndependentCopies(t *testing.T) {
	registry := newTestRegistry(nil)

	first := registry.Resolve("heizoel-stanton.de", "")
	first.Shop.Name = "mutated"

	second := registry.Resolve("heizoel-stanton.de", "")
	assert.Equal(t, "Stanton Energie", second.Shop.Name)
}

func TestSessionContextRoundTrip(t *testing.T) {
	_, ok := SessionFromContext(context.Background())
	assert.False(t, ok)

	session := newTestRegistry(nil).Resolve("mazoutvandaag.be", "")
	ctx := WithSession(context.Background(), session)

	got, ok := SessionFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, session, got)
}

func TestRegistryKnowsStorefrontHosts(t *testing.T) {
	registry := NewRegistry(config.ShopsConfig{Domains: map[string]string{"mazout.example.be": "belgium"}})

	assert.True(t, registry.Knows("www.heizoel-stanton.de"))
	assert.True(t, registry.Knows("shop.mazout.example.be:443"))
	assert.False(t, registry.Knows("evil-heizoel-stanton.de"))
	assert.False(t, registry.Knows("localhost"))
}
