package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/stanton-energie/heizoel-backend/pkg/db/models"
	"github.com/stanton-energie/heizoel-backend/pkg/enums"
)

// SeedOrder inserts a card order in status Neu; mutate adjusts it before insert.
func SeedOrder(t *testing.T, conn *gorm.DB, mutate ...func(*models.Order)) models.Order {
	t.Helper()
	id := uuid.New()
	order := models.Order{
		ID:                          id,
		OrderNumber:                 fmt.Sprintf("HO-261017-%06d", id.ID()%1_000_000),
		ShopType:                    enums.ShopGermany,
		Amount:                      decimal.RequireFromString("1189.50"),
		Currency:                    enums.CurrencyEUR,
		CustomerName:                "Erika Mustermann",
		CustomerEmail:               "erika@example.de",
		DeliveryStreet:              "Leopoldstraße 12",
		DeliveryPostcode:            "80798",
		DeliveryCity:                "München",
		Product:                     "Heizöl Premium",
		Liters:                      decimal.NewFromInt(1500),
		PricePerLiter:               decimal.RequireFromString("0.7930"),
		PaymentMethod:               enums.PaymentMethodCard,
		Status:                      enums.OrderStatusNew,
		CustomerLanguage:            "de",
		ShouldSendOrderConfirmation: true,
	}
	for _, fn := range mutate {
		fn(&order)
	}
	require.NoError(t, conn.Create(&order).Error)
	return order
}
