package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	pgDup := fmt.Errorf("insert supplier: %w", &pgconn.PgError{Code: "23505", ConstraintName: "ux_suppliers_name_region"})
	pgFK := &pgconn.PgError{Code: "23503", ConstraintName: "fk_orders_supplier"}
	sqliteDup := errors.New("UNIQUE constraint failed: bank_accounts.iban")

	cases := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{"nil", nil, "", false},
		{"postgres any", pgDup, "", true},
		{"postgres named", pgDup, "ux_suppliers_name_region", true},
		{"postgres other index", pgDup, "ux_orders_order_number", false},
		{"postgres foreign key", pgFK, "", false},
		{"sqlite", sqliteDup, "", true},
		{"sqlite column", sqliteDup, "bank_accounts.iban", true},
		{"postgres text", errors.New(`ERROR: duplicate key value violates unique constraint "ux_orders_order_number"`), "ux_orders_order_number", true},
		{"unrelated", errors.New("connection reset"), "", false},
	}
	for _, tc := range cases {
		if got := IsUniqueViolation(tc.err, tc.constraint); got != tc.want {
			t.Fatalf("%s: got %v want %v", tc.name, got, tc.want)
		}
	}
}
