package suppliers

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/stanton-energie/heizoel-backend/pkg/config"
	"github.com/stanton-energie/heizoel-backend/pkg/db"
	"github.com/stanton-energie/heizoel-backend/pkg/db/dbtest"
	"github.com/stanton-energie/heizoel-backend/pkg/db/models"
	pkgerrors "github.com/stanton-energie/heizoel-backend/pkg/errors"
	"github.com/stanton-energie/heizoel-backend/pkg/logger"
)

func newTestService(t *testing.T, conn *gorm.DB, policy string) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:   NewRepository(conn),
		Tx:     db.Wrap(conn),
		Policy: policy,
		Logger: logger.New(logger.Options{ServiceName: "suppliers-test"}),
	})
	require.NoError(t, err)
	return svc
}

func seedSupplier(t *testing.T, conn *gorm.DB, id uuid.UUID, name string, address *string, active bool, postcodes ...models.SupplierPostcode) {
	t.Helper()
	supplier := models.Supplier{ID: id, Name: name, Address: address, Region: "Bayern", IsActive: active}
	require.NoError(t, conn.Create(&supplier).Error)
	for _, pc := range postcodes {
		pc.ID = uuid.New()
		pc.SupplierID = id
		require.NoError(t, conn.Create(&pc).Error)
	}
}

func strPtr(v string) *string { return &v }

func TestResolveSingleMatch(t *testing.T) {
	conn := dbtest.Open(t)
	id := uuid.New()
	seedSupplier(t, conn, id, "Stanton Energie", strPtr("Leopoldstraße 1, München"), true,
		models.SupplierPostcode{Postcode: "80798"})

	assignment, err := newTestService(t, conn, "").Resolve(context.Background(), " 80798 ")
	require.NoError(t, err)
	require.NotNil(t, assignment)
	assert.Equal(t, &Assignment{
		SupplierID:   id,
		SupplierName: "Stanton Energie",
		Address:      "Leopoldstraße 1, München",
	}, assignment)
}

func TestResolvePrefersPostcodeAddress(t *testing.T) {
	conn := dbtest.Open(t)
	seedSupplier(t, conn, uuid.New(), "Stanton Energie", strPtr("Hauptsitz"), true,
		models.SupplierPostcode{Postcode: "80798", Address: strPtr("Depot Schwabing")})

	assignment, err := newTestService(t, conn, "").Resolve(context.Background(), "80798")
	require.NoError(t, err)
	require.NotNil(t, assignment)
	assert.Equal(t, "Depot Schwabing", assignment.Address)
}

func TestResolveFallsBackWhenAddressMissing(t *testing.T) {
	conn := dbtest.Open(t)
	seedSupplier(t, conn, uuid.New(), "Nordöl", nil, true, models.SupplierPostcode{Postcode: "20095"})

	assignment, err := newTestService(t, conn, "").Resolve(context.Background(), "20095")
	require.NoError(t, err)
	require.NotNil(t, assignment)
	assert.Equal(t, AddressUnavailable, assignment.Address)
}

func TestResolveNoMatchReturnsNil(t *testing.T) {
	conn := dbtest.Open(t)
	seedSupplier(t, conn, uuid.New(), "Stanton Energie", nil, true, models.SupplierPostcode{Postcode: "80798"})
	seedSupplier(t, conn, uuid.New(), "Inaktiv GmbH", nil, false, models.SupplierPostcode{Postcode: "10115"})

	svc := newTestService(t, conn, "")
	for _, postcode := range []string{"99999", "10115"} {
		assignment, err := svc.Resolve(context.Background(), postcode)
		require.NoError(t, err, postcode)
		assert.Nil(t, assignment, postcode)
	}
}

func TestResolveAmbiguousPolicies(t *testing.T) {
	low := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	high := uuid.MustParse("ffffffff-0000-0000-0000-000000000001")

	conn := dbtest.Open(t)
	seedSupplier(t, conn, high, "Zweitversorger", nil, true, models.SupplierPostcode{Postcode: "80798"})
	seedSupplier(t, conn, low, "Stanton Energie", nil, true, models.SupplierPostcode{Postcode: "80798"})

	assignment, err := newTestService(t, conn, config.SelectionPolicyFirst).Resolve(context.Background(), "80798")
	require.NoError(t, err)
	require.NotNil(t, assignment)
	assert.Equal(t, low, assignment.SupplierID)

	_, err = newTestService(t, conn, config.SelectionPolicyRejectAmbiguous).Resolve(context.Background(), "80798")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

type failingRepo struct {
	Repository
}

func (failingRepo) LookupByPostcode(context.Context, string) ([]LookupRow, error) {
	return nil, errors.New("connection reset")
}

func TestResolveLookupFailureIsRecoverable(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(ServiceParams{
		Repo:   failingRepo{Repository: NewRepository(conn)},
		Tx:     db.Wrap(conn),
		Logger: logger.New(logger.Options{ServiceName: "suppliers-test"}),
	})
	require.NoError(t, err)

	assignment, err := svc.Resolve(context.Background(), "80798")
	assert.Nil(t, assignment)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.True(t, pkgerrors.MetadataFor(pkgerrors.CodeDependency).Retryable)
}

func TestResolveRequiresPostcode(t *testing.T) {
	svc := newTestService(t, dbtest.Open(t), "")
	_, err := svc.Resolve(context.Background(), "  ")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestNewServiceRejectsUnknownPolicy(t *testing.T) {
	conn := dbtest.Open(t)
	_, err := NewService(ServiceParams{
		Repo:   NewRepository(conn),
		Tx:     db.Wrap(conn),
		Policy: "random",
		Logger: logger.New(logger.Options{ServiceName: "suppliers-test"}),
	})
	require.Error(t, err)
}

func TestCreateUpdateAndAttachPostcodes(t *testing.T) {
	conn := dbtest.Open(t)
	svc := newTestService(t, conn, "")
	ctx := context.Background()
	inactive := false

	created, err := svc.Create(ctx, CreateInput{
		Name:      " Stanton Energie ",
		Region:    "Bayern",
		IsActive:  &inactive,
		Postcodes: []PostcodeInput{{Postcode: "80798"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Stanton Energie", created.Name)
	assert.False(t, created.IsActive)

	assignment, err := svc.Resolve(ctx, "80798")
	require.NoError(t, err)
	assert.Nil(t, assignment)

	active := true
	updated, err := svc.Update(ctx, created.ID, UpdateInput{IsActive: &active, Address: strPtr("Leopoldstraße 1")})
	require.NoError(t, err)
	assert.True(t, updated.IsActive)
	require.NotNil(t, updated.Address)
	assert.Len(t, updated.Postcodes, 1)

	added, err := svc.AddPostcodes(ctx, created.ID, []PostcodeInput{{Postcode: "80799"}, {Postcode: "80801"}})
	require.NoError(t, err)
	assert.Len(t, added, 2)

	assignment, err = svc.Resolve(ctx, "80801")
	require.NoError(t, err)
	require.NotNil(t, assignment)
	assert.Equal(t, "Leopoldstraße 1", assignment.Address)

	_, err = svc.AddPostcodes(ctx, created.ID, []PostcodeInput{{Postcode: "80798"}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestUpdateAndAttachUnknownSupplier(t *testing.T) {
	svc := newTestService(t, dbtest.Open(t), "")
	name := "Ghost"

	_, err := svc.Update(context.Background(), uuid.New(), UpdateInput{Name: &name})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.AddPostcodes(context.Background(), uuid.New(), []PostcodeInput{{Postcode: "1000"}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListPaginates(t *testing.T) {
	conn := dbtest.Open(t)
	for i := 0; i < 3; i++ {
		seedSupplier(t, conn, uuid.New(), "Lieferant", nil, true)
	}

	page, err := newTestService(t, conn, "").List(context.Background(), ListParams{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.NotEmpty(t, page.Cursor)

	_, err = newTestService(t, conn, "").List(context.Background(), ListParams{Cursor: "%%%"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
