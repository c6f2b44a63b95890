package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenrril/tiendamx/internal/domain"
)

func fp(v float64) *float64 { return &v }

func newShippingFixture() (*ShippingUC, *fakeCartRepo, *fakeProvider) {
	carts := newFakeCartRepo()
	carts.carts[7] = true
	carts.lines[7] = []domain.CartLine{
		{ItemID: 1, VariantID: 10, SizeID: 2, Quantity: 1, UnitPrice: decimal.NewFromInt(350), Available: 5, WeightKg: fp(0.3)},
	}
	carts.carts[8] = true
	prov := &fakeProvider{}
	uc := &ShippingUC{
		Carts:    carts,
		Provider: prov,
		Postal: &fakePostal{places: map[string]domain.PostalPlace{
			"61422": {PostalCode: "61422", CountryCode: "MX", State: "Michoacán de Ocampo", City: "Uruapan"},
		}},
		Origin:       domain.Address{PostalCode: "64000", CountryCode: "MX", City: "Monterrey"},
		Defaults:     domain.ParcelDefaults{UnitWeightKg: 0.3, LengthCm: 30, WidthCm: 25, HeightCm: 10},
		ShipmentType: "package",
		Now:          func() time.Time { return time.UnixMilli(1700000000000) },
	}
	return uc, carts, prov
}

func TestQuoteCartRanksSuccessfulRates(t *testing.T) {
	uc, _, prov := newShippingFixture()
	prov.attempts = []domain.RateAttempt{
		{Provider: "A", Total: decimal.NewFromInt(300), Success: true},
		{Provider: "B", Total: decimal.NewFromInt(150), Success: true},
		{Provider: "C", Success: false, Errors: []string{"sin cobertura"}},
	}

	q, err := uc.QuoteCart(context.Background(), QuoteRequest{CartID: 7, PostalCode: "61422"})
	require.NoError(t, err)
	require.Len(t, q.Quotations, 2)
	assert.Equal(t, "B", q.Quotations[0].Provider)
	assert.Equal(t, "A", q.Quotations[1].Provider)
	require.Len(t, q.Failed, 1)
	assert.Equal(t, "C", q.Failed[0].Provider)

	assert.Equal(t, "MX", q.Destination.CountryCode)
	assert.Equal(t, "Uruapan", q.Destination.City)
	assert.Equal(t, "7-1700000000000", q.OrderID)
	require.Len(t, prov.calls, 1)
	assert.Equal(t, "64000", prov.calls[0].From.PostalCode)
	assert.Equal(t, "package", prov.calls[0].ShipmentType)
}

func TestQuoteCartNoRatesIsNotAnError(t *testing.T) {
	uc, _, prov := newShippingFixture()
	prov.attempts = []domain.RateAttempt{
		{Provider: "A", Errors: []string{"código postal sin cobertura"}},
		{Provider: "B", Errors: []string{"servicio suspendido"}},
	}

	q, err := uc.QuoteCart(context.Background(), QuoteRequest{CartID: 7, PostalCode: "61422"})
	require.NoError(t, err)
	assert.Empty(t, q.Quotations)
	require.Len(t, q.Failed, 2)
	assert.Equal(t, []string{"servicio suspendido"}, q.Failed[1].Errors)
}

func TestQuoteCartAppliesWeightFloor(t *testing.T) {
	uc, _, prov := newShippingFixture()
	prov.attempts = []domain.RateAttempt{}

	q, err := uc.QuoteCart(context.Background(), QuoteRequest{CartID: 7, PostalCode: "61422"})
	require.NoError(t, err)
	assert.Equal(t, 0.5, q.Parcel.WeightKg)
	assert.Equal(t, 0.5, prov.calls[0].Parcel.WeightKg)
	assert.True(t, prov.calls[0].Parcel.DeclaredValue.Equal(decimal.NewFromInt(350)))
}

func TestQuoteCartUsesExplicitCountry(t *testing.T) {
	uc, _, prov := newShippingFixture()
	_, err := uc.QuoteCart(context.Background(), QuoteRequest{CartID: 7, PostalCode: "61422", CountryCode: "us"})
	require.NoError(t, err)
	assert.Equal(t, "US", prov.calls[0].To.CountryCode)
}

func TestQuoteCartProviderFailure(t *testing.T) {
	uc, _, prov := newShippingFixture()
	prov.err = errors.New("dial tcp: i/o timeout")

	_, err := uc.QuoteCart(context.Background(), QuoteRequest{CartID: 7, PostalCode: "61422"})
	assert.True(t, errors.Is(err, domain.ErrShippingProviderUnavailable))
	assert.NotContains(t, err.Error(), "dial tcp")
}

func TestQuoteCartValidation(t *testing.T) {
	testCases := []struct {
		name   string
		req    QuoteRequest
		postal error
		target error
	}{
		{name: "missing postal code", req: QuoteRequest{CartID: 7, PostalCode: "  "}, target: domain.ErrValidation},
		{name: "missing cart id", req: QuoteRequest{PostalCode: "61422"}, target: domain.ErrValidation},
		{name: "unknown cart", req: QuoteRequest{CartID: 99, PostalCode: "61422"}, target: domain.ErrNotFound},
		{name: "empty cart", req: QuoteRequest{CartID: 8, PostalCode: "61422"}, target: domain.ErrValidation},
		{name: "unknown postal code", req: QuoteRequest{CartID: 7, PostalCode: "00000"}, target: domain.ErrValidation},
		{name: "postal lookup down", req: QuoteRequest{CartID: 7, PostalCode: "61422"}, postal: domain.ErrPostalLookupUnavailable, target: domain.ErrPostalLookupUnavailable},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			uc, _, prov := newShippingFixture()
			if tc.postal != nil {
				uc.Postal.(*fakePostal).err = tc.postal
			}
			_, err := uc.QuoteCart(context.Background(), tc.req)
			assert.True(t, errors.Is(err, tc.target), "got %v", err)
			assert.Empty(t, prov.calls, "no debe llamar a la paquetería")
		})
	}
}

func TestQuoteCartRejectsLinesWithoutStock(t *testing.T) {
	uc, carts, prov := newShippingFixture()
	carts.lines[7] = append(carts.lines[7], domain.CartLine{
		ItemID: 2, VariantID: 11, SizeID: 3, Quantity: 1, UnitPrice: decimal.Zero, Available: 0, WeightKg: fp(2),
	})

	_, err := uc.QuoteCart(context.Background(), QuoteRequest{CartID: 7, PostalCode: "61422"})
	assert.True(t, errors.Is(err, domain.ErrValidation), "got %v", err)
	assert.Empty(t, prov.calls)
}
