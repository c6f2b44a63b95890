package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenrril/tiendamx/internal/adapters/spreadsheet"
	"github.com/phenrril/tiendamx/internal/domain"
	"github.com/phenrril/tiendamx/internal/usecase"
)

type stubStock struct {
	summary  *domain.VariantStock
	err      error
	lastUpd  domain.PricingUpdate
	imported []domain.StockImportRow
}

func (s *stubStock) VariantPriceSummary(_ context.Context, id int64) (*domain.VariantStock, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.summary, nil
}

func (s *stubStock) SetVariantPricing(_ context.Context, id int64, upd domain.PricingUpdate) (*domain.VariantStock, error) {
	s.lastUpd = upd
	if s.err != nil {
		return nil, s.err
	}
	return s.summary, nil
}

func (s *stubStock) Import(_ context.Context, rows []domain.StockImportRow) domain.ImportReport {
	s.imported = rows
	return domain.ImportReport{VariantsUpdated: 1, RowsApplied: len(rows)}
}

func (s *stubStock) ExportRows(context.Context) ([]domain.StockExportRow, error) {
	return []domain.StockExportRow{{ProductID: 1, VariantID: 10, SizeID: 1, Quantity: 2, Price: decimal.NewNullDecimal(decimal.NewFromInt(500))}}, nil
}

type stubShipping struct {
	quote *domain.ShippingQuote
	err   error
	req   usecase.QuoteRequest
}

func (s *stubShipping) QuoteCart(_ context.Context, req usecase.QuoteRequest) (*domain.ShippingQuote, error) {
	s.req = req
	return s.quote, s.err
}

type stubCheckout struct {
	eventErr error
	sig      string
}

func (s *stubCheckout) Checkout(_ context.Context, in usecase.CheckoutInput) (*usecase.CheckoutResult, error) {
	if in.CartID == 0 {
		return nil, fmt.Errorf("%w: cartId requerido", domain.ErrValidation)
	}
	return &usecase.CheckoutResult{OrderID: 1, ClientSecret: "sec", Total: decimal.RequireFromString("820.5")}, nil
}

func (s *stubCheckout) HandlePaymentEvent(_ context.Context, _ []byte, sig string) error {
	s.sig = sig
	return s.eventErr
}

func (s *stubCheckout) Refund(_ context.Context, id int64) (*domain.Order, error) {
	return &domain.Order{ID: id, Status: domain.OrderStatusRefunded}, nil
}

func (s *stubCheckout) Order(_ context.Context, id int64) (*domain.Order, error) {
	if id != 1 {
		return nil, domain.ErrNotFound
	}
	return &domain.Order{ID: 1, Status: domain.OrderStatusPaid}, nil
}

type fixture struct {
	h        http.Handler
	stock    *stubStock
	shipping *stubShipping
	checkout *stubCheckout
}

func newFixture() *fixture {
	lo := decimal.NewFromInt(500)
	f := &fixture{
		stock: &stubStock{summary: &domain.VariantStock{
			VariantID:   10,
			ProductID:   1,
			PriceRollup: domain.PriceRollup{PriceMin: &lo, PriceMax: &lo, DistinctPrices: 1, Uniform: true},
			Sizes:       []domain.SizeStock{{SizeID: 1, Label: "S", Quantity: 2, Price: decimal.NewNullDecimal(lo)}},
		}},
		shipping: &stubShipping{},
		checkout: &stubCheckout{},
	}
	f.h = New(Deps{Stock: f.stock, Shipping: f.shipping, Checkout: f.checkout, AdminKey: "clave"})
	return f
}

func do(h http.Handler, method, path string, body string, hdr map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func TestVariantStockEnvelope(t *testing.T) {
	f := newFixture()
	rec, out := do(f.h, http.MethodGet, "/variants/10/stock", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["success"])
	data := out["data"].(map[string]any)
	assert.Equal(t, float64(10), data["variantId"])
	assert.Equal(t, true, data["uniform"])
	assert.Equal(t, "500", data["priceMin"])
	sizes := data["sizes"].([]any)
	require.Len(t, sizes, 1)
	assert.Equal(t, "S", sizes[0].(map[string]any)["label"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestErrorMapping(t *testing.T) {
	testCases := []struct {
		err  error
		code int
	}{
		{domain.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: precio", domain.ErrValidation), http.StatusBadRequest},
		{domain.ErrShippingProviderUnavailable, http.StatusServiceUnavailable},
		{domain.ErrPostalLookupUnavailable, http.StatusServiceUnavailable},
		{domain.ErrPaymentProvider, http.StatusBadGateway},
		{errors.New("conexión perdida"), http.StatusInternalServerError},
	}
	for _, tc := range testCases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			f := newFixture()
			f.stock.err = tc.err
			rec, out := do(f.h, http.MethodGet, "/variants/10/stock", "", nil)
			assert.Equal(t, tc.code, rec.Code)
			assert.Equal(t, false, out["success"])
			assert.NotEmpty(t, out["error"])
			assert.NotContains(t, out["error"], "conexión perdida")
		})
	}

	f := newFixture()
	rec, _ := do(f.h, http.MethodGet, "/variants/abc/stock", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminRequiresKey(t *testing.T) {
	f := newFixture()
	body := `{"uniformPrice":"700"}`

	rec, _ := do(f.h, http.MethodPut, "/admin/variants/10", body, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec, _ = do(f.h, http.MethodPut, "/admin/variants/10", body, map[string]string{"X-Admin-Key": "otra"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, out := do(f.h, http.MethodPut, "/admin/variants/10", body, map[string]string{"X-Admin-Key": "clave"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["success"])
	require.NotNil(t, f.stock.lastUpd.UniformPrice)
	assert.Equal(t, "700", f.stock.lastUpd.UniformPrice.String())

	rec, _ = do(f.h, http.MethodPut, "/admin/variants/10", `{"precio":1}`, map[string]string{"X-Admin-Key": "clave"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminDisabledWithoutKey(t *testing.T) {
	h := New(Deps{Stock: &stubStock{}})
	rec, _ := do(h, http.MethodPut, "/admin/variants/10", `{}`, map[string]string{"X-Admin-Key": ""})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCartQuoteShape(t *testing.T) {
	f := newFixture()
	days := 3
	f.shipping.quote = &domain.ShippingQuote{
		OrderID:     "7-1",
		Quotations:  []domain.RateAttempt{{Provider: "Estafeta", Total: decimal.RequireFromString("120.50"), Days: &days, Success: true}},
		Failed:      []domain.RateAttempt{},
		Destination: domain.Address{PostalCode: "61422", CountryCode: "MX"},
		Parcel:      domain.Parcel{WeightKg: 0.5},
	}
	rec, out := do(f.h, http.MethodPost, "/cart/quote", `{"cartId":7,"postalCode":"61422"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["success"])
	assert.Len(t, out["quotations"], 1)
	assert.Equal(t, 0.5, out["parcel"].(map[string]any)["weight"])
	assert.Equal(t, "MX", out["destination"].(map[string]any)["countryCode"])
	assert.Equal(t, int64(7), f.shipping.req.CartID)

	f.shipping.err = domain.ErrShippingProviderUnavailable
	rec, out = do(f.h, http.MethodPost, "/cart/quote", `{"cartId":7,"postalCode":"61422"}`, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, false, out["success"])

	rec, _ = do(f.h, http.MethodPost, "/cart/quote", `{"cartId":`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckoutAndWebhook(t *testing.T) {
	f := newFixture()
	rec, out := do(f.h, http.MethodPost, "/checkout", `{"cartId":7,"email":"a@b.mx","postalCode":"61422"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "sec", out["data"].(map[string]any)["clientSecret"])

	rec, _ = do(f.h, http.MethodPost, "/checkout", `{"email":"a@b.mx"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(f.h, http.MethodPost, "/webhooks/stripe", `{}`, map[string]string{"Stripe-Signature": "t=1,v1=abc"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "t=1,v1=abc", f.checkout.sig)

	f.checkout.eventErr = fmt.Errorf("%w: firma", domain.ErrValidation)
	rec, _ = do(f.h, http.MethodPost, "/webhooks/stripe", `{}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(f.h, http.MethodGet, "/orders/2", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, out = do(f.h, http.MethodPost, "/admin/orders/1/refund", "", map[string]string{"X-Admin-Key": "clave"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "refunded", out["data"].(map[string]any)["status"])
}

func TestAdminStockImportExport(t *testing.T) {
	f := newFixture()

	req := httptest.NewRequest(http.MethodGet, "/admin/stock/export", nil)
	req.Header.Set("X-Admin-Key", "clave")
	rec := httptest.NewRecorder()
	f.h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "stock_")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "stock.xlsx")
	require.NoError(t, err)
	require.NoError(t, spreadsheet.WriteStock(part, []domain.StockExportRow{
		{VariantID: 10, SizeID: 1, Quantity: 4, Price: decimal.NewNullDecimal(decimal.NewFromInt(450))},
	}))
	require.NoError(t, mw.Close())

	req = httptest.NewRequest(http.MethodPost, "/admin/stock/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Admin-Key", "clave")
	rec = httptest.NewRecorder()
	f.h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, f.stock.imported, 1)
	assert.Equal(t, 4, f.stock.imported[0].Quantity)
}

func TestRecoveryMiddleware(t *testing.T) {
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}), RequestID, Recovery, Logging)
	rec, out := do(h, http.MethodGet, "/", "", map[string]string{"X-Request-ID": "req-1"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "req-1", rec.Header().Get("X-Request-ID"))
}
