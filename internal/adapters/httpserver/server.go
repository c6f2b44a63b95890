package httpserver

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/phenrril/tiendamx/internal/domain"
	"github.com/phenrril/tiendamx/internal/usecase"
)

type CatalogService interface {
	List(ctx context.Context, f domain.ProductFilter) ([]domain.CatalogProduct, int64, error)
	Get(ctx context.Context, id int64) (*domain.CatalogProduct, error)
}

type StockService interface {
	VariantPriceSummary(ctx context.Context, variantID int64) (*domain.VariantStock, error)
	SetVariantPricing(ctx context.Context, variantID int64, upd domain.PricingUpdate) (*domain.VariantStock, error)
	Import(ctx context.Context, rows []domain.StockImportRow) domain.ImportReport
	ExportRows(ctx context.Context) ([]domain.StockExportRow, error)
}

type CartService interface {
	Create(ctx context.Context) (*domain.CartView, error)
	Get(ctx context.Context, cartID int64) (*domain.CartView, error)
	AddItem(ctx context.Context, cartID, variantID, sizeID int64, qty int) (*domain.CartView, error)
	UpdateItem(ctx context.Context, cartID, itemID int64, qty int) (*domain.CartView, error)
	RemoveItem(ctx context.Context, cartID, itemID int64) (*domain.CartView, error)
}

type ShippingService interface {
	QuoteCart(ctx context.Context, req usecase.QuoteRequest) (*domain.ShippingQuote, error)
}

type CheckoutService interface {
	Checkout(ctx context.Context, in usecase.CheckoutInput) (*usecase.CheckoutResult, error)
	HandlePaymentEvent(ctx context.Context, payload []byte, signature string) error
	Refund(ctx context.Context, orderID int64) (*domain.Order, error)
	Order(ctx context.Context, orderID int64) (*domain.Order, error)
}

type Deps struct {
	Catalog  CatalogService
	Stock    StockService
	Carts    CartService
	Shipping ShippingService
	Checkout CheckoutService
	// AdminKey protege las rutas /admin; vacío las deshabilita.
	AdminKey string
}

type Server struct {
	mux      *http.ServeMux
	catalog  CatalogService
	stock    StockService
	carts    CartService
	shipping ShippingService
	checkout CheckoutService
	adminKey []byte
}

func New(d Deps) http.Handler {
	s := &Server{
		mux:      http.NewServeMux(),
		catalog:  d.Catalog,
		stock:    d.Stock,
		carts:    d.Carts,
		shipping: d.Shipping,
		checkout: d.Checkout,
		adminKey: []byte(d.AdminKey),
	}
	s.routes()
	return Chain(s.mux,
		RequestID,
		Recovery,
		Logging,
	)
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})

	s.mux.HandleFunc("GET /products", s.apiProducts)
	s.mux.HandleFunc("GET /products/{id}", s.apiProductByID)
	s.mux.HandleFunc("GET /variants/{id}/stock", s.apiVariantStock)

	s.mux.HandleFunc("POST /cart", s.apiCartCreate)
	s.mux.HandleFunc("POST /cart/quote", s.apiCartQuote)
	s.mux.HandleFunc("GET /cart/{id}", s.apiCartGet)
	s.mux.HandleFunc("POST /cart/{id}/items", s.apiCartAddItem)
	s.mux.HandleFunc("PUT /cart/{id}/items/{itemId}", s.apiCartUpdateItem)
	s.mux.HandleFunc("DELETE /cart/{id}/items/{itemId}", s.apiCartRemoveItem)

	s.mux.HandleFunc("POST /checkout", s.apiCheckout)
	s.mux.HandleFunc("GET /orders/{id}", s.apiOrder)
	s.mux.HandleFunc("POST /webhooks/stripe", s.webhookStripe)

	// Admin
	s.mux.Handle("PUT /admin/variants/{id}", s.requireAdmin(s.adminSetVariantPricing))
	s.mux.Handle("GET /admin/stock/export", s.requireAdmin(s.adminStockExport))
	s.mux.Handle("POST /admin/stock/import", s.requireAdmin(s.adminStockImport))
	s.mux.Handle("POST /admin/orders/{id}/refund", s.requireAdmin(s.adminRefund))
}

func (s *Server) requireAdmin(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := []byte(r.Header.Get("X-Admin-Key"))
		if len(s.adminKey) == 0 || subtle.ConstantTimeCompare(key, s.adminKey) != 1 {
			writeFail(w, http.StatusUnauthorized, "no autorizado")
			return
		}
		next(w, r)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, code int, data any) {
	writeJSON(w, code, map[string]any{"success": true, "data": data})
}

func writeFail(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"success": false, "error": msg})
}

// writeError traduce errores de dominio a códigos HTTP. Los errores no
// tipados se registran y se informan como error interno sin detalle.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeFail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrValidation):
		writeFail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrShippingProviderUnavailable):
		writeFail(w, http.StatusServiceUnavailable, domain.ErrShippingProviderUnavailable.Error())
	case errors.Is(err, domain.ErrPostalLookupUnavailable):
		writeFail(w, http.StatusServiceUnavailable, domain.ErrPostalLookupUnavailable.Error())
	case errors.Is(err, domain.ErrPaymentProvider):
		writeFail(w, http.StatusBadGateway, domain.ErrPaymentProvider.Error())
	default:
		log.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("error interno")
		writeFail(w, http.StatusInternalServerError, "error interno")
	}
}

func decodeJSON(r *http.Request, limit int64, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, limit))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: json inválido", domain.ErrValidation)
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s inválido", domain.ErrValidation, name)
	}
	return id, nil
}
