package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/phenrril/tiendamx/internal/domain"
)

// --- Stock ---

type stockKey struct{ variant, size int64 }

type fakeStockRepo struct {
	mu       sync.Mutex
	products map[int64]*domain.Product
	variants map[int64]*domain.Variant
	sizes    map[int64]domain.Size
	stock    map[stockKey]domain.StockEntry
	writes   int
}

func newFakeStockRepo() *fakeStockRepo {
	r := &fakeStockRepo{
		products: map[int64]*domain.Product{},
		variants: map[int64]*domain.Variant{},
		sizes:    map[int64]domain.Size{},
		stock:    map[stockKey]domain.StockEntry{},
	}
	// sistema 1: XS..L, sistema 2: calzado
	r.products[1] = &domain.Product{ID: 1, Name: "Playera", SizeSystemID: 1, Active: true}
	r.products[2] = &domain.Product{ID: 2, Name: "Tenis", SizeSystemID: 2, Active: true}
	r.products[3] = &domain.Product{ID: 3, Name: "Descontinuado", SizeSystemID: 1, Active: false}
	r.variants[10] = &domain.Variant{ID: 10, ProductID: 1, Name: "Negro", Active: true}
	r.variants[11] = &domain.Variant{ID: 11, ProductID: 1, Name: "Blanco", Active: true}
	r.variants[12] = &domain.Variant{ID: 12, ProductID: 1, Name: "Rojo", Active: false}
	r.variants[20] = &domain.Variant{ID: 20, ProductID: 2, Name: "Azul", Active: true}
	r.variants[30] = &domain.Variant{ID: 30, ProductID: 3, Name: "Gris", Active: true}
	r.sizes[1] = domain.Size{ID: 1, SizeSystemID: 1, Label: "XS", SortOrder: 1}
	r.sizes[2] = domain.Size{ID: 2, SizeSystemID: 1, Label: "S", SortOrder: 2}
	r.sizes[3] = domain.Size{ID: 3, SizeSystemID: 1, Label: "M", SortOrder: 3}
	r.sizes[4] = domain.Size{ID: 4, SizeSystemID: 1, Label: "L", SortOrder: 4}
	r.sizes[50] = domain.Size{ID: 50, SizeSystemID: 2, Label: "26", SortOrder: 1}
	return r
}

func (r *fakeStockRepo) put(variantID, sizeID int64, qty int, price string) {
	e := domain.StockEntry{VariantID: variantID, SizeID: sizeID, Quantity: qty}
	if price != "" {
		e.Price = decimal.NewNullDecimal(decimal.RequireFromString(price))
	}
	r.stock[stockKey{variantID, sizeID}] = e
}

func (r *fakeStockRepo) FindActiveVariant(_ context.Context, id int64) (*domain.Variant, *domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.variants[id]
	if !ok || !v.Active {
		return nil, nil, domain.ErrNotFound
	}
	p, ok := r.products[v.ProductID]
	if !ok || !p.Active {
		return nil, nil, domain.ErrNotFound
	}
	vc, pc := *v, *p
	return &vc, &pc, nil
}

func (r *fakeStockRepo) ListVariantStock(_ context.Context, id int64) ([]domain.SizeStock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.SizeStock{}
	for k, e := range r.stock {
		if k.variant != id {
			continue
		}
		s := r.sizes[k.size]
		out = append(out, domain.SizeStock{SizeID: s.ID, Label: s.Label, Quantity: e.Quantity, Price: e.Price, SortOrder: s.SortOrder})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].SizeID < out[j].SizeID
	})
	return out, nil
}

func (r *fakeStockRepo) PriceRollups(_ context.Context, ids []int64) (map[int64]domain.PriceRollup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := map[int64]bool{}
	for _, id := range ids {
		want[id] = true
	}
	prices := map[int64][]decimal.NullDecimal{}
	for k, e := range r.stock {
		if want[k.variant] && e.Price.Valid {
			prices[k.variant] = append(prices[k.variant], e.Price)
		}
	}
	out := map[int64]domain.PriceRollup{}
	for id, p := range prices {
		out[id] = domain.NewPriceRollup(p)
	}
	return out, nil
}

func (r *fakeStockRepo) SizesOfSystem(_ context.Context, systemID int64) ([]domain.Size, error) {
	out := []domain.Size{}
	for _, s := range r.sizes {
		if s.SizeSystemID == systemID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeStockRepo) ApplyUniformPrice(_ context.Context, variantID int64, price decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	for k, e := range r.stock {
		if k.variant == variantID {
			e.Price = decimal.NewNullDecimal(price)
			r.stock[k] = e
		}
	}
	r.purge()
	return nil
}

func (r *fakeStockRepo) ApplySizeStock(_ context.Context, variantID int64, rows []domain.SizeStockInput) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	for _, row := range rows {
		k := stockKey{variantID, row.SizeID}
		if row.Quantity == 0 {
			delete(r.stock, k)
			continue
		}
		e := r.stock[k]
		e.VariantID, e.SizeID, e.Quantity = variantID, row.SizeID, row.Quantity
		if row.Price != nil {
			e.Price = decimal.NewNullDecimal(*row.Price)
		}
		r.stock[k] = e
	}
	r.purge()
	return nil
}

// purge replica el trigger de la tabla stock.
func (r *fakeStockRepo) purge() {
	for k, e := range r.stock {
		if e.Quantity <= 0 || !e.Price.Valid || !e.Price.Decimal.IsPositive() {
			delete(r.stock, k)
		}
	}
}

func (r *fakeStockRepo) ExportRows(_ context.Context) ([]domain.StockExportRow, error) {
	out := []domain.StockExportRow{}
	for k, e := range r.stock {
		v := r.variants[k.variant]
		out = append(out, domain.StockExportRow{VariantID: v.ID, ProductID: v.ProductID, SizeID: k.size, Quantity: e.Quantity, Price: e.Price})
	}
	return out, nil
}

// --- Carts ---

type fakeCartRepo struct {
	carts map[int64]bool
	lines map[int64][]domain.CartLine
	next  int64
}

func newFakeCartRepo() *fakeCartRepo {
	return &fakeCartRepo{carts: map[int64]bool{}, lines: map[int64][]domain.CartLine{}, next: 100}
}

func (r *fakeCartRepo) Create(_ context.Context, c *domain.Cart) error {
	r.next++
	c.ID = r.next
	r.carts[c.ID] = true
	return nil
}

func (r *fakeCartRepo) FindByID(_ context.Context, id int64) (*domain.Cart, error) {
	if !r.carts[id] {
		return nil, domain.ErrNotFound
	}
	return &domain.Cart{ID: id}, nil
}

func (r *fakeCartRepo) Lines(_ context.Context, cartID int64) ([]domain.CartLine, error) {
	return append([]domain.CartLine(nil), r.lines[cartID]...), nil
}

func (r *fakeCartRepo) UpsertItem(_ context.Context, cartID, variantID, sizeID int64, qty int) (*domain.CartItem, error) {
	for i, l := range r.lines[cartID] {
		if l.VariantID == variantID && l.SizeID == sizeID {
			r.lines[cartID][i].Quantity = qty
			return &domain.CartItem{ID: l.ItemID, CartID: cartID, VariantID: variantID, SizeID: sizeID, Quantity: qty}, nil
		}
	}
	r.next++
	r.lines[cartID] = append(r.lines[cartID], domain.CartLine{ItemID: r.next, VariantID: variantID, SizeID: sizeID, Quantity: qty, UnitPrice: decimal.NewFromInt(100)})
	return &domain.CartItem{ID: r.next, CartID: cartID, VariantID: variantID, SizeID: sizeID, Quantity: qty}, nil
}

func (r *fakeCartRepo) SetItemQuantity(_ context.Context, cartID, itemID int64, qty int) error {
	for i, l := range r.lines[cartID] {
		if l.ItemID == itemID {
			r.lines[cartID][i].Quantity = qty
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *fakeCartRepo) RemoveItem(_ context.Context, cartID, itemID int64) error {
	for i, l := range r.lines[cartID] {
		if l.ItemID == itemID {
			r.lines[cartID] = append(r.lines[cartID][:i], r.lines[cartID][i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

// --- Shipping ---

type fakeProvider struct {
	attempts []domain.RateAttempt
	err      error
	calls    []domain.QuotationRequest
}

func (p *fakeProvider) Quote(_ context.Context, req domain.QuotationRequest) ([]domain.RateAttempt, error) {
	p.calls = append(p.calls, req)
	if p.err != nil {
		return nil, p.err
	}
	return p.attempts, nil
}

type fakePostal struct {
	places map[string]domain.PostalPlace
	err    error
}

func (p *fakePostal) Resolve(_ context.Context, cp, country string) (*domain.PostalPlace, error) {
	if p.err != nil {
		return nil, p.err
	}
	pl, ok := p.places[cp]
	if !ok {
		return nil, domain.ErrValidation
	}
	if country != "" {
		pl.CountryCode = country
	}
	return &pl, nil
}

// --- Orders / payments ---

type fakeOrderRepo struct {
	orders       map[int64]*domain.Order
	next         int64
	paidCalls    int
	setIntentErr error
}

func newFakeOrderRepo() *fakeOrderRepo { return &fakeOrderRepo{orders: map[int64]*domain.Order{}} }

func (r *fakeOrderRepo) Create(_ context.Context, o *domain.Order) error {
	r.next++
	o.ID = r.next
	c := *o
	r.orders[o.ID] = &c
	return nil
}

func (r *fakeOrderRepo) FindByID(_ context.Context, id int64) (*domain.Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *o
	return &c, nil
}

func (r *fakeOrderRepo) FindByPaymentIntent(_ context.Context, intentID string) (*domain.Order, error) {
	for _, o := range r.orders {
		if o.PaymentIntentID == intentID {
			c := *o
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeOrderRepo) SetPaymentIntent(_ context.Context, id int64, intentID string) error {
	if r.setIntentErr != nil {
		return r.setIntentErr
	}
	o, ok := r.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	o.PaymentIntentID = intentID
	return nil
}

func (r *fakeOrderRepo) MarkPaid(_ context.Context, id int64) (bool, error) {
	o, ok := r.orders[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if o.Status != domain.OrderStatusAwaitingPay {
		return false, nil
	}
	r.paidCalls++
	o.Status = domain.OrderStatusPaid
	return true, nil
}

func (r *fakeOrderRepo) UpdateStatus(_ context.Context, id int64, st domain.OrderStatus) error {
	o, ok := r.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	o.Status = st
	return nil
}

type fakePayments struct {
	createErr error
	amount    int64
	currency  string
	metadata  map[string]string
	refunded  []string
	event     *domain.PaymentEvent
	status    string
}

func (p *fakePayments) CreatePaymentIntent(_ context.Context, amount int64, currency string, md map[string]string) (*domain.PaymentIntent, error) {
	if p.createErr != nil {
		return nil, p.createErr
	}
	p.amount, p.currency, p.metadata = amount, currency, md
	return &domain.PaymentIntent{ID: "pi_test", ClientSecret: "pi_test_secret", Status: "requires_payment_method"}, nil
}

func (p *fakePayments) RetrievePaymentIntent(_ context.Context, id string) (*domain.PaymentIntent, error) {
	return &domain.PaymentIntent{ID: id, Status: p.status}, nil
}

func (p *fakePayments) Refund(_ context.Context, id string) error {
	p.refunded = append(p.refunded, id)
	return nil
}

func (p *fakePayments) ParseEvent(_ []byte, sig string) (*domain.PaymentEvent, error) {
	if sig != "ok" {
		return nil, errors.New("firma inválida")
	}
	return p.event, nil
}
