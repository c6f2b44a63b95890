package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/phenrril/tiendamx/internal/domain"
)

type ShippingUC struct {
	Carts        domain.CartRepo
	Provider     domain.ShippingProvider
	Postal       domain.PostalResolver
	Origin       domain.Address
	Defaults     domain.ParcelDefaults
	ShipmentType string
	Now          func() time.Time
}

type QuoteRequest struct {
	CartID      int64
	PostalCode  string
	CountryCode string
}

// QuoteCart cotiza el envío de un carrito. Todas las validaciones ocurren
// antes de llamar a la paquetería; que ninguna paquetería tenga cobertura
// no es un error (Quotations vacío, intentos en Failed).
func (uc *ShippingUC) QuoteCart(ctx context.Context, req QuoteRequest) (*domain.ShippingQuote, error) {
	cp := strings.TrimSpace(req.PostalCode)
	if cp == "" {
		return nil, fmt.Errorf("%w: código postal requerido", domain.ErrValidation)
	}
	if req.CartID <= 0 {
		return nil, fmt.Errorf("%w: cartId requerido", domain.ErrValidation)
	}
	if _, err := uc.Carts.FindByID(ctx, req.CartID); err != nil {
		return nil, err
	}
	lines, err := uc.Carts.Lines(ctx, req.CartID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: carrito vacío", domain.ErrValidation)
	}
	for _, l := range lines {
		// la fila de stock se borró: no hay precio ni unidades para enviar
		if l.Available <= 0 || !l.UnitPrice.IsPositive() {
			return nil, fmt.Errorf("%w: %s ya no está disponible", domain.ErrValidation, l.Title())
		}
	}

	place, err := uc.Postal.Resolve(ctx, cp, strings.ToUpper(strings.TrimSpace(req.CountryCode)))
	if err != nil {
		return nil, err
	}
	dest := domain.Address{
		PostalCode:  place.PostalCode,
		CountryCode: place.CountryCode,
		State:       place.State,
		City:        place.City,
	}

	view := domain.NewCartView(req.CartID, lines)
	parcel := domain.BuildParcel(view.Lines, uc.Defaults, view.Subtotal)

	now := time.Now
	if uc.Now != nil {
		now = uc.Now
	}
	q := domain.QuotationRequest{
		OrderID:      fmt.Sprintf("%d-%d", req.CartID, now().UnixMilli()),
		From:         uc.Origin,
		To:           dest,
		Parcel:       parcel,
		ShipmentType: uc.ShipmentType,
	}
	attempts, err := uc.Provider.Quote(ctx, q)
	if err != nil {
		log.Error().Err(err).Int64("cart_id", req.CartID).Str("order_id", q.OrderID).Msg("cotización de envío")
		// el detalle del proveedor queda en el log, no en la respuesta
		return nil, domain.ErrShippingProviderUnavailable
	}
	ok, failed := domain.RankRates(attempts)
	if len(ok) == 0 {
		log.Info().Int64("cart_id", req.CartID).Int("intentos", len(failed)).Msg("sin tarifas disponibles")
	}
	return &domain.ShippingQuote{
		OrderID:     q.OrderID,
		Quotations:  ok,
		Failed:      failed,
		Origin:      q.From,
		Destination: q.To,
		Parcel:      parcel,
	}, nil
}
