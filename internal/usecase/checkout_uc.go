package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/phenrril/tiendamx/internal/domain"
)

var emailRe = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

type CheckoutUC struct {
	Carts    domain.CartRepo
	Orders   domain.OrderRepo
	Shipping *ShippingUC
	Payments domain.PaymentGateway
	Currency string
}

type CheckoutInput struct {
	CartID      int64
	Email       string
	PostalCode  string
	CountryCode string
	Provider    string
	Service     string
}

type CheckoutResult struct {
	OrderID         int64              `json:"orderId"`
	PaymentIntentID string             `json:"paymentIntentId"`
	ClientSecret    string             `json:"clientSecret"`
	Subtotal        decimal.Decimal    `json:"subtotal"`
	ShippingCost    decimal.Decimal    `json:"shippingCost"`
	Total           decimal.Decimal    `json:"total"`
	Currency        string             `json:"currency"`
	Rate            domain.RateAttempt `json:"rate"`
}

// Checkout recotiza el envío, congela el carrito en un pedido y crea el
// PaymentIntent por el total (productos + envío).
func (uc *CheckoutUC) Checkout(ctx context.Context, in CheckoutInput) (*CheckoutResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if !emailRe.MatchString(email) {
		return nil, fmt.Errorf("%w: email", domain.ErrValidation)
	}
	quote, err := uc.Shipping.QuoteCart(ctx, QuoteRequest{CartID: in.CartID, PostalCode: in.PostalCode, CountryCode: in.CountryCode})
	if err != nil {
		return nil, err
	}
	rate, ok := quote.Pick(in.Provider, in.Service)
	if !ok {
		return nil, fmt.Errorf("%w: no hay tarifa de envío para %s %s", domain.ErrValidation, in.Provider, in.Service)
	}
	lines, err := uc.Carts.Lines(ctx, in.CartID)
	if err != nil {
		return nil, err
	}

	order := &domain.Order{
		CartID:      in.CartID,
		Email:       email,
		Status:      domain.OrderStatusAwaitingPay,
		Currency:    strings.ToUpper(uc.Currency),
		Carrier:     rate.Provider,
		Service:     rate.Service,
		PostalCode:  quote.Destination.PostalCode,
		CountryCode: quote.Destination.CountryCode,
		Subtotal:    decimal.Zero,
	}
	for _, l := range lines {
		if l.Quantity > l.Available {
			return nil, fmt.Errorf("%w: stock insuficiente para %s", domain.ErrValidation, l.Title())
		}
		if !l.UnitPrice.IsPositive() {
			return nil, fmt.Errorf("%w: %s no tiene precio", domain.ErrValidation, l.Title())
		}
		order.Items = append(order.Items, domain.OrderItem{
			VariantID: l.VariantID,
			SizeID:    l.SizeID,
			Title:     l.Title(),
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
		order.Subtotal = order.Subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	order.ShippingCost = rate.Total
	order.Total = order.Subtotal.Add(rate.Total)
	if err := uc.Orders.Create(ctx, order); err != nil {
		return nil, err
	}

	cents := order.Total.Shift(2).Round(0).IntPart()
	pi, err := uc.Payments.CreatePaymentIntent(ctx, cents, uc.Currency, map[string]string{
		"order_id": strconv.FormatInt(order.ID, 10),
		"cart_id":  strconv.FormatInt(in.CartID, 10),
	})
	if err != nil {
		log.Error().Err(err).Int64("order_id", order.ID).Msg("crear payment intent")
		if uerr := uc.Orders.UpdateStatus(ctx, order.ID, domain.OrderStatusCancelled); uerr != nil {
			log.Error().Err(uerr).Int64("order_id", order.ID).Msg("cancelar pedido")
		}
		return nil, domain.ErrPaymentProvider
	}
	if err := uc.Orders.SetPaymentIntent(ctx, order.ID, pi.ID); err != nil {
		// el webhook lo vuelve a enlazar por el order_id de la metadata
		log.Error().Err(err).Int64("order_id", order.ID).Str("payment_intent", pi.ID).Msg("guardar payment intent")
	}
	return &CheckoutResult{
		OrderID:         order.ID,
		PaymentIntentID: pi.ID,
		ClientSecret:    pi.ClientSecret,
		Subtotal:        order.Subtotal,
		ShippingCost:    order.ShippingCost,
		Total:           order.Total,
		Currency:        order.Currency,
		Rate:            rate,
	}, nil
}

// HandlePaymentEvent procesa un webhook del proveedor de pagos. Eventos de
// intents desconocidos se ignoran; un pago exitoso repetido no descuenta stock
// dos veces. Un pago rechazado deja el pedido esperando pago porque el mismo
// intent admite otro intento; sólo payment_intent.canceled lo cancela.
func (uc *CheckoutUC) HandlePaymentEvent(ctx context.Context, payload []byte, signature string) error {
	evt, err := uc.Payments.ParseEvent(payload, signature)
	if err != nil {
		return fmt.Errorf("%w: webhook: %v", domain.ErrValidation, err)
	}
	if evt.IntentID == "" {
		return nil
	}
	o, err := uc.orderForEvent(ctx, evt)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Warn().Str("payment_intent", evt.IntentID).Str("type", evt.Type).Msg("webhook sin pedido")
			return nil
		}
		return err
	}
	switch evt.Type {
	case domain.PaymentEventSucceeded:
		changed, err := uc.Orders.MarkPaid(ctx, o.ID)
		if err != nil {
			return err
		}
		if changed {
			log.Info().Int64("order_id", o.ID).Msg("pedido pagado")
		}
	case domain.PaymentEventFailed:
		log.Warn().Int64("order_id", o.ID).Str("payment_intent", evt.IntentID).Msg("pago rechazado, el pedido sigue esperando pago")
	case domain.PaymentEventCanceled:
		if o.Status == domain.OrderStatusAwaitingPay {
			return uc.Orders.UpdateStatus(ctx, o.ID, domain.OrderStatusCancelled)
		}
	default:
		log.Debug().Str("type", evt.Type).Msg("evento de pago ignorado")
	}
	return nil
}

// orderForEvent busca el pedido por intent y, si no aparece, por el order_id
// de la metadata. En ese caso el intent queda guardado en el pedido.
func (uc *CheckoutUC) orderForEvent(ctx context.Context, evt *domain.PaymentEvent) (*domain.Order, error) {
	o, err := uc.Orders.FindByPaymentIntent(ctx, evt.IntentID)
	if err == nil || !errors.Is(err, domain.ErrNotFound) || evt.OrderID <= 0 {
		return o, err
	}
	o, err = uc.Orders.FindByID(ctx, evt.OrderID)
	if err != nil {
		return nil, err
	}
	if o.PaymentIntentID != "" && o.PaymentIntentID != evt.IntentID {
		log.Warn().Int64("order_id", o.ID).Str("payment_intent", evt.IntentID).Str("guardado", o.PaymentIntentID).Msg("intent no coincide con el pedido")
		return nil, domain.ErrNotFound
	}
	if err := uc.Orders.SetPaymentIntent(ctx, o.ID, evt.IntentID); err != nil {
		return nil, err
	}
	o.PaymentIntentID = evt.IntentID
	return o, nil
}

func (uc *CheckoutUC) Refund(ctx context.Context, orderID int64) (*domain.Order, error) {
	o, err := uc.Orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != domain.OrderStatusPaid || o.PaymentIntentID == "" {
		return nil, fmt.Errorf("%w: el pedido no está pagado", domain.ErrValidation)
	}
	if err := uc.Payments.Refund(ctx, o.PaymentIntentID); err != nil {
		log.Error().Err(err).Int64("order_id", orderID).Msg("reembolso")
		return nil, domain.ErrPaymentProvider
	}
	if err := uc.Orders.UpdateStatus(ctx, o.ID, domain.OrderStatusRefunded); err != nil {
		return nil, err
	}
	o.Status = domain.OrderStatusRefunded
	return o, nil
}

// Order devuelve el pedido. Si todavía espera pago se consulta el intent,
// por si el webhook no llegó.
func (uc *CheckoutUC) Order(ctx context.Context, orderID int64) (*domain.Order, error) {
	o, err := uc.Orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != domain.OrderStatusAwaitingPay || o.PaymentIntentID == "" {
		return o, nil
	}
	pi, err := uc.Payments.RetrievePaymentIntent(ctx, o.PaymentIntentID)
	if err != nil {
		log.Warn().Err(err).Int64("order_id", o.ID).Msg("consulta de payment intent")
		return o, nil
	}
	switch pi.Status {
	case "succeeded":
		if _, err := uc.Orders.MarkPaid(ctx, o.ID); err != nil {
			return nil, err
		}
	case "canceled":
		if err := uc.Orders.UpdateStatus(ctx, o.ID, domain.OrderStatusCancelled); err != nil {
			return nil, err
		}
	default:
		return o, nil
	}
	return uc.Orders.FindByID(ctx, orderID)
}
