package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	stripego "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/phenrril/tiendamx/internal/domain"
)

type Gateway struct {
	api           *client.API
	webhookSecret string
}

func NewGateway(secretKey, webhookSecret string) *Gateway {
	return newGateway(secretKey, webhookSecret, nil)
}

func newGateway(secretKey, webhookSecret string, backends *stripego.Backends) *Gateway {
	return &Gateway{api: client.New(secretKey, backends), webhookSecret: webhookSecret}
}

func (g *Gateway) CreatePaymentIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*domain.PaymentIntent, error) {
	if amountCents <= 0 {
		return nil, errors.New("monto inválido")
	}
	params := &stripego.PaymentIntentParams{
		Amount:   stripego.Int64(amountCents),
		Currency: stripego.String(strings.ToLower(currency)),
		AutomaticPaymentMethods: &stripego.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripego.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	if id := metadata["order_id"]; id != "" {
		params.SetIdempotencyKey("pedido-" + id)
	}
	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe payment intent: %w", err)
	}
	return toIntent(pi), nil
}

func (g *Gateway) RetrievePaymentIntent(ctx context.Context, id string) (*domain.PaymentIntent, error) {
	params := &stripego.PaymentIntentParams{}
	params.Context = ctx
	pi, err := g.api.PaymentIntents.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("stripe payment intent %s: %w", id, err)
	}
	return toIntent(pi), nil
}

func (g *Gateway) Refund(ctx context.Context, intentID string) error {
	params := &stripego.RefundParams{PaymentIntent: stripego.String(intentID)}
	params.Context = ctx
	if _, err := g.api.Refunds.New(params); err != nil {
		return fmt.Errorf("stripe refund %s: %w", intentID, err)
	}
	return nil
}

// ParseEvent verifica la firma Stripe-Signature y extrae el payment intent
// del evento. Eventos de otros objetos vuelven con IntentID vacío.
func (g *Gateway) ParseEvent(payload []byte, signature string) (*domain.PaymentEvent, error) {
	if g.webhookSecret == "" {
		return nil, errors.New("STRIPE_WEBHOOK_SECRET no configurado")
	}
	evt, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, err
	}
	out := &domain.PaymentEvent{Type: string(evt.Type)}
	if evt.Data == nil || !strings.HasPrefix(out.Type, "payment_intent.") {
		return out, nil
	}
	var pi stripego.PaymentIntent
	if err := json.Unmarshal(evt.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("evento %s: %w", evt.ID, err)
	}
	out.IntentID = pi.ID
	if id, err := strconv.ParseInt(pi.Metadata["order_id"], 10, 64); err == nil {
		out.OrderID = id
	}
	return out, nil
}

func toIntent(pi *stripego.PaymentIntent) *domain.PaymentIntent {
	return &domain.PaymentIntent{ID: pi.ID, ClientSecret: pi.ClientSecret, Status: string(pi.Status)}
}
