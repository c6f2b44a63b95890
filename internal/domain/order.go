package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusAwaitingPay OrderStatus = "awaiting_payment"
	OrderStatusPaid        OrderStatus = "paid"
	OrderStatusCancelled   OrderStatus = "cancelled"
	OrderStatusRefunded    OrderStatus = "refunded"
)

type Order struct {
	ID              int64           `gorm:"column:id_pedido;primaryKey" json:"id"`
	CartID          int64           `gorm:"column:id_carrito;index" json:"cartId"`
	Email           string          `gorm:"column:email;size:140" json:"email"`
	Status          OrderStatus     `gorm:"column:estado;type:varchar(30);index" json:"status"`
	Subtotal        decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2)" json:"subtotal"`
	ShippingCost    decimal.Decimal `gorm:"column:envio;type:numeric(12,2)" json:"shippingCost"`
	Total           decimal.Decimal `gorm:"column:total;type:numeric(12,2)" json:"total"`
	Currency        string          `gorm:"column:moneda;size:3" json:"currency"`
	Carrier         string          `gorm:"column:paqueteria;size:80" json:"carrier"`
	Service         string          `gorm:"column:servicio;size:120" json:"service"`
	PostalCode      string          `gorm:"column:codigo_postal;size:20" json:"postalCode"`
	CountryCode     string          `gorm:"column:pais;size:2" json:"countryCode"`
	PaymentIntentID string          `gorm:"column:payment_intent_id;size:120;index" json:"-"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID" json:"items"`
	CreatedAt       time.Time       `gorm:"column:creado_en" json:"createdAt"`
	UpdatedAt       time.Time       `gorm:"column:actualizado_en" json:"updatedAt"`
}

func (Order) TableName() string { return "pedidos" }

type OrderItem struct {
	ID        int64           `gorm:"column:id_item;primaryKey" json:"id"`
	OrderID   int64           `gorm:"column:id_pedido;index;not null" json:"-"`
	VariantID int64           `gorm:"column:id_variante;not null" json:"variantId"`
	SizeID    int64           `gorm:"column:id_talla;not null" json:"sizeId"`
	Title     string          `gorm:"column:titulo;size:240" json:"title"`
	Quantity  int             `gorm:"column:cantidad;not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"column:precio_unitario;type:numeric(12,2)" json:"unitPrice"`
}

func (OrderItem) TableName() string { return "pedido_items" }

type OrderRepo interface {
	Create(ctx context.Context, o *Order) error
	FindByID(ctx context.Context, id int64) (*Order, error)
	FindByPaymentIntent(ctx context.Context, intentID string) (*Order, error)
	SetPaymentIntent(ctx context.Context, orderID int64, intentID string) error
	// MarkPaid pasa el pedido a pagado y descuenta el stock en la misma
	// transacción. Devuelve false si el pedido ya no esperaba pago.
	MarkPaid(ctx context.Context, orderID int64) (bool, error)
	UpdateStatus(ctx context.Context, orderID int64, status OrderStatus) error
}

type PaymentIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"clientSecret"`
	Status       string `json:"status"`
}

const (
	PaymentEventSucceeded = "payment_intent.succeeded"
	PaymentEventFailed    = "payment_intent.payment_failed"
	PaymentEventCanceled  = "payment_intent.canceled"
)

// PaymentEvent es un webhook ya verificado. OrderID sale de la metadata del
// intent y vale 0 si no viene.
type PaymentEvent struct {
	Type     string
	IntentID string
	OrderID  int64
}

type PaymentGateway interface {
	CreatePaymentIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*PaymentIntent, error)
	RetrievePaymentIntent(ctx context.Context, id string) (*PaymentIntent, error)
	Refund(ctx context.Context, intentID string) error
	ParseEvent(payload []byte, signature string) (*PaymentEvent, error)
}
