package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Cart struct {
	ID        int64      `gorm:"column:id_carrito;primaryKey" json:"id"`
	Items     []CartItem `gorm:"foreignKey:CartID" json:"-"`
	CreatedAt time.Time  `gorm:"column:creado_en" json:"createdAt"`
	UpdatedAt time.Time  `gorm:"column:actualizado_en" json:"updatedAt"`
}

func (Cart) TableName() string { return "carritos" }

type CartItem struct {
	ID        int64 `gorm:"column:id_item;primaryKey" json:"id"`
	CartID    int64 `gorm:"column:id_carrito;not null;uniqueIndex:idx_carrito_item" json:"cartId"`
	VariantID int64 `gorm:"column:id_variante;not null;uniqueIndex:idx_carrito_item" json:"variantId"`
	SizeID    int64 `gorm:"column:id_talla;not null;uniqueIndex:idx_carrito_item" json:"sizeId"`
	Quantity  int   `gorm:"column:cantidad;not null" json:"quantity"`
}

func (CartItem) TableName() string { return "carrito_items" }

// CartLine es un ítem del carrito con los datos de producto, talla y stock
// necesarios para mostrarlo y cotizar el envío.
type CartLine struct {
	ItemID      int64           `gorm:"column:id_item" json:"itemId"`
	VariantID   int64           `gorm:"column:id_variante" json:"variantId"`
	SizeID      int64           `gorm:"column:id_talla" json:"sizeId"`
	ProductID   int64           `gorm:"column:id_producto" json:"productId"`
	ProductName string          `gorm:"column:producto" json:"productName"`
	VariantName string          `gorm:"column:variante" json:"variantName"`
	SizeLabel   string          `gorm:"column:nombre_talla" json:"sizeLabel"`
	Quantity    int             `gorm:"column:cantidad" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"column:precio" json:"unitPrice"`
	Available   int             `gorm:"column:disponible" json:"available"`
	WeightKg    *float64        `gorm:"column:peso_kg" json:"-"`
	LengthCm    *float64        `gorm:"column:largo_cm" json:"-"`
	WidthCm     *float64        `gorm:"column:ancho_cm" json:"-"`
	HeightCm    *float64        `gorm:"column:alto_cm" json:"-"`
	Subtotal    decimal.Decimal `gorm:"-" json:"subtotal"`
}

func (l CartLine) Title() string {
	return l.ProductName + " - " + l.VariantName + " (" + l.SizeLabel + ")"
}

type CartView struct {
	CartID   int64           `json:"cartId"`
	Lines    []CartLine      `json:"lines"`
	Items    int             `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// NewCartView calcula subtotales por línea y del carrito.
func NewCartView(cartID int64, lines []CartLine) *CartView {
	v := &CartView{CartID: cartID, Lines: make([]CartLine, 0, len(lines)), Subtotal: decimal.Zero}
	for _, l := range lines {
		l.Subtotal = l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
		v.Subtotal = v.Subtotal.Add(l.Subtotal)
		v.Items += l.Quantity
		v.Lines = append(v.Lines, l)
	}
	return v
}

type CartRepo interface {
	Create(ctx context.Context, c *Cart) error
	FindByID(ctx context.Context, id int64) (*Cart, error)
	Lines(ctx context.Context, cartID int64) ([]CartLine, error)
	// UpsertItem fija la cantidad del ítem (variante, talla), creándolo si no existe.
	UpsertItem(ctx context.Context, cartID, variantID, sizeID int64, qty int) (*CartItem, error)
	SetItemQuantity(ctx context.Context, cartID, itemID int64, qty int) error
	RemoveItem(ctx context.Context, cartID, itemID int64) error
}
