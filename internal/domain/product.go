package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID   int64  `gorm:"column:id_categoria;primaryKey" json:"id"`
	Name string `gorm:"column:nombre;size:120;not null" json:"name"`
}

func (Category) TableName() string { return "categorias" }

type SizeSystem struct {
	ID   int64  `gorm:"column:id_sistema_talla;primaryKey" json:"id"`
	Name string `gorm:"column:nombre;size:80;not null" json:"name"`
}

func (SizeSystem) TableName() string { return "sistemas_talla" }

// Product es un artículo del catálogo. Peso y medidas son opcionales; el
// cotizador de envíos usa valores por defecto cuando faltan.
type Product struct {
	ID           int64     `gorm:"column:id_producto;primaryKey" json:"id"`
	Name         string    `gorm:"column:nombre;size:180;not null" json:"name"`
	CategoryID   *int64    `gorm:"column:id_categoria;index" json:"categoryId"`
	Brand        string    `gorm:"column:marca;size:100" json:"brand"`
	SizeSystemID int64     `gorm:"column:id_sistema_talla;index;not null" json:"sizeSystemId"`
	Active       bool      `gorm:"column:activo;default:true;index" json:"active"`
	WeightKg     *float64  `gorm:"column:peso_kg;type:numeric(8,3)" json:"weightKg,omitempty"`
	LengthCm     *float64  `gorm:"column:largo_cm;type:numeric(8,2)" json:"lengthCm,omitempty"`
	WidthCm      *float64  `gorm:"column:ancho_cm;type:numeric(8,2)" json:"widthCm,omitempty"`
	HeightCm     *float64  `gorm:"column:alto_cm;type:numeric(8,2)" json:"heightCm,omitempty"`
	Variants     []Variant `gorm:"foreignKey:ProductID" json:"variants,omitempty"`
	CreatedAt    time.Time `gorm:"column:creado_en" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"column:actualizado_en" json:"updatedAt"`
}

func (Product) TableName() string { return "productos" }

type Variant struct {
	ID        int64     `gorm:"column:id_variante;primaryKey" json:"id"`
	ProductID int64     `gorm:"column:id_producto;index;not null" json:"productId"`
	Name      string    `gorm:"column:nombre;size:120;not null" json:"name"`
	Active    bool      `gorm:"column:activo;default:true;index" json:"active"`
	WeightKg  *float64  `gorm:"column:peso_kg;type:numeric(8,3)" json:"weightKg,omitempty"`
	CreatedAt time.Time `gorm:"column:creado_en" json:"-"`
	UpdatedAt time.Time `gorm:"column:actualizado_en" json:"-"`
}

func (Variant) TableName() string { return "variantes" }

type Size struct {
	ID           int64  `gorm:"column:id_talla;primaryKey" json:"id"`
	SizeSystemID int64  `gorm:"column:id_sistema_talla;index;not null" json:"sizeSystemId"`
	Label        string `gorm:"column:nombre_talla;size:40;not null" json:"label"`
	SortOrder    int    `gorm:"column:orden;not null;default:0" json:"sortOrder"`
}

func (Size) TableName() string { return "tallas" }

// StockEntry es una fila de stock por (variante, talla). Las filas con
// cantidad 0 o precio 0/NULL no se conservan: las borra el trigger y la
// limpieza posterior a cada escritura.
type StockEntry struct {
	VariantID int64               `gorm:"column:id_variante;primaryKey;autoIncrement:false"`
	SizeID    int64               `gorm:"column:id_talla;primaryKey;autoIncrement:false;index"`
	Quantity  int                 `gorm:"column:cantidad;not null;default:0"`
	Price     decimal.NullDecimal `gorm:"column:precio;type:numeric(12,2)"`
}

func (StockEntry) TableName() string { return "stock" }

type ProductFilter struct {
	CategoryID *int64
	Query      string
	Page       int
	PageSize   int
}

// CatalogVariant es una variante activa con su resumen de precios.
type CatalogVariant struct {
	Variant
	PriceRollup
}

type CatalogProduct struct {
	Product
	Variants []CatalogVariant `json:"variants"`
}

type ProductRepo interface {
	List(ctx context.Context, f ProductFilter) ([]Product, int64, error)
	FindByID(ctx context.Context, id int64) (*Product, error)
}
