package domain

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// PriceRollup resume los precios de una variante. Uniform indica precio único
// (a lo sumo un precio distinto); si no, se muestra un rango.
type PriceRollup struct {
	PriceMin       *decimal.Decimal `json:"priceMin"`
	PriceMax       *decimal.Decimal `json:"priceMax"`
	DistinctPrices int              `json:"distinctPrices"`
	Uniform        bool             `json:"uniform"`
}

// NewPriceRollup calcula el resumen ignorando precios NULL.
func NewPriceRollup(prices []decimal.NullDecimal) PriceRollup {
	vals := make([]decimal.Decimal, 0, len(prices))
	for _, p := range prices {
		if p.Valid {
			vals = append(vals, p.Decimal)
		}
	}
	if len(vals) == 0 {
		return PriceRollup{Uniform: true}
	}
	sort.Slice(vals, func(i, j int) bool { return vals[i].LessThan(vals[j]) })
	distinct := 1
	for i := 1; i < len(vals); i++ {
		if !vals[i].Equal(vals[i-1]) {
			distinct++
		}
	}
	lo, hi := vals[0], vals[len(vals)-1]
	return PriceRollup{PriceMin: &lo, PriceMax: &hi, DistinctPrices: distinct, Uniform: distinct <= 1}
}

// RollupFromAggregate arma el resumen a partir de MIN/MAX/COUNT(DISTINCT).
func RollupFromAggregate(lo, hi decimal.NullDecimal, distinct int) PriceRollup {
	r := PriceRollup{DistinctPrices: distinct, Uniform: distinct <= 1}
	if lo.Valid {
		v := lo.Decimal
		r.PriceMin = &v
	}
	if hi.Valid {
		v := hi.Decimal
		r.PriceMax = &v
	}
	return r
}

// SizeStock es el stock de una talla de la variante, ya unido con tallas.
type SizeStock struct {
	SizeID    int64               `gorm:"column:id_talla" json:"sizeId"`
	Label     string              `gorm:"column:nombre_talla" json:"label"`
	Quantity  int                 `gorm:"column:cantidad" json:"quantity"`
	Price     decimal.NullDecimal `gorm:"column:precio" json:"price"`
	SortOrder int                 `gorm:"column:orden" json:"sortOrder"`
}

type VariantStock struct {
	VariantID int64 `json:"variantId"`
	ProductID int64 `json:"productId"`
	PriceRollup
	Sizes []SizeStock `json:"sizes"`
}

func NewVariantStock(v *Variant, sizes []SizeStock) *VariantStock {
	if sizes == nil {
		sizes = []SizeStock{}
	}
	prices := make([]decimal.NullDecimal, 0, len(sizes))
	for _, s := range sizes {
		prices = append(prices, s.Price)
	}
	return &VariantStock{VariantID: v.ID, ProductID: v.ProductID, PriceRollup: NewPriceRollup(prices), Sizes: sizes}
}

type SizeStockInput struct {
	SizeID   int64            `json:"sizeId"`
	Quantity int              `json:"quantity"`
	Price    *decimal.Decimal `json:"price,omitempty"`
}

// PricingUpdate admite dos modos excluyentes: precio único para todas las
// filas existentes, o una lista explícita por talla.
type PricingUpdate struct {
	UniformPrice *decimal.Decimal `json:"uniformPrice,omitempty"`
	Sizes        []SizeStockInput `json:"sizes,omitempty"`
}

func (u PricingUpdate) IsUniform() bool { return u.UniformPrice != nil }

// Validate revisa lo que se puede revisar sin tocar la base.
func (u PricingUpdate) Validate() error {
	switch {
	case u.UniformPrice != nil && len(u.Sizes) > 0:
		return fmt.Errorf("%w: uniformPrice y sizes son excluyentes", ErrValidation)
	case u.UniformPrice == nil && len(u.Sizes) == 0:
		return fmt.Errorf("%w: falta uniformPrice o sizes", ErrValidation)
	}
	if u.UniformPrice != nil {
		if !u.UniformPrice.IsPositive() {
			return fmt.Errorf("%w: el precio debe ser mayor a 0", ErrValidation)
		}
		return nil
	}
	seen := make(map[int64]struct{}, len(u.Sizes))
	for _, s := range u.Sizes {
		if s.SizeID <= 0 {
			return fmt.Errorf("%w: sizeId requerido", ErrValidation)
		}
		if _, dup := seen[s.SizeID]; dup {
			return fmt.Errorf("%w: talla %d repetida", ErrValidation, s.SizeID)
		}
		seen[s.SizeID] = struct{}{}
		if s.Quantity < 0 {
			return fmt.Errorf("%w: cantidad negativa para talla %d", ErrValidation, s.SizeID)
		}
		if s.Quantity > 0 && s.Price != nil && !s.Price.IsPositive() {
			return fmt.Errorf("%w: el precio de la talla %d debe ser mayor a 0", ErrValidation, s.SizeID)
		}
	}
	return nil
}

type StockExportRow struct {
	ProductID   int64               `gorm:"column:id_producto"`
	ProductName string              `gorm:"column:producto"`
	VariantID   int64               `gorm:"column:id_variante"`
	VariantName string              `gorm:"column:variante"`
	SizeID      int64               `gorm:"column:id_talla"`
	SizeLabel   string              `gorm:"column:nombre_talla"`
	Quantity    int                 `gorm:"column:cantidad"`
	Price       decimal.NullDecimal `gorm:"column:precio"`
}

// StockImportRow es una fila de la planilla de carga masiva. Row es el número
// de fila en la hoja, para reportar errores.
type StockImportRow struct {
	Row       int
	VariantID int64
	SizeID    int64
	Quantity  int
	Price     *decimal.Decimal
}

type ImportError struct {
	Row       int    `json:"row"`
	VariantID int64  `json:"variantId"`
	Error     string `json:"error"`
}

type ImportReport struct {
	VariantsUpdated int           `json:"variantsUpdated"`
	RowsApplied     int           `json:"rowsApplied"`
	Errors          []ImportError `json:"errors"`
}

type StockRepo interface {
	// FindActiveVariant devuelve la variante y su producto; ErrNotFound si
	// alguno no existe o está inactivo.
	FindActiveVariant(ctx context.Context, variantID int64) (*Variant, *Product, error)
	ListVariantStock(ctx context.Context, variantID int64) ([]SizeStock, error)
	PriceRollups(ctx context.Context, variantIDs []int64) (map[int64]PriceRollup, error)
	SizesOfSystem(ctx context.Context, sizeSystemID int64) ([]Size, error)
	ApplyUniformPrice(ctx context.Context, variantID int64, price decimal.Decimal) error
	ApplySizeStock(ctx context.Context, variantID int64, rows []SizeStockInput) error
	ExportRows(ctx context.Context) ([]StockExportRow, error)
}
