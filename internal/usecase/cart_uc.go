package usecase

import (
	"context"
	"fmt"

	"github.com/phenrril/tiendamx/internal/domain"
)

type CartUC struct {
	Carts domain.CartRepo
	Stock domain.StockRepo
}

func (uc *CartUC) Create(ctx context.Context) (*domain.CartView, error) {
	c := &domain.Cart{}
	if err := uc.Carts.Create(ctx, c); err != nil {
		return nil, err
	}
	return domain.NewCartView(c.ID, nil), nil
}

func (uc *CartUC) Get(ctx context.Context, cartID int64) (*domain.CartView, error) {
	if _, err := uc.Carts.FindByID(ctx, cartID); err != nil {
		return nil, err
	}
	lines, err := uc.Carts.Lines(ctx, cartID)
	if err != nil {
		return nil, err
	}
	return domain.NewCartView(cartID, lines), nil
}

// AddItem suma qty al ítem (variante, talla) del carrito. La cantidad
// resultante no puede superar el stock disponible.
func (uc *CartUC) AddItem(ctx context.Context, cartID, variantID, sizeID int64, qty int) (*domain.CartView, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("%w: la cantidad debe ser mayor a 0", domain.ErrValidation)
	}
	if _, err := uc.Carts.FindByID(ctx, cartID); err != nil {
		return nil, err
	}
	lines, err := uc.Carts.Lines(ctx, cartID)
	if err != nil {
		return nil, err
	}
	total := qty
	for _, l := range lines {
		if l.VariantID == variantID && l.SizeID == sizeID {
			total += l.Quantity
		}
	}
	if err := uc.checkAvailable(ctx, variantID, sizeID, total); err != nil {
		return nil, err
	}
	if _, err := uc.Carts.UpsertItem(ctx, cartID, variantID, sizeID, total); err != nil {
		return nil, err
	}
	return uc.Get(ctx, cartID)
}

// UpdateItem fija la cantidad de un ítem; 0 lo quita del carrito.
func (uc *CartUC) UpdateItem(ctx context.Context, cartID, itemID int64, qty int) (*domain.CartView, error) {
	if qty < 0 {
		return nil, fmt.Errorf("%w: cantidad negativa", domain.ErrValidation)
	}
	if qty == 0 {
		return uc.RemoveItem(ctx, cartID, itemID)
	}
	lines, err := uc.Carts.Lines(ctx, cartID)
	if err != nil {
		return nil, err
	}
	var line *domain.CartLine
	for i := range lines {
		if lines[i].ItemID == itemID {
			line = &lines[i]
		}
	}
	if line == nil {
		return nil, fmt.Errorf("%w: ítem %d", domain.ErrNotFound, itemID)
	}
	if err := uc.checkAvailable(ctx, line.VariantID, line.SizeID, qty); err != nil {
		return nil, err
	}
	if err := uc.Carts.SetItemQuantity(ctx, cartID, itemID, qty); err != nil {
		return nil, err
	}
	return uc.Get(ctx, cartID)
}

func (uc *CartUC) RemoveItem(ctx context.Context, cartID, itemID int64) (*domain.CartView, error) {
	if err := uc.Carts.RemoveItem(ctx, cartID, itemID); err != nil {
		return nil, err
	}
	return uc.Get(ctx, cartID)
}

func (uc *CartUC) checkAvailable(ctx context.Context, variantID, sizeID int64, qty int) error {
	if _, _, err := uc.Stock.FindActiveVariant(ctx, variantID); err != nil {
		return err
	}
	sizes, err := uc.Stock.ListVariantStock(ctx, variantID)
	if err != nil {
		return err
	}
	for _, s := range sizes {
		if s.SizeID == sizeID {
			if s.Quantity < qty {
				return fmt.Errorf("%w: stock insuficiente (disponible %d)", domain.ErrValidation, s.Quantity)
			}
			return nil
		}
	}
	return fmt.Errorf("%w: talla %d sin stock para la variante %d", domain.ErrNotFound, sizeID, variantID)
}
