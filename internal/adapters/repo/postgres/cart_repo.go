package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/phenrril/tiendamx/internal/domain"
)

type CartRepo struct{ db *gorm.DB }

func NewCartRepo(db *gorm.DB) *CartRepo { return &CartRepo{db: db} }

func (r *CartRepo) Create(ctx context.Context, c *domain.Cart) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *CartRepo) FindByID(ctx context.Context, id int64) (*domain.Cart, error) {
	var c domain.Cart
	if err := r.db.WithContext(ctx).First(&c, "id_carrito = ?", id).Error; err != nil {
		return nil, translateErr(err)
	}
	return &c, nil
}

// Lines trae los ítems con precio y disponibilidad actuales. Un ítem cuya
// fila de stock desapareció queda con disponible 0 y precio 0.
func (r *CartRepo) Lines(ctx context.Context, cartID int64) ([]domain.CartLine, error) {
	lines := []domain.CartLine{}
	err := r.db.WithContext(ctx).Raw(`
		SELECT ci.id_item, ci.id_variante, ci.id_talla, p.id_producto,
		       p.nombre AS producto, v.nombre AS variante, t.nombre_talla, ci.cantidad,
		       COALESCE(s.precio, 0) AS precio, COALESCE(s.cantidad, 0) AS disponible,
		       COALESCE(v.peso_kg, p.peso_kg) AS peso_kg, p.largo_cm, p.ancho_cm, p.alto_cm
		FROM carrito_items ci
		JOIN variantes v ON v.id_variante = ci.id_variante
		JOIN productos p ON p.id_producto = v.id_producto
		JOIN tallas t ON t.id_talla = ci.id_talla
		LEFT JOIN stock s ON s.id_variante = ci.id_variante AND s.id_talla = ci.id_talla
		WHERE ci.id_carrito = ?
		ORDER BY ci.id_item ASC`, cartID).Scan(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *CartRepo) UpsertItem(ctx context.Context, cartID, variantID, sizeID int64, qty int) (*domain.CartItem, error) {
	var it domain.CartItem
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("id_carrito = ? AND id_variante = ? AND id_talla = ?", cartID, variantID, sizeID).First(&it).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			it = domain.CartItem{CartID: cartID, VariantID: variantID, SizeID: sizeID, Quantity: qty}
			if err := tx.Create(&it).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		} else {
			it.Quantity = qty
			if err := tx.Model(&it).Update("cantidad", qty).Error; err != nil {
				return err
			}
		}
		return tx.Model(&domain.Cart{ID: cartID}).Update("actualizado_en", gorm.Expr("NOW()")).Error
	})
	if err != nil {
		return nil, translateErr(err)
	}
	return &it, nil
}

func (r *CartRepo) SetItemQuantity(ctx context.Context, cartID, itemID int64, qty int) error {
	res := r.db.WithContext(ctx).Model(&domain.CartItem{}).
		Where("id_item = ? AND id_carrito = ?", itemID, cartID).Update("cantidad", qty)
	if res.Error != nil {
		return translateErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *CartRepo) RemoveItem(ctx context.Context, cartID, itemID int64) error {
	res := r.db.WithContext(ctx).Where("id_item = ? AND id_carrito = ?", itemID, cartID).Delete(&domain.CartItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
