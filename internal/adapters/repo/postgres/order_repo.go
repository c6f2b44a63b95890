package postgres

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/phenrril/tiendamx/internal/domain"
)

type OrderRepo struct{ db *gorm.DB }

func NewOrderRepo(db *gorm.DB) *OrderRepo { return &OrderRepo{db: db} }

func (r *OrderRepo) Create(ctx context.Context, o *domain.Order) error {
	return translateErr(r.db.WithContext(ctx).Create(o).Error)
}

func (r *OrderRepo) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	var o domain.Order
	if err := r.db.WithContext(ctx).Preload("Items").First(&o, "id_pedido = ?", id).Error; err != nil {
		return nil, translateErr(err)
	}
	return &o, nil
}

func (r *OrderRepo) FindByPaymentIntent(ctx context.Context, intentID string) (*domain.Order, error) {
	var o domain.Order
	if err := r.db.WithContext(ctx).Preload("Items").First(&o, "payment_intent_id = ?", intentID).Error; err != nil {
		return nil, translateErr(err)
	}
	return &o, nil
}

func (r *OrderRepo) SetPaymentIntent(ctx context.Context, orderID int64, intentID string) error {
	return r.update(ctx, orderID, "payment_intent_id", intentID)
}

func (r *OrderRepo) UpdateStatus(ctx context.Context, orderID int64, status domain.OrderStatus) error {
	return r.update(ctx, orderID, "estado", status)
}

func (r *OrderRepo) update(ctx context.Context, orderID int64, column string, value any) error {
	res := r.db.WithContext(ctx).Model(&domain.Order{}).Where("id_pedido = ?", orderID).Update(column, value)
	if res.Error != nil {
		return translateErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkPaid bloquea el pedido, descuenta el stock de cada ítem y limpia las
// filas que quedan en cero. Un pedido que ya no espera pago no se toca.
func (r *OrderRepo) MarkPaid(ctx context.Context, orderID int64) (bool, error) {
	changed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var o domain.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&o, "id_pedido = ?", orderID).Error; err != nil {
			return err
		}
		if o.Status != domain.OrderStatusAwaitingPay {
			return nil
		}
		var items []domain.OrderItem
		if err := tx.Where("id_pedido = ?", orderID).Find(&items).Error; err != nil {
			return err
		}
		touched := map[int64]bool{}
		for _, it := range items {
			if err := tx.Exec(`UPDATE stock SET cantidad = GREATEST(cantidad - ?, 0) WHERE id_variante = ? AND id_talla = ?`,
				it.Quantity, it.VariantID, it.SizeID).Error; err != nil {
				return err
			}
			touched[it.VariantID] = true
		}
		for variantID := range touched {
			if err := purgeInvalidStock(tx, variantID); err != nil {
				return err
			}
		}
		if err := tx.Model(&o).Update("estado", domain.OrderStatusPaid).Error; err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return false, translateErr(err)
	}
	return changed, nil
}
