package postgres

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/phenrril/tiendamx/internal/domain"
)

type StockRepo struct{ db *gorm.DB }

func NewStockRepo(db *gorm.DB) *StockRepo { return &StockRepo{db: db} }

func (r *StockRepo) FindActiveVariant(ctx context.Context, variantID int64) (*domain.Variant, *domain.Product, error) {
	var v domain.Variant
	if err := r.db.WithContext(ctx).First(&v, "id_variante = ? AND activo = ?", variantID, true).Error; err != nil {
		return nil, nil, translateErr(err)
	}
	var p domain.Product
	if err := r.db.WithContext(ctx).First(&p, "id_producto = ? AND activo = ?", v.ProductID, true).Error; err != nil {
		return nil, nil, translateErr(err)
	}
	return &v, &p, nil
}

func (r *StockRepo) ListVariantStock(ctx context.Context, variantID int64) ([]domain.SizeStock, error) {
	rows := []domain.SizeStock{}
	err := r.db.WithContext(ctx).Raw(`
		SELECT s.id_talla, t.nombre_talla, s.cantidad, s.precio, t.orden
		FROM stock s
		JOIN tallas t ON t.id_talla = s.id_talla
		WHERE s.id_variante = ?
		ORDER BY t.orden ASC, t.id_talla ASC`, variantID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

type rollupRow struct {
	VariantID int64               `gorm:"column:id_variante"`
	PriceMin  decimal.NullDecimal `gorm:"column:precio_min"`
	PriceMax  decimal.NullDecimal `gorm:"column:precio_max"`
	Distinct  int                 `gorm:"column:precios"`
}

func (r *StockRepo) PriceRollups(ctx context.Context, variantIDs []int64) (map[int64]domain.PriceRollup, error) {
	out := make(map[int64]domain.PriceRollup, len(variantIDs))
	if len(variantIDs) == 0 {
		return out, nil
	}
	var rows []rollupRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT id_variante, MIN(precio) AS precio_min, MAX(precio) AS precio_max, COUNT(DISTINCT precio) AS precios
		FROM stock
		WHERE id_variante IN ? AND precio IS NOT NULL
		GROUP BY id_variante`, variantIDs).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.VariantID] = domain.RollupFromAggregate(row.PriceMin, row.PriceMax, row.Distinct)
	}
	return out, nil
}

func (r *StockRepo) SizesOfSystem(ctx context.Context, sizeSystemID int64) ([]domain.Size, error) {
	var list []domain.Size
	if err := r.db.WithContext(ctx).Where("id_sistema_talla = ?", sizeSystemID).Order("orden asc").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *StockRepo) ApplyUniformPrice(ctx context.Context, variantID int64, price decimal.Decimal) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.StockEntry{}).Where("id_variante = ?", variantID).Update("precio", price).Error; err != nil {
			return err
		}
		return purgeInvalidStock(tx, variantID)
	})
	return translateErr(err)
}

// ApplySizeStock crea o actualiza filas por talla. Cantidad 0 borra la fila;
// sin precio se conserva el existente (una fila nueva sin precio la elimina la
// limpieza).
func (r *StockRepo) ApplySizeStock(ctx context.Context, variantID int64, rows []domain.SizeStockInput) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			if row.Quantity == 0 {
				if err := tx.Where("id_variante = ? AND id_talla = ?", variantID, row.SizeID).Delete(&domain.StockEntry{}).Error; err != nil {
					return err
				}
				continue
			}
			var err error
			if row.Price == nil {
				err = tx.Exec(`
					INSERT INTO stock (id_variante, id_talla, cantidad) VALUES (?, ?, ?)
					ON CONFLICT (id_variante, id_talla) DO UPDATE SET cantidad = EXCLUDED.cantidad`,
					variantID, row.SizeID, row.Quantity).Error
			} else {
				err = tx.Exec(`
					INSERT INTO stock (id_variante, id_talla, cantidad, precio) VALUES (?, ?, ?, ?)
					ON CONFLICT (id_variante, id_talla) DO UPDATE SET cantidad = EXCLUDED.cantidad, precio = EXCLUDED.precio`,
					variantID, row.SizeID, row.Quantity, *row.Price).Error
			}
			if err != nil {
				return err
			}
		}
		return purgeInvalidStock(tx, variantID)
	})
	return translateErr(err)
}

// purgeInvalidStock borra filas con cantidad 0 o sin precio. El trigger de la
// tabla hace lo mismo; se repite acá para no depender de él.
func purgeInvalidStock(tx *gorm.DB, variantID int64) error {
	return tx.Where("id_variante = ? AND (cantidad <= 0 OR COALESCE(precio, 0) <= 0)", variantID).
		Delete(&domain.StockEntry{}).Error
}

func (r *StockRepo) ExportRows(ctx context.Context) ([]domain.StockExportRow, error) {
	rows := []domain.StockExportRow{}
	err := r.db.WithContext(ctx).Raw(`
		SELECT p.id_producto, p.nombre AS producto, v.id_variante, v.nombre AS variante,
		       t.id_talla, t.nombre_talla, s.cantidad, s.precio
		FROM stock s
		JOIN variantes v ON v.id_variante = s.id_variante
		JOIN productos p ON p.id_producto = v.id_producto
		JOIN tallas t ON t.id_talla = s.id_talla
		WHERE p.activo AND v.activo
		ORDER BY p.nombre, v.id_variante, t.orden`).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
