package postgres

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/phenrril/tiendamx/internal/domain"
)

type ProductRepo struct{ db *gorm.DB }

func NewProductRepo(db *gorm.DB) *ProductRepo { return &ProductRepo{db: db} }

func activeVariants(db *gorm.DB) *gorm.DB {
	return db.Where("activo = ?", true).Order("id_variante asc")
}

func (r *ProductRepo) List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, int64, error) {
	var list []domain.Product
	q := r.db.WithContext(ctx).Model(&domain.Product{}).Where("activo = ?", true)
	if f.CategoryID != nil {
		q = q.Where("id_categoria = ?", *f.CategoryID)
	}
	if query := strings.TrimSpace(f.Query); query != "" {
		like := "%" + query + "%"
		q = q.Where("LOWER(nombre) LIKE LOWER(?) OR LOWER(marca) LIKE LOWER(?)", like, like)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = 20
	}
	offset := (f.Page - 1) * f.PageSize
	if err := q.Order("nombre asc").Offset(offset).Limit(f.PageSize).Preload("Variants", activeVariants).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *ProductRepo) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	if err := r.db.WithContext(ctx).Preload("Variants", activeVariants).
		First(&p, "id_producto = ? AND activo = ?", id, true).Error; err != nil {
		return nil, translateErr(err)
	}
	return &p, nil
}
