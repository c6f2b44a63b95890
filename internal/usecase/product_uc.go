package usecase

import (
	"context"
	"fmt"

	"github.com/phenrril/tiendamx/internal/domain"
)

type ProductUC struct {
	Products domain.ProductRepo
	Stock    *StockUC
}

func (uc *ProductUC) List(ctx context.Context, f domain.ProductFilter) ([]domain.CatalogProduct, int64, error) {
	if f.PageSize == 0 {
		f.PageSize = 20
	}
	list, total, err := uc.Products.List(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	out, err := uc.withRollups(ctx, list)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (uc *ProductUC) Get(ctx context.Context, id int64) (*domain.CatalogProduct, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: producto", domain.ErrNotFound)
	}
	p, err := uc.Products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	out, err := uc.withRollups(ctx, []domain.Product{*p})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

func (uc *ProductUC) withRollups(ctx context.Context, list []domain.Product) ([]domain.CatalogProduct, error) {
	ids := []int64{}
	for _, p := range list {
		for _, v := range p.Variants {
			ids = append(ids, v.ID)
		}
	}
	rollups, err := uc.Stock.PriceSummaries(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]domain.CatalogProduct, 0, len(list))
	for _, p := range list {
		cp := domain.CatalogProduct{Product: p, Variants: make([]domain.CatalogVariant, 0, len(p.Variants))}
		for _, v := range p.Variants {
			cp.Variants = append(cp.Variants, domain.CatalogVariant{Variant: v, PriceRollup: rollups[v.ID]})
		}
		out = append(out, cp)
	}
	return out, nil
}
