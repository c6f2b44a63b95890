package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/phenrril/tiendamx/internal/domain"
)

type StockUC struct {
	Stock domain.StockRepo
}

// VariantPriceSummary devuelve el resumen de precios y el stock por talla de
// una variante activa de un producto activo.
func (uc *StockUC) VariantPriceSummary(ctx context.Context, variantID int64) (*domain.VariantStock, error) {
	if variantID <= 0 {
		return nil, fmt.Errorf("%w: variante", domain.ErrNotFound)
	}
	v, _, err := uc.Stock.FindActiveVariant(ctx, variantID)
	if err != nil {
		return nil, err
	}
	sizes, err := uc.Stock.ListVariantStock(ctx, variantID)
	if err != nil {
		return nil, err
	}
	return domain.NewVariantStock(v, sizes), nil
}

// PriceSummaries calcula el resumen de precios de varias variantes con una
// sola consulta. Las variantes sin stock reciben un resumen vacío.
func (uc *StockUC) PriceSummaries(ctx context.Context, variantIDs []int64) (map[int64]domain.PriceRollup, error) {
	out := make(map[int64]domain.PriceRollup, len(variantIDs))
	if len(variantIDs) == 0 {
		return out, nil
	}
	found, err := uc.Stock.PriceRollups(ctx, variantIDs)
	if err != nil {
		return nil, err
	}
	for _, id := range variantIDs {
		if r, ok := found[id]; ok {
			out[id] = r
		} else {
			out[id] = domain.PriceRollup{Uniform: true}
		}
	}
	return out, nil
}

// SetVariantPricing aplica precio único o stock por talla y devuelve el
// resumen actualizado. Escritura y limpieza de filas inválidas ocurren en la
// misma transacción dentro del repositorio.
func (uc *StockUC) SetVariantPricing(ctx context.Context, variantID int64, upd domain.PricingUpdate) (*domain.VariantStock, error) {
	if err := upd.Validate(); err != nil {
		return nil, err
	}
	v, p, err := uc.Stock.FindActiveVariant(ctx, variantID)
	if err != nil {
		return nil, err
	}

	if upd.IsUniform() {
		if err := uc.Stock.ApplyUniformPrice(ctx, variantID, *upd.UniformPrice); err != nil {
			return nil, err
		}
		log.Info().Int64("variant_id", variantID).Str("precio", upd.UniformPrice.String()).Msg("precio único aplicado")
		return uc.VariantPriceSummary(ctx, v.ID)
	}

	sizes, err := uc.Stock.SizesOfSystem(ctx, p.SizeSystemID)
	if err != nil {
		return nil, err
	}
	allowed := make(map[int64]struct{}, len(sizes))
	for _, s := range sizes {
		allowed[s.ID] = struct{}{}
	}
	current, err := uc.Stock.ListVariantStock(ctx, variantID)
	if err != nil {
		return nil, err
	}
	existing := make(map[int64]struct{}, len(current))
	for _, s := range current {
		existing[s.SizeID] = struct{}{}
	}
	for _, row := range upd.Sizes {
		if _, ok := allowed[row.SizeID]; !ok {
			return nil, fmt.Errorf("%w: la talla %d no pertenece al sistema de tallas del producto", domain.ErrValidation, row.SizeID)
		}
		if row.Quantity > 0 && row.Price == nil {
			if _, ok := existing[row.SizeID]; !ok {
				return nil, fmt.Errorf("%w: falta precio para la talla nueva %d", domain.ErrValidation, row.SizeID)
			}
		}
	}
	if err := uc.Stock.ApplySizeStock(ctx, variantID, upd.Sizes); err != nil {
		return nil, err
	}
	log.Info().Int64("variant_id", variantID).Int("tallas", len(upd.Sizes)).Msg("stock por talla aplicado")
	return uc.VariantPriceSummary(ctx, v.ID)
}

// Import aplica una planilla de stock agrupando filas por variante. Un error
// en una variante no impide aplicar las demás.
func (uc *StockUC) Import(ctx context.Context, rows []domain.StockImportRow) domain.ImportReport {
	rep := domain.ImportReport{Errors: []domain.ImportError{}}
	order := []int64{}
	groups := map[int64][]domain.StockImportRow{}
	for _, r := range rows {
		if r.VariantID <= 0 {
			rep.Errors = append(rep.Errors, domain.ImportError{Row: r.Row, Error: "id_variante inválido"})
			continue
		}
		if _, ok := groups[r.VariantID]; !ok {
			order = append(order, r.VariantID)
		}
		groups[r.VariantID] = append(groups[r.VariantID], r)
	}
	for _, vid := range order {
		g := groups[vid]
		upd := domain.PricingUpdate{Sizes: make([]domain.SizeStockInput, 0, len(g))}
		for _, r := range g {
			upd.Sizes = append(upd.Sizes, domain.SizeStockInput{SizeID: r.SizeID, Quantity: r.Quantity, Price: r.Price})
		}
		if _, err := uc.SetVariantPricing(ctx, vid, upd); err != nil {
			log.Warn().Err(err).Int64("variant_id", vid).Msg("importación de stock")
			rep.Errors = append(rep.Errors, domain.ImportError{Row: g[0].Row, VariantID: vid, Error: err.Error()})
			continue
		}
		rep.VariantsUpdated++
		rep.RowsApplied += len(g)
	}
	return rep
}

func (uc *StockUC) ExportRows(ctx context.Context) ([]domain.StockExportRow, error) {
	return uc.Stock.ExportRows(ctx)
}
