package spreadsheet

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/phenrril/tiendamx/internal/domain"
)

const stockSheet = "Stock"

var stockHeader = []string{"id_producto", "producto", "id_variante", "variante", "id_talla", "talla", "cantidad", "precio"}

// WriteStock genera la planilla de stock. La misma planilla, editada, sirve
// para ReadStock.
func WriteStock(w io.Writer, rows []domain.StockExportRow) error {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", stockSheet); err != nil {
		return err
	}
	header := make([]interface{}, len(stockHeader))
	for i, h := range stockHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(stockSheet, "A1", &header); err != nil {
		return err
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		var price interface{}
		if r.Price.Valid {
			price = r.Price.Decimal.InexactFloat64()
		}
		values := []interface{}{r.ProductID, r.ProductName, r.VariantID, r.VariantName, r.SizeID, r.SizeLabel, r.Quantity, price}
		if err := f.SetSheetRow(stockSheet, cell, &values); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(stockSheet, "B", "B", 36)
	_ = f.SetColWidth(stockSheet, "D", "D", 24)
	_ = f.SetPanes(stockSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
	return f.Write(w)
}

// ReadStock lee la primera hoja. Las columnas se ubican por encabezado
// (id_variante, id_talla, cantidad, precio); las filas con datos inválidos se
// devuelven como errores y no se aplican.
func ReadStock(r io.Reader) ([]domain.StockImportRow, []domain.ImportError, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: planilla inválida: %v", domain.ErrValidation, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("%w: planilla sin hojas", domain.ErrValidation)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("%w: planilla vacía", domain.ErrValidation)
	}
	cols := map[string]int{}
	for i, h := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, req := range []string{"id_variante", "id_talla", "cantidad"} {
		if _, ok := cols[req]; !ok {
			return nil, nil, fmt.Errorf("%w: falta la columna %s", domain.ErrValidation, req)
		}
	}
	cell := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var out []domain.StockImportRow
	var errs []domain.ImportError
	for i, row := range rows[1:] {
		n := i + 2
		if strings.TrimSpace(strings.Join(row, "")) == "" {
			continue
		}
		variantID, err := strconv.ParseInt(cell(row, "id_variante"), 10, 64)
		if err != nil {
			errs = append(errs, domain.ImportError{Row: n, Error: "id_variante inválido"})
			continue
		}
		sizeID, err := strconv.ParseInt(cell(row, "id_talla"), 10, 64)
		if err != nil {
			errs = append(errs, domain.ImportError{Row: n, VariantID: variantID, Error: "id_talla inválido"})
			continue
		}
		qty, err := strconv.Atoi(cell(row, "cantidad"))
		if err != nil {
			errs = append(errs, domain.ImportError{Row: n, VariantID: variantID, Error: "cantidad inválida"})
			continue
		}
		item := domain.StockImportRow{Row: n, VariantID: variantID, SizeID: sizeID, Quantity: qty}
		if raw := cell(row, "precio"); raw != "" {
			p, err := parsePrice(raw)
			if err != nil {
				errs = append(errs, domain.ImportError{Row: n, VariantID: variantID, Error: "precio inválido"})
				continue
			}
			p = p.Round(2)
			item.Price = &p
		}
		out = append(out, item)
	}
	return out, errs, nil
}

// parsePrice acepta comas sólo como separador de miles ("1,250.50"). Una coma
// decimal ("499,50" o "1.250,50") se rechaza en vez de leerse cien veces mayor.
func parsePrice(raw string) (decimal.Decimal, error) {
	if c := strings.LastIndex(raw, ","); c >= 0 {
		dot := strings.Index(raw, ".")
		if dot < 0 || c > dot {
			return decimal.Decimal{}, fmt.Errorf("coma decimal en %q", raw)
		}
	}
	return decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
}
