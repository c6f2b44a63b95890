package httpserver

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/phenrril/tiendamx/internal/adapters/spreadsheet"
	"github.com/phenrril/tiendamx/internal/domain"
)

func (s *Server) adminSetVariantPricing(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var upd domain.PricingUpdate
	if err := decodeJSON(r, 64<<10, &upd); err != nil {
		writeError(w, r, err)
		return
	}
	vs, err := s.stock.SetVariantPricing(r.Context(), id, upd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, vs)
}

func (s *Server) adminStockExport(w http.ResponseWriter, r *http.Request) {
	rows, err := s.stock.ExportRows(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := spreadsheet.WriteStock(&buf, rows); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=stock_%s.xlsx", time.Now().Format("20060102")))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) adminStockImport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(16 << 20); err != nil {
		writeFail(w, http.StatusBadRequest, "formulario inválido")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeFail(w, http.StatusBadRequest, "falta el archivo")
		return
	}
	defer file.Close()

	rows, parseErrs, err := spreadsheet.ReadStock(file)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rep := s.stock.Import(r.Context(), rows)
	rep.Errors = append(parseErrs, rep.Errors...)
	if rep.Errors == nil {
		rep.Errors = []domain.ImportError{}
	}
	log.Ctx(r.Context()).Info().Int("variantes", rep.VariantsUpdated).Int("filas", rep.RowsApplied).Int("errores", len(rep.Errors)).Msg("importación de stock")
	writeOK(w, http.StatusOK, rep)
}

func (s *Server) adminRefund(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	o, err := s.checkout.Refund(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, o)
}
