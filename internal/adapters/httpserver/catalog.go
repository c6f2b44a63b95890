package httpserver

import (
	"net/http"
	"strconv"

	"github.com/phenrril/tiendamx/internal/domain"
)

func (s *Server) apiProducts(w http.ResponseWriter, r *http.Request) {
	qv := r.URL.Query()
	page, _ := strconv.Atoi(qv.Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(qv.Get("pageSize"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	f := domain.ProductFilter{Query: qv.Get("q"), Page: page, PageSize: pageSize}
	if raw := qv.Get("category"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeFail(w, http.StatusBadRequest, "category inválido")
			return
		}
		f.CategoryID = &id
	}
	list, total, err := s.catalog.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{
		"items":    list,
		"total":    total,
		"page":     page,
		"pageSize": pageSize,
	})
}

func (s *Server) apiProductByID(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.catalog.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, p)
}

func (s *Server) apiVariantStock(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	vs, err := s.stock.VariantPriceSummary(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeOK(w, http.StatusOK, vs)
}
