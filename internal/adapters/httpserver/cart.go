package httpserver

import (
	"net/http"

	"github.com/phenrril/tiendamx/internal/usecase"
)

func (s *Server) apiCartCreate(w http.ResponseWriter, r *http.Request) {
	view, err := s.carts.Create(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, view)
}

func (s *Server) apiCartGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.carts.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, view)
}

func (s *Server) apiCartAddItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		VariantID int64 `json:"variantId"`
		SizeID    int64 `json:"sizeId"`
		Quantity  int   `json:"quantity"`
	}
	if err := decodeJSON(r, 4<<10, &req); err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.carts.AddItem(r.Context(), id, req.VariantID, req.SizeID, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, view)
}

func (s *Server) apiCartUpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	itemID, err := pathID(r, "itemId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := decodeJSON(r, 1<<10, &req); err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.carts.UpdateItem(r.Context(), id, itemID, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, view)
}

func (s *Server) apiCartRemoveItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	itemID, err := pathID(r, "itemId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.carts.RemoveItem(r.Context(), id, itemID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, view)
}

// apiCartQuote responde con la forma plana {success, quotations, failed, ...}
// que consume el checkout del front.
func (s *Server) apiCartQuote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CartID      int64  `json:"cartId"`
		PostalCode  string `json:"postalCode"`
		CountryCode string `json:"countryCode"`
	}
	if err := decodeJSON(r, 2<<10, &req); err != nil {
		writeError(w, r, err)
		return
	}
	q, err := s.shipping.QuoteCart(r.Context(), usecase.QuoteRequest{
		CartID:      req.CartID,
		PostalCode:  req.PostalCode,
		CountryCode: req.CountryCode,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"orderId":     q.OrderID,
		"quotations":  q.Quotations,
		"failed":      q.Failed,
		"parcel":      q.Parcel,
		"origin":      q.Origin,
		"destination": q.Destination,
	})
}
