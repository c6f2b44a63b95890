package httpserver

import (
	"io"
	"net/http"

	"github.com/phenrril/tiendamx/internal/usecase"
)

func (s *Server) apiCheckout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CartID      int64  `json:"cartId"`
		Email       string `json:"email"`
		PostalCode  string `json:"postalCode"`
		CountryCode string `json:"countryCode"`
		Provider    string `json:"provider"`
		Service     string `json:"service"`
	}
	if err := decodeJSON(r, 4<<10, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.checkout.Checkout(r.Context(), usecase.CheckoutInput{
		CartID:      req.CartID,
		Email:       req.Email,
		PostalCode:  req.PostalCode,
		CountryCode: req.CountryCode,
		Provider:    req.Provider,
		Service:     req.Service,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, res)
}

func (s *Server) apiOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	o, err := s.checkout.Order(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, o)
}

func (s *Server) webhookStripe(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
	if err != nil {
		writeFail(w, http.StatusBadRequest, "body")
		return
	}
	if err := s.checkout.HandlePaymentEvent(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"received": true})
}
