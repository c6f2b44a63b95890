package zippopotam

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/phenrril/tiendamx/internal/domain"
)

type lookuper interface {
	Lookup(ctx context.Context, countryCode, postalCode string) (*domain.PostalPlace, error)
}

// Resolver decide el país de un código postal.
//
// Con país explícito se usa ese país; si la consulta falla se sigue con el
// código postal solo. Sin país se prueban los países en orden y gana el
// primero que lo reconoce. Una falla de transporte corta la búsqueda: no se
// puede saber si un país de menor prioridad es el correcto.
type Resolver struct {
	lookup lookuper
	order  []string
}

func NewResolver(c *Client, countryOrder []string) *Resolver {
	return newResolver(c, countryOrder)
}

func newResolver(l lookuper, countryOrder []string) *Resolver {
	order := make([]string, 0, len(countryOrder))
	for _, cc := range countryOrder {
		if cc = strings.ToUpper(strings.TrimSpace(cc)); cc != "" {
			order = append(order, cc)
		}
	}
	if len(order) == 0 {
		order = []string{"MX", "US"}
	}
	return &Resolver{lookup: l, order: order}
}

func (r *Resolver) Resolve(ctx context.Context, postalCode, countryCode string) (*domain.PostalPlace, error) {
	cp := strings.TrimSpace(postalCode)
	if cp == "" {
		return nil, fmt.Errorf("%w: código postal requerido", domain.ErrValidation)
	}
	if cc := strings.ToUpper(strings.TrimSpace(countryCode)); cc != "" {
		place, err := r.lookup.Lookup(ctx, cc, cp)
		if err != nil {
			log.Warn().Err(err).Str("cp", cp).Str("pais", cc).Msg("sin datos del código postal, se cotiza solo con el código")
			return &domain.PostalPlace{PostalCode: cp, CountryCode: cc}, nil
		}
		place.CountryCode = cc
		return place, nil
	}
	for _, cc := range r.order {
		place, err := r.lookup.Lookup(ctx, cc, cp)
		if err == nil {
			return place, nil
		}
		if isNotFound(err) {
			continue
		}
		log.Error().Err(err).Str("cp", cp).Str("pais", cc).Msg("consulta de código postal")
		return nil, domain.ErrPostalLookupUnavailable
	}
	return nil, fmt.Errorf("%w: código postal %s no reconocido", domain.ErrValidation, cp)
}
