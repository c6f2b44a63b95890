package domain

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
)

// MinParcelWeightKg es el peso mínimo que se cotiza por paquete.
const MinParcelWeightKg = 0.5

type Address struct {
	Name         string `json:"name,omitempty"`
	Company      string `json:"company,omitempty"`
	Street       string `json:"street,omitempty"`
	Reference    string `json:"reference,omitempty"`
	Neighborhood string `json:"neighborhood,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	PostalCode   string `json:"postalCode"`
	CountryCode  string `json:"countryCode"`
	Phone        string `json:"phone,omitempty"`
	Email        string `json:"email,omitempty"`
}

type Parcel struct {
	LengthCm      float64         `json:"length"`
	WidthCm       float64         `json:"width"`
	HeightCm      float64         `json:"height"`
	WeightKg      float64         `json:"weight"`
	DeclaredValue decimal.Decimal `json:"declaredValue"`
}

// ParcelDefaults se aplican a productos sin peso o medidas cargadas.
type ParcelDefaults struct {
	UnitWeightKg float64
	LengthCm     float64
	WidthCm      float64
	HeightCm     float64
}

// BuildParcel arma un único paquete para el carrito: suma de pesos
// (cantidad x peso unitario), caja envolvente con el máximo de cada medida y
// valor declarado igual al subtotal. El peso nunca baja de MinParcelWeightKg.
func BuildParcel(lines []CartLine, def ParcelDefaults, declared decimal.Decimal) Parcel {
	weight := decimal.Zero
	var p Parcel
	for _, l := range lines {
		unit := def.UnitWeightKg
		if l.WeightKg != nil && *l.WeightKg > 0 {
			unit = *l.WeightKg
		}
		weight = weight.Add(decimal.NewFromFloat(unit).Mul(decimal.NewFromInt(int64(l.Quantity))))
		p.LengthCm = max(p.LengthCm, dimOr(l.LengthCm, def.LengthCm))
		p.WidthCm = max(p.WidthCm, dimOr(l.WidthCm, def.WidthCm))
		p.HeightCm = max(p.HeightCm, dimOr(l.HeightCm, def.HeightCm))
	}
	if len(lines) == 0 {
		p.LengthCm, p.WidthCm, p.HeightCm = def.LengthCm, def.WidthCm, def.HeightCm
	}
	floor := decimal.NewFromFloat(MinParcelWeightKg)
	if weight.LessThan(floor) {
		weight = floor
	}
	p.WeightKg = weight.Round(3).InexactFloat64()
	p.DeclaredValue = declared
	return p
}

func dimOr(v *float64, def float64) float64 {
	if v != nil && *v > 0 {
		return *v
	}
	return def
}

// RateAttempt es una respuesta de paquetería: una tarifa válida o un intento
// fallido con sus mensajes de error.
type RateAttempt struct {
	Provider string          `json:"provider"`
	Service  string          `json:"service"`
	Total    decimal.Decimal `json:"total"`
	Currency string          `json:"currency"`
	Days     *int            `json:"days"`
	Success  bool            `json:"success"`
	Errors   []string        `json:"errors,omitempty"`
}

// RankRates separa tarifas exitosas de intentos fallidos y ordena las
// primeras por total ascendente y, a igual total, por días de tránsito.
// Tarifas sin días informados van después de las que sí los tienen.
func RankRates(attempts []RateAttempt) (ok, failed []RateAttempt) {
	ok = []RateAttempt{}
	failed = []RateAttempt{}
	for _, a := range attempts {
		if a.Success {
			ok = append(ok, a)
		} else {
			failed = append(failed, a)
		}
	}
	sort.SliceStable(ok, func(i, j int) bool {
		if c := ok[i].Total.Cmp(ok[j].Total); c != 0 {
			return c < 0
		}
		di, dj := ok[i].Days, ok[j].Days
		switch {
		case di == nil:
			return false
		case dj == nil:
			return true
		}
		return *di < *dj
	})
	return ok, failed
}

type QuotationRequest struct {
	OrderID      string
	From         Address
	To           Address
	Parcel       Parcel
	ShipmentType string
}

type ShippingQuote struct {
	OrderID     string        `json:"orderId"`
	Quotations  []RateAttempt `json:"quotations"`
	Failed      []RateAttempt `json:"failed"`
	Origin      Address       `json:"origin"`
	Destination Address       `json:"destination"`
	Parcel      Parcel        `json:"parcel"`
}

// Pick devuelve la tarifa del proveedor/servicio pedido, o la más barata si
// no se indica ninguno.
func (q *ShippingQuote) Pick(provider, service string) (RateAttempt, bool) {
	for _, r := range q.Quotations {
		if provider == "" && service == "" {
			return r, true
		}
		if (provider == "" || r.Provider == provider) && (service == "" || r.Service == service) {
			return r, true
		}
	}
	return RateAttempt{}, false
}

// ShippingProvider cotiza un envío. Un error indica falla de transporte o
// respuesta inválida; "sin cobertura" se expresa con intentos no exitosos.
type ShippingProvider interface {
	Quote(ctx context.Context, req QuotationRequest) ([]RateAttempt, error)
}

type PostalPlace struct {
	PostalCode  string `json:"postalCode"`
	CountryCode string `json:"countryCode"`
	State       string `json:"state"`
	StateCode   string `json:"stateCode"`
	City        string `json:"city"`
}

// PostalResolver resuelve país, estado y localidad de un código postal.
type PostalResolver interface {
	Resolve(ctx context.Context, postalCode, countryCode string) (*PostalPlace, error)
}
