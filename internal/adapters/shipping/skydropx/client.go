package skydropx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/phenrril/tiendamx/internal/domain"
)

type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
	// PollInterval y MaxPolls controlan la espera de cotizaciones que la
	// API devuelve incompletas.
	PollInterval time.Duration
	MaxPolls     int
}

// Client cotiza envíos contra la API de SkyDropX. La autenticación es OAuth2
// client credentials; el token se renueva solo.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	pollInterval time.Duration
	maxPolls     int
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.MaxPolls <= 0 {
		cfg.MaxPolls = 6
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     base + "/api/v1/oauth/token",
	}
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Timeout: cfg.Timeout})
	hc := cc.Client(tokenCtx)
	hc.Timeout = cfg.Timeout
	return &Client{baseURL: base, httpClient: hc, pollInterval: cfg.PollInterval, maxPolls: cfg.MaxPolls}
}

type sdxAddress struct {
	CountryCode string `json:"country_code"`
	PostalCode  string `json:"postal_code"`
	AreaLevel1  string `json:"area_level1,omitempty"`
	AreaLevel2  string `json:"area_level2,omitempty"`
	AreaLevel3  string `json:"area_level3,omitempty"`
	Street1     string `json:"street1,omitempty"`
	Name        string `json:"name,omitempty"`
	Company     string `json:"company,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
	Reference   string `json:"reference,omitempty"`
}

type sdxParcel struct {
	Length        float64     `json:"length"`
	Width         float64     `json:"width"`
	Height        float64     `json:"height"`
	Weight        float64     `json:"weight"`
	DeclaredValue json.Number `json:"declared_value"`
}

type sdxQuotationReq struct {
	Quotation struct {
		OrderID      string      `json:"order_id"`
		AddressFrom  sdxAddress  `json:"address_from"`
		AddressTo    sdxAddress  `json:"address_to"`
		Parcels      []sdxParcel `json:"parcels"`
		ShipmentType string      `json:"shipment_type,omitempty"`
	} `json:"quotation"`
}

type sdxRate struct {
	Success             bool            `json:"success"`
	Provider            string          `json:"provider_name"`
	ProviderDisplayName string          `json:"provider_display_name"`
	ProviderServiceName string          `json:"provider_service_name"`
	Total               decimal.Decimal `json:"total"`
	CurrencyCode        string          `json:"currency_code"`
	Days                *int            `json:"days"`
	ErrorMessages       json.RawMessage `json:"error_messages"`
}

type sdxQuotationResp struct {
	ID          string    `json:"id"`
	IsCompleted *bool     `json:"is_completed"`
	Rates       []sdxRate `json:"rates"`
}

func toAddress(a domain.Address) sdxAddress {
	return sdxAddress{
		CountryCode: a.CountryCode,
		PostalCode:  a.PostalCode,
		AreaLevel1:  a.State,
		AreaLevel2:  a.City,
		AreaLevel3:  a.Neighborhood,
		Street1:     a.Street,
		Name:        a.Name,
		Company:     a.Company,
		Phone:       a.Phone,
		Email:       a.Email,
		Reference:   a.Reference,
	}
}

// Quote pide la cotización y, si la API la devuelve incompleta, la consulta
// de nuevo hasta MaxPolls veces. Cualquier falla de transporte, respuesta
// no 2xx o JSON inválido se informa como ErrShippingProviderUnavailable.
func (c *Client) Quote(ctx context.Context, req domain.QuotationRequest) ([]domain.RateAttempt, error) {
	var body sdxQuotationReq
	body.Quotation.OrderID = req.OrderID
	body.Quotation.AddressFrom = toAddress(req.From)
	body.Quotation.AddressTo = toAddress(req.To)
	body.Quotation.ShipmentType = req.ShipmentType
	body.Quotation.Parcels = []sdxParcel{{
		Length:        req.Parcel.LengthCm,
		Width:         req.Parcel.WidthCm,
		Height:        req.Parcel.HeightCm,
		Weight:        req.Parcel.WeightKg,
		DeclaredValue: json.Number(req.Parcel.DeclaredValue.StringFixed(2)),
	}}
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrShippingProviderUnavailable, err)
	}

	var resp sdxQuotationResp
	if err := c.do(ctx, http.MethodPost, "/api/v1/quotations", buf, &resp); err != nil {
		return nil, err
	}
	for i := 0; i < c.maxPolls && resp.IsCompleted != nil && !*resp.IsCompleted && resp.ID != ""; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", domain.ErrShippingProviderUnavailable, ctx.Err())
		case <-time.After(c.pollInterval):
		}
		if err := c.do(ctx, http.MethodGet, "/api/v1/quotations/"+resp.ID, nil, &resp); err != nil {
			return nil, err
		}
	}
	log.Debug().Str("order_id", req.OrderID).Int("tarifas", len(resp.Rates)).Msg("cotización skydropx")

	out := make([]domain.RateAttempt, 0, len(resp.Rates))
	for _, r := range resp.Rates {
		provider := r.ProviderDisplayName
		if provider == "" {
			provider = r.Provider
		}
		out = append(out, domain.RateAttempt{
			Provider: provider,
			Service:  r.ProviderServiceName,
			Total:    r.Total,
			Currency: r.CurrencyCode,
			Days:     r.Days,
			Success:  r.Success,
			Errors:   errorMessages(r.ErrorMessages),
		})
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, out any) error {
	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrShippingProviderUnavailable, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	res, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrShippingProviderUnavailable, err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
		return fmt.Errorf("%w: status %d: %s", domain.ErrShippingProviderUnavailable, res.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: respuesta inválida: %v", domain.ErrShippingProviderUnavailable, err)
	}
	return nil
}

// errorMessages acepta los formatos que devuelve la API: lista de textos,
// lista de objetos con "message"/"error_message", un texto suelto u objeto.
func errorMessages(raw json.RawMessage) []string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		list = []json.RawMessage{raw}
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			if s != "" {
				out = append(out, s)
			}
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal(item, &obj); err == nil {
			if msg := firstMessage(obj); msg != "" {
				out = append(out, msg)
				continue
			}
		}
		out = append(out, string(item))
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func firstMessage(obj map[string]any) string {
	for _, k := range []string{"message", "error_message", "description"} {
		if v, ok := obj[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
