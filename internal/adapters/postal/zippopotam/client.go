package zippopotam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/phenrril/tiendamx/internal/domain"
)

// Client consulta api.zippopotam.us (o un servicio compatible).
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: &http.Client{Timeout: timeout}}
}

type zipResponse struct {
	PostCode            string     `json:"post code"`
	CountryAbbreviation string     `json:"country abbreviation"`
	Places              []zipPlace `json:"places"`
}

type zipPlace struct {
	PlaceName         string `json:"place name"`
	State             string `json:"state"`
	StateAbbreviation string `json:"state abbreviation"`
}

// Lookup devuelve ErrNotFound si el código no existe en ese país y
// ErrPostalLookupUnavailable ante cualquier otra falla.
func (c *Client) Lookup(ctx context.Context, countryCode, postalCode string) (*domain.PostalPlace, error) {
	u := fmt.Sprintf("%s/%s/%s", c.baseURL, strings.ToLower(countryCode), url.PathEscape(postalCode))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPostalLookupUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPostalLookupUnavailable, err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil, domain.ErrNotFound
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", domain.ErrPostalLookupUnavailable, res.StatusCode)
	}
	var body zipResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPostalLookupUnavailable, err)
	}
	// {} es la respuesta de zippopotam para códigos inexistentes en algunos países
	if len(body.Places) == 0 {
		return nil, domain.ErrNotFound
	}
	pl := body.Places[0]
	country := strings.ToUpper(body.CountryAbbreviation)
	if country == "" {
		country = strings.ToUpper(countryCode)
	}
	cp := body.PostCode
	if cp == "" {
		cp = postalCode
	}
	return &domain.PostalPlace{
		PostalCode:  cp,
		CountryCode: country,
		State:       pl.State,
		StateCode:   pl.StateAbbreviation,
		City:        pl.PlaceName,
	}, nil
}

func isNotFound(err error) bool { return errors.Is(err, domain.ErrNotFound) }
