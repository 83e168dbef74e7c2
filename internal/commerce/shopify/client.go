// Package shopify implements the commerce.API against the Shopify Admin
// REST API. Requests are rate-limited to the documented 2 rps bucket,
// retried on 429/5xx with Retry-After honoring, and guarded by a circuit
// breaker so a dead store does not stall webhook processing.
package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/commerce"
	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/models"
)

const apiVersion = "2024-01"

// Client is the Shopify Admin API client.
type Client struct {
	httpClient  *http.Client
	storeURL    string
	accessToken string
	rateLimiter *rate.Limiter
	retrier     *commerce.Retrier
	breaker     *commerce.CircuitBreaker
}

// NewClient creates a client for the given store. Store may be a bare
// store name or a full myshopify domain.
func NewClient(store, accessToken string) *Client {
	storeURL := store
	if !strings.Contains(store, ".") {
		storeURL = fmt.Sprintf("%s.myshopify.com", store)
	}
	if !strings.HasPrefix(storeURL, "http") {
		storeURL = "https://" + storeURL
	}
	return &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		storeURL:    storeURL,
		accessToken: accessToken,
		rateLimiter: rate.NewLimiter(rate.Limit(2), 1), // 2 requests per second
		retrier:     commerce.NewRetrier(nil),
		breaker:     commerce.NewCircuitBreaker(5, 30*time.Second),
	}
}

// GetProduct fetches a single product and normalizes it.
func (c *Client) GetProduct(ctx context.Context, productID string) (*models.CanonicalProduct, error) {
	body, err := c.doRequest(ctx, "GET", fmt.Sprintf("/products/%s.json", models.NormalizeID(productID)), nil, nil)
	if err != nil {
		return nil, err
	}

	var response struct {
		Product models.ProductPayload `json:"product"`
	}
	if err := decodeJSON(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse product response: %w", err)
	}
	product := response.Product.Normalize()
	if product.ID == "" {
		return nil, commerce.ErrNotFound
	}
	return product, nil
}

// GetVariant fetches a single variant and normalizes it.
func (c *Client) GetVariant(ctx context.Context, variantID string) (*models.CanonicalVariant, error) {
	body, err := c.doRequest(ctx, "GET", fmt.Sprintf("/variants/%s.json", models.NormalizeID(variantID)), nil, nil)
	if err != nil {
		return nil, err
	}

	var response struct {
		Variant models.VariantPayload `json:"variant"`
	}
	if err := decodeJSON(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse variant response: %w", err)
	}
	variant := response.Variant.Normalize()
	if variant.ID == "" {
		return nil, commerce.ErrNotFound
	}
	return &variant, nil
}

// GetProductMarkets combines the product's publication state with the
// store's enabled markets.
func (c *Client) GetProductMarkets(ctx context.Context, productID string) (*commerce.ProductMarkets, error) {
	params := url.Values{"fields": {"id,published_at,status"}}
	body, err := c.doRequest(ctx, "GET", fmt.Sprintf("/products/%s.json", models.NormalizeID(productID)), params, nil)
	if err != nil {
		return nil, err
	}

	var productResp struct {
		Product struct {
			PublishedAt *string `json:"published_at"`
			Status      string  `json:"status"`
		} `json:"product"`
	}
	if err := decodeJSON(body, &productResp); err != nil {
		return nil, fmt.Errorf("failed to parse product publication: %w", err)
	}

	marketsBody, err := c.doRequest(ctx, "GET", "/markets.json", nil, nil)
	if err != nil {
		return nil, err
	}

	var marketsResp struct {
		Markets []struct {
			Enabled  bool `json:"enabled"`
			Currency struct {
				Code string `json:"currency_code"`
			} `json:"currency_settings"`
			Regions []struct {
				CountryCode string `json:"country_code"`
			} `json:"regions"`
		} `json:"markets"`
	}
	if err := decodeJSON(marketsBody, &marketsResp); err != nil {
		return nil, fmt.Errorf("failed to parse markets response: %w", err)
	}

	result := &commerce.ProductMarkets{
		PublishedToOnlineStore: productResp.Product.PublishedAt != nil && *productResp.Product.PublishedAt != "",
	}
	for _, m := range marketsResp.Markets {
		for _, region := range m.Regions {
			if region.CountryCode == "" {
				continue
			}
			result.Markets = append(result.Markets, commerce.MarketAvailability{
				Code:      region.CountryCode,
				Available: m.Enabled,
				Currency:  m.Currency.Code,
			})
		}
	}
	return result, nil
}

// PublishProduct publishes the product to the online store channel.
func (c *Client) PublishProduct(ctx context.Context, productID string) error {
	id := models.NormalizeID(productID)
	payload := map[string]interface{}{
		"product": map[string]interface{}{
			"id":        id,
			"published": true,
		},
	}
	_, err := c.doRequest(ctx, "PUT", fmt.Sprintf("/products/%s.json", id), nil, payload)
	return err
}

// GetShippingRates flattens the store's shipping zones into a rate table
// keyed by country code.
func (c *Client) GetShippingRates(ctx context.Context) (commerce.ShippingRateTable, error) {
	body, err := c.doRequest(ctx, "GET", "/shipping_zones.json", nil, nil)
	if err != nil {
		return nil, err
	}

	var response struct {
		ShippingZones []struct {
			Countries []struct {
				Code string `json:"code"`
			} `json:"countries"`
			PriceBasedRates []struct {
				Name  string `json:"name"`
				Price string `json:"price"`
			} `json:"price_based_shipping_rates"`
			WeightBasedRates []struct {
				Name  string `json:"name"`
				Price string `json:"price"`
			} `json:"weight_based_shipping_rates"`
			Currency string `json:"currency"`
		} `json:"shipping_zones"`
	}
	if err := decodeJSON(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse shipping zones: %w", err)
	}

	table := make(commerce.ShippingRateTable)
	for _, zone := range response.ShippingZones {
		var rates []commerce.ShippingRate
		for _, r := range zone.PriceBasedRates {
			rates = append(rates, commerce.ShippingRate{Name: r.Name, Price: r.Price, Currency: zone.Currency})
		}
		for _, r := range zone.WeightBasedRates {
			rates = append(rates, commerce.ShippingRate{Name: r.Name, Price: r.Price, Currency: zone.Currency})
		}
		if len(rates) == 0 {
			continue
		}
		for _, country := range zone.Countries {
			if country.Code != "" {
				table[country.Code] = append(table[country.Code], rates...)
			}
		}
	}
	return table, nil
}

// GetInventoryLevels returns the summed available quantity across
// locations for one inventory item.
func (c *Client) GetInventoryLevels(ctx context.Context, inventoryItemID string) (*commerce.InventoryLevel, error) {
	id := models.NormalizeID(inventoryItemID)
	params := url.Values{"inventory_item_ids": {id}}
	body, err := c.doRequest(ctx, "GET", "/inventory_levels.json", params, nil)
	if err != nil {
		return nil, err
	}

	var response struct {
		InventoryLevels []struct {
			InventoryItemID json.Number `json:"inventory_item_id"`
			Available       int         `json:"available"`
		} `json:"inventory_levels"`
	}
	if err := decodeJSON(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse inventory levels: %w", err)
	}
	if len(response.InventoryLevels) == 0 {
		return nil, commerce.ErrNotFound
	}

	level := &commerce.InventoryLevel{InventoryItemID: id}
	for _, l := range response.InventoryLevels {
		level.Available += l.Available
	}
	return level, nil
}

// doRequest performs an authenticated request with rate limiting, retries,
// and the circuit breaker. 404 maps to commerce.ErrNotFound.
func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values, body interface{}) ([]byte, error) {
	if !c.breaker.Allow() {
		return nil, commerce.ErrCircuitOpen
	}
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	fullURL := fmt.Sprintf("%s/admin/api/%s%s", c.storeURL, apiVersion, path)
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	var jsonBody []byte
	if body != nil {
		var err error
		jsonBody, err = json.Marshal(body)
		if err != nil {
			return nil, err
		}
	}

	resp, err := c.retrier.DoHTTP(ctx, method+" "+path, func(ctx context.Context) (*http.Response, error) {
		var reqBody io.Reader
		if jsonBody != nil {
			reqBody = bytes.NewReader(jsonBody)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-Shopify-Access-Token", c.accessToken)
		req.Header.Set("Content-Type", "application/json")
		return c.httpClient.Do(req)
	})
	if err != nil {
		c.breaker.RecordFailure()
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.breaker.RecordFailure()
		return nil, err
	}

	if resp.StatusCode == http.StatusNotFound {
		c.breaker.RecordSuccess()
		return nil, commerce.ErrNotFound
	}
	if resp.StatusCode >= 400 {
		c.breaker.RecordFailure()
		return nil, fmt.Errorf("shopify API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	c.breaker.RecordSuccess()
	return respBody, nil
}

// decodeJSON decodes with UseNumber so numeric ids survive as their exact
// string form.
func decodeJSON(data []byte, out interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(out)
}
