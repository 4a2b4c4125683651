// Package marketplace imports orders placed on the delivery marketplace into
// the local order flow. The marketplace menu mirrors the local catalog, so
// inbound items reference combo ids directly.
package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// InboundItem is one line of a marketplace order.
type InboundItem struct {
	ComboID      string   `json:"combo_id"`
	Quantity     int32    `json:"quantity"`
	Flavors      []string `json:"flavors"`
	Observations string   `json:"observations"`
}

// InboundOrder is an order as the marketplace reports it.
type InboundOrder struct {
	Reference       string        `json:"reference"`
	OrderType       string        `json:"order_type"`
	PaymentMethod   string        `json:"payment_method"`
	CustomerName    string        `json:"customer_name"`
	CustomerPhone   string        `json:"customer_phone"`
	DeliveryAddress string        `json:"delivery_address"`
	Notes           string        `json:"notes"`
	Items           []InboundItem `json:"items"`
	PlacedAt        time.Time     `json:"placed_at"`
}

// Client talks to the marketplace partner API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a marketplace API client.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// FetchOrders returns up to limit orders awaiting import, oldest first.
func (c *Client) FetchOrders(ctx context.Context, limit int) ([]InboundOrder, error) {
	url := fmt.Sprintf("%s/orders?limit=%d", c.baseURL, limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch marketplace orders: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read marketplace response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("marketplace returned status %d", resp.StatusCode)
	}

	var orders []InboundOrder
	if err := json.Unmarshal(body, &orders); err != nil {
		return nil, fmt.Errorf("decode marketplace orders: %w", err)
	}
	return orders, nil
}
