package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"salonpro-pos/services"
)

// HTTPPaymentLink asks a payment-link gateway for a payable URL. The gateway
// takes a JSON POST and answers with the link and its reference.
type HTTPPaymentLink struct {
	endpoint string
	apiKey   string
	currency string
	client   *http.Client
}

func NewHTTPPaymentLink(endpoint, apiKey, currency string) *HTTPPaymentLink {
	return &HTTPPaymentLink{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		currency: strings.ToUpper(currency),
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

var _ services.PaymentLinkProvider = (*HTTPPaymentLink)(nil)

type paymentLinkRequest struct {
	Amount      string `json:"amount"`
	Currency    string `json:"currency,omitempty"`
	Description string `json:"description"`
	ClientRef   string `json:"clientRef,omitempty"`
}

type paymentLinkResponse struct {
	URL   string `json:"url"`
	ID    string `json:"id"`
	Error string `json:"error"`
}

func (p *HTTPPaymentLink) CreatePaymentLink(ctx context.Context, amount decimal.Decimal, description, clientRef string) (services.PaymentLink, error) {
	body, err := json.Marshal(paymentLinkRequest{
		Amount:      amount.StringFixed(2),
		Currency:    p.currency,
		Description: description,
		ClientRef:   clientRef,
	})
	if err != nil {
		return services.PaymentLink{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return services.PaymentLink{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return services.PaymentLink{}, fmt.Errorf("payment link request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return services.PaymentLink{}, fmt.Errorf("payment link response: %w", err)
	}
	var out paymentLinkResponse
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil && resp.StatusCode < 300 {
			return services.PaymentLink{}, fmt.Errorf("payment link response: %w", err)
		}
	}
	if resp.StatusCode >= 300 {
		msg := out.Error
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return services.PaymentLink{}, fmt.Errorf("payment link gateway returned %d: %s", resp.StatusCode, msg)
	}
	if out.URL == "" || out.ID == "" {
		return services.PaymentLink{}, fmt.Errorf("payment link gateway returned no link")
	}
	return services.PaymentLink{URL: out.URL, ExternalRef: out.ID}, nil
}
