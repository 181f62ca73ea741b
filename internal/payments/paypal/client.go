// Package paypal is the redirect/capture payment adapter.
package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"storefront/internal/apperrors"
	"storefront/internal/logger"
	"storefront/internal/models"
	"storefront/internal/payments"

	"github.com/shopspring/decimal"
)

// State is the lifecycle of a PayPal order as seen by the storefront.
type State string

const (
	StateCreated          State = "created"
	StateAwaitingApproval State = "awaiting_approval"
	StateCaptured         State = "captured"
	StateCancelled        State = "cancelled"
)

// StateOf maps a PayPal order status onto State.
func StateOf(status string) State {
	switch strings.ToUpper(status) {
	case "COMPLETED":
		return StateCaptured
	case "APPROVED", "PAYER_ACTION_REQUIRED":
		return StateAwaitingApproval
	case "VOIDED":
		return StateCancelled
	default:
		return StateCreated
	}
}

// Gateway is what checkout needs from a redirect/capture provider.
type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*payments.ProviderOrder, error)
	Capture(ctx context.Context, token string) (payments.Confirmation, error)
}

type OrderRequest struct {
	Amount    decimal.Decimal
	Currency  string
	CartID    string
	ReturnURL string
	CancelURL string
}

type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	logger       *logger.Logger

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
}

func NewClient(baseURL, clientID, clientSecret string, timeout time.Duration, logger *logger.Logger) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Configured reports whether credentials are present at all.
func (c *Client) Configured() bool {
	return c.clientID != "" && c.clientSecret != ""
}

// CreateOrder registers a capture-intent order carrying the cart id and returns the
// URL the buyer must be sent to for approval.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*payments.ProviderOrder, error) {
	if !c.Configured() {
		return nil, apperrors.Provider(nil, "paypal credentials are not configured")
	}

	payload := createOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnitRequest{{
			CustomID: req.CartID,
			Amount: amount{
				CurrencyCode: strings.ToUpper(req.Currency),
				Value:        req.Amount.StringFixed(2),
			},
		}},
		ApplicationContext: applicationContext{
			ReturnURL:          req.ReturnURL,
			CancelURL:          req.CancelURL,
			UserAction:         "PAY_NOW",
			ShippingPreference: "GET_FROM_FILE",
		},
	}

	var order orderResponse
	if err := c.do(ctx, http.MethodPost, "/v2/checkout/orders", payload, &order); err != nil {
		return nil, err
	}

	approval := order.link("approve")
	if approval == "" {
		approval = order.link("payer-action")
	}
	if approval == "" {
		return nil, apperrors.Provider(nil, "paypal order %s has no approval link", order.ID)
	}

	c.logger.Info("Created PayPal order %s for cart %s (%s)", order.ID, req.CartID, StateOf(order.Status))
	return &payments.ProviderOrder{
		ID:          order.ID,
		ApprovalURL: approval,
		Mode:        payments.ModeLive,
	}, nil
}

// Capture captures an approved order. A capture PayPal reports as anything other
// than COMPLETED comes back as a failed confirmation, not an error.
func (c *Client) Capture(ctx context.Context, token string) (payments.Confirmation, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return payments.Confirmation{}, apperrors.Validation("missing paypal token")
	}

	var order orderResponse
	path := fmt.Sprintf("/v2/checkout/orders/%s/capture", url.PathEscape(token))
	if err := c.do(ctx, http.MethodPost, path, struct{}{}, &order); err != nil {
		return payments.Confirmation{}, err
	}
	return order.confirmation(token), nil
}

// token returns a cached client-credentials token, exchanging a new one when the
// cached one is missing or about to expire.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.expiresAt) {
		return c.accessToken, nil
	}

	data := url.Values{}
	data.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/oauth2/token", strings.NewReader(data.Encode()))
	if err != nil {
		return "", apperrors.Provider(err, "failed to create token request")
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperrors.Provider(err, "paypal token exchange failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", apperrors.Provider(fmt.Errorf("status %d - %s", resp.StatusCode, string(body)), "paypal token exchange rejected")
	}

	var tokenResp tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", apperrors.Provider(err, "failed to decode paypal token")
	}
	if tokenResp.AccessToken == "" {
		return "", apperrors.Provider(nil, "paypal returned an empty access token")
	}

	// refresh a minute early so an in-flight request never carries an expired token
	ttl := time.Duration(tokenResp.ExpiresIn)*time.Second - time.Minute
	if ttl < 0 {
		ttl = 0
	}
	c.accessToken = tokenResp.AccessToken
	c.expiresAt = time.Now().Add(ttl)
	return c.accessToken, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, target interface{}) error {
	accessToken, err := c.token(ctx)
	if err != nil {
		return err
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return apperrors.Provider(err, "failed to marshal paypal request")
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return apperrors.Provider(err, "failed to create paypal request")
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.Provider(err, "paypal request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode == http.StatusUnauthorized {
			c.mu.Lock()
			c.accessToken = ""
			c.mu.Unlock()
		}
		return apperrors.Provider(fmt.Errorf("status %d - %s", resp.StatusCode, string(body)), "paypal %s %s failed", method, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return apperrors.Provider(err, "failed to decode paypal response")
	}
	return nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type amount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type purchaseUnitRequest struct {
	CustomID string `json:"custom_id"`
	Amount   amount `json:"amount"`
}

type applicationContext struct {
	ReturnURL          string `json:"return_url"`
	CancelURL          string `json:"cancel_url"`
	UserAction         string `json:"user_action,omitempty"`
	ShippingPreference string `json:"shipping_preference,omitempty"`
}

type createOrderRequest struct {
	Intent             string                `json:"intent"`
	PurchaseUnits      []purchaseUnitRequest `json:"purchase_units"`
	ApplicationContext applicationContext    `json:"application_context"`
}

type link struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

type orderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []link `json:"links"`
	Payer  struct {
		EmailAddress string `json:"email_address"`
		Name         struct {
			GivenName string `json:"given_name"`
			Surname   string `json:"surname"`
		} `json:"name"`
	} `json:"payer"`
	PurchaseUnits []struct {
		CustomID string `json:"custom_id"`
		Shipping struct {
			Name struct {
				FullName string `json:"full_name"`
			} `json:"name"`
			Address struct {
				AddressLine1 string `json:"address_line_1"`
				AdminArea2   string `json:"admin_area_2"`
				PostalCode   string `json:"postal_code"`
				CountryCode  string `json:"country_code"`
			} `json:"address"`
		} `json:"shipping"`
		Payments struct {
			Captures []struct {
				ID       string `json:"id"`
				Status   string `json:"status"`
				CustomID string `json:"custom_id"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

func (o *orderResponse) link(rel string) string {
	for _, l := range o.Links {
		if l.Rel == rel {
			return l.Href
		}
	}
	return ""
}

func (o *orderResponse) confirmation(token string) payments.Confirmation {
	conf := payments.Confirmation{
		Provider:   payments.ProviderPayPal,
		EventType:  "capture",
		PaymentRef: o.ID,
	}
	if conf.PaymentRef == "" {
		conf.PaymentRef = token
	}

	name := strings.TrimSpace(o.Payer.Name.GivenName + " " + o.Payer.Name.Surname)
	conf.Customer = payments.Customer{Name: name, Email: o.Payer.EmailAddress}

	if len(o.PurchaseUnits) > 0 {
		unit := o.PurchaseUnits[0]
		conf.CartID = unit.CustomID
		for _, capture := range unit.Payments.Captures {
			if conf.CartID == "" && capture.CustomID != "" {
				conf.CartID = capture.CustomID
			}
		}
		if conf.Customer.Name == "" {
			conf.Customer.Name = unit.Shipping.Name.FullName
		}
		conf.Customer.Address = models.Address{
			Line1:      unit.Shipping.Address.AddressLine1,
			City:       unit.Shipping.Address.AdminArea2,
			Country:    unit.Shipping.Address.CountryCode,
			PostalCode: unit.Shipping.Address.PostalCode,
		}
	}

	if StateOf(o.Status) == StateCaptured {
		conf.Outcome = payments.OutcomeConfirmed
	} else {
		conf.Outcome = payments.OutcomeFailed
		conf.Reason = fmt.Sprintf("capture status %s", o.Status)
	}
	return conf
}
