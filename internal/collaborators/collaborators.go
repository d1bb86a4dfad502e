// Package collaborators implements the outbound HTTP clients to the two
// sibling services this engine depends on but does not own: the User
// service (referrer chains, payout destinations) and the Notification
// service (OTP delivery, commission/withdrawal events).
package collaborators

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/TambongStercy/SBC-MS-sub012/internal/money"
)

// UserDetails is the subset of user-service profile data this engine needs.
type UserDetails struct {
	UserID           string `json:"userId"`
	Email            string `json:"email"`
	ReferrerID       string `json:"referrerId,omitempty"`
	MobileMoneyPhone string `json:"mobileMoneyPhone,omitempty"`
	CryptoAddress    string `json:"cryptoAddress,omitempty"`
}

// Criteria filters FindUsersByCriteria queries.
type Criteria struct {
	SubscriptionSKU string
	Country         string
}

// UserClient is the §7 outbound contract to the User service.
type UserClient interface {
	GetUserDetails(ctx context.Context, id string) (UserDetails, error)
	GetReferrerChain(ctx context.Context, id string, depth int) ([]string, error)
	FindUsersByCriteria(ctx context.Context, filter Criteria) ([]UserDetails, error)
	GetRandomUserIDs(ctx context.Context, n int) ([]string, error)
	UpdateBalance(ctx context.Context, id string, delta money.Money) error
}

// InternalEvent is a service-to-service notification (no end-user broadcast).
type InternalEvent struct {
	Type   string
	UserID string
	Data   map[string]string
}

// BroadcastEvent fans out to all connected clients (e.g. websocket push); it
// carries no recipient user id.
type BroadcastEvent struct {
	Type string
	Data map[string]string
}

// NotificationClient is the §7 outbound contract to the Notification service.
type NotificationClient interface {
	SendInternal(ctx context.Context, evt InternalEvent) error
	Broadcast(ctx context.Context, evt BroadcastEvent) error
}

// HTTPUserClient is a thin client over the User service's internal API,
// authenticated with the shared service secret (§7).
type HTTPUserClient struct {
	baseURL       string
	serviceSecret string
	client        *http.Client
}

func NewHTTPUserClient(baseURL, serviceSecret string, client *http.Client) *HTTPUserClient {
	return &HTTPUserClient{baseURL: baseURL, serviceSecret: serviceSecret, client: client}
}

func (c *HTTPUserClient) GetUserDetails(ctx context.Context, id string) (UserDetails, error) {
	var details UserDetails
	err := c.do(ctx, http.MethodGet, "/internal/users/"+id, nil, &details)
	return details, err
}

func (c *HTTPUserClient) GetReferrerChain(ctx context.Context, id string, depth int) ([]string, error) {
	var chain []string
	path := fmt.Sprintf("/internal/users/%s/referrer-chain?depth=%d", id, depth)
	err := c.do(ctx, http.MethodGet, path, nil, &chain)
	return chain, err
}

func (c *HTTPUserClient) FindUsersByCriteria(ctx context.Context, filter Criteria) ([]UserDetails, error) {
	var users []UserDetails
	path := fmt.Sprintf("/internal/users?subscriptionSku=%s&country=%s", filter.SubscriptionSKU, filter.Country)
	err := c.do(ctx, http.MethodGet, path, nil, &users)
	return users, err
}

func (c *HTTPUserClient) GetRandomUserIDs(ctx context.Context, n int) ([]string, error) {
	var ids []string
	path := fmt.Sprintf("/internal/users/random?n=%d", n)
	err := c.do(ctx, http.MethodGet, path, nil, &ids)
	return ids, err
}

func (c *HTTPUserClient) UpdateBalance(ctx context.Context, id string, delta money.Money) error {
	body := map[string]interface{}{"deltaAtomic": delta.Atomic, "currency": delta.Asset}
	return c.do(ctx, http.MethodPost, "/internal/users/"+id+"/balance", body, nil)
}

func (c *HTTPUserClient) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.serviceSecret)
	req.Header.Set("X-Service-Name", "payment-commission-engine")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("collaborators: user service returned %d: %s", resp.StatusCode, string(data))
	}
	if out != nil && len(data) > 0 {
		return json.Unmarshal(data, out)
	}
	return nil
}

// HTTPNotificationClient is a thin client over the Notification service.
type HTTPNotificationClient struct {
	baseURL       string
	serviceSecret string
	client        *http.Client
}

func NewHTTPNotificationClient(baseURL, serviceSecret string, client *http.Client) *HTTPNotificationClient {
	return &HTTPNotificationClient{baseURL: baseURL, serviceSecret: serviceSecret, client: client}
}

func (c *HTTPNotificationClient) SendInternal(ctx context.Context, evt InternalEvent) error {
	return c.post(ctx, "/internal/notifications/send", map[string]interface{}{
		"type": evt.Type, "userId": evt.UserID, "data": evt.Data,
	})
}

func (c *HTTPNotificationClient) Broadcast(ctx context.Context, evt BroadcastEvent) error {
	return c.post(ctx, "/internal/notifications/broadcast", map[string]interface{}{
		"type": evt.Type, "data": evt.Data,
	})
}

func (c *HTTPNotificationClient) post(ctx context.Context, path string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.serviceSecret)
	req.Header.Set("X-Service-Name", "payment-commission-engine")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("collaborators: notification service returned %d: %s", resp.StatusCode, string(data))
	}
	return nil
}
