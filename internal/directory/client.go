// Package directory wraps the external directory service: member lookup,
// marker grant/revoke scoped to one tenant, and direct notifications.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/leavekeeper/leavekeeper/internal/shared"
)

// Member is a directory-service account inside the tenant.
type Member struct {
	AccountID string   `json:"account_id"`
	Display   string   `json:"display"`
	Rank      int      `json:"rank"`
	MarkerIDs []string `json:"marker_ids"`
}

// Marker is a status indicator that can be applied to members.
type Marker struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Rank int    `json:"rank"`
}

// Client talks to the directory service REST API for a single tenant.
type Client struct {
	baseURL    string
	token      string
	tenantID   string
	httpClient *http.Client
}

// NewClient constructs a new client.
func NewClient(baseURL, token, tenantID string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:  baseURL,
		token:    token,
		tenantID: tenantID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// HasMarker reports whether the member currently carries the marker.
func (m Member) HasMarker(markerID string) bool {
	for _, id := range m.MarkerIDs {
		if id == markerID {
			return true
		}
	}
	return false
}

// Automation fetches the service's own member record, including its rank.
func (c *Client) Automation(ctx context.Context) (Member, error) {
	var member Member
	err := c.do(ctx, http.MethodGet, c.tenantPath("automation"), nil, &member)
	if err != nil {
		return Member{}, fmt.Errorf("directory: fetch automation member: %w", err)
	}
	return member, nil
}

// Marker fetches one marker's metadata.
func (c *Client) Marker(ctx context.Context, markerID string) (Marker, error) {
	var marker Marker
	err := c.do(ctx, http.MethodGet, c.tenantPath("markers", markerID), nil, &marker)
	if err != nil {
		return Marker{}, fmt.Errorf("directory: fetch marker %s: %w", markerID, err)
	}
	return marker, nil
}

// Member fetches a member by account id.
func (c *Client) Member(ctx context.Context, accountID string) (Member, error) {
	var member Member
	err := c.do(ctx, http.MethodGet, c.tenantPath("members", accountID), nil, &member)
	if err != nil {
		return Member{}, fmt.Errorf("directory: fetch member %s: %w", accountID, err)
	}
	return member, nil
}

// GrantMarker applies a marker to a member. The service treats a repeated
// grant as a no-op success.
func (c *Client) GrantMarker(ctx context.Context, accountID, markerID string) error {
	err := c.do(ctx, http.MethodPut, c.tenantPath("members", accountID, "markers", markerID), nil, nil)
	if err != nil {
		return fmt.Errorf("directory: grant marker %s to %s: %w", markerID, accountID, err)
	}
	return nil
}

// RevokeMarker removes a marker from a member. Removing an absent marker is a
// no-op success.
func (c *Client) RevokeMarker(ctx context.Context, accountID, markerID string) error {
	err := c.do(ctx, http.MethodDelete, c.tenantPath("members", accountID, "markers", markerID), nil, nil)
	if err != nil {
		return fmt.Errorf("directory: revoke marker %s from %s: %w", markerID, accountID, err)
	}
	return nil
}

type notification struct {
	AccountID string `json:"account_id"`
	Message   string `json:"message"`
}

// SendNotification delivers a direct message to a member.
func (c *Client) SendNotification(ctx context.Context, accountID, message string) error {
	err := c.do(ctx, http.MethodPost, c.tenantPath("notifications"), notification{AccountID: accountID, Message: message}, nil)
	if err != nil {
		return fmt.Errorf("directory: notify %s: %w", accountID, err)
	}
	return nil
}

func (c *Client) tenantPath(parts ...string) string {
	p := "/v1/tenants/" + url.PathEscape(c.tenantID)
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transport failures are retryable by the next tick.
		return fmt.Errorf("%v: %w", err, shared.ErrTransient)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		return statusError(resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// statusError maps HTTP failure codes onto the domain error taxonomy.
func statusError(code int) error {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("status %d: %w", code, shared.ErrPermission)
	case code == http.StatusNotFound:
		return fmt.Errorf("status %d: %w", code, shared.ErrNotFound)
	case code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500:
		return fmt.Errorf("status %d: %w", code, shared.ErrTransient)
	default:
		return fmt.Errorf("directory service returned status %d", code)
	}
}
