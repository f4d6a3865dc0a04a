package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultHubSpotBaseURL = "https://api.hubapi.com"
	hubSpotContactsPath   = "/crm/v3/objects/contacts"
)

// HubSpotClient talks to the HubSpot CRM v3 contacts API with a private app token.
type HubSpotClient struct {
	baseURL string
	http    *http.Client
}

func NewHubSpotClient(baseURL string, timeout time.Duration) *HubSpotClient {
	if baseURL == "" {
		baseURL = defaultHubSpotBaseURL
	}
	return &HubSpotClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type hubSpotContactRequest struct {
	Properties map[string]string `json:"properties"`
}

// CreateContact creates a contact with the given properties.
func (c *HubSpotClient) CreateContact(ctx context.Context, apiKey string, properties map[string]string) error {
	body, err := json.Marshal(hubSpotContactRequest{Properties: properties})
	if err != nil {
		return fmt.Errorf("marshal hubspot payload: %w", err)
	}
	return c.do(ctx, http.MethodPost, c.baseURL+hubSpotContactsPath, apiKey, bytes.NewReader(body))
}

// Ping lists a single contact to verify the API key.
func (c *HubSpotClient) Ping(ctx context.Context, apiKey string) error {
	return c.do(ctx, http.MethodGet, c.baseURL+hubSpotContactsPath+"?limit=1", apiKey, nil)
}

func (c *HubSpotClient) do(ctx context.Context, method, url, apiKey string, body io.Reader) error {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("hubspot request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("hubspot returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return nil
}
