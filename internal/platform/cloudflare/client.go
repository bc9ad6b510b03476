package cloudflare

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

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/jaxxstorm/pulumi-nginx-demo/internal/dns"
	"github.com/jaxxstorm/pulumi-nginx-demo/internal/util/naming"
)

const defaultBaseURL = "https://api.cloudflare.com/client/v4"

// ProviderName identifies Cloudflare in state.
const ProviderName = "cloudflare"

// Client is a minimal Cloudflare API client for DNS record management.
type Client struct {
	apiToken   string
	baseURL    string
	httpClient *http.Client

	// zoneID pins every record to one zone when set.
	zoneID  string
	proxied bool

	mu    sync.Mutex
	zones map[string]string
}

var _ dns.Provider = (*Client)(nil)

// Record represents a Cloudflare DNS record.
type Record struct {
	ID      string `json:"id,omitempty"`
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
	TTL     int64  `json:"ttl,omitempty"`
	Proxied bool   `json:"proxied"`
	Comment string `json:"comment,omitempty"`
}

type apiResponse struct {
	Success bool            `json:"success"`
	Errors  []apiError      `json:"errors"`
	Result  json.RawMessage `json:"result"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type zoneResult struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Option configures a Client.
type Option func(*Client)

// WithZoneID skips the zone lookup by name.
func WithZoneID(id string) Option {
	return func(c *Client) { c.zoneID = id }
}

// WithProxied routes created records through the Cloudflare proxy.
func WithProxied(proxied bool) Option {
	return func(c *Client) { c.proxied = proxied }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL points the client at another API endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// NewClient creates a new Cloudflare API client.
func NewClient(apiToken string, opts ...Option) *Client {
	c := &Client{
		apiToken:   apiToken,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{},
		zones:      make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements dns.Provider.
func (c *Client) Name() string { return ProviderName }

// GetZoneID returns the zone ID for the given domain.
func (c *Client) GetZoneID(ctx context.Context, domain string) (string, error) {
	if c.zoneID != "" {
		return c.zoneID, nil
	}
	domain = strings.ToLower(naming.TrimDot(domain))

	c.mu.Lock()
	id, ok := c.zones[domain]
	c.mu.Unlock()
	if ok {
		return id, nil
	}

	var zones []zoneResult
	if err := c.call(ctx, http.MethodGet, "/zones?name="+url.QueryEscape(domain), nil, &zones); err != nil {
		return "", fmt.Errorf("get zone ID: %w", err)
	}
	if len(zones) == 0 {
		return "", fmt.Errorf("%w: %s", dns.ErrZoneNotFound, domain)
	}

	c.mu.Lock()
	c.zones[domain] = zones[0].ID
	c.mu.Unlock()
	return zones[0].ID, nil
}

// FindDNSRecord returns the record with the given type and name, or nil.
func (c *Client) FindDNSRecord(ctx context.Context, zoneID, typ, name string) (*Record, error) {
	query := url.Values{}
	query.Set("type", typ)
	query.Set("name", naming.TrimDot(name))

	var records []Record
	path := fmt.Sprintf("/zones/%s/dns_records?%s", zoneID, query.Encode())
	if err := c.call(ctx, http.MethodGet, path, nil, &records); err != nil {
		return nil, fmt.Errorf("find DNS record %s %s: %w", typ, name, err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// CreateDNSRecord creates a record and returns it with its ID.
func (c *Client) CreateDNSRecord(ctx context.Context, zoneID string, rec Record) (*Record, error) {
	var created Record
	if err := c.call(ctx, http.MethodPost, fmt.Sprintf("/zones/%s/dns_records", zoneID), rec, &created); err != nil {
		return nil, fmt.Errorf("create DNS record %s %s: %w", rec.Type, rec.Name, err)
	}
	return &created, nil
}

// UpdateDNSRecord overwrites an existing record.
func (c *Client) UpdateDNSRecord(ctx context.Context, zoneID, recordID string, rec Record) error {
	if err := c.call(ctx, http.MethodPut, fmt.Sprintf("/zones/%s/dns_records/%s", zoneID, recordID), rec, nil); err != nil {
		return fmt.Errorf("update DNS record %s: %w", recordID, err)
	}
	return nil
}

// DeleteDNSRecord deletes a DNS record by ID.
func (c *Client) DeleteDNSRecord(ctx context.Context, zoneID, recordID string) error {
	if err := c.call(ctx, http.MethodDelete, fmt.Sprintf("/zones/%s/dns_records/%s", zoneID, recordID), nil, nil); err != nil {
		return fmt.Errorf("delete DNS record %s: %w", recordID, err)
	}
	return nil
}

// UpsertRecord implements dns.Provider.
func (c *Client) UpsertRecord(ctx context.Context, rec dns.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	zoneID, err := c.GetZoneID(ctx, rec.Zone)
	if err != nil {
		return err
	}

	desired := Record{
		Type:    rec.Type,
		Name:    rec.Name,
		Content: rec.Target,
		TTL:     rec.TTL,
		Proxied: c.proxied,
		Comment: "managed by nginx-demo",
	}
	if c.proxied {
		// Proxied records must use automatic TTL.
		desired.TTL = 1
	}

	existing, err := c.FindDNSRecord(ctx, zoneID, rec.Type, rec.Name)
	if err != nil {
		return err
	}

	logger := log.FromContext(ctx).WithName("cloudflare")
	if existing == nil {
		if _, err := c.CreateDNSRecord(ctx, zoneID, desired); err != nil {
			return err
		}
		logger.Info("created record", "zone", zoneID, "name", rec.Name, "type", rec.Type, "target", rec.Target)
		return nil
	}

	if existing.Content == desired.Content && existing.TTL == desired.TTL && existing.Proxied == desired.Proxied {
		logger.V(1).Info("record up to date", "name", rec.Name)
		return nil
	}
	if err := c.UpdateDNSRecord(ctx, zoneID, existing.ID, desired); err != nil {
		return err
	}
	logger.Info("updated record", "zone", zoneID, "name", rec.Name, "type", rec.Type, "target", rec.Target)
	return nil
}

// DeleteRecord implements dns.Provider.
func (c *Client) DeleteRecord(ctx context.Context, rec dns.Record) error {
	zoneID, err := c.GetZoneID(ctx, rec.Zone)
	if err != nil {
		return err
	}

	existing, err := c.FindDNSRecord(ctx, zoneID, rec.Type, rec.Name)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}
	return c.DeleteDNSRecord(ctx, zoneID, existing.ID)
}

// call performs a request and decodes the result field of the envelope into
// out when out is non-nil.
func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	var resp apiResponse
	if err := c.do(req, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("API error: %s", formatErrors(resp.Errors))
	}

	if out == nil || len(resp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("parse result: %w", err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return dns.Transient(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return dns.Transient(err)
		}
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w (status %d)", err, resp.StatusCode)
	}
	return nil
}

func formatErrors(errs []apiError) string {
	if len(errs) == 0 {
		return "unknown error"
	}
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, fmt.Sprintf("%d: %s", e.Code, e.Message))
	}
	return strings.Join(parts, "; ")
}
