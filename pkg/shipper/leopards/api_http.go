package leopards

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tournevent/courierbridge/pkg/shipper"
)

const (
	productionBaseURL = "https://merchantapi.leopardscourier.com"
	stagingBaseURL    = "https://merchantapistaging.leopardscourier.com"

	maxErrorBody = 1024
)

// HTTPAPIClient is the production implementation of APIClient using HTTP.
type HTTPAPIClient struct {
	baseURL    string
	httpClient *http.Client
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	BaseURL     string
	Environment string // "production" selects the production host when BaseURL is empty
	Timeout     time.Duration
}

// NewHTTPAPIClient creates a new HTTP-based API client for production use.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig) *HTTPAPIClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &HTTPAPIClient{
		baseURL: ResolveBaseURL(cfg.BaseURL, cfg.Environment),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// NormalizeBaseURL returns url without trailing slashes or a trailing /api segment.
//
//	https://h, https://h/, https://h/api, https://h/api/  ->  https://h
func NormalizeBaseURL(url string) string {
	u := strings.TrimRight(strings.TrimSpace(url), "/")
	if strings.HasSuffix(strings.ToLower(u), "/api") {
		u = u[:len(u)-len("/api")]
	}
	return strings.TrimRight(u, "/")
}

// ResolveBaseURL picks the configured URL or the environment default.
func ResolveBaseURL(url, environment string) string {
	if strings.TrimSpace(url) != "" {
		return NormalizeBaseURL(url)
	}
	if strings.EqualFold(environment, "production") {
		return productionBaseURL
	}
	return stagingBaseURL
}

// Endpoint builds the operation URL: <base>/api/<operation>/format/json/.
func (c *HTTPAPIClient) Endpoint(operation string) string {
	return fmt.Sprintf("%s/api/%s/format/json/", c.baseURL, operation)
}

// BookPacket books a packet. POST /api/bookPacket/format/json/ with form data.
func (c *HTTPAPIClient) BookPacket(ctx context.Context, req *BookPacketRequest) (*BookPacketResponse, error) {
	body := []byte(req.Form().Encode())
	raw, data, err := c.post(ctx, "bookPacket", "application/x-www-form-urlencoded", body)
	if err != nil {
		return nil, err
	}

	status := stringify(data["status"])
	if status != "1" {
		return nil, shipper.NewAPIError(carrierName, "BOOKING_FAILED",
			fmt.Sprintf("Leopards booking failed: %s", truncateBody(raw)))
	}

	return &BookPacketResponse{
		Status:      status,
		TrackNumber: stringify(data["track_number"]),
		SlipLink:    stringify(data["slip_link"]),
		Raw:         json.RawMessage(raw),
	}, nil
}

// GetAllCities lists service areas. POST /api/getAllCities/format/json/.
// The list key is city_list in current responses and data in older ones.
func (c *HTTPAPIClient) GetAllCities(ctx context.Context, req *Credentials) (*CitiesResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	raw, data, err := c.post(ctx, "getAllCities", "application/json", body)
	if err != nil {
		return nil, err
	}

	status := stringify(data["status"])
	if status != "1" {
		return nil, shipper.NewAPIError(carrierName, "API_ERROR",
			fmt.Sprintf("Leopards API error: %s", truncateBody(raw)))
	}

	rows, ok := data["city_list"].([]any)
	if !ok {
		rows, ok = data["data"].([]any)
	}
	if !ok {
		return nil, shipper.NewAPIError(carrierName, "MALFORMED_CITY_LIST",
			fmt.Sprintf("city list missing from response: %s", truncateBody(raw)))
	}

	cities := make([]shipper.ServiceAreaRecord, 0, len(rows))
	for _, r := range rows {
		if m, ok := r.(map[string]any); ok {
			cities = append(cities, shipper.ServiceAreaRecord(m))
		}
	}

	return &CitiesResponse{Status: status, Cities: cities}, nil
}

// PrintCN fetches the consignment note. POST /api/printCN/format/json/.
func (c *HTTPAPIClient) PrintCN(ctx context.Context, req *PrintCNRequest) (*PrintCNResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	raw, data, err := c.post(ctx, "printCN", "application/json", body)
	if err != nil {
		return nil, err
	}

	status := stringify(data["status"])
	if status != "1" {
		return nil, shipper.NewAPIError(carrierName, "PRINT_FAILED",
			fmt.Sprintf("Leopards printCN failed: %s", truncateBody(raw)))
	}

	return &PrintCNResponse{
		Status:   status,
		PrintURL: stringify(data["print_url"]),
		HTML:     stringify(data["html"]),
	}, nil
}

// TrackBookedPacket fetches tracking records. POST /api/trackBookedPacket/format/json/.
func (c *HTTPAPIClient) TrackBookedPacket(ctx context.Context, req *TrackRequest) (*TrackResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	raw, data, err := c.post(ctx, "trackBookedPacket", "application/json", body)
	if err != nil {
		return nil, err
	}

	status := stringify(data["status"])
	if status != "1" {
		return nil, shipper.NewAPIError(carrierName, "TRACKING_FAILED",
			fmt.Sprintf("Tracking failed: %s", truncateBody(raw)))
	}

	result := &TrackResponse{Status: status}
	list, _ := data["packet_list"].([]any)
	for _, p := range list {
		m, ok := p.(map[string]any)
		if !ok {
			continue
		}
		result.Packets = append(result.Packets, Packet{
			CurrentStatus: stringify(m["current_status"]),
			Status:        stringify(m["status"]),
		})
	}
	return result, nil
}

// post performs the request and decodes the JSON envelope.
// Connection failures are transport errors; non-200 and undecodable bodies are API errors.
func (c *HTTPAPIClient) post(ctx context.Context, operation, contentType string, body []byte) ([]byte, map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(operation), bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "courierbridge/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, shipper.NewTransportError(carrierName,
			fmt.Sprintf("Leopards %s connection error", operation), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, shipper.NewTransportError(carrierName,
			fmt.Sprintf("Leopards %s read error", operation), err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, nil, shipper.NewAPIError(carrierName, fmt.Sprintf("HTTP_%d", resp.StatusCode),
			fmt.Sprintf("Leopards HTTP %d: %s", resp.StatusCode, truncateBody(raw))).
			WithStatusCode(resp.StatusCode).
			WithRetryable(resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var data map[string]any
	if err := dec.Decode(&data); err != nil {
		return nil, nil, shipper.NewAPIError(carrierName, "INVALID_JSON",
			fmt.Sprintf("Invalid JSON response from Leopards: %s", truncateBody(raw)))
	}

	return raw, data, nil
}

// stringify renders loosely typed JSON scalars the way the provider documents them:
// status may arrive as 1 or "1", tracking numbers as numbers or strings.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(t)
	}
}

func truncateBody(b []byte) string {
	if len(b) > maxErrorBody {
		return string(b[:maxErrorBody]) + "..."
	}
	return string(b)
}

// Ensure HTTPAPIClient implements APIClient interface
var _ APIClient = (*HTTPAPIClient)(nil)
