// Package leopards provides integration with the Leopards Courier merchant API.
package leopards

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tournevent/courierbridge/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const carrierName = "leopards"

// Config holds Leopards configuration.
type Config struct {
	Enabled     bool
	Environment string
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	UseMock     bool // When true, uses mock API client
}

// PasswordSource resolves the API password, typically by decrypting a stored secret.
type PasswordSource interface {
	Password(ctx context.Context) (string, error)
}

// Recorder receives one observation per provider call and one per failure kind.
type Recorder interface {
	RecordRequest(operation, carrier, status string, duration float64)
	RecordError(carrier, errorType string)
}

// Client is the Leopards courier client.
// It implements the shipper.Courier interface and delegates
// API calls to the underlying APIClient (mock or HTTP).
type Client struct {
	config    Config
	apiClient APIClient
	passwords PasswordSource
	logger    *otelzap.Logger
	tracer    trace.Tracer
	recorder  Recorder
}

// New creates a new Leopards client.
// If cfg.UseMock is true, it uses a mock API client for testing.
// Otherwise, it uses the real HTTP API client.
func New(cfg Config, passwords PasswordSource, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	var apiClient APIClient

	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		apiClient = NewHTTPAPIClient(HTTPAPIClientConfig{
			BaseURL:     cfg.BaseURL,
			Environment: cfg.Environment,
			Timeout:     cfg.Timeout,
		})
	}

	return NewWithAPIClient(cfg, apiClient, passwords, logger, tracer)
}

// NewWithAPIClient creates a new Leopards client with a custom API client.
// This is useful for injecting mock clients in tests.
func NewWithAPIClient(cfg Config, apiClient APIClient, passwords PasswordSource, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	if tracer == nil {
		tracer = otel.Tracer("courierbridge/leopards")
	}
	return &Client{
		config:    cfg,
		apiClient: apiClient,
		passwords: passwords,
		logger:    logger,
		tracer:    tracer,
	}
}

// WithRecorder attaches a metrics recorder.
func (c *Client) WithRecorder(r Recorder) *Client {
	c.recorder = r
	return c
}

// Name returns the carrier name.
func (c *Client) Name() string {
	return carrierName
}

// Preflight checks that the integration is enabled and the credential resolves.
func (c *Client) Preflight(ctx context.Context) error {
	_, err := c.credentials(ctx)
	return err
}

func (c *Client) credentials(ctx context.Context) (Credentials, error) {
	if !c.config.Enabled {
		return Credentials{}, shipper.NewConfigurationError(carrierName,
			"Leopards Integration is disabled in Leopards Settings.")
	}
	if c.config.APIKey == "" {
		return Credentials{}, shipper.NewConfigurationError(carrierName, "Leopards API key is not configured.")
	}
	if c.passwords == nil {
		return Credentials{}, shipper.NewConfigurationError(carrierName, "Leopards API password is not configured.")
	}

	password, err := c.passwords.Password(ctx)
	if err != nil {
		return Credentials{}, shipper.NewConfigurationError(carrierName,
			"Unable to decrypt Leopards Settings API Password. Re-enter the password in Leopards Settings and save.").
			WithCause(err)
	}
	if password == "" {
		return Credentials{}, shipper.NewConfigurationError(carrierName, "Leopards API password is empty.")
	}

	return Credentials{APIKey: c.config.APIKey, APIPassword: password}, nil
}

// Book submits a packet booking with Leopards.
func (c *Client) Book(ctx context.Context, req *shipper.BookingRequest) (*shipper.BookingResult, error) {
	ctx, span := c.tracer.Start(ctx, "leopards.bookPacket",
		trace.WithAttributes(attribute.String("order_id", req.OrderID)))
	defer span.End()

	creds, err := c.credentials(ctx)
	if err != nil {
		return nil, c.fail(span, "bookPacket", time.Now(), err)
	}

	c.logger.Info("Booking Leopards packet",
		zap.String("order_id", req.OrderID),
		zap.String("destination_city", req.DestinationCity),
		zap.Int("weight_grams", req.WeightGrams),
	)

	started := time.Now()
	apiResp, err := c.apiClient.BookPacket(ctx, &BookPacketRequest{Credentials: creds, Booking: *req})
	if err != nil {
		c.logger.Error("Leopards API error", zap.String("operation", "bookPacket"), zap.Error(err))
		return nil, c.fail(span, "bookPacket", started, err)
	}

	if apiResp.TrackNumber == "" {
		err := shipper.NewAPIError(carrierName, "MISSING_TRACK_NUMBER",
			fmt.Sprintf("track_number missing: %s", truncateBody(apiResp.Raw)))
		return nil, c.fail(span, "bookPacket", started, err)
	}

	c.observe("bookPacket", "success", started)
	span.SetAttributes(attribute.String("track_number", apiResp.TrackNumber))

	return &shipper.BookingResult{
		TrackingNumber: apiResp.TrackNumber,
		SlipLink:       apiResp.SlipLink,
		Raw:            apiResp.Raw,
	}, nil
}

// ListServiceAreas returns the provider city list.
func (c *Client) ListServiceAreas(ctx context.Context) ([]shipper.ServiceAreaRecord, error) {
	ctx, span := c.tracer.Start(ctx, "leopards.getAllCities")
	defer span.End()

	creds, err := c.credentials(ctx)
	if err != nil {
		return nil, c.fail(span, "getAllCities", time.Now(), err)
	}

	started := time.Now()
	apiResp, err := c.apiClient.GetAllCities(ctx, &creds)
	if err != nil {
		c.logger.Error("Leopards API error", zap.String("operation", "getAllCities"), zap.Error(err))
		return nil, c.fail(span, "getAllCities", started, err)
	}

	c.observe("getAllCities", "success", started)
	span.SetAttributes(attribute.Int("cities", len(apiResp.Cities)))
	return apiResp.Cities, nil
}

// FetchPrintArtifact returns the printable consignment note for a tracking number.
func (c *Client) FetchPrintArtifact(ctx context.Context, trackingNumber string) (*shipper.PrintArtifact, error) {
	ctx, span := c.tracer.Start(ctx, "leopards.printCN",
		trace.WithAttributes(attribute.String("track_number", trackingNumber)))
	defer span.End()

	creds, err := c.credentials(ctx)
	if err != nil {
		return nil, c.fail(span, "printCN", time.Now(), err)
	}

	started := time.Now()
	apiResp, err := c.apiClient.PrintCN(ctx, &PrintCNRequest{Credentials: creds, CNNumbers: trackingNumber})
	if err != nil {
		c.logger.Error("Leopards API error", zap.String("operation", "printCN"), zap.Error(err))
		return nil, c.fail(span, "printCN", started, err)
	}

	switch {
	case apiResp.PrintURL != "":
		c.observe("printCN", "success", started)
		return &shipper.PrintArtifact{URL: apiResp.PrintURL}, nil
	case apiResp.HTML != "":
		c.observe("printCN", "success", started)
		return &shipper.PrintArtifact{HTML: apiResp.HTML}, nil
	default:
		err := shipper.NewAPIError(carrierName, "UNSUPPORTED_PRINT_FORMAT",
			"Unsupported packing slip format returned by Leopards.").
			WithCause(shipper.ErrUnsupportedPrintFormat)
		return nil, c.fail(span, "printCN", started, err)
	}
}

// TrackPacket returns the current status of a consignment.
// Provider instability never propagates: it is reported as shipper.PendingStatus.
func (c *Client) TrackPacket(ctx context.Context, trackingNumber string) (string, error) {
	ctx, span := c.tracer.Start(ctx, "leopards.trackBookedPacket",
		trace.WithAttributes(attribute.String("track_number", trackingNumber)))
	defer span.End()

	creds, err := c.credentials(ctx)
	if err != nil {
		return "", c.fail(span, "trackBookedPacket", time.Now(), err)
	}

	started := time.Now()
	apiResp, err := c.apiClient.TrackBookedPacket(ctx, &TrackRequest{
		Credentials:  creds,
		TrackNumbers: []string{trackingNumber},
	})
	if err != nil {
		c.logger.Warn("Leopards tracking unavailable, reporting pending",
			zap.String("track_number", trackingNumber),
			zap.Error(err),
		)
		c.observe("trackBookedPacket", "pending", started)
		return shipper.PendingStatus, nil
	}

	c.observe("trackBookedPacket", "success", started)
	if len(apiResp.Packets) == 0 {
		return shipper.PendingStatus, nil
	}

	latest := apiResp.Packets[0]
	for _, s := range []string{latest.CurrentStatus, latest.Status} {
		if s = strings.TrimSpace(s); s != "" {
			return s, nil
		}
	}
	return shipper.PendingStatus, nil
}

func (c *Client) fail(span trace.Span, operation string, started time.Time, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	c.observe(operation, "error", started)
	if c.recorder != nil {
		c.recorder.RecordError(carrierName, string(shipper.KindOf(err)))
	}
	return err
}

func (c *Client) observe(operation, status string, started time.Time) {
	if c.recorder == nil {
		return
	}
	c.recorder.RecordRequest(operation, carrierName, status, time.Since(started).Seconds())
}

var _ shipper.Courier = (*Client)(nil)
