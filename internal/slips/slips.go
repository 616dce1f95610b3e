// Package slips serves courier slip links and stores generated packing slips.
package slips

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/tournevent/courierbridge/internal/clock"
	"github.com/tournevent/courierbridge/internal/models"
	"github.com/tournevent/courierbridge/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Packing slip storage types.
const (
	TypeURL  = "url"
	TypeHTML = "html"
)

type Store interface {
	GetOrder(ctx context.Context, name string) (*models.Order, error)
	GetShipment(ctx context.Context, id string) (*models.Shipment, error)
	GetShipmentByOrder(ctx context.Context, orderName string) (*models.Shipment, error)
	UpdateShipment(ctx context.Context, s *models.Shipment) error
}

// Labels lists printable slip links for a set of orders.
type Labels struct {
	URLs    []string `json:"urls"`
	Skipped []string `json:"skipped"`
}

// PackingSlip is the outcome of GeneratePackingSlip.
type PackingSlip struct {
	Status  string `json:"status"`
	Type    string `json:"type,omitempty"`
	File    string `json:"file,omitempty"`
	Message string `json:"message,omitempty"`
}

type Service struct {
	courier shipper.Courier
	store   Store
	dir     string
	clock   clock.Clock
	logger  *otelzap.Logger
}

// NewService creates a Service writing HTML slips under dir.
func NewService(courier shipper.Courier, store Store, dir string, clk clock.Clock, logger *otelzap.Logger) *Service {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = otelzap.New(zap.NewNop())
	}
	return &Service{courier: courier, store: store, dir: dir, clock: clk, logger: logger}
}

// SlipLink returns the slip link of the order's booked shipment, or "".
func (s *Service) SlipLink(ctx context.Context, orderName string) (string, error) {
	if orderName == "" {
		return "", nil
	}
	sh, err := s.store.GetShipmentByOrder(ctx, orderName)
	if errors.Is(err, models.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("loading shipment: %w", err)
	}
	if sh.Status != models.ShipmentBooked {
		return "", nil
	}
	return sh.LabelLink, nil
}

// BulkLabels resolves a slip link per order: the booked shipment first, then
// the link mirrored on the order. Orders with neither are skipped.
func (s *Service) BulkLabels(ctx context.Context, orders []string) (*Labels, error) {
	if len(orders) == 0 {
		return nil, shipper.NewValidationError("No Delivery Notes selected")
	}

	res := &Labels{URLs: []string{}, Skipped: []string{}}
	for _, name := range orders {
		link, err := s.SlipLink(ctx, name)
		if err != nil {
			return nil, err
		}
		if link != "" {
			res.URLs = append(res.URLs, link)
			continue
		}

		order, err := s.store.GetOrder(ctx, name)
		switch {
		case errors.Is(err, models.ErrNotFound):
			return nil, shipper.NewValidationError(fmt.Sprintf("Delivery Note %s not found", name))
		case err != nil:
			return nil, fmt.Errorf("loading order: %w", err)
		case order.SlipLink != "":
			res.URLs = append(res.URLs, order.SlipLink)
		default:
			res.Skipped = append(res.Skipped, name)
		}
	}
	return res, nil
}

// GeneratePackingSlip fetches the printable consignment note once and keeps
// it on the shipment.
func (s *Service) GeneratePackingSlip(ctx context.Context, shipmentID string) (*PackingSlip, error) {
	sh, err := s.store.GetShipment(ctx, shipmentID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, shipper.NewValidationError(fmt.Sprintf("Leopards Shipment %s not found", shipmentID))
	}
	if err != nil {
		return nil, fmt.Errorf("loading shipment: %w", err)
	}

	if sh.TrackingNumber == "" {
		return nil, shipper.NewValidationError("CN number is missing. Book the shipment first.")
	}
	if sh.SlipGenerated && sh.PackingSlip != "" {
		return &PackingSlip{Status: "success", Message: "Packing slip already generated.", File: sh.PackingSlip}, nil
	}

	artifact, err := s.courier.FetchPrintArtifact(ctx, sh.TrackingNumber)
	if err != nil {
		return nil, err
	}

	var slipType string
	switch {
	case artifact.URL != "":
		sh.PackingSlip = artifact.URL
		slipType = TypeURL
	case artifact.HTML != "":
		path, err := s.writeHTML(sh.TrackingNumber, artifact.HTML)
		if err != nil {
			return nil, err
		}
		sh.PackingSlip = path
		slipType = TypeHTML
	default:
		return nil, shipper.NewAPIError(s.courier.Name(), "UNSUPPORTED_PRINT_FORMAT",
			"Unsupported packing slip format returned by Leopards.").WithCause(shipper.ErrUnsupportedPrintFormat)
	}

	sh.SlipGenerated = true
	sh.UpdatedAt = s.clock.Now()
	if err := s.store.UpdateShipment(ctx, sh); err != nil {
		return nil, fmt.Errorf("saving packing slip: %w", err)
	}

	s.logger.Ctx(ctx).Info("Generated packing slip",
		zap.String("shipment", sh.ID),
		zap.String("tracking_number", sh.TrackingNumber),
		zap.String("type", slipType),
	)
	return &PackingSlip{Status: "success", Type: slipType, File: sh.PackingSlip}, nil
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

func (s *Service) writeHTML(trackingNumber, html string) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating slip directory: %w", err)
	}
	path := filepath.Join(s.dir, unsafeFileChars.ReplaceAllString(trackingNumber, "_")+".html")
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		return "", fmt.Errorf("writing packing slip: %w", err)
	}
	return path, nil
}
