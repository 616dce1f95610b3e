package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tournevent/courierbridge/internal/models"
	"github.com/tournevent/courierbridge/pkg/shipper"
)

// CityResolver maps a configured or address city to a provider service-area id,
// enforcing origin/destination eligibility.
type CityResolver struct {
	areas AreaLookup
}

func NewCityResolver(areas AreaLookup) *CityResolver {
	return &CityResolver{areas: areas}
}

// Resolve accepts either a service-area id or an active service-area name.
func (r *CityResolver) Resolve(ctx context.Context, value string, forOrigin bool) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", shipper.NewValidationError("City is missing.")
	}

	area, err := r.areas.GetServiceArea(ctx, value)
	switch {
	case err == nil:
		if err := checkEligible(area, area.Name, forOrigin); err != nil {
			return "", err
		}
		return area.ID, nil
	case !errors.Is(err, models.ErrNotFound):
		return "", fmt.Errorf("looking up service area %q: %w", value, err)
	}

	area, err = r.areas.FindActiveServiceArea(ctx, value)
	if errors.Is(err, models.ErrNotFound) {
		return "", shipper.NewValidationError(fmt.Sprintf("City '%s' not mapped for Leopards", value))
	}
	if err != nil {
		return "", fmt.Errorf("looking up service area %q: %w", value, err)
	}
	if err := checkEligible(area, value, forOrigin); err != nil {
		return "", err
	}
	return area.ID, nil
}

func checkEligible(area *models.ServiceArea, label string, forOrigin bool) error {
	if forOrigin && !area.AllowAsOrigin {
		return shipper.NewValidationError(label + " not allowed as origin")
	}
	if !forOrigin && !area.AllowAsDestination {
		return shipper.NewValidationError(label + " not allowed as destination")
	}
	return nil
}
