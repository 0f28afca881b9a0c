package irradiation

import (
	"context"
	"math"
	"time"

	"github.com/heliometric/heliometric/pkg/types"
)

// Request describes the plane an irradiation profile is wanted for.
type Request struct {
	Location types.Location `json:"location"`
	// Tilt is the panel inclination from horizontal in degrees.
	Tilt float64 `json:"tilt"`
	// Azimuth is the compass direction the panels face in degrees, 0 is
	// north and 180 is south.
	Azimuth      float64            `json:"azimuth"`
	MountingType types.MountingType `json:"mountingType,omitempty"`
}

// Validate checks the location and plane geometry.
func (r Request) Validate() error {
	if err := r.Location.Validate(); err != nil {
		return err
	}
	if math.IsNaN(r.Tilt) || r.Tilt < 0 || r.Tilt > 90 {
		return types.NewValidationError("tilt", "must be between 0 and 90, got %v", r.Tilt)
	}
	if math.IsNaN(r.Azimuth) || r.Azimuth < 0 || r.Azimuth > 360 {
		return types.NewValidationError("azimuth", "must be between 0 and 360, got %v", r.Azimuth)
	}
	switch r.MountingType {
	case "", types.MountingRoof, types.MountingGround:
	default:
		return types.NewValidationError("mountingType", "unknown mounting type %q", r.MountingType)
	}
	return nil
}

// Provider fetches a monthly irradiation profile from one source.
type Provider interface {
	// Source identifies the provider.
	Source() types.IrradiationSource

	// Confidence is the score attached to every profile the provider returns.
	Confidence() float64

	// Timeout bounds a single Fetch. Zero means the provider never blocks.
	Timeout() time.Duration

	// Supports reports whether the provider has data for the location.
	Supports(loc types.Location) bool

	// Fetch returns the profile for the request. Failures wrap
	// types.ErrProviderUnavailable.
	Fetch(ctx context.Context, req Request) (types.IrradiationProfile, error)
}
