package irradiation

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/heliometric/heliometric/pkg/common"
	"github.com/heliometric/heliometric/pkg/log"
	"github.com/heliometric/heliometric/pkg/types"
	"github.com/levenlabs/go-lflag"
)

const (
	nasaPowerConfidence = 0.80
	nasaPowerTimeout    = 15 * time.Second
	nasaPowerParameter  = "ALLSKY_SFC_SW_DWN"
	// POWER marks missing values with this number.
	nasaPowerFillValue = -999
)

var nasaPowerMonths = [12]string{"JAN", "FEB", "MAR", "APR", "MAY", "JUN", "JUL", "AUG", "SEP", "OCT", "NOV", "DEC"}

// NASAPower implements Provider for the NASA POWER climatology endpoint. It
// returns global horizontal irradiation so the plane geometry of the request
// is not applied.
type NASAPower struct {
	apiURL  string
	timeout time.Duration
	client  *http.Client
}

func configuredNASAPower() *NASAPower {
	n := &NASAPower{}
	apiURL := lflag.String("nasa-power-api-url", "https://power.larc.nasa.gov/api/temporal/climatology/point", "URL for the NASA POWER climatology API")
	timeout := lflag.Duration("nasa-power-timeout", nasaPowerTimeout, "Timeout for a single NASA POWER request")

	lflag.Do(func() {
		n.apiURL = *apiURL
		n.timeout = *timeout
		n.client = common.HTTPClient(n.timeout)
	})

	return n
}

// NewNASAPower returns a NASA POWER provider for the given URL.
func NewNASAPower(apiURL string, client *http.Client) *NASAPower {
	if client == nil {
		client = common.HTTPClient(nasaPowerTimeout)
	}
	return &NASAPower{
		apiURL:  apiURL,
		timeout: nasaPowerTimeout,
		client:  client,
	}
}

// Validate ensures the configuration is valid.
func (n *NASAPower) Validate() error {
	if n.apiURL == "" {
		return fmt.Errorf("nasa-power-api-url is required")
	}
	if _, err := url.Parse(n.apiURL); err != nil {
		return fmt.Errorf("failed to parse nasa power url (%s): %w", n.apiURL, err)
	}
	if n.timeout <= 0 {
		return fmt.Errorf("nasa-power-timeout must be positive")
	}
	return nil
}

func (n *NASAPower) Source() types.IrradiationSource { return types.IrradiationSourceNASA }

func (n *NASAPower) Confidence() float64 { return nasaPowerConfidence }

func (n *NASAPower) Timeout() time.Duration { return n.timeout }

// Supports is true everywhere, POWER is a global reanalysis.
func (n *NASAPower) Supports(types.Location) bool { return true }

type nasaPowerResponse struct {
	Properties struct {
		Parameter map[string]map[string]float64 `json:"parameter"`
	} `json:"properties"`
}

func (n *NASAPower) Fetch(ctx context.Context, req Request) (types.IrradiationProfile, error) {
	u, err := url.Parse(n.apiURL)
	if err != nil {
		return types.IrradiationProfile{}, fmt.Errorf("%w: invalid nasa power url: %v", types.ErrProviderUnavailable, err)
	}
	q := u.Query()
	q.Set("parameters", nasaPowerParameter)
	q.Set("community", "RE")
	q.Set("latitude", strconv.FormatFloat(req.Location.Latitude, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(req.Location.Longitude, 'f', 4, 64))
	q.Set("format", "JSON")
	u.RawQuery = q.Encode()

	log.Ctx(ctx).DebugContext(ctx, "fetching nasa power climatology", slog.String("url", u.String()))

	var resp nasaPowerResponse
	if err := common.GetJSON(ctx, n.client, u.String(), &resp); err != nil {
		return types.IrradiationProfile{}, fmt.Errorf("%w: nasa-power: %w", types.ErrProviderUnavailable, err)
	}

	values, ok := resp.Properties.Parameter[nasaPowerParameter]
	if !ok {
		return types.IrradiationProfile{}, fmt.Errorf("%w: nasa-power: missing %s", types.ErrProviderUnavailable, nasaPowerParameter)
	}

	var monthly [12]float64
	for i, name := range nasaPowerMonths {
		v, ok := values[name]
		if !ok || v <= nasaPowerFillValue {
			return types.IrradiationProfile{}, fmt.Errorf("%w: nasa-power: no data for %s", types.ErrProviderUnavailable, name)
		}
		monthly[i] = v
	}

	prof, err := types.NewIrradiationProfile(n.Source(), req.Location, monthly, n.Confidence())
	if err != nil {
		return types.IrradiationProfile{}, fmt.Errorf("%w: nasa-power: %w", types.ErrProviderUnavailable, err)
	}
	return prof, nil
}
