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
	pvgisConfidence = 0.90
	pvgisTimeout    = 10 * time.Second
)

// PVGIS implements Provider for the JRC Photovoltaic Geographical Information
// System. It uses the monthly radiation tool which returns the irradiation
// on the inclined plane for every month of every year in the database.
type PVGIS struct {
	apiURL  string
	timeout time.Duration
	client  *http.Client
}

// configuredPVGIS sets up flags for PVGIS and returns the instance.
func configuredPVGIS() *PVGIS {
	p := &PVGIS{}
	apiURL := lflag.String("pvgis-api-url", "https://re.jrc.ec.europa.eu/api/v5_3", "Base URL for the PVGIS API")
	timeout := lflag.Duration("pvgis-timeout", pvgisTimeout, "Timeout for a single PVGIS request")

	lflag.Do(func() {
		p.apiURL = *apiURL
		p.timeout = *timeout
		p.client = common.HTTPClient(p.timeout)
	})

	return p
}

// NewPVGIS returns a PVGIS provider for the given base URL.
func NewPVGIS(apiURL string, client *http.Client) *PVGIS {
	if client == nil {
		client = common.HTTPClient(pvgisTimeout)
	}
	return &PVGIS{
		apiURL:  apiURL,
		timeout: pvgisTimeout,
		client:  client,
	}
}

// Validate ensures the configuration is valid.
func (p *PVGIS) Validate() error {
	if p.apiURL == "" {
		return fmt.Errorf("pvgis-api-url is required")
	}
	if _, err := url.Parse(p.apiURL); err != nil {
		return fmt.Errorf("failed to parse pvgis url (%s): %w", p.apiURL, err)
	}
	if p.timeout <= 0 {
		return fmt.Errorf("pvgis-timeout must be positive")
	}
	return nil
}

func (p *PVGIS) Source() types.IrradiationSource { return types.IrradiationSourcePVGIS }

func (p *PVGIS) Confidence() float64 { return pvgisConfidence }

func (p *PVGIS) Timeout() time.Duration { return p.timeout }

// Supports excludes the polar regions that no PVGIS radiation database covers.
func (p *PVGIS) Supports(loc types.Location) bool {
	return loc.Latitude >= -60 && loc.Latitude <= 65
}

type pvgisMonthly struct {
	Year  int      `json:"year"`
	Month int      `json:"month"`
	HiM   *float64 `json:"H(i)_m"`
}

type pvgisResponse struct {
	Outputs struct {
		Monthly []pvgisMonthly `json:"monthly"`
	} `json:"outputs"`
}

// pvgisAspect converts a compass azimuth (0 north, 180 south) to the PVGIS
// aspect where 0 is south, -90 east and 90 west.
func pvgisAspect(azimuth float64) float64 {
	aspect := azimuth - 180
	if aspect < -180 {
		aspect += 360
	}
	return aspect
}

func (p *PVGIS) Fetch(ctx context.Context, req Request) (types.IrradiationProfile, error) {
	u, err := url.Parse(p.apiURL)
	if err != nil {
		return types.IrradiationProfile{}, fmt.Errorf("%w: invalid pvgis url: %v", types.ErrProviderUnavailable, err)
	}
	u = u.JoinPath("MRcalc")
	q := u.Query()
	q.Set("lat", strconv.FormatFloat(req.Location.Latitude, 'f', 4, 64))
	q.Set("lon", strconv.FormatFloat(req.Location.Longitude, 'f', 4, 64))
	q.Set("selectrad", "1")
	q.Set("angle", strconv.FormatFloat(req.Tilt, 'f', -1, 64))
	q.Set("aspect", strconv.FormatFloat(pvgisAspect(req.Azimuth), 'f', -1, 64))
	q.Set("outputformat", "json")
	u.RawQuery = q.Encode()

	log.Ctx(ctx).DebugContext(ctx, "fetching pvgis monthly radiation", slog.String("url", u.String()))

	var resp pvgisResponse
	if err := common.GetJSON(ctx, p.client, u.String(), &resp); err != nil {
		return types.IrradiationProfile{}, fmt.Errorf("%w: pvgis: %w", types.ErrProviderUnavailable, err)
	}

	var sums [12]float64
	var counts [12]int
	for _, m := range resp.Outputs.Monthly {
		if m.Month < 1 || m.Month > 12 || m.HiM == nil {
			continue
		}
		sums[m.Month-1] += *m.HiM
		counts[m.Month-1]++
	}

	var monthly [12]float64
	for i := range monthly {
		if counts[i] == 0 {
			return types.IrradiationProfile{}, fmt.Errorf("%w: pvgis: no data for month %d", types.ErrProviderUnavailable, i+1)
		}
		// H(i)_m is kWh/m² for the whole month
		monthly[i] = sums[i] / float64(counts[i]) / float64(types.DaysInMonth[i])
	}

	prof, err := types.NewIrradiationProfile(p.Source(), req.Location, monthly, p.Confidence())
	if err != nil {
		return types.IrradiationProfile{}, fmt.Errorf("%w: pvgis: %w", types.ErrProviderUnavailable, err)
	}
	return prof, nil
}
