package utility

import (
	"fmt"
	"math"
	"time"

	"github.com/heliometric/heliometric/pkg/types"
)

const (
	sunriseHour = 6
	sunsetHour  = 18
)

// hourlyGeneration is a normalized daily PV profile: a bell curve fitted to
// the daylight hours, evaluated at the middle of every hour.
var hourlyGeneration = func() [24]float64 {
	var w [24]float64
	duration := float64(sunsetHour - sunriseHour)
	sigma := duration / 3.0
	mu := float64(sunriseHour) + duration/2.0
	var total float64
	for h := sunriseHour; h < sunsetHour; h++ {
		x := float64(h) + 0.5
		w[h] = math.Exp(-math.Pow(x-mu, 2) / (2 * math.Pow(sigma, 2)))
		total += w[h]
	}
	for h := range w {
		w[h] /= total
	}
	return w
}()

// sampleWeek is the Monday used to sample a period without a start date.
var sampleWeek = time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)

// PeakGenerationShare returns the fraction of a week's generation that falls
// inside period. Generation is assumed to follow the same daily profile on
// every day of the week. The week sampled starts at period.Start when set and
// hours are taken in the period's location.
func PeakGenerationShare(period *types.UtilityPeriod) (float64, error) {
	if period == nil || period.Hours() == 0 {
		return 0, nil
	}
	loc := time.UTC
	if period.LocationPtr != nil {
		loc = period.LocationPtr
	} else if period.Location != "" {
		var err error
		if loc, err = time.LoadLocation(period.Location); err != nil {
			return 0, fmt.Errorf("failed to load location %s: %w", period.Location, err)
		}
	}
	start := sampleWeek
	if !period.Start.IsZero() {
		start = period.Start
	}
	start = start.In(loc)

	var share float64
	for d := range 7 {
		for h := sunriseHour; h < sunsetHour; h++ {
			// the middle of the hour, like the profile itself
			t := time.Date(start.Year(), start.Month(), start.Day()+d, h, 30, 0, 0, loc)
			in, err := period.Contains(t)
			if err != nil {
				return 0, err
			}
			if in {
				share += hourlyGeneration[h] / 7
			}
		}
	}
	return math.Min(share, 1), nil
}
