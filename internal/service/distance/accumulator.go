package distance

import (
	"math"

	"github.com/busterbike/ride-tracker/internal/domain/ride"
)

// EarthRadiusKM is the mean Earth radius used for every distance in the tracker
const EarthRadiusKM = 6371.0

// DefaultMinStepKM is the noise-rejection threshold. Steps shorter than this
// are GPS jitter and never reach the running total.
const DefaultMinStepKM = 0.1

// coordinatePrecision is the number of decimal places kept for the last position
const coordinatePrecision = 1e6

// Haversine calculates the great-circle distance in kilometres between two
// points given in degrees
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKM * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// RoundCoordinate keeps six decimal places of a degree value
func RoundCoordinate(deg float64) float64 {
	return math.Round(deg*coordinatePrecision) / coordinatePrecision
}

// Config holds accumulator configuration
type Config struct {
	MinStepKM float64
}

// Step describes what one sample did to a session
type Step struct {
	DistanceKM float64 `json:"distance_km"`
	Applied    bool    `json:"applied"`
	TotalKM    float64 `json:"total_km"`
}

// Accumulator folds samples into a session's running distance
type Accumulator struct {
	minStep float64
}

// NewAccumulator creates an accumulator. A negative threshold is treated as zero.
func NewAccumulator(cfg Config) *Accumulator {
	minStep := cfg.MinStepKM
	if minStep < 0 || math.IsNaN(minStep) {
		minStep = 0
	}
	return &Accumulator{minStep: minStep}
}

// MinStepKM returns the configured noise threshold
func (a *Accumulator) MinStepKM() float64 {
	return a.minStep
}

// Apply measures the step from the session's last position to the sample and
// adds it to the total when it is at least the threshold. A rejected step
// leaves the session untouched.
func (a *Accumulator) Apply(s *ride.Session, sample ride.Sample) Step {
	d := Haversine(s.LastLatitude, s.LastLongitude, sample.Latitude, sample.Longitude)
	if math.IsNaN(d) || d < a.minStep {
		return Step{DistanceKM: d, Applied: false, TotalKM: s.TotalDistance}
	}

	s.TotalDistance += d
	s.LastLatitude = RoundCoordinate(sample.Latitude)
	s.LastLongitude = RoundCoordinate(sample.Longitude)
	s.AcceptedSamples++

	return Step{DistanceKM: d, Applied: true, TotalKM: s.TotalDistance}
}
