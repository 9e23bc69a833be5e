package bike

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ID identifies a bike on the bike-sharing service. The server sends it either
// as a JSON string or a number.
type ID string

// UnmarshalJSON accepts both string and numeric ids
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("bike id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return string(id)
}

// Coordinate is a latitude or longitude in degrees. The bike-sharing API
// transports coordinates as decimal strings; numbers are accepted too.
type Coordinate float64

// UnmarshalJSON accepts "52.1", 52.1 and null
func (c *Coordinate) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = 0
		return nil
	}
	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			*c = 0
			return nil
		}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid coordinate %q: %w", raw, err)
	}
	*c = Coordinate(v)
	return nil
}

// MarshalJSON writes the coordinate back as a string, the way the server stores it
func (c Coordinate) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatFloat(float64(c), 'f', -1, 64))
}

// Float64 returns the coordinate in degrees
func (c Coordinate) Float64() float64 {
	return float64(c)
}

// Location represents a geographic location
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the location is a finite point on the globe
func (l Location) Valid() bool {
	if math.IsNaN(l.Latitude) || math.IsNaN(l.Longitude) ||
		math.IsInf(l.Latitude, 0) || math.IsInf(l.Longitude, 0) {
		return false
	}
	return l.Latitude >= -90 && l.Latitude <= 90 &&
		l.Longitude >= -180 && l.Longitude <= 180
}

// Bike is a shared bike as reported by the bike-sharing API
type Bike struct {
	ID            ID         `json:"id"`
	Name          string     `json:"name"`
	Code          int        `json:"code"`
	Latitude      Coordinate `json:"latitude"`
	Longitude     Coordinate `json:"longitude"`
	IsAvailable   bool       `json:"is_available"`
	IsInUse       bool       `json:"is_in_use"`
	LastUsedBy    *string    `json:"last_used_by"`
	LastUsedOn    *time.Time `json:"last_used_on"`
	Capabilities  Equipment  `json:"capabilities"`
	TotalDistance float64    `json:"total_distance"`
	Notes         string     `json:"notes"`
}

// Validate checks that the bike can anchor a ride
func (b *Bike) Validate() error {
	if b == nil || strings.TrimSpace(string(b.ID)) == "" {
		return ErrInvalidBike
	}
	if !b.Location().Valid() {
		return ErrInvalidLocation
	}
	return nil
}

// Location returns the bike's registered position
func (b *Bike) Location() Location {
	return Location{Latitude: b.Latitude.Float64(), Longitude: b.Longitude.Float64()}
}

// SetLocation updates the bike's registered position
func (b *Bike) SetLocation(lat, lng float64) {
	b.Latitude = Coordinate(lat)
	b.Longitude = Coordinate(lng)
}

// Clone returns a deep copy of the bike
func (b Bike) Clone() Bike {
	if b.LastUsedBy != nil {
		by := *b.LastUsedBy
		b.LastUsedBy = &by
	}
	if b.LastUsedOn != nil {
		on := *b.LastUsedOn
		b.LastUsedOn = &on
	}
	return b
}
