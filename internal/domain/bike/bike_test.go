package bike

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBike_UnmarshalJSON tests decoding of server bike records
func TestBike_UnmarshalJSON(t *testing.T) {
	raw := `{
		"id": 17,
		"name": "Buster 17",
		"code": 4411,
		"latitude": "52.3676",
		"longitude": 4.9041,
		"is_available": false,
		"is_in_use": true,
		"last_used_by": "rider@example.com",
		"last_used_on": "2024-05-01T09:30:00Z",
		"capabilities": {"tires": 3, "light": 1},
		"total_distance": 120.5
	}`

	var b Bike
	require.NoError(t, json.Unmarshal([]byte(raw), &b))

	assert.Equal(t, ID("17"), b.ID, "Numeric ids should decode as strings")
	assert.Equal(t, 52.3676, b.Latitude.Float64(), "String coordinates should decode")
	assert.Equal(t, 4.9041, b.Longitude.Float64(), "Numeric coordinates should decode")
	assert.True(t, b.IsInUse)
	require.NotNil(t, b.LastUsedOn)
	assert.Equal(t, time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC), b.LastUsedOn.UTC())
	assert.Equal(t, 3, b.Capabilities.Tires)
	assert.Equal(t, 1, b.Capabilities.Light)
	assert.Equal(t, 0, b.Capabilities.Crate, "Absent capabilities should default to 0")
	assert.NoError(t, b.Validate())
}

// TestCoordinate_JSON tests coordinate encoding in both directions
func TestCoordinate_JSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected float64
		wantErr  bool
	}{
		{"string", `"52.1"`, 52.1, false},
		{"number", `-4.25`, -4.25, false},
		{"null", `null`, 0, false},
		{"empty string", `""`, 0, false},
		{"garbage", `"north"`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Coordinate
			err := json.Unmarshal([]byte(tt.input), &c)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, c.Float64())
		})
	}

	out, err := json.Marshal(Coordinate(52.001234))
	require.NoError(t, err)
	assert.Equal(t, `"52.001234"`, string(out), "Coordinates should be sent back as strings")
}

// TestBike_Validate tests the checks for bikes that anchor a ride
func TestBike_Validate(t *testing.T) {
	tests := []struct {
		name    string
		bike    *Bike
		wantErr error
	}{
		{"nil bike", nil, ErrInvalidBike},
		{"missing id", &Bike{Latitude: 52, Longitude: 4}, ErrInvalidBike},
		{"latitude out of range", &Bike{ID: "1", Latitude: 95, Longitude: 4}, ErrInvalidLocation},
		{"not a number", &Bike{ID: "1", Latitude: Coordinate(math.NaN()), Longitude: 4}, ErrInvalidLocation},
		{"valid", &Bike{ID: "1", Latitude: 52, Longitude: 4}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.bike.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

// TestBike_Clone tests that clones share no pointers
func TestBike_Clone(t *testing.T) {
	by := "rider"
	on := time.Now()
	b := Bike{ID: "1", LastUsedBy: &by, LastUsedOn: &on}

	cp := b.Clone()
	*cp.LastUsedBy = "someone else"
	*cp.LastUsedOn = on.Add(time.Hour)

	assert.Equal(t, "rider", *b.LastUsedBy)
	assert.Equal(t, on, *b.LastUsedOn)
}

// TestEquipment_Cycle tests the four-step condition cycle
func TestEquipment_Cycle(t *testing.T) {
	for _, c := range Capabilities {
		t.Run(string(c), func(t *testing.T) {
			e := Equipment{Tires: 2, Light: 1, Gears: 3, Carrier: 0, Crate: 2}
			before := e
			start, err := e.Get(c)
			require.NoError(t, err)

			for i := 0; i < conditionLevels; i++ {
				_, err := e.Cycle(c)
				require.NoError(t, err)
			}
			assert.Equal(t, before, e, "Four cycles should return every field to its original value")

			next, err := e.Cycle(c)
			require.NoError(t, err)
			assert.Equal(t, (start+1)%4, next)

			for _, other := range Capabilities {
				if other == c {
					continue
				}
				got, _ := e.Get(other)
				want, _ := before.Get(other)
				assert.Equal(t, want, got, "Cycling %s should not touch %s", c, other)
			}
		})
	}
}

// TestEquipment_CycleWraps tests the good to missing transition
func TestEquipment_CycleWraps(t *testing.T) {
	e := Equipment{Light: ConditionGood}
	v, err := e.Cycle(CapabilityLight)
	require.NoError(t, err)
	assert.Equal(t, ConditionMissing, v)

	e.Gears = 7
	v, err = e.Cycle(CapabilityGears)
	require.NoError(t, err)
	assert.Equal(t, 0, v, "Out-of-range values should be clamped before cycling")
}

// TestEquipment_UnknownCapability tests rejection of unknown names
func TestEquipment_UnknownCapability(t *testing.T) {
	e := Equipment{}
	_, err := e.Cycle("wings")
	assert.ErrorIs(t, err, ErrUnknownCapability)
	_, err = e.Get("wings")
	assert.ErrorIs(t, err, ErrUnknownCapability)
	assert.False(t, Capability("wings").IsValid())
	assert.True(t, CapabilityCrate.IsValid())
	assert.Equal(t, Equipment{}, e)
}

// TestEquipment_UnmarshalJSONClamps tests that out-of-range server values are clamped
func TestEquipment_UnmarshalJSONClamps(t *testing.T) {
	var e Equipment
	require.NoError(t, json.Unmarshal([]byte(`{"tires": 5, "light": -2, "gears": 2, "carrier": null}`), &e))

	assert.Equal(t, ConditionGood, e.Tires)
	assert.Equal(t, ConditionMissing, e.Light)
	assert.Equal(t, ConditionMediocre, e.Gears)
	assert.Equal(t, ConditionMissing, e.Carrier)
	assert.Equal(t, ConditionMissing, e.Crate)

	before := e
	for i := 0; i < 4; i++ {
		_, err := e.Cycle(CapabilityTires)
		require.NoError(t, err)
	}
	assert.Equal(t, before, e, "Four cycles should return a clamped value to where it started")
}
