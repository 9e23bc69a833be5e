package bike

import "encoding/json"

// Capability names one piece of equipment the rider rates at ride end
type Capability string

const (
	CapabilityTires   Capability = "tires"
	CapabilityLight   Capability = "light"
	CapabilityGears   Capability = "gears"
	CapabilityCarrier Capability = "carrier"
	CapabilityCrate   Capability = "crate"
)

// Capabilities lists every capability in display order
var Capabilities = []Capability{
	CapabilityTires,
	CapabilityLight,
	CapabilityGears,
	CapabilityCarrier,
	CapabilityCrate,
}

// Condition levels, from missing to good
const (
	ConditionMissing  = 0
	ConditionBad      = 1
	ConditionMediocre = 2
	ConditionGood     = 3

	conditionLevels = 4
)

// IsValid validates the capability name
func (c Capability) IsValid() bool {
	switch c {
	case CapabilityTires, CapabilityLight, CapabilityGears, CapabilityCarrier, CapabilityCrate:
		return true
	}
	return false
}

// Equipment is the condition report of a bike. Absent fields decode to 0.
type Equipment struct {
	Tires   int `json:"tires"`
	Light   int `json:"light"`
	Gears   int `json:"gears"`
	Carrier int `json:"carrier"`
	Crate   int `json:"crate"`
}

func (e *Equipment) field(c Capability) (*int, error) {
	switch c {
	case CapabilityTires:
		return &e.Tires, nil
	case CapabilityLight:
		return &e.Light, nil
	case CapabilityGears:
		return &e.Gears, nil
	case CapabilityCarrier:
		return &e.Carrier, nil
	case CapabilityCrate:
		return &e.Crate, nil
	}
	return nil, ErrUnknownCapability
}

// Get returns the condition of one capability
func (e Equipment) Get(c Capability) (int, error) {
	v, err := e.field(c)
	if err != nil {
		return 0, err
	}
	return *v, nil
}

// Cycle advances one capability to the next condition level, wrapping from
// good back to missing. No other field is touched.
func (e *Equipment) Cycle(c Capability) (int, error) {
	v, err := e.field(c)
	if err != nil {
		return 0, err
	}
	*v = (clampCondition(*v) + 1) % conditionLevels
	return *v, nil
}

// UnmarshalJSON decodes the server's report, clamping each value into
// ConditionMissing..ConditionGood
func (e *Equipment) UnmarshalJSON(data []byte) error {
	type raw Equipment
	var r raw
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	*e = Equipment(r)
	for _, c := range Capabilities {
		v, _ := e.field(c)
		*v = clampCondition(*v)
	}
	return nil
}

func clampCondition(v int) int {
	switch {
	case v < ConditionMissing:
		return ConditionMissing
	case v > ConditionGood:
		return ConditionGood
	}
	return v
}
