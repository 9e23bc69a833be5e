package bike

import "errors"

var (
	ErrInvalidBike       = errors.New("bike has no identity")
	ErrInvalidLocation   = errors.New("bike has an invalid location")
	ErrUnknownCapability = errors.New("unknown equipment capability")
	ErrBikeNotFound      = errors.New("bike not found")
)
