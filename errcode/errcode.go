package errcode

import (
	"errors"

	"radiocode-go/drivers/sx1276"
	"radiocode-go/drivers/sx127x"
)

// Code is a stable, bus-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK             Code = "ok"
	Busy           Code = "busy"
	Unavailable    Code = "unavailable"
	InvalidParams  Code = "invalid_params"
	InvalidPayload Code = "invalid_payload"

	// Radio configuration.
	InvalidBandwidth       Code = "invalid_bandwidth"
	InvalidSpreadingFactor Code = "invalid_spreading_factor"
	InvalidCodingRate      Code = "invalid_coding_rate"
	InvalidFrequency       Code = "invalid_frequency"
	BandwidthUnsupported   Code = "bandwidth_unsupported"
	NotDetected            Code = "not_detected"
	IOError                Code = "io_error"

	Error Code = "error" // generic fallback
)

// Optional wrapper when we want to keep context and a cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	if e.Msg != "" {
		return string(e.C) + ": " + e.Msg
	}
	return string(e.C)
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Wrap attaches a code and operation to a driver error.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &E{C: MapDriverErr(err), Op: op, Msg: err.Error(), Err: err}
}

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return Error
}

// MapDriverErr maps low-level driver errors to a Code.
// Anything the radio drivers do not name is a bus/transport failure.
func MapDriverErr(err error) Code {
	switch {
	case err == nil:
		return OK
	case errors.Is(err, sx1276.ErrInvalidBandwidth):
		return InvalidBandwidth
	case errors.Is(err, sx1276.ErrInvalidSpreadingFactor):
		return InvalidSpreadingFactor
	case errors.Is(err, sx1276.ErrInvalidCodingRate):
		return InvalidCodingRate
	case errors.Is(err, sx1276.ErrInvalidFrequency):
		return InvalidFrequency
	case errors.Is(err, sx127x.ErrBandwidthUnsupported):
		return BandwidthUnsupported
	case errors.Is(err, sx127x.ErrNotDetected):
		return NotDetected
	case errors.Is(err, sx127x.ErrBadField):
		return InvalidParams
	default:
		return IOError
	}
}
