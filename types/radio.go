package types

import (
	"strconv"

	"radiocode-go/drivers/sx1276"
	"radiocode-go/errcode"
)

// ------------------------
// Radio configuration
// ------------------------

// RadioConfig is supplied on "config/radio" (as a decoded JSON object) or
// on "radio/<name>/control/configure". Frequency and SyncWord of zero keep
// the values currently committed on the device.
type RadioConfig struct {
	Name            string                 `json:"name"`
	Bandwidth       sx1276.Bandwidth       `json:"bandwidth"`
	SpreadingFactor sx1276.SpreadingFactor `json:"spreading_factor"`
	CodingRate      sx1276.CodingRate      `json:"coding_rate"`
	Frequency       uint32                 `json:"frequency"`
	SyncWord        uint8                  `json:"sync_word"`
	ImplicitHeader  bool                   `json:"implicit_header"`
}

// ------------------------
// Radio state (retained)
// ------------------------

// RadioProfile mirrors the committed sx1276.Profile in config notation.
type RadioProfile struct {
	Bandwidth       string `json:"bandwidth"` // kHz, e.g. "125"
	SpreadingFactor int    `json:"spreading_factor"`
	CodingRate      string `json:"coding_rate"` // e.g. "4/5"
	Frequency       uint32 `json:"frequency"`   // Hz
	SyncWord        uint8  `json:"sync_word"`
	ImplicitHeader  bool   `json:"implicit_header"`
}

func NewRadioProfile(p sx1276.Profile) RadioProfile {
	return RadioProfile{
		Bandwidth:       p.Bandwidth.String(),
		SpreadingFactor: int(p.SpreadingFactor),
		CodingRate:      p.CodingRate.String(),
		Frequency:       p.Frequency,
		SyncWord:        p.SyncWord,
		ImplicitHeader:  p.ImplicitHeader,
	}
}

// Link is the state reported for a radio.
type Link string

const (
	LinkUp       Link = "up"
	LinkDegraded Link = "degraded"
)

type RadioStatus struct {
	State Link   `json:"state"`
	Error string `json:"error,omitempty"` // errcode.Code of the last failure
}

// Reply answers a control request.
type Reply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// RadioEvent is a non-retained diagnostic record.
type RadioEvent struct {
	Msg       string `json:"msg"`
	Frequency uint32 `json:"frequency"`
}

// ------------------------
// Decoding
// ------------------------

// ParseRadioConfig converts a decoded JSON object. Numbers may arrive as
// float64 (encoding/json) or as Go integers. Bandwidth accepts "125" or 125;
// coding rate accepts "4/5" or the denominator 5.
func ParseRadioConfig(m map[string]any) (RadioConfig, error) {
	var rc RadioConfig

	if v, ok := m["name"]; ok {
		s, ok := v.(string)
		if !ok {
			return rc, errcode.InvalidPayload
		}
		rc.Name = s
	}

	switch v := m["bandwidth"].(type) {
	case string:
		bw, ok := sx1276.ParseBandwidth(v)
		if !ok {
			return rc, errcode.InvalidBandwidth
		}
		rc.Bandwidth = bw
	case float64:
		bw, ok := sx1276.ParseBandwidth(strconv.FormatFloat(v, 'f', -1, 64))
		if !ok {
			return rc, errcode.InvalidBandwidth
		}
		rc.Bandwidth = bw
	case nil:
		return rc, errcode.InvalidBandwidth
	default:
		n, ok := toUint(v, 1<<16-1)
		if !ok {
			return rc, errcode.InvalidBandwidth
		}
		bw, ok := sx1276.ParseBandwidth(strconv.FormatUint(n, 10))
		if !ok {
			return rc, errcode.InvalidBandwidth
		}
		rc.Bandwidth = bw
	}

	n, ok := toUint(m["spreading_factor"], 0xFF)
	if !ok {
		return rc, errcode.InvalidSpreadingFactor
	}
	rc.SpreadingFactor = sx1276.SpreadingFactor(n)

	switch v := m["coding_rate"].(type) {
	case string:
		cr, ok := sx1276.ParseCodingRate(v)
		if !ok {
			return rc, errcode.InvalidCodingRate
		}
		rc.CodingRate = cr
	default:
		n, ok := toUint(v, 0xFF)
		if !ok {
			return rc, errcode.InvalidCodingRate
		}
		cr, ok := sx1276.ParseCodingRate("4/" + strconv.FormatUint(n, 10))
		if !ok {
			return rc, errcode.InvalidCodingRate
		}
		rc.CodingRate = cr
	}

	if v, ok := m["frequency"]; ok {
		n, ok := toUint(v, 1<<32-1)
		if !ok {
			return rc, errcode.InvalidFrequency
		}
		rc.Frequency = uint32(n)
	}

	if v, ok := m["sync_word"]; ok {
		n, ok := toUint(v, 0xFF)
		if !ok {
			return rc, errcode.InvalidParams
		}
		rc.SyncWord = uint8(n)
	}

	if v, ok := m["implicit_header"]; ok {
		b, ok := v.(bool)
		if !ok {
			return rc, errcode.InvalidPayload
		}
		rc.ImplicitHeader = b
	}

	return rc, nil
}

// toUint accepts non-negative whole numbers up to limit.
func toUint(v any, limit uint64) (uint64, bool) {
	var n uint64
	switch x := v.(type) {
	case float64:
		if x < 0 || x != float64(uint64(x)) {
			return 0, false
		}
		n = uint64(x)
	case int:
		if x < 0 {
			return 0, false
		}
		n = uint64(x)
	case uint8:
		n = uint64(x)
	case uint32:
		n = uint64(x)
	case int64:
		if x < 0 {
			return 0, false
		}
		n = uint64(x)
	case uint64:
		n = x
	default:
		return 0, false
	}
	if n > limit {
		return 0, false
	}
	return n, true
}
