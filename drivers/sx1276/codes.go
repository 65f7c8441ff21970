package sx1276

import (
	"radiocode-go/drivers/sx127x"

	"tinygo.org/x/drivers/lora"
)

// Chip-agnostic parameters. Values are the tinygo lora constants; only the
// subsets listed below are supported by the SX1276 driver.
type (
	Bandwidth       uint8
	SpreadingFactor uint8
	CodingRate      uint8
)

const (
	BW62k5 Bandwidth = lora.Bandwidth_62_5
	BW125k Bandwidth = lora.Bandwidth_125_0
	BW250k Bandwidth = lora.Bandwidth_250_0
	BW500k Bandwidth = lora.Bandwidth_500_0

	SF6  SpreadingFactor = lora.SpreadingFactor6
	SF7  SpreadingFactor = lora.SpreadingFactor7
	SF8  SpreadingFactor = lora.SpreadingFactor8
	SF9  SpreadingFactor = lora.SpreadingFactor9
	SF10 SpreadingFactor = lora.SpreadingFactor10
	SF11 SpreadingFactor = lora.SpreadingFactor11
	SF12 SpreadingFactor = lora.SpreadingFactor12

	CR4_5 CodingRate = lora.CodingRate4_5
	CR4_6 CodingRate = lora.CodingRate4_6
	CR4_7 CodingRate = lora.CodingRate4_7
	CR4_8 CodingRate = lora.CodingRate4_8
)

// SX1276 register codes.
const (
	crCode4_5 = 0x02
	crCode4_6 = 0x04
	crCode4_7 = 0x06
	crCode4_8 = 0x08

	implicitHeaderBit = 0x01
)

func bandwidthCode(bw Bandwidth) (uint8, bool) {
	switch bw {
	case BW62k5:
		return sx127x.BwCode62k5, true
	case BW125k:
		return sx127x.BwCode125k, true
	case BW250k:
		return sx127x.BwCode250k, true
	case BW500k:
		return sx127x.BwCode500k, true
	default:
		return 0, false
	}
}

func spreadingFactorCode(sf SpreadingFactor) (uint8, bool) {
	if sf < SF6 || sf > SF12 {
		return 0, false
	}
	return uint8(sf) << 4, true
}

func codingRateCode(cr CodingRate) (uint8, bool) {
	switch cr {
	case CR4_5:
		return crCode4_5, true
	case CR4_6:
		return crCode4_6, true
	case CR4_7:
		return crCode4_7, true
	case CR4_8:
		return crCode4_8, true
	default:
		return 0, false
	}
}

// String forms used in configs and on the bus.

func (bw Bandwidth) String() string {
	switch bw {
	case BW62k5:
		return "62.5"
	case BW125k:
		return "125"
	case BW250k:
		return "250"
	case BW500k:
		return "500"
	default:
		return "unknown"
	}
}

func (cr CodingRate) String() string {
	switch cr {
	case CR4_5:
		return "4/5"
	case CR4_6:
		return "4/6"
	case CR4_7:
		return "4/7"
	case CR4_8:
		return "4/8"
	default:
		return "unknown"
	}
}

// ParseBandwidth accepts the kHz form ("62.5", "125", "250", "500").
func ParseBandwidth(s string) (Bandwidth, bool) {
	for _, bw := range []Bandwidth{BW62k5, BW125k, BW250k, BW500k} {
		if bw.String() == s {
			return bw, true
		}
	}
	return 0, false
}

// ParseCodingRate accepts "4/5" .. "4/8".
func ParseCodingRate(s string) (CodingRate, bool) {
	for _, cr := range []CodingRate{CR4_5, CR4_6, CR4_7, CR4_8} {
		if cr.String() == s {
			return cr, true
		}
	}
	return 0, false
}
