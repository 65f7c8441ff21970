// Package sx127x provides a minimal TinyGo driver for register access to the
// Semtech SX127x LoRa transceiver family, plus the configuration steps that
// are shared by every member of the family.
//
// Design notes (datasheet references):
//   - SPI mode 0, MSB first; bit 7 of the address byte selects write.
//   - A change of carrier frequency only latches when RegFrfLsb is written.
//   - Modem configuration is only writable in sleep or standby mode.
//   - Chip specific steps (OCP trim, PA DAC, LDRO, errata) live in the chip packages.
package sx127x

import (
	"errors"

	"radiocode-go/x/mathx"

	"tinygo.org/x/drivers"
)

var (
	ErrNotDetected           = errors.New("sx127x not detected")
	ErrBadField              = errors.New("bad register field")
	ErrBandwidthUnsupported  = errors.New("bandwidth not supported below 175 MHz")
	ErrChipSelectUnavailable = errors.New("chip select failed")
)

// ChipSelect drives the NSS line. Level false selects the chip.
// tinygo.org/x/drivers/sx127x.RadioControl satisfies it.
type ChipSelect interface {
	SetNss(state bool) error
}

// Config for the shared setup. Integer-only.
type Config struct {
	PreambleLength uint16 // symbols; 0 => 8
	CRC            bool
	OcpTrim        uint8 // 0 => OcpTrimDefault
}

// DefaultConfig matches the family reset recommendations.
func DefaultConfig() Config {
	return Config{
		PreambleLength: preambleDefault,
		CRC:            true,
		OcpTrim:        OcpTrimDefault,
	}
}

// Device represents one SX127x on an SPI bus.
type Device struct {
	spi drivers.SPI
	cs  ChipSelect // nil when the bus handles NSS (e.g. spidev)
	cfg Config

	// Fixed buffers to avoid per-call heap allocations.
	w [2]byte
	r [2]byte
}

// New constructs a Device. It performs no I/O.
func New(spi drivers.SPI, cs ChipSelect, cfg Config) *Device {
	if cfg.PreambleLength == 0 {
		cfg.PreambleLength = preambleDefault
	}
	if cfg.OcpTrim == 0 {
		cfg.OcpTrim = OcpTrimDefault
	}
	return &Device{spi: spi, cs: cs, cfg: cfg}
}

// Detect reads the silicon revision.
func (d *Device) Detect() error {
	v, err := d.ReadRegister(RegVersion)
	if err != nil {
		return err
	}
	if v != VersionSX127x {
		return ErrNotDetected
	}
	return nil
}

// SetOpMode selects a transceiver mode; LoRa mode is always kept.
func (d *Device) SetOpMode(mode uint8) error {
	return d.WriteRegister(RegOpMode, OpModeLoRa|(mode&OpModeMask))
}

// SetFrequency programs the carrier. LSB last.
func (d *Device) SetFrequency(hz uint32) error {
	frf := (uint64(hz) << frfBits) / fxoscHz
	if err := d.WriteRegister(RegFrfMsb, byte(frf>>16)); err != nil {
		return err
	}
	if err := d.WriteRegister(RegFrfMid, byte(frf>>8)); err != nil {
		return err
	}
	return d.WriteRegister(RegFrfLsb, byte(frf))
}

// Configure performs the family-shared modem setup. bw, sf and cr are chip
// codes as placed in the registers. cr is applied by the chip package
// together with the header mode.
func (d *Device) Configure(bw, sf, cr uint8, freq uint32, syncWord uint8) error {
	if freq < lowBandCeilingHz && (bw == BwCode250k || bw == BwCode500k) {
		return ErrBandwidthUnsupported
	}

	if err := d.SetOpMode(OpModeSleep); err != nil {
		return err
	}
	if err := d.WriteRegister(RegSyncWord, syncWord); err != nil {
		return err
	}
	if err := d.WriteRegister(RegOcp, OcpOn|(d.cfg.OcpTrim&0x1F)); err != nil {
		return err
	}
	if err := d.WriteRegister(RegPreambleMsb, byte(d.cfg.PreambleLength>>8)); err != nil {
		return err
	}
	if err := d.WriteRegister(RegPreambleLsb, byte(d.cfg.PreambleLength)); err != nil {
		return err
	}

	// Frequency and modem fields are set from standby.
	if err := d.SetOpMode(OpModeStandby); err != nil {
		return err
	}
	if err := d.SetFrequency(freq); err != nil {
		return err
	}
	if err := d.SetFieldValue(RegModemConfig2, sf>>4, 7, 4); err != nil {
		return err
	}
	if err := d.SetFieldValue(RegModemConfig2, b2u8(d.cfg.CRC), crcOnBit, crcOnBit); err != nil {
		return err
	}

	if sf == sfCode6 {
		if err := d.SetFieldValue(RegDetectOptimize, detectOptimizeSF6, 2, 0); err != nil {
			return err
		}
		return d.WriteRegister(RegDetectionThreshold, detectionThresholdSF6)
	}
	if err := d.SetFieldValue(RegDetectOptimize, detectOptimizeSF7to12, 2, 0); err != nil {
		return err
	}
	return d.WriteRegister(RegDetectionThreshold, detectionThresholdSF7to12)
}

// ---------------- Register access ----------------

// SetFieldValue writes the right-aligned value into bits hi..lo of addr,
// leaving the other bits as read back from the chip.
func (d *Device) SetFieldValue(addr, value, hi, lo uint8) error {
	if hi > 7 || lo > hi {
		return ErrBadField
	}
	mask := mathx.FieldMask(hi, lo)
	cur, err := d.ReadRegister(addr)
	if err != nil {
		return err
	}
	return d.WriteRegister(addr, (cur&^mask)|((value<<lo)&mask))
}

func (d *Device) ReadRegister(addr uint8) (uint8, error) {
	d.w[0] = addr &^ spiWriteFlag
	d.w[1] = 0
	if err := d.tx(d.w[:], d.r[:]); err != nil {
		return 0, err
	}
	return d.r[1], nil
}

func (d *Device) WriteRegister(addr, value uint8) error {
	d.w[0] = addr | spiWriteFlag
	d.w[1] = value
	return d.tx(d.w[:], nil)
}

// ---------------- Low-level SPI ----------------

func (d *Device) tx(w, r []byte) error {
	if d.cs != nil {
		if err := d.cs.SetNss(false); err != nil {
			return ErrChipSelectUnavailable
		}
	}
	err := d.spi.Tx(w, r)
	if d.cs != nil {
		if csErr := d.cs.SetNss(true); csErr != nil && err == nil {
			err = ErrChipSelectUnavailable
		}
	}
	return err
}

func b2u8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
