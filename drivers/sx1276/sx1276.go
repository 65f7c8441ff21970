// Package sx1276 configures the LoRa modulation of a Semtech SX1276.
//
// Design notes (datasheet and errata references):
//   - Family-shared setup (sleep/standby, sync word, preamble, FRF, SF) is done
//     by the CommonConfigurator, normally *sx127x.Device.
//   - OCP is raised from the 120 mA family default to 150 mA.
//   - Low data-rate optimisation is set for 125 kHz with SF11/SF12 (symbol
//     time above 16 ms) and cleared for every other combination.
//   - Errata note 1.1 §2.1: at 500 kHz, 0x36 <- 0x02 and 0x3A <- 0x64;
//     otherwise 0x36 <- 0x03.
//
// A Device is not safe for concurrent Configure calls; callers serialise
// per device. Distinct devices are independent.
package sx1276

import (
	"errors"

	"radiocode-go/drivers/sx127x"
	"radiocode-go/x/mathx"

	"tinygo.org/x/drivers/lora"
)

var (
	ErrInvalidBandwidth       = errors.New("invalid bandwidth")
	ErrInvalidSpreadingFactor = errors.New("invalid spreading factor")
	ErrInvalidCodingRate      = errors.New("invalid coding rate")
	ErrInvalidFrequency       = errors.New("invalid frequency")
)

// Carrier range accepted by the SX1276 (Hz, inclusive).
const (
	FreqMinHz = 137_000_000
	FreqMaxHz = 1_020_000_000
)

const (
	ocpTrim150mA   = 18 // Imax = -30 + 10*18 = 150 mA
	paDacReserved  = 0x80
	paDacBoostOff  = 0x04
	agcAutoOnBit   = 2
	ldroBit        = 0
	errataBw500Opt = 0x02
	errataBw500If  = 0x64
	errataBwOther  = 0x03
)

// RegisterAccess is the register-level capability the configurator needs.
type RegisterAccess interface {
	WriteRegister(addr, value uint8) error
	SetFieldValue(addr, value, hi, lo uint8) error
}

// CommonConfigurator performs the setup shared across the SX127x family.
// Arguments are chip codes.
type CommonConfigurator interface {
	Configure(bw, sf, cr uint8, freq uint32, syncWord uint8) error
}

// DiagFunc receives diagnostic records. Fire-and-forget.
type DiagFunc func(msg string, freq uint32)

func printDiag(msg string, freq uint32) { println("Warn:", msg, freq) }

// Profile is the committed modulation state.
type Profile struct {
	Bandwidth       Bandwidth
	SpreadingFactor SpreadingFactor
	CodingRate      CodingRate
	Frequency       uint32 // Hz
	SyncWord        uint8
	ImplicitHeader  bool
}

// DefaultProfile is the state assumed before the first Configure.
func DefaultProfile() Profile {
	return Profile{
		Bandwidth:       BW125k,
		SpreadingFactor: SF7,
		CodingRate:      CR4_5,
		Frequency:       lora.MHZ_915_0,
		SyncWord:        sx127x.SyncWordPrivate,
	}
}

// Config for New. Zero or unsupported Profile fields take the
// DefaultProfile value; ImplicitHeader is kept as given.
type Config struct {
	Profile Profile
	Diag    DiagFunc
}

// RegisterWrite is one atomic write: the whole register, or, when Field is
// set, the right-aligned Value into bits Hi..Lo.
type RegisterWrite struct {
	Addr  uint8
	Value uint8
	Hi    uint8
	Lo    uint8
	Field bool
}

func reg(addr, value uint8) RegisterWrite {
	return RegisterWrite{Addr: addr, Value: value, Hi: 7, Lo: 0}
}

func field(addr, value, hi, lo uint8) RegisterWrite {
	return RegisterWrite{Addr: addr, Value: value, Hi: hi, Lo: lo, Field: true}
}

// Apply issues the write.
func (w RegisterWrite) Apply(ra RegisterAccess) error {
	if w.Field {
		return ra.SetFieldValue(w.Addr, w.Value, w.Hi, w.Lo)
	}
	return ra.WriteRegister(w.Addr, w.Value)
}

// Device is one SX1276 instance.
type Device struct {
	regs   RegisterAccess
	common CommonConfigurator
	diag   DiagFunc

	profile        Profile
	implicitHeader bool
}

// New constructs a Device. It performs no I/O.
func New(regs RegisterAccess, common CommonConfigurator, cfg Config) *Device {
	p := withDefaults(cfg.Profile)
	diag := cfg.Diag
	if diag == nil {
		diag = printDiag
	}
	return &Device{
		regs:           regs,
		common:         common,
		diag:           diag,
		profile:        p,
		implicitHeader: p.ImplicitHeader,
	}
}

// withDefaults fills each unset or unsupported field from DefaultProfile.
func withDefaults(p Profile) Profile {
	def := DefaultProfile()
	if _, ok := bandwidthCode(p.Bandwidth); !ok {
		p.Bandwidth = def.Bandwidth
	}
	if _, ok := spreadingFactorCode(p.SpreadingFactor); !ok {
		p.SpreadingFactor = def.SpreadingFactor
	}
	if _, ok := codingRateCode(p.CodingRate); !ok {
		p.CodingRate = def.CodingRate
	}
	if !mathx.Between(p.Frequency, FreqMinHz, FreqMaxHz) {
		p.Frequency = def.Frequency
	}
	if p.SyncWord == 0 {
		p.SyncWord = def.SyncWord
	}
	return p
}

// NewSX127x binds the configurator to an SPI-attached family device.
func NewSX127x(dev *sx127x.Device, cfg Config) *Device {
	return New(dev, dev, cfg)
}

// Introspection.
func (d *Device) Profile() Profile     { return d.profile }
func (d *Device) ImplicitHeader() bool { return d.implicitHeader }

// SetImplicitHeader selects the header mode used by the next Configure.
func (d *Device) SetImplicitHeader(on bool) { d.implicitHeader = on }

// SetDiag replaces the diagnostic sink; nil restores the default.
func (d *Device) SetDiag(fn DiagFunc) {
	if fn == nil {
		fn = printDiag
	}
	d.diag = fn
}

// Detect checks the chip version when the register access supports it.
func (d *Device) Detect() error {
	if p, ok := d.regs.(interface{ Detect() error }); ok {
		return p.Detect()
	}
	return nil
}

// Configure validates and applies a modulation profile. freq == 0 and
// syncWord == 0 keep the committed values. On error the committed profile
// is unchanged; registers written before the failure stay written.
func (d *Device) Configure(bw Bandwidth, sf SpreadingFactor, cr CodingRate, freq uint32, syncWord uint8) error {
	return configure(d, bw, sf, cr, freq, syncWord)
}

// ConfigureDevice is Configure on an explicit device handle.
func ConfigureDevice(d *Device, bw Bandwidth, sf SpreadingFactor, cr CodingRate, freq uint32, syncWord uint8) error {
	return configure(d, bw, sf, cr, freq, syncWord)
}

func configure(d *Device, bw Bandwidth, sf SpreadingFactor, cr CodingRate, freq uint32, syncWord uint8) error {
	bwCode, ok := bandwidthCode(bw)
	if !ok {
		return ErrInvalidBandwidth
	}
	sfCode, ok := spreadingFactorCode(sf)
	if !ok {
		return ErrInvalidSpreadingFactor
	}
	crCode, ok := codingRateCode(cr)
	if !ok {
		return ErrInvalidCodingRate
	}
	if freq == 0 {
		freq = d.profile.Frequency
	} else if !mathx.Between(freq, FreqMinHz, FreqMaxHz) {
		d.diag("invalid frequency", freq)
		return ErrInvalidFrequency
	}
	if syncWord == 0 {
		syncWord = d.profile.SyncWord
	}

	if err := d.common.Configure(bwCode, sfCode, crCode, freq, syncWord); err != nil {
		return err
	}

	var buf [7]RegisterWrite
	for _, w := range chipWrites(buf[:0], bw, sf, bwCode|crCode, d.implicitHeader) {
		if err := w.Apply(d.regs); err != nil {
			return err
		}
	}

	d.profile = Profile{
		Bandwidth:       bw,
		SpreadingFactor: sf,
		CodingRate:      cr,
		Frequency:       freq,
		SyncWord:        syncWord,
		ImplicitHeader:  d.implicitHeader,
	}
	return nil
}

// chipWrites appends the SX1276-specific sequence that follows the common setup.
func chipWrites(dst []RegisterWrite, bw Bandwidth, sf SpreadingFactor, cfg1 uint8, implicit bool) []RegisterWrite {
	dst = append(dst,
		reg(sx127x.RegOcp, sx127x.OcpOn|ocpTrim150mA),
		reg(sx127x.RegPaDac, paDacReserved|paDacBoostOff),
		field(sx127x.RegModemConfig3, 1, agcAutoOnBit, agcAutoOnBit),
	)

	ldro := uint8(0)
	if bw == BW125k && (sf == SF11 || sf == SF12) {
		ldro = 1
	}
	dst = append(dst, field(sx127x.RegModemConfig3, ldro, ldroBit, ldroBit))

	if implicit {
		cfg1 |= implicitHeaderBit
	}
	dst = append(dst, reg(sx127x.RegModemConfig1, cfg1))

	if bw == BW500k {
		return append(dst,
			reg(sx127x.RegHighBwOptimize1, errataBw500Opt),
			reg(sx127x.RegHighBwOptimize2, errataBw500If),
		)
	}
	return append(dst, reg(sx127x.RegHighBwOptimize1, errataBwOther))
}
