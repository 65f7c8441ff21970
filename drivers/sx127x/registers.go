// Package sx127x provides constants for register addresses and bitfields used
// when operating the SX127x family in LoRa mode.
package sx127x

const (
	// Silicon revision reported by RegVersion on SX1276/77/78/79.
	VersionSX127x = 0x12

	// Crystal reference and FRF step numerator (Fstep = FXOSC / 2^19).
	fxoscHz = 32_000_000
	frfBits = 19

	// --- Register addresses (LoRa page) ---
	RegFifo               = 0x00
	RegOpMode             = 0x01
	RegFrfMsb             = 0x06
	RegFrfMid             = 0x07
	RegFrfLsb             = 0x08
	RegPaConfig           = 0x09
	RegOcp                = 0x0B
	RegLna                = 0x0C
	RegModemConfig1       = 0x1D
	RegModemConfig2       = 0x1E
	RegPreambleMsb        = 0x20
	RegPreambleLsb        = 0x21
	RegModemConfig3       = 0x26
	RegDetectOptimize     = 0x31
	RegDetectionThreshold = 0x37
	RegSyncWord           = 0x39
	RegVersion            = 0x42
	RegPaDac              = 0x4D

	// Errata registers (SX1276/77/78 errata note 1.1, section 2.1).
	RegHighBwOptimize1 = 0x36
	RegHighBwOptimize2 = 0x3A

	// --- RegOpMode ---
	OpModeLoRa    = 0x80
	OpModeSleep   = 0x00
	OpModeStandby = 0x01
	OpModeMask    = 0x07

	// --- RegOcp ---
	OcpOn          = 0x20
	OcpTrimDefault = 15 // Imax = 45 + 5*15 = 120 mA

	// --- RegModemConfig2 ---
	crcOnBit = 2

	// --- Detection settings (SF6 differs from SF7..SF12) ---
	detectOptimizeSF6         = 0x05
	detectOptimizeSF7to12     = 0x03
	detectionThresholdSF6     = 0x0C
	detectionThresholdSF7to12 = 0x0A

	// Chip codes as placed in the register (already shifted).
	BwCode62k5 = 0x60
	BwCode125k = 0x70
	BwCode250k = 0x80
	BwCode500k = 0x90
	sfCode6    = 0x60

	// Sync words.
	SyncWordPrivate = 0x12
	SyncWordPublic  = 0x34

	preambleDefault = 8

	// Band 3 (137..175 MHz) does not support the two widest bandwidths.
	lowBandCeilingHz = 175_000_000

	spiWriteFlag = 0x80
)
