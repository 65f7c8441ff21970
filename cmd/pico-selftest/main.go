//go:build rp2040

// pico-selftest configures an attached SX1276 through every supported
// bandwidth and reads the registers back. LED solid on pass, blinking on
// failure.
package main

import (
	"machine"
	"time"

	"radiocode-go/drivers/sx1276"
	"radiocode-go/drivers/sx127x"
	"radiocode-go/x/conv"

	tinysx "tinygo.org/x/drivers/sx127x"
)

const (
	pinSCK  = machine.GP2
	pinSDO  = machine.GP3
	pinSDI  = machine.GP4
	pinNSS  = machine.GP5
	pinRST  = machine.GP16
	pinDIO0 = machine.GP17
	pinDIO1 = machine.GP18
)

// --- tiny logger (avoid fmt on MCU) ------------------------------------------

func logln(s string) { println(s) }

var (
	regs *sx127x.Device
	dev  *sx1276.Device
)

func expectReg(name string, addr, want uint8) bool {
	got, err := regs.ReadRegister(addr)
	if err != nil {
		logln(name + ": read " + err.Error())
		return false
	}
	if got != want {
		logln(name + ": " + conv.RegWrite(addr, got) + " want " + conv.RegWrite(addr, want))
		return false
	}
	return true
}

// --- individual tests (return bool pass/fail) --------------------------------

func TestDetect() bool {
	if err := dev.Detect(); err != nil {
		logln("TestDetect: " + err.Error())
		return false
	}
	return true
}

func TestConfigure_125kSF7() bool {
	if err := dev.Configure(sx1276.BW125k, sx1276.SF7, sx1276.CR4_5, 915_000_000, sx127x.SyncWordPrivate); err != nil {
		logln("TestConfigure_125kSF7: " + err.Error())
		return false
	}
	return expectReg("TestConfigure_125kSF7", sx127x.RegModemConfig1, 0x72) &&
		expectReg("TestConfigure_125kSF7", sx127x.RegOcp, 0x32) &&
		expectReg("TestConfigure_125kSF7", sx127x.RegPaDac, 0x84) &&
		expectReg("TestConfigure_125kSF7", sx127x.RegFrfMsb, 0xE4) &&
		expectReg("TestConfigure_125kSF7", sx127x.RegFrfMid, 0xC0) &&
		expectReg("TestConfigure_125kSF7", sx127x.RegFrfLsb, 0x00) &&
		expectReg("TestConfigure_125kSF7", sx127x.RegHighBwOptimize1, 0x03)
}

func TestConfigure_AgcAuto() bool {
	if err := dev.Configure(sx1276.BW125k, sx1276.SF12, sx1276.CR4_8, 0, 0); err != nil {
		logln("TestConfigure_AgcAuto: " + err.Error())
		return false
	}
	v, err := regs.ReadRegister(sx127x.RegModemConfig3)
	if err != nil || v&0x04 == 0 {
		logln("TestConfigure_AgcAuto: ModemConfig3 " + conv.RegWrite(sx127x.RegModemConfig3, v))
		return false
	}
	return true
}

func TestConfigure_500kErrata() bool {
	if err := dev.Configure(sx1276.BW500k, sx1276.SF9, sx1276.CR4_5, 0, 0); err != nil {
		logln("TestConfigure_500kErrata: " + err.Error())
		return false
	}
	return expectReg("TestConfigure_500kErrata", sx127x.RegHighBwOptimize1, 0x02) &&
		expectReg("TestConfigure_500kErrata", sx127x.RegHighBwOptimize2, 0x64)
}

func TestConfigure_InvalidFrequencyKeepsRegisters() bool {
	before := dev.Profile()
	if err := dev.Configure(sx1276.BW125k, sx1276.SF7, sx1276.CR4_5, 100_000_000, 0); err != sx1276.ErrInvalidFrequency {
		logln("TestConfigure_InvalidFrequencyKeepsRegisters: wrong error")
		return false
	}
	if dev.Profile() != before {
		logln("TestConfigure_InvalidFrequencyKeepsRegisters: profile changed")
		return false
	}
	return expectReg("TestConfigure_InvalidFrequencyKeepsRegisters", sx127x.RegModemConfig1, 0x92)
}

// --- main: run all tests, report, and blink LED on failure --------------------

type testFn struct {
	name string
	fn   func() bool
}

func main() {
	// Give the USB CDC time to enumerate so logs show up reliably.
	time.Sleep(250 * time.Millisecond)

	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	led.High() // signal "running"

	spi := machine.SPI0
	if err := spi.Configure(machine.SPIConfig{Frequency: 1_000_000, SCK: pinSCK, SDO: pinSDO, SDI: pinSDI}); err != nil {
		logln("spi: " + err.Error())
		return
	}
	rc := tinysx.NewRadioControl(pinNSS, pinDIO0, pinDIO1)
	_ = rc.Init()
	_ = rc.SetNss(true)
	pinRST.Configure(machine.PinConfig{Mode: machine.PinOutput})
	pinRST.Low()
	time.Sleep(time.Millisecond)
	pinRST.High()
	time.Sleep(6 * time.Millisecond)

	regs = sx127x.New(spi, rc, sx127x.DefaultConfig())
	dev = sx1276.NewSX127x(regs, sx1276.Config{})

	tests := []testFn{
		{"TestDetect", TestDetect},
		{"TestConfigure_125kSF7", TestConfigure_125kSF7},
		{"TestConfigure_AgcAuto", TestConfigure_AgcAuto},
		{"TestConfigure_500kErrata", TestConfigure_500kErrata},
		{"TestConfigure_InvalidFrequencyKeepsRegisters", TestConfigure_InvalidFrequencyKeepsRegisters},
	}

	passed, failed := 0, 0
	logln("== radio self-test starting ==")
	for _, tc := range tests {
		if tc.fn() {
			logln("[PASS] " + tc.name)
			passed++
		} else {
			logln("[FAIL] " + tc.name)
			failed++
		}
	}
	println("== done:", passed, "passed,", failed, "failed ==")

	// LED: solid ON if all passed, otherwise blink forever.
	if failed == 0 {
		for {
			led.High()
			time.Sleep(2 * time.Second)
		}
	}
	for {
		led.High()
		time.Sleep(250 * time.Millisecond)
		led.Low()
		time.Sleep(250 * time.Millisecond)
	}
}
