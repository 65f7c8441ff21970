//go:build rp2040

// pico-radio drives an RFM95 (SX1276) on a Raspberry Pi Pico. Radio state
// and diagnostics are mirrored to UART0.
package main

import (
	"context"
	"machine"
	"time"

	"radiocode-go/bus"
	"radiocode-go/drivers/sx1276"
	"radiocode-go/drivers/sx127x"
	"radiocode-go/services/config"
	"radiocode-go/services/heartbeat"
	"radiocode-go/services/radio"
	"radiocode-go/types"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
	tinysx "tinygo.org/x/drivers/sx127x"
)

// Pico wiring for the RFM95 breakout.
const (
	pinSCK  = machine.GP2
	pinSDO  = machine.GP3
	pinSDI  = machine.GP4
	pinNSS  = machine.GP5
	pinRST  = machine.GP16
	pinDIO0 = machine.GP17
	pinDIO1 = machine.GP18

	pinUartTX = machine.GP0
	pinUartRX = machine.GP1

	spiHz    = 1_000_000
	uartBaud = 115200
)

var uart = uartx.UART0

func logLine(s string) {
	println(s)
	_, _ = uart.Write([]byte(s + "\r\n"))
}

func resetRadio() {
	pinRST.Configure(machine.PinConfig{Mode: machine.PinOutput})
	pinRST.Low()
	time.Sleep(time.Millisecond)
	pinRST.High()
	time.Sleep(6 * time.Millisecond)
}

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)

	_ = uart.Configure(uartx.UARTConfig{BaudRate: uartBaud, TX: pinUartTX, RX: pinUartRX})
	logLine("Info: boot")

	spi := machine.SPI0
	if err := spi.Configure(machine.SPIConfig{Frequency: spiHz, SCK: pinSCK, SDO: pinSDO, SDI: pinSDI}); err != nil {
		logLine("Error: spi: " + err.Error())
		return
	}
	rc := tinysx.NewRadioControl(pinNSS, pinDIO0, pinDIO1)
	_ = rc.Init()
	_ = rc.SetNss(true)
	resetRadio()

	dev := sx1276.NewSX127x(sx127x.New(spi, rc, sx127x.DefaultConfig()), sx1276.Config{})

	ctx := context.WithValue(context.Background(), config.CtxDeviceKey, "pico")
	b := bus.NewBus(4)

	mon := b.NewConnection("uart")
	events := mon.Subscribe(bus.T("radio", "+", "event", "#"))
	status := mon.Subscribe(bus.T("radio", "+", "status"))
	go func() {
		for {
			select {
			case m := <-events.Channel():
				if ev, ok := m.Payload.(types.RadioEvent); ok {
					logLine("Warn: " + ev.Msg)
				}
			case m := <-status.Channel():
				if st, ok := m.Payload.(types.RadioStatus); ok {
					logLine("Info: radio " + string(st.State) + " " + st.Error)
				}
			}
		}
	}()

	_ = radio.New("lora0", dev).Start(ctx, b.NewConnection("radio"))
	_ = (&heartbeat.Service{Out: logLine}).Start(ctx, b.NewConnection("heartbeat"))
	config.NewConfigService().Start(ctx, b.NewConnection("config"))

	select {}
}
