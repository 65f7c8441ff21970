// radio-sim boots the radio stack against a simulated register file and
// exercises it through the bus.
package main

import (
	"context"
	"flag"
	"os"
	"strconv"
	"time"

	"radiocode-go/bus"
	"radiocode-go/drivers/sx1276"
	"radiocode-go/drivers/sx127x"
	"radiocode-go/services/config"
	"radiocode-go/services/radio"
	"radiocode-go/types"
	"radiocode-go/x/conv"
	"radiocode-go/x/regsim"
)

func printTopic(prefix string, t bus.Topic) {
	print(prefix, " ")
	for i, tok := range t {
		if i > 0 {
			print("/")
		}
		switch v := tok.(type) {
		case string:
			print(v)
		case int:
			print(v)
		default:
			print("?")
		}
	}
	println()
}

func main() {
	device := flag.String("device", "sim", "embedded config to publish")
	freq := flag.Uint("freq", 433_000_000, "carrier for the control request (Hz)")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = context.WithValue(ctx, config.CtxDeviceKey, *device)

	println("[main] bootstrapping bus …")
	b := bus.NewBus(8)
	ui := b.NewConnection("ui")

	mon := ui.Subscribe(bus.T("radio", "#"))
	go func() {
		for m := range mon.Channel() {
			printTopic("[monitor] <-", m.Topic)
		}
	}()

	bank := regsim.New(map[uint8]uint8{sx127x.RegVersion: sx127x.VersionSX127x})
	dev := sx1276.NewSX127x(sx127x.New(bank, nil, sx127x.DefaultConfig()), sx1276.Config{})
	if err := radio.New("lora0", dev).Start(ctx, b.NewConnection("radio")); err != nil {
		println("[main] radio start failed:", err.Error())
		os.Exit(1)
	}
	prof := ui.Subscribe(bus.T("radio", "lora0", "profile"))
	config.NewConfigService().Start(ctx, b.NewConnection("config"))

	// Wait for the embedded config to land before overriding it.
	select {
	case <-prof.Channel():
	case <-time.After(time.Second):
		println("[main] no profile from embedded config")
	}
	ui.Unsubscribe(prof)
	bank.ResetLog()

	req := types.RadioConfig{
		Bandwidth:       sx1276.BW125k,
		SpreadingFactor: sx1276.SF12,
		CodingRate:      sx1276.CR4_8,
		Frequency:       uint32(*freq),
	}
	rctx, rcancel := context.WithTimeout(ctx, time.Second)
	reply, err := ui.RequestWait(rctx, ui.NewMessage(bus.T("radio", "lora0", "control", "configure"), req, false))
	rcancel()
	if err != nil {
		println("[main] no reply:", err.Error())
		os.Exit(1)
	}
	r, _ := reply.Payload.(types.Reply)
	if !r.OK {
		println("[main] configure failed:", r.Error)
		os.Exit(2)
	}

	p := dev.Profile()
	println("[main] profile", p.Bandwidth.String(), "kHz SF"+strconv.Itoa(int(p.SpreadingFactor)), "CR"+p.CodingRate.String(), p.Frequency, "Hz")
	for _, w := range bank.Writes() {
		println("[main] wrote", conv.RegWrite(w.Addr, w.Value))
	}
}
