package main

import (
	"context"
	"time"

	"radiocode-go/bus"
	"radiocode-go/drivers/sx1276"
	"radiocode-go/drivers/sx127x"
	"radiocode-go/services/config"
	"radiocode-go/services/heartbeat"
	"radiocode-go/services/radio"
	"radiocode-go/x/regsim"
)

func main() {
	println("boot")

	ctx := context.WithValue(context.Background(), config.CtxDeviceKey, "pico")
	b := bus.NewBus(8)

	bank := regsim.New(map[uint8]uint8{sx127x.RegVersion: sx127x.VersionSX127x})
	dev := sx1276.NewSX127x(sx127x.New(bank, nil, sx127x.DefaultConfig()), sx1276.Config{})

	_ = radio.New("lora0", dev).Start(ctx, b.NewConnection("radio"))
	_ = (&heartbeat.Service{}).Start(ctx, b.NewConnection("heartbeat"))
	config.NewConfigService().Start(ctx, b.NewConnection("config"))

	for {
		time.Sleep(time.Hour)
	}
}
