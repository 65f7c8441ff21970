// Package radio owns one SX1276 and exposes its modulation profile on the bus.
//
// Topics (name = radio name, e.g. "lora0"):
//
//	config/radio                        retained config (decoded JSON object)
//	radio/<name>/control/configure      request: types.RadioConfig or JSON object
//	radio/<name>/profile                retained types.RadioProfile
//	radio/<name>/status                 retained types.RadioStatus
//	radio/<name>/event/invalid_frequency types.RadioEvent
//
// All Configure calls run on the service goroutine, one at a time.
package radio

import (
	"context"

	"radiocode-go/bus"
	"radiocode-go/drivers/sx1276"
	"radiocode-go/errcode"
	"radiocode-go/types"
)

var topicConfigRadio = bus.Topic{"config", "radio"}

const (
	tokRadio   = "radio"
	tokControl = "control"
	tokEvent   = "event"
)

type Service struct {
	name string
	dev  *sx1276.Device

	base     bus.Topic // radio/<name>
	detected bool
}

func New(name string, dev *sx1276.Device) *Service {
	return &Service{name: name, dev: dev, base: bus.T(tokRadio, name)}
}

func (s *Service) Name() string { return s.name }

func (s *Service) topicControl() bus.Topic { return s.base.Append(tokControl, "configure") }
func (s *Service) topicProfile() bus.Topic { return s.base.Append("profile") }
func (s *Service) topicStatus() bus.Topic  { return s.base.Append("status") }
func (s *Service) topicEvent(kind string) bus.Topic {
	return s.base.Append(tokEvent, kind)
}

// Start subscribes and launches the service goroutine. Subscriptions are in
// place when Start returns.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	cfgSub := conn.Subscribe(topicConfigRadio)
	ctlSub := conn.Subscribe(s.topicControl())
	s.dev.SetDiag(s.diag(conn))
	go s.serviceLoop(ctx, conn, cfgSub, ctlSub)
	return nil
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection, cfgSub, ctlSub *bus.Subscription) {
	defer conn.Unsubscribe(cfgSub)
	defer conn.Unsubscribe(ctlSub)

	_ = s.detect(conn)

	for {
		select {
		case <-ctx.Done():
			println("Info: radio", s.name, "stopping")
			return
		case msg, ok := <-cfgSub.Channel():
			if !ok {
				return
			}
			s.handleConfig(conn, msg)
		case msg, ok := <-ctlSub.Channel():
			if !ok {
				return
			}
			s.handleControl(conn, msg)
		}
	}
}

// detect runs Detect and records the outcome. A failure publishes degraded.
func (s *Service) detect(conn *bus.Connection) error {
	if err := s.dev.Detect(); err != nil {
		s.detected = false
		code := errcode.MapDriverErr(err)
		println("Error: radio", s.name, "detect failed:", string(code))
		s.publishStatus(conn, types.LinkDegraded, code)
		return err
	}
	s.detected = true
	println("Info: radio", s.name, "detected")
	return nil
}

// handleConfig applies config/radio. A config naming another radio is ignored.
func (s *Service) handleConfig(conn *bus.Connection, msg *bus.Message) {
	rc, err := decode(msg.Payload)
	if err != nil {
		println("Warn: radio", s.name, "bad config:", string(errcode.Of(err)))
		return
	}
	if rc.Name != "" && rc.Name != s.name {
		return
	}
	if err := s.apply(conn, rc); err != nil {
		println("Warn: radio", s.name, "config rejected:", string(errcode.Of(err)))
	}
}

func (s *Service) handleControl(conn *bus.Connection, msg *bus.Message) {
	rc, err := decode(msg.Payload)
	if err == nil {
		err = s.apply(conn, rc)
	}
	if err != nil {
		conn.Reply(msg, types.Reply{OK: false, Error: string(errcode.Of(err))}, false)
		return
	}
	conn.Reply(msg, types.Reply{OK: true}, false)
}

func decode(payload any) (types.RadioConfig, error) {
	switch p := payload.(type) {
	case types.RadioConfig:
		return p, nil
	case *types.RadioConfig:
		if p == nil {
			return types.RadioConfig{}, errcode.InvalidPayload
		}
		return *p, nil
	case map[string]any:
		return types.ParseRadioConfig(p)
	default:
		return types.RadioConfig{}, errcode.InvalidPayload
	}
}

// apply configures the device and publishes the outcome. Rejected
// parameters leave the status alone; any other failure marks the radio
// degraded since registers may be partially written.
func (s *Service) apply(conn *bus.Connection, rc types.RadioConfig) error {
	// Writes to an absent chip do not fail, so no configure runs until a
	// detect succeeds.
	if !s.detected {
		if err := s.detect(conn); err != nil {
			return errcode.Wrap("configure", err)
		}
	}

	prevHeader := s.dev.ImplicitHeader()
	s.dev.SetImplicitHeader(rc.ImplicitHeader)

	err := s.dev.Configure(rc.Bandwidth, rc.SpreadingFactor, rc.CodingRate, rc.Frequency, rc.SyncWord)
	if err != nil {
		s.dev.SetImplicitHeader(prevHeader)
		code := errcode.MapDriverErr(err)
		if !rejected(code) {
			s.publishStatus(conn, types.LinkDegraded, code)
		}
		return errcode.Wrap("configure", err)
	}

	p := s.dev.Profile()
	conn.Publish(conn.NewMessage(s.topicProfile(), types.NewRadioProfile(p), true))
	s.publishStatus(conn, types.LinkUp, errcode.OK)
	println("Info: radio", s.name, "configured", p.Bandwidth.String(), "kHz SF", int(p.SpreadingFactor), p.Frequency, "Hz")
	return nil
}

func rejected(code errcode.Code) bool {
	switch code {
	case errcode.InvalidBandwidth, errcode.InvalidSpreadingFactor,
		errcode.InvalidCodingRate, errcode.InvalidFrequency,
		errcode.BandwidthUnsupported:
		return true
	}
	return false
}

func (s *Service) publishStatus(conn *bus.Connection, link types.Link, code errcode.Code) {
	st := types.RadioStatus{State: link}
	if code != errcode.OK {
		st.Error = string(code)
	}
	conn.Publish(conn.NewMessage(s.topicStatus(), st, true))
}

// diag prints like the driver default and mirrors the record on the bus.
func (s *Service) diag(conn *bus.Connection) sx1276.DiagFunc {
	ev := s.topicEvent(string(errcode.InvalidFrequency))
	return func(msg string, freq uint32) {
		println("Warn: radio", s.name, msg, freq)
		conn.Publish(conn.NewMessage(ev, types.RadioEvent{Msg: msg, Frequency: freq}, false))
	}
}
