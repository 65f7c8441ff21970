// Package heartbeat periodically logs the state of every radio on the bus.
package heartbeat

import (
	"context"
	"time"

	"radiocode-go/bus"
	"radiocode-go/types"
)

var (
	topicConfigHeartbeat = bus.Topic{"config", "heartbeat"}
	topicRadioStatus     = bus.Topic{"radio", "+", "status"}
)

const defaultInterval = time.Second

type Service struct {
	Interval time.Duration

	// Out receives one line per radio per tick; nil prints.
	Out func(line string)

	last map[string]types.RadioStatus
}

func (s *Service) emit(line string) {
	if s.Out != nil {
		s.Out(line)
		return
	}
	println(line)
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection, cfgSub, stSub *bus.Subscription) {
	defer conn.Unsubscribe(cfgSub)
	defer conn.Unsubscribe(stSub)

	iv := s.Interval
	if iv <= 0 {
		iv = defaultInterval
	}
	tick := time.NewTicker(iv)
	defer tick.Stop()

	// loop until context is cancelled, respond to tick, status and config changes
	for {
		select {
		case <-ctx.Done():
			println("Info: heartbeat service stopping")
			return
		case <-tick.C:
			s.beat()
		case msg, ok := <-stSub.Channel():
			if !ok {
				return
			}
			s.noteStatus(msg)
		case msg, ok := <-cfgSub.Channel():
			if !ok {
				return
			}
			// Change tick interval if needed
			if m, ok := msg.Payload.(map[string]any); ok {
				if v, ok := m["interval"].(float64); ok && v > 0 {
					tick.Reset(time.Duration(v * float64(time.Second)))
					println("Info: heartbeat interval set to", v, "seconds")
				}
			}
		}
	}
}

// noteStatus records a radio status; a cleared status forgets the radio.
func (s *Service) noteStatus(msg *bus.Message) {
	if len(msg.Topic) != 3 {
		return
	}
	name, ok := msg.Topic[1].(string)
	if !ok {
		return
	}
	if msg.Payload == nil {
		delete(s.last, name)
		return
	}
	if st, ok := msg.Payload.(types.RadioStatus); ok {
		s.last[name] = st
	}
}

func (s *Service) beat() {
	if len(s.last) == 0 {
		s.emit("Info: heartbeat no radios")
		return
	}
	for name, st := range s.last {
		line := "Info: heartbeat " + name + " " + string(st.State)
		if st.Error != "" {
			line += " " + st.Error
		}
		s.emit(line)
	}
}

// Start the heartbeat service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	s.last = make(map[string]types.RadioStatus)
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	stSub := conn.Subscribe(topicRadioStatus)
	go s.serviceLoop(ctx, conn, cfgSub, stSub)
	return nil
}
