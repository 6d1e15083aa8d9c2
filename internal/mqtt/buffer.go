package mqtt

import "log"

// queuedMsg stores a serialized MQTT message for replay after reconnection.
type queuedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// backlog is a bounded FIFO that holds messages while the broker is
// unreachable. When full, the oldest message is dropped.
// Not safe for concurrent use; the caller must synchronize.
type backlog struct {
	max     int
	msgs    []queuedMsg
	dropped bool // true if any message was dropped since last drain
}

func newBacklog(max int) *backlog {
	return &backlog{max: max}
}

func (b *backlog) add(msg queuedMsg) {
	if len(b.msgs) == b.max {
		if !b.dropped {
			log.Printf("mqtt: backlog full (%d messages), dropping oldest", b.max)
			b.dropped = true
		}
		copy(b.msgs, b.msgs[1:])
		b.msgs[len(b.msgs)-1] = msg
		return
	}
	b.msgs = append(b.msgs, msg)
}

// takeAll removes and returns every queued message, oldest first.
func (b *backlog) takeAll() []queuedMsg {
	if len(b.msgs) == 0 {
		return nil
	}
	out := b.msgs
	b.msgs = nil
	b.dropped = false
	return out
}

func (b *backlog) size() int {
	return len(b.msgs)
}
