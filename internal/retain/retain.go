// Package retain encodes the small record that survives deep sleep.
//
// The layout matches the retention memory format of the stock Walter
// firmware: a one-byte flag indicating whether MQTT subscriptions were
// persisted, followed by one entry per subscription consisting of a 4-byte
// little-endian topic length, the topic bytes and a one-byte QoS.
package retain

import (
	"encoding/binary"
	"fmt"
)

// Subscription is one persisted MQTT subscription.
type Subscription struct {
	Topic string
	QoS   uint8
}

// Encode builds the retention blob. When persist is false the blob is a
// single zero flag byte and the subscriptions are ignored.
func Encode(persist bool, subs []Subscription) []byte {
	if !persist {
		return []byte{0}
	}

	size := 1
	for _, s := range subs {
		size += 4 + len(s.Topic) + 1
	}

	blob := make([]byte, 0, size)
	blob = append(blob, 1)
	for _, s := range subs {
		blob = binary.LittleEndian.AppendUint32(blob, uint32(len(s.Topic)))
		blob = append(blob, s.Topic...)
		blob = append(blob, s.QoS)
	}
	return blob
}

// Decode parses a retention blob. It rejects blobs whose declared entry
// lengths overrun the remaining bytes.
func Decode(blob []byte) (persisted bool, subs []Subscription, err error) {
	if len(blob) == 0 {
		return false, nil, fmt.Errorf("empty retention blob")
	}

	if blob[0] != 1 {
		return false, nil, nil
	}

	rest := blob[1:]
	for len(rest) > 0 {
		if len(rest) < 4 {
			return false, nil, fmt.Errorf("truncated subscription length")
		}
		topicLen := int(binary.LittleEndian.Uint32(rest))
		rest = rest[4:]

		if topicLen < 0 || topicLen+1 > len(rest) {
			return false, nil, fmt.Errorf("subscription length %d overruns blob", topicLen)
		}

		subs = append(subs, Subscription{
			Topic: string(rest[:topicLen]),
			QoS:   rest[topicLen],
		})
		rest = rest[topicLen+1:]
	}

	return true, subs, nil
}
