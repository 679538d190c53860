package kafkax

import (
	"github.com/samber/lo"
	"github.com/segmentio/kafka-go"
)

// Header keys every published calendar message carries.
const (
	HeaderEventID   = "event_id"
	HeaderEventType = "event_type"
)

// EventMeta identifies a message independent of topic layout.
type EventMeta struct {
	EventID   string
	EventType string
}

// Headers renders meta as Kafka headers.
func (m EventMeta) Headers() []kafka.Header {
	return []kafka.Header{
		{Key: HeaderEventID, Value: []byte(m.EventID)},
		{Key: HeaderEventType, Value: []byte(m.EventType)},
	}
}

// HeaderValue returns the value of the first header named key.
func HeaderValue(headers []kafka.Header, key string) string {
	h, ok := lo.Find(headers, func(h kafka.Header) bool { return h.Key == key })
	if !ok {
		return ""
	}
	return string(h.Value)
}
