package broker

import (
	"bytes"
	"sync/atomic"

	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/packets"
)

// Interceptor observes traffic on the embedded broker.
//
// Both methods run synchronously on the connection goroutine of the
// publishing or subscribing client and must not block for long. They cannot
// alter or veto delivery.
type Interceptor interface {
	InterceptPublish(clientID, topic string, payload []byte)
	ObserveSubscription(clientID, filter string)
}

// interceptHook adapts an Interceptor to the mochi hook interface.
type interceptHook struct {
	mqtt.HookBase
	target atomic.Pointer[Interceptor]
}

// ID implements mqtt.Hook.
func (h *interceptHook) ID() string {
	return "solax-intercept"
}

// Provides implements mqtt.Hook.
func (h *interceptHook) Provides(b byte) bool {
	return bytes.Contains([]byte{
		mqtt.OnPublish,
		mqtt.OnSubscribe,
	}, []byte{b})
}

func (h *interceptHook) set(i Interceptor) {
	h.target.Store(&i)
}

func (h *interceptHook) get() Interceptor {
	if p := h.target.Load(); p != nil {
		return *p
	}
	return nil
}

// OnPublish forwards every inbound publish and returns it unchanged.
func (h *interceptHook) OnPublish(cl *mqtt.Client, pk packets.Packet) (packets.Packet, error) {
	if i := h.get(); i != nil {
		i.InterceptPublish(cl.ID, pk.TopicName, pk.Payload)
	}
	return pk, nil
}

// OnSubscribe reports each requested filter and returns the packet unchanged.
func (h *interceptHook) OnSubscribe(cl *mqtt.Client, pk packets.Packet) packets.Packet {
	if i := h.get(); i != nil {
		for _, sub := range pk.Filters {
			i.ObserveSubscription(cl.ID, sub.Filter)
		}
	}
	return pk
}
