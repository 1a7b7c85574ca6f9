package solax

import (
	"strings"

	"github.com/nerrad567/solax-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/solax-bridge/internal/inverter"
)

// Namespace holds the two installation-specific topic roots. The sensor
// root doubles as the installation identity in discovery ids.
type Namespace struct {
	SensorRoot    string
	DiscoveryRoot string
}

// NewNamespace returns a namespace with leading and trailing "/" trimmed.
func NewNamespace(sensorRoot, discoveryRoot string) Namespace {
	return Namespace{
		SensorRoot:    strings.Trim(sensorRoot, "/"),
		DiscoveryRoot: strings.Trim(discoveryRoot, "/"),
	}
}

// StatusTopic is where the decoded status is published.
func (n Namespace) StatusTopic() string {
	return n.SensorTopic(inverter.StatusIdentifier)
}

// SensorTopic is the state topic of sensor id.
func (n Namespace) SensorTopic(id string) string {
	return mqtt.JoinTopic(n.SensorRoot, "sensor", id)
}

// DiscoveryTopic is the discovery config topic of sensor id.
func (n Namespace) DiscoveryTopic(id string) string {
	return mqtt.JoinTopic(n.DiscoveryRoot, "sensor", n.SensorRoot, id, "config")
}

// StateTopic carries the retained online/offline state of the bridge itself.
func (n Namespace) StateTopic() string {
	return mqtt.JoinTopic(n.SensorRoot, "bridge", "state")
}

// HealthTopic carries the periodic bridge health document.
func (n Namespace) HealthTopic() string {
	return mqtt.JoinTopic(n.SensorRoot, "bridge", "health")
}

// ObjectID is the discovery unique_id and object_id of sensor id.
func (n Namespace) ObjectID(id string) string {
	return n.SensorRoot + "_" + id
}
