// Package solax bridges Solax inverter Wi-Fi dongles to Home Assistant.
//
// The dongle is pointed at the embedded broker, where the Bridge intercepts
// its publishes: time-sync requests are answered in place, telemetry is
// split into one retained topic per sensor, and the dongle's announce
// triggers Home Assistant MQTT discovery. Everything destined for Home
// Assistant leaves through an Enqueuer so no broker connection ever waits
// on the upstream network.
//
// Topic layout for sensor root "solax" and discovery root "homeassistant":
//
//	solax/sensor/status                            decoded status, not retained
//	solax/sensor/<id>                              sensor value, retained
//	homeassistant/sensor/solax/status/config       status discovery, retained
//	homeassistant/sensor/solax/<id>/config         sensor discovery, retained
//	respsynctime/<serial>                          time-sync reply, embedded broker
package solax
