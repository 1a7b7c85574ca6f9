// Package mqtt provides the upstream MQTT connection of the Solax bridge.
//
// This package manages:
//   - Connection to the Home Assistant side broker with connect retry and auto-reconnect
//   - Retained bridge availability ("online"/"offline") with Last Will and Testament
//   - Message publishing with QoS guarantees
//   - The outbound Queue: non-blocking enqueue, FIFO delivery, pending count and bounded drain
//   - MQTT topic filter parsing and matching
//
// # Architecture
//
// Inverters talk to the embedded broker (package broker). Translated state
// and discovery messages are enqueued here and delivered upstream by a
// single worker, so a slow or absent upstream broker never stalls the
// inverter connections.
//
//	Inverter -> embedded broker -> bridge -> Queue -> Client -> upstream broker
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, "solax/bridge/state", logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	queue, err := mqtt.NewQueue(mqtt.QueueOptions{Publisher: client, QoS: 1})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	queue.Start(ctx)
//	queue.Enqueue("solax/sensor/status", []byte("Normal"), false)
//	left := queue.Drain(10 * time.Second)
package mqtt
