// Package broker embeds the MQTT endpoint that Solax inverter dongles
// connect to, built on mochi-mqtt.
//
// The broker accepts every client without credentials, delivers messages
// between them like any MQTT broker, and hands each publish and
// subscription to an Interceptor first. The bridge uses Inject to answer
// inverters on the same broker.
//
// Usage:
//
//	srv, err := broker.New(broker.Options{Address: ":2901", ClientID: "SolaxMQTTBridge"})
//	if err != nil {
//	    return err
//	}
//	srv.SetInterceptor(bridge)
//	if err := srv.Start(); err != nil {
//	    return err
//	}
//	defer srv.Close()
package broker
