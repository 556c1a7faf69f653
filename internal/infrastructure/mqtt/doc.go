// Package mqtt provides the optional MQTT state mirror for Homelink Core.
//
// When enabled, every state delta the polling engine broadcasts to
// WebSocket clients is also published to the local broker, so other
// home-automation consumers (dashboards, Node-RED flows, wall panels) can
// follow bridge state without speaking the WebSocket protocol.
//
//	Homelink Core -> MQTT Broker -> local subscribers
//
// The client is publish-only: Core never accepts commands over MQTT.
// Connection management includes auto-reconnect with exponential backoff
// and a Last Will and Testament on homelink/system/status so subscribers
// can detect an unclean Core shutdown.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.BridgeState("hue-1")
//	err = client.PublishRetained(topic, payload)
package mqtt
