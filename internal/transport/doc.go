// Package transport defines the contracts between the device data manager
// and its upstream channels.
//
// Two channels exist: a publish/subscribe client (MQTT, package mqttclient)
// and a request/response client (HTTP with websocket observe, package
// httpclient). Both report failures as a false return and deliver inbound
// payloads to a single MessageListener.
//
// Inbox is the listener adapters are normally given: it copies each payload
// onto a bounded channel that the manager drains on its own goroutine, so
// adapter callbacks never block on core logic.
package transport
