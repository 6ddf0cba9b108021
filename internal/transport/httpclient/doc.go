// Package httpclient implements transport.RequestResponseClient as a
// CoAP-style exchange over HTTP.
//
// Resources are addressed as {base}/PIOT/ConstrainedDevice/{kind}[/{name}].
// A confirmable request is retried with exponential backoff until the peer
// answers 2xx or the timeout elapses; 4xx answers are final. Each attempt
// carries a fresh X-Request-ID token. Response bodies of successful GETs are
// handed to the message listener.
//
// Observe opens a websocket to {base}/observe/{resource path}; every text
// or binary frame is delivered to the listener as one payload.
package httpclient
