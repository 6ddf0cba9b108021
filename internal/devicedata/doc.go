// Package devicedata implements the Device Data Manager, the coordinator
// between the local pollers, the actuator dispatcher, the last-value cache
// and the upstream transports.
//
// Data flows in three directions:
//
//   - Pollers call HandleSensorMessage and HandleSystemPerformanceMessage
//     directly on their own goroutines.
//   - Transports push raw payloads onto an inbox; one goroutine drains it
//     through HandleIncomingMessage.
//   - Everything that should leave the device goes through a bounded
//     upstream queue drained by one worker, so a slow transport never delays
//     a poll tick.
//
// The cache always reflects the latest local observation. Upstream delivery
// is best effort and never rolls the cache back.
package devicedata
