package cache

import (
	"sort"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/nerrad567/piot-cda/internal/data"
)

// Kind selects a cache partition.
type Kind int

// Cache partitions.
const (
	KindSensor Kind = iota
	KindActuatorResponse
	KindSystemPerformance
)

func (k Kind) String() string {
	switch k {
	case KindSensor:
		return "sensor"
	case KindActuatorResponse:
		return "actuator_response"
	case KindSystemPerformance:
		return "system_performance"
	default:
		return "unknown"
	}
}

// Cache is a concurrency-safe last-value store.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Cache struct {
	sensors   cmap.ConcurrentMap[string, *data.SensorData]
	actuators cmap.ConcurrentMap[string, *data.ActuatorData]
	sysPerf   cmap.ConcurrentMap[string, *data.SystemPerformanceData]
}

// New creates an empty Cache.
func New() *Cache {
	return &Cache{
		sensors:   cmap.New[*data.SensorData](),
		actuators: cmap.New[*data.ActuatorData](),
		sysPerf:   cmap.New[*data.SystemPerformanceData](),
	}
}

// PutSensor stores a copy of d under d.Name, replacing any previous entry.
// It returns false for nil input or an empty name.
func (c *Cache) PutSensor(d *data.SensorData) bool {
	if d == nil || d.Name == "" {
		return false
	}
	c.sensors.Set(d.Name, d.Clone())
	return true
}

// GetSensor returns a copy of the latest reading for name, or nil.
func (c *Cache) GetSensor(name string) *data.SensorData {
	if name == "" {
		return nil
	}
	d, ok := c.sensors.Get(name)
	if !ok {
		return nil
	}
	return d.Clone()
}

// PutActuatorResponse stores a copy of d under d.Name.
// It returns false for nil input or an empty name.
func (c *Cache) PutActuatorResponse(d *data.ActuatorData) bool {
	if d == nil || d.Name == "" {
		return false
	}
	c.actuators.Set(d.Name, d.Clone())
	return true
}

// GetActuatorResponse returns a copy of the latest response for name, or nil.
func (c *Cache) GetActuatorResponse(name string) *data.ActuatorData {
	if name == "" {
		return nil
	}
	d, ok := c.actuators.Get(name)
	if !ok {
		return nil
	}
	return d.Clone()
}

// PutSystemPerformance stores a copy of d under d.Name.
// It returns false for nil input or an empty name.
func (c *Cache) PutSystemPerformance(d *data.SystemPerformanceData) bool {
	if d == nil || d.Name == "" {
		return false
	}
	c.sysPerf.Set(d.Name, d.Clone())
	return true
}

// GetSystemPerformance returns a copy of the latest snapshot for name, or nil.
func (c *Cache) GetSystemPerformance(name string) *data.SystemPerformanceData {
	if name == "" {
		return nil
	}
	d, ok := c.sysPerf.Get(name)
	if !ok {
		return nil
	}
	return d.Clone()
}

// Len returns the number of names held in a partition.
func (c *Cache) Len(kind Kind) int {
	switch kind {
	case KindSensor:
		return c.sensors.Count()
	case KindActuatorResponse:
		return c.actuators.Count()
	case KindSystemPerformance:
		return c.sysPerf.Count()
	default:
		return 0
	}
}

// Names returns the sorted names held in a partition.
func (c *Cache) Names(kind Kind) []string {
	var names []string
	switch kind {
	case KindSensor:
		names = c.sensors.Keys()
	case KindActuatorResponse:
		names = c.actuators.Keys()
	case KindSystemPerformance:
		names = c.sysPerf.Keys()
	}
	sort.Strings(names)
	return names
}

// Clear removes every entry from every partition.
func (c *Cache) Clear() {
	c.sensors.Clear()
	c.actuators.Clear()
	c.sysPerf.Clear()
}
