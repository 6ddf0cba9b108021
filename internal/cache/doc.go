// Package cache holds the latest known value for every named item the agent
// has seen, partitioned by kind (sensor readings, actuator responses, system
// performance snapshots).
//
// Every Put stores a clone and every Get returns a clone, so callers never
// share a mutable value with the cache. A Put replaces the entry for its name
// in one step; readers see either the old value or the new one.
//
// The partitions are sharded concurrent maps, so writers on different names
// do not contend and readers never wait for a full-map lock.
package cache
