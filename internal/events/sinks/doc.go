// Package sinks implements concrete change-event consumers: structured
// logging, Prometheus gauges mirroring the counters, and fan-out to a message
// publisher. Each sink satisfies events.Sink and tolerates repeated
// Consume/Close cycles.
package sinks
