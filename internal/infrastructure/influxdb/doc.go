// Package influxdb provides optional device telemetry for Homelink Core.
//
// When enabled, the polling engine records numeric device state (on/off,
// brightness) after every state change, giving the household a history of
// what was on and when without any extra instrumentation.
//
// Writes go through the non-blocking batching WriteAPI: a slow or absent
// InfluxDB server never stalls a poll. Async write failures surface
// through the SetOnError callback.
package influxdb
