// Package sensor implements the Sensor capability: an AM2302 (DHT22)
// temperature and humidity sensor.
//
// The sensor must not be polled faster than every two seconds, so AM2302
// serves cached values in between and retries failed reads. A zero or
// missing value is reported as ErrNoReading, null over the wire.
package sensor
