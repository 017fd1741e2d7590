// Package config holds the conversion settings. A Config is built once,
// from defaults or a CUE file unified with the embedded schema, and then
// shared read-only by pointer.
package config
