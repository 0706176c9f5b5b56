// Package store persists experiment analysis runs in SQLite.
//
// The pure-Go modernc.org/sqlite driver is used so the service builds
// without cgo. A run row holds the experiment statistics and the encoded
// summary; one samples row per MetricRecord allows querying individual
// samples across runs.
package store
