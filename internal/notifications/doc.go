// Package notifications delivers credential and feed lifecycle events via
// pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. The auth manager and the feed command emit through the Service
// interface without duplicating HTTP glue.
//
// Extend this package if you need alternative transports; callers depend only
// on the simple Service interface.
package notifications
