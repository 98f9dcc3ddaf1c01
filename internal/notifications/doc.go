// Package notifications delivers push notifications for cycle lifecycle
// events and escalations via ntfy.
//
// When no topic is configured a noop implementation is returned, so callers
// never need to nil-check. Delivery failures are reported to the caller for
// logging but are never fatal to a cycle.
package notifications
