// Package metrics registers the Prometheus collectors exposed on the
// daemon's /metrics endpoint.
package metrics
