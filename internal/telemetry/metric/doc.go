// Package metric owns the Prometheus registry for StreamGate.
//
// Registry implements the Metrics interfaces declared by the service and
// transfer packages, so those packages never import Prometheus. Every
// method is safe on a nil *Registry.
package metric
