// Package backend holds the fixed set of upstream servers the proxy routes to.
// It provides the backend descriptors with their declared content affinity,
// the registry that owns each backend's health flag, and request forwarding
// through a per-backend reverse proxy.
package backend
