// Package healthcheck implements periodic health checking for backend servers.
// It probes each backend's HTTP health endpoint and flips the backend's flag
// in the registry on every probe outcome, with no debounce. Transitions are
// logged and broadcast; steady states are silent.
package healthcheck
