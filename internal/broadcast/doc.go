// Package broadcast publishes the proxy's stats to observers after every
// routing policy change, health transition and proxied request.
//
// Broadcaster is called synchronously by the components that mutate state;
// with no subscribed observer it does nothing. Hub is an Observer that pushes
// each update to connected websocket clients as a "metrics_update" event.
package broadcast
