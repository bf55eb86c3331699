// Package handler implements the HTTP handlers of the routing proxy.
// LoadBalancerHandler routes each request to one backend, keeps the
// connection and latency bookkeeping around the forward and reports the
// outcome. AdminHandler serves the stats query and the policy switch.
package handler
