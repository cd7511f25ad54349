// Package connect defines shared types for loom service endpoints and
// wiring: a resolved Endpoint with typed attributes, the Wiring map a
// process reads at startup to learn its listen ports and backing-service
// endpoints, and the per-request log-writer plumbing the HTTP layer
// threads through handler contexts.
package connect

import "fmt"

// Protocol identifies the application-layer protocol an endpoint speaks.
// These are the protocols loom itself serves or dials: raw TCP listeners,
// the HTTP router, and the gRPC connectors/admin plane.
type Protocol string

const (
	TCP  Protocol = "tcp"
	HTTP Protocol = "http"
	GRPC Protocol = "grpc"
)

// Endpoint is a resolved service endpoint. Connection parameters beyond
// host and port travel in Attributes, read through the typed Attr keys in
// attrs.go.
type Endpoint struct {
	Host       string         `json:"host"`
	Port       int            `json:"port"`
	Protocol   Protocol       `json:"protocol"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Addr returns "host:port" suitable for net.Dial, grpc.NewClient, etc.
func (e Endpoint) Addr() string {
	return fmt.Sprintf("%s:%d", e.Host, e.Port)
}
