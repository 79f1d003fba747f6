// Package transport defines the contract shared by the network servers that
// make up server mode.
//
// Each transport (HTTP job API, gRPC health) implements this interface and is
// started and stopped by the serve command. Job handling itself lives in the
// job package; transports only decode requests and encode results.
package transport

import (
	"context"
)

// Transport is the interface that every transport adapter must implement.
type Transport interface {
	// Name returns the transport identifier (e.g., "http", "grpc").
	Name() string

	// Listen starts accepting connections. It blocks until the context is
	// cancelled or the server fails.
	Listen(ctx context.Context) error

	// Close gracefully shuts down the transport, draining in-flight work.
	Close() error
}
