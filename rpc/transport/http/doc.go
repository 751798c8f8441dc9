// Package http implements an HTTP-based transport layer for RPC communication
// between cache clients and the cache server. It provides concrete implementations
// of the transport interfaces defined in the parent package.
//
// The package focuses on:
//   - Client-side HTTP transport for sending serialized commands to servers
//   - Server-side HTTP transport for receiving and handling serialized commands
//   - Round-robin load balancing across multiple server endpoints
//
// Key Components:
//
//   - httpClientTransport: Implements IRPCClientTransport. Every command is sent
//     as the body of a POST request to <endpoint>/rpc, endpoints are selected
//     round-robin and failed requests are retried RetryCount times.
//
//   - httpServerTransport: Implements IRPCServerTransport. Serves POST /rpc and,
//     if enabled in the server config, GET /metrics in the Prometheus text format.
//
// Thread Safety:
//
//	The client transport is thread-safe and can be used concurrently. It uses
//	atomic operations for the round-robin counter to ensure thread safety when
//	selecting server endpoints.
package http
