// Package server implements a development cache server that understands the
// full command vocabulary of the cache client.
//
// Key Components:
//
//   - IRPCServerAdapter: Interface defining the contract for all server adapters,
//     with the Handle method that executes a command against an in-memory cache.
//
//   - NewICacheServerAdapter: adapter for the point and batch commands (get, put,
//     putall, getall, ...), translating commands to cache.ICache calls.
//
//   - NewQueryServerAdapter: adapter for qryexecute, qryfieldsexecute and qryfetch.
//     Queries are scans over the cache in key order (optionally restricted to the
//     key prefix given as first query argument). Results with more than one page
//     are kept under a random query id until their last page was fetched.
//
//   - NewRPCServer: Factory function creating a configured server with the specified
//     transport and serializer mechanisms.
//
// Usage Example:
//
//	config := common.ServerConfig{
//	  Caches:         []string{"users", "sessions"},
//	  CreateOnDemand: false,
//	  Transport:      common.ServerTransportConfig{Endpoint: "0.0.0.0:8080"},
//	  TimeoutSecond:  5,
//	  LogLevel:       "info",
//	}
//
//	s := server.NewRPCServer(
//	  config,
//	  tcp.NewTCPDefaultServerTransport(),
//	  serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// Every command must carry the cache name as its first parameter. Commands for
// unknown caches fail unless CreateOnDemand is set.
//
// Query results that are never fetched to the end stay in memory, there is no
// command to close a query early.
package server
