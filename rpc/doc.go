// Package rpc provides the remote access layer of the cache. It turns cache
// operations into commands, moves them between client and server and drives
// the paging protocol of queries.
//
// The package is organized into several subpackages:
//
//   - common: Command and Response envelope, typed payloads, configuration
//     structures, and logging.
//
//   - transport: Network communication abstractions with pluggable implementations
//     (TCP, Unix sockets, HTTP).
//
//   - serializer: Command and response serialization with multiple format options
//     (Binary, JSON, GOB).
//
//   - client: the cache.ICache implementation on top of a transport, including
//     the query cursor.
//
//   - server: a development cache server handling the full command vocabulary
//     against in-memory caches.
package rpc
