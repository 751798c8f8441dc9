// Package cache defines the interface for interacting with a named key–value
// cache, independent of where the cache lives.
//
// Key Components:
//
//   - ICache Interface: point operations (Get, Put, Remove, ...), batch
//     operations (PutAll, GetAll, RemoveAll, ContainsKeys) and paginated
//     queries (Query). Every operation takes a context.Context.
//
//   - Entry: an immutable key–value pair as returned by GetAll.
//
//   - Error System: typed return codes used by cache engines to report why an
//     operation failed (unknown cache, invalid arguments, unknown query id).
//
// Implementations:
//
//	- In-memory cache (lcache): a local cache on top of a concurrent map,
//	  used by the development server and for in-process use.
//	  Available in the "github.com/ValentinKolb/dCache/lib/cache/lcache" package.
//
//	- RPC cache: translates every call into commands for a remote cache server.
//	  Available in the "github.com/ValentinKolb/dCache/rpc/client" package.
package cache
