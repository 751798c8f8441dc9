// Package client implements the RPC client of the cache. It provides an
// implementation of the cache.ICache interface that turns every call into
// commands for a remote cache server.
//
// The package focuses on:
//   - Building one command per cache operation, always bound to a cache name
//   - Driving the paging protocol of queries (execute, then fetch until the last page)
//   - Integration with the transport and serialization layers
//
// Key Components:
//
//   - ICommandRunner: dispatches a single command and returns exactly one outcome.
//     NewRPCRunner implements it with a transport and a serializer, tests can
//     provide their own implementation.
//
//   - NewRPCCache / NewCache: create a client implementing cache.ICache for a
//     single named cache.
//
//   - Query cursor: every call to Query creates a cursor that walks through the
//     states Idle, Executing, Paging and Done (or Error). Fetches are sent one at
//     a time, the next fetch is only sent after the previous page was handed to
//     the query's handler. The handler's OnEnd is called exactly once.
//
//   - QueryAll: collects all rows of a query.
//
// Usage Example:
//
//	config := common.ClientConfig{
//	  CacheName:     "users",
//	  TimeoutSecond: 5,
//	  Transport: common.ClientTransportConfig{
//	    Endpoints:  []string{"localhost:8080"},
//	    RetryCount: 3,
//	  },
//	}
//
//	c, err := client.NewRPCCache(config, tcp.NewTCPClientTransport(), serializer.NewBinarySerializer())
//	if err != nil {
//	  ...
//	}
//
//	_ = c.Put(ctx, "user:1", "alice")
//	value, exists, _ := c.Get(ctx, "user:1")
//
//	rows, err := client.QueryAll(ctx, c, query.NewSqlFieldsQuery("scan", "user:").WithPageSize(100))
//
// Errors:
//
//	Transport errors are returned unchanged. A non-zero status reported by the
//	server becomes a *common.ServerError, malformed responses wrap common.ErrProtocol.
//	Canceling the context stops a query before its next fetch; the server is not
//	told about it.
//
// Thread Safety:
//
//	The cache client is safe for concurrent use. Each query invocation owns its
//	cursor, different queries may run concurrently.
package client
