// Package lcache implements a local, in-memory cache based on the cache.ICache
// interface. Entries live in a concurrent map and are not persisted between
// process restarts.
//
// Queries are scans: the entries whose key starts with the first query
// argument are returned in key order. The query text itself is not
// interpreted. Sql queries yield {"key","value"} objects, SqlFields queries
// yield [key, value] arrays.
//
// Usage Example:
//
//	c := lcache.NewLocalCache("users")
//	_ = c.Put(ctx, "user:1", "alice")
//
//	rows, err := client.QueryAll(ctx, c, query.NewSqlFieldsQuery("scan", "user:"))
//
// Thread Safety:
//
//	All operations are safe for concurrent use. Single-key operations are
//	atomic, batch operations are not.
package lcache
