package cache

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/dCache/lib/query"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// Entry is a single key–value pair of a cache
type Entry struct {
	Key   string
	Value string
}

// ICache is the interface for interacting with a single named cache.
// Read operations return the requested data plus a bool that reports whether
// a value was present, write operations report whether the cache changed.
type ICache interface {
	// Name returns the name of the cache the instance is bound to.
	Name() string
	// Get returns the value for a key.
	Get(ctx context.Context, key string) (value string, loaded bool, err error)
	// Put inserts or updates a key–value pair.
	Put(ctx context.Context, key, value string) (err error)
	// PutIfAbsent inserts a key–value pair if the key does not exist.
	// The returned bool reports whether the value was stored.
	PutIfAbsent(ctx context.Context, key, value string) (stored bool, err error)
	// Remove deletes a key. The returned bool reports whether the key existed.
	Remove(ctx context.Context, key string) (removed bool, err error)
	// GetAndRemove deletes a key and returns the value it had.
	GetAndRemove(ctx context.Context, key string) (value string, loaded bool, err error)
	// RemoveAll deletes all given keys.
	RemoveAll(ctx context.Context, keys ...string) (err error)
	// PutAll inserts or updates all given entries.
	PutAll(ctx context.Context, entries ...Entry) (err error)
	// GetAll returns the entries of all given keys that exist, missing keys are skipped.
	GetAll(ctx context.Context, keys ...string) (entries []Entry, err error)
	// ContainsKey returns whether a key exists.
	ContainsKey(ctx context.Context, key string) (loaded bool, err error)
	// ContainsKeys returns whether all given keys exist.
	ContainsKeys(ctx context.Context, keys ...string) (loaded bool, err error)
	// GetAndPut stores a value and returns the value that was replaced.
	GetAndPut(ctx context.Context, key, value string) (old string, loaded bool, err error)
	// GetAndPutIfAbsent stores a value if the key does not exist.
	// If the key exists its current value is returned and nothing is stored.
	GetAndPutIfAbsent(ctx context.Context, key, value string) (old string, loaded bool, err error)
	// Query runs a query and delivers its pages to the handler of q.
	// q.End is called exactly once; the error passed to it is also returned.
	// A descriptor that already ended is rejected with query.ErrQueryEnded
	// and its handler is not called again.
	Query(ctx context.Context, q *query.Query) (err error)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("CacheError (code %s): %s", e.Code, e.Msg)
}

// NewError creates a new CacheError with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess          RetCode = iota // 0: Command executed successfully.
	RetCInternalError                   // 1: Command failed due to an internal error.
	RetCCacheNotFound                   // 2: The named cache does not exist.
	RetCInvalidOperation                // 3: Invalid operation or arguments.
	RetCQueryNotFound                   // 4: The query id is unknown or already exhausted.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCCacheNotFound:
		return "CacheNotFound"
	case RetCInvalidOperation:
		return "InvalidOperation"
	case RetCQueryNotFound:
		return "QueryNotFound"
	default:
		return "Unknown"
	}
}
