package lcache

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/ValentinKolb/dCache/lib/cache"
	"github.com/ValentinKolb/dCache/lib/query"
	"github.com/puzpuzpuz/xsync/v3"
	"sort"
	"strings"
)

// Cache is an in-memory cache.ICache
type Cache struct {
	name    string
	entries *xsync.MapOf[string, string]
}

// NewLocalCache creates a new empty in-memory cache.
// This cache implementation is not distributed and only lives in the current process.
func NewLocalCache(name string) *Cache {
	return &Cache{
		name:    name,
		entries: xsync.NewMapOf[string, string](),
	}
}

// Len returns the number of entries in the cache
func (c *Cache) Len() int {
	return c.entries.Size()
}

// --------------------------------------------------------------------------
// Interface Methods (docu see cache/interface.go)
// --------------------------------------------------------------------------

func (c *Cache) Name() string {
	return c.name
}

func (c *Cache) Get(_ context.Context, key string) (string, bool, error) {
	val, ok := c.entries.Load(key)
	return val, ok, nil
}

func (c *Cache) Put(_ context.Context, key, value string) error {
	c.entries.Store(key, value)
	return nil
}

func (c *Cache) PutIfAbsent(_ context.Context, key, value string) (bool, error) {
	_, loaded := c.entries.LoadOrStore(key, value)
	return !loaded, nil
}

func (c *Cache) Remove(_ context.Context, key string) (bool, error) {
	_, loaded := c.entries.LoadAndDelete(key)
	return loaded, nil
}

func (c *Cache) GetAndRemove(_ context.Context, key string) (string, bool, error) {
	val, loaded := c.entries.LoadAndDelete(key)
	return val, loaded, nil
}

func (c *Cache) RemoveAll(_ context.Context, keys ...string) error {
	for _, key := range keys {
		c.entries.Delete(key)
	}
	return nil
}

func (c *Cache) PutAll(_ context.Context, entries ...cache.Entry) error {
	for _, e := range entries {
		c.entries.Store(e.Key, e.Value)
	}
	return nil
}

func (c *Cache) GetAll(_ context.Context, keys ...string) ([]cache.Entry, error) {
	result := make([]cache.Entry, 0, len(keys))
	for _, key := range keys {
		if val, ok := c.entries.Load(key); ok {
			result = append(result, cache.Entry{Key: key, Value: val})
		}
	}
	return result, nil
}

func (c *Cache) ContainsKey(_ context.Context, key string) (bool, error) {
	_, ok := c.entries.Load(key)
	return ok, nil
}

func (c *Cache) ContainsKeys(_ context.Context, keys ...string) (bool, error) {
	for _, key := range keys {
		if _, ok := c.entries.Load(key); !ok {
			return false, nil
		}
	}
	return true, nil
}

func (c *Cache) GetAndPut(_ context.Context, key, value string) (string, bool, error) {
	old, loaded := c.entries.LoadAndStore(key, value)
	return old, loaded, nil
}

func (c *Cache) GetAndPutIfAbsent(_ context.Context, key, value string) (string, bool, error) {
	actual, loaded := c.entries.LoadOrStore(key, value)
	if !loaded {
		return "", false, nil
	}
	return actual, true, nil
}

// Query runs the query against the local cache and delivers the result in
// pages of q.PageSize() rows
func (c *Cache) Query(ctx context.Context, q *query.Query) error {
	if err := q.Validate(); err != nil {
		q.End(err)
		return err
	}

	rows, err := c.Select(q.Kind(), q.Args())
	if err != nil {
		q.End(err)
		return err
	}

	pages := Paginate(rows, q.PageSize())
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			q.End(err)
			return err
		}
		q.Page(page)
	}
	q.End(nil)
	return nil
}

// --------------------------------------------------------------------------
// Scan Queries
// --------------------------------------------------------------------------

// Scan returns a snapshot of all entries whose key starts with prefix,
// ordered by key
func (c *Cache) Scan(prefix string) []cache.Entry {
	var result []cache.Entry
	c.entries.Range(func(key string, value string) bool {
		if strings.HasPrefix(key, prefix) {
			result = append(result, cache.Entry{Key: key, Value: value})
		}
		return true
	})
	sort.Slice(result, func(i, j int) bool {
		return result[i].Key < result[j].Key
	})
	return result
}

// sqlRow is the row shape of Sql queries
type sqlRow struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Select evaluates a scan query. The query text is not interpreted, the
// first argument (if any) is used as key prefix.
// Sql rows are {"key":..,"value":..} objects, SqlFields rows are [key, value].
func (c *Cache) Select(kind query.Kind, args []any) ([]json.RawMessage, error) {
	prefix := ""
	if len(args) > 0 && args[0] != nil {
		prefix = fmt.Sprint(args[0])
	}

	entries := c.Scan(prefix)
	rows := make([]json.RawMessage, 0, len(entries))
	for _, e := range entries {
		var row any
		switch kind {
		case query.KindSql:
			row = sqlRow{Key: e.Key, Value: e.Value}
		case query.KindSqlFields:
			row = []string{e.Key, e.Value}
		default:
			return nil, cache.NewError(cache.RetCInvalidOperation, fmt.Sprintf("unsupported query kind %s", kind))
		}
		raw, err := json.Marshal(row)
		if err != nil {
			return nil, cache.NewError(cache.RetCInternalError, err.Error())
		}
		rows = append(rows, raw)
	}
	return rows, nil
}

// Paginate splits rows into pages of at most pageSize rows.
// An empty result is a single empty page.
func Paginate(rows []json.RawMessage, pageSize int) [][]json.RawMessage {
	if pageSize < 1 {
		pageSize = query.DefaultPageSize
	}
	if len(rows) == 0 {
		return [][]json.RawMessage{{}}
	}
	pages := make([][]json.RawMessage, 0, (len(rows)+pageSize-1)/pageSize)
	for start := 0; start < len(rows); start += pageSize {
		end := start + pageSize
		if end > len(rows) {
			end = len(rows)
		}
		pages = append(pages, rows[start:end])
	}
	return pages
}
