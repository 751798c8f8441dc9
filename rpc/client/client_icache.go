package client

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/ValentinKolb/dCache/lib/cache"
	"github.com/ValentinKolb/dCache/lib/query"
	"github.com/ValentinKolb/dCache/rpc/common"
	"github.com/ValentinKolb/dCache/rpc/serializer"
	"github.com/ValentinKolb/dCache/rpc/transport"
)

// NewRPCCache creates a new RPC cache client
// The function connects the transport and binds the client to config.CacheName.
// It returns a cache.ICache and an error
func NewRPCCache(
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (cache.ICache, error) {
	if config.CacheName == "" {
		return nil, fmt.Errorf("no cache name provided")
	}

	// Connect the transport
	if err := transport.Connect(config); err != nil {
		return nil, err
	}

	return NewCache(config.CacheName, NewRPCRunner(transport, serializer)), nil
}

// NewCache creates a cache client for the named cache that dispatches all
// commands with the given runner
func NewCache(cacheName string, runner ICommandRunner) cache.ICache {
	return &rpcCache{
		name:   cacheName,
		runner: runner,
	}
}

type rpcCache struct {
	name   string
	runner ICommandRunner
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the cache package in interface.go)
// --------------------------------------------------------------------------

func (c *rpcCache) Name() string {
	return c.name
}

func (c *rpcCache) Get(ctx context.Context, key string) (string, bool, error) {
	return c.invokeValue(ctx, common.CmdGet, common.KeyArgs{Key: key})
}

func (c *rpcCache) Put(ctx context.Context, key, value string) error {
	return c.invoke(ctx, common.CmdPut, common.KeyValueArgs{Key: key, Value: value}, nil)
}

func (c *rpcCache) PutIfAbsent(ctx context.Context, key, value string) (bool, error) {
	return c.invokeBool(ctx, common.CmdPutIfAbsent, common.KeyValueArgs{Key: key, Value: value})
}

func (c *rpcCache) Remove(ctx context.Context, key string) (bool, error) {
	return c.invokeBool(ctx, common.CmdRemove, common.KeyArgs{Key: key})
}

func (c *rpcCache) GetAndRemove(ctx context.Context, key string) (string, bool, error) {
	return c.invokeValue(ctx, common.CmdGetAndRemove, common.KeyArgs{Key: key})
}

func (c *rpcCache) RemoveAll(ctx context.Context, keys ...string) error {
	return c.invoke(ctx, common.CmdRemoveAll, common.KeysArgs{Keys: nonNil(keys)}, nil)
}

func (c *rpcCache) PutAll(ctx context.Context, entries ...cache.Entry) error {
	records := make([]common.EntryRecord, 0, len(entries))
	for _, e := range entries {
		records = append(records, common.EntryRecord{Key: e.Key, Value: e.Value})
	}
	return c.invoke(ctx, common.CmdPutAll, common.EntriesArgs{Entries: records}, nil)
}

func (c *rpcCache) GetAll(ctx context.Context, keys ...string) ([]cache.Entry, error) {
	var records []common.EntryRecord
	if err := c.invoke(ctx, common.CmdGetAll, common.KeysArgs{Keys: nonNil(keys)}, &records); err != nil {
		return nil, err
	}

	entries := make([]cache.Entry, 0, len(records))
	for _, r := range records {
		entries = append(entries, cache.Entry{Key: r.Key, Value: r.Value})
	}
	return entries, nil
}

func (c *rpcCache) ContainsKey(ctx context.Context, key string) (bool, error) {
	return c.invokeBool(ctx, common.CmdContainsKey, common.KeyArgs{Key: key})
}

func (c *rpcCache) ContainsKeys(ctx context.Context, keys ...string) (bool, error) {
	return c.invokeBool(ctx, common.CmdContainsKeys, common.KeysArgs{Keys: nonNil(keys)})
}

func (c *rpcCache) GetAndPut(ctx context.Context, key, value string) (string, bool, error) {
	return c.invokeValue(ctx, common.CmdGetAndPut, common.KeyValueArgs{Key: key, Value: value})
}

func (c *rpcCache) GetAndPutIfAbsent(ctx context.Context, key, value string) (string, bool, error) {
	return c.invokeValue(ctx, common.CmdGetAndPutIfAbsent, common.KeyValueArgs{Key: key, Value: value})
}

func (c *rpcCache) Query(ctx context.Context, q *query.Query) error {
	return newQueryCursor(c.name, c.runner, q).run(ctx)
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// newCacheCommand creates a command that is bound to the cache,
// the cache name is always the first parameter
func (c *rpcCache) newCacheCommand(name string) *common.Command {
	return common.NewCommand(name).AddParam(common.ParamCacheName, c.name)
}

// invoke sends a command with the json encoding of args as body and decodes
// the response payload into out (if out is not nil)
func (c *rpcCache) invoke(ctx context.Context, name string, args any, out any) error {
	body, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("failed to encode %s arguments: %w", name, err)
	}

	resp, err := c.runner.RunCommand(ctx, c.newCacheCommand(name).SetBody(body))
	if err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	if len(resp.Payload) == 0 {
		return fmt.Errorf("%w: empty %s result", common.ErrProtocol, name)
	}
	if err := json.Unmarshal(resp.Payload, out); err != nil {
		return fmt.Errorf("%w: unexpected %s result: %v", common.ErrProtocol, name, err)
	}
	return nil
}

// invokeValue is used for all commands that return a value or null
func (c *rpcCache) invokeValue(ctx context.Context, name string, args any) (string, bool, error) {
	var value *string
	if err := c.invoke(ctx, name, args, &value); err != nil {
		return "", false, err
	}
	if value == nil {
		return "", false, nil
	}
	return *value, true, nil
}

// invokeBool is used for all commands that return a bool
func (c *rpcCache) invokeBool(ctx context.Context, name string, args any) (bool, error) {
	var ok bool
	err := c.invoke(ctx, name, args, &ok)
	return ok, err
}

// nonNil makes sure an empty key list is encoded as [] instead of null
func nonNil(keys []string) []string {
	if keys == nil {
		return []string{}
	}
	return keys
}
