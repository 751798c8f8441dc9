package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dCache/lib/cache"
	"github.com/ValentinKolb/dCache/lib/cache/lcache"
	"github.com/ValentinKolb/dCache/rpc/common"
)

// NewICacheServerAdapter creates the adapter for all point and batch commands
func NewICacheServerAdapter() IRPCServerAdapter {
	return &iCacheServerAdapterImpl{}
}

type iCacheServerAdapterImpl struct{}

func (adapter *iCacheServerAdapterImpl) Handle(cmd *common.Command, c *lcache.Cache) *common.Response {
	// Check for nil cache
	if c == nil {
		return common.NewErrorResponse("handler: cache is nil")
	}

	ctx := context.Background()

	// Handle the different commands
	switch cmd.Name {
	case common.CmdGet:
		var args common.KeyArgs
		if err := decodeBody(cmd, &args); err != nil {
			return errorResponse(err)
		}
		return valueResponse(c.Get(ctx, args.Key))
	case common.CmdPut:
		var args common.KeyValueArgs
		if err := decodeBody(cmd, &args); err != nil {
			return errorResponse(err)
		}
		if err := c.Put(ctx, args.Key, args.Value); err != nil {
			return errorResponse(err)
		}
		return common.NewSuccessResponse(true)
	case common.CmdPutIfAbsent:
		var args common.KeyValueArgs
		if err := decodeBody(cmd, &args); err != nil {
			return errorResponse(err)
		}
		return boolResponse(c.PutIfAbsent(ctx, args.Key, args.Value))
	case common.CmdRemove:
		var args common.KeyArgs
		if err := decodeBody(cmd, &args); err != nil {
			return errorResponse(err)
		}
		return boolResponse(c.Remove(ctx, args.Key))
	case common.CmdGetAndRemove:
		var args common.KeyArgs
		if err := decodeBody(cmd, &args); err != nil {
			return errorResponse(err)
		}
		return valueResponse(c.GetAndRemove(ctx, args.Key))
	case common.CmdRemoveAll:
		var args common.KeysArgs
		if err := decodeBody(cmd, &args); err != nil {
			return errorResponse(err)
		}
		if err := c.RemoveAll(ctx, args.Keys...); err != nil {
			return errorResponse(err)
		}
		return common.NewSuccessResponse(true)
	case common.CmdPutAll:
		var args common.EntriesArgs
		if err := decodeBody(cmd, &args); err != nil {
			return errorResponse(err)
		}
		entries := make([]cache.Entry, 0, len(args.Entries))
		for _, e := range args.Entries {
			entries = append(entries, cache.Entry{Key: e.Key, Value: e.Value})
		}
		if err := c.PutAll(ctx, entries...); err != nil {
			return errorResponse(err)
		}
		return common.NewSuccessResponse(true)
	case common.CmdGetAll:
		var args common.KeysArgs
		if err := decodeBody(cmd, &args); err != nil {
			return errorResponse(err)
		}
		entries, err := c.GetAll(ctx, args.Keys...)
		if err != nil {
			return errorResponse(err)
		}
		records := make([]common.EntryRecord, 0, len(entries))
		for _, e := range entries {
			records = append(records, common.EntryRecord{Key: e.Key, Value: e.Value})
		}
		return common.NewSuccessResponse(records)
	case common.CmdContainsKey:
		var args common.KeyArgs
		if err := decodeBody(cmd, &args); err != nil {
			return errorResponse(err)
		}
		return boolResponse(c.ContainsKey(ctx, args.Key))
	case common.CmdContainsKeys:
		var args common.KeysArgs
		if err := decodeBody(cmd, &args); err != nil {
			return errorResponse(err)
		}
		return boolResponse(c.ContainsKeys(ctx, args.Keys...))
	case common.CmdGetAndPut:
		var args common.KeyValueArgs
		if err := decodeBody(cmd, &args); err != nil {
			return errorResponse(err)
		}
		return valueResponse(c.GetAndPut(ctx, args.Key, args.Value))
	case common.CmdGetAndPutIfAbsent:
		var args common.KeyValueArgs
		if err := decodeBody(cmd, &args); err != nil {
			return errorResponse(err)
		}
		return valueResponse(c.GetAndPutIfAbsent(ctx, args.Key, args.Value))
	default:
		return common.NewErrorResponse(
			fmt.Sprintf("RPC ICacheAdapter - Unsupported command: %s", cmd.Name),
		)
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// decodeBody decodes the json body of a command
func decodeBody(cmd *common.Command, v any) error {
	if len(cmd.Body) == 0 {
		return cache.NewError(cache.RetCInvalidOperation, fmt.Sprintf("%s: missing body", cmd.Name))
	}
	if err := json.Unmarshal(cmd.Body, v); err != nil {
		return cache.NewError(cache.RetCInvalidOperation, fmt.Sprintf("%s: malformed body: %s", cmd.Name, err))
	}
	return nil
}

// errorResponse converts err to a failed response, the return code of a
// cache.Error becomes the status of the response
func errorResponse(err error) *common.Response {
	var cacheErr *cache.Error
	if errors.As(err, &cacheErr) && cacheErr.Code != cache.RetCSuccess {
		return &common.Response{Status: int(cacheErr.Code), Err: err.Error()}
	}
	return common.NewErrorResponse(err.Error())
}

// valueResponse returns the value or null if nothing was loaded
func valueResponse(value string, loaded bool, err error) *common.Response {
	if err != nil {
		return errorResponse(err)
	}
	if !loaded {
		return common.NewSuccessResponse(nil)
	}
	return common.NewSuccessResponse(value)
}

func boolResponse(ok bool, err error) *common.Response {
	if err != nil {
		return errorResponse(err)
	}
	return common.NewSuccessResponse(ok)
}
