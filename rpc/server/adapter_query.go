package server

import (
	"encoding/json"
	"fmt"
	"github.com/ValentinKolb/dCache/lib/cache"
	"github.com/ValentinKolb/dCache/lib/cache/lcache"
	"github.com/ValentinKolb/dCache/lib/query"
	"github.com/ValentinKolb/dCache/rpc/common"
	"github.com/VictoriaMetrics/metrics"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"strconv"
	"sync"
)

// NewQueryServerAdapter creates the adapter for the query commands.
// Open query results are kept in memory until their last page was served.
func NewQueryServerAdapter() *QueryServerAdapter {
	adapter := &QueryServerAdapter{
		cursors: xsync.NewMapOf[string, *serverCursor](),
	}
	metrics.GetOrCreateGauge("dcache_server_open_queries", func() float64 {
		return float64(adapter.cursors.Size())
	})
	return adapter
}

// QueryServerAdapter handles qryexecute, qryfieldsexecute and qryfetch
type QueryServerAdapter struct {
	cursors *xsync.MapOf[string, *serverCursor]
}

// serverCursor holds the remaining rows of an open query
type serverCursor struct {
	mu        sync.Mutex
	cacheName string
	rows      []json.RawMessage
	offset    int
}

// OpenQueries returns the number of queries whose last page was not served yet
func (adapter *QueryServerAdapter) OpenQueries() int {
	return adapter.cursors.Size()
}

func (adapter *QueryServerAdapter) Handle(cmd *common.Command, c *lcache.Cache) *common.Response {
	// Check for nil cache
	if c == nil {
		return common.NewErrorResponse("handler: cache is nil")
	}

	pageSize, err := pageSizeParam(cmd)
	if err != nil {
		return errorResponse(err)
	}

	switch cmd.Name {
	case common.CmdQueryExecute:
		if returnType, _ := cmd.Param(common.ParamReturnType); returnType == "" {
			return errorResponse(cache.NewError(cache.RetCInvalidOperation, query.ErrMissingReturnType.Error()))
		}
		return adapter.execute(cmd, c, query.KindSql, pageSize)
	case common.CmdQueryFieldsExec:
		return adapter.execute(cmd, c, query.KindSqlFields, pageSize)
	case common.CmdQueryFetch:
		return adapter.fetch(cmd, c, pageSize)
	default:
		return common.NewErrorResponse(
			fmt.Sprintf("RPC QueryAdapter - Unsupported command: %s", cmd.Name),
		)
	}
}

// execute evaluates the query and returns its first page
func (adapter *QueryServerAdapter) execute(cmd *common.Command, c *lcache.Cache, kind query.Kind, pageSize int) *common.Response {
	var args common.QueryArgs
	if len(cmd.Body) > 0 {
		if err := decodeBody(cmd, &args); err != nil {
			return errorResponse(err)
		}
	}

	rows, err := c.Select(kind, args.Args)
	if err != nil {
		return errorResponse(err)
	}

	cursor := &serverCursor{cacheName: c.Name(), rows: rows}
	page := cursor.next(pageSize)
	if !page.Last {
		page.QueryID = uuid.NewString()
		adapter.cursors.Store(page.QueryID, cursor)
		Logger.Debugf("opened query %s on %s (%d rows)", page.QueryID, c.Name(), len(rows))
	}
	return common.NewSuccessResponse(page)
}

// fetch returns the next page of an open query
func (adapter *QueryServerAdapter) fetch(cmd *common.Command, c *lcache.Cache, pageSize int) *common.Response {
	queryID, _ := cmd.Param(common.ParamQueryID)
	cursor, ok := adapter.cursors.Load(queryID)
	if !ok || cursor.cacheName != c.Name() {
		return errorResponse(cache.NewError(cache.RetCQueryNotFound, fmt.Sprintf("unknown query id %q", queryID)))
	}

	page := cursor.next(pageSize)
	if page.Last {
		adapter.cursors.Delete(queryID)
		Logger.Debugf("closed query %s on %s", queryID, c.Name())
	} else {
		page.QueryID = queryID
	}
	return common.NewSuccessResponse(page)
}

// next cuts the next page off the remaining rows
func (sc *serverCursor) next(pageSize int) common.QueryPage {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	end := sc.offset + pageSize
	if end > len(sc.rows) {
		end = len(sc.rows)
	}
	items := make([]json.RawMessage, 0, end-sc.offset)
	items = append(items, sc.rows[sc.offset:end]...)
	sc.offset = end

	return common.QueryPage{Items: items, Last: sc.offset >= len(sc.rows)}
}

// pageSizeParam reads the psz parameter, the default is used if it is missing
func pageSizeParam(cmd *common.Command) (int, error) {
	raw, ok := cmd.Param(common.ParamPageSize)
	if !ok {
		return query.DefaultPageSize, nil
	}
	pageSize, err := strconv.Atoi(raw)
	if err != nil || pageSize < 1 {
		return 0, cache.NewError(cache.RetCInvalidOperation, fmt.Sprintf("invalid page size %q", raw))
	}
	return pageSize, nil
}
