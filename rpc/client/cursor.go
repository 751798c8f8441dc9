package client

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/ValentinKolb/dCache/lib/cache"
	"github.com/ValentinKolb/dCache/lib/query"
	"github.com/ValentinKolb/dCache/rpc/common"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"strconv"
)

var (
	queryLogger = logger.GetLogger("query")

	queryPages  = metrics.NewCounter("dcache_client_query_pages_total")
	queryErrors = metrics.NewCounter("dcache_client_query_errors_total")
)

// --------------------------------------------------------------------------
// Cursor States
// --------------------------------------------------------------------------

type cursorState uint8

const (
	stateIdle      cursorState = iota // nothing sent yet
	stateExecuting                    // execute command is being dispatched
	statePaging                       // server holds more pages under queryID
	stateDone                         // last page delivered
	stateError                        // terminated by err
)

func (s cursorState) String() string {
	switch s {
	case stateIdle:
		return "Idle"
	case stateExecuting:
		return "Executing"
	case statePaging:
		return "Paging"
	case stateDone:
		return "Done"
	case stateError:
		return "Error"
	default:
		return "Unknown"
	}
}

func (s cursorState) terminal() bool {
	return s == stateDone || s == stateError
}

// --------------------------------------------------------------------------
// Query Cursor
// --------------------------------------------------------------------------

// queryCursor drives the paging protocol of a single query invocation:
// one execute command, then fetch commands with the server assigned query id
// until the server reports the last page.
// A cursor is used once and is not safe for concurrent use.
type queryCursor struct {
	cacheName string
	runner    ICommandRunner
	q         *query.Query

	state   cursorState
	queryID string
	err     error
}

func newQueryCursor(cacheName string, runner ICommandRunner, q *query.Query) *queryCursor {
	return &queryCursor{
		cacheName: cacheName,
		runner:    runner,
		q:         q,
		state:     stateIdle,
	}
}

// run steps the cursor until it reaches a terminal state and delivers the
// terminal signal to the query
func (c *queryCursor) run(ctx context.Context) error {
	for !c.state.terminal() {
		c.step(ctx)
	}
	if c.err != nil {
		queryErrors.Inc()
	}
	c.q.End(c.err)
	return c.err
}

// step performs the work of the current state and transitions to the next one
func (c *queryCursor) step(ctx context.Context) {
	switch c.state {
	case stateIdle:
		if err := c.q.Validate(); err != nil {
			c.fail(err)
			return
		}
		c.state = stateExecuting
	case stateExecuting:
		cmd, err := c.executeCommand()
		if err != nil {
			c.fail(err)
			return
		}
		c.transition(c.dispatch(ctx, cmd))
	case statePaging:
		c.transition(c.dispatch(ctx, c.fetchCommand()))
	default:
		c.fail(fmt.Errorf("query cursor stepped in state %s", c.state))
	}
}

// transition handles the outcome of an execute or fetch command
func (c *queryCursor) transition(page common.QueryPage, err error) {
	if err != nil {
		c.fail(err)
		return
	}

	queryPages.Inc()
	c.q.Page(page.Items)

	if page.Last {
		c.state = stateDone
		return
	}
	c.queryID = page.QueryID
	c.state = statePaging
}

func (c *queryCursor) fail(err error) {
	queryLogger.Debugf("query on %s failed in state %s: %v", c.cacheName, c.state, err)
	c.err = err
	c.state = stateError
}

// dispatch runs a command and decodes its result as a query page
func (c *queryCursor) dispatch(ctx context.Context, cmd *common.Command) (common.QueryPage, error) {
	if err := ctx.Err(); err != nil {
		return common.QueryPage{}, err
	}

	resp, err := c.runner.RunCommand(ctx, cmd)
	if err != nil {
		return common.QueryPage{}, err
	}

	page, err := common.DecodeQueryPage(resp.Payload)
	if err != nil {
		return common.QueryPage{}, fmt.Errorf("%s: %w", cmd.Name, err)
	}
	queryLogger.Debugf("%s returned %d rows (last=%t)", cmd.Name, len(page.Items), page.Last)
	return page, nil
}

// executeCommand builds the command that starts the query
func (c *queryCursor) executeCommand() (*common.Command, error) {
	body, err := json.Marshal(common.QueryArgs{Args: nonNilArgs(c.q.Args())})
	if err != nil {
		return nil, fmt.Errorf("failed to encode query arguments: %w", err)
	}

	name := common.CmdQueryFieldsExec
	if c.q.Kind() == query.KindSql {
		name = common.CmdQueryExecute
	}

	cmd := common.NewCommand(name).
		AddParam(common.ParamCacheName, c.cacheName).
		AddParam(common.ParamQuery, c.q.Text()).
		AddParam(common.ParamPageSize, strconv.Itoa(c.q.PageSize()))
	if c.q.Kind() == query.KindSql {
		cmd.AddParam(common.ParamReturnType, c.q.ReturnType())
	}
	return cmd.SetBody(body), nil
}

// fetchCommand builds the command for the next page
func (c *queryCursor) fetchCommand() *common.Command {
	return common.NewCommand(common.CmdQueryFetch).
		AddParam(common.ParamCacheName, c.cacheName).
		AddParam(common.ParamQueryID, c.queryID).
		AddParam(common.ParamPageSize, strconv.Itoa(c.q.PageSize()))
}

func nonNilArgs(args []any) []any {
	if args == nil {
		return []any{}
	}
	return args
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// QueryAll runs q on c and returns all rows of all pages.
// The handler of q is replaced.
func QueryAll(ctx context.Context, c cache.ICache, q *query.Query) ([]json.RawMessage, error) {
	collector := &query.Collector{}
	if err := c.Query(ctx, q.WithHandler(collector)); err != nil {
		return collector.Rows, err
	}
	if collector.Rows == nil {
		return []json.RawMessage{}, nil
	}
	return collector.Rows, nil
}
