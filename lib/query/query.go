package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// DefaultPageSize is used for queries that do not set a page size
const DefaultPageSize = 1024

var (
	// ErrMissingReturnType is returned for Sql queries without a return type
	ErrMissingReturnType = errors.New("sql query requires a return type")
	// ErrInvalidPageSize is returned for queries with a page size < 1
	ErrInvalidPageSize = errors.New("page size must be positive")
	// ErrEmptyQuery is returned for queries without query text
	ErrEmptyQuery = errors.New("query text is empty")
	// ErrQueryEnded is returned when a descriptor that already received its
	// terminal signal is run again
	ErrQueryEnded = errors.New("query already ended")
)

// --------------------------------------------------------------------------
// Query Kind
// --------------------------------------------------------------------------

// Kind defines the result shape of a query
type Kind uint8

const (
	KindSql       Kind = iota // Rows are values of the return type
	KindSqlFields             // Rows are lists of selected fields
)

func (k Kind) String() string {
	switch k {
	case KindSql:
		return "Sql"
	case KindSqlFields:
		return "SqlFields"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// --------------------------------------------------------------------------
// Query Descriptor
// --------------------------------------------------------------------------

// Query describes a single query invocation: what to run, how large the
// pages are and where pages and the terminal signal are delivered to.
//
// The descriptor is read-only for the cursor executing it. Page and End are
// the only way results reach the consumer. A descriptor is run once, running
// it again after End fails with ErrQueryEnded.
type Query struct {
	kind       Kind
	text       string
	args       []any
	pageSize   int
	returnType string
	handler    PageHandler
	endOnce    sync.Once
	ended      atomic.Bool
}

// NewSqlQuery creates a query whose rows are values of returnType
func NewSqlQuery(returnType, text string, args ...any) *Query {
	return &Query{
		kind:       KindSql,
		text:       text,
		args:       args,
		returnType: returnType,
	}
}

// NewSqlFieldsQuery creates a query whose rows are lists of the selected fields
func NewSqlFieldsQuery(text string, args ...any) *Query {
	return &Query{
		kind: KindSqlFields,
		text: text,
		args: args,
	}
}

// WithPageSize sets the number of rows per page and returns the query
func (q *Query) WithPageSize(pageSize int) *Query {
	q.pageSize = pageSize
	return q
}

// WithHandler sets the consumer of the query and returns the query
func (q *Query) WithHandler(handler PageHandler) *Query {
	q.handler = handler
	return q
}

// Kind returns the kind of the query
func (q *Query) Kind() Kind { return q.kind }

// Text returns the query string
func (q *Query) Text() string { return q.text }

// Args returns the query arguments
func (q *Query) Args() []any { return q.args }

// ReturnType returns the type tag of the rows (Sql queries only)
func (q *Query) ReturnType() string { return q.returnType }

// PageSize returns the page size, DefaultPageSize if none was set
func (q *Query) PageSize() int {
	if q.pageSize == 0 {
		return DefaultPageSize
	}
	return q.pageSize
}

// Ended reports whether the terminal signal was delivered
func (q *Query) Ended() bool { return q.ended.Load() }

// Validate checks the descriptor before anything is sent to the server
func (q *Query) Validate() error {
	if q.Ended() {
		return ErrQueryEnded
	}
	if q.text == "" {
		return ErrEmptyQuery
	}
	if q.pageSize < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidPageSize, q.pageSize)
	}
	if q.kind == KindSql && q.returnType == "" {
		return ErrMissingReturnType
	}
	if q.kind != KindSql && q.kind != KindSqlFields {
		return fmt.Errorf("unsupported query kind %s", q.kind)
	}
	return nil
}

// Page forwards a delivered page to the consumer
func (q *Query) Page(rows []json.RawMessage) {
	if q.handler != nil {
		q.handler.OnPage(rows)
	}
}

// End delivers the terminal signal to the consumer.
// Only the first call has an effect.
func (q *Query) End(err error) {
	q.endOnce.Do(func() {
		q.ended.Store(true)
		if q.handler != nil {
			q.handler.OnEnd(err)
		}
	})
}
