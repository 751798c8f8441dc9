package client

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/ValentinKolb/dCache/lib/query"
	"github.com/ValentinKolb/dCache/rpc/common"
)

// recorder is a query.PageHandler that records every call in order
type recorder struct {
	pages [][]string
	ends  []error
}

func (r *recorder) OnPage(rows []json.RawMessage) {
	page := make([]string, 0, len(rows))
	for _, row := range rows {
		page = append(page, string(row))
	}
	r.pages = append(r.pages, page)
}

func (r *recorder) OnEnd(err error) {
	r.ends = append(r.ends, err)
}

func TestQuerySinglePage(t *testing.T) {
	runner := newStubRunner(stubReply{payload: `{"items":[[1],[2]],"last":true}`})
	rec := &recorder{}
	q := query.NewSqlFieldsQuery("select id from T").WithPageSize(10).WithHandler(rec)

	if err := NewCache("test", runner).Query(context.Background(), q); err != nil {
		t.Fatalf("Query() error = %v", err)
	}

	if !reflect.DeepEqual(rec.pages, [][]string{{"[1]", "[2]"}}) {
		t.Errorf("pages = %v", rec.pages)
	}
	if len(rec.ends) != 1 || rec.ends[0] != nil {
		t.Errorf("ends = %v, want [<nil>]", rec.ends)
	}
	if n := runner.count(common.CmdQueryFetch); n != 0 {
		t.Errorf("%d fetch commands issued, want 0", n)
	}
}

func TestQueryThreePages(t *testing.T) {
	runner := newStubRunner(
		stubReply{payload: `{"items":[1,2],"last":false,"queryId":"q-1"}`},
		stubReply{payload: `{"items":[3,4],"last":false,"queryId":"q-1"}`},
		stubReply{payload: `{"items":[5],"last":true}`},
	)
	rec := &recorder{}
	q := query.NewSqlQuery("Person", "age > ?", 30).WithPageSize(2).WithHandler(rec)

	if err := NewCache("people", runner).Query(context.Background(), q); err != nil {
		t.Fatalf("Query() error = %v", err)
	}

	if !reflect.DeepEqual(rec.pages, [][]string{{"1", "2"}, {"3", "4"}, {"5"}}) {
		t.Errorf("pages = %v", rec.pages)
	}
	if len(rec.ends) != 1 || rec.ends[0] != nil {
		t.Errorf("ends = %v, want [<nil>]", rec.ends)
	}

	wantNames := []string{common.CmdQueryExecute, common.CmdQueryFetch, common.CmdQueryFetch}
	if !reflect.DeepEqual(runner.sent(), wantNames) {
		t.Fatalf("sent commands = %v, want %v", runner.sent(), wantNames)
	}

	wantExec := []common.Param{
		{Name: common.ParamCacheName, Value: "people"},
		{Name: common.ParamQuery, Value: "age > ?"},
		{Name: common.ParamPageSize, Value: "2"},
		{Name: common.ParamReturnType, Value: "Person"},
	}
	if !reflect.DeepEqual(runner.commands[0].Params, wantExec) {
		t.Errorf("execute params = %v, want %v", runner.commands[0].Params, wantExec)
	}
	if string(runner.commands[0].Body) != `{"args":[30]}` {
		t.Errorf("execute body = %s", runner.commands[0].Body)
	}

	wantFetch := []common.Param{
		{Name: common.ParamCacheName, Value: "people"},
		{Name: common.ParamQueryID, Value: "q-1"},
		{Name: common.ParamPageSize, Value: "2"},
	}
	for _, cmd := range runner.commands[1:] {
		if !reflect.DeepEqual(cmd.Params, wantFetch) {
			t.Errorf("fetch params = %v, want %v", cmd.Params, wantFetch)
		}
	}
}

func TestQueryIdIsEchoedVerbatim(t *testing.T) {
	runner := newStubRunner(
		stubReply{payload: `{"items":[],"last":false,"queryId":12345678901234567890}`},
		stubReply{payload: `{"items":[],"last":true}`},
	)

	q := query.NewSqlFieldsQuery("select 1")
	if err := NewCache("test", runner).Query(context.Background(), q); err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if id, _ := runner.commands[1].Param(common.ParamQueryID); id != "12345678901234567890" {
		t.Errorf("fetch qryId = %q", id)
	}
}

func TestQueryFieldsExecuteParams(t *testing.T) {
	runner := newStubRunner(stubReply{payload: `{"items":[],"last":true}`})

	q := query.NewSqlFieldsQuery("select name from Person")
	if err := NewCache("test", runner).Query(context.Background(), q); err != nil {
		t.Fatalf("Query() error = %v", err)
	}

	cmd := runner.commands[0]
	if cmd.Name != common.CmdQueryFieldsExec {
		t.Errorf("command = %s, want %s", cmd.Name, common.CmdQueryFieldsExec)
	}
	if _, ok := cmd.Param(common.ParamReturnType); ok {
		t.Error("SqlFields query carries a return type")
	}
	if psz, _ := cmd.Param(common.ParamPageSize); psz != "1024" {
		t.Errorf("psz = %s, want the default page size", psz)
	}
	if string(cmd.Body) != `{"args":[]}` {
		t.Errorf("body = %s, want {\"args\":[]}", cmd.Body)
	}
}

func TestQueryMissingReturnType(t *testing.T) {
	runner := newStubRunner()
	rec := &recorder{}
	q := query.NewSqlQuery("", "age > ?", 30).WithHandler(rec)

	err := NewCache("test", runner).Query(context.Background(), q)

	// the terminal signal must already be delivered when Query returns
	if len(rec.ends) != 1 || !errors.Is(rec.ends[0], query.ErrMissingReturnType) {
		t.Fatalf("ends = %v, want [%v]", rec.ends, query.ErrMissingReturnType)
	}
	if !errors.Is(err, query.ErrMissingReturnType) {
		t.Errorf("Query() error = %v", err)
	}
	if len(runner.sent()) != 0 {
		t.Errorf("transport was invoked: %v", runner.sent())
	}
	if len(rec.pages) != 0 {
		t.Errorf("pages delivered: %v", rec.pages)
	}
}

func TestQueryErrorOnSecondFetch(t *testing.T) {
	failure := errors.New("server gone")
	runner := newStubRunner(
		stubReply{payload: `{"items":[1],"last":false,"queryId":"q"}`},
		stubReply{payload: `{"items":[2],"last":false,"queryId":"q"}`},
		stubReply{err: failure},
		stubReply{payload: `{"items":[3],"last":true}`},
	)
	rec := &recorder{}
	q := query.NewSqlFieldsQuery("select 1").WithPageSize(1).WithHandler(rec)

	err := NewCache("test", runner).Query(context.Background(), q)
	if err != failure {
		t.Errorf("Query() error = %v, want %v", err, failure)
	}

	if !reflect.DeepEqual(rec.pages, [][]string{{"1"}, {"2"}}) {
		t.Errorf("pages = %v, want two pages", rec.pages)
	}
	if len(rec.ends) != 1 || rec.ends[0] != failure {
		t.Errorf("ends = %v, want [%v]", rec.ends, failure)
	}
	if n := runner.count(common.CmdQueryFetch); n != 2 {
		t.Errorf("%d fetch commands issued, want 2", n)
	}
}

func TestQueryProtocolErrors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"Missing last flag", `{"items":[1]}`},
		{"Missing query id", `{"items":[1],"last":false}`},
		{"Not an object", `[1,2,3]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := newStubRunner(stubReply{payload: tt.payload})
			rec := &recorder{}
			q := query.NewSqlFieldsQuery("select 1").WithHandler(rec)

			err := NewCache("test", runner).Query(context.Background(), q)
			if !errors.Is(err, common.ErrProtocol) {
				t.Errorf("Query() error = %v, want %v", err, common.ErrProtocol)
			}
			if len(rec.pages) != 0 || len(rec.ends) != 1 {
				t.Errorf("pages = %v, ends = %v", rec.pages, rec.ends)
			}
		})
	}
}

func TestQueryContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := newStubRunner(
		stubReply{payload: `{"items":[1],"last":false,"queryId":"q"}`},
	)

	q := query.NewSqlFieldsQuery("select 1").WithHandler(query.Handler{
		Page: func(rows []json.RawMessage) { cancel() },
	})

	err := NewCache("test", runner).Query(ctx, q)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Query() error = %v, want %v", err, context.Canceled)
	}
	if n := runner.count(common.CmdQueryFetch); n != 0 {
		t.Errorf("%d fetch commands issued after cancel, want 0", n)
	}
}

func TestQueryAllWithPageStream(t *testing.T) {
	runner := newStubRunner(
		stubReply{payload: `{"items":["a"],"last":false,"queryId":"q"}`},
		stubReply{payload: `{"items":["b","c"],"last":true}`},
	)
	c := NewCache("test", runner)

	stream := query.NewPageStream(0)
	go func() {
		_ = c.Query(context.Background(), query.NewSqlFieldsQuery("select 1").WithHandler(stream))
	}()

	var rows []string
	for page := range stream.Pages() {
		for _, r := range page {
			rows = append(rows, string(r))
		}
	}
	if err := stream.Err(); err != nil {
		t.Fatalf("stream error = %v", err)
	}
	if !reflect.DeepEqual(rows, []string{`"a"`, `"b"`, `"c"`}) {
		t.Errorf("rows = %v", rows)
	}

	runner = newStubRunner(stubReply{payload: `{"items":[],"last":true}`})
	all, err := QueryAll(context.Background(), NewCache("test", runner), query.NewSqlFieldsQuery("select 1"))
	if err != nil || all == nil || len(all) != 0 {
		t.Errorf("QueryAll() = %v, %v, want empty result", all, err)
	}
}

func TestQueryAbandonedPageStream(t *testing.T) {
	runner := newStubRunner(
		stubReply{payload: `{"items":["a"],"last":false,"queryId":"q"}`},
		stubReply{payload: `{"items":["b"],"last":false,"queryId":"q"}`},
		stubReply{payload: `{"items":["c"],"last":true}`},
	)
	c := NewCache("test", runner)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := query.NewPageStream(0)
	finished := make(chan error, 1)
	go func() {
		finished <- c.Query(ctx, query.NewSqlFieldsQuery("select 1").WithHandler(stream))
	}()

	// read one page, then walk away
	<-stream.Pages()
	stream.Close()
	cancel()

	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("query still blocked in the handler after the stream was closed")
	}

	select {
	case <-stream.Done():
	default:
		t.Error("stream did not receive the terminal signal")
	}
}

func TestQueryDescriptorRunTwice(t *testing.T) {
	runner := newStubRunner(stubReply{payload: `{"items":[1],"last":true}`})
	c := NewCache("test", runner)

	ends := 0
	q := query.NewSqlFieldsQuery("select 1").WithHandler(query.Handler{
		End: func(error) { ends++ },
	})

	if err := c.Query(context.Background(), q); err != nil {
		t.Fatalf("first Query() error = %v", err)
	}
	if err := c.Query(context.Background(), q); !errors.Is(err, query.ErrQueryEnded) {
		t.Fatalf("second Query() error = %v, want %v", err, query.ErrQueryEnded)
	}

	if ends != 1 {
		t.Errorf("End called %d times, want 1", ends)
	}
	if n := len(runner.sent()); n != 1 {
		t.Errorf("%d commands dispatched, want 1", n)
	}
}
