package lcache

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/ValentinKolb/dCache/lib/cache"
	"github.com/ValentinKolb/dCache/lib/query"
)

func TestPointOperations(t *testing.T) {
	ctx := context.Background()
	c := NewLocalCache("test")

	if err := c.Put(ctx, "a", "1"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if val, ok, _ := c.Get(ctx, "a"); !ok || val != "1" {
		t.Errorf("Get() = %q, %v, want 1, true", val, ok)
	}

	if stored, _ := c.PutIfAbsent(ctx, "a", "2"); stored {
		t.Error("PutIfAbsent() stored over an existing key")
	}
	if stored, _ := c.PutIfAbsent(ctx, "b", "2"); !stored {
		t.Error("PutIfAbsent() did not store a new key")
	}

	if old, ok, _ := c.GetAndPut(ctx, "a", "3"); !ok || old != "1" {
		t.Errorf("GetAndPut() = %q, %v, want 1, true", old, ok)
	}
	if old, ok, _ := c.GetAndPutIfAbsent(ctx, "a", "4"); !ok || old != "3" {
		t.Errorf("GetAndPutIfAbsent() = %q, %v, want 3, true", old, ok)
	}
	if _, ok, _ := c.GetAndPutIfAbsent(ctx, "c", "5"); ok {
		t.Error("GetAndPutIfAbsent() reported a value for a new key")
	}

	if ok, _ := c.ContainsKeys(ctx, "a", "b", "c"); !ok {
		t.Error("ContainsKeys() = false, want true")
	}
	if ok, _ := c.ContainsKeys(ctx, "a", "x"); ok {
		t.Error("ContainsKeys() = true for a missing key")
	}

	if val, ok, _ := c.GetAndRemove(ctx, "c"); !ok || val != "5" {
		t.Errorf("GetAndRemove() = %q, %v, want 5, true", val, ok)
	}
	if removed, _ := c.Remove(ctx, "c"); removed {
		t.Error("Remove() removed a missing key")
	}
	if ok, _ := c.ContainsKey(ctx, "c"); ok {
		t.Error("ContainsKey() = true after remove")
	}
}

func TestBatchOperations(t *testing.T) {
	ctx := context.Background()
	c := NewLocalCache("test")

	entries := []cache.Entry{{Key: "k1", Value: "v1"}, {Key: "k2", Value: "v2"}}
	if err := c.PutAll(ctx, entries...); err != nil {
		t.Fatalf("PutAll() error = %v", err)
	}

	got, err := c.GetAll(ctx, "k1", "missing", "k2")
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if !reflect.DeepEqual(got, entries) {
		t.Errorf("GetAll() = %v, want %v", got, entries)
	}

	if err := c.RemoveAll(ctx, "k1", "k2"); err != nil {
		t.Fatalf("RemoveAll() error = %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d after RemoveAll, want 0", c.Len())
	}
}

func TestSelect(t *testing.T) {
	c := NewLocalCache("test")
	_ = c.PutAll(context.Background(),
		cache.Entry{Key: "user:2", Value: "bob"},
		cache.Entry{Key: "user:1", Value: "alice"},
		cache.Entry{Key: "group:1", Value: "admins"},
	)

	tests := []struct {
		name string
		kind query.Kind
		args []any
		want []string
	}{
		{"SqlFields with prefix", query.KindSqlFields, []any{"user:"}, []string{`["user:1","alice"]`, `["user:2","bob"]`}},
		{"Sql with prefix", query.KindSql, []any{"group:"}, []string{`{"key":"group:1","value":"admins"}`}},
		{"No arguments", query.KindSqlFields, nil, []string{`["group:1","admins"]`, `["user:1","alice"]`, `["user:2","bob"]`}},
		{"No match", query.KindSql, []any{"none:"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := c.Select(tt.kind, tt.args)
			if err != nil {
				t.Fatalf("Select() error = %v", err)
			}
			got := make([]string, 0, len(rows))
			for _, r := range rows {
				got = append(got, string(r))
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Select() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPaginate(t *testing.T) {
	rows := []json.RawMessage{json.RawMessage(`1`), json.RawMessage(`2`), json.RawMessage(`3`)}

	tests := []struct {
		name     string
		rows     []json.RawMessage
		pageSize int
		want     []int
	}{
		{"Exact pages", rows[:2], 1, []int{1, 1}},
		{"Partial last page", rows, 2, []int{2, 1}},
		{"Single page", rows, 10, []int{3}},
		{"Empty result", nil, 2, []int{0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pages := Paginate(tt.rows, tt.pageSize)
			got := make([]int, 0, len(pages))
			for _, p := range pages {
				got = append(got, len(p))
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Paginate() page sizes = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQuery(t *testing.T) {
	c := NewLocalCache("test")
	for _, k := range []string{"a", "b", "c", "d", "e"} {
		_ = c.Put(context.Background(), k, k)
	}

	collector := &query.Collector{}
	q := query.NewSqlFieldsQuery("scan").WithPageSize(2).WithHandler(collector)
	if err := c.Query(context.Background(), q); err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if collector.Pages != 3 || len(collector.Rows) != 5 || !collector.Ended || collector.Err != nil {
		t.Errorf("collector = %+v", collector)
	}

	invalid := &query.Collector{}
	err := c.Query(context.Background(), query.NewSqlQuery("", "scan").WithHandler(invalid))
	if !errors.Is(err, query.ErrMissingReturnType) || !errors.Is(invalid.Err, query.ErrMissingReturnType) {
		t.Errorf("Query() error = %v, want %v", err, query.ErrMissingReturnType)
	}
}
