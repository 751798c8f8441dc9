package client

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/ValentinKolb/dCache/lib/cache"
	"github.com/ValentinKolb/dCache/rpc/common"
)

func TestPutThenGet(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"key", "value"},
		{"empty", ""},
		{"unicode-ключ", "значение"},
		{"json", `{"nested":[1,2,3]}`},
	}

	ctx := context.Background()
	c := NewCache("test", newStubRunner())

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if err := c.Put(ctx, tt.key, tt.value); err != nil {
				t.Fatalf("Put() error = %v", err)
			}
			got, ok, err := c.Get(ctx, tt.key)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if !ok || got != tt.value {
				t.Errorf("Get() = %q, %v, want %q, true", got, ok, tt.value)
			}
		})
	}

	if _, ok, _ := c.Get(ctx, "missing"); ok {
		t.Error("Get() reported a value for a missing key")
	}
}

func TestGetAll(t *testing.T) {
	for _, n := range []int{0, 1, 7, 100} {
		t.Run(fmt.Sprintf("N=%d", n), func(t *testing.T) {
			ctx := context.Background()
			c := NewCache("test", newStubRunner())

			want := make([]cache.Entry, 0, n)
			keys := make([]string, 0, n)
			for i := 0; i < n; i++ {
				e := cache.Entry{Key: fmt.Sprintf("k%d", i), Value: fmt.Sprintf("v%d", i)}
				want = append(want, e)
				keys = append(keys, e.Key)
			}
			if err := c.PutAll(ctx, want...); err != nil {
				t.Fatalf("PutAll() error = %v", err)
			}

			got, err := c.GetAll(ctx, keys...)
			if err != nil {
				t.Fatalf("GetAll() error = %v", err)
			}
			if len(got) != n {
				t.Fatalf("GetAll() returned %d entries, want %d", len(got), n)
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("GetAll() = %v, want %v", got, want)
			}
		})
	}
}

func TestCacheNameIsFirstParam(t *testing.T) {
	ctx := context.Background()
	runner := newStubRunner(
		stubReply{payload: `true`},
		stubReply{payload: `true`},
		stubReply{payload: `null`},
		stubReply{payload: `true`},
		stubReply{payload: `true`},
		stubReply{payload: `false`},
		stubReply{payload: `"old"`},
		stubReply{payload: `"old"`},
	)
	c := NewCache("users", runner)

	_, _ = c.PutIfAbsent(ctx, "k", "v")
	_, _ = c.Remove(ctx, "k")
	_, _, _ = c.GetAndRemove(ctx, "k")
	_ = c.RemoveAll(ctx, "a", "b")
	_, _ = c.ContainsKey(ctx, "k")
	_, _ = c.ContainsKeys(ctx)
	_, _, _ = c.GetAndPut(ctx, "k", "v")
	_, _, _ = c.GetAndPutIfAbsent(ctx, "k", "v")

	wantNames := []string{
		common.CmdPutIfAbsent, common.CmdRemove, common.CmdGetAndRemove, common.CmdRemoveAll,
		common.CmdContainsKey, common.CmdContainsKeys, common.CmdGetAndPut, common.CmdGetAndPutIfAbsent,
	}
	if !reflect.DeepEqual(runner.sent(), wantNames) {
		t.Fatalf("sent commands = %v, want %v", runner.sent(), wantNames)
	}

	for _, cmd := range runner.commands {
		if len(cmd.Params) == 0 || cmd.Params[0] != (common.Param{Name: common.ParamCacheName, Value: "users"}) {
			t.Errorf("%s: first param = %v, want cacheName=users", cmd.Name, cmd.Params)
		}
	}

	if string(runner.commands[5].Body) != `{"keys":[]}` {
		t.Errorf("containskeys body = %s, want {\"keys\":[]}", runner.commands[5].Body)
	}
}

func TestResultShapes(t *testing.T) {
	ctx := context.Background()

	t.Run("PutIfAbsent", func(t *testing.T) {
		c := NewCache("test", newStubRunner(stubReply{payload: `false`}))
		stored, err := c.PutIfAbsent(ctx, "k", "v")
		if err != nil || stored {
			t.Errorf("PutIfAbsent() = %v, %v, want false, nil", stored, err)
		}
	})

	t.Run("GetAndPut with previous value", func(t *testing.T) {
		c := NewCache("test", newStubRunner(stubReply{payload: `"old"`}))
		old, ok, err := c.GetAndPut(ctx, "k", "v")
		if err != nil || !ok || old != "old" {
			t.Errorf("GetAndPut() = %q, %v, %v", old, ok, err)
		}
	})

	t.Run("GetAndRemove without value", func(t *testing.T) {
		c := NewCache("test", newStubRunner(stubReply{payload: `null`}))
		old, ok, err := c.GetAndRemove(ctx, "k")
		if err != nil || ok || old != "" {
			t.Errorf("GetAndRemove() = %q, %v, %v", old, ok, err)
		}
	})

	t.Run("Empty result", func(t *testing.T) {
		c := NewCache("test", newStubRunner(stubReply{payload: ``}, stubReply{payload: ``}, stubReply{payload: ``}))
		if _, err := c.ContainsKey(ctx, "k"); !errors.Is(err, common.ErrProtocol) {
			t.Errorf("ContainsKey() error = %v, want %v", err, common.ErrProtocol)
		}
		if _, _, err := c.GetAndRemove(ctx, "k"); !errors.Is(err, common.ErrProtocol) {
			t.Errorf("GetAndRemove() error = %v, want %v", err, common.ErrProtocol)
		}
		if err := c.RemoveAll(ctx, "k"); err != nil {
			t.Errorf("RemoveAll() error = %v, want nil", err)
		}
	})

	t.Run("Malformed result", func(t *testing.T) {
		c := NewCache("test", newStubRunner(stubReply{payload: `"yes"`}))
		if _, err := c.ContainsKey(ctx, "k"); !errors.Is(err, common.ErrProtocol) {
			t.Errorf("ContainsKey() error = %v, want %v", err, common.ErrProtocol)
		}
	})
}

func TestTransportErrorIsForwarded(t *testing.T) {
	failure := errors.New("connection refused")
	c := NewCache("test", newStubRunner(stubReply{err: failure}))

	_, err := c.ContainsKeys(context.Background(), "a")
	if err != failure {
		t.Errorf("ContainsKeys() error = %v, want the transport error unchanged", err)
	}
}
