package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newTestRedis(t *testing.T) *Redis {
	t.Helper()
	srv := miniredis.RunT(t)
	s, err := NewRedis(context.Background(), srv.Addr(), time.Minute)
	if err != nil {
		t.Fatalf("NewRedis: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRedis_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestRedis(t)

	if _, ok, err := s.Get(ctx, "name=t2m,t=1"); err != nil || ok {
		t.Fatalf("empty store Get = ok=%v err=%v, want miss", ok, err)
	}
	if err := s.Set(ctx, "name=t2m,t=1", []byte("block")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok, err := s.Get(ctx, "name=t2m,t=1")
	if err != nil || !ok || string(v) != "block" {
		t.Fatalf("Get = %q ok=%v err=%v, want block", v, ok, err)
	}
	if err := s.Del(ctx, "name=t2m,t=1"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "name=t2m,t=1"); ok {
		t.Fatal("key survived Del")
	}
}

func TestRedis_KeysArePrefixed(t *testing.T) {
	ctx := context.Background()
	srv := miniredis.RunT(t)
	s, err := NewRedis(ctx, srv.Addr(), time.Minute)
	if err != nil {
		t.Fatalf("NewRedis: %v", err)
	}
	defer s.Close()

	if err := s.Set(ctx, "name=t2m,t=1", []byte("x")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !srv.Exists("grid:name=t2m,t=1") {
		t.Fatalf("expected prefixed key in redis, have %v", srv.Keys())
	}
}

func TestRedis_RequiresAddr(t *testing.T) {
	if _, err := NewRedis(context.Background(), "", time.Minute); err == nil {
		t.Fatal("expected error for empty address")
	}
}
