package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// unreachable points at a closed port so every command fails fast.
func unreachable(t *testing.T) *Client {
	t.Helper()
	c := NewClient(redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	}))
	t.Cleanup(func() { c.Close() })
	return c
}

func TestClientSurfacesConnectionErrors(t *testing.T) {
	c := unreachable(t)
	ctx := context.Background()

	if err := c.Health(); err == nil {
		t.Fatal("Health succeeded against closed port")
	}

	var dest map[string]string
	found, err := c.GetJSON(ctx, "k", &dest)
	if err == nil || found {
		t.Fatalf("GetJSON = %v, %v; want error", found, err)
	}
	if err := c.SetJSON(ctx, "k", map[string]string{"a": "b"}, time.Minute); err == nil {
		t.Fatal("SetJSON succeeded against closed port")
	}
	if _, err := c.IncrWindow(ctx, "k", time.Minute); err == nil {
		t.Fatal("IncrWindow succeeded against closed port")
	}
}

func TestSetJSONRejectsUnencodableValues(t *testing.T) {
	c := unreachable(t)

	if err := c.SetJSON(context.Background(), "k", make(chan int), time.Minute); err == nil {
		t.Fatal("expected encode error")
	}
}
