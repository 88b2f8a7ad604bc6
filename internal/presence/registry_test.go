package presence

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func setupRegistry(t *testing.T) *Registry {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRegistry(client, time.Hour)
}

func TestSetAndGetUserSocket(t *testing.T) {
	r := setupRegistry(t)
	ctx := context.Background()

	r.SetUserSocket(ctx, "tracking", 7, "conn-1")

	if got := r.GetUserSocket(ctx, "tracking", 7); got != "conn-1" {
		t.Errorf("GetUserSocket = %q, want conn-1", got)
	}
	// namespaces are isolated
	if got := r.GetUserSocket(ctx, "notifications", 7); got != "" {
		t.Errorf("GetUserSocket in other namespace = %q, want empty", got)
	}
}

func TestLastWriteWins(t *testing.T) {
	r := setupRegistry(t)
	ctx := context.Background()

	r.SetUserSocket(ctx, "tracking", 7, "conn-old")
	r.SetUserSocket(ctx, "tracking", 7, "conn-new")

	if got := r.GetUserSocket(ctx, "tracking", 7); got != "conn-new" {
		t.Errorf("GetUserSocket = %q, want conn-new", got)
	}
}

func TestMultiDeviceSocketIDs(t *testing.T) {
	r := setupRegistry(t)
	ctx := context.Background()

	r.SetUserSocket(ctx, "notifications", 7, "phone")
	r.SetUserSocket(ctx, "notifications", 7, "tablet")

	ids := r.GetSocketIDs(ctx, "notifications", 7)
	sort.Strings(ids)
	if len(ids) != 2 || ids[0] != "phone" || ids[1] != "tablet" {
		t.Errorf("GetSocketIDs = %v, want [phone tablet]", ids)
	}
}

// TestStaleDeleteDoesNotClobberNewConnection covers the reconnect race:
// the new connection registers before the old connection's disconnect
// cleanup runs. The cleanup must not remove the new mapping.
func TestStaleDeleteDoesNotClobberNewConnection(t *testing.T) {
	r := setupRegistry(t)
	ctx := context.Background()

	r.SetUserSocket(ctx, "tracking", 7, "conn-old")
	r.SetUserSocket(ctx, "tracking", 7, "conn-new")

	// delayed cleanup of the replaced connection
	r.DeleteUserSocket(ctx, "tracking", "conn-old")

	if got := r.GetUserSocket(ctx, "tracking", 7); got != "conn-new" {
		t.Errorf("GetUserSocket after stale delete = %q, want conn-new", got)
	}

	ids := r.GetSocketIDs(ctx, "tracking", 7)
	if len(ids) != 1 || ids[0] != "conn-new" {
		t.Errorf("GetSocketIDs after stale delete = %v, want [conn-new]", ids)
	}
}

func TestDeleteCurrentConnection(t *testing.T) {
	r := setupRegistry(t)
	ctx := context.Background()

	r.SetUserSocket(ctx, "tracking", 7, "conn-1")
	r.DeleteUserSocket(ctx, "tracking", "conn-1")

	if got := r.GetUserSocket(ctx, "tracking", 7); got != "" {
		t.Errorf("GetUserSocket after delete = %q, want empty", got)
	}
	if ids := r.GetSocketIDs(ctx, "tracking", 7); len(ids) != 0 {
		t.Errorf("GetSocketIDs after delete = %v, want empty", ids)
	}
}

func TestDeleteUnknownConnectionIsNoop(t *testing.T) {
	r := setupRegistry(t)
	ctx := context.Background()

	r.SetUserSocket(ctx, "tracking", 7, "conn-1")
	r.DeleteUserSocket(ctx, "tracking", "never-registered")

	if got := r.GetUserSocket(ctx, "tracking", 7); got != "conn-1" {
		t.Errorf("GetUserSocket = %q, want conn-1", got)
	}
}
