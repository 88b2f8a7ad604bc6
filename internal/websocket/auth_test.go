package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"shuttle-backend/internal/models"
	"shuttle-backend/internal/utils"
)

func setupGate(t *testing.T) (*Gate, *redis.Client) {
	t.Helper()
	t.Setenv("JWT_SECRET", "gate-test-secret")
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewGate(client), client
}

func storeSession(t *testing.T, client *redis.Client, clientID string, session Session) {
	t.Helper()
	data, err := json.Marshal(session)
	if err != nil {
		t.Fatalf("marshal session: %v", err)
	}
	if err := client.Set(context.Background(), SessionKey(clientID), data, time.Hour).Err(); err != nil {
		t.Fatalf("store session: %v", err)
	}
}

func TestAuthorizeHappyPath(t *testing.T) {
	gate, client := setupGate(t)
	ctx := context.Background()

	token, err := utils.GenerateJWT(42, models.RoleDriver)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	storeSession(t, client, "client-1", Session{UserID: 42, Role: models.RoleDriver, Active: true})

	identity, err := gate.Authorize(ctx, "tracking", token, "client-1")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if identity.UserID != 42 || identity.Kind != IdentityDriver {
		t.Errorf("identity = %+v", identity)
	}
	if identity.Room() != "driver_42" {
		t.Errorf("room = %q, want driver_42", identity.Room())
	}
}

func TestAuthorizeRejections(t *testing.T) {
	gate, client := setupGate(t)
	ctx := context.Background()

	token, err := utils.GenerateJWT(42, models.RoleCustomer)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	otherToken, err := utils.GenerateJWT(43, models.RoleCustomer)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	storeSession(t, client, "active", Session{UserID: 42, Role: models.RoleCustomer, Active: true})
	storeSession(t, client, "inactive", Session{UserID: 42, Role: models.RoleCustomer, Active: false})

	cases := []struct {
		name     string
		token    string
		clientID string
	}{
		{"missing token", "", "active"},
		{"missing client id", token, ""},
		{"garbage token", "not-a-jwt", "active"},
		{"unknown session", token, "never-created"},
		{"inactive session", token, "inactive"},
		{"session of another user", otherToken, "active"},
	}
	for _, tc := range cases {
		if _, err := gate.Authorize(ctx, "tracking", tc.token, tc.clientID); !errors.Is(err, ErrUnauthorized) {
			t.Errorf("%s: err = %v, want ErrUnauthorized", tc.name, err)
		}
	}
}

func TestIdentityRoomByKind(t *testing.T) {
	cases := []struct {
		identity Identity
		want     string
	}{
		{Identity{Kind: IdentityCustomer, UserID: 7}, "customer_7"},
		{Identity{Kind: IdentityDriver, UserID: 7}, "driver_7"},
		{Identity{Kind: IdentityAdmin, UserID: 0}, "customer_0"},
	}
	for _, tc := range cases {
		if got := tc.identity.Room(); got != tc.want {
			t.Errorf("Room(%+v) = %q, want %q", tc.identity, got, tc.want)
		}
	}
}
