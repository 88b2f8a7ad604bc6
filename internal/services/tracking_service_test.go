package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"shuttle-backend/internal/models"
	"shuttle-backend/internal/presence"
)

type emittedEvent struct {
	ConnectionID string
	Namespace    string
	Room         string
	Event        string
	Payload      interface{}
}

// fakeEmitter records emits instead of publishing them
type fakeEmitter struct {
	toConn []emittedEvent
	toRoom []emittedEvent
}

func (f *fakeEmitter) EmitToConn(ctx context.Context, connectionID, event string, payload interface{}) {
	f.toConn = append(f.toConn, emittedEvent{ConnectionID: connectionID, Event: event, Payload: payload})
}

func (f *fakeEmitter) EmitToRoom(ctx context.Context, namespace, room, event string, payload interface{}) {
	f.toRoom = append(f.toRoom, emittedEvent{Namespace: namespace, Room: room, Event: event, Payload: payload})
}

func setupTracking(t *testing.T) (*TrackingService, *LocationService, *presence.Registry, *fakeEmitter) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	locations := NewLocationService(client)
	registry := presence.NewRegistry(client, time.Hour)
	emitter := &fakeEmitter{}
	svc := NewTrackingService(locations, registry, emitter)
	return svc, locations, registry, emitter
}

func TestDriverLocationFanOut(t *testing.T) {
	svc, locations, registry, emitter := setupTracking(t)
	ctx := context.Background()

	// driver 9 is on shift with vehicle 5; customers 100 and 200 both
	// track it, but only customer 100 has a live tracking socket
	if err := locations.SetDriverVehicle(ctx, 9, 5); err != nil {
		t.Fatalf("check-in: %v", err)
	}
	locations.Subscribe(ctx, 5, 100)
	locations.Subscribe(ctx, 5, 200)
	registry.SetUserSocket(ctx, NamespaceTracking, 100, "conn-100")

	svc.HandleDriverLocation(ctx, 9, models.LocationUpdate{Latitude: 43.2, Longitude: 76.9})

	if len(emitter.toConn) != 1 {
		t.Fatalf("emitted %d events, want 1 (offline subscriber skipped)", len(emitter.toConn))
	}
	got := emitter.toConn[0]
	if got.ConnectionID != "conn-100" {
		t.Errorf("delivered to %q, want conn-100", got.ConnectionID)
	}
	if got.Event != UpdateLocationEvent(5) {
		t.Errorf("event = %q, want %q", got.Event, UpdateLocationEvent(5))
	}
	location, ok := got.Payload.(models.VehicleLocation)
	if !ok {
		t.Fatalf("payload type %T", got.Payload)
	}
	if location.Latitude != 43.2 || location.Longitude != 76.9 {
		t.Errorf("payload = %+v", location)
	}

	// last known position persisted for snapshot requests
	stored, ok := locations.GetVehicleLocation(ctx, 5)
	if !ok || stored.Latitude != 43.2 {
		t.Errorf("stored location = %+v, %v", stored, ok)
	}
}

func TestDriverLocationOffShiftIsDropped(t *testing.T) {
	svc, locations, _, emitter := setupTracking(t)
	ctx := context.Background()

	locations.Subscribe(ctx, 5, 100)
	svc.HandleDriverLocation(ctx, 9, models.LocationUpdate{Latitude: 1, Longitude: 2})

	if len(emitter.toConn) != 0 {
		t.Errorf("emitted %d events for an off-shift driver, want 0", len(emitter.toConn))
	}
	if _, ok := locations.GetVehicleLocation(ctx, 5); ok {
		t.Error("location stored for an off-shift driver")
	}
}

func TestDriverLocationNoSubscribers(t *testing.T) {
	svc, locations, _, emitter := setupTracking(t)
	ctx := context.Background()

	if err := locations.SetDriverVehicle(ctx, 9, 5); err != nil {
		t.Fatalf("check-in: %v", err)
	}
	svc.HandleDriverLocation(ctx, 9, models.LocationUpdate{Latitude: 1, Longitude: 2})

	if len(emitter.toConn) != 0 {
		t.Errorf("emitted %d events without subscribers", len(emitter.toConn))
	}
	// position is still persisted for later snapshot requests
	if _, ok := locations.GetVehicleLocation(ctx, 5); !ok {
		t.Error("location not stored when nobody subscribes")
	}
}
