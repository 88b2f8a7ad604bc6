package services

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"shuttle-backend/internal/models"
)

func setupLocationService(t *testing.T) (*LocationService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewLocationService(client), mr
}

func TestVehicleLocationRoundTrip(t *testing.T) {
	svc, _ := setupLocationService(t)
	ctx := context.Background()

	svc.SetVehicleLocation(ctx, 5, models.VehicleLocation{Latitude: 43.238, Longitude: 76.889, Speed: 40})

	got, ok := svc.GetVehicleLocation(ctx, 5)
	if !ok {
		t.Fatal("location not found after set")
	}
	if got.Latitude != 43.238 || got.Longitude != 76.889 || got.Speed != 40 {
		t.Errorf("location = %+v", got)
	}

	if _, ok := svc.GetVehicleLocation(ctx, 6); ok {
		t.Error("found location for an unknown vehicle")
	}
}

func TestVehicleLocationExpires(t *testing.T) {
	svc, mr := setupLocationService(t)
	ctx := context.Background()

	svc.SetVehicleLocation(ctx, 5, models.VehicleLocation{Latitude: 1, Longitude: 2})
	mr.FastForward(svc.locationTTL + 1)

	if _, ok := svc.GetVehicleLocation(ctx, 5); ok {
		t.Error("location survived past its TTL")
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	svc, _ := setupLocationService(t)
	ctx := context.Background()

	svc.Subscribe(ctx, 5, 100)
	svc.Subscribe(ctx, 5, 200)
	svc.Subscribe(ctx, 5, 200) // duplicate subscribe is a no-op

	subs := svc.Subscribers(ctx, 5)
	if len(subs) != 2 {
		t.Fatalf("subscribers = %v, want 2 entries", subs)
	}

	svc.Unsubscribe(ctx, 5, 100)
	subs = svc.Subscribers(ctx, 5)
	if len(subs) != 1 || subs[0] != 200 {
		t.Errorf("subscribers after unsubscribe = %v, want [200]", subs)
	}
}

func TestDriverVehicleShift(t *testing.T) {
	svc, mr := setupLocationService(t)
	ctx := context.Background()

	if _, ok := svc.DriverVehicle(ctx, 9); ok {
		t.Error("driver on shift before check-in")
	}

	if err := svc.SetDriverVehicle(ctx, 9, 5); err != nil {
		t.Fatalf("check-in: %v", err)
	}
	vehicleID, ok := svc.DriverVehicle(ctx, 9)
	if !ok || vehicleID != 5 {
		t.Errorf("DriverVehicle = %d, %v, want 5, true", vehicleID, ok)
	}

	if err := svc.ClearDriverVehicle(ctx, 9); err != nil {
		t.Fatalf("check-out: %v", err)
	}
	if _, ok := svc.DriverVehicle(ctx, 9); ok {
		t.Error("driver still on shift after check-out")
	}

	// shift binding expires on its own if the driver never checks out
	if err := svc.SetDriverVehicle(ctx, 9, 5); err != nil {
		t.Fatalf("check-in: %v", err)
	}
	mr.FastForward(svc.shiftTTL + 1)
	if _, ok := svc.DriverVehicle(ctx, 9); ok {
		t.Error("shift binding survived past its TTL")
	}
}
