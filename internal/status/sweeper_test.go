package status

import (
	"context"
	"errors"
	"testing"
	"time"

	"shuttle-backend/internal/models"
)

// fakeExpirySource keeps bookings in memory and mirrors the conditional
// delete of the gorm source: a row whose expire_at was cleared between
// selection and deletion survives the sweep
type fakeExpirySource struct {
	bookings map[uint]*models.Booking
	// onLoad runs after Load, before the conditional delete; used to
	// simulate a payment confirmation racing the sweep
	onLoad func(id uint)
}

func (f *fakeExpirySource) ListExpired(ctx context.Context, prototype models.TrackedEntity, now time.Time) ([]uint, error) {
	var ids []uint
	for id, b := range f.bookings {
		if b.ExpireAt != nil && !b.ExpireAt.After(now) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeExpirySource) Load(ctx context.Context, entity models.TrackedEntity, id uint) error {
	b, ok := f.bookings[id]
	if !ok {
		return errors.New("record not found")
	}
	*(entity.(*models.Booking)) = *b
	if f.onLoad != nil {
		f.onLoad(id)
	}
	return nil
}

func (f *fakeExpirySource) DeleteExpired(ctx context.Context, prototype models.TrackedEntity, id uint, now time.Time) (bool, error) {
	b, ok := f.bookings[id]
	if !ok || b.ExpireAt == nil || b.ExpireAt.After(now) {
		return false, nil
	}
	delete(f.bookings, id)
	return true, nil
}

func pendingBooking(id uint, expireAt *time.Time) *models.Booking {
	b := &models.Booking{ID: id, TripID: 1, CustomerID: 100, SeatsCount: 2}
	b.Status = models.BookingStatusPending
	b.ExpireAt = expireAt
	return b
}

func bookingTarget(released *[]uint) ExpiryTarget {
	return ExpiryTarget{
		Kind:      "booking",
		NewEntity: func() models.TrackedEntity { return &models.Booking{} },
		OnExpire: func(ctx context.Context, entity models.TrackedEntity) {
			*released = append(*released, entity.EntityID())
		},
	}
}

func TestSweepDeletesElapsedAndFiresReleaseHook(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	confirmed := pendingBooking(3, nil)
	confirmed.Status = models.BookingStatusConfirmed

	source := &fakeExpirySource{bookings: map[uint]*models.Booking{
		1: pendingBooking(1, &past),
		2: pendingBooking(2, &future),
		3: confirmed,
	}}

	var released []uint
	sweeper := NewSweeper(source, time.Second, bookingTarget(&released))
	sweeper.now = func() time.Time { return now }

	deleted := sweeper.SweepOnce(context.Background())
	if deleted != 1 {
		t.Fatalf("deleted = %d, want 1", deleted)
	}
	if _, ok := source.bookings[1]; ok {
		t.Error("elapsed booking 1 still present")
	}
	if _, ok := source.bookings[2]; !ok {
		t.Error("booking 2 with future expire_at was swept")
	}
	if _, ok := source.bookings[3]; !ok {
		t.Error("confirmed booking 3 without expire_at was swept")
	}
	if len(released) != 1 || released[0] != 1 {
		t.Errorf("release hook got %v, want [1]", released)
	}
}

func TestSweepSkipsRowConfirmedMidSweep(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)

	source := &fakeExpirySource{bookings: map[uint]*models.Booking{
		1: pendingBooking(1, &past),
	}}
	// between selection and deletion the payment webhook confirms the
	// booking and clears its expiry window
	source.onLoad = func(id uint) {
		source.bookings[id].Status = models.BookingStatusConfirmed
		source.bookings[id].ExpireAt = nil
	}

	var released []uint
	sweeper := NewSweeper(source, time.Second, bookingTarget(&released))
	sweeper.now = func() time.Time { return now }

	if deleted := sweeper.SweepOnce(context.Background()); deleted != 0 {
		t.Fatalf("deleted = %d, want 0", deleted)
	}
	if _, ok := source.bookings[1]; !ok {
		t.Error("booking confirmed mid-sweep was deleted")
	}
	if len(released) != 0 {
		t.Errorf("release hook fired for a surviving booking: %v", released)
	}
}

func TestSweepEmptyTargetsIsNoop(t *testing.T) {
	source := &fakeExpirySource{bookings: map[uint]*models.Booking{}}
	var released []uint
	sweeper := NewSweeper(source, time.Second, bookingTarget(&released))

	if deleted := sweeper.SweepOnce(context.Background()); deleted != 0 {
		t.Fatalf("deleted = %d, want 0", deleted)
	}
}
