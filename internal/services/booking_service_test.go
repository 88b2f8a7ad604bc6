package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"shuttle-backend/internal/models"
	"shuttle-backend/internal/presence"
	"shuttle-backend/internal/status"
)

// memPersister satisfies status.Persister without a database
type memPersister struct{}

func (memPersister) Create(ctx context.Context, entity models.TrackedEntity) error { return nil }
func (memPersister) Save(ctx context.Context, entity models.TrackedEntity, prevVersion int) error {
	return nil
}

// fakeBookingStore keeps bookings in memory, keyed by id and order code
type fakeBookingStore struct {
	bookings map[uint]*models.Booking
	nextID   uint
}

func newFakeBookingStore() *fakeBookingStore {
	return &fakeBookingStore{bookings: make(map[uint]*models.Booking), nextID: 1}
}

func (f *fakeBookingStore) FindByID(ctx context.Context, id uint) (*models.Booking, error) {
	b, ok := f.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return b, nil
}

func (f *fakeBookingStore) FindByOrderCode(ctx context.Context, orderCode string) (*models.Booking, error) {
	for _, b := range f.bookings {
		if b.OrderCode == orderCode {
			return b, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeBookingStore) ListByCustomer(ctx context.Context, customerID uint) ([]models.Booking, error) {
	var out []models.Booking
	for _, b := range f.bookings {
		if b.CustomerID == customerID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeBookingStore) ListByTrip(ctx context.Context, tripID uint) ([]models.Booking, error) {
	var out []models.Booking
	for _, b := range f.bookings {
		if b.TripID == tripID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeBookingStore) UpdatePaymentURL(ctx context.Context, id uint, url string) error {
	if b, ok := f.bookings[id]; ok {
		b.PaymentURL = url
	}
	return nil
}

func (f *fakeBookingStore) add(b *models.Booking) {
	if b.ID == 0 {
		b.ID = f.nextID
		f.nextID++
	}
	f.bookings[b.ID] = b
}

type fakeTripStore struct {
	trips map[uint]*models.Trip
}

func newFakeTripStore() *fakeTripStore {
	return &fakeTripStore{trips: make(map[uint]*models.Trip)}
}

func (f *fakeTripStore) FindByID(ctx context.Context, id uint) (*models.Trip, error) {
	t, ok := f.trips[id]
	if !ok {
		return nil, ErrNotFound
	}
	return t, nil
}

func (f *fakeTripStore) ListByItinerary(ctx context.Context, itineraryID uint) ([]models.Trip, error) {
	var out []models.Trip
	for _, t := range f.trips {
		if t.ItineraryID != nil && *t.ItineraryID == itineraryID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeTripStore) AddBookedSeats(ctx context.Context, tripID uint, delta int) error {
	t, ok := f.trips[tripID]
	if !ok {
		return ErrNotFound
	}
	t.BookedSeats += delta
	return nil
}

type fakePayments struct {
	links int
	fail  bool
}

func (f *fakePayments) CreatePaymentLink(ctx context.Context, orderCode string, amount float64, description string) (string, error) {
	if f.fail {
		return "", errors.New("provider down")
	}
	f.links++
	return "https://pay.example/" + orderCode, nil
}

type sentNotification struct {
	UserID uint
	Title  string
}

type fakeNotifier struct {
	sent []sentNotification
}

func (f *fakeNotifier) Notify(ctx context.Context, userID uint, title, body string, data map[string]string) {
	f.sent = append(f.sent, sentNotification{UserID: userID, Title: title})
}

type bookingFixture struct {
	svc      *BookingService
	bookings *fakeBookingStore
	trips    *fakeTripStore
	payments *fakePayments
	notifier *fakeNotifier
	emitter  *fakeEmitter
	registry *presence.Registry
}

func setupBookingService(t *testing.T) *bookingFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	fx := &bookingFixture{
		bookings: newFakeBookingStore(),
		trips:    newFakeTripStore(),
		payments: &fakePayments{},
		notifier: &fakeNotifier{},
		emitter:  &fakeEmitter{},
		registry: presence.NewRegistry(client, time.Hour),
	}
	engine := status.NewEngine(memPersister{}, status.DefaultRules())
	fx.svc = NewBookingService(fx.bookings, fx.trips, engine, fx.payments, fx.notifier, fx.emitter, fx.registry)
	return fx
}

func seedTrip(fx *bookingFixture, id uint) *models.Trip {
	trip := &models.Trip{
		ID:         id,
		DriverID:   9,
		VehicleID:  5,
		Price:      1000,
		SeatsCount: 4,
	}
	trip.Status = models.TripStatusBooking
	fx.trips.trips[id] = trip
	return trip
}

func TestCreateBookingHoldsSeatsAndStartsPendingWindow(t *testing.T) {
	fx := setupBookingService(t)
	trip := seedTrip(fx, 1)
	ctx := context.Background()

	booking, err := fx.svc.CreateBooking(ctx, CreateBookingRequest{TripID: 1, CustomerID: 100, SeatsCount: 2})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	fx.bookings.add(booking)

	if booking.Status != models.BookingStatusPending {
		t.Errorf("status = %s, want PENDING", booking.Status)
	}
	if booking.ExpireAt == nil {
		t.Error("pending booking has no expiry window")
	}
	if booking.Price != 2000 {
		t.Errorf("price = %v, want 2000", booking.Price)
	}
	if booking.PaymentURL == "" {
		t.Error("payment link not attached")
	}
	if trip.BookedSeats != 2 {
		t.Errorf("booked seats = %d, want 2 (held on create)", trip.BookedSeats)
	}
	// driver is notified about the new booking
	if len(fx.notifier.sent) != 1 || fx.notifier.sent[0].UserID != 9 {
		t.Errorf("notifications = %+v, want one for driver 9", fx.notifier.sent)
	}
}

func TestCreateBookingRejectsOwnTripAndOverbooking(t *testing.T) {
	fx := setupBookingService(t)
	seedTrip(fx, 1)
	ctx := context.Background()

	_, err := fx.svc.CreateBooking(ctx, CreateBookingRequest{TripID: 1, CustomerID: 9, SeatsCount: 1})
	if !errors.Is(err, ErrTripNotBookable) {
		t.Errorf("booking own trip: err = %v, want ErrTripNotBookable", err)
	}

	_, err = fx.svc.CreateBooking(ctx, CreateBookingRequest{TripID: 1, CustomerID: 100, SeatsCount: 5})
	if !errors.Is(err, ErrNotEnoughSeats) {
		t.Errorf("overbooking: err = %v, want ErrNotEnoughSeats", err)
	}

	_, err = fx.svc.CreateBooking(ctx, CreateBookingRequest{TripID: 2, CustomerID: 100, SeatsCount: 1})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown trip: err = %v, want ErrNotFound", err)
	}
}

func TestCreateBookingSurvivesPaymentProviderOutage(t *testing.T) {
	fx := setupBookingService(t)
	seedTrip(fx, 1)
	fx.payments.fail = true

	booking, err := fx.svc.CreateBooking(context.Background(), CreateBookingRequest{TripID: 1, CustomerID: 100, SeatsCount: 1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if booking.PaymentURL != "" {
		t.Errorf("payment url = %q, want empty on provider outage", booking.PaymentURL)
	}
	if booking.Status != models.BookingStatusPending {
		t.Errorf("status = %s, booking must still be created", booking.Status)
	}
}

func TestConfirmPaymentCascadesToTrip(t *testing.T) {
	fx := setupBookingService(t)
	trip := seedTrip(fx, 1)
	ctx := context.Background()

	booking, err := fx.svc.CreateBooking(ctx, CreateBookingRequest{TripID: 1, CustomerID: 100, SeatsCount: 2})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	fx.bookings.add(booking)

	if err := fx.svc.ConfirmPayment(ctx, booking.OrderCode); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	if booking.Status != models.BookingStatusConfirmed {
		t.Errorf("booking status = %s, want CONFIRMED", booking.Status)
	}
	if booking.ExpireAt != nil {
		t.Error("expiry window not cleared on confirm")
	}
	if trip.Status != models.TripStatusConfirmed {
		t.Errorf("trip status = %s, want CONFIRMED (first paid booking confirms the trip)", trip.Status)
	}
	// trip update broadcast to the driver room
	if len(fx.emitter.toRoom) == 0 {
		t.Fatal("no room emit after confirm")
	}
	if fx.emitter.toRoom[0].Room != DriverRoom(9) || fx.emitter.toRoom[0].Event != EventTripUpdated {
		t.Errorf("room emit = %+v", fx.emitter.toRoom[0])
	}
}

func TestConfirmPaymentIsIdempotent(t *testing.T) {
	fx := setupBookingService(t)
	seedTrip(fx, 1)
	ctx := context.Background()

	booking, err := fx.svc.CreateBooking(ctx, CreateBookingRequest{TripID: 1, CustomerID: 100, SeatsCount: 1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	fx.bookings.add(booking)

	if err := fx.svc.ConfirmPayment(ctx, booking.OrderCode); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	// provider retries the webhook
	if err := fx.svc.ConfirmPayment(ctx, booking.OrderCode); err != nil {
		t.Fatalf("replayed confirm: %v", err)
	}

	if len(booking.StatusHistory) != 2 {
		t.Errorf("history length = %d, want 2 (replay absorbed)", len(booking.StatusHistory))
	}
}

func TestFailPaymentReleasesSeats(t *testing.T) {
	fx := setupBookingService(t)
	trip := seedTrip(fx, 1)
	ctx := context.Background()

	booking, err := fx.svc.CreateBooking(ctx, CreateBookingRequest{TripID: 1, CustomerID: 100, SeatsCount: 2})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	fx.bookings.add(booking)

	if err := fx.svc.FailPayment(ctx, booking.OrderCode, "declined"); err != nil {
		t.Fatalf("fail payment: %v", err)
	}

	if booking.Status != models.BookingStatusCancelled {
		t.Errorf("status = %s, want CANCELLED", booking.Status)
	}
	if trip.BookedSeats != 0 {
		t.Errorf("booked seats = %d, want 0 after release", trip.BookedSeats)
	}
}

func TestCancelBookingChecksOwnership(t *testing.T) {
	fx := setupBookingService(t)
	seedTrip(fx, 1)
	ctx := context.Background()

	booking, err := fx.svc.CreateBooking(ctx, CreateBookingRequest{TripID: 1, CustomerID: 100, SeatsCount: 1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	fx.bookings.add(booking)

	if _, err := fx.svc.CancelBooking(ctx, booking.ID, 200); !errors.Is(err, ErrForbidden) {
		t.Errorf("foreign cancel: err = %v, want ErrForbidden", err)
	}
	if _, err := fx.svc.CancelBooking(ctx, booking.ID, 100); err != nil {
		t.Errorf("own cancel: %v", err)
	}
}

func TestReleaseExpiredFreesSeatsAndNotifies(t *testing.T) {
	fx := setupBookingService(t)
	trip := seedTrip(fx, 1)
	ctx := context.Background()

	booking, err := fx.svc.CreateBooking(ctx, CreateBookingRequest{TripID: 1, CustomerID: 100, SeatsCount: 2})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	fx.notifier.sent = nil

	// the sweeper has already hard-deleted the row; the hook only cleans up
	fx.svc.ReleaseExpired(ctx, booking)

	if trip.BookedSeats != 0 {
		t.Errorf("booked seats = %d, want 0", trip.BookedSeats)
	}
	if len(fx.notifier.sent) != 1 || fx.notifier.sent[0].UserID != 100 {
		t.Errorf("notifications = %+v, want one for customer 100", fx.notifier.sent)
	}
}
