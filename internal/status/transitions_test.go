package status

import (
	"testing"

	"shuttle-backend/internal/models"
)

// TestTransitionTables verifies the static transition tables without a database.
func TestTransitionTables(t *testing.T) {
	rules := DefaultRules()

	cases := []struct {
		kind     string
		from, to models.Status
		want     bool
	}{
		// booking: forward and both failure branches
		{"booking", models.BookingStatusPending, models.BookingStatusConfirmed, true},
		{"booking", models.BookingStatusPending, models.BookingStatusCancelled, true},
		{"booking", models.BookingStatusPending, models.BookingStatusExpired, true},
		// booking: terminal states have no outgoing transitions
		{"booking", models.BookingStatusConfirmed, models.BookingStatusPending, false},
		{"booking", models.BookingStatusCancelled, models.BookingStatusConfirmed, false},
		{"booking", models.BookingStatusExpired, models.BookingStatusPending, false},
		// trip: happy path
		{"trip", models.TripStatusBooking, models.TripStatusConfirmed, true},
		{"trip", models.TripStatusConfirmed, models.TripStatusPickup, true},
		{"trip", models.TripStatusPickup, models.TripStatusInProgress, true},
		{"trip", models.TripStatusInProgress, models.TripStatusCompleted, true},
		// trip: cancels from every non-terminal state
		{"trip", models.TripStatusBooking, models.TripStatusCancelled, true},
		{"trip", models.TripStatusConfirmed, models.TripStatusCancelled, true},
		{"trip", models.TripStatusPickup, models.TripStatusCancelled, true},
		{"trip", models.TripStatusInProgress, models.TripStatusCancelled, true},
		// trip: early drop-off only after pickup has started
		{"trip", models.TripStatusPickup, models.TripStatusDroppedOff, true},
		{"trip", models.TripStatusInProgress, models.TripStatusDroppedOff, true},
		{"trip", models.TripStatusBooking, models.TripStatusDroppedOff, false},
		// trip: no skipping states
		{"trip", models.TripStatusBooking, models.TripStatusInProgress, false},
		{"trip", models.TripStatusConfirmed, models.TripStatusCompleted, false},
		{"trip", models.TripStatusCompleted, models.TripStatusBooking, false},
		// itinerary
		{"shared_itinerary", models.ItineraryStatusPending, models.ItineraryStatusPlanned, true},
		{"shared_itinerary", models.ItineraryStatusPlanned, models.ItineraryStatusInProgress, true},
		{"shared_itinerary", models.ItineraryStatusInProgress, models.ItineraryStatusCompleted, true},
		{"shared_itinerary", models.ItineraryStatusPending, models.ItineraryStatusExpired, true},
		{"shared_itinerary", models.ItineraryStatusPlanned, models.ItineraryStatusExpired, false},
		{"shared_itinerary", models.ItineraryStatusPending, models.ItineraryStatusInProgress, false},
		{"shared_itinerary", models.ItineraryStatusCompleted, models.ItineraryStatusPending, false},
	}

	for _, tc := range cases {
		got := rules[tc.kind].Allowed(tc.from, tc.to)
		if got != tc.want {
			t.Errorf("%s: Allowed(%s, %s) = %v, want %v", tc.kind, tc.from, tc.to, got, tc.want)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	rules := DefaultRules()

	terminal := []struct {
		kind   string
		status models.Status
	}{
		{"booking", models.BookingStatusConfirmed},
		{"booking", models.BookingStatusCancelled},
		{"trip", models.TripStatusCompleted},
		{"trip", models.TripStatusCancelled},
		{"trip", models.TripStatusDroppedOff},
		{"shared_itinerary", models.ItineraryStatusCompleted},
		{"shared_itinerary", models.ItineraryStatusCancelled},
	}
	for _, tc := range terminal {
		if !rules[tc.kind].Terminal(tc.status) {
			t.Errorf("%s: %s should be terminal", tc.kind, tc.status)
		}
	}

	if rules["trip"].Terminal(models.TripStatusBooking) {
		t.Error("trip BOOKING should not be terminal")
	}
	if rules["booking"].Terminal(models.BookingStatusPending) {
		t.Error("booking PENDING should not be terminal")
	}
}
