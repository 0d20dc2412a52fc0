package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test fixtures
func createTestContact(name string) Contact {
	return Contact{
		Name:    name,
		Phone:   "+971-50-5550100",
		Email:   "test@example.com",
		Address: "12 Harbour Road",
		City:    "Dubai",
		Country: "AE",
	}
}

func createTestPackage() PackageDetails {
	return PackageDetails{
		WeightKg:      2.5,
		Dimensions:    Dimensions{Length: 30, Width: 20, Height: 10},
		DeclaredValue: 150,
		Description:   "Electronics",
	}
}

func createTestShipment(t *testing.T) *Shipment {
	t.Helper()
	shipment, err := NewShipment(MustNewAWB("CF-2024000101AB"),
		createTestContact("Ayesha Khan"), createTestContact("Omar Said"),
		createTestPackage(), "Dubai Hub", "ops.ayesha")
	require.NoError(t, err)
	return shipment
}

// TestNewShipment tests booking a shipment
func TestNewShipment(t *testing.T) {
	shipment := createTestShipment(t)

	assert.Equal(t, "CF-2024000101AB", shipment.AWB)
	assert.True(t, shipment.Status.IsBooked())
	assert.Equal(t, "Dubai Hub", shipment.CurrentLocation)
	assert.Equal(t, int64(1), shipment.Version)
	assert.NotZero(t, shipment.CreatedAt)
	assert.NoError(t, shipment.Validate())

	require.Len(t, shipment.History, 1)
	booked := shipment.History[0]
	assert.True(t, booked.Status.IsBooked())
	assert.Equal(t, "Dubai Hub", booked.Location)
	assert.Equal(t, "ops.ayesha", booked.RecordedBy)
	assert.NotEmpty(t, booked.ID)

	events := shipment.GetDomainEvents()
	require.Len(t, events, 1)
	event, ok := events[0].(*ShipmentBookedEvent)
	require.True(t, ok)
	assert.Equal(t, "CF-2024000101AB", event.AWB)
}

// TestNewShipmentRequiresOrigin tests that booking without an origin fails
func TestNewShipmentRequiresOrigin(t *testing.T) {
	_, err := NewShipment(MustNewAWB("CF-2024000101AB"),
		createTestContact("Ayesha Khan"), createTestContact("Omar Said"),
		createTestPackage(), "", "ops.ayesha")
	assert.ErrorIs(t, err, ErrEmptyLocation)
}

// TestShipmentRecordEvent tests appending tracking events
func TestShipmentRecordEvent(t *testing.T) {
	tests := []struct {
		name          string
		setupShipment func(t *testing.T) *Shipment
		target        Status
		location      string
		description   string
		expectError   error
	}{
		{
			name:          "Record pickup",
			setupShipment: createTestShipment,
			target:        StatusPickedUp,
			location:      "Dubai Hub",
			description:   "Picked up by courier",
		},
		{
			name:          "Skip transition rejected",
			setupShipment: createTestShipment,
			target:        StatusDelivered,
			location:      "Receiver address",
			description:   "Delivered",
			expectError:   ErrInvalidStatusTransition,
		},
		{
			name: "Self transition updates location",
			setupShipment: func(t *testing.T) *Shipment {
				s := createTestShipment(t)
				_, err := s.RecordEvent(StatusPickedUp, "Dubai Hub", "Picked up", "ops.ayesha")
				require.NoError(t, err)
				_, err = s.RecordEvent(StatusInTransit, "Jebel Ali", "Departed origin facility", "scanner-07")
				require.NoError(t, err)
				return s
			},
			target:      StatusInTransit,
			location:    "Riyadh Gateway",
			description: "Arrived at transit facility",
		},
		{
			name: "Terminal shipment rejects further events",
			setupShipment: func(t *testing.T) *Shipment {
				s := createTestShipment(t)
				_, err := s.Cancel("Sender request", "ops.ayesha")
				require.NoError(t, err)
				return s
			},
			target:      StatusPickedUp,
			location:    "Dubai Hub",
			description: "Picked up",
			expectError: ErrShipmentClosed,
		},
		{
			name:          "Empty location rejected",
			setupShipment: createTestShipment,
			target:        StatusPickedUp,
			location:      "",
			description:   "Picked up",
			expectError:   ErrEmptyLocation,
		},
		{
			name:          "Empty description rejected",
			setupShipment: createTestShipment,
			target:        StatusPickedUp,
			location:      "Dubai Hub",
			description:   "",
			expectError:   ErrEmptyDescription,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shipment := tt.setupShipment(t)
			historyLen := len(shipment.History)
			previousStatus := shipment.Status

			event, err := shipment.RecordEvent(tt.target, tt.location, tt.description, "ops.ayesha")

			if tt.expectError != nil {
				assert.ErrorIs(t, err, tt.expectError)
				assert.Len(t, shipment.History, historyLen)
				assert.True(t, shipment.Status.Equals(previousStatus))
			} else {
				require.NoError(t, err)
				assert.True(t, shipment.Status.Equals(tt.target))
				assert.Equal(t, tt.location, shipment.CurrentLocation)
				assert.Len(t, shipment.History, historyLen+1)
				assert.Equal(t, event.ID, shipment.LatestEvent().ID)
				assert.NoError(t, shipment.Validate())

				events := shipment.GetDomainEvents()
				last, ok := events[len(events)-1].(*TrackingEventRecordedEvent)
				require.True(t, ok)
				assert.Equal(t, tt.target.String(), last.Status)
				assert.Equal(t, previousStatus.String(), last.PreviousStatus)
			}
		})
	}
}

// TestShipmentFullLifecycle walks the happy path from booking to delivery
func TestShipmentFullLifecycle(t *testing.T) {
	shipment := createTestShipment(t)

	steps := []struct {
		status   Status
		location string
	}{
		{StatusPickedUp, "Dubai Hub"},
		{StatusInTransit, "Jebel Ali"},
		{StatusOutForDelivery, "Riyadh North Depot"},
		{StatusDelivered, "Receiver address"},
	}

	for _, step := range steps {
		_, err := shipment.RecordEvent(step.status, step.location, "Scan "+step.status.String(), "scanner-07")
		require.NoError(t, err)
	}

	assert.True(t, shipment.Status.IsDelivered())
	assert.Len(t, shipment.History, 5)
	assert.NoError(t, shipment.Validate())

	// Timestamps never decrease along the history
	for i := 1; i < len(shipment.History); i++ {
		assert.False(t, shipment.History[i].Timestamp.Before(shipment.History[i-1].Timestamp))
	}

	// Delivered emits a dedicated event on top of the recorded one
	var delivered *ShipmentDeliveredEvent
	for _, e := range shipment.GetDomainEvents() {
		if d, ok := e.(*ShipmentDeliveredEvent); ok {
			delivered = d
		}
	}
	require.NotNil(t, delivered)
	assert.Equal(t, shipment.AWB, delivered.AWB)

	_, err := shipment.RecordEvent(StatusInTransit, "Anywhere", "Reopened", "ops.ayesha")
	assert.ErrorIs(t, err, ErrShipmentClosed)
}

// TestShipmentExceptionRecovery tests the exception branch of the graph
func TestShipmentExceptionRecovery(t *testing.T) {
	shipment := createTestShipment(t)

	_, err := shipment.RecordEvent(StatusPickedUp, "Dubai Hub", "Picked up", "ops.ayesha")
	require.NoError(t, err)
	_, err = shipment.RecordEvent(StatusInTransit, "Jebel Ali", "Departed", "scanner-07")
	require.NoError(t, err)
	_, err = shipment.RecordEvent(StatusException, "Jebel Ali", "Customs hold", "ops.ayesha")
	require.NoError(t, err)

	assert.True(t, shipment.Status.IsException())

	_, err = shipment.RecordEvent(StatusInTransit, "Jebel Ali", "Released from customs", "ops.ayesha")
	require.NoError(t, err)
	assert.False(t, shipment.Status.IsException())
	assert.NoError(t, shipment.Validate())
}

// TestShipmentCancel tests cancellation
func TestShipmentCancel(t *testing.T) {
	t.Run("Cancel active shipment", func(t *testing.T) {
		shipment := createTestShipment(t)

		event, err := shipment.Cancel("Sender request", "ops.ayesha")
		require.NoError(t, err)

		assert.True(t, shipment.Status.IsCancelled())
		assert.True(t, event.Status.IsCancelled())
		assert.Equal(t, "Sender request", event.Description)
		assert.Equal(t, shipment.CurrentLocation, event.Location)

		events := shipment.GetDomainEvents()
		last, ok := events[len(events)-1].(*ShipmentCancelledEvent)
		require.True(t, ok)
		assert.Equal(t, "Sender request", last.Reason)
	})

	t.Run("Cancel delivered shipment rejected", func(t *testing.T) {
		shipment := createTestShipment(t)
		for _, s := range []Status{StatusPickedUp, StatusInTransit, StatusOutForDelivery, StatusDelivered} {
			_, err := shipment.RecordEvent(s, "Somewhere", "Scan", "scanner-07")
			require.NoError(t, err)
		}

		_, err := shipment.Cancel("Too late", "ops.ayesha")
		assert.ErrorIs(t, err, ErrShipmentClosed)
	})
}

// TestShipmentValidate tests structural invariant checks
func TestShipmentValidate(t *testing.T) {
	t.Run("Empty history", func(t *testing.T) {
		s := createTestShipment(t)
		s.History = nil
		assert.ErrorIs(t, s.Validate(), ErrEmptyHistory)
	})

	t.Run("Status drift from latest event", func(t *testing.T) {
		s := createTestShipment(t)
		s.Status = StatusInTransit
		assert.ErrorIs(t, s.Validate(), ErrStatusHistoryDrift)
	})

	t.Run("History must start at booked", func(t *testing.T) {
		s := createTestShipment(t)
		s.History[0].Status = StatusPickedUp
		s.Status = StatusPickedUp
		assert.ErrorIs(t, s.Validate(), ErrStatusHistoryDrift)
	})
}
