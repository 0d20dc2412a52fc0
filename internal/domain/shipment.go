package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Errors
var (
	ErrShipmentClosed     = errors.New("shipment is in a terminal state")
	ErrEmptyLocation      = errors.New("event location cannot be empty")
	ErrEmptyDescription   = errors.New("event description cannot be empty")
	ErrEmptyHistory       = errors.New("shipment history cannot be empty")
	ErrHistoryOutOfOrder  = errors.New("shipment history timestamps out of order")
	ErrStatusHistoryDrift = errors.New("shipment status does not match latest event")
)

// Shipment is the aggregate root for the Tracking bounded context. The
// history is append-only: events are never reordered or removed, and the
// record status always mirrors the most recent event.
type Shipment struct {
	AWB             string
	Status          Status
	CurrentLocation string
	History         []TrackingEvent
	Sender          Contact
	Receiver        Contact
	Package         PackageDetails
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DomainEvents    []DomainEvent
}

// TrackingEvent is a single entry in a shipment's history
type TrackingEvent struct {
	ID          string
	Status      Status
	Location    string
	Description string
	RecordedBy  string
	Timestamp   time.Time
}

// Contact holds the sender or receiver details captured at booking time
type Contact struct {
	Name    string
	Phone   string
	Email   string
	Address string
	City    string
	Country string
}

// PackageDetails holds the package snapshot captured at booking time
type PackageDetails struct {
	WeightKg      float64
	Dimensions    Dimensions
	DeclaredValue float64
	Description   string
}

// Dimensions represents package dimensions in cm
type Dimensions struct {
	Length float64
	Width  float64
	Height float64
}

// NewShipment creates a new Shipment aggregate with its initial booked event
func NewShipment(awb AWB, sender, receiver Contact, pkg PackageDetails, origin, bookedBy string) (*Shipment, error) {
	if origin == "" {
		return nil, ErrEmptyLocation
	}

	now := time.Now().UTC()
	booked := TrackingEvent{
		ID:          uuid.New().String(),
		Status:      StatusBooked,
		Location:    origin,
		Description: "Shipment booked",
		RecordedBy:  bookedBy,
		Timestamp:   now,
	}

	s := &Shipment{
		AWB:             awb.Value(),
		Status:          StatusBooked,
		CurrentLocation: origin,
		History:         []TrackingEvent{booked},
		Sender:          sender,
		Receiver:        receiver,
		Package:         pkg,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
		DomainEvents:    make([]DomainEvent, 0),
	}

	s.AddDomainEvent(&ShipmentBookedEvent{
		AWB:          s.AWB,
		Origin:       origin,
		ReceiverName: receiver.Name,
		BookedAt:     now,
	})

	return s, nil
}

// RecordEvent validates the proposed transition and appends a tracking event
// with a server-assigned timestamp. The record status and current location
// advance together with the history in the same mutation.
func (s *Shipment) RecordEvent(target Status, location, description, recordedBy string) (TrackingEvent, error) {
	if s.Status.IsTerminal() {
		return TrackingEvent{}, ErrShipmentClosed
	}
	if !s.Status.CanTransitionTo(target) {
		return TrackingEvent{}, ErrInvalidStatusTransition
	}
	if location == "" {
		return TrackingEvent{}, ErrEmptyLocation
	}
	if description == "" {
		return TrackingEvent{}, ErrEmptyDescription
	}

	now := time.Now().UTC()
	// Timestamps within a record never decrease, even across clock skew.
	if last := s.LatestEvent(); last != nil && now.Before(last.Timestamp) {
		now = last.Timestamp
	}

	event := TrackingEvent{
		ID:          uuid.New().String(),
		Status:      target,
		Location:    location,
		Description: description,
		RecordedBy:  recordedBy,
		Timestamp:   now,
	}

	previous := s.Status
	s.History = append(s.History, event)
	s.Status = target
	s.CurrentLocation = location
	s.UpdatedAt = now

	s.AddDomainEvent(&TrackingEventRecordedEvent{
		AWB:            s.AWB,
		EventID:        event.ID,
		Status:         target.String(),
		PreviousStatus: previous.String(),
		Location:       location,
		Description:    description,
		RecordedBy:     recordedBy,
		RecordedAt:     now,
	})

	if target.IsDelivered() {
		s.AddDomainEvent(&ShipmentDeliveredEvent{
			AWB:         s.AWB,
			Location:    location,
			DeliveredAt: now,
		})
	}

	return event, nil
}

// Cancel records a cancellation event with the given reason
func (s *Shipment) Cancel(reason, cancelledBy string) (TrackingEvent, error) {
	if reason == "" {
		reason = "Shipment cancelled"
	}

	event, err := s.RecordEvent(StatusCancelled, s.CurrentLocation, reason, cancelledBy)
	if err != nil {
		return TrackingEvent{}, err
	}

	s.AddDomainEvent(&ShipmentCancelledEvent{
		AWB:         s.AWB,
		Reason:      reason,
		CancelledBy: cancelledBy,
		CancelledAt: event.Timestamp,
	})

	return event, nil
}

// LatestEvent returns the most recent tracking event, or nil for an empty history
func (s *Shipment) LatestEvent() *TrackingEvent {
	if len(s.History) == 0 {
		return nil
	}
	return &s.History[len(s.History)-1]
}

// Validate checks the aggregate's structural invariants
func (s *Shipment) Validate() error {
	if len(s.History) == 0 {
		return ErrEmptyHistory
	}
	if !s.History[0].Status.IsBooked() {
		return ErrStatusHistoryDrift
	}
	if !s.Status.Equals(s.History[len(s.History)-1].Status) {
		return ErrStatusHistoryDrift
	}
	for i := 1; i < len(s.History); i++ {
		if s.History[i].Timestamp.Before(s.History[i-1].Timestamp) {
			return ErrHistoryOutOfOrder
		}
	}
	return nil
}

// AddDomainEvent adds a domain event
func (s *Shipment) AddDomainEvent(event DomainEvent) {
	s.DomainEvents = append(s.DomainEvents, event)
}

// ClearDomainEvents clears all domain events
func (s *Shipment) ClearDomainEvents() {
	s.DomainEvents = make([]DomainEvent, 0)
}

// GetDomainEvents returns all domain events
func (s *Shipment) GetDomainEvents() []DomainEvent {
	return s.DomainEvents
}
