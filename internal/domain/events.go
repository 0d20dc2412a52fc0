package domain

import "time"

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// ShipmentBookedEvent is published when a shipment is booked
type ShipmentBookedEvent struct {
	AWB          string    `json:"awb"`
	Origin       string    `json:"origin"`
	ReceiverName string    `json:"receiverName"`
	BookedAt     time.Time `json:"bookedAt"`
}

func (e *ShipmentBookedEvent) EventType() string     { return "cargoflow.tracking.shipment-booked" }
func (e *ShipmentBookedEvent) OccurredAt() time.Time { return e.BookedAt }

// TrackingEventRecordedEvent is published when a tracking event is appended
type TrackingEventRecordedEvent struct {
	AWB            string    `json:"awb"`
	EventID        string    `json:"eventId"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previousStatus"`
	Location       string    `json:"location"`
	Description    string    `json:"description"`
	RecordedBy     string    `json:"recordedBy,omitempty"`
	RecordedAt     time.Time `json:"recordedAt"`
}

func (e *TrackingEventRecordedEvent) EventType() string     { return "cargoflow.tracking.event-recorded" }
func (e *TrackingEventRecordedEvent) OccurredAt() time.Time { return e.RecordedAt }

// ShipmentDeliveredEvent is published when a shipment reaches delivered
type ShipmentDeliveredEvent struct {
	AWB         string    `json:"awb"`
	Location    string    `json:"location"`
	DeliveredAt time.Time `json:"deliveredAt"`
}

func (e *ShipmentDeliveredEvent) EventType() string     { return "cargoflow.tracking.shipment-delivered" }
func (e *ShipmentDeliveredEvent) OccurredAt() time.Time { return e.DeliveredAt }

// ShipmentCancelledEvent is published when a shipment is cancelled
type ShipmentCancelledEvent struct {
	AWB         string    `json:"awb"`
	Reason      string    `json:"reason"`
	CancelledBy string    `json:"cancelledBy,omitempty"`
	CancelledAt time.Time `json:"cancelledAt"`
}

func (e *ShipmentCancelledEvent) EventType() string     { return "cargoflow.tracking.shipment-cancelled" }
func (e *ShipmentCancelledEvent) OccurredAt() time.Time { return e.CancelledAt }
