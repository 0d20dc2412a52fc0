package cloudevents

import (
	"time"
)

// EventType constants for tracking domain events
const (
	// Shipment lifecycle events
	ShipmentBooked        = "cargoflow.tracking.shipment-booked"
	TrackingEventRecorded = "cargoflow.tracking.event-recorded"
	ShipmentDelivered     = "cargoflow.tracking.shipment-delivered"
	ShipmentCancelled     = "cargoflow.tracking.shipment-cancelled"

	// Notification events
	NotificationRequested = "cargoflow.notification.requested"
)

// Source constants for event sources
const (
	SourceTracking     = "/cargoflow/tracking-service"
	SourceNotification = "/cargoflow/notification-dispatch"
)

// TrackingCloudEvent represents a CloudEvents v1.0 compliant event
type TrackingCloudEvent struct {
	SpecVersion     string                 `json:"specversion"`
	Type            string                 `json:"type"`
	Source          string                 `json:"source"`
	Subject         string                 `json:"subject,omitempty"`
	ID              string                 `json:"id"`
	Time            time.Time              `json:"time"`
	DataContentType string                 `json:"datacontenttype"`
	Data            interface{}            `json:"data"`
	Extensions      map[string]interface{} `json:"-"`

	// Tracking-specific extensions
	CorrelationID string `json:"cfcorrelationid,omitempty"`
	AWB           string `json:"cfawb,omitempty"`

	// W3C Trace Context extensions
	TraceParent string `json:"traceparent,omitempty"`
	TraceState  string `json:"tracestate,omitempty"`
}

// CloudEvents extension attribute names (used in message headers)
const (
	ExtCorrelationID = "cfcorrelationid"
	ExtAWB           = "cfawb"
)

// ShipmentBookedData represents the data payload for ShipmentBooked event
type ShipmentBookedData struct {
	AWB          string    `json:"awb"`
	Origin       string    `json:"origin"`
	ReceiverName string    `json:"receiverName"`
	BookedAt     time.Time `json:"bookedAt"`
}

// TrackingEventRecordedData represents the data payload for TrackingEventRecorded event
type TrackingEventRecordedData struct {
	AWB            string    `json:"awb"`
	EventID        string    `json:"eventId"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previousStatus"`
	Location       string    `json:"location"`
	Description    string    `json:"description"`
	RecordedBy     string    `json:"recordedBy,omitempty"`
	RecordedAt     time.Time `json:"recordedAt"`
}

// ShipmentDeliveredData represents the data payload for ShipmentDelivered event
type ShipmentDeliveredData struct {
	AWB         string    `json:"awb"`
	Location    string    `json:"location"`
	DeliveredAt time.Time `json:"deliveredAt"`
}

// ShipmentCancelledData represents the data payload for ShipmentCancelled event
type ShipmentCancelledData struct {
	AWB         string    `json:"awb"`
	Reason      string    `json:"reason"`
	CancelledBy string    `json:"cancelledBy,omitempty"`
	CancelledAt time.Time `json:"cancelledAt"`
}

// NotificationRequestedData represents the data payload for NotificationRequested event
type NotificationRequestedData struct {
	AWB       string `json:"awb"`
	Channel   string `json:"channel"` // "email" | "sms" | "webhook"
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
}
