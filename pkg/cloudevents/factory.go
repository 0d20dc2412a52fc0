package cloudevents

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventFactory creates CloudEvents for tracking domain events
type EventFactory struct {
	source string
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source}
}

// CreateEvent creates a new TrackingCloudEvent with the given parameters
func (f *EventFactory) CreateEvent(
	ctx context.Context,
	eventType string,
	subject string,
	data interface{},
) *TrackingCloudEvent {
	event := &TrackingCloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            data,
		Extensions:      make(map[string]interface{}),
	}

	return event
}

// CreateEventWithCorrelation creates an event with correlation tracking
func (f *EventFactory) CreateEventWithCorrelation(
	ctx context.Context,
	eventType string,
	subject string,
	data interface{},
	correlationID string,
) *TrackingCloudEvent {
	event := f.CreateEvent(ctx, eventType, subject, data)
	event.CorrelationID = correlationID
	return event
}

// CreateShipmentBookedEvent creates a ShipmentBooked event
func (f *EventFactory) CreateShipmentBookedEvent(
	ctx context.Context,
	awb string,
	origin string,
	receiverName string,
	bookedAt time.Time,
) *TrackingCloudEvent {
	data := ShipmentBookedData{
		AWB:          awb,
		Origin:       origin,
		ReceiverName: receiverName,
		BookedAt:     bookedAt,
	}
	event := f.CreateEvent(ctx, ShipmentBooked, "shipment/"+awb, data)
	event.AWB = awb
	return event
}

// CreateTrackingEventRecordedEvent creates a TrackingEventRecorded event
func (f *EventFactory) CreateTrackingEventRecordedEvent(
	ctx context.Context,
	data TrackingEventRecordedData,
) *TrackingCloudEvent {
	event := f.CreateEvent(ctx, TrackingEventRecorded, "shipment/"+data.AWB, data)
	event.AWB = data.AWB
	return event
}

// CreateShipmentDeliveredEvent creates a ShipmentDelivered event
func (f *EventFactory) CreateShipmentDeliveredEvent(
	ctx context.Context,
	awb string,
	location string,
	deliveredAt time.Time,
) *TrackingCloudEvent {
	data := ShipmentDeliveredData{
		AWB:         awb,
		Location:    location,
		DeliveredAt: deliveredAt,
	}
	event := f.CreateEvent(ctx, ShipmentDelivered, "shipment/"+awb, data)
	event.AWB = awb
	return event
}

// CreateShipmentCancelledEvent creates a ShipmentCancelled event
func (f *EventFactory) CreateShipmentCancelledEvent(
	ctx context.Context,
	awb string,
	reason string,
	cancelledBy string,
	cancelledAt time.Time,
) *TrackingCloudEvent {
	data := ShipmentCancelledData{
		AWB:         awb,
		Reason:      reason,
		CancelledBy: cancelledBy,
		CancelledAt: cancelledAt,
	}
	event := f.CreateEvent(ctx, ShipmentCancelled, "shipment/"+awb, data)
	event.AWB = awb
	return event
}

// CreateNotificationRequestedEvent creates a NotificationRequested event
func (f *EventFactory) CreateNotificationRequestedEvent(
	ctx context.Context,
	awb string,
	channel string,
	recipient string,
	message string,
) *TrackingCloudEvent {
	data := NotificationRequestedData{
		AWB:       awb,
		Channel:   channel,
		Recipient: recipient,
		Message:   message,
	}
	event := f.CreateEvent(ctx, NotificationRequested, "shipment/"+awb, data)
	event.AWB = awb
	return event
}
