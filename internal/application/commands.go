package application

import (
	"github.com/cargoflow/tracking-service/internal/domain"
)

// BookShipmentCommand represents the command to book a new shipment
type BookShipmentCommand struct {
	AWB      string
	Origin   string
	Sender   domain.Contact
	Receiver domain.Contact
	Package  domain.PackageDetails
	BookedBy string
}

// RecordTrackingEventCommand represents the command to append a tracking event
type RecordTrackingEventCommand struct {
	AWB         string
	Status      string
	Location    string
	Description string
	RecordedBy  string
}

// CancelShipmentCommand represents the command to cancel a shipment
type CancelShipmentCommand struct {
	AWB         string
	Reason      string
	CancelledBy string
}

// GetShipmentQuery represents the query to get a shipment by AWB
type GetShipmentQuery struct {
	AWB string
}

// GetHistoryQuery represents the query to get a shipment's tracking history
type GetHistoryQuery struct {
	AWB string
}

// ListByStatusQuery represents the query to list shipments by status.
// An empty Status matches all shipments.
type ListByStatusQuery struct {
	Status   string
	Page     int
	PageSize int
}
