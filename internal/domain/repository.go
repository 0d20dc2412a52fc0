package domain

import (
	"context"
	"errors"
)

// Repository errors
var (
	// ErrDuplicateAWB is returned when inserting a shipment whose AWB already exists
	ErrDuplicateAWB = errors.New("shipment with this awb already exists")

	// ErrVersionConflict is returned when a conditional append lost the race
	// against a concurrent write and must be retried against fresh state
	ErrVersionConflict = errors.New("shipment version conflict")
)

// ShipmentRepository defines the interface for shipment persistence
type ShipmentRepository interface {
	// Insert persists a newly booked shipment. Returns ErrDuplicateAWB when
	// the AWB is already taken.
	Insert(ctx context.Context, shipment *Shipment) error

	// FindByAWB returns the shipment for the given AWB, or (nil, nil) when
	// no such shipment exists.
	FindByAWB(ctx context.Context, awb string) (*Shipment, error)

	// AppendEvent persists the latest recorded event as a single conditional
	// write keyed on the shipment's loaded version. Returns ErrVersionConflict
	// when a concurrent append advanced the record first; the caller reloads
	// and retries. On success the in-memory version is advanced.
	AppendEvent(ctx context.Context, shipment *Shipment) error

	// FindByStatus lists shipments in the given status, newest first.
	// A zero-value status matches all shipments.
	FindByStatus(ctx context.Context, status Status, page, pageSize int) ([]*Shipment, int64, error)

	// Delete removes a shipment record. Operational cleanup only.
	Delete(ctx context.Context, awb string) error
}

// ChangeNotifier dispatches a best-effort notification for a newly recorded
// tracking event. Implementations never propagate failures to the caller.
type ChangeNotifier interface {
	Notify(ctx context.Context, shipment *Shipment, event TrackingEvent)
}
