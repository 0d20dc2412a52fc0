package domain

import "errors"

// ErrInvalidStatus is returned when an invalid status value is provided
var ErrInvalidStatus = errors.New("invalid status value")

// ErrInvalidStatusTransition is returned when an invalid status transition is attempted
var ErrInvalidStatusTransition = errors.New("invalid status transition")

// Status represents an immutable shipment status value object
type Status struct {
	value string
}

// Valid status values
const (
	statusBooked         = "booked"
	statusPickedUp       = "picked_up"
	statusInTransit      = "in_transit"
	statusOutForDelivery = "out_for_delivery"
	statusDelivered      = "delivered"
	statusException      = "exception"
	statusCancelled      = "cancelled"
)

// Predefined Status instances
var (
	StatusBooked         = Status{value: statusBooked}
	StatusPickedUp       = Status{value: statusPickedUp}
	StatusInTransit      = Status{value: statusInTransit}
	StatusOutForDelivery = Status{value: statusOutForDelivery}
	StatusDelivered      = Status{value: statusDelivered}
	StatusException      = Status{value: statusException}
	StatusCancelled      = Status{value: statusCancelled}
)

// NewStatus creates a new Status value object with validation
func NewStatus(s string) (Status, error) {
	switch s {
	case statusBooked, statusPickedUp, statusInTransit, statusOutForDelivery,
		statusDelivered, statusException, statusCancelled:
		return Status{value: s}, nil
	default:
		return Status{}, ErrInvalidStatus
	}
}

// MustNewStatus creates a Status or panics if invalid (use for constants only)
func MustNewStatus(s string) Status {
	status, err := NewStatus(s)
	if err != nil {
		panic(err)
	}
	return status
}

// String returns the string representation of the status
func (s Status) String() string {
	return s.value
}

// Equals checks if two statuses are equal
func (s Status) Equals(other Status) bool {
	return s.value == other.value
}

// IsZero returns true if the status has no value
func (s Status) IsZero() bool {
	return s.value == ""
}

// IsBooked returns true if the status is booked
func (s Status) IsBooked() bool {
	return s.value == statusBooked
}

// IsDelivered returns true if the status is delivered
func (s Status) IsDelivered() bool {
	return s.value == statusDelivered
}

// IsException returns true if the status is exception
func (s Status) IsException() bool {
	return s.value == statusException
}

// IsCancelled returns true if the status is cancelled
func (s Status) IsCancelled() bool {
	return s.value == statusCancelled
}

// IsTerminal returns true if the status is a terminal state (delivered or cancelled)
func (s Status) IsTerminal() bool {
	return s.value == statusDelivered || s.value == statusCancelled
}

// CanTransitionTo checks if this status can transition to another status.
// A transition to the same non-terminal status is allowed and represents a
// location or description refresh without a state change.
func (s Status) CanTransitionTo(target Status) bool {
	if s.Equals(target) {
		return !s.IsTerminal()
	}

	validTransitions := map[string][]string{
		statusBooked:         {statusPickedUp, statusCancelled},
		statusPickedUp:       {statusInTransit, statusCancelled},
		statusInTransit:      {statusOutForDelivery, statusException, statusCancelled},
		statusOutForDelivery: {statusDelivered, statusCancelled},
		statusException:      {statusInTransit, statusCancelled},
		statusDelivered:      {}, // Terminal state
		statusCancelled:      {}, // Terminal state
	}

	allowedTargets, exists := validTransitions[s.value]
	if !exists {
		return false
	}

	for _, allowed := range allowedTargets {
		if target.value == allowed {
			return true
		}
	}

	return false
}

// MarshalText implements encoding.TextMarshaler for JSON/BSON serialization
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.value), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for JSON/BSON deserialization
func (s *Status) UnmarshalText(text []byte) error {
	status, err := NewStatus(string(text))
	if err != nil {
		return err
	}
	*s = status
	return nil
}
