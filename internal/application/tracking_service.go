package application

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/cargoflow/tracking-service/pkg/errors"
	"github.com/cargoflow/tracking-service/pkg/logging"
	"github.com/cargoflow/tracking-service/pkg/metrics"

	"github.com/cargoflow/tracking-service/internal/domain"
)

// maxAppendRetries bounds how many times a lost conditional append is
// replayed against fresh state before giving up with a conflict.
const maxAppendRetries = 3

// TrackingApplicationService handles shipment tracking use cases
type TrackingApplicationService struct {
	repo     domain.ShipmentRepository
	notifier domain.ChangeNotifier
	metrics  *metrics.Metrics
	logger   *logging.Logger
}

// NewTrackingApplicationService creates a new TrackingApplicationService
func NewTrackingApplicationService(
	repo domain.ShipmentRepository,
	notifier domain.ChangeNotifier,
	m *metrics.Metrics,
	logger *logging.Logger,
) *TrackingApplicationService {
	return &TrackingApplicationService{
		repo:     repo,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
	}
}

// BookShipment registers a new shipment with its initial booked event
func (s *TrackingApplicationService) BookShipment(ctx context.Context, cmd BookShipmentCommand) (*ShipmentDTO, error) {
	awb, err := domain.NewAWB(cmd.AWB)
	if err != nil {
		return nil, errors.ErrValidation(err.Error())
	}

	shipment, err := domain.NewShipment(awb, cmd.Sender, cmd.Receiver, cmd.Package, cmd.Origin, cmd.BookedBy)
	if err != nil {
		return nil, errors.ErrValidation(err.Error())
	}

	if err := s.repo.Insert(ctx, shipment); err != nil {
		if stderrors.Is(err, domain.ErrDuplicateAWB) {
			return nil, errors.ErrConflict("shipment with this AWB already exists").WithDetail("awb", awb.Value())
		}
		s.logger.WithError(err).Error("Failed to book shipment", "awb", awb.Value())
		return nil, fmt.Errorf("failed to book shipment: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordShipmentBooked()
	}

	s.logger.Info("Booked shipment", "awb", awb.Value(), "origin", cmd.Origin, "bookedBy", cmd.BookedBy)
	return ToShipmentDTO(shipment), nil
}

// RecordTrackingEvent validates and appends a tracking event to a shipment.
// Lost conditional appends are replayed against reloaded state so the
// transition is re-validated against whatever the concurrent writer left
// behind. Notification dispatch is best effort and never fails the append.
func (s *TrackingApplicationService) RecordTrackingEvent(ctx context.Context, cmd RecordTrackingEventCommand) (*ShipmentDTO, error) {
	target, err := domain.NewStatus(cmd.Status)
	if err != nil {
		return nil, errors.ErrValidation(fmt.Sprintf("invalid status %q", cmd.Status))
	}

	for attempt := 1; attempt <= maxAppendRetries; attempt++ {
		shipment, err := s.repo.FindByAWB(ctx, cmd.AWB)
		if err != nil {
			s.logger.WithError(err).Error("Failed to load shipment", "awb", cmd.AWB)
			return nil, fmt.Errorf("failed to load shipment: %w", err)
		}
		if shipment == nil {
			return nil, errors.ErrNotFoundWithID("shipment", cmd.AWB)
		}

		current := shipment.Status
		event, err := shipment.RecordEvent(target, cmd.Location, cmd.Description, cmd.RecordedBy)
		if err != nil {
			return nil, s.mapTransitionError(err, current, target)
		}

		if err := s.repo.AppendEvent(ctx, shipment); err != nil {
			if stderrors.Is(err, domain.ErrVersionConflict) {
				if s.metrics != nil {
					s.metrics.RecordAppendConflict("retried")
				}
				s.logger.Warn("Append lost version race, retrying",
					"awb", cmd.AWB,
					"attempt", attempt,
				)
				continue
			}
			s.logger.WithError(err).Error("Failed to append tracking event", "awb", cmd.AWB)
			return nil, fmt.Errorf("failed to append tracking event: %w", err)
		}

		if s.metrics != nil {
			s.metrics.RecordTrackingEvent(target.String())
		}

		s.logger.Info("Recorded tracking event",
			"awb", cmd.AWB,
			"status", target.String(),
			"location", cmd.Location,
			"recordedBy", cmd.RecordedBy,
		)

		if s.notifier != nil {
			s.notifier.Notify(ctx, shipment, event)
		}

		return ToShipmentDTO(shipment), nil
	}

	if s.metrics != nil {
		s.metrics.RecordAppendConflict("exhausted")
	}
	s.logger.Warn("Append retries exhausted", "awb", cmd.AWB, "status", target.String())
	return nil, errors.ErrVersionConflict(cmd.AWB)
}

// CancelShipment records a cancellation event on the shipment
func (s *TrackingApplicationService) CancelShipment(ctx context.Context, cmd CancelShipmentCommand) (*ShipmentDTO, error) {
	for attempt := 1; attempt <= maxAppendRetries; attempt++ {
		shipment, err := s.repo.FindByAWB(ctx, cmd.AWB)
		if err != nil {
			s.logger.WithError(err).Error("Failed to load shipment", "awb", cmd.AWB)
			return nil, fmt.Errorf("failed to load shipment: %w", err)
		}
		if shipment == nil {
			return nil, errors.ErrNotFoundWithID("shipment", cmd.AWB)
		}

		current := shipment.Status
		event, err := shipment.Cancel(cmd.Reason, cmd.CancelledBy)
		if err != nil {
			return nil, s.mapTransitionError(err, current, domain.StatusCancelled)
		}

		if err := s.repo.AppendEvent(ctx, shipment); err != nil {
			if stderrors.Is(err, domain.ErrVersionConflict) {
				if s.metrics != nil {
					s.metrics.RecordAppendConflict("retried")
				}
				continue
			}
			s.logger.WithError(err).Error("Failed to cancel shipment", "awb", cmd.AWB)
			return nil, fmt.Errorf("failed to cancel shipment: %w", err)
		}

		if s.metrics != nil {
			s.metrics.RecordTrackingEvent(domain.StatusCancelled.String())
		}

		s.logger.Info("Cancelled shipment", "awb", cmd.AWB, "cancelledBy", cmd.CancelledBy)

		if s.notifier != nil {
			s.notifier.Notify(ctx, shipment, event)
		}

		return ToShipmentDTO(shipment), nil
	}

	if s.metrics != nil {
		s.metrics.RecordAppendConflict("exhausted")
	}
	return nil, errors.ErrVersionConflict(cmd.AWB)
}

// GetShipment retrieves a shipment by AWB
func (s *TrackingApplicationService) GetShipment(ctx context.Context, query GetShipmentQuery) (*ShipmentDTO, error) {
	shipment, err := s.repo.FindByAWB(ctx, query.AWB)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get shipment", "awb", query.AWB)
		return nil, fmt.Errorf("failed to get shipment: %w", err)
	}

	if shipment == nil {
		return nil, errors.ErrNotFoundWithID("shipment", query.AWB)
	}

	return ToShipmentDTO(shipment), nil
}

// GetHistory retrieves a shipment's tracking history, oldest first
func (s *TrackingApplicationService) GetHistory(ctx context.Context, query GetHistoryQuery) ([]TrackingEventDTO, error) {
	shipment, err := s.repo.FindByAWB(ctx, query.AWB)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get shipment history", "awb", query.AWB)
		return nil, fmt.Errorf("failed to get shipment history: %w", err)
	}

	if shipment == nil {
		return nil, errors.ErrNotFoundWithID("shipment", query.AWB)
	}

	return ToTrackingEventDTOs(shipment.History), nil
}

// ListByStatus retrieves a page of shipments filtered by status. An empty
// status matches all shipments.
func (s *TrackingApplicationService) ListByStatus(ctx context.Context, query ListByStatusQuery) (*ShipmentListDTO, error) {
	var status domain.Status
	if query.Status != "" {
		parsed, err := domain.NewStatus(query.Status)
		if err != nil {
			return nil, errors.ErrValidation(fmt.Sprintf("invalid status %q", query.Status))
		}
		status = parsed
	}

	page := query.Page
	if page < 1 {
		page = 1
	}
	pageSize := query.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	shipments, total, err := s.repo.FindByStatus(ctx, status, page, pageSize)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list shipments", "status", query.Status)
		return nil, fmt.Errorf("failed to list shipments: %w", err)
	}

	return &ShipmentListDTO{
		Items:    ToShipmentDTOs(shipments),
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// mapTransitionError translates domain mutation failures into API errors
func (s *TrackingApplicationService) mapTransitionError(err error, current, attempted domain.Status) error {
	switch {
	case stderrors.Is(err, domain.ErrShipmentClosed):
		if s.metrics != nil {
			s.metrics.RecordTransitionRejected(current.String(), attempted.String())
		}
		return errors.ErrInvalidTransition(current.String(), attempted.String())
	case stderrors.Is(err, domain.ErrInvalidStatusTransition):
		if s.metrics != nil {
			s.metrics.RecordTransitionRejected(current.String(), attempted.String())
		}
		return errors.ErrInvalidTransition(current.String(), attempted.String())
	case stderrors.Is(err, domain.ErrEmptyLocation), stderrors.Is(err, domain.ErrEmptyDescription):
		return errors.ErrValidation(err.Error())
	default:
		return errors.ErrValidation(err.Error())
	}
}
