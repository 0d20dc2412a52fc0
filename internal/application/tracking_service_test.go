package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cargoflow/tracking-service/internal/domain"
	"github.com/cargoflow/tracking-service/pkg/errors"
	"github.com/cargoflow/tracking-service/pkg/logging"
)

type fakeShipmentRepo struct {
	shipments map[string]*domain.Shipment
	insertErr error
	findErr   error
	listErr   error

	// conflictsRemaining forces AppendEvent to lose the version race the
	// given number of times before the write goes through.
	conflictsRemaining int
	appendCalls        int

	gotStatus   domain.Status
	gotPage     int
	gotPageSize int
}

func cloneShipment(s *domain.Shipment) *domain.Shipment {
	c := *s
	c.History = append([]domain.TrackingEvent(nil), s.History...)
	c.DomainEvents = nil
	return &c
}

func (f *fakeShipmentRepo) Insert(ctx context.Context, shipment *domain.Shipment) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	if f.shipments == nil {
		f.shipments = make(map[string]*domain.Shipment)
	}
	if _, ok := f.shipments[shipment.AWB]; ok {
		return domain.ErrDuplicateAWB
	}
	f.shipments[shipment.AWB] = cloneShipment(shipment)
	return nil
}

func (f *fakeShipmentRepo) FindByAWB(ctx context.Context, awb string) (*domain.Shipment, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	stored, ok := f.shipments[awb]
	if !ok {
		return nil, nil
	}
	return cloneShipment(stored), nil
}

func (f *fakeShipmentRepo) AppendEvent(ctx context.Context, shipment *domain.Shipment) error {
	f.appendCalls++
	if f.conflictsRemaining > 0 {
		f.conflictsRemaining--
		return domain.ErrVersionConflict
	}
	stored, ok := f.shipments[shipment.AWB]
	if !ok || stored.Version != shipment.Version {
		return domain.ErrVersionConflict
	}
	shipment.Version++
	f.shipments[shipment.AWB] = cloneShipment(shipment)
	return nil
}

func (f *fakeShipmentRepo) FindByStatus(ctx context.Context, status domain.Status, page, pageSize int) ([]*domain.Shipment, int64, error) {
	if f.listErr != nil {
		return nil, 0, f.listErr
	}
	f.gotStatus = status
	f.gotPage = page
	f.gotPageSize = pageSize

	results := make([]*domain.Shipment, 0, len(f.shipments))
	for _, s := range f.shipments {
		if status.IsZero() || s.Status.Equals(status) {
			results = append(results, cloneShipment(s))
		}
	}
	return results, int64(len(results)), nil
}

func (f *fakeShipmentRepo) Delete(ctx context.Context, awb string) error {
	delete(f.shipments, awb)
	return nil
}

type fakeNotifier struct {
	events []domain.TrackingEvent
}

func (f *fakeNotifier) Notify(ctx context.Context, shipment *domain.Shipment, event domain.TrackingEvent) {
	f.events = append(f.events, event)
}

func newTestService(repo *fakeShipmentRepo, notifier *fakeNotifier) *TrackingApplicationService {
	logger := logging.New(logging.DefaultConfig("test"))
	return NewTrackingApplicationService(repo, notifier, nil, logger)
}

func bookCommand(awb string) BookShipmentCommand {
	return BookShipmentCommand{
		AWB:    awb,
		Origin: "Karachi Hub",
		Sender: domain.Contact{
			Name:    "Ayesha Khan",
			Email:   "ayesha.khan@example.com",
			City:    "Karachi",
			Country: "PK",
		},
		Receiver: domain.Contact{
			Name:    "Bilal Ahmed",
			Phone:   "+92-321-7654321",
			City:    "Lahore",
			Country: "PK",
		},
		Package: domain.PackageDetails{
			WeightKg:    2.5,
			Description: "Electronics",
		},
		BookedBy: "ops-booking",
	}
}

func seedShipment(t *testing.T, repo *fakeShipmentRepo, awb string) *domain.Shipment {
	t.Helper()

	cmd := bookCommand(awb)
	awbVO, err := domain.NewAWB(cmd.AWB)
	require.NoError(t, err)
	shipment, err := domain.NewShipment(awbVO, cmd.Sender, cmd.Receiver, cmd.Package, cmd.Origin, cmd.BookedBy)
	require.NoError(t, err)
	require.NoError(t, repo.Insert(context.Background(), shipment))
	return shipment
}

func TestTrackingApplicationService_BookShipment(t *testing.T) {
	repo := &fakeShipmentRepo{}
	svc := newTestService(repo, &fakeNotifier{})

	dto, err := svc.BookShipment(context.Background(), bookCommand("CF-2024000101AB"))
	require.NoError(t, err)
	require.NotNil(t, dto)
	assert.Equal(t, "CF-2024000101AB", dto.AWB)
	assert.Equal(t, "booked", dto.Status)
	assert.Equal(t, "Karachi Hub", dto.CurrentLocation)
	assert.Equal(t, int64(1), dto.Version)
	require.Len(t, dto.History, 1)

	t.Run("duplicate awb conflicts", func(t *testing.T) {
		_, err := svc.BookShipment(context.Background(), bookCommand("CF-2024000101AB"))
		require.Error(t, err)

		appErr, ok := err.(*errors.AppError)
		require.True(t, ok)
		assert.Equal(t, errors.CodeConflict, appErr.Code)
		assert.Equal(t, "CF-2024000101AB", appErr.Details["awb"])
	})

	t.Run("invalid awb rejected", func(t *testing.T) {
		_, err := svc.BookShipment(context.Background(), bookCommand("bad awb!"))
		require.Error(t, err)

		appErr, ok := err.(*errors.AppError)
		require.True(t, ok)
		assert.Equal(t, errors.CodeValidationError, appErr.Code)
	})
}

func TestTrackingApplicationService_RecordTrackingEvent(t *testing.T) {
	t.Run("appends event and notifies once", func(t *testing.T) {
		repo := &fakeShipmentRepo{}
		notifier := &fakeNotifier{}
		svc := newTestService(repo, notifier)
		seedShipment(t, repo, "CF-2024000201AB")

		dto, err := svc.RecordTrackingEvent(context.Background(), RecordTrackingEventCommand{
			AWB:         "CF-2024000201AB",
			Status:      "picked_up",
			Location:    "Karachi Hub",
			Description: "Picked up by courier",
			RecordedBy:  "courier-17",
		})
		require.NoError(t, err)
		assert.Equal(t, "picked_up", dto.Status)
		assert.Equal(t, int64(2), dto.Version)
		require.Len(t, dto.History, 2)

		require.Len(t, notifier.events, 1)
		assert.Equal(t, "Picked up by courier", notifier.events[0].Description)
		assert.Equal(t, 1, repo.appendCalls)
	})

	t.Run("unknown status rejected before load", func(t *testing.T) {
		repo := &fakeShipmentRepo{}
		svc := newTestService(repo, &fakeNotifier{})

		_, err := svc.RecordTrackingEvent(context.Background(), RecordTrackingEventCommand{
			AWB:    "CF-2024000201AB",
			Status: "teleported",
		})
		require.Error(t, err)

		appErr, ok := err.(*errors.AppError)
		require.True(t, ok)
		assert.Equal(t, errors.CodeValidationError, appErr.Code)
	})

	t.Run("missing shipment not found", func(t *testing.T) {
		repo := &fakeShipmentRepo{}
		svc := newTestService(repo, &fakeNotifier{})

		_, err := svc.RecordTrackingEvent(context.Background(), RecordTrackingEventCommand{
			AWB:         "CF-2024099999ZZ",
			Status:      "picked_up",
			Location:    "Karachi Hub",
			Description: "Picked up by courier",
		})
		require.Error(t, err)

		appErr, ok := err.(*errors.AppError)
		require.True(t, ok)
		assert.Equal(t, errors.CodeNotFound, appErr.Code)
	})

	t.Run("invalid transition surfaces both statuses", func(t *testing.T) {
		repo := &fakeShipmentRepo{}
		notifier := &fakeNotifier{}
		svc := newTestService(repo, notifier)
		seedShipment(t, repo, "CF-2024000202CD")

		_, err := svc.RecordTrackingEvent(context.Background(), RecordTrackingEventCommand{
			AWB:         "CF-2024000202CD",
			Status:      "delivered",
			Location:    "Lahore",
			Description: "Delivered to receiver",
		})
		require.Error(t, err)

		appErr, ok := err.(*errors.AppError)
		require.True(t, ok)
		assert.Equal(t, errors.CodeInvalidTransition, appErr.Code)
		assert.Equal(t, "booked", appErr.Details["currentStatus"])
		assert.Equal(t, "delivered", appErr.Details["attemptedStatus"])
		assert.Empty(t, notifier.events)
	})

	t.Run("terminal shipment rejects further events", func(t *testing.T) {
		repo := &fakeShipmentRepo{}
		svc := newTestService(repo, &fakeNotifier{})
		shipment := seedShipment(t, repo, "CF-2024000203EF")

		_, err := shipment.Cancel("", "ops-desk")
		require.NoError(t, err)
		repo.shipments[shipment.AWB] = cloneShipment(shipment)

		_, err = svc.RecordTrackingEvent(context.Background(), RecordTrackingEventCommand{
			AWB:         "CF-2024000203EF",
			Status:      "picked_up",
			Location:    "Karachi Hub",
			Description: "Picked up by courier",
		})
		require.Error(t, err)

		appErr, ok := err.(*errors.AppError)
		require.True(t, ok)
		assert.Equal(t, errors.CodeInvalidTransition, appErr.Code)
	})

	t.Run("lost race is replayed against fresh state", func(t *testing.T) {
		repo := &fakeShipmentRepo{conflictsRemaining: 1}
		notifier := &fakeNotifier{}
		svc := newTestService(repo, notifier)
		seedShipment(t, repo, "CF-2024000204GH")

		dto, err := svc.RecordTrackingEvent(context.Background(), RecordTrackingEventCommand{
			AWB:         "CF-2024000204GH",
			Status:      "picked_up",
			Location:    "Karachi Hub",
			Description: "Picked up by courier",
		})
		require.NoError(t, err)
		assert.Equal(t, "picked_up", dto.Status)
		assert.Equal(t, 2, repo.appendCalls)
		assert.Len(t, notifier.events, 1)
	})

	t.Run("retries exhausted returns version conflict", func(t *testing.T) {
		repo := &fakeShipmentRepo{conflictsRemaining: maxAppendRetries}
		notifier := &fakeNotifier{}
		svc := newTestService(repo, notifier)
		seedShipment(t, repo, "CF-2024000205IJ")

		_, err := svc.RecordTrackingEvent(context.Background(), RecordTrackingEventCommand{
			AWB:         "CF-2024000205IJ",
			Status:      "picked_up",
			Location:    "Karachi Hub",
			Description: "Picked up by courier",
		})
		require.Error(t, err)

		appErr, ok := err.(*errors.AppError)
		require.True(t, ok)
		assert.Equal(t, errors.CodeVersionConflict, appErr.Code)
		assert.Equal(t, maxAppendRetries, repo.appendCalls)
		assert.Empty(t, notifier.events)
	})

	t.Run("empty location rejected", func(t *testing.T) {
		repo := &fakeShipmentRepo{}
		svc := newTestService(repo, &fakeNotifier{})
		seedShipment(t, repo, "CF-2024000206KL")

		_, err := svc.RecordTrackingEvent(context.Background(), RecordTrackingEventCommand{
			AWB:         "CF-2024000206KL",
			Status:      "picked_up",
			Description: "Picked up by courier",
		})
		require.Error(t, err)

		appErr, ok := err.(*errors.AppError)
		require.True(t, ok)
		assert.Equal(t, errors.CodeValidationError, appErr.Code)
	})
}

func TestTrackingApplicationService_CancelShipment(t *testing.T) {
	t.Run("cancels with default reason", func(t *testing.T) {
		repo := &fakeShipmentRepo{}
		notifier := &fakeNotifier{}
		svc := newTestService(repo, notifier)
		seedShipment(t, repo, "CF-2024000301AB")

		dto, err := svc.CancelShipment(context.Background(), CancelShipmentCommand{
			AWB:         "CF-2024000301AB",
			CancelledBy: "ops-desk",
		})
		require.NoError(t, err)
		assert.Equal(t, "cancelled", dto.Status)
		require.Len(t, dto.History, 2)
		assert.Equal(t, "Shipment cancelled", dto.History[1].Description)
		assert.Len(t, notifier.events, 1)
	})

	t.Run("delivered shipment cannot be cancelled", func(t *testing.T) {
		repo := &fakeShipmentRepo{}
		svc := newTestService(repo, &fakeNotifier{})
		shipment := seedShipment(t, repo, "CF-2024000302CD")

		for _, step := range []domain.Status{
			domain.StatusPickedUp,
			domain.StatusInTransit,
			domain.StatusOutForDelivery,
			domain.StatusDelivered,
		} {
			_, err := shipment.RecordEvent(step, "Lahore", "Progressing", "courier-17")
			require.NoError(t, err)
		}
		repo.shipments[shipment.AWB] = cloneShipment(shipment)

		_, err := svc.CancelShipment(context.Background(), CancelShipmentCommand{
			AWB:         "CF-2024000302CD",
			CancelledBy: "ops-desk",
		})
		require.Error(t, err)

		appErr, ok := err.(*errors.AppError)
		require.True(t, ok)
		assert.Equal(t, errors.CodeInvalidTransition, appErr.Code)
		assert.Equal(t, "delivered", appErr.Details["currentStatus"])
	})
}

func TestTrackingApplicationService_Queries(t *testing.T) {
	repo := &fakeShipmentRepo{}
	svc := newTestService(repo, &fakeNotifier{})
	seedShipment(t, repo, "CF-2024000401AB")

	t.Run("get shipment", func(t *testing.T) {
		dto, err := svc.GetShipment(context.Background(), GetShipmentQuery{AWB: "CF-2024000401AB"})
		require.NoError(t, err)
		assert.Equal(t, "CF-2024000401AB", dto.AWB)

		_, err = svc.GetShipment(context.Background(), GetShipmentQuery{AWB: "CF-2024099999ZZ"})
		require.Error(t, err)
		appErr, ok := err.(*errors.AppError)
		require.True(t, ok)
		assert.Equal(t, errors.CodeNotFound, appErr.Code)
	})

	t.Run("get history oldest first", func(t *testing.T) {
		history, err := svc.GetHistory(context.Background(), GetHistoryQuery{AWB: "CF-2024000401AB"})
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, "booked", history[0].Status)

		_, err = svc.GetHistory(context.Background(), GetHistoryQuery{AWB: "CF-2024099999ZZ"})
		require.Error(t, err)
	})
}

func TestTrackingApplicationService_ListByStatus(t *testing.T) {
	repo := &fakeShipmentRepo{}
	svc := newTestService(repo, &fakeNotifier{})
	seedShipment(t, repo, "CF-2024000501AB")
	seedShipment(t, repo, "CF-2024000502CD")

	t.Run("defaults page and page size", func(t *testing.T) {
		list, err := svc.ListByStatus(context.Background(), ListByStatusQuery{})
		require.NoError(t, err)
		assert.Equal(t, int64(2), list.Total)
		assert.Equal(t, 1, list.Page)
		assert.Equal(t, 20, list.PageSize)
		assert.True(t, repo.gotStatus.IsZero())
	})

	t.Run("clamps out of range paging", func(t *testing.T) {
		list, err := svc.ListByStatus(context.Background(), ListByStatusQuery{Page: -3, PageSize: 500})
		require.NoError(t, err)
		assert.Equal(t, 1, list.Page)
		assert.Equal(t, 20, list.PageSize)
		assert.Equal(t, 1, repo.gotPage)
		assert.Equal(t, 20, repo.gotPageSize)
	})

	t.Run("filters by parsed status", func(t *testing.T) {
		list, err := svc.ListByStatus(context.Background(), ListByStatusQuery{Status: "booked"})
		require.NoError(t, err)
		assert.Len(t, list.Items, 2)
		assert.Equal(t, domain.StatusBooked, repo.gotStatus)
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		_, err := svc.ListByStatus(context.Background(), ListByStatusQuery{Status: "warp"})
		require.Error(t, err)

		appErr, ok := err.(*errors.AppError)
		require.True(t, ok)
		assert.Equal(t, errors.CodeValidationError, appErr.Code)
	})
}
