package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cargoflow/tracking-service/internal/domain"
	"github.com/cargoflow/tracking-service/internal/infrastructure/mongodb"
	"github.com/cargoflow/tracking-service/pkg/cloudevents"
	"github.com/cargoflow/tracking-service/pkg/logging"
	"github.com/cargoflow/tracking-service/pkg/metrics"
	sharedMongo "github.com/cargoflow/tracking-service/pkg/mongodb"
	sharedtesting "github.com/cargoflow/tracking-service/pkg/testing"
)

// Test fixtures
func createTestShipment(t *testing.T, awb string) *domain.Shipment {
	t.Helper()

	awbVO, err := domain.NewAWB(awb)
	require.NoError(t, err)

	sender := domain.Contact{
		Name:    "Ayesha Khan",
		Phone:   "+92-300-1234567",
		Email:   "ayesha.khan@example.com",
		Address: "14 Shahrah-e-Faisal",
		City:    "Karachi",
		Country: "PK",
	}

	receiver := domain.Contact{
		Name:    "Bilal Ahmed",
		Phone:   "+92-321-7654321",
		Email:   "bilal.ahmed@example.com",
		Address: "7 Mall Road",
		City:    "Lahore",
		Country: "PK",
	}

	pkg := domain.PackageDetails{
		WeightKg: 2.5,
		Dimensions: domain.Dimensions{
			Length: 30,
			Width:  20,
			Height: 15,
		},
		DeclaredValue: 5000,
		Description:   "Electronics",
	}

	shipment, err := domain.NewShipment(awbVO, sender, receiver, pkg, "Karachi Hub", "ops-booking")
	require.NoError(t, err)

	return shipment
}

func setupTestRepository(t *testing.T) (*mongodb.ShipmentRepository, *metrics.Metrics, func()) {
	ctx := context.Background()

	// Start MongoDB container
	mongoContainer, err := sharedtesting.NewMongoDBContainer(ctx)
	require.NoError(t, err)

	logger := logging.New(logging.DefaultConfig("repository-test"))
	m := metrics.New(metrics.DefaultConfig("repository-test"))

	// Build the same client chain production uses so repository traffic
	// flows through the instrumented and circuit breaker wrappers
	client, err := sharedMongo.NewClient(ctx, &sharedMongo.Config{
		URI:            mongoContainer.URI,
		Database:       "test_tracking_db",
		ConnectTimeout: 10 * time.Second,
		MaxPoolSize:    10,
		MinPoolSize:    1,
	})
	require.NoError(t, err)

	cbClient := sharedMongo.NewCircuitBreakerClient(sharedMongo.NewInstrumentedClient(client, m, logger), logger)

	// Create event factory
	eventFactory := cloudevents.NewEventFactory(cloudevents.SourceTracking)

	repo := mongodb.NewShipmentRepository(cbClient, eventFactory)

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		_ = cbClient.Database().Drop(ctx)
		_ = cbClient.Close(ctx)
		_ = mongoContainer.Close(ctx)
	}

	return repo, m, cleanup
}

func TestShipmentRepository_Insert(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	repo, m, cleanup := setupTestRepository(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("insert and find round trip", func(t *testing.T) {
		shipment := createTestShipment(t, "CF-2024000101AB")

		err := repo.Insert(ctx, shipment)
		require.NoError(t, err)
		assert.Empty(t, shipment.DomainEvents, "domain events should be cleared after commit")

		found, err := repo.FindByAWB(ctx, "CF-2024000101AB")
		require.NoError(t, err)
		require.NotNil(t, found)

		assert.Equal(t, "CF-2024000101AB", found.AWB)
		assert.Equal(t, domain.StatusBooked, found.Status)
		assert.Equal(t, "Karachi Hub", found.CurrentLocation)
		assert.Equal(t, int64(1), found.Version)
		require.Len(t, found.History, 1)
		assert.Equal(t, domain.StatusBooked, found.History[0].Status)
		assert.Equal(t, "ops-booking", found.History[0].RecordedBy)
		assert.Equal(t, "Ayesha Khan", found.Sender.Name)
		assert.Equal(t, "Bilal Ahmed", found.Receiver.Name)
		assert.Equal(t, 2.5, found.Package.WeightKg)
	})

	t.Run("duplicate awb is rejected", func(t *testing.T) {
		first := createTestShipment(t, "CF-2024000102CD")
		require.NoError(t, repo.Insert(ctx, first))

		second := createTestShipment(t, "CF-2024000102CD")
		err := repo.Insert(ctx, second)
		assert.ErrorIs(t, err, domain.ErrDuplicateAWB)
	})

	t.Run("booked event lands in the outbox", func(t *testing.T) {
		shipment := createTestShipment(t, "CF-2024000103EF")
		require.NoError(t, repo.Insert(ctx, shipment))

		entries, err := repo.GetOutboxRepository().FindByAggregateID(ctx, "CF-2024000103EF")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, cloudevents.ShipmentBooked, entries[0].EventType)
		assert.False(t, entries[0].IsPublished())
	})

	t.Run("operations are measured by the instrumented client", func(t *testing.T) {
		families, err := m.Registry().Gather()
		require.NoError(t, err)

		var samples float64
		for _, family := range families {
			if family.GetName() == "cargoflow_mongodb_operations_total" {
				for _, metric := range family.GetMetric() {
					samples += metric.GetCounter().GetValue()
				}
			}
		}
		assert.Greater(t, samples, float64(0), "collection operations should be recorded")
	})
}

func TestShipmentRepository_FindByAWB(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	repo, _, cleanup := setupTestRepository(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("missing awb returns nil without error", func(t *testing.T) {
		found, err := repo.FindByAWB(ctx, "CF-2024099999ZZ")
		require.NoError(t, err)
		assert.Nil(t, found)
	})
}

func TestShipmentRepository_AppendEvent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	repo, _, cleanup := setupTestRepository(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("append advances status, history and version", func(t *testing.T) {
		shipment := createTestShipment(t, "CF-2024000201AB")
		require.NoError(t, repo.Insert(ctx, shipment))

		_, err := shipment.RecordEvent(domain.StatusPickedUp, "Karachi Hub", "Picked up by courier", "courier-17")
		require.NoError(t, err)

		err = repo.AppendEvent(ctx, shipment)
		require.NoError(t, err)
		assert.Equal(t, int64(2), shipment.Version)

		found, err := repo.FindByAWB(ctx, "CF-2024000201AB")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, domain.StatusPickedUp, found.Status)
		assert.Equal(t, int64(2), found.Version)
		require.Len(t, found.History, 2)
		assert.Equal(t, "Picked up by courier", found.History[1].Description)
	})

	t.Run("stale version loses the race", func(t *testing.T) {
		shipment := createTestShipment(t, "CF-2024000202CD")
		require.NoError(t, repo.Insert(ctx, shipment))

		// Two copies loaded at the same version
		first, err := repo.FindByAWB(ctx, "CF-2024000202CD")
		require.NoError(t, err)
		second, err := repo.FindByAWB(ctx, "CF-2024000202CD")
		require.NoError(t, err)

		_, err = first.RecordEvent(domain.StatusPickedUp, "Karachi Hub", "Picked up by courier", "courier-17")
		require.NoError(t, err)
		require.NoError(t, repo.AppendEvent(ctx, first))

		_, err = second.RecordEvent(domain.StatusCancelled, "Karachi Hub", "Cancelled by sender", "ops-desk")
		require.NoError(t, err)
		err = repo.AppendEvent(ctx, second)
		assert.ErrorIs(t, err, domain.ErrVersionConflict)

		// Stored record reflects the winner only
		found, err := repo.FindByAWB(ctx, "CF-2024000202CD")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, domain.StatusPickedUp, found.Status)
		assert.Equal(t, int64(2), found.Version)
		assert.Len(t, found.History, 2)
	})

	t.Run("recorded event lands in the outbox", func(t *testing.T) {
		shipment := createTestShipment(t, "CF-2024000203EF")
		require.NoError(t, repo.Insert(ctx, shipment))

		_, err := shipment.RecordEvent(domain.StatusPickedUp, "Karachi Hub", "Picked up by courier", "courier-17")
		require.NoError(t, err)
		require.NoError(t, repo.AppendEvent(ctx, shipment))

		entries, err := repo.GetOutboxRepository().FindByAggregateID(ctx, "CF-2024000203EF")
		require.NoError(t, err)
		require.Len(t, entries, 2)

		types := make([]string, 0, len(entries))
		for _, entry := range entries {
			types = append(types, entry.EventType)
		}
		assert.Contains(t, types, cloudevents.ShipmentBooked)
		assert.Contains(t, types, cloudevents.TrackingEventRecorded)
	})
}

func TestShipmentRepository_FindByStatus(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	repo, _, cleanup := setupTestRepository(t)
	defer cleanup()

	ctx := context.Background()

	// Seed: three booked, two advanced to picked_up
	for i := 0; i < 5; i++ {
		shipment := createTestShipment(t, fmt.Sprintf("CF-20240003%02dAB", i))
		require.NoError(t, repo.Insert(ctx, shipment))

		if i >= 3 {
			_, err := shipment.RecordEvent(domain.StatusPickedUp, "Karachi Hub", "Picked up by courier", "courier-17")
			require.NoError(t, err)
			require.NoError(t, repo.AppendEvent(ctx, shipment))
		}
	}

	t.Run("filters by status", func(t *testing.T) {
		shipments, total, err := repo.FindByStatus(ctx, domain.StatusBooked, 1, 20)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, shipments, 3)
		for _, s := range shipments {
			assert.Equal(t, domain.StatusBooked, s.Status)
		}
	})

	t.Run("zero status matches all", func(t *testing.T) {
		shipments, total, err := repo.FindByStatus(ctx, domain.Status{}, 1, 20)
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		assert.Len(t, shipments, 5)
	})

	t.Run("paginates newest first", func(t *testing.T) {
		page1, total, err := repo.FindByStatus(ctx, domain.Status{}, 1, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		require.Len(t, page1, 2)

		page2, _, err := repo.FindByStatus(ctx, domain.Status{}, 2, 2)
		require.NoError(t, err)
		require.Len(t, page2, 2)

		page3, _, err := repo.FindByStatus(ctx, domain.Status{}, 3, 2)
		require.NoError(t, err)
		require.Len(t, page3, 1)

		assert.NotEqual(t, page1[0].AWB, page2[0].AWB)
		assert.False(t, page1[0].CreatedAt.Before(page1[1].CreatedAt))
	})
}

func TestShipmentRepository_Delete(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	repo, _, cleanup := setupTestRepository(t)
	defer cleanup()

	ctx := context.Background()

	shipment := createTestShipment(t, "CF-2024000401AB")
	require.NoError(t, repo.Insert(ctx, shipment))

	require.NoError(t, repo.Delete(ctx, "CF-2024000401AB"))

	found, err := repo.FindByAWB(ctx, "CF-2024000401AB")
	require.NoError(t, err)
	assert.Nil(t, found)
}
