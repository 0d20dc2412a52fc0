package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/cargoflow/tracking-service/internal/domain"
	"github.com/cargoflow/tracking-service/pkg/cloudevents"
	"github.com/cargoflow/tracking-service/pkg/kafka"
	sharedMongo "github.com/cargoflow/tracking-service/pkg/mongodb"
	"github.com/cargoflow/tracking-service/pkg/outbox"
	outboxMongo "github.com/cargoflow/tracking-service/pkg/outbox/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Persistence documents. The aggregate stays free of driver tags; the
// repository owns the mapping between domain types and stored shape.

type shipmentDocument struct {
	AWB             string                  `bson:"awb"`
	Status          string                  `bson:"status"`
	CurrentLocation string                  `bson:"currentLocation"`
	History         []trackingEventDocument `bson:"history"`
	Sender          contactDocument         `bson:"sender"`
	Receiver        contactDocument         `bson:"receiver"`
	Package         packageDocument         `bson:"package"`
	Version         int64                   `bson:"version"`
	CreatedAt       time.Time               `bson:"createdAt"`
	UpdatedAt       time.Time               `bson:"updatedAt"`
}

type trackingEventDocument struct {
	ID          string    `bson:"id"`
	Status      string    `bson:"status"`
	Location    string    `bson:"location"`
	Description string    `bson:"description"`
	RecordedBy  string    `bson:"recordedBy,omitempty"`
	Timestamp   time.Time `bson:"timestamp"`
}

type contactDocument struct {
	Name    string `bson:"name"`
	Phone   string `bson:"phone,omitempty"`
	Email   string `bson:"email,omitempty"`
	Address string `bson:"address,omitempty"`
	City    string `bson:"city,omitempty"`
	Country string `bson:"country,omitempty"`
}

type packageDocument struct {
	WeightKg      float64            `bson:"weightKg"`
	Dimensions    dimensionsDocument `bson:"dimensions"`
	DeclaredValue float64            `bson:"declaredValue,omitempty"`
	Description   string             `bson:"description,omitempty"`
}

type dimensionsDocument struct {
	Length float64 `bson:"length"`
	Width  float64 `bson:"width"`
	Height float64 `bson:"height"`
}

// ShipmentRepository implements domain.ShipmentRepository against MongoDB
// with a transactional outbox for domain event publication. All collection
// access goes through the circuit breaker client so every operation carries
// per-operation metrics and spans.
type ShipmentRepository struct {
	client       *sharedMongo.CircuitBreakerClient
	collection   *sharedMongo.CircuitBreakerCollection
	outboxRepo   *outboxMongo.OutboxRepository
	eventFactory *cloudevents.EventFactory
}

// NewShipmentRepository creates a repository over the shipments collection
func NewShipmentRepository(client *sharedMongo.CircuitBreakerClient, eventFactory *cloudevents.EventFactory) *ShipmentRepository {
	outboxRepo := outboxMongo.NewOutboxRepository(client.Collection(outboxMongo.DefaultCollectionName))

	repo := &ShipmentRepository{
		client:       client,
		collection:   client.Collection("shipments"),
		outboxRepo:   outboxRepo,
		eventFactory: eventFactory,
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *ShipmentRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "awb", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "updatedAt", Value: -1}}},
	}
	for _, index := range indexes {
		_, _ = r.collection.CreateIndex(ctx, index)
	}

	_ = r.outboxRepo.EnsureIndexes(ctx)
}

// Insert persists a newly booked shipment and its booking events to the
// outbox in a single transaction.
func (r *ShipmentRepository) Insert(ctx context.Context, shipment *domain.Shipment) error {
	doc := toDocument(shipment)

	err := r.client.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if _, err := r.collection.InsertOne(sessCtx, doc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return domain.ErrDuplicateAWB
			}
			return fmt.Errorf("failed to insert shipment: %w", err)
		}

		return r.saveEventsToOutbox(sessCtx, shipment)
	})

	if err != nil {
		if err == domain.ErrDuplicateAWB {
			return err
		}
		return fmt.Errorf("transaction failed: %w", err)
	}

	shipment.ClearDomainEvents()
	return nil
}

// FindByAWB returns the shipment for the given AWB, or (nil, nil) when absent
func (r *ShipmentRepository) FindByAWB(ctx context.Context, awb string) (*domain.Shipment, error) {
	var doc shipmentDocument
	err := r.collection.FindOne(ctx, bson.M{"awb": awb}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find shipment: %w", err)
	}
	return fromDocument(&doc)
}

// AppendEvent persists the latest recorded event as a conditional write keyed
// on the version the aggregate was loaded at. The status, location, history
// and version advance in the same update, and the resulting domain events go
// to the outbox in the same transaction. A concurrent writer that advanced
// the version first surfaces as domain.ErrVersionConflict.
func (r *ShipmentRepository) AppendEvent(ctx context.Context, shipment *domain.Shipment) error {
	latest := shipment.LatestEvent()
	if latest == nil {
		return domain.ErrEmptyHistory
	}

	eventDoc := trackingEventDocument{
		ID:          latest.ID,
		Status:      latest.Status.String(),
		Location:    latest.Location,
		Description: latest.Description,
		RecordedBy:  latest.RecordedBy,
		Timestamp:   latest.Timestamp,
	}

	loadedVersion := shipment.Version

	err := r.client.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		filter := bson.M{"awb": shipment.AWB, "version": loadedVersion}
		update := bson.M{
			"$push": bson.M{"history": eventDoc},
			"$set": bson.M{
				"status":          shipment.Status.String(),
				"currentLocation": shipment.CurrentLocation,
				"updatedAt":       shipment.UpdatedAt,
			},
			"$inc": bson.M{"version": 1},
		}

		result, err := r.collection.UpdateOne(sessCtx, filter, update)
		if err != nil {
			return fmt.Errorf("failed to append event: %w", err)
		}
		if result.ModifiedCount == 0 {
			return domain.ErrVersionConflict
		}

		return r.saveEventsToOutbox(sessCtx, shipment)
	})

	if err != nil {
		if err == domain.ErrVersionConflict {
			return err
		}
		return fmt.Errorf("transaction failed: %w", err)
	}

	shipment.Version = loadedVersion + 1
	shipment.ClearDomainEvents()
	return nil
}

// FindByStatus lists shipments in the given status, newest first. A zero
// status matches all shipments.
func (r *ShipmentRepository) FindByStatus(ctx context.Context, status domain.Status, page, pageSize int) ([]*domain.Shipment, int64, error) {
	filter := bson.M{}
	if !status.IsZero() {
		filter["status"] = status.String()
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count shipments: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((page - 1) * pageSize)).
		SetLimit(int64(pageSize))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find shipments: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []shipmentDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("failed to decode shipments: %w", err)
	}

	shipments := make([]*domain.Shipment, 0, len(docs))
	for i := range docs {
		shipment, err := fromDocument(&docs[i])
		if err != nil {
			return nil, 0, err
		}
		shipments = append(shipments, shipment)
	}

	return shipments, total, nil
}

// Delete removes a shipment record. Operational cleanup only.
func (r *ShipmentRepository) Delete(ctx context.Context, awb string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"awb": awb})
	return err
}

// GetOutboxRepository returns the outbox repository for this service
func (r *ShipmentRepository) GetOutboxRepository() outbox.Repository {
	return r.outboxRepo
}

// saveEventsToOutbox converts the aggregate's pending domain events into
// CloudEvents and stores them in the outbox within the caller's transaction.
func (r *ShipmentRepository) saveEventsToOutbox(sessCtx mongo.SessionContext, shipment *domain.Shipment) error {
	domainEvents := shipment.GetDomainEvents()
	if len(domainEvents) == 0 {
		return nil
	}

	outboxEvents := make([]*outbox.OutboxEvent, 0, len(domainEvents))
	for _, event := range domainEvents {
		var cloudEvent *cloudevents.TrackingCloudEvent
		switch e := event.(type) {
		case *domain.ShipmentBookedEvent:
			cloudEvent = r.eventFactory.CreateShipmentBookedEvent(sessCtx, e.AWB, e.Origin, e.ReceiverName, e.BookedAt)
		case *domain.TrackingEventRecordedEvent:
			cloudEvent = r.eventFactory.CreateTrackingEventRecordedEvent(sessCtx, cloudevents.TrackingEventRecordedData{
				AWB:            e.AWB,
				EventID:        e.EventID,
				Status:         e.Status,
				PreviousStatus: e.PreviousStatus,
				Location:       e.Location,
				Description:    e.Description,
				RecordedBy:     e.RecordedBy,
				RecordedAt:     e.RecordedAt,
			})
		case *domain.ShipmentDeliveredEvent:
			cloudEvent = r.eventFactory.CreateShipmentDeliveredEvent(sessCtx, e.AWB, e.Location, e.DeliveredAt)
		case *domain.ShipmentCancelledEvent:
			cloudEvent = r.eventFactory.CreateShipmentCancelledEvent(sessCtx, e.AWB, e.Reason, e.CancelledBy, e.CancelledAt)
		default:
			continue
		}

		outboxEvent, err := outbox.NewOutboxEventFromCloudEvent(
			shipment.AWB,
			"Shipment",
			kafka.Topics.TrackingEvents,
			cloudEvent,
		)
		if err != nil {
			return fmt.Errorf("failed to create outbox event: %w", err)
		}

		outboxEvents = append(outboxEvents, outboxEvent)
	}

	if len(outboxEvents) > 0 {
		if err := r.outboxRepo.SaveAll(sessCtx, outboxEvents); err != nil {
			return fmt.Errorf("failed to save outbox events: %w", err)
		}
	}

	return nil
}

// Mapping helpers

func toDocument(s *domain.Shipment) *shipmentDocument {
	history := make([]trackingEventDocument, 0, len(s.History))
	for _, e := range s.History {
		history = append(history, trackingEventDocument{
			ID:          e.ID,
			Status:      e.Status.String(),
			Location:    e.Location,
			Description: e.Description,
			RecordedBy:  e.RecordedBy,
			Timestamp:   e.Timestamp,
		})
	}

	return &shipmentDocument{
		AWB:             s.AWB,
		Status:          s.Status.String(),
		CurrentLocation: s.CurrentLocation,
		History:         history,
		Sender:          toContactDocument(s.Sender),
		Receiver:        toContactDocument(s.Receiver),
		Package: packageDocument{
			WeightKg: s.Package.WeightKg,
			Dimensions: dimensionsDocument{
				Length: s.Package.Dimensions.Length,
				Width:  s.Package.Dimensions.Width,
				Height: s.Package.Dimensions.Height,
			},
			DeclaredValue: s.Package.DeclaredValue,
			Description:   s.Package.Description,
		},
		Version:   s.Version,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func fromDocument(doc *shipmentDocument) (*domain.Shipment, error) {
	status, err := domain.NewStatus(doc.Status)
	if err != nil {
		return nil, fmt.Errorf("stored shipment %s has invalid status %q: %w", doc.AWB, doc.Status, err)
	}

	history := make([]domain.TrackingEvent, 0, len(doc.History))
	for _, e := range doc.History {
		eventStatus, err := domain.NewStatus(e.Status)
		if err != nil {
			return nil, fmt.Errorf("stored event %s has invalid status %q: %w", e.ID, e.Status, err)
		}
		history = append(history, domain.TrackingEvent{
			ID:          e.ID,
			Status:      eventStatus,
			Location:    e.Location,
			Description: e.Description,
			RecordedBy:  e.RecordedBy,
			Timestamp:   e.Timestamp,
		})
	}

	return &domain.Shipment{
		AWB:             doc.AWB,
		Status:          status,
		CurrentLocation: doc.CurrentLocation,
		History:         history,
		Sender:          fromContactDocument(doc.Sender),
		Receiver:        fromContactDocument(doc.Receiver),
		Package: domain.PackageDetails{
			WeightKg: doc.Package.WeightKg,
			Dimensions: domain.Dimensions{
				Length: doc.Package.Dimensions.Length,
				Width:  doc.Package.Dimensions.Width,
				Height: doc.Package.Dimensions.Height,
			},
			DeclaredValue: doc.Package.DeclaredValue,
			Description:   doc.Package.Description,
		},
		Version:      doc.Version,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
		DomainEvents: make([]domain.DomainEvent, 0),
	}, nil
}

func toContactDocument(c domain.Contact) contactDocument {
	return contactDocument{
		Name:    c.Name,
		Phone:   c.Phone,
		Email:   c.Email,
		Address: c.Address,
		City:    c.City,
		Country: c.Country,
	}
}

func fromContactDocument(c contactDocument) domain.Contact {
	return domain.Contact{
		Name:    c.Name,
		Phone:   c.Phone,
		Email:   c.Email,
		Address: c.Address,
		City:    c.City,
		Country: c.Country,
	}
}
