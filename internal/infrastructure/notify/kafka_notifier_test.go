package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cargoflow/tracking-service/internal/domain"
	"github.com/cargoflow/tracking-service/pkg/cloudevents"
	"github.com/cargoflow/tracking-service/pkg/kafka"
	"github.com/cargoflow/tracking-service/pkg/logging"
	"github.com/cargoflow/tracking-service/pkg/metrics"
)

// publishRecord captures the context state observed at publish time. The
// notifier cancels its own timeout context when it returns, so the state has
// to be read inside PublishEvent.
type publishRecord struct {
	topic       string
	event       *cloudevents.TrackingCloudEvent
	ctxErr      error
	deadline    time.Time
	hasDeadline bool
}

// stubProducer records publishes and optionally fails every one of them
type stubProducer struct {
	err     error
	records []publishRecord
}

func (p *stubProducer) PublishEvent(ctx context.Context, topic string, event *cloudevents.TrackingCloudEvent) error {
	deadline, hasDeadline := ctx.Deadline()
	p.records = append(p.records, publishRecord{
		topic:       topic,
		event:       event,
		ctxErr:      ctx.Err(),
		deadline:    deadline,
		hasDeadline: hasDeadline,
	})
	return p.err
}

func newTestNotifier(producer *stubProducer) (*KafkaNotifier, *metrics.Metrics) {
	logger := logging.New(logging.DefaultConfig("notifier-test"))
	m := metrics.New(metrics.DefaultConfig("notifier-test"))
	eventFactory := cloudevents.NewEventFactory(cloudevents.SourceTracking)
	return NewKafkaNotifier(producer, eventFactory, logger, m), m
}

func notifierTestShipment(t *testing.T, email, phone string) (*domain.Shipment, domain.TrackingEvent) {
	t.Helper()

	awb, err := domain.NewAWB("CF-2024000501AB")
	require.NoError(t, err)

	sender := domain.Contact{Name: "Ayesha Khan", City: "Karachi", Country: "PK"}
	receiver := domain.Contact{Name: "Bilal Ahmed", Email: email, Phone: phone, City: "Lahore", Country: "PK"}
	pkg := domain.PackageDetails{WeightKg: 2.5}

	shipment, err := domain.NewShipment(awb, sender, receiver, pkg, "Karachi Hub", "ops-booking")
	require.NoError(t, err)

	event, err := shipment.RecordEvent(domain.StatusPickedUp, "Karachi Hub", "Picked up by courier", "courier-17")
	require.NoError(t, err)

	return shipment, event
}

func dispatchedCount(t *testing.T, m *metrics.Metrics, wantStatus string) float64 {
	t.Helper()

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	var total float64
	for _, family := range families {
		if family.GetName() != "cargoflow_notifications_dispatched_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "status" && label.GetValue() == wantStatus {
					total += metric.GetCounter().GetValue()
				}
			}
		}
	}
	return total
}

func TestKafkaNotifier_Notify(t *testing.T) {
	t.Run("dispatches one notification per reachable channel", func(t *testing.T) {
		producer := &stubProducer{}
		notifier, _ := newTestNotifier(producer)
		shipment, event := notifierTestShipment(t, "bilal.ahmed@example.com", "+92-321-7654321")

		notifier.Notify(context.Background(), shipment, event)

		require.Len(t, producer.records, 2)

		channels := make([]string, 0, 2)
		recipients := make([]string, 0, 2)
		for _, record := range producer.records {
			assert.Equal(t, kafka.Topics.NotificationsOutbound, record.topic)
			assert.Equal(t, cloudevents.NotificationRequested, record.event.Type)
			data, ok := record.event.Data.(cloudevents.NotificationRequestedData)
			require.True(t, ok)
			assert.Equal(t, shipment.AWB, data.AWB)
			channels = append(channels, data.Channel)
			recipients = append(recipients, data.Recipient)
		}
		assert.ElementsMatch(t, []string{ChannelEmail, ChannelSMS}, channels)
		assert.ElementsMatch(t, []string{"bilal.ahmed@example.com", "+92-321-7654321"}, recipients)
	})

	t.Run("skips channels without contact details", func(t *testing.T) {
		producer := &stubProducer{}
		notifier, _ := newTestNotifier(producer)
		shipment, event := notifierTestShipment(t, "bilal.ahmed@example.com", "")

		notifier.Notify(context.Background(), shipment, event)

		require.Len(t, producer.records, 1)
		data, ok := producer.records[0].event.Data.(cloudevents.NotificationRequestedData)
		require.True(t, ok)
		assert.Equal(t, ChannelEmail, data.Channel)
	})

	t.Run("nil shipment is a no-op", func(t *testing.T) {
		producer := &stubProducer{}
		notifier, _ := newTestNotifier(producer)

		notifier.Notify(context.Background(), nil, domain.TrackingEvent{})

		assert.Empty(t, producer.records)
	})

	t.Run("producer failure never reaches the caller", func(t *testing.T) {
		producer := &stubProducer{err: errors.New("broker unavailable")}
		notifier, m := newTestNotifier(producer)
		shipment, event := notifierTestShipment(t, "bilal.ahmed@example.com", "+92-321-7654321")

		// Notify has no error return; the only acceptable behavior on a
		// failing producer is to attempt every channel and come back.
		notifier.Notify(context.Background(), shipment, event)

		assert.Len(t, producer.records, 2, "a failed channel must not short-circuit the others")
		assert.Equal(t, float64(2), dispatchedCount(t, m, "error"))
		assert.Equal(t, float64(0), dispatchedCount(t, m, "success"))
	})

	t.Run("successful dispatch is counted", func(t *testing.T) {
		producer := &stubProducer{}
		notifier, m := newTestNotifier(producer)
		shipment, event := notifierTestShipment(t, "bilal.ahmed@example.com", "")

		notifier.Notify(context.Background(), shipment, event)

		assert.Equal(t, float64(1), dispatchedCount(t, m, "success"))
	})

	t.Run("publish deadline is detached from the caller", func(t *testing.T) {
		producer := &stubProducer{}
		notifier, _ := newTestNotifier(producer)
		shipment, event := notifierTestShipment(t, "bilal.ahmed@example.com", "")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		notifier.Notify(ctx, shipment, event)

		require.Len(t, producer.records, 1)
		record := producer.records[0]
		assert.NoError(t, record.ctxErr, "a cancelled request context must not cancel the publish")
		require.True(t, record.hasDeadline, "the publish should still be bounded")
		assert.WithinDuration(t, time.Now().Add(5*time.Second), record.deadline, time.Second)
	})
}
